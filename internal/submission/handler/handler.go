// Package handler exposes the submission pipeline over HTTP. One route per
// form kind, all POST, all speaking the same response envelope.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"haulready/internal/platform/middleware"
	"haulready/internal/submission/models"
	"haulready/internal/submission/service"
	"haulready/pkg/httputil"
)

// Service defines the pipeline operations the handler needs.
type Service interface {
	Submit(ctx context.Context, payload models.Payload, meta service.Meta) (*service.Result, error)
}

// Response is the success envelope. Error responses use the shared
// httputil envelope instead.
type Response struct {
	Success          bool   `json:"success"`
	Message          string `json:"message,omitempty"`
	Email            string `json:"email,omitempty"`
	UnsubscribeToken string `json:"unsubscribeToken,omitempty"`
}

// Handler handles form submission endpoints.
type Handler struct {
	logger     *slog.Logger
	submission Service
}

// New creates a new submission Handler.
func New(submission Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:     logger,
		submission: submission,
	}
}

// Register registers the submission routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/contact", handle[models.ContactForm](h, "Thanks for reaching out. We'll get back to you shortly."))
	r.Post("/api/demo-request", handle[models.DemoRequest](h, "Demo request received. We'll be in touch to schedule it."))
	r.Post("/api/careers/apply", handle[models.JobApplication](h, "Application received. Thanks for your interest."))
	r.Post("/api/invite", handle[models.InviteRequest](h, "Invite sent."))
	r.Post("/api/account/delete", handle[models.AccountDeletionRequest](h, "Deletion request received. We'll confirm by email."))
	r.Post("/api/subscribe", handle[models.SubscribeRequest](h, "You're on the list."))
	r.Post("/api/unsubscribe", handle[models.UnsubscribeRequest](h, "You've been unsubscribed."))
}

// handle builds the shared decode-submit-respond flow for one payload type.
// The pointer to T must satisfy models.Payload.
func handle[T any, P interface {
	*T
	models.Payload
}](h *Handler, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[T](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		payload := P(req)
		meta := service.Meta{
			ClientIP:  middleware.GetClientIP(ctx),
			UserAgent: middleware.GetUserAgent(ctx),
		}

		result, err := h.submission.Submit(ctx, payload, meta)
		if err != nil {
			h.logger.WarnContext(ctx, "submission rejected",
				"kind", payload.Kind(),
				"error", err,
				"request_id", requestID,
			)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, Response{
			Success:          true,
			Message:          message,
			Email:            result.Email,
			UnsubscribeToken: result.UnsubscribeToken,
		})
	}
}
