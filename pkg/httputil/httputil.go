// Package httputil centralizes JSON encoding and domain error translation so
// every form endpoint returns the same response envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "haulready/pkg/domain-errors"
)

// ErrorResponse is the failure envelope returned to the front end.
// Code is a stable machine-readable value the client uses to decide
// follow-up behavior (refresh the CAPTCHA widget, back off, fix fields).
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override the status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError translates a domain error into the public response envelope.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Success: false,
			Error:   publicMessage(domainErr),
			Code:    DomainCodeToAPICode(domainErr.Code),
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   "An unexpected error occurred. Please try again later.",
		Code:    "INTERNAL_ERROR",
	})
}

// publicMessage keeps operator-only details out of client responses.
// Configuration and dispatch failures surface as a generic message; their
// specifics belong in server logs.
func publicMessage(err *dErrors.Error) string {
	switch err.Code {
	case dErrors.CodeConfig:
		return "Service temporarily unavailable. Please try again later."
	case dErrors.CodeDispatch, dErrors.CodeInternal:
		return "An unexpected error occurred. Please try again later."
	}
	if err.Message != "" {
		return err.Message
	}
	return string(err.Code)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation,
		dErrors.CodeMissingEmail, dErrors.CodeInvalidEmail,
		dErrors.CodeCaptchaRequired, dErrors.CodeCaptchaFailed,
		dErrors.CodeCaptchaExpired, dErrors.CodeCaptchaBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToAPICode translates domain error codes to the public API codes
// the front end switches on.
func DomainCodeToAPICode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return "VALIDATION_ERROR"
	case dErrors.CodeMissingEmail:
		return "MISSING_EMAIL"
	case dErrors.CodeInvalidEmail:
		return "INVALID_EMAIL"
	case dErrors.CodeCaptchaRequired:
		return "TURNSTILE_REQUIRED"
	case dErrors.CodeCaptchaFailed, dErrors.CodeCaptchaExpired, dErrors.CodeCaptchaBadRequest:
		return "TURNSTILE_FAILED"
	case dErrors.CodeRateLimited:
		return "RATE_LIMITED"
	case dErrors.CodeConfig:
		return "CONFIG_ERROR"
	case dErrors.CodeCaptchaInternal, dErrors.CodeDispatch:
		return "API_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
