package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"haulready/pkg/circuit"
	dErrors "haulready/pkg/domain-errors"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Dispatcher delivers a formatted message to the operator channel.
type Dispatcher interface {
	// Dispatch sends the message and blocks until delivery succeeds or
	// fails. Important submission kinds treat a failure as fatal.
	Dispatch(ctx context.Context, text string) error

	// DispatchAsync sends the message on a detached goroutine. Failures
	// are logged, never surfaced: low-priority kinds must not fail a
	// submission because the operator channel hiccuped.
	DispatchAsync(text string)
}

// TelegramDispatcher posts messages to the Telegram Bot API sendMessage
// endpoint.
type TelegramDispatcher struct {
	botToken   string
	chatID     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuit.Breaker

	// asyncTimeout bounds the detached delivery since it has no request
	// context to inherit a deadline from.
	asyncTimeout time.Duration
}

// DispatcherOption configures a TelegramDispatcher.
type DispatcherOption func(*TelegramDispatcher)

// WithBaseURL overrides the Telegram API base URL. Used by tests.
func WithBaseURL(baseURL string) DispatcherOption {
	return func(d *TelegramDispatcher) {
		if baseURL != "" {
			d.baseURL = baseURL
		}
	}
}

// WithDispatchHTTPClient overrides the HTTP client.
func WithDispatchHTTPClient(hc *http.Client) DispatcherOption {
	return func(d *TelegramDispatcher) {
		if hc != nil {
			d.httpClient = hc
		}
	}
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *TelegramDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithBreaker sets the circuit breaker guarding the outbound call.
func WithBreaker(b *circuit.Breaker) DispatcherOption {
	return func(d *TelegramDispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

// NewTelegramDispatcher creates a dispatcher for the given bot and channel.
func NewTelegramDispatcher(botToken, chatID string, opts ...DispatcherOption) *TelegramDispatcher {
	d := &TelegramDispatcher{
		botToken:     botToken,
		chatID:       chatID,
		baseURL:      defaultTelegramBaseURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		logger:       slog.Default(),
		breaker:      circuit.New("telegram"),
		asyncTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Dispatch implements Dispatcher.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, text string) error {
	if d.botToken == "" || d.chatID == "" {
		return dErrors.New(dErrors.CodeConfig, "telegram bot token or chat id is not configured")
	}
	if d.breaker.IsOpen() {
		return dErrors.New(dErrors.CodeDispatch, "operator notification channel is unavailable")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    d.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode notification")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", d.baseURL, d.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build notification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.recordFailure(ctx, "telegram request failed", err, 0)
		return dErrors.Wrap(err, dErrors.CodeDispatch, "failed to deliver notification")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Telegram error payloads are small and safe to log.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.recordFailure(ctx, "telegram returned non-success status", nil, resp.StatusCode)
		d.logger.DebugContext(ctx, "telegram error detail", "body", string(detail))
		return dErrors.New(dErrors.CodeDispatch, fmt.Sprintf("notification API returned status %d", resp.StatusCode))
	}

	if closed := d.breaker.RecordSuccess(); closed {
		d.logger.InfoContext(ctx, "notification circuit closed", "breaker", d.breaker.Name())
	}
	return nil
}

// DispatchAsync implements Dispatcher. When the circuit is open the call is
// skipped outright; a low-priority message is not worth a doomed request.
func (d *TelegramDispatcher) DispatchAsync(text string) {
	if d.breaker.IsOpen() {
		d.logger.Warn("skipping async notification, circuit open", "breaker", d.breaker.Name())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.asyncTimeout)
		defer cancel()

		if err := d.Dispatch(ctx, text); err != nil {
			d.logger.Error("async notification failed", "error", err)
		}
	}()
}

func (d *TelegramDispatcher) recordFailure(ctx context.Context, msg string, err error, status int) {
	attrs := []any{"breaker", d.breaker.Name()}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if status != 0 {
		attrs = append(attrs, "status", status)
	}
	d.logger.ErrorContext(ctx, msg, attrs...)

	if opened := d.breaker.RecordFailure(); opened {
		d.logger.ErrorContext(ctx, "notification circuit opened", "breaker", d.breaker.Name())
	}
}
