// Package captcha verifies Cloudflare Turnstile tokens against the
// siteverify API. Tokens are single-use: the upstream service rejects
// replays with timeout-or-duplicate, and this client never caches a
// "verified" result to bypass the second call.
package captcha

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "haulready/pkg/domain-errors"
)

const defaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Upstream error codes we classify into distinct user-facing failures.
const (
	codeMissingInput = "missing-input-response"
	codeInvalidInput = "invalid-input-response"
	codeTimeoutOrDup = "timeout-or-duplicate"
	codeBadRequest   = "bad-request"
	codeInternal     = "internal-error"
)

// Result is the parsed siteverify response. ErrorCodes preserves the
// upstream ordering.
type Result struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
}

// Verifier checks a client-submitted challenge token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*Result, error)
}

// Client calls the Turnstile siteverify endpoint.
type Client struct {
	secret     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the siteverify URL. Used by tests to point at a
// local double.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout. Default is 5s so a slow upstream
// cannot stall the submission handler.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Turnstile client. The secret must be non-empty; callers
// that run without a configured secret should skip the CAPTCHA step
// entirely rather than construct a client.
func New(secret string, opts ...Option) *Client {
	c := &Client{
		secret:     secret,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify checks the token with the upstream API. The returned error carries
// a captcha sub-kind code; the Result (when non-nil) carries the raw
// upstream error codes for logging.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	if c.secret == "" {
		return nil, dErrors.New(dErrors.CodeConfig, "turnstile secret key is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return &Result{Success: false, ErrorCodes: []string{codeMissingInput}},
			dErrors.New(dErrors.CodeCaptchaRequired, "Verification challenge is required")
	}

	form := url.Values{
		"secret":   {c.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCaptchaInternal, "Verification service unavailable")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "turnstile request failed", "error", err)
		return &Result{Success: false, ErrorCodes: []string{codeInternal}},
			dErrors.Wrap(err, dErrors.CodeCaptchaInternal, "Verification service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorContext(ctx, "turnstile returned non-success status", "status", resp.StatusCode)
		return &Result{Success: false, ErrorCodes: []string{codeInternal}},
			dErrors.New(dErrors.CodeCaptchaInternal, "Verification service unavailable")
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.ErrorContext(ctx, "turnstile response decode failed", "error", err)
		return &Result{Success: false, ErrorCodes: []string{codeInternal}},
			dErrors.Wrap(err, dErrors.CodeCaptchaInternal, "Verification service unavailable")
	}

	if !result.Success {
		return &result, classify(result.ErrorCodes)
	}
	return &result, nil
}

// classify maps upstream error codes to a captcha sub-kind. The first
// recognized code wins, matching the upstream's ordered sequence.
func classify(codes []string) error {
	for _, code := range codes {
		switch code {
		case codeMissingInput:
			return dErrors.New(dErrors.CodeCaptchaRequired, "Verification challenge is required")
		case codeTimeoutOrDup:
			return dErrors.New(dErrors.CodeCaptchaExpired, "Verification expired. Please try again.")
		case codeBadRequest:
			return dErrors.New(dErrors.CodeCaptchaBadRequest, "Verification request was malformed. Please refresh and try again.")
		case codeInternal:
			return dErrors.New(dErrors.CodeCaptchaInternal, "Verification service unavailable")
		case codeInvalidInput:
			return dErrors.New(dErrors.CodeCaptchaFailed, "Verification failed. Please try again.")
		}
	}
	return dErrors.New(dErrors.CodeCaptchaFailed, "Verification failed. Please try again.")
}
