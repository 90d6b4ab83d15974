// Package service orchestrates the submission pipeline: validation,
// CAPTCHA verification, rate limiting, formatting, and dispatch, in that
// order. Cheap local checks run before anything that costs a network call.
package service

import (
	"context"
	"log/slog"
	"time"

	"haulready/internal/captcha"
	"haulready/internal/notify"
	"haulready/internal/ratelimit"
	"haulready/internal/submission/metrics"
	"haulready/internal/submission/models"
	"haulready/internal/submission/tracer"
	"haulready/internal/token"
	dErrors "haulready/pkg/domain-errors"
)

// Outcome labels recorded on the submissions counter.
const (
	outcomeAccepted    = "accepted"
	outcomeInvalid     = "invalid"
	outcomeTrapped     = "trapped"
	outcomeCaptchaFail = "captcha_rejected"
	outcomeRateLimited = "rate_limited"
	outcomeDispatchErr = "dispatch_failed"
)

// Meta carries per-request client details extracted by the transport layer.
type Meta struct {
	ClientIP  string
	UserAgent string
}

// Result is returned to the caller on an accepted submission.
type Result struct {
	// Email is the normalized identity the submission was recorded under.
	Email string
	// UnsubscribeToken is set only for email capture, so the confirmation
	// response can carry a ready-made opt-out link.
	UnsubscribeToken string
}

// Service runs each submission through the pipeline.
type Service struct {
	verifier   captcha.Verifier
	limiter    *ratelimit.Limiter
	dispatcher notify.Dispatcher
	tokens     *token.Manager
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithVerifier sets the CAPTCHA verifier. When never set, verification is
// disabled and kinds that would require it pass through; New logs that
// decision once at startup.
func WithVerifier(v captcha.Verifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

// WithTokenManager enables unsubscribe token minting and verification.
func WithTokenManager(m *token.Manager) Option {
	return func(s *Service) {
		s.tokens = m
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer attaches a tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service. The limiter and dispatcher are mandatory; the
// verifier is optional so local environments can run without upstream
// credentials.
func New(limiter *ratelimit.Limiter, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		limiter:    limiter,
		dispatcher: dispatcher,
		tracer:     tracer.NewNoop(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		s.logger.Warn("captcha verification disabled, submissions will not be challenged")
	}
	return s
}

// Submit runs the payload through the full pipeline and dispatches the
// operator notification. The returned error carries a domain code the
// transport layer maps onto the API envelope.
func (s *Service) Submit(ctx context.Context, payload models.Payload, meta Meta) (*Result, error) {
	kind := payload.Kind()

	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmit, tracer.String(tracer.AttrKind, string(kind)))
	var submitErr error
	defer func() { span.End(submitErr) }()

	payload.Normalize()

	if err := payload.Validate(); err != nil {
		s.metrics.IncrementSubmissions(string(kind), outcomeInvalid)
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeInvalid))
		submitErr = err
		return nil, err
	}

	identity := ratelimit.NormalizeIdentity(payload.Identity())

	// Honeypot hits get a success response with no notification, so the
	// bot cannot tell it was detected.
	if trap, ok := payload.(models.Honeypot); ok && trap.Trapped() {
		s.logger.InfoContext(ctx, "honeypot triggered, dropping submission silently",
			"kind", kind, "client_ip", meta.ClientIP)
		s.metrics.IncrementSubmissions(string(kind), outcomeTrapped)
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeTrapped))
		return &Result{Email: identity}, nil
	}

	if err := s.verifyCaptcha(ctx, payload, meta); err != nil {
		s.metrics.IncrementSubmissions(string(kind), outcomeCaptchaFail)
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeCaptchaFail))
		submitErr = err
		return nil, err
	}

	if err := s.checkRateLimit(ctx, kind, identity); err != nil {
		s.metrics.IncrementSubmissions(string(kind), outcomeRateLimited)
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeRateLimited))
		submitErr = err
		return nil, err
	}

	if unsub, ok := payload.(*models.UnsubscribeRequest); ok {
		if err := s.verifyUnsubscribeToken(unsub); err != nil {
			s.metrics.IncrementSubmissions(string(kind), outcomeInvalid)
			span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeInvalid))
			submitErr = err
			return nil, err
		}
	}

	text, err := notify.Format(s.now(), payload, notify.DeviceSummary(meta.UserAgent))
	if err != nil {
		submitErr = err
		return nil, err
	}

	if err := s.dispatch(ctx, kind, text); err != nil {
		s.metrics.IncrementSubmissions(string(kind), outcomeDispatchErr)
		span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeDispatchErr))
		submitErr = err
		return nil, err
	}

	s.metrics.IncrementSubmissions(string(kind), outcomeAccepted)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcomeAccepted))
	s.logger.InfoContext(ctx, "submission accepted", "kind", kind)

	result := &Result{Email: identity}
	if kind == models.KindSubscribe && s.tokens != nil {
		signed, err := s.tokens.Mint(identity)
		if err != nil {
			// The capture itself succeeded; the caller just loses the
			// ready-made opt-out link.
			s.logger.ErrorContext(ctx, "failed to mint unsubscribe token", "error", err)
		} else {
			result.UnsubscribeToken = signed
		}
	}
	return result, nil
}

func (s *Service) verifyCaptcha(ctx context.Context, payload models.Payload, meta Meta) error {
	if !payload.Kind().RequiresCaptcha() {
		return nil
	}
	if s.verifier == nil {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanCaptchaVerify)
	result, err := s.verifier.Verify(ctx, payload.CaptchaToken(), meta.ClientIP)
	span.SetAttributes(tracer.Bool(tracer.AttrCaptchaPass, err == nil))
	span.End(err)

	if err != nil {
		s.metrics.IncrementCaptchaVerifications("fail")
		codes := []string(nil)
		if result != nil {
			codes = result.ErrorCodes
		}
		s.logger.WarnContext(ctx, "captcha verification rejected",
			"kind", payload.Kind(), "error_codes", codes)
		return err
	}
	s.metrics.IncrementCaptchaVerifications("pass")
	return nil
}

// checkRateLimit fails open on store errors: a broken counter backend is
// an availability problem, not a reason to reject submissions.
func (s *Service) checkRateLimit(ctx context.Context, kind models.Kind, identity string) error {
	key := string(kind) + ":" + identity

	ctx, span := s.tracer.Start(ctx, tracer.SpanRateLimitCheck)
	decision, err := s.limiter.Allow(ctx, key)
	if err != nil {
		span.End(err)
		s.logger.ErrorContext(ctx, "rate limit store failed, allowing submission",
			"kind", kind, "error", err)
		return nil
	}
	span.SetAttributes(
		tracer.Bool(tracer.AttrRateAllowed, decision.Allowed),
		tracer.Int64(tracer.AttrRemaining, int64(decision.Remaining)),
	)
	span.End(nil)

	if !decision.Allowed {
		s.metrics.IncrementRateLimited(string(kind))
		s.logger.InfoContext(ctx, "submission rate limited",
			"kind", kind, "retry_after_seconds", decision.RetryAfter)
		return dErrors.New(dErrors.CodeRateLimited, "Too many submissions. Please try again later.")
	}
	return nil
}

func (s *Service) verifyUnsubscribeToken(req *models.UnsubscribeRequest) error {
	if s.tokens == nil {
		return dErrors.New(dErrors.CodeConfig, "unsubscribe token verification is not configured")
	}
	return s.tokens.Verify(req.Token, req.Email)
}

func (s *Service) dispatch(ctx context.Context, kind models.Kind, text string) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDispatch,
		tracer.Bool(tracer.AttrAsync, kind.FireAndForget()))

	if kind.FireAndForget() {
		s.dispatcher.DispatchAsync(text)
		span.End(nil)
		return nil
	}

	start := s.now()
	err := s.dispatcher.Dispatch(ctx, text)
	s.metrics.ObserveDispatchLatency(time.Since(start).Seconds())
	span.End(err)

	if err != nil {
		s.metrics.IncrementDispatchFailures()
		return err
	}
	return nil
}
