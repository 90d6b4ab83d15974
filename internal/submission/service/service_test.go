package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"haulready/internal/captcha"
	"haulready/internal/ratelimit"
	"haulready/internal/submission/models"
	"haulready/internal/token"
	dErrors "haulready/pkg/domain-errors"
)

type mockVerifier struct {
	mu     sync.Mutex
	calls  int
	result *captcha.Result
	err    error
}

func (m *mockVerifier) Verify(_ context.Context, _, _ string) (*captcha.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.result, m.err
}

func (m *mockVerifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDispatcher struct {
	mu          sync.Mutex
	sent        []string
	asyncSent   []string
	dispatchErr error
}

func (m *mockDispatcher) Dispatch(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dispatchErr != nil {
		return m.dispatchErr
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockDispatcher) DispatchAsync(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asyncSent = append(m.asyncSent, text)
}

func (m *mockDispatcher) sentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *mockDispatcher) asyncMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.asyncSent...)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, int, time.Duration) (*ratelimit.Decision, error) {
	return nil, errors.New("store down")
}

func (failingStore) Reset(context.Context, string) error { return nil }

type ServiceSuite struct {
	suite.Suite

	verifier   *mockVerifier
	dispatcher *mockDispatcher
	svc        *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.verifier = &mockVerifier{result: &captcha.Result{Success: true}}
	s.dispatcher = &mockDispatcher{}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 3, time.Minute)
	s.svc = New(limiter, s.dispatcher,
		WithVerifier(s.verifier),
		WithTokenManager(token.New("test-signing-key", time.Hour)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ServiceSuite) meta() Meta {
	return Meta{ClientIP: "203.0.113.7", UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"}
}

func contactForm() *models.ContactForm {
	return &models.ContactForm{
		Name:           "Dana Reyes",
		Email:          "dana@fleet.example",
		Message:        "We run 14 trucks and need help with driver files.",
		TurnstileToken: "tok-1",
	}
}

func (s *ServiceSuite) TestContactDispatchesExactlyOnce() {
	result, err := s.svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().NoError(err)
	s.Equal("dana@fleet.example", result.Email)

	sent := s.dispatcher.sentMessages()
	s.Require().Len(sent, 1)
	s.Contains(sent[0], "Dana Reyes")
	s.Contains(sent[0], "dana@fleet.example")
	s.Contains(sent[0], "We run 14 trucks")
	s.Equal(1, s.verifier.callCount())
}

func (s *ServiceSuite) TestValidationFailureSkipsEverything() {
	form := contactForm()
	form.Message = "too short"

	_, err := s.svc.Submit(context.Background(), form, s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.dispatcher.sentMessages())
	s.Zero(s.verifier.callCount())
}

func (s *ServiceSuite) TestDemoInvalidCompanySize() {
	form := &models.DemoRequest{
		Name:           "Dana Reyes",
		Email:          "dana@fleet.example",
		Company:        "Reyes Hauling",
		CompanySize:    "999 trucks",
		TurnstileToken: "tok-1",
	}

	_, err := s.svc.Submit(context.Background(), form, s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "Invalid company size selection")
	s.Empty(s.dispatcher.sentMessages())
}

func (s *ServiceSuite) TestHoneypotDropsSilently() {
	form := contactForm()
	form.Website = "https://spam.example"

	result, err := s.svc.Submit(context.Background(), form, s.meta())
	s.Require().NoError(err)
	s.Equal("dana@fleet.example", result.Email)
	s.Empty(s.dispatcher.sentMessages())
	s.Zero(s.verifier.callCount())
}

func (s *ServiceSuite) TestReplayedCaptchaTokenRejected() {
	s.verifier.result = &captcha.Result{Success: false, ErrorCodes: []string{"timeout-or-duplicate"}}
	s.verifier.err = dErrors.New(dErrors.CodeCaptchaExpired, "Verification challenge expired, please retry")

	_, err := s.svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCaptchaExpired))
	s.Empty(s.dispatcher.sentMessages())
}

func (s *ServiceSuite) TestCaptchaDisabledPassesThrough() {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), 3, time.Minute)
	svc := New(limiter, s.dispatcher, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().NoError(err)
	s.Len(s.dispatcher.sentMessages(), 1)
}

func (s *ServiceSuite) TestFourthSubmissionRateLimited() {
	for i := 0; i < 3; i++ {
		form := &models.JobApplication{
			Name:           "Sam Okafor",
			Email:          "sam@fleet.example",
			Phone:          "555-867-5309",
			Position:       "Dispatcher",
			ResumeURL:      "https://files.example/resume.pdf",
			CoverLetter:    strings.Repeat("I coordinate loads across three states. ", 3),
			TurnstileToken: "tok-1",
		}
		_, err := s.svc.Submit(context.Background(), form, s.meta())
		s.Require().NoError(err, "submission %d should be admitted", i+1)
	}

	form := &models.JobApplication{
		Name:           "Sam Okafor",
		Email:          "sam@fleet.example",
		Phone:          "555-867-5309",
		Position:       "Dispatcher",
		ResumeURL:      "https://files.example/resume.pdf",
		CoverLetter:    strings.Repeat("I coordinate loads across three states. ", 3),
		TurnstileToken: "tok-1",
	}
	_, err := s.svc.Submit(context.Background(), form, s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Len(s.dispatcher.sentMessages(), 3)
}

func (s *ServiceSuite) TestRateLimitScopedPerKind() {
	for i := 0; i < 3; i++ {
		_, err := s.svc.Submit(context.Background(), contactForm(), s.meta())
		s.Require().NoError(err)
	}

	// Same identity on a different form still has a fresh window.
	form := &models.DemoRequest{
		Name:           "Dana Reyes",
		Email:          "dana@fleet.example",
		Company:        "Reyes Hauling",
		CompanySize:    "6-20",
		TurnstileToken: "tok-1",
	}
	_, err := s.svc.Submit(context.Background(), form, s.meta())
	s.NoError(err)
}

func (s *ServiceSuite) TestRateLimitStoreFailureAllows() {
	limiter := ratelimit.NewLimiter(failingStore{}, 3, time.Minute)
	svc := New(limiter, s.dispatcher,
		WithVerifier(s.verifier),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	_, err := svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().NoError(err)
	s.Len(s.dispatcher.sentMessages(), 1)
}

func (s *ServiceSuite) TestDispatchFailureSurfaced() {
	s.dispatcher.dispatchErr = dErrors.New(dErrors.CodeDispatch, "failed to deliver notification")

	_, err := s.svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDispatch))
}

func (s *ServiceSuite) TestSubscribeIsAsyncAndMintsToken() {
	result, err := s.svc.Submit(context.Background(), &models.SubscribeRequest{Email: "News@Fleet.Example"}, s.meta())
	s.Require().NoError(err)
	s.Equal("news@fleet.example", result.Email)
	s.Require().NotEmpty(result.UnsubscribeToken)

	s.Empty(s.dispatcher.sentMessages())
	s.Len(s.dispatcher.asyncMessages(), 1)
	s.Zero(s.verifier.callCount(), "email capture must not run the captcha step")

	mgr := token.New("test-signing-key", time.Hour)
	s.NoError(mgr.Verify(result.UnsubscribeToken, "news@fleet.example"))
}

func (s *ServiceSuite) TestUnsubscribeVerifiesToken() {
	mgr := token.New("test-signing-key", time.Hour)
	signed, err := mgr.Mint("news@fleet.example")
	s.Require().NoError(err)

	_, err = s.svc.Submit(context.Background(), &models.UnsubscribeRequest{
		Email: "news@fleet.example",
		Token: signed,
	}, s.meta())
	s.Require().NoError(err)
	s.Len(s.dispatcher.asyncMessages(), 1)
}

func (s *ServiceSuite) TestUnsubscribeRejectsForgedToken() {
	other := token.New("some-other-key", time.Hour)
	forged, err := other.Mint("news@fleet.example")
	s.Require().NoError(err)

	_, err = s.svc.Submit(context.Background(), &models.UnsubscribeRequest{
		Email: "news@fleet.example",
		Token: forged,
	}, s.meta())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.dispatcher.asyncMessages())
}

func (s *ServiceSuite) TestDeviceSummaryInNotification() {
	_, err := s.svc.Submit(context.Background(), contactForm(), s.meta())
	s.Require().NoError(err)

	sent := s.dispatcher.sentMessages()
	s.Require().Len(sent, 1)
	s.Contains(sent[0], "Chrome")
}
