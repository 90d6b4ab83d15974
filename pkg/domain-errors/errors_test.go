package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: these are the core error primitives used at every trust
// boundary of the pipeline. Unit tests pin invariants like "wrapped domain
// errors preserve the original code" and "errors.Is matches by code".
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeRateLimited, Message: "too many requests"}
		s.Equal("too many requests", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeRateLimited}
		s.Equal("rate_limited", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("connection refused")
	err := Wrap(inner, CodeDispatch, "telegram send failed")
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	err := New(CodeCaptchaExpired, "token already used")
	s.ErrorIs(err, &Error{Code: CodeCaptchaExpired})
	s.NotErrorIs(err, &Error{Code: CodeCaptchaFailed})
}

func (s *DomainErrorsSuite) TestWrapPreservesOriginalCode() {
	inner := New(CodeCaptchaRequired, "missing token")
	err := Wrap(inner, CodeInternal, "captcha step failed")

	var de *Error
	s.Require().ErrorAs(err, &de)
	s.Equal(CodeCaptchaRequired, de.Code)
	s.Equal("captcha step failed", de.Message)
}

func (s *DomainErrorsSuite) TestHasCode() {
	err := Wrap(New(CodeValidation, "message too short"), CodeInternal, "rejected")
	s.True(HasCode(err, CodeValidation))
	s.False(HasCode(err, CodeInternal))
	s.False(HasCode(errors.New("plain"), CodeValidation))
}
