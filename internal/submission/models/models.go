// Package models defines the typed payload for each form the marketing
// site exposes. One concrete type per kind keeps validation and
// notification formatting exhaustively matched at compile time instead of
// funneling everything through a loose map.
package models

import (
	"strings"

	dErrors "haulready/pkg/domain-errors"
	"haulready/pkg/validation"
)

// Kind identifies a submission form.
type Kind string

const (
	KindContact     Kind = "contact"
	KindDemo        Kind = "demo_request"
	KindJob         Kind = "job_application"
	KindInvite      Kind = "invite"
	KindDeletion    Kind = "account_deletion"
	KindSubscribe   Kind = "email_capture"
	KindUnsubscribe Kind = "unsubscribe"
)

// RequiresCaptcha reports whether the kind runs the Turnstile step.
// Anonymous email capture and unsubscribe skip it: they carry a single
// email field and are already throttled per identity.
func (k Kind) RequiresCaptcha() bool {
	switch k {
	case KindSubscribe, KindUnsubscribe:
		return false
	}
	return true
}

// FireAndForget reports whether dispatch failures are logged instead of
// surfaced to the caller.
func (k Kind) FireAndForget() bool {
	switch k {
	case KindSubscribe, KindUnsubscribe:
		return true
	}
	return false
}

// Payload is the contract every form type satisfies. Normalize must be
// called before Validate and Identity.
type Payload interface {
	Kind() Kind
	// Identity returns the normalized value keying rate-limit state.
	Identity() string
	// CaptchaToken returns the client-supplied challenge token, empty for
	// kinds that skip the CAPTCHA step.
	CaptchaToken() string
	Normalize()
	Validate() error
}

// Honeypot is implemented by forms carrying a hidden trap field that
// humans never fill.
type Honeypot interface {
	Trapped() bool
}

// validateEmail maps the email field's own violations to their dedicated
// codes so the front end can highlight the field precisely.
func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return dErrors.New(dErrors.CodeMissingEmail, "Email is required")
	}
	if !validation.IsValidEmail(email) {
		return dErrors.New(dErrors.CodeInvalidEmail, "Please enter a valid email address")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ContactForm is a general inquiry from the marketing site.
type ContactForm struct {
	Name    string `json:"name" validate:"required,notblank"`
	Email   string `json:"email"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Company string `json:"company"`
	Message string `json:"message" validate:"required,min=10"`

	// Website is a hidden honeypot input; a non-empty value means a bot.
	Website string `json:"website"`

	TurnstileToken string `json:"turnstileToken"`
}

func (f *ContactForm) Kind() Kind           { return KindContact }
func (f *ContactForm) Identity() string     { return f.Email }
func (f *ContactForm) CaptchaToken() string { return f.TurnstileToken }
func (f *ContactForm) Trapped() bool        { return strings.TrimSpace(f.Website) != "" }

func (f *ContactForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = normalizeEmail(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Company = strings.TrimSpace(f.Company)
	f.Message = strings.TrimSpace(f.Message)
}

func (f *ContactForm) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	return validation.Validate(f)
}

// CompanySizes enumerates the fleet-size options the demo form offers.
var CompanySizes = []string{"1-5", "6-20", "21-50", "51-100", "100+"}

// DemoRequest asks for a guided product demo.
type DemoRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Email       string `json:"email"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Company     string `json:"company" validate:"required,notblank"`
	CompanySize string `json:"companySize"`
	Message     string `json:"message"`

	Website string `json:"website"`

	TurnstileToken string `json:"turnstileToken"`
}

func (f *DemoRequest) Kind() Kind           { return KindDemo }
func (f *DemoRequest) Identity() string     { return f.Email }
func (f *DemoRequest) CaptchaToken() string { return f.TurnstileToken }
func (f *DemoRequest) Trapped() bool        { return strings.TrimSpace(f.Website) != "" }

func (f *DemoRequest) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = normalizeEmail(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Company = strings.TrimSpace(f.Company)
	f.CompanySize = strings.TrimSpace(f.CompanySize)
	f.Message = strings.TrimSpace(f.Message)
}

func (f *DemoRequest) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if f.CompanySize == "" {
		return dErrors.New(dErrors.CodeValidation, "Company size is required")
	}
	if !validSize(f.CompanySize) {
		return dErrors.New(dErrors.CodeValidation, "Invalid company size selection")
	}
	return validation.Validate(f)
}

func validSize(size string) bool {
	for _, s := range CompanySizes {
		if size == s {
			return true
		}
	}
	return false
}

// JobApplication is a careers-page application.
type JobApplication struct {
	Name        string `json:"name" validate:"required,notblank"`
	Email       string `json:"email"`
	Phone       string `json:"phone" validate:"required,phone"`
	Position    string `json:"position" validate:"required,notblank"`
	ResumeURL   string `json:"resumeUrl" validate:"required,abs_url"`
	CoverLetter string `json:"coverLetter" validate:"required,min=50"`

	TurnstileToken string `json:"turnstileToken"`
}

func (f *JobApplication) Kind() Kind           { return KindJob }
func (f *JobApplication) Identity() string     { return f.Email }
func (f *JobApplication) CaptchaToken() string { return f.TurnstileToken }

func (f *JobApplication) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = normalizeEmail(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Position = strings.TrimSpace(f.Position)
	f.ResumeURL = strings.TrimSpace(f.ResumeURL)
	f.CoverLetter = strings.TrimSpace(f.CoverLetter)
}

func (f *JobApplication) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	return validation.Validate(f)
}

// InviteRequest asks to invite a teammate to an existing workspace.
type InviteRequest struct {
	InviterName  string `json:"inviterName" validate:"required,notblank"`
	InviterEmail string `json:"inviterEmail" validate:"required,email_shape"`
	InviteeEmail string `json:"inviteeEmail"`
	Company      string `json:"company"`
	Role         string `json:"role"`

	TurnstileToken string `json:"turnstileToken"`
}

func (f *InviteRequest) Kind() Kind           { return KindInvite }
func (f *InviteRequest) Identity() string     { return f.InviterEmail }
func (f *InviteRequest) CaptchaToken() string { return f.TurnstileToken }

func (f *InviteRequest) Normalize() {
	f.InviterName = strings.TrimSpace(f.InviterName)
	f.InviterEmail = normalizeEmail(f.InviterEmail)
	f.InviteeEmail = normalizeEmail(f.InviteeEmail)
	f.Company = strings.TrimSpace(f.Company)
	f.Role = strings.TrimSpace(f.Role)
}

func (f *InviteRequest) Validate() error {
	if err := validateEmail(f.InviteeEmail); err != nil {
		return err
	}
	return validation.Validate(f)
}

// AccountDeletionRequest asks for an account and its data to be removed.
type AccountDeletionRequest struct {
	Email   string `json:"email"`
	Reason  string `json:"reason"`
	Confirm bool   `json:"confirm"`

	TurnstileToken string `json:"turnstileToken"`
}

func (f *AccountDeletionRequest) Kind() Kind           { return KindDeletion }
func (f *AccountDeletionRequest) Identity() string     { return f.Email }
func (f *AccountDeletionRequest) CaptchaToken() string { return f.TurnstileToken }

func (f *AccountDeletionRequest) Normalize() {
	f.Email = normalizeEmail(f.Email)
	f.Reason = strings.TrimSpace(f.Reason)
}

func (f *AccountDeletionRequest) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if !f.Confirm {
		return dErrors.New(dErrors.CodeValidation, "Deletion must be explicitly confirmed")
	}
	return nil
}

// SubscribeRequest captures an email for the newsletter. Anonymous and
// low-priority: its notification is fire-and-forget.
type SubscribeRequest struct {
	Email string `json:"email"`
}

func (f *SubscribeRequest) Kind() Kind           { return KindSubscribe }
func (f *SubscribeRequest) Identity() string     { return f.Email }
func (f *SubscribeRequest) CaptchaToken() string { return "" }

func (f *SubscribeRequest) Normalize() {
	f.Email = normalizeEmail(f.Email)
}

func (f *SubscribeRequest) Validate() error {
	return validateEmail(f.Email)
}

// UnsubscribeRequest removes an email from the newsletter. The token is
// the signed value minted at capture time; it is verified by the service,
// not here, because verification needs the signing key.
type UnsubscribeRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (f *UnsubscribeRequest) Kind() Kind           { return KindUnsubscribe }
func (f *UnsubscribeRequest) Identity() string     { return f.Email }
func (f *UnsubscribeRequest) CaptchaToken() string { return "" }

func (f *UnsubscribeRequest) Normalize() {
	f.Email = normalizeEmail(f.Email)
	f.Token = strings.TrimSpace(f.Token)
}

func (f *UnsubscribeRequest) Validate() error {
	if err := validateEmail(f.Email); err != nil {
		return err
	}
	if f.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "Unsubscribe token is required")
	}
	return nil
}
