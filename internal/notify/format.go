// Package notify turns typed submissions into operator-channel messages and
// delivers them to the Telegram Bot API.
package notify

import (
	"fmt"
	"strings"
	"time"

	"haulready/internal/submission/models"
	dErrors "haulready/pkg/domain-errors"
)

const timestampLayout = "2006-01-02 15:04:05 MST"

// markdownEscaper neutralizes the delimiters Telegram's legacy Markdown
// parser interprets, so user free text cannot corrupt the message or
// inject formatting.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// Escape returns s with Telegram Markdown delimiters escaped.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

// Format renders the operator message for a submission. Pure: the caller
// supplies the timestamp and the already-parsed device summary.
func Format(now time.Time, sub models.Payload, device string) (string, error) {
	var b builder
	switch f := sub.(type) {
	case *models.ContactForm:
		b.title("📬 New Contact Form Submission")
		b.field("Name", f.Name)
		b.field("Email", f.Email)
		b.field("Phone", f.Phone)
		b.field("Company", f.Company)
		b.field("Message", f.Message)
	case *models.DemoRequest:
		b.title("🚚 New Demo Request")
		b.field("Name", f.Name)
		b.field("Email", f.Email)
		b.field("Phone", f.Phone)
		b.field("Company", f.Company)
		b.field("Fleet size", f.CompanySize)
		b.field("Message", f.Message)
	case *models.JobApplication:
		b.title("💼 New Job Application")
		b.field("Name", f.Name)
		b.field("Email", f.Email)
		b.field("Phone", f.Phone)
		b.field("Position", f.Position)
		b.field("Resume", f.ResumeURL)
		b.field("Cover letter", f.CoverLetter)
	case *models.InviteRequest:
		b.title("✉️ New Teammate Invitation")
		b.field("Invited by", f.InviterName)
		b.field("Inviter email", f.InviterEmail)
		b.field("Invitee email", f.InviteeEmail)
		b.field("Company", f.Company)
		b.field("Role", f.Role)
	case *models.AccountDeletionRequest:
		b.title("⚠️ Account Deletion Request")
		b.field("Email", f.Email)
		b.field("Reason", f.Reason)
	case *models.SubscribeRequest:
		b.title("📰 New Newsletter Signup")
		b.field("Email", f.Email)
	case *models.UnsubscribeRequest:
		b.title("🚫 Newsletter Unsubscribe")
		b.field("Email", f.Email)
	default:
		return "", dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no notification template for %T", sub))
	}

	b.field("Submitted", now.Format(timestampLayout))
	b.field("Device", device)
	return b.String(), nil
}

// builder accumulates message lines with consistent labeling.
type builder struct {
	sb strings.Builder
}

func (b *builder) title(s string) {
	b.sb.WriteString("*")
	b.sb.WriteString(s)
	b.sb.WriteString("*\n")
}

// field writes a labeled line. Empty optional values render as
// "Not provided" so the operator can tell an omitted field from a broken
// template.
func (b *builder) field(label, value string) {
	b.sb.WriteString("\n*")
	b.sb.WriteString(label)
	b.sb.WriteString(":* ")
	if strings.TrimSpace(value) == "" {
		b.sb.WriteString("Not provided")
		return
	}
	b.sb.WriteString(Escape(value))
}

func (b *builder) String() string {
	return b.sb.String()
}
