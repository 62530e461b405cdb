package channel

import (
	"context"
	"fmt"
	"html"
	"strings"

	gomail "gopkg.in/gomail.v2"

	"github.com/meridianlabs/site-api/internal/config"
	"github.com/meridianlabs/site-api/internal/model"
)

// dialer is the subset of gomail.Dialer the channel needs, split out so
// tests can substitute a fake.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPChannel delivers submissions as plain email over an authenticated
// SMTP connection.
type SMTPChannel struct {
	cfg     config.SMTPConfig
	contact config.ContactConfig
	dialer  dialer
}

func NewSMTPChannel(cfg config.SMTPConfig, contact config.ContactConfig) *SMTPChannel {
	c := &SMTPChannel{cfg: cfg, contact: contact}
	if c.configured() {
		c.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return c
}

func (c *SMTPChannel) Name() string { return NameSMTP }

func (c *SMTPChannel) configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

func (c *SMTPChannel) Available() bool {
	return c.configured() && c.contact.ToAddress != ""
}

func (c *SMTPChannel) Deliver(ctx context.Context, submission *model.Submission) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "context cancelled", Err: err}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.contact.FromAddress)
	m.SetHeader("To", c.contact.ToAddress)
	m.SetHeader("Reply-To", submission.Email)
	m.SetHeader("Subject", Subject(submission))
	m.SetBody("text/plain", TextBody(submission))
	m.AddAlternative("text/html", htmlBody(submission))

	// gomail sets no socket timeouts, so the send runs in a goroutine
	// and the context deadline decides when to give up on it.
	errc := make(chan error, 1)
	go func() {
		errc <- c.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return nil, &Error{Channel: c.Name(), Reason: "smtp send timed out", Err: ctx.Err()}
	case err := <-errc:
		if err != nil {
			return nil, &Error{Channel: c.Name(), Reason: "smtp send failed", Err: err}
		}
	}

	return &Receipt{Channel: c.Name()}, nil
}

// Subject builds the notification subject line for a submission.
func Subject(s *model.Submission) string {
	switch s.Kind {
	case model.KindWelcomeNotice:
		return fmt.Sprintf("New signup: %s", s.FullName())
	default:
		return fmt.Sprintf("New contact form submission from %s", s.FullName())
	}
}

// TextBody renders the submission as a plain-text email body, one field
// per line in form order, skipping blanks.
func TextBody(s *model.Submission) string {
	var b strings.Builder
	fields := s.Fields()
	for _, name := range model.FieldOrder {
		value := fields[name]
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", fieldLabel(name), value)
	}
	return b.String()
}

// htmlBody renders the submission as an HTML table. Field values are
// visitor-supplied and must be escaped before they reach markup.
func htmlBody(s *model.Submission) string {
	var b strings.Builder
	b.WriteString("<h2>" + html.EscapeString(Subject(s)) + "</h2><table>")
	fields := s.Fields()
	for _, name := range model.FieldOrder {
		value := fields[name]
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>", fieldLabel(name), html.EscapeString(value))
	}
	b.WriteString("</table>")
	return b.String()
}

func fieldLabel(name string) string {
	switch name {
	case model.FieldFirstName:
		return "First name"
	case model.FieldLastName:
		return "Last name"
	case model.FieldEmail:
		return "Email"
	case model.FieldCompany:
		return "Company"
	case model.FieldService:
		return "Service"
	case model.FieldBudget:
		return "Budget"
	case model.FieldMessage:
		return "Message"
	default:
		return name
	}
}
