package channel

import (
	"context"
	"net/url"

	"github.com/meridianlabs/site-api/internal/config"
	"github.com/meridianlabs/site-api/internal/model"
)

// MailtoChannel is the terminal fallback. It never transmits anything;
// it composes a mailto: link carrying the submission so the visitor can
// send the message from their own mail client. It always succeeds, and
// the receipt is flagged ManualRequired so the record lands in
// manual_required rather than delivered.
type MailtoChannel struct {
	contact config.ContactConfig
}

func NewMailtoChannel(contact config.ContactConfig) *MailtoChannel {
	return &MailtoChannel{contact: contact}
}

func (c *MailtoChannel) Name() string { return NameMailto }

func (c *MailtoChannel) Available() bool {
	return c.address() != ""
}

func (c *MailtoChannel) address() string {
	if c.contact.DirectAddress != "" {
		return c.contact.DirectAddress
	}
	return c.contact.ToAddress
}

func (c *MailtoChannel) Deliver(_ context.Context, submission *model.Submission) (*Receipt, error) {
	values := url.Values{}
	values.Set("subject", Subject(submission))
	values.Set("body", TextBody(submission))

	link := url.URL{
		Scheme:   "mailto",
		Opaque:   c.address(),
		RawQuery: values.Encode(),
	}

	return &Receipt{
		Channel:        c.Name(),
		ManualRequired: true,
		ActionURL:      link.String(),
	}, nil
}
