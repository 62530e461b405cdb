package channel

import (
	"context"
	"fmt"

	"github.com/meridianlabs/site-api/internal/model"
)

// Channel names as recorded in the delivered_via column.
const (
	NameSMTP      = "smtp"
	NameSendGrid  = "sendgrid"
	NameFormRelay = "form_relay"
	NameMailto    = "mailto"
)

// Receipt describes a completed delivery attempt. ManualRequired is set
// by channels that cannot transmit on their own and instead hand the
// caller something to act on (the mailto fallback).
type Receipt struct {
	Channel        string
	MessageID      string
	ManualRequired bool
	// ActionURL carries the pre-composed mailto link when
	// ManualRequired is true.
	ActionURL string
}

// Error reports why a single channel attempt failed. The orchestrator
// collects these and moves on to the next channel.
type Error struct {
	Channel string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Channel, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Channel, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Channel is one way of getting a submission in front of the site
// owners. Channels are tried in configured order; the first success
// wins.
type Channel interface {
	Name() string
	// Available reports whether the channel is configured well enough
	// to attempt a delivery. Unavailable channels are skipped without
	// counting as failures.
	Available() bool
	Deliver(ctx context.Context, submission *model.Submission) (*Receipt, error)
}
