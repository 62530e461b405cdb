package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meridianlabs/site-api/internal/config"
	"github.com/meridianlabs/site-api/internal/model"
)

const sendGridAPIBase = "https://api.sendgrid.com"

// SendGridChannel delivers submissions through the SendGrid v3 Mail Send
// API. Calling the HTTP API directly keeps the dependency surface small
// and makes the channel trivial to test with httptest.
type SendGridChannel struct {
	cfg     config.SendGridConfig
	contact config.ContactConfig
	client  *http.Client
	baseURL string
}

func NewSendGridChannel(cfg config.SendGridConfig, contact config.ContactConfig) *SendGridChannel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = sendGridAPIBase
	}
	return &SendGridChannel{
		cfg:     cfg,
		contact: contact,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *SendGridChannel) Name() string { return NameSendGrid }

func (c *SendGridChannel) Available() bool {
	return c.cfg.APIKey != "" && c.contact.ToAddress != ""
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (c *SendGridChannel) Deliver(ctx context.Context, submission *model.Submission) (*Receipt, error) {
	payload := sgMailPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: c.contact.ToAddress}}}},
		From:             sgAddress{Email: c.contact.FromAddress},
		ReplyTo:          &sgAddress{Email: submission.Email, Name: submission.FullName()},
		Subject:          Subject(submission),
		Content:          []sgContent{{Type: "text/plain", Value: TextBody(submission)}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "failed to marshal payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Channel: c.Name(),
			Reason:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	return &Receipt{
		Channel:   c.Name(),
		MessageID: resp.Header.Get("X-Message-Id"),
	}, nil
}
