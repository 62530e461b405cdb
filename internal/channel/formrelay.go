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

const formRelayAPIBase = "https://formspree.io"

// FormRelayChannel posts submissions to a hosted form relay, which
// forwards them to the site owners' inbox. It needs no credentials on
// this side, only the relay's form identifier.
type FormRelayChannel struct {
	cfg     config.FormRelayConfig
	client  *http.Client
	baseURL string
}

func NewFormRelayChannel(cfg config.FormRelayConfig) *FormRelayChannel {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = formRelayAPIBase
	}
	return &FormRelayChannel{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *FormRelayChannel) Name() string { return NameFormRelay }

func (c *FormRelayChannel) Available() bool {
	return c.cfg.FormID != ""
}

func (c *FormRelayChannel) Deliver(ctx context.Context, submission *model.Submission) (*Receipt, error) {
	payload := map[string]string{
		"email":    submission.Email,
		"name":     submission.FullName(),
		"_subject": Subject(submission),
		"message":  TextBody(submission),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "failed to marshal payload", Err: err}
	}

	url := fmt.Sprintf("%s/f/%s", c.baseURL, c.cfg.FormID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Channel: c.Name(), Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Channel: c.Name(),
			Reason:  fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	return &Receipt{Channel: c.Name()}, nil
}
