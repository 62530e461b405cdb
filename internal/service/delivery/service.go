package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridianlabs/site-api/internal/channel"
	"github.com/meridianlabs/site-api/internal/config"
	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/repository"
	apperror "github.com/meridianlabs/site-api/pkg/errors"
	"github.com/meridianlabs/site-api/pkg/logger"
	"github.com/meridianlabs/site-api/pkg/metrics"
)

// Outcome is what the HTTP boundary reports back to the visitor after a
// delivery run. Delivered reports truthfully whether any channel got the
// message out; ActionURL is set when the visitor has to send it
// themselves.
type Outcome struct {
	SubmissionID string                 `json:"submission_id"`
	Status       model.SubmissionStatus `json:"status"`
	Channel      string                 `json:"channel,omitempty"`
	Message      string                 `json:"message"`
	ActionURL    string                 `json:"action_url,omitempty"`
}

// Delivered reports whether the submission reached the site owners
// without manual help.
func (o *Outcome) Delivered() bool {
	return o.Status == model.StatusDelivered
}

type Service interface {
	// Submit persists the submission, walks the channel chain and
	// records exactly one terminal status. An error is returned only
	// when the record could not be persisted; delivery failure is a
	// normal Outcome.
	Submit(ctx context.Context, submission *model.Submission) (*Outcome, error)
	List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error)
}

type service struct {
	repo     repository.SubmissionRepository
	channels []channel.Channel
	cfg      config.DeliveryConfig
	contact  config.ContactConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.SubmissionRepository,
	channels []channel.Channel,
	cfg config.DeliveryConfig,
	contact config.ContactConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		repo:     repo,
		channels: channels,
		cfg:      cfg,
		contact:  contact,
		logger:   logger.WithComponent("delivery"),
		metrics:  m,
	}
}

func (s *service) Submit(ctx context.Context, submission *model.Submission) (*Outcome, error) {
	if err := s.repo.Create(ctx, submission); err != nil {
		s.logger.Error(err, "failed to persist submission")
		return nil, apperror.NewPersistence(err)
	}
	s.metrics.SubmissionsTotal.WithLabelValues(string(submission.Kind)).Inc()

	// The visitor's request may be cancelled mid-delivery; the record
	// must still reach a terminal status, so the attempt chain runs on
	// a detached context bounded only by the per-channel timeout.
	runCtx := context.WithoutCancel(ctx)
	start := time.Now()

	outcome := s.run(runCtx, submission)

	s.metrics.DeliveryOutcomes.WithLabelValues(string(submission.Kind), string(outcome.Status)).Inc()
	s.metrics.DeliveryLatency.WithLabelValues(string(submission.Kind)).Observe(time.Since(start).Seconds())
	return outcome, nil
}

func (s *service) run(ctx context.Context, submission *model.Submission) *Outcome {
	var reasons []string

	for _, ch := range s.channels {
		if !ch.Available() {
			s.metrics.ChannelUnavailable.WithLabelValues(ch.Name()).Inc()
			s.logger.Debug("channel not configured, skipping", "channel", ch.Name())
			continue
		}

		receipt, err := s.attempt(ctx, ch, submission)
		if err != nil {
			s.metrics.DeliveryAttempts.WithLabelValues(ch.Name(), "failure").Inc()
			s.logger.Warn("channel attempt failed",
				"channel", ch.Name(),
				"submission_id", submission.ID.String(),
				"error", err.Error(),
			)
			reasons = append(reasons, err.Error())
			continue
		}

		s.metrics.DeliveryAttempts.WithLabelValues(ch.Name(), "success").Inc()
		return s.settle(ctx, submission, receipt)
	}

	return s.fail(ctx, submission, reasons)
}

func (s *service) attempt(ctx context.Context, ch channel.Channel, submission *model.Submission) (*channel.Receipt, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ChannelTimeout)
	defer cancel()
	return ch.Deliver(attemptCtx, submission)
}

// settle records the terminal status for a successful attempt.
func (s *service) settle(ctx context.Context, submission *model.Submission, receipt *channel.Receipt) *Outcome {
	status := model.StatusDelivered
	note := receipt.MessageID
	if receipt.ManualRequired {
		status = model.StatusManualRequired
		note = receipt.ActionURL
	}

	s.updateStatus(ctx, submission, status, receipt.Channel, note)

	outcome := &Outcome{
		SubmissionID: submission.ID.String(),
		Status:       status,
		Channel:      receipt.Channel,
	}
	if receipt.ManualRequired {
		outcome.Message = "We couldn't send your message automatically. Please use the link below to send it from your own email."
		outcome.ActionURL = receipt.ActionURL
	} else {
		outcome.Message = "Thanks for reaching out. We'll get back to you shortly."
		s.logger.Info("submission delivered",
			"submission_id", submission.ID.String(),
			"channel", receipt.Channel,
		)
	}
	return outcome
}

func (s *service) fail(ctx context.Context, submission *model.Submission, reasons []string) *Outcome {
	note := "no channel available"
	if len(reasons) > 0 {
		note = strings.Join(reasons, "; ")
	}

	s.updateStatus(ctx, submission, model.StatusFailed, "", note)
	s.logger.Error(errors.New(note), "all delivery channels failed",
		"submission_id", submission.ID.String(),
	)

	message := "We couldn't send your message right now."
	if s.contact.DirectAddress != "" {
		message = fmt.Sprintf("We couldn't send your message right now. Please email us directly at %s.", s.contact.DirectAddress)
	}

	return &Outcome{
		SubmissionID: submission.ID.String(),
		Status:       model.StatusFailed,
		Message:      message,
	}
}

func (s *service) updateStatus(ctx context.Context, submission *model.Submission, status model.SubmissionStatus, via, note string) {
	err := s.repo.UpdateStatus(ctx, submission.ID, status, via, note)
	switch {
	case err == nil:
		submission.Status = status
		submission.DeliveredVia = via
		submission.StatusNote = note
	case errors.Is(err, repository.ErrTerminalStatus):
		// Someone else settled the record first; the earlier status wins.
		s.logger.Warn("submission already settled",
			"submission_id", submission.ID.String(),
			"attempted_status", string(status),
		)
	default:
		s.logger.Error(err, "failed to record terminal status",
			"submission_id", submission.ID.String(),
			"status", string(status),
		)
	}
}

func (s *service) List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error) {
	return s.repo.List(ctx, filter)
}
