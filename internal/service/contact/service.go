package contact

import (
	"context"
	"errors"

	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/service/delivery"
	"github.com/meridianlabs/site-api/internal/validation"
	apperror "github.com/meridianlabs/site-api/pkg/errors"
	"github.com/meridianlabs/site-api/pkg/logger"
)

// Service is the contact form entry point: it validates raw form fields
// and hands accepted submissions to the delivery pipeline.
type Service interface {
	Submit(ctx context.Context, req *model.ContactRequest) (*delivery.Outcome, error)
	List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error)
}

type service struct {
	gate     *validation.Gate
	delivery delivery.Service
	logger   *logger.Logger
}

func NewService(gate *validation.Gate, deliverySvc delivery.Service, logger *logger.Logger) Service {
	return &service{
		gate:     gate,
		delivery: deliverySvc,
		logger:   logger.WithComponent("contact"),
	}
}

func (s *service) Submit(ctx context.Context, req *model.ContactRequest) (*delivery.Outcome, error) {
	fields, err := s.gate.Validate(model.KindContactMessage, req.Raw())
	if err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			return nil, apperror.NewValidation(vErr.Error(), vErr)
		}
		return nil, apperror.NewBadRequest("invalid submission", err)
	}

	submission := model.NewSubmission(model.KindContactMessage, fields)
	s.logger.Info("contact submission accepted", "email", submission.Email)

	return s.delivery.Submit(ctx, submission)
}

func (s *service) List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error) {
	return s.delivery.List(ctx, filter)
}
