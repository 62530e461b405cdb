package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridianlabs/site-api/internal/model"
)

// ErrTerminalStatus is returned when a status update would overwrite a
// status that is already terminal.
var ErrTerminalStatus = errors.New("submission status is already terminal")

// All repository interfaces in one file
type (
	// SubmissionRepository is the durable, append-only record of inbound
	// submissions and their delivery outcome. Implementations must
	// serialize their own writes; records are never deleted by the
	// delivery path.
	SubmissionRepository interface {
		// Create assigns id, created_at and status=pending, then persists
		// durably before returning.
		Create(ctx context.Context, submission *model.Submission) error
		// UpdateStatus transitions a record to a terminal status. It must
		// be called at most once per id; a second call returns
		// ErrTerminalStatus and leaves the record unchanged.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, via, note string) error
		Get(ctx context.Context, id uuid.UUID) (*model.Submission, error)
		// List returns records newest first.
		List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error)
		// MarkStalePending fails records stuck pending since before cutoff.
		MarkStalePending(ctx context.Context, cutoff time.Time, note string) (int64, error)
	}

	// UserRepository handles site account records.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	// TokenRepository stores short-lived auth tokens (revoked access
	// tokens and refresh grants). Entries expire on their own.
	TokenRepository interface {
		RevokeToken(ctx context.Context, token string, until time.Time) error
		IsRevoked(ctx context.Context, token string) (bool, error)
		StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ValidateRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	}
)
