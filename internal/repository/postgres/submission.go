package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/repository"
)

const defaultListLimit = 50

type submissionRepository struct {
	BaseRepository
}

func NewSubmissionRepository(base BaseRepository) repository.SubmissionRepository {
	return &submissionRepository{base}
}

func (r *submissionRepository) Create(ctx context.Context, submission *model.Submission) (err error) {
	start := time.Now()
	defer func() { r.track("submission_create", start, err) }()

	if submission == nil {
		return fmt.Errorf("submission cannot be nil")
	}

	query := `
		INSERT INTO submissions (
			id, kind, first_name, last_name, email, company, service,
			budget, message, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	submission.ID = uuid.New()
	submission.Status = model.StatusPending
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = submission.CreatedAt

	_, err = r.db.ExecContext(ctx, query,
		submission.ID,
		submission.Kind,
		submission.FirstName,
		submission.LastName,
		submission.Email,
		submission.Company,
		submission.Service,
		submission.Budget,
		submission.Message,
		submission.Status,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// UpdateStatus moves a pending record to a terminal status. The WHERE
// clause only matches pending rows, so a second call cannot overwrite an
// earlier terminal status.
func (r *submissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus, via, note string) (err error) {
	start := time.Now()
	defer func() { r.track("submission_update_status", start, err) }()

	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	query := `
		UPDATE submissions
		SET status = $1, delivered_via = $2, status_note = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, status, via, note, id)
	if err != nil {
		return fmt.Errorf("failed to update submission status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		existing, getErr := r.Get(ctx, id)
		if getErr != nil {
			return fmt.Errorf("submission not found: %w", getErr)
		}
		if existing.Status.IsTerminal() {
			return repository.ErrTerminalStatus
		}
		return fmt.Errorf("submission %s not updated", id)
	}

	return nil
}

func (r *submissionRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Submission, err error) {
	start := time.Now()
	defer func() { r.track("submission_get", start, err) }()

	query := `SELECT * FROM submissions WHERE id = $1`

	var submission model.Submission
	if err = r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter *model.SubmissionFilter) (_ []*model.Submission, err error) {
	start := time.Now()
	defer func() { r.track("submission_list", start, err) }()

	if filter == nil {
		filter = &model.SubmissionFilter{}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var submissions []*model.Submission
	if filter.Kind != "" {
		query := `
			SELECT * FROM submissions
			WHERE kind = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		err = r.db.SelectContext(ctx, &submissions, query, filter.Kind, limit, filter.Offset)
	} else {
		query := `
			SELECT * FROM submissions
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`
		err = r.db.SelectContext(ctx, &submissions, query, limit, filter.Offset)
	}
	if err == sql.ErrNoRows {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, nil
}

func (r *submissionRepository) MarkStalePending(ctx context.Context, cutoff time.Time, note string) (_ int64, err error) {
	start := time.Now()
	defer func() { r.track("submission_mark_stale", start, err) }()

	query := `
		UPDATE submissions
		SET status = 'failed', status_note = $1, updated_at = NOW()
		WHERE status = 'pending' AND created_at < $2
	`

	result, err := r.db.ExecContext(ctx, query, note, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale submissions: %w", err)
	}

	return result.RowsAffected()
}
