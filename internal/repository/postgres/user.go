package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (err error) {
	start := time.Now()
	defer func() { r.track("user_create", start, err) }()

	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FirstName,
			user.LastName,
			user.Status,
			user.CreatedAt,
			user.UpdatedAt,
		)
		return err
	})
	return err
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.User, err error) {
	start := time.Now()
	defer func() { r.track("user_get", start, err) }()

	query := `
		SELECT * FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var user model.User
	if err = r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (_ *model.User, err error) {
	start := time.Now()
	defer func() { r.track("user_get_by_email", start, err) }()

	query := `
		SELECT * FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`

	var user model.User
	if err = r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) (err error) {
	start := time.Now()
	defer func() { r.track("user_update", start, err) }()

	query := `
		UPDATE users SET
			email = $1,
			password_hash = $2,
			first_name = $3,
			last_name = $4,
			status = $5,
			last_login_at = $6,
			login_attempts = $7,
			last_login_attempt = $8,
			updated_at = $9
		WHERE id = $10 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Status,
		user.LastLoginAt,
		user.LoginAttempts,
		user.LastLoginAttempt,
		time.Now(),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}
