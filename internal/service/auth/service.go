package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/repository"
	"github.com/meridianlabs/site-api/internal/service/delivery"
	"github.com/meridianlabs/site-api/internal/validation"
	pkgauth "github.com/meridianlabs/site-api/pkg/auth"
	"github.com/meridianlabs/site-api/pkg/logger"
	"github.com/meridianlabs/site-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutWindow    = 15 * time.Minute
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Logout(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
}

type service struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	jwt      pkgauth.JWTService
	hasher   security.PasswordHasher
	gate     *validation.Gate
	delivery delivery.Service
	logger   *logger.Logger
}

func NewService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	jwt pkgauth.JWTService,
	hasher security.PasswordHasher,
	gate *validation.Gate,
	deliverySvc delivery.Service,
	logger *logger.Logger,
) Service {
	return &service{
		users:    users,
		tokens:   tokens,
		jwt:      jwt,
		hasher:   hasher,
		gate:     gate,
		delivery: deliverySvc,
		logger:   logger.WithComponent("auth"),
	}
}

func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, _ := s.users.GetByEmail(ctx, email); existing != nil {
		return nil, model.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Status:       model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	s.notifySignup(user)

	return s.issueTokens(ctx, user)
}

// notifySignup sends the owners a welcome notice for a fresh signup. It
// runs in the background and its outcome never affects registration;
// failures end up recorded on the submission like any other delivery.
func (s *service) notifySignup(user *model.User) {
	fields, err := s.gate.Validate(model.KindWelcomeNotice, map[string]string{
		model.FieldFirstName: user.FirstName,
		model.FieldLastName:  user.LastName,
		model.FieldEmail:     user.Email,
	})
	if err != nil {
		s.logger.Warn("welcome notice skipped", "error", err.Error())
		return
	}

	go func() {
		if _, err := s.delivery.Submit(context.Background(), model.NewSubmission(model.KindWelcomeNotice, fields)); err != nil {
			s.logger.Error(err, "welcome notice submission failed", "user_id", user.ID.String())
		}
	}()
}

func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if s.isLockedOut(user) {
		return nil, model.ErrAccountLocked
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.recordFailedAttempt(ctx, user)
		return nil, model.ErrInvalidCredentials
	}

	now := time.Now()
	user.LoginAttempts = 0
	user.LastLoginAt = &now
	user.Status = model.UserStatusActive
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login", "user_id", user.ID.String())
	}

	return s.issueTokens(ctx, user)
}

func (s *service) isLockedOut(user *model.User) bool {
	if user.LoginAttempts < maxLoginAttempts {
		return false
	}
	return time.Since(user.LastLoginAttempt) < lockoutWindow
}

func (s *service) recordFailedAttempt(ctx context.Context, user *model.User) {
	user.LoginAttempts++
	user.LastLoginAttempt = time.Now()
	if user.LoginAttempts >= maxLoginAttempts {
		user.Status = model.UserStatusLocked
	}
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login attempt", "user_id", user.ID.String())
	}
}

func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return model.ErrInvalidCredentials
	}
	return s.tokens.RevokeToken(ctx, token, claims.ExpiresAt.Time)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := s.tokens.ValidateRefreshToken(ctx, claims.UserID, refreshToken); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *service) issueTokens(ctx context.Context, user *model.User) (*model.TokenResponse, error) {
	access, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.tokens.StoreRefreshToken(ctx, user.ID, refresh, time.Now().Add(7*24*time.Hour)); err != nil {
		s.logger.Error(err, "failed to store refresh token", "user_id", user.ID.String())
	}

	return &model.TokenResponse{
		User:         user.Public(),
		Token:        access,
		RefreshToken: refresh,
		Expires:      expiresAt,
	}, nil
}
