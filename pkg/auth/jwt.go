package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/meridianlabs/site-api/internal/model"
)

type JWTService interface {
	GenerateAccessToken(user *model.User) (string, time.Time, error)
	GenerateRefreshToken(user *model.User) (string, error)
	ValidateToken(token string) (*model.TokenClaims, error)
	ValidateRefreshToken(token string) (*model.TokenClaims, error)
}

// Config holds the signing material for both token families.
type Config struct {
	Secret        string
	RefreshSecret string
	Expiry        time.Duration
	RefreshExpiry time.Duration
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) JWTService {
	if cfg.Expiry == 0 {
		cfg.Expiry = 24 * time.Hour
	}
	if cfg.RefreshExpiry == 0 {
		cfg.RefreshExpiry = 7 * 24 * time.Hour
	}
	return &jwtService{cfg: cfg}
}

func (s *jwtService) GenerateAccessToken(user *model.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.cfg.Expiry)
	signed, err := s.sign(user, expiresAt, s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtService) GenerateRefreshToken(user *model.User) (string, error) {
	signed, err := s.sign(user, time.Now().Add(s.cfg.RefreshExpiry), s.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, s.cfg.Secret)
}

func (s *jwtService) ValidateRefreshToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, s.cfg.RefreshSecret)
}

func (s *jwtService) sign(user *model.User, expiresAt time.Time, secret string) (string, error) {
	claims := &model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.New().String(),
		},
		UserID: user.ID,
		Email:  user.Email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *jwtService) parse(token, secret string) (*model.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &model.TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := parsed.Claims.(*model.TokenClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
