package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meridianlabs/site-api/internal/handler"
	"github.com/meridianlabs/site-api/internal/repository"
	"github.com/meridianlabs/site-api/pkg/auth"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
)

type AuthMiddleware struct {
	jwt    auth.JWTService
	tokens repository.TokenRepository
}

func NewAuthMiddleware(jwt auth.JWTService, tokens repository.TokenRepository) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, tokens: tokens}
}

// Authenticate verifies the bearer token and rejects revoked tokens.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		if m.tokens != nil {
			revoked, err := m.tokens.IsRevoked(c.Request.Context(), parts[1])
			if err != nil || revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("token revoked"))
				return
			}
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
