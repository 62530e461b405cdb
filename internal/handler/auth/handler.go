package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/meridianlabs/site-api/internal/handler"
	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/service/auth"
)

type Handler struct {
	svc auth.Service
}

func NewHandler(svc auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
		group.POST("/refresh", h.RefreshToken)
		group.POST("/logout", h.Logout)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("registration failed"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(tokens))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrAccountLocked) {
			c.JSON(http.StatusTooManyRequests, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid credentials"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
		return
	}

	c.JSON(http.StatusOK, &handler.Response{Success: true, Message: "logged out successfully"})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid refresh token"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}
