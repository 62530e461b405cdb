package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridianlabs/site-api/internal/handler"
	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/service/contact"
	apperror "github.com/meridianlabs/site-api/pkg/errors"
	"github.com/meridianlabs/site-api/pkg/logger"
)

// FailureStatusModeError makes a total delivery failure answer 500
// instead of the default 200 with success=false.
const FailureStatusModeError = "error"

type Handler struct {
	svc         contact.Service
	failureMode string
	logger      *logger.Logger
}

func NewHandler(svc contact.Service, failureMode string, logger *logger.Logger) *Handler {
	return &Handler{
		svc:         svc,
		failureMode: failureMode,
		logger:      logger.WithComponent("contact_handler"),
	}
}

// RegisterRoutes wires the public submission endpoint and the protected
// listing endpoint.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/contact", h.Submit)
	protected.GET("/contact", h.List)
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid request body"))
		return
	}

	outcome, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := &handler.Response{
		Success: outcome.Delivered(),
		Message: outcome.Message,
		Data:    outcome,
	}

	status := http.StatusOK
	if outcome.Status == model.StatusFailed && h.failureMode == FailureStatusModeError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}

func (h *Handler) List(c *gin.Context) {
	var filter model.SubmissionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid query parameters"))
		return
	}

	submissions, err := h.svc.List(c.Request.Context(), &filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(submissions))
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperror.AppError); ok {
		c.JSON(appErr.StatusCode(), handler.NewErrorResponse(appErr.Message))
		return
	}
	h.logger.Error(err, "unhandled error")
	c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
}
