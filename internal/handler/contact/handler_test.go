package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/site-api/internal/handler"
	"github.com/meridianlabs/site-api/internal/middleware"
	"github.com/meridianlabs/site-api/internal/model"
	"github.com/meridianlabs/site-api/internal/service/contact"
	"github.com/meridianlabs/site-api/internal/service/delivery"
	"github.com/meridianlabs/site-api/internal/validation"
	apperror "github.com/meridianlabs/site-api/pkg/errors"
	"github.com/meridianlabs/site-api/pkg/logger"
)

type fakeDelivery struct {
	outcome *delivery.Outcome
	err     error
}

func (d *fakeDelivery) Submit(ctx context.Context, s *model.Submission) (*delivery.Outcome, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := *d.outcome
	return &out, nil
}

func (d *fakeDelivery) List(ctx context.Context, filter *model.SubmissionFilter) ([]*model.Submission, error) {
	return []*model.Submission{}, nil
}

func newTestEngine(del delivery.Service, failureMode string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger(nil)
	svc := contact.NewService(validation.NewGate(), del, log)
	h := NewHandler(svc, failureMode, log)

	engine := gin.New()
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handler.NewErrorResponse("method not allowed"))
	})

	api := engine.Group("/api/v1")
	api.POST("/contact", h.Submit)
	api.GET("/contact", h.List)
	return engine
}

func deliveredOutcome() *delivery.Outcome {
	return &delivery.Outcome{
		SubmissionID: "0c9c3d1e-0000-0000-0000-000000000001",
		Status:       model.StatusDelivered,
		Channel:      "smtp",
		Message:      "Thanks for reaching out. We'll get back to you shortly.",
	}
}

func postContact(engine *gin.Engine, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func validBody() map[string]string {
	return map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      "ada@example.com",
		"message":    "Hello",
	}
}

func TestSubmit_Delivered(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{outcome: deliveredOutcome()}, "ok")

	w := postContact(engine, validBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "Thanks")
}

func TestSubmit_MissingFieldNamesFirstInOrder(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{outcome: deliveredOutcome()}, "ok")

	body := validBody()
	delete(body, "first_name")
	delete(body, "message")

	w := postContact(engine, body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "first_name")
	assert.NotContains(t, resp.Error, "message:")
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{err: apperror.NewPersistence(fmt.Errorf("connection reset"))}, "ok")

	w := postContact(engine, validBody())
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "storage unavailable", resp.Error)
}

func TestSubmit_DeliveryFailedDefaultMode(t *testing.T) {
	failed := &delivery.Outcome{
		SubmissionID: "0c9c3d1e-0000-0000-0000-000000000002",
		Status:       model.StatusFailed,
		Message:      "We couldn't send your message right now. Please email us directly at hello@meridianlabs.io.",
	}
	engine := newTestEngine(&fakeDelivery{outcome: failed}, "ok")

	w := postContact(engine, validBody())
	require.Equal(t, http.StatusOK, w.Code, "default mode keeps HTTP 200 and reports failure in the body")

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "hello@meridianlabs.io")
}

func TestSubmit_DeliveryFailedErrorMode(t *testing.T) {
	failed := &delivery.Outcome{
		SubmissionID: "0c9c3d1e-0000-0000-0000-000000000003",
		Status:       model.StatusFailed,
		Message:      "We couldn't send your message right now.",
	}
	engine := newTestEngine(&fakeDelivery{outcome: failed}, FailureStatusModeError)

	w := postContact(engine, validBody())
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestSubmit_ManualFallbackCarriesActionURL(t *testing.T) {
	manual := &delivery.Outcome{
		SubmissionID: "0c9c3d1e-0000-0000-0000-000000000004",
		Status:       model.StatusManualRequired,
		Channel:      "mailto",
		Message:      "We couldn't send your message automatically. Please use the link below to send it from your own email.",
		ActionURL:    "mailto:hello@meridianlabs.io?subject=hi",
	}
	engine := newTestEngine(&fakeDelivery{outcome: manual}, "ok")

	w := postContact(engine, validBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mailto:hello@meridianlabs.io")
}

func TestContact_PreflightContract(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{outcome: deliveredOutcome()}, "ok")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/contact", nil)
	req.Header.Set("Origin", "https://meridianlabs.io")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Body.String())
}

func TestContact_UnsupportedMethod(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{outcome: deliveredOutcome()}, "ok")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/contact", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSubmit_MalformedJSON(t *testing.T) {
	engine := newTestEngine(&fakeDelivery{outcome: deliveredOutcome()}, "ok")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
