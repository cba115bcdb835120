package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpilot/chatbot/internal/models"
)

func TestWebhookAcksValidUpdate(t *testing.T) {
	f := newFixture(t)
	handler := f.gw.WebhookHandler()

	body, err := json.Marshal(textUpdate(1, 7, 42, "/start"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Len(t, f.sender.messages(), 1)
}

func TestWebhookAcksMalformedBody(t *testing.T) {
	f := newFixture(t)
	handler := f.gw.WebhookHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusOK, rec.Code, "transport must never see a retryable status")
	assert.Empty(t, f.sender.messages())
}

func TestWebhookAcksWhenPipelinePanics(t *testing.T) {
	f := newFixture(t)
	// A nil guard panics on the route path; the recover boundary must
	// still produce an ack.
	f.gw.guard = nil
	f.linkAccount(t, starterRecord(), 7, 42)
	f.clf.decision = models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "weather_check",
		EstimatedCost: 1,
	}

	body, err := json.Marshal(textUpdate(1, 7, 42, "weather in Tokyo"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.gw.WebhookHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
}
