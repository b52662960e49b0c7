package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/sira_platform/internal/logging"
)

func TestWriteErrorResponseCarriesTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(logging.WithTraceID(req.Context(), "trace-1"))
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, req, http.StatusNotFound, "NOT_FOUND", "Alert not found", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Alert not found", body.Detail)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "trace-1", body.TraceID)
}

func TestUnauthorizedSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	Unauthorized(rec, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rec.Body.String(), "Not authenticated")
}
