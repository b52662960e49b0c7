package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/R3E-Network/sira_platform/internal/app"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/services/auth"
	"github.com/R3E-Network/sira_platform/internal/logging"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type testServer struct {
	t       *testing.T
	app     *app.Application
	handler http.Handler
	audit   *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, app.Options{})
}

// newTestServerWith is newTestServer with extra application options.
func newTestServerWith(t *testing.T, opts app.Options) *testServer {
	t.Helper()
	opts.Auth = auth.Settings{SecretKey: "test-secret"}
	opts.UploadDir = t.TempDir()
	application, err := app.New(app.Stores{}, opts, logger.Discard())
	require.NoError(t, err)

	sink := &bytes.Buffer{}
	h := NewHandler(application, Options{
		Version:        "test",
		AllowedOrigins: []string{"*"},
		AuditSink:      sink,
		Logger:         logging.FromLogger("test", logger.Discard()),
	})
	return &testServer{t: t, app: application, handler: h, audit: sink}
}

// token creates a user with role and returns an access token for it.
func (s *testServer) token(username, role string) string {
	s.t.Helper()
	u, err := s.app.Auth.CreateUser(context.Background(), auth.Registration{
		Username: username,
		Email:    username + "@sira.test",
		Password: "password123",
		Role:     role,
	})
	require.NoError(s.t, err)
	tok, err := s.app.Auth.IssueAccessToken(u)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["database"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

func TestHealthDegraded(t *testing.T) {
	application, err := app.New(app.Stores{}, app.Options{Auth: auth.Settings{SecretKey: "x"}}, logger.Discard())
	require.NoError(t, err)
	h := NewHandler(application, Options{DB: failingPinger{}, Logger: logging.FromLogger("test", logger.Discard())})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unreachable", body["database"])
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "dockhand",
		"email":    "dockhand@sira.test",
		"password": "password123",
		"role":     roles.Admin,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	decodeBody(t, rec, &created)
	assert.Equal(t, roles.Operator, created["role"], "self registration is always operator")

	form := url.Values{"username": {"dockhand"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login := httptest.NewRecorder()
	s.handler.ServeHTTP(login, req)
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())

	var pair auth.TokenPair
	decodeBody(t, login, &pair)
	require.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, "bearer", pair.TokenType)

	me := s.do(http.MethodGet, "/api/v1/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, me.Code)
	var u map[string]any
	decodeBody(t, me, &u)
	assert.Equal(t, "dockhand", u["username"])

	refreshed := s.do(http.MethodPost, "/api/v1/auth/token/refresh", "", map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusOK, refreshed.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.token("yardboss", roles.Operator)

	rec := s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "yardboss", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "yardboss"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/alerts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(http.MethodGet, "/api/v1/alerts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGating(t *testing.T) {
	s := newTestServer(t)
	operator := s.token("opuser", roles.Operator)
	lead := s.token("lead", roles.SecurityLead)

	alertBody := map[string]any{"severity": "High", "confidence": 0.8, "domain": "terminal", "description": "gate breach"}

	rec := s.do(http.MethodPost, "/api/v1/alerts", operator, alertBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/alerts", lead, alertBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/users", operator, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/audit", lead, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestServer(t)
	lead := s.token("lead", roles.SecurityLead)
	operator := s.token("opuser", roles.Operator)

	rec := s.do(http.MethodPost, "/api/v1/alerts", lead, map[string]any{"severity": "Critical"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/alerts", lead, map[string]any{"severity": "Critical", "confidence": 0.9})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	decodeBody(t, rec, &created)
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec = s.do(http.MethodPost, "/api/v1/alerts/"+id+"/acknowledge", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ack map[string]any
	decodeBody(t, rec, &ack)
	assert.Equal(t, "Alert acknowledged", ack["message"])

	rec = s.do(http.MethodPost, "/api/v1/alerts/"+id+"/resolve", lead, map[string]string{"resolution_notes": "false alarm"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/alerts/stats", operator, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/alerts/999", operator, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCaseCloseAndExport(t *testing.T) {
	s := newTestServer(t)
	lead := s.token("lead", roles.SecurityLead)

	rec := s.do(http.MethodPost, "/api/v1/cases", lead, map[string]any{"title": "Seal tampering", "priority": "high"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	decodeBody(t, rec, &created)
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rec = s.do(http.MethodGet, "/api/v1/cases/"+id+"/export?format=pdf", lead, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(http.MethodGet, "/api/v1/cases/"+id+"/export?format=xml", lead, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/cases/"+id+"/close", lead, map[string]any{"closure_code": "RESOLVED", "resolution_summary": "seal replaced"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed map[string]any
	decodeBody(t, rec, &closed)
	assert.Equal(t, "Case closed successfully", closed["message"])
	assert.Equal(t, created["case_number"], closed["case_number"])
}

func TestPagingValidation(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("opuser", roles.Operator)

	for _, q := range []string{"limit=0", "limit=1001", "skip=-1", "limit=abc"} {
		rec := s.do(http.MethodGet, "/api/v1/movements?"+q, tok, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}
	rec := s.do(http.MethodGet, "/api/v1/movements?skip=0&limit=10", tok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("opuser", roles.Operator)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/movements", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestAnalyticsCalculators(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("opuser", roles.Operator)

	rec := s.do(http.MethodPost, "/api/v1/analytics/volume-check", tok, map[string]float64{"measured_volume": 110, "expected_volume": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var vol map[string]any
	decodeBody(t, rec, &vol)
	assert.Equal(t, true, vol["anomaly"])

	rec = s.do(http.MethodPost, "/api/v1/analytics/speed-check", tok, map[string]any{"current_speed": 120, "mode": "truck"})
	require.Equal(t, http.StatusOK, rec.Code)
	var speed map[string]any
	decodeBody(t, rec, &speed)
	assert.Equal(t, true, speed["anomaly"])

	rec = s.do(http.MethodPost, "/api/v1/analytics/route-deviation", tok, map[string]any{
		"current_lat": 0.0, "current_lng": 0.0,
		"route": []map[string]float64{{"lat": 0, "lng": 0}, {"lat": 0, "lng": 1}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var dev map[string]any
	decodeBody(t, rec, &dev)
	assert.Equal(t, false, dev["anomaly"])

	rec = s.do(http.MethodPost, "/api/v1/analytics/dwell-check", tok, map[string]any{"location": "gate 4"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/analytics/demurrage-risk", tok, map[string]any{"port_congestion_level": "high"})
	require.Equal(t, http.StatusOK, rec.Code)
	var risk map[string]any
	decodeBody(t, rec, &risk)
	assert.Contains(t, risk, "risk_score")
}

func TestNotificationsReadAll(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("opuser", roles.Operator)

	rec := s.do(http.MethodPost, "/api/v1/notifications/read-all", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "Marked 0 notifications as read", body["message"])

	rec = s.do(http.MethodGet, "/api/v1/notifications/unread-count", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditLogRecordsAuthenticatedCalls(t *testing.T) {
	s := newTestServer(t)
	admin := s.token("root", roles.Admin)

	s.do(http.MethodGet, "/api/v1/movements", admin, nil)
	s.do(http.MethodGet, "/api/v1/alerts", "", nil)

	rec := s.do(http.MethodGet, "/api/v1/audit?limit=10", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []auditEntry
	decodeBody(t, rec, &entries)
	require.Len(t, entries, 1, "unauthenticated calls are not audited")
	assert.Equal(t, "/api/v1/movements", entries[0].Path)
	assert.Equal(t, "root", entries[0].User)
	assert.Equal(t, http.StatusOK, entries[0].Status)

	assert.Contains(t, s.audit.String(), `"path":"/api/v1/movements"`)
	assert.Contains(t, s.audit.String(), `"message":"api call"`)
}

func TestAuditLogRing(t *testing.T) {
	l := newAuditLog(2, nil)
	l.add(auditEntry{Path: "/a"})
	l.add(auditEntry{Path: "/b"})
	l.add(auditEntry{Path: "/c"})

	got := l.listLimit(10)
	require.Len(t, got, 2)
	assert.Equal(t, "/c", got[0].Path)
	assert.Equal(t, "/b", got[1].Path)
}

func TestUploadEvidenceRejectsOversizedBody(t *testing.T) {
	s := newTestServerWith(t, app.Options{MaxUploadBytes: 1024})
	tok := s.token("uploader", roles.Operator)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("case_id", "1"))
	part, err := mw.CreateFormFile("file", "manifest.bin")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evidences/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var problem map[string]any
	decodeBody(t, rec, &problem)
	assert.Contains(t, problem["detail"], "File too large")
}
