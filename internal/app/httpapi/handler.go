// Package httpapi exposes the SIRA services over REST and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	app "github.com/R3E-Network/sira_platform/internal/app"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/metrics"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/internal/httputil"
	"github.com/R3E-Network/sira_platform/internal/logging"
	"github.com/R3E-Network/sira_platform/internal/middleware"
)

// APIPrefix is the mount point of every versioned route.
const APIPrefix = "/api/v1"

const (
	defaultLimit = 100
	maxLimit     = 1000
	auditEntries = 500
	limiterSweep = 5 * time.Minute
)

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the HTTP surface.
type Options struct {
	Version        string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	// AuditSink receives one JSON line per audited request when set.
	AuditSink io.Writer
	DB        Pinger
	Logger    *logging.Logger
	// Context bounds background work such as rate limiter cleanup. Nil
	// disables the cleanup loop.
	Context context.Context
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	log     *logging.Logger
	audit   *auditLog
	db      Pinger
	version string
	started time.Time
}

// NewHandler returns the complete HTTP handler: trace and CORS wrapping
// around a gorilla/mux router carrying every route.
func NewHandler(application *app.Application, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logging.New("httpapi", "info", "json")
	}
	var sink *zerolog.Logger
	if opts.AuditSink != nil {
		zl := zerolog.New(opts.AuditSink).With().Timestamp().Logger()
		sink = &zl
	}
	h := &handler{
		app:     application,
		log:     log,
		audit:   newAuditLog(auditEntries, sink),
		db:      opts.DB,
		version: opts.Version,
		started: time.Now().UTC(),
	}

	root := mux.NewRouter()
	root.Use(middleware.MetricsMiddleware())
	root.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	root.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := root.PathPrefix(APIPrefix).Subrouter()
	api.Use(middleware.NewAuthMiddleware(application.Auth, log, []string{
		APIPrefix + "/auth/token",
		APIPrefix + "/auth/token/refresh",
		APIPrefix + "/auth/register",
		APIPrefix + "/ws/notifications",
	}).Handler)
	if opts.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, log)
		if opts.Context != nil {
			limiter.StartCleanup(opts.Context, limiterSweep)
		}
		api.Use(limiter.Handler)
	}
	api.Use(h.audit.middleware)

	h.authRoutes(api)
	h.userRoutes(api)
	h.movementRoutes(api)
	h.alertRoutes(api)
	h.caseRoutes(api)
	h.playbookRoutes(api)
	h.notificationRoutes(api)
	h.vesselRoutes(api)
	h.portRoutes(api)
	h.fleetRoutes(api)
	h.corridorRoutes(api)
	h.shipmentRoutes(api)
	h.marketRoutes(api)
	h.insightRoutes(api)
	h.iotRoutes(api)
	h.analyticsRoutes(api)
	h.handle(api, "/audit", h.auditList, roles.Admins, http.MethodGet)

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusNotFound, string(apperrors.CodeNotFound), "Not Found", nil)
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed", nil)
	})

	var out http.Handler = root
	out = middleware.NewCORSMiddleware(opts.AllowedOrigins).Handler(out)
	out = middleware.NewTracingMiddleware(log).Handler(out)
	return out
}

// handle registers fn for path and methods. A non-nil group restricts the
// route to those roles.
func (h *handler) handle(r *mux.Router, path string, fn http.HandlerFunc, group roles.Group, methods ...string) {
	var next http.Handler = fn
	if group != nil {
		next = middleware.RequireRole(group)(next)
	}
	r.Handle(path, next).Methods(methods...)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation("request body is required")
		}
		return apperrors.Validation("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}

func writeMessage(w http.ResponseWriter, status int, msg string, extra ...any) {
	body := map[string]any{"message": msg}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			body[k] = extra[i+1]
		}
	}
	writeJSON(w, status, body)
}

// writeError maps err to its ServiceError status and writes the standard
// error body. Unclassified errors become 500 and are logged.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			se = apperrors.NotFound("Not found")
		case errors.Is(err, storage.ErrConflict):
			se = apperrors.Conflict("Resource already exists")
		default:
			se = apperrors.Internal("Internal server error", err)
		}
	}
	if se.HTTPStatus == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if se.HTTPStatus >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	httputil.WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// actor returns the authenticated user. Routes behind the auth middleware
// always have one.
func actor(r *http.Request) user.User {
	u, _ := middleware.CurrentUser(r.Context())
	return u
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(name + " must be a positive integer")
	}
	return id, nil
}

// paging reads skip and limit. limit defaults to 100 and may not exceed 1000.
func paging(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	limit = defaultLimit
	if v := q.Get("skip"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, apperrors.Validation("skip must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, apperrors.Validation("limit must be between 1 and 1000")
		}
	}
	return offset, limit, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperrors.Validation(name + " must be an integer")
	}
	return n, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.Validation(name + " must be an integer")
	}
	return n, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, apperrors.Validation(name + " must be a number")
	}
	return &f, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperrors.Validation(name + " must be a boolean")
	}
	return &b, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.Validation(name + " must be an ISO 8601 date or timestamp")
}
