package httpapi

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/R3E-Network/sira_platform/internal/logging"
	"github.com/R3E-Network/sira_platform/internal/middleware"
)

type auditEntry struct {
	Time       time.Time `json:"time"`
	UserID     int64     `json:"user_id"`
	User       string    `json:"user"`
	Role       string    `json:"role"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	TraceID    string    `json:"trace_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// auditLog keeps the most recent authenticated calls in memory and mirrors
// them to an optional zerolog JSONL sink.
type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
	max     int
	sink    *zerolog.Logger
}

func newAuditLog(max int, sink *zerolog.Logger) *auditLog {
	if max <= 0 {
		max = 200
	}
	return &auditLog{max: max, sink: sink}
}

func (l *auditLog) add(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	if l.sink != nil {
		l.sink.Info().
			Int64("user_id", entry.UserID).
			Str("user", entry.User).
			Str("role", entry.Role).
			Str("method", entry.Method).
			Str("path", entry.Path).
			Int("status", entry.Status).
			Int64("duration_ms", entry.DurationMS).
			Str("trace_id", entry.TraceID).
			Str("remote_addr", entry.RemoteAddr).
			Str("user_agent", entry.UserAgent).
			Msg("api call")
	}
}

func (l *auditLog) list() []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]auditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// listLimit returns the newest limit entries, newest first.
func (l *auditLog) listLimit(limit int) []auditEntry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.list()
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// middleware records every request made by an authenticated user.
func (l *auditLog) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := middleware.CurrentUser(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		rec := &auditRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		l.add(auditEntry{
			Time:       start.UTC(),
			UserID:     u.ID,
			User:       u.Username,
			Role:       u.Role,
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			DurationMS: time.Since(start).Milliseconds(),
			TraceID:    logging.GetTraceID(r.Context()),
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type auditRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *auditRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}

func (h *handler) auditList(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 100
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}
