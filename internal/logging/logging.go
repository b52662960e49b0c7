// Package logging provides request-scoped structured logging.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/sira_platform/pkg/logger"
)

type contextKey string

const (
	// TraceIDKey carries the request trace identifier.
	TraceIDKey contextKey = "trace_id"
	// UserIDKey carries the authenticated user id (decimal string).
	UserIDKey contextKey = "user_id"
	// RoleKey carries the authenticated user role.
	RoleKey contextKey = "role"
)

// Logger decorates log entries with values found on the request context.
type Logger struct {
	base    *logrus.Logger
	service string
}

// New returns a request logger for service.
func New(service, level, format string) *Logger {
	l := logger.New(logger.LoggingConfig{Level: level, Format: format, Output: "stdout"})
	return &Logger{base: l.Logger, service: service}
}

// FromLogger wraps an existing component logger.
func FromLogger(service string, l *logger.Logger) *Logger {
	if l == nil {
		l = logger.NewDefault(service)
	}
	return &Logger{base: l.Logger, service: service}
}

// WithContext returns an entry carrying the trace, user and role of ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.base.WithField("service", l.service)
	if ctx == nil {
		return entry
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if userID := GetUserID(ctx); userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	if role := GetRole(ctx); role != "" {
		entry = entry.WithField("role", role)
	}
	return entry
}

// WithError returns an entry with err attached.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.base.WithField("service", l.service).WithError(err)
}

// WithFields returns an entry with fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.base.WithField("service", l.service).WithFields(fields)
}

// LogRequest records one served HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	})
	switch {
	case status >= 500:
		entry.Error("request failed")
	case status >= 400:
		entry.Warn("request rejected")
	default:
		entry.Info("request served")
	}
}

// LogSecurityEvent records an authentication or authorization event.
func (l *Logger) LogSecurityEvent(ctx context.Context, name string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).WithField("security_event", name).Warn("security event")
}

// NewTraceID returns a fresh trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores traceID on ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace identifier stored on ctx.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// GetUserID returns the user id stored on ctx.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

// GetRole returns the role stored on ctx.
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(RoleKey).(string)
	return v
}
