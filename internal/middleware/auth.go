// Package middleware provides the HTTP middleware chain for the SIRA API.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/errors"
	internalhttputil "github.com/R3E-Network/sira_platform/internal/httputil"
	"github.com/R3E-Network/sira_platform/internal/logging"
)

// Authenticator resolves a bearer access token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (user.User, error)
}

type userKey struct{}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u user.User) context.Context {
	ctx = context.WithValue(ctx, userKey{}, u)
	ctx = context.WithValue(ctx, logging.UserIDKey, strconv.FormatInt(u.ID, 10))
	return context.WithValue(ctx, logging.RoleKey, u.Role)
}

// CurrentUser returns the user placed in ctx by the auth middleware.
func CurrentUser(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(userKey{}).(user.User)
	return u, ok
}

// AuthMiddleware provides JWT authentication
type AuthMiddleware struct {
	auth      Authenticator
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(auth Authenticator, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		auth:      auth,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := BearerToken(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		u, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("Token validation failed")
			m.respondError(w, r, err)
			return
		}

		ctx := WithUser(r.Context(), u)
		m.logger.WithContext(ctx).WithField("username", u.Username).Debug("Authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.Unauthorized("Not authenticated")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.Unauthorized("Invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}
	if serviceErr.HTTPStatus == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	}).Warn("Authentication failed")
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// GetUserRole extracts user role from context
func GetUserRole(ctx context.Context) string {
	return logging.GetRole(ctx)
}

// RequireRole rejects authenticated users whose role is outside group.
func RequireRole(group roles.Group) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r.Context())
			if !ok {
				internalhttputil.Unauthorized(w, "")
				return
			}
			if !group.Contains(u.Role) {
				internalhttputil.Forbidden(w, r, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
