// Package auth issues and validates bearer tokens and manages credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/roles"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// Token types carried in the "type" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Claims are the JWT claims issued by the service. Subject holds the username.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Settings configure token signing.
type Settings struct {
	SecretKey  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service authenticates users.
type Service struct {
	users    storage.UserStore
	settings Settings
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an auth service.
func New(users storage.UserStore, settings Settings, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if settings.AccessTTL <= 0 {
		settings.AccessTTL = 30 * time.Minute
	}
	if settings.RefreshTTL <= 0 {
		settings.RefreshTTL = 7 * 24 * time.Hour
	}
	if settings.Issuer == "" {
		settings.Issuer = "sira"
	}
	return &Service{users: users, settings: settings, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "auth", Domain: "identity", Layer: service.LayerCore, Capabilities: []string{"jwt", "bcrypt"}}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hashed.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// Login verifies credentials and returns a fresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, user.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil || !CheckPassword(u.HashedPassword, password) {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, user.User{}, err
		}
		s.log.WithField("username", username).Warn("login failed")
		return TokenPair{}, user.User{}, apperrors.Unauthorized("Incorrect username or password")
	}
	if !u.IsActive {
		return TokenPair{}, user.User{}, apperrors.BadRequest("Inactive user")
	}

	now := s.now()
	u.LastLogin = &now
	if u, err = s.users.UpdateUser(ctx, u); err != nil {
		return TokenPair{}, user.User{}, err
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return TokenPair{}, user.User{}, err
	}
	s.log.Infof("user %s logged in", u.Username)
	return pair, u, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.loadActive(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(u)
}

// Authenticate validates an access token and reloads its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (user.User, error) {
	claims, err := s.Parse(accessToken, TokenAccess)
	if err != nil {
		return user.User{}, err
	}
	return s.loadActive(ctx, claims)
}

// Parse validates token's signature, expiry and type.
func (s *Service) Parse(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.settings.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperrors.InvalidToken(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.InvalidToken(fmt.Errorf("invalid token"))
	}
	if claims.Type != wantType {
		return nil, apperrors.InvalidToken(fmt.Errorf("expected %s token, got %q", wantType, claims.Type))
	}
	return claims, nil
}

func (s *Service) loadActive(ctx context.Context, claims *Claims) (user.User, error) {
	u, err := s.users.GetUserByUsername(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return user.User{}, apperrors.InvalidToken(err)
	}
	if err != nil {
		return user.User{}, err
	}
	if !u.IsActive {
		return user.User{}, apperrors.BadRequest("Inactive user")
	}
	return u, nil
}

func (s *Service) issuePair(u user.User) (TokenPair, error) {
	access, err := s.sign(u, TokenAccess, s.settings.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(u, TokenRefresh, s.settings.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// IssueAccessToken signs an access token for u.
func (s *Service) IssueAccessToken(u user.User) (string, error) {
	return s.sign(u, TokenAccess, s.settings.AccessTTL)
}

func (s *Service) sign(u user.User, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			Issuer:    s.settings.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.settings.SecretKey))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Registration is a new account request.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Register creates a self-service account. The role is always operator.
func (s *Service) Register(ctx context.Context, req Registration) (user.User, error) {
	req.Role = roles.Operator
	return s.CreateUser(ctx, req)
}

// CreateUser validates req, hashes the password and persists the account.
// An empty role defaults to operator.
func (s *Service) CreateUser(ctx context.Context, req Registration) (user.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if len(req.Username) < 3 || len(req.Username) > 100 {
		return user.User{}, apperrors.Validation("username must be between 3 and 100 characters")
	}
	if !strings.Contains(req.Email, "@") {
		return user.User{}, apperrors.Validation("email is invalid")
	}
	if len(req.Password) < MinPasswordLength {
		return user.User{}, apperrors.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if req.Role == "" {
		req.Role = roles.Operator
	}
	if !roles.Valid(req.Role) {
		return user.User{}, apperrors.Validation("invalid role")
	}

	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return user.User{}, apperrors.BadRequest("Username already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}
	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return user.User{}, apperrors.BadRequest("Email already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return user.User{}, apperrors.Internal("hash password", err)
	}
	created, err := s.users.CreateUser(ctx, user.User{
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		FullName:       req.FullName,
		Role:           req.Role,
		IsActive:       true,
	})
	if errors.Is(err, storage.ErrConflict) {
		return user.User{}, apperrors.BadRequest("Username or email already registered")
	}
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("role", created.Role).Infof("user %s created", created.Username)
	return created, nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return service.Translate(err, "User")
	}
	if !CheckPassword(u.HashedPassword, current) {
		return apperrors.BadRequest("Incorrect password")
	}
	if len(next) < MinPasswordLength {
		return apperrors.Validation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	hashed, err := HashPassword(next)
	if err != nil {
		return apperrors.Internal("hash password", err)
	}
	u.HashedPassword = hashed
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.log.Infof("user %s changed password", u.Username)
	return nil
}
