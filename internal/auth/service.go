// Package auth provides password accounts and cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/shared"
	"github.com/oakline/wallbed-studio/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "wallbed_session"

const minPasswordLength = 6

var (
	// ErrEmailTaken is returned when registering an email that exists.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials is returned on a failed login. It does not
	// distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidInput is returned for malformed email or short password.
	ErrInvalidInput = errors.New("invalid email or password format")
)

// Service manages users and login sessions over the repository.
type Service struct {
	repo          store.Repository
	sessionTTL    time.Duration
	secureCookies bool
}

// NewService creates an auth service. secureCookies should be false only
// in development.
func NewService(repo store.Repository, sessionTTL time.Duration, secureCookies bool) *Service {
	return &Service{
		repo:          repo,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and issues a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Logout deletes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, token)
}

// SessionUser resolves a session token to its user. Returns (nil, nil)
// for missing or expired sessions.
func (s *Service) SessionUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session == nil || session.Expired() {
		return nil, nil
	}
	return s.repo.GetUser(ctx, session.UserID)
}

// UserFromRequest resolves the request's session cookie to a user.
func (s *Service) UserFromRequest(r *http.Request) (*domain.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return s.SessionUser(r.Context(), cookie.Value)
}

// SetSessionCookie writes the session cookie for an issued session.
func (s *Service) SetSessionCookie(w http.ResponseWriter, session *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.TTL().Seconds()),
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookies,
	})
}

// ClearSessionCookie expires the session cookie.
func (s *Service) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookies,
	})
}
