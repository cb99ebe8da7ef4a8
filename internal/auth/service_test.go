package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/wallbed-studio/internal/store"
)

func newTestService() *Service {
	return NewService(store.NewMemory(), time.Hour, false)
}

func TestRegister(t *testing.T) {
	svc := newTestService()

	user, err := svc.Register(context.Background(), "  User@Example.COM ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email, "email is normalized before storage")
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "secret1", user.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), "taken@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "taken@example.com", "another1")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_InvalidInput(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(context.Background(), "short@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginAndSessionUser(t *testing.T) {
	svc := newTestService()

	user, err := svc.Register(context.Background(), "login@example.com", "secret1")
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "login@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user.ID, session.UserID)

	resolved, err := svc.SessionUser(context.Background(), session.Token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), "who@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "who@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email and wrong password are indistinguishable")
}

func TestLogout(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), "bye@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.Login(context.Background(), "bye@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), session.Token))

	resolved, err := svc.SessionUser(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestSessionUser_Expired(t *testing.T) {
	svc := NewService(store.NewMemory(), -time.Minute, false)

	_, err := svc.Register(context.Background(), "stale@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.Login(context.Background(), "stale@example.com", "secret1")
	require.NoError(t, err)

	resolved, err := svc.SessionUser(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(context.Background(), "cookie@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.Login(context.Background(), "cookie@example.com", "secret1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	svc.SetSessionCookie(w, session)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, session.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	user, err := svc.UserFromRequest(req)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "cookie@example.com", user.Email)
}

func TestUserFromRequest_NoCookie(t *testing.T) {
	svc := newTestService()

	user, err := svc.UserFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, user)
}
