// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/oakline/wallbed-studio/internal/domain"
)

// Repository defines the interface for persisting users, sessions, chat
// history, and design history.
type Repository interface {
	// CreateUser inserts a new user. Returns an error if the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by id. Returns (nil, nil) if not found.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) if not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateSession inserts a login session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by token. Returns (nil, nil) if not found.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// DeleteSession removes a session by token.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions past their expiry and
	// returns the number removed.
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// SaveChatMessage appends a chat message to a user's history.
	SaveChatMessage(ctx context.Context, userID string, msg domain.ChatMessage) error

	// ListChatMessages returns one page of a user's chat history in
	// ascending creation order, plus the total message count.
	ListChatMessages(ctx context.Context, userID string, page, limit int) ([]domain.ChatMessage, int, error)

	// SaveDesign appends a design snapshot to a user's design history.
	SaveDesign(ctx context.Context, design *domain.Design) error

	// ListDesigns returns one page of a user's designs in descending
	// creation order, plus the total design count.
	ListDesigns(ctx context.Context, userID string, page, limit int) ([]domain.Design, int, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
