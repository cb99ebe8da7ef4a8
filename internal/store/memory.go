package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oakline/wallbed-studio/internal/domain"
)

// MemoryStore implements Repository in process memory. It backs tests
// and ephemeral deployments where nothing has to survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	sessions map[string]*domain.Session
	messages map[string][]domain.ChatMessage
	designs  map[string][]domain.Design
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.Session),
		messages: make(map[string][]domain.ChatMessage),
		designs:  make(map[string][]domain.Design),
	}
}

// CreateUser inserts a new user record.
func (m *MemoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			// Mirrors the SQLite unique-index failure so callers can
			// classify it the same way.
			return fmt.Errorf("insert user: UNIQUE constraint failed: users.email")
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

// GetUser retrieves a user by id.
func (m *MemoryStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

// CreateSession inserts a login session.
func (m *MemoryStore) CreateSession(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.Token] = &copied
	return nil
}

// GetSession retrieves a session by token.
func (m *MemoryStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// DeleteSession removes a session by token.
func (m *MemoryStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	now := time.Now()
	for token, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// SaveChatMessage appends a chat message to a user's history.
func (m *MemoryStore) SaveChatMessage(ctx context.Context, userID string, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[userID] = append(m.messages[userID], msg)
	return nil
}

// ListChatMessages returns one page of chat history in ascending order.
func (m *MemoryStore) ListChatMessages(ctx context.Context, userID string, page, limit int) ([]domain.ChatMessage, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[userID]
	total := len(all)
	start, end := pageBounds(total, page, limit)
	return append([]domain.ChatMessage(nil), all[start:end]...), total, nil
}

// SaveDesign appends a design snapshot to a user's design history.
func (m *MemoryStore) SaveDesign(ctx context.Context, design *domain.Design) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.designs[design.UserID] = append(m.designs[design.UserID], *design)
	return nil
}

// ListDesigns returns one page of designs in descending order.
func (m *MemoryStore) ListDesigns(ctx context.Context, userID string, page, limit int) ([]domain.Design, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := append([]domain.Design(nil), m.designs[userID]...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	start, end := pageBounds(total, page, limit)
	return all[start:end], total, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func pageBounds(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
