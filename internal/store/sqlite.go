package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oakline/wallbed-studio/internal/domain"
	"github.com/oakline/wallbed-studio/internal/shared"
	_ "modernc.org/sqlite"
)

// Retry policy for writes that hit SQLITE_BUSY or "database is locked"
// under concurrent access.
const (
	writeMaxRetries     = 3
	writeRetryBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, created_at);

	CREATE TABLE IF NOT EXISTS designs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		design_json TEXT NOT NULL,
		prompt TEXT NOT NULL,
		image_url TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_designs_user ON designs(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// execWrite runs a write statement, retrying with exponential backoff
// when the database is busy or locked. Other errors return immediately.
func (s *SQLiteStore) execWrite(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	var err error
	for attempt := 0; attempt < writeMaxRetries; attempt++ {
		result, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return result, err
		}
		if attempt < writeMaxRetries-1 {
			delay := writeRetryBaseDelay * time.Duration(1<<attempt)
			slog.Debug("Database locked, retrying write", "attempt", attempt+1, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return result, err
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.execWrite(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var createdAt int64

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// CreateSession inserts a login session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.execWrite(ctx, query,
		session.Token, session.UserID, session.ExpiresAt.Unix(), session.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`
	row := s.db.QueryRowContext(ctx, query, token)

	var session domain.Session
	var expiresAt, createdAt int64

	err := row.Scan(&session.Token, &session.UserID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.ExpiresAt = time.Unix(expiresAt, 0)
	session.CreatedAt = time.Unix(createdAt, 0)
	return &session, nil
}

// DeleteSession removes a session by token.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.execWrite(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.execWrite(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

// SaveChatMessage appends a chat message to a user's history.
func (s *SQLiteStore) SaveChatMessage(ctx context.Context, userID string, msg domain.ChatMessage) error {
	query := `
	INSERT INTO chat_messages (id, user_id, role, content, image_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var imageURL interface{}
	if msg.ImageURL != "" {
		imageURL = msg.ImageURL
	}

	_, err := s.execWrite(ctx, query,
		msg.ID, userID, msg.Role, msg.Content, imageURL, msg.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns one page of chat history in ascending order.
func (s *SQLiteStore) ListChatMessages(ctx context.Context, userID string, page, limit int) ([]domain.ChatMessage, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chat messages: %w", err)
	}

	query := `
		SELECT id, role, content, image_url, created_at
		FROM chat_messages WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var imageURL sql.NullString
		var createdAt int64

		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &imageURL, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan chat message row: %w", err)
		}
		msg.ImageURL = imageURL.String
		msg.Timestamp = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate chat message rows: %w", err)
	}

	return messages, total, nil
}

// SaveDesign appends a design snapshot to a user's design history.
func (s *SQLiteStore) SaveDesign(ctx context.Context, design *domain.Design) error {
	designJSON, err := json.Marshal(design.Config)
	if err != nil {
		return fmt.Errorf("marshal design config: %w", err)
	}

	query := `
	INSERT INTO designs (id, user_id, design_json, prompt, image_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var imageURL interface{}
	if design.ImageURL != "" {
		imageURL = design.ImageURL
	}

	_, err = s.execWrite(ctx, query,
		design.ID, design.UserID, string(designJSON), design.Prompt, imageURL, design.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert design: %w", err)
	}
	return nil
}

// ListDesigns returns one page of designs in descending order.
func (s *SQLiteStore) ListDesigns(ctx context.Context, userID string, page, limit int) ([]domain.Design, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM designs WHERE user_id = ?`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count designs: %w", err)
	}

	query := `
		SELECT id, design_json, prompt, image_url, created_at
		FROM designs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query designs: %w", err)
	}
	defer rows.Close()

	var designs []domain.Design
	for rows.Next() {
		var d domain.Design
		var designJSON string
		var imageURL sql.NullString
		var createdAt int64

		if err := rows.Scan(&d.ID, &designJSON, &d.Prompt, &imageURL, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan design row: %w", err)
		}
		if err := json.Unmarshal([]byte(designJSON), &d.Config); err != nil {
			return nil, 0, fmt.Errorf("unmarshal design config: %w", err)
		}
		d.UserID = userID
		d.ImageURL = imageURL.String
		d.CreatedAt = time.Unix(createdAt, 0)
		designs = append(designs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate design rows: %w", err)
	}

	return designs, total, nil
}
