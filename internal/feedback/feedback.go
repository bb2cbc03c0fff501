// Package feedback stores user feedback on assistant responses.
//
// Entries are capped to fixed lengths before storage so oversized
// submissions cannot bloat the table.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Field length caps applied before storage.
const (
	MaxQueryLen    = 500
	MaxResponseLen = 2000
	MaxFeedbackLen = 1000
)

// Sentinel errors for feedback operations.
var (
	ErrEmptyUserID   = errors.New("user ID cannot be empty")
	ErrEmptyFeedback = errors.New("feedback text cannot be empty")
)

// Entry is a stored feedback record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the store depends on.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store provides feedback persistence over PostgreSQL.
type Store struct {
	db DB
}

// NewStore creates a feedback store backed by db.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Save records feedback for a query/response pair and returns the entry ID.
// Query, response, and feedback text are truncated to their storage caps.
func (s *Store) Save(ctx context.Context, userID, query, response, text string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, ErrEmptyUserID
	}
	if text == "" {
		return uuid.Nil, ErrEmptyFeedback
	}

	id := uuid.New()
	_, err := s.db.Exec(ctx,
		`INSERT INTO feedback (id, user_id, query, response, feedback, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		id, userID,
		truncate(query, MaxQueryLen),
		truncate(response, MaxResponseLen),
		truncate(text, MaxFeedbackLen))
	if err != nil {
		return uuid.Nil, fmt.Errorf("save feedback for user %s: %w", userID, err)
	}
	return id, nil
}

// Recent returns a user's most recent feedback entries, newest first.
func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, query, response, feedback, created_at
		 FROM feedback WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load feedback for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &e.Response, &e.Feedback, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return entries, nil
}

// truncate caps s at n runes without splitting a multi-byte character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
