// Package vecstore implements the vector index backing document retrieval.
//
// Vectors live in PostgreSQL with the pgvector extension. A collection is a
// dedicated table plus a row in the collections registry recording its
// dimension and distance metric; EnsureCollection verifies the registration
// and fails with ErrSchemaMismatch when an existing collection was created
// with different parameters.
//
// All user documents share a single collection and are scoped at search time
// by a payload equality filter on user_id, never by per-user collections.
package vecstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Distance metrics accepted by EnsureCollection.
const (
	MetricCosine = "cosine"
)

// DefaultCollection is the shared namespace holding every user's document
// chunks, disambiguated by the user_id payload field.
const DefaultCollection = "user_documents"

var (
	// ErrSchemaMismatch indicates an existing collection was created with a
	// different dimension or metric.
	ErrSchemaMismatch = errors.New("collection schema mismatch")

	// ErrInvalidCollection indicates the collection name is not a safe SQL
	// identifier.
	ErrInvalidCollection = errors.New("invalid collection name")
)

// collectionNameRE restricts collection names to safe SQL identifiers.
// Collection names are interpolated into DDL/DML, so they must never carry
// user-controlled input.
var collectionNameRE = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Point is one stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Match is one search result, ranked by similarity.
type Match struct {
	ID      string
	Score   float32 // cosine similarity in [0, 1] for normalized vectors
	Payload map[string]string
}

// DB is the subset of pgxpool.Pool the store depends on.
// Defined by the consumer so tests can substitute fakes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages vector collections in PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New creates a Store. logger may be nil (defaults to slog.Default()).
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureCollection creates the collection if absent. It is idempotent: a
// second call with matching parameters is a no-op, and a call whose dimension
// or metric differs from the existing registration fails with ErrSchemaMismatch.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	if !collectionNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	if metric != MetricCosine {
		return fmt.Errorf("unsupported distance metric %q", metric)
	}
	if dimension < 1 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	var existingDim int
	var existingMetric string
	err := s.db.QueryRow(ctx,
		`SELECT dimension, metric FROM collections WHERE name = $1`, name,
	).Scan(&existingDim, &existingMetric)
	switch {
	case err == nil:
		if existingDim != dimension || existingMetric != metric {
			return fmt.Errorf("%w: collection %q has dimension=%d metric=%s, requested dimension=%d metric=%s",
				ErrSchemaMismatch, name, existingDim, existingMetric, dimension, metric)
		}
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// Fall through to creation.
	default:
		return fmt.Errorf("checking collection %q: %w", name, err)
	}

	// Name is validated against collectionNameRE above, so identifier
	// interpolation is safe; dimension is a checked int.
	createTable := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			embedding  vector(%d) NOT NULL,
			payload    JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, name, dimension)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("creating collection table %q: %w", name, err)
	}

	createIndex := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`,
		name, name)
	if _, err := s.db.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("creating vector index for %q: %w", name, err)
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO collections (name, dimension, metric) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`, name, dimension, metric); err != nil {
		return fmt.Errorf("registering collection %q: %w", name, err)
	}

	s.logger.Debug("collection ready", "name", name, "dimension", dimension, "metric", metric)
	return nil
}

// Upsert writes points into the collection as a single multi-row INSERT,
// overwriting vector and payload on id collision. The batch is atomic: either
// every point is written or none are.
func (s *Store) Upsert(ctx context.Context, collection string, points []Point) error {
	if !collectionNameRE.MatchString(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	if len(points) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `INSERT INTO %s (id, embedding, payload) VALUES `, collection)

	args := make([]any, 0, len(points)*3)
	for i, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point %d has empty id", i)
		}
		payloadJSON, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("marshaling payload for point %q: %w", p.ID, err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, p.ID, pgvector.NewVector(p.Vector), payloadJSON)
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		embedding = EXCLUDED.embedding,
		payload = EXCLUDED.payload`)

	if _, err := s.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upserting %d points into %q: %w", len(points), collection, err)
	}

	s.logger.Debug("upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search returns up to limit matches ranked by cosine similarity, filtered
// server-side by payload equality (JSONB containment). Ties in similarity are
// broken by id ascending, so repeated searches are deterministic.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]string) ([]Match, error) {
	if !collectionNameRE.MatchString(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}
	if limit < 1 {
		return nil, fmt.Errorf("invalid limit %d", limit)
	}

	query := fmt.Sprintf(
		`SELECT id, payload, 1 - (embedding <=> $1) AS score
		 FROM %s`, collection)
	args := []any{pgvector.NewVector(vector)}

	// filter is marshaled via json.Marshal and bound as a parameter; the
	// JSONB @> operator applies equality on every filter field server-side.
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
		query += ` WHERE payload @> $2`
		args = append(args, filterJSON)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1, id ASC LIMIT %d`, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", collection, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var payloadJSON []byte
		if err := rows.Scan(&m.ID, &payloadJSON, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &m.Payload); err != nil {
			s.logger.Warn("failed to parse payload", "id", m.ID, "error", err)
			m.Payload = map[string]string{}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	return matches, nil
}
