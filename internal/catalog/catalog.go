// Package catalog provides course catalog storage and search.
//
// Courses are stored in PostgreSQL and searched with case-insensitive
// substring matching over title, subject, and description. The package also
// resolves a user's enrollments into a text block suitable for prompt
// context.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for catalog operations.
var (
	ErrInvalidLimit = errors.New("limit must be positive")
	ErrEmptyUserID  = errors.New("user ID cannot be empty")
)

// NoEnrollments is the context line used when a user has no enrolled courses.
const NoEnrollments = "The user has not enrolled in any courses yet."

// Course is a single catalog entry.
type Course struct {
	ID          int64     `json:"course_id"`
	Title       string    `json:"title"`
	Subject     string    `json:"subject"`
	Level       string    `json:"level"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Subscribers int64     `json:"subscribers"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary renders a course as a labeled block for prompt context. Every
// catalog field is included so the model can weigh price and popularity, not
// just titles.
func (c Course) Summary() string {
	return fmt.Sprintf("Course: %s\nSubject: %s\nLevel: %s\nDescription: %s\nPrice: $%.2f\nSubscribers: %d",
		c.Title, c.Subject, c.Level, c.Description, c.Price, c.Subscribers)
}

// DB is the subset of pgxpool.Pool the store depends on.
// Defined by the consumer so tests can substitute fakes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides course catalog persistence over PostgreSQL.
type Store struct {
	db DB
}

// NewStore creates a catalog store backed by db.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const courseColumns = "course_id, title, subject, level, description, price, subscribers, created_at"

// Search finds courses matching the query with case-insensitive substring
// matching over title, subject, and description. An empty query returns the
// newest courses. A query matching nothing returns an empty slice and no
// error.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Course, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	query = strings.TrimSpace(query)
	if query == "" {
		rows, err = s.db.Query(ctx,
			"SELECT "+courseColumns+" FROM courses ORDER BY created_at DESC, course_id ASC LIMIT $1",
			limit)
	} else {
		pattern := "%" + escapeLike(query) + "%"
		rows, err = s.db.Query(ctx,
			"SELECT "+courseColumns+` FROM courses
			 WHERE title ILIKE $1 OR subject ILIKE $1 OR description ILIKE $1
			 ORDER BY subscribers DESC, course_id ASC LIMIT $2`,
			pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// List returns a page of the catalog ordered by course ID.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Course, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+courseColumns+" FROM courses ORDER BY course_id ASC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// Enroll records a user's enrollment in a course. Enrolling twice is a no-op.
func (s *Store) Enroll(ctx context.Context, userID string, courseID int64) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO user_courses (user_id, course_id, enrolled_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID)
	if err != nil {
		return fmt.Errorf("enroll user %s in course %d: %w", userID, courseID, err)
	}
	return nil
}

// Enrollments returns the courses a user is enrolled in, oldest first.
func (s *Store) Enrollments(ctx context.Context, userID string) ([]Course, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rows, err := s.db.Query(ctx,
		`SELECT c.course_id, c.title, c.subject, c.level, c.description, c.price, c.subscribers, c.created_at
		 FROM courses c
		 JOIN user_courses uc ON uc.course_id = c.course_id
		 WHERE uc.user_id = $1
		 ORDER BY uc.enrolled_at ASC, c.course_id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollments for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// EnrolledContext renders a user's enrollments as a prompt context block.
// Users without enrollments get a fixed explanatory line.
func (s *Store) EnrolledContext(ctx context.Context, userID string) (string, error) {
	courses, err := s.Enrollments(ctx, userID)
	if err != nil {
		return "", err
	}
	return FormatEnrollments(courses), nil
}

// FormatEnrollments renders a course list as a prompt context block. Only the
// fields a model needs to relate a question to prior enrollments are kept;
// price and popularity stay out of this block.
func FormatEnrollments(courses []Course) string {
	if len(courses) == 0 {
		return NoEnrollments
	}

	var sb strings.Builder
	sb.WriteString("User's enrolled courses:\n")
	for i, c := range courses {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Course: %s\nSubject: %s\nDescription: %s", c.Title, c.Subject, c.Description)
	}
	return sb.String()
}

func scanCourses(rows pgx.Rows) ([]Course, error) {
	courses := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Subject, &c.Level, &c.Description,
			&c.Price, &c.Subscribers, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
