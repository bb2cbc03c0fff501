package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows implements pgx.Rows over a fixed result set.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}
func (r *fakeRows) Scan(dest ...any) error { return scanInto(r.rows[r.idx-1], dest) }
func (r *fakeRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values, %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *float64:
			*d = v.(float64)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls    []call
	execErr  error
	queryErr error
	rows     pgx.Rows
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	return &fakeRows{}
}

func courseRow(id int64, title, subject, level string) []any {
	return []any{id, title, subject, level, "desc of " + title, 19.99, int64(100), time.Now()}
}

func TestCourseSummary_IncludesAllFields(t *testing.T) {
	c := Course{
		Title:       "Go Fundamentals",
		Subject:     "Programming",
		Level:       "Beginner",
		Description: "Learn Go from scratch",
		Price:       19.99,
		Subscribers: 1234,
	}

	got := c.Summary()
	for _, want := range []string{
		"Course: Go Fundamentals",
		"Subject: Programming",
		"Level: Beginner",
		"Description: Learn Go from scratch",
		"Price: $19.99",
		"Subscribers: 1234",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
}

func TestSearch_MatchesTitleSubjectDescription(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{rows: [][]any{
		courseRow(1, "Python Basics", "Programming", "Beginner"),
	}}}
	store := NewStore(db)

	courses, err := store.Search(context.Background(), "python", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(courses) != 1 || courses[0].Title != "Python Basics" {
		t.Fatalf("Search() = %+v, want one Python Basics course", courses)
	}

	sql := db.calls[0].sql
	for _, col := range []string{"title ILIKE", "subject ILIKE", "description ILIKE"} {
		if !strings.Contains(sql, col) {
			t.Errorf("search SQL missing %q:\n%s", col, sql)
		}
	}
	if got := db.calls[0].args[0]; got != "%python%" {
		t.Errorf("search pattern = %v, want %%python%%", got)
	}
}

func TestSearch_EscapesLikeMetacharacters(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	if _, err := store.Search(context.Background(), "100%_off", 5); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := db.calls[0].args[0]; got != `%100\%\_off%` {
		t.Errorf("search pattern = %v, want escaped metacharacters", got)
	}
}

func TestSearch_EmptyQueryReturnsNewest(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	if _, err := store.Search(context.Background(), "   ", 5); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !strings.Contains(db.calls[0].sql, "ORDER BY created_at DESC") {
		t.Errorf("empty query should order by created_at DESC:\n%s", db.calls[0].sql)
	}
	if strings.Contains(db.calls[0].sql, "ILIKE") {
		t.Errorf("empty query should not filter:\n%s", db.calls[0].sql)
	}
}

func TestSearch_NoMatchesReturnsEmptySlice(t *testing.T) {
	store := NewStore(&fakeDB{})

	courses, err := store.Search(context.Background(), "nonexistent", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if courses == nil || len(courses) != 0 {
		t.Fatalf("Search() = %v, want empty non-nil slice", courses)
	}
}

func TestSearch_InvalidLimit(t *testing.T) {
	store := NewStore(&fakeDB{})

	if _, err := store.Search(context.Background(), "go", 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("Search() error = %v, want ErrInvalidLimit", err)
	}
}

func TestSearch_QueryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	store := NewStore(&fakeDB{queryErr: dbErr})

	if _, err := store.Search(context.Background(), "go", 5); !errors.Is(err, dbErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, dbErr)
	}
}

func TestEnroll_Idempotent(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	if err := store.Enroll(context.Background(), "user-1", 42); err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if !strings.Contains(db.calls[0].sql, "ON CONFLICT (user_id, course_id) DO NOTHING") {
		t.Errorf("enroll should be idempotent:\n%s", db.calls[0].sql)
	}
}

func TestEnroll_EmptyUserID(t *testing.T) {
	store := NewStore(&fakeDB{})

	if err := store.Enroll(context.Background(), "", 42); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("Enroll() error = %v, want ErrEmptyUserID", err)
	}
}

func TestEnrolledContext_WithCourses(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{rows: [][]any{
		courseRow(1, "Python Basics", "Programming", "Beginner"),
		courseRow(2, "Guitar 101", "Music", ""),
	}}}
	store := NewStore(db)

	got, err := store.EnrolledContext(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnrolledContext() error = %v", err)
	}

	want := "User's enrolled courses:\n" +
		"Course: Python Basics\nSubject: Programming\nDescription: desc of Python Basics\n" +
		"Course: Guitar 101\nSubject: Music\nDescription: desc of Guitar 101"
	if got != want {
		t.Errorf("EnrolledContext() = %q, want %q", got, want)
	}
}

func TestEnrolledContext_NoCourses(t *testing.T) {
	store := NewStore(&fakeDB{})

	got, err := store.EnrolledContext(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EnrolledContext() error = %v", err)
	}
	if got != NoEnrollments {
		t.Errorf("EnrolledContext() = %q, want %q", got, NoEnrollments)
	}
}

func TestEnrollments_FiltersByUser(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	if _, err := store.Enrollments(context.Background(), "user-1"); err != nil {
		t.Fatalf("Enrollments() error = %v", err)
	}
	sql := db.calls[0].sql
	if !strings.Contains(sql, "uc.user_id = $1") {
		t.Errorf("enrollments SQL missing user filter:\n%s", sql)
	}
	if db.calls[0].args[0] != "user-1" {
		t.Errorf("enrollments args = %v, want user-1", db.calls[0].args)
	}
}

func TestList_Pagination(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db)

	if _, err := store.List(context.Background(), 10, 20); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !strings.Contains(db.calls[0].sql, "LIMIT $1 OFFSET $2") {
		t.Errorf("list SQL missing pagination:\n%s", db.calls[0].sql)
	}
	if db.calls[0].args[0] != 10 || db.calls[0].args[1] != 20 {
		t.Errorf("list args = %v, want [10 20]", db.calls[0].args)
	}
}
