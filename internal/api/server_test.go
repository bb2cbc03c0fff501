package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/learnloop/learnloop/internal/catalog"
	"github.com/learnloop/learnloop/internal/feedback"
	"github.com/learnloop/learnloop/internal/log"
	"github.com/learnloop/learnloop/internal/rag"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePipeline implements Answerer.
type fakePipeline struct {
	answer     string
	addOK      bool
	lastUserID string
	lastPrompt string
	lastDocs   []rag.Document
}

func (f *fakePipeline) AnswerQuery(_ context.Context, userID, prompt string) string {
	f.lastUserID = userID
	f.lastPrompt = prompt
	return f.answer
}

func (f *fakePipeline) AddDocuments(_ context.Context, userID string, docs []rag.Document) bool {
	f.lastUserID = userID
	f.lastDocs = docs
	return f.addOK
}

// fakeEnrollments implements EnrollmentSource.
type fakeEnrollments struct {
	context string
	err     error
}

func (f *fakeEnrollments) EnrolledContext(context.Context, string) (string, error) {
	return f.context, f.err
}

// fakeCourseStore implements CourseStore.
type fakeCourseStore struct {
	courses []catalog.Course
	err     error

	lastQuery    string
	lastLimit    int
	lastOffset   int
	enrolledUser string
	enrolledID   int64
}

func (f *fakeCourseStore) Search(_ context.Context, query string, limit int) ([]catalog.Course, error) {
	f.lastQuery = query
	f.lastLimit = limit
	return f.courses, f.err
}

func (f *fakeCourseStore) List(_ context.Context, limit, offset int) ([]catalog.Course, error) {
	f.lastLimit = limit
	f.lastOffset = offset
	return f.courses, f.err
}

func (f *fakeCourseStore) Enroll(_ context.Context, userID string, courseID int64) error {
	f.enrolledUser = userID
	f.enrolledID = courseID
	return f.err
}

// fakeFeedback implements FeedbackStore.
type fakeFeedback struct {
	id         uuid.UUID
	entries    []feedback.Entry
	err        error
	lastUserID string
	lastLimit  int
}

func (f *fakeFeedback) Save(context.Context, string, string, string, string) (uuid.UUID, error) {
	return f.id, f.err
}

func (f *fakeFeedback) Recent(_ context.Context, userID string, limit int) ([]feedback.Entry, error) {
	f.lastUserID = userID
	f.lastLimit = limit
	return f.entries, f.err
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Pipeline == nil {
		cfg.Pipeline = &fakePipeline{answer: "ok", addOK: true}
	}
	if cfg.Courses == nil {
		cfg.Courses = &fakeCourseStore{}
	}
	if cfg.Feedback == nil {
		cfg.Feedback = &fakeFeedback{id: uuid.New()}
	}
	cfg.Logger = log.NewNop()
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 1000
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{Courses: &fakeCourseStore{}, Feedback: &fakeFeedback{}})
	if err == nil {
		t.Error("NewServer without pipeline should fail")
	}

	_, err = NewServer(ServerConfig{Pipeline: &fakePipeline{}, Feedback: &fakeFeedback{}})
	if err == nil {
		t.Error("NewServer without course store should fail")
	}
}

func TestChat_PrependsEnrollmentContext(t *testing.T) {
	pipeline := &fakePipeline{answer: "take the Go course"}
	srv := newTestServer(t, ServerConfig{
		Pipeline:    pipeline,
		Enrollments: &fakeEnrollments{context: "User's enrolled courses:\n- Python Basics"},
	})

	rec := postJSON(t, srv, "/api/v1/chat", chatRequest{UserID: "user-1", Message: "what next?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "take the Go course" {
		t.Errorf("answer = %q", resp.Answer)
	}

	if pipeline.lastUserID != "user-1" {
		t.Errorf("pipeline user = %q", pipeline.lastUserID)
	}
	wantPrompt := "User's enrolled courses:\n- Python Basics\n\nQuestion: what next?"
	if pipeline.lastPrompt != wantPrompt {
		t.Errorf("pipeline prompt = %q, want %q", pipeline.lastPrompt, wantPrompt)
	}
}

func TestChat_EnrollmentFailureDegrades(t *testing.T) {
	pipeline := &fakePipeline{answer: "still answered"}
	srv := newTestServer(t, ServerConfig{
		Pipeline:    pipeline,
		Enrollments: &fakeEnrollments{err: errors.New("db down")},
	})

	rec := postJSON(t, srv, "/api/v1/chat", chatRequest{UserID: "user-1", Message: "hello?"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite enrollment failure", rec.Code)
	}
	if pipeline.lastPrompt != "hello?" {
		t.Errorf("prompt = %q, want bare message", pipeline.lastPrompt)
	}
}

func TestChat_Validation(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	tests := []struct {
		name string
		body chatRequest
	}{
		{"missing user", chatRequest{Message: "hi"}},
		{"missing message", chatRequest{UserID: "user-1"}},
		{"blank message", chatRequest{UserID: "user-1", Message: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postJSON(t, srv, "/api/v1/chat", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestChat_RejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"user_id":"u","message":"m","admin":true}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown field", rec.Code)
	}
}

func TestDocuments_Upload(t *testing.T) {
	pipeline := &fakePipeline{addOK: true}
	srv := newTestServer(t, ServerConfig{Pipeline: pipeline})

	rec := postJSON(t, srv, "/api/v1/documents", documentRequest{
		UserID:    "user-1",
		Documents: []rag.Document{{Content: "notes", Source: "notes.txt"}},
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body = %s", rec.Code, rec.Body)
	}
	if len(pipeline.lastDocs) != 1 || pipeline.lastDocs[0].Content != "notes" {
		t.Errorf("pipeline docs = %+v", pipeline.lastDocs)
	}
}

func TestDocuments_IndexFailure(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Pipeline: &fakePipeline{addOK: false}})

	rec := postJSON(t, srv, "/api/v1/documents", documentRequest{
		UserID:    "user-1",
		Documents: []rag.Document{{Content: "notes"}},
	})

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestDocuments_RejectsEmptyContent(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := postJSON(t, srv, "/api/v1/documents", documentRequest{
		UserID:    "user-1",
		Documents: []rag.Document{{Content: "  "}},
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFeedback_Submit(t *testing.T) {
	id := uuid.New()
	srv := newTestServer(t, ServerConfig{Feedback: &fakeFeedback{id: id}})

	rec := postJSON(t, srv, "/api/v1/feedback", feedbackRequest{
		UserID: "user-1", Query: "q", Response: "r", Feedback: "helpful",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp feedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != id.String() {
		t.Errorf("id = %q, want %q", resp.ID, id)
	}
}

func TestFeedback_RequiresText(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := postJSON(t, srv, "/api/v1/feedback", feedbackRequest{UserID: "user-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCourses_Search(t *testing.T) {
	store := &fakeCourseStore{courses: []catalog.Course{{Title: "Go Fundamentals"}}}
	srv := newTestServer(t, ServerConfig{Courses: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses?q=go&page_size=5", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp courseListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Courses[0].Title != "Go Fundamentals" {
		t.Errorf("response = %+v", resp)
	}
	if store.lastQuery != "go" || store.lastLimit != 5 {
		t.Errorf("search called with (%q, %d), want (go, 5)", store.lastQuery, store.lastLimit)
	}
}

func TestCourses_ListPagination(t *testing.T) {
	store := &fakeCourseStore{}
	srv := newTestServer(t, ServerConfig{Courses: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses?page=3&page_size=10", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if store.lastLimit != 10 || store.lastOffset != 20 {
		t.Errorf("list called with limit=%d offset=%d, want limit=10 offset=20",
			store.lastLimit, store.lastOffset)
	}
}

func TestCourses_InvalidPaging(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	for _, params := range []string{
		"page_size=0", "page_size=-1", "page_size=999", "page_size=abc",
		"page=0", "page=-2", "page=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses?"+params, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", params, rec.Code)
		}
	}
}

func TestCourses_Enroll(t *testing.T) {
	store := &fakeCourseStore{}
	srv := newTestServer(t, ServerConfig{Courses: store})

	rec := postJSON(t, srv, "/api/v1/courses/7/enroll", enrollRequest{UserID: "user-1"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204, body = %s", rec.Code, rec.Body)
	}
	if store.enrolledUser != "user-1" || store.enrolledID != 7 {
		t.Errorf("enrolled (%q, %d), want (user-1, 7)", store.enrolledUser, store.enrolledID)
	}
}

func TestCourses_EnrollValidation(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	if rec := postJSON(t, srv, "/api/v1/courses/7/enroll", enrollRequest{}); rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", rec.Code)
	}
	if rec := postJSON(t, srv, "/api/v1/courses/abc/enroll", enrollRequest{UserID: "u"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad course id status = %d, want 400", rec.Code)
	}
}

func TestFeedback_History(t *testing.T) {
	store := &fakeFeedback{entries: []feedback.Entry{{UserID: "user-1", Feedback: "helpful"}}}
	srv := newTestServer(t, ServerConfig{Feedback: store})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback?user_id=user-1&limit=5", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp feedbackListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Entries[0].Feedback != "helpful" {
		t.Errorf("response = %+v", resp)
	}
	if store.lastUserID != "user-1" || store.lastLimit != 5 {
		t.Errorf("recent called with (%q, %d), want (user-1, 5)", store.lastUserID, store.lastLimit)
	}
}

func TestFeedback_HistoryRequiresUser(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health body = %s", rec.Body)
	}
}

func TestReady_NoPool(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateBurst: 2})

	var lastCode int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", lastCode)
	}
}

func TestRateLimit_HealthExempt(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RateBurst: 1})

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health request %d status = %d", i, rec.Code)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	rec := postJSON(t, srv, "/api/v1/chat", chatRequest{UserID: "u", Message: "m"})
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRecovery_PanicReturns500(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Courses: &panickyCourses{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 after panic", rec.Code)
	}
}

type panickyCourses struct{}

func (p *panickyCourses) Search(context.Context, string, int) ([]catalog.Course, error) {
	panic("boom")
}

func (p *panickyCourses) List(context.Context, int, int) ([]catalog.Course, error) {
	panic("boom")
}

func (p *panickyCourses) Enroll(context.Context, string, int64) error {
	panic("boom")
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})

	huge := fmt.Sprintf(`{"user_id":"u","message":%q}`, strings.Repeat("x", maxChatBodyBytes+1))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(huge))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
