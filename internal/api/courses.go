package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/learnloop/learnloop/internal/catalog"
	"github.com/learnloop/learnloop/internal/log"
)

// Catalog paging bounds.
const (
	defaultCoursePageSize = 10
	maxCoursePageSize     = 50
)

// CourseStore reads and updates the course catalog. Implemented by
// catalog.Store.
type CourseStore interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Course, error)
	List(ctx context.Context, limit, offset int) ([]catalog.Course, error)
	Enroll(ctx context.Context, userID string, courseID int64) error
}

type courseHandler struct {
	store  CourseStore
	logger log.Logger
}

type courseListResponse struct {
	Courses []catalog.Course `json:"courses"`
	Count   int              `json:"count"`
}

type enrollRequest struct {
	UserID string `json:"user_id"`
}

// list serves the catalog. With a q parameter it searches; otherwise it pages
// through the full catalog by page and page_size.
func (h *courseHandler) list(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	size := defaultCoursePageSize
	if raw := params.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCoursePageSize {
			writeError(w, http.StatusBadRequest, "invalid_page_size", "page_size must be between 1 and 50")
			return
		}
		size = n
	}

	var (
		courses []catalog.Course
		err     error
	)
	if query := strings.TrimSpace(params.Get("q")); query != "" {
		courses, err = h.store.Search(r.Context(), query, size)
	} else {
		page := 1
		if raw := params.Get("page"); raw != "" {
			n, perr := strconv.Atoi(raw)
			if perr != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
				return
			}
			page = n
		}
		courses, err = h.store.List(r.Context(), size, (page-1)*size)
	}
	if err != nil {
		h.logger.Error("listing courses", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list courses")
		return
	}
	writeJSON(w, http.StatusOK, courseListResponse{Courses: courses, Count: len(courses)})
}

// enroll subscribes a user to the course in the path. Enrolling twice is a
// no-op.
func (h *courseHandler) enroll(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || courseID < 1 {
		writeError(w, http.StatusBadRequest, "invalid_course", "course id must be a positive integer")
		return
	}

	var req enrollRequest
	if !decodeBody(w, r, maxChatBodyBytes, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "user_id is required")
		return
	}

	if err := h.store.Enroll(r.Context(), req.UserID, courseID); err != nil {
		h.logger.Error("enrolling user", "user_id", req.UserID, "course_id", courseID, "error", err)
		writeError(w, http.StatusInternalServerError, "enroll_failed", "failed to enroll")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
