package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/learnloop/learnloop/internal/feedback"
	"github.com/learnloop/learnloop/internal/log"
)

// Feedback history paging bounds.
const (
	defaultFeedbackHistoryLimit = 20
	maxFeedbackHistoryLimit     = 100
)

// FeedbackStore persists and lists user feedback. Implemented by
// feedback.Store.
type FeedbackStore interface {
	Save(ctx context.Context, userID, query, response, text string) (uuid.UUID, error)
	Recent(ctx context.Context, userID string, limit int) ([]feedback.Entry, error)
}

type feedbackHandler struct {
	store  FeedbackStore
	logger log.Logger
}

type feedbackRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Response string `json:"response"`
	Feedback string `json:"feedback"`
}

type feedbackResponse struct {
	ID string `json:"id"`
}

// submit records feedback on a previous answer.
func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, maxChatBodyBytes, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "user_id is required")
		return
	}
	if strings.TrimSpace(req.Feedback) == "" {
		writeError(w, http.StatusBadRequest, "feedback_required", "feedback text is required")
		return
	}

	id, err := h.store.Save(r.Context(), req.UserID, req.Query, req.Response, req.Feedback)
	if err != nil {
		h.logger.Error("saving feedback", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "save_failed", "failed to save feedback")
		return
	}
	writeJSON(w, http.StatusCreated, feedbackResponse{ID: id.String()})
}

type feedbackListResponse struct {
	Entries []feedback.Entry `json:"entries"`
	Count   int              `json:"count"`
}

// history lists a user's recent feedback, newest first.
func (h *feedbackHandler) history(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "user_id is required")
		return
	}

	limit := defaultFeedbackHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeedbackHistoryLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := h.store.Recent(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("listing feedback", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list feedback")
		return
	}
	writeJSON(w, http.StatusOK, feedbackListResponse{Entries: entries, Count: len(entries)})
}
