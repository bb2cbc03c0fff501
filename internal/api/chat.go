package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/learnloop/learnloop/internal/log"
	"github.com/learnloop/learnloop/internal/rag"
)

// maxChatBodyBytes caps chat and feedback request bodies.
const maxChatBodyBytes = 1 << 20 // 1 MiB

// Answerer runs the retrieval-augmented answering pipeline.
// Implemented by rag.Pipeline.
type Answerer interface {
	AnswerQuery(ctx context.Context, userID, prompt string) string
	AddDocuments(ctx context.Context, userID string, documents []rag.Document) bool
}

// EnrollmentSource resolves a user's enrollments into prompt context.
// Implemented by catalog.Store.
type EnrollmentSource interface {
	EnrolledContext(ctx context.Context, userID string) (string, error)
}

type chatHandler struct {
	pipeline    Answerer
	enrollments EnrollmentSource
	logger      log.Logger
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// send answers a chat message with enrollment context prepended server-side.
// Enrollment lookup failures degrade to answering without that context.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, maxChatBodyBytes, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message_required", "message is required")
		return
	}

	prompt := req.Message
	if h.enrollments != nil {
		enrolled, err := h.enrollments.EnrolledContext(r.Context(), req.UserID)
		if err != nil {
			h.logger.Warn("enrollment lookup failed, answering without enrollment context",
				"user_id", req.UserID, "error", err)
		} else {
			prompt = rag.JoinQuestion(enrolled, req.Message)
		}
	}

	answer := h.pipeline.AnswerQuery(r.Context(), req.UserID, prompt)
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

// decodeBody reads and decodes a JSON request body, writing the error
// response itself on failure. Unknown fields are rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return false
	}
	return true
}
