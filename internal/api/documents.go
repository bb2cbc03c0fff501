package api

import (
	"net/http"
	"strings"

	"github.com/learnloop/learnloop/internal/log"
	"github.com/learnloop/learnloop/internal/rag"
)

// maxDocumentBodyBytes caps document upload bodies.
const maxDocumentBodyBytes = 10 << 20 // 10 MiB

// maxDocumentsPerRequest caps the batch size of one upload.
const maxDocumentsPerRequest = 100

type documentHandler struct {
	pipeline Answerer
	logger   log.Logger
}

type documentRequest struct {
	UserID    string         `json:"user_id"`
	Documents []rag.Document `json:"documents"`
}

type documentResponse struct {
	Indexed bool `json:"indexed"`
	Count   int  `json:"count"`
}

// upload indexes a batch of documents for a user.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeBody(w, r, maxDocumentBodyBytes, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_required", "user_id is required")
		return
	}
	if len(req.Documents) > maxDocumentsPerRequest {
		writeError(w, http.StatusRequestEntityTooLarge, "too_many_documents", "too many documents in one request")
		return
	}
	for _, doc := range req.Documents {
		if strings.TrimSpace(doc.Content) == "" {
			writeError(w, http.StatusBadRequest, "empty_document", "documents must have non-empty content")
			return
		}
	}

	ok := h.pipeline.AddDocuments(r.Context(), req.UserID, req.Documents)
	if !ok {
		writeError(w, http.StatusBadGateway, "index_failed", "failed to index documents")
		return
	}
	writeJSON(w, http.StatusAccepted, documentResponse{Indexed: true, Count: len(req.Documents)})
}
