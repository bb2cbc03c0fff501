// Package embedding converts text into fixed-length dense vectors for
// semantic comparison.
//
// One Service instance is shared by the ingestion and query paths so that
// documents and queries always live in the same embedding space. The
// underlying model is a Genkit ai.Embedder; for a fixed model version the
// output is deterministic.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// ErrEmptyInput indicates a batch contained no embeddable text.
// Empty strings fail the whole batch rather than silently producing a
// zero-effort vector, on both the ingestion and query paths.
var ErrEmptyInput = errors.New("empty embedding input")

// embedTimeout bounds a single embedding call.
const embedTimeout = 30 * time.Second

// Service generates embeddings through a Genkit embedder.
//
// Service is safe for concurrent use by multiple goroutines.
type Service struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Service backed by the given embedder.
// logger may be nil (defaults to slog.Default()).
func New(embedder ai.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embedder: embedder, logger: logger}
}

// Embed embeds a batch of texts in a single request, preserving input order.
// An empty slice returns an empty result without calling the model.
// Any empty text, or any model error, fails the whole batch.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d", ErrEmptyInput, i)
		}
		docs[i] = ai.DocumentFromText(text, nil)
	}

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(embedCtx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d: %w", len(texts), err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
		vectors[i] = emb.Embedding
	}

	s.logger.Debug("embedded batch", "count", len(vectors), "dim", len(vectors[0]))
	return vectors, nil
}

// EmbedOne embeds a single text. It goes through the same path as Embed so
// queries and documents share one embedding space.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
