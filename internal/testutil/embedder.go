package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockEmbedderName is the provider-qualified name the mock registers under.
const MockEmbedderName = "mock/test-embedder"

// MockEmbedder produces deterministic embeddings for testing.
// The same text always yields the same vector, so similarity relationships
// are stable across test runs. Vectors are L2-normalized.
type MockEmbedder struct {
	dim  int
	mu   sync.Mutex
	fail error
}

// NewMockEmbedder creates a mock embedder producing vectors of the given
// dimension.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{dim: dim}
}

// FailWith makes every subsequent embed call return err.
// Pass nil to restore normal behavior.
func (m *MockEmbedder) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// RegisterEmbedder registers the mock as a Genkit embedder and returns a
// reference.
func (m *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, MockEmbedderName, &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: m.dim,
	}, m.embed)
}

func (m *MockEmbedder) embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.mu.Lock()
	fail := m.fail
	m.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: DeterministicVector(text, m.dim),
		})
	}
	return resp, nil
}

// DeterministicVector derives an L2-normalized vector of the given dimension
// from text. Identical text maps to identical vectors.
func DeterministicVector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))

	// Expand the seed hash with counter-mode hashing until the vector is full.
	var norm float64
	for i := 0; i < dim; i++ {
		block := i / 8
		slot := i % 8
		h := sha256.Sum256(append(seed[:], byte(block), byte(block>>8)))
		bits := binary.BigEndian.Uint32(h[slot*4 : slot*4+4])
		// Map to [-1, 1).
		v := float32(int32(bits)) / float32(math.MaxInt32)
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
