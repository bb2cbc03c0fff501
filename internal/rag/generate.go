package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/learnloop/learnloop/internal/log"
)

// ErrEmptyResponse indicates the model returned no usable text.
var ErrEmptyResponse = errors.New("model returned empty response")

// generateTimeout bounds one model call so a hung provider cannot stall a
// request indefinitely.
const generateTimeout = 60 * time.Second

// Generator produces text through a Genkit model.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	logger      log.Logger
}

// NewGenerator creates a Generator for the named model.
// logger may be nil.
func NewGenerator(g *genkit.Genkit, modelName string, temperature float64, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{
		g:           g,
		modelName:   modelName,
		temperature: temperature,
		logger:      logger,
	}
}

// Generate runs one completion with the configured model and temperature.
// Whitespace-only responses are treated as empty and rejected.
func (gen *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithModelName(gen.modelName),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature: gen.temperature,
		}),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	resp, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", gen.modelName, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
