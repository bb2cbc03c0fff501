package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnloop/learnloop/internal/catalog"
	"github.com/learnloop/learnloop/internal/log"
	"github.com/learnloop/learnloop/internal/vecstore"
)

// TextGenerator produces one completion for a system/prompt pair.
// Implemented by Generator; tests substitute fakes.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Embedder turns text into vectors.
// Implemented by embedding.Service.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// DocumentStore persists and searches user document vectors.
// Implemented by vecstore.Store.
type DocumentStore interface {
	EnsureCollection(ctx context.Context, name string, dimension int, metric string) error
	Upsert(ctx context.Context, collection string, points []vecstore.Point) error
	Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]string) ([]vecstore.Match, error)
}

// CourseFinder searches the course catalog.
// Implemented by catalog.Store.
type CourseFinder interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Course, error)
}

// AnswerReviewer refines a draft answer. Implemented by Reviewer.
type AnswerReviewer interface {
	Review(ctx context.Context, question, draft string) string
}

// Payload keys stored with each document vector.
const (
	payloadContent    = "content"
	payloadUserID     = "user_id"
	payloadSource     = "source"
	payloadUploadedAt = "uploaded_at"
)

// apologyFormat is the fallback answer when generation fails outright.
const apologyFormat = "I couldn't process that request. Please try again. (Error: %v)"

// Document is one piece of user-uploaded content to index.
type Document struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// defaultVectorDim matches the embedding dimension of the default models.
const defaultVectorDim = 384

// Config tunes the pipeline. Zero values fall back to defaults.
type Config struct {
	Collection  string // vector collection name, default vecstore.DefaultCollection
	VectorDim   int    // embedding dimension, default 384
	DocTopK     int    // document excerpts retrieved per query, default 3
	CourseLimit int    // catalog matches per query, default 5
	ReviewDraft bool   // run the two-step review on draft answers
}

// Pipeline orchestrates document indexing and retrieval-augmented answering.
type Pipeline struct {
	embedder Embedder
	docs     DocumentStore
	courses  CourseFinder
	gen      TextGenerator
	reviewer AnswerReviewer
	cfg      Config
	logger   log.Logger

	// now is swappable for deterministic point IDs in tests.
	now func() time.Time
}

// NewPipeline wires the pipeline's stages together.
// reviewer may be nil when cfg.ReviewDraft is false; logger may be nil.
func NewPipeline(embedder Embedder, docs DocumentStore, courses CourseFinder,
	gen TextGenerator, reviewer AnswerReviewer, cfg Config, logger log.Logger) *Pipeline {
	if cfg.Collection == "" {
		cfg.Collection = vecstore.DefaultCollection
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = defaultVectorDim
	}
	if cfg.DocTopK <= 0 {
		cfg.DocTopK = maxDocExcerpts
	}
	if cfg.CourseLimit <= 0 {
		cfg.CourseLimit = maxCourseEntries
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		embedder: embedder,
		docs:     docs,
		courses:  courses,
		gen:      gen,
		reviewer: reviewer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// AddDocuments embeds and indexes a user's documents, reporting success.
//
// The shared collection is verified (and created on first use) before any
// embedding happens; a schema mismatch fails the call. All documents in the
// batch are embedded in one call and upserted in one statement, so a batch
// either lands entirely or not at all. An empty batch succeeds without
// touching the store. Failures are logged, never returned: callers only need
// to know whether the documents are now searchable.
func (p *Pipeline) AddDocuments(ctx context.Context, userID string, documents []Document) bool {
	if userID == "" {
		p.logger.Warn("add documents rejected: empty user ID")
		return false
	}
	if len(documents) == 0 {
		return true
	}

	if err := p.docs.EnsureCollection(ctx, p.cfg.Collection, p.cfg.VectorDim, vecstore.MetricCosine); err != nil {
		p.logger.Error("add documents: collection unavailable",
			"user_id", userID, "collection", p.cfg.Collection, "error", err)
		return false
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Content
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		p.logger.Error("add documents: embedding failed",
			"user_id", userID, "count", len(documents), "error", err)
		return false
	}

	uploadedAt := p.now()
	batchStamp := uploadedAt.UnixNano()
	points := make([]vecstore.Point, len(documents))
	for i, doc := range documents {
		points[i] = vecstore.Point{
			ID:     fmt.Sprintf("%s_%d_%d", userID, i, batchStamp),
			Vector: vectors[i],
			Payload: map[string]string{
				payloadContent:    doc.Content,
				payloadUserID:     userID,
				payloadSource:     doc.Source,
				payloadUploadedAt: uploadedAt.UTC().Format(time.RFC3339),
			},
		}
	}

	if err := p.docs.Upsert(ctx, p.cfg.Collection, points); err != nil {
		p.logger.Error("add documents: upsert failed",
			"user_id", userID, "count", len(points), "error", err)
		return false
	}

	p.logger.Info("documents indexed", "user_id", userID, "count", len(points))
	return true
}

// AnswerQuery answers a user prompt with retrieval-augmented generation.
//
// It never returns an error and never returns an empty string. Retrieval
// failures shrink the available context, review failures fall back to the
// draft, and a generation failure yields a fixed apology describing the
// error.
func (p *Pipeline) AnswerQuery(ctx context.Context, userID, prompt string) string {
	callerContext, question := SplitQuestion(prompt)

	docs := p.retrieveDocuments(ctx, userID, question)
	courses := p.retrieveCourses(ctx, question)

	contextBlock := AssembleContext(callerContext, docs, courses)
	kind := SelectPrompt(question)

	fullPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
	draft, err := p.gen.Generate(ctx, SystemPrompt(kind), fullPrompt)
	if err != nil {
		p.logger.Error("answer generation failed", "user_id", userID, "error", err)
		return fmt.Sprintf(apologyFormat, err)
	}
	if strings.TrimSpace(draft) == "" {
		p.logger.Error("answer generation returned blank text", "user_id", userID)
		return fmt.Sprintf(apologyFormat, ErrEmptyResponse)
	}

	if !p.cfg.ReviewDraft || p.reviewer == nil {
		return draft
	}
	return p.reviewer.Review(ctx, question, draft)
}

// retrieveDocuments returns the user's most similar document excerpts.
// Any failure returns nil so answering continues without document context.
func (p *Pipeline) retrieveDocuments(ctx context.Context, userID, question string) []string {
	vector, err := p.embedder.EmbedOne(ctx, question)
	if err != nil {
		p.logger.Warn("query embedding failed, skipping document retrieval",
			"user_id", userID, "error", err)
		return nil
	}

	matches, err := p.docs.Search(ctx, p.cfg.Collection, vector, p.cfg.DocTopK,
		map[string]string{payloadUserID: userID})
	if err != nil {
		p.logger.Warn("document search failed, continuing without documents",
			"user_id", userID, "error", err)
		return nil
	}

	docs := make([]string, 0, len(matches))
	for _, m := range matches {
		if content := m.Payload[payloadContent]; content != "" {
			docs = append(docs, content)
		}
	}
	return docs
}

// retrieveCourses returns catalog courses matching the question.
// Any failure returns nil so answering continues without course context.
func (p *Pipeline) retrieveCourses(ctx context.Context, question string) []catalog.Course {
	courses, err := p.courses.Search(ctx, question, p.cfg.CourseLimit)
	if err != nil {
		p.logger.Warn("course search failed, continuing without courses", "error", err)
		return nil
	}
	return courses
}
