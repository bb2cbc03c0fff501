package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/learnloop/learnloop/internal/log"
)

// Intent classifies what the user is trying to get out of a question.
type Intent string

const (
	IntentCourseRecommendation Intent = "course_recommendation"
	IntentCourseQA             Intent = "course_qa"
	IntentCareerAdvice         Intent = "career_advice"
	IntentSummarization        Intent = "summarization"
)

// knownIntents is checked in order; parsing scans the classifier output for
// the first label it contains.
var knownIntents = []Intent{
	IntentCourseRecommendation,
	IntentCourseQA,
	IntentCareerAdvice,
	IntentSummarization,
}

const classifySystemPrompt = `You are an intent classifier for a learning platform.
Classify the user's question into exactly one of these categories:
course_recommendation, course_qa, career_advice, summarization.
Respond with only the category name, nothing else.`

const reviewSystemPrompt = `You are a quality reviewer for a learning platform assistant.
You receive a user's question, its classified intent, and a draft answer.
Check the draft for accuracy, clarity, and fit to the intent. Return the
improved final answer only, with no commentary about your changes. If the
draft is already good, return it unchanged.`

// Reviewer refines draft answers through intent classification followed by
// a quality review. Both steps fall back to their input on failure so review
// can never lose an answer that was already generated.
type Reviewer struct {
	gen    TextGenerator
	logger log.Logger
}

// NewReviewer creates a Reviewer using gen for both review steps.
// logger may be nil.
func NewReviewer(gen TextGenerator, logger log.Logger) *Reviewer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Reviewer{gen: gen, logger: logger}
}

// ClassifyIntent determines the question's intent.
// Classification failures and unrecognized labels fall back to IntentCourseQA.
func (r *Reviewer) ClassifyIntent(ctx context.Context, question string) Intent {
	out, err := r.gen.Generate(ctx, classifySystemPrompt, question)
	if err != nil {
		r.logger.Warn("intent classification failed, using default",
			"error", err, "default", IntentCourseQA)
		return IntentCourseQA
	}

	lower := strings.ToLower(out)
	for _, intent := range knownIntents {
		if strings.Contains(lower, string(intent)) {
			return intent
		}
	}

	r.logger.Warn("intent classification returned unknown label, using default",
		"label", out, "default", IntentCourseQA)
	return IntentCourseQA
}

// Review runs the full two-step review and returns the final answer.
// Any failure returns the draft unchanged.
func (r *Reviewer) Review(ctx context.Context, question, draft string) string {
	intent := r.ClassifyIntent(ctx, question)

	prompt := fmt.Sprintf("Question: %s\n\nIntent: %s\n\nDraft answer:\n%s",
		question, intent, draft)
	reviewed, err := r.gen.Generate(ctx, reviewSystemPrompt, prompt)
	if err != nil {
		r.logger.Warn("quality review failed, keeping draft", "error", err, "intent", intent)
		return draft
	}
	if strings.TrimSpace(reviewed) == "" {
		return draft
	}
	return reviewed
}
