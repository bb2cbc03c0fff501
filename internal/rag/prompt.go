package rag

import "strings"

// PromptKind selects the system prompt used for generation.
type PromptKind string

const (
	// PromptStandard is the default learning assistant persona.
	PromptStandard PromptKind = "standard"

	// PromptSimplified explains concepts in language a young child could
	// follow. Selected when the question asks for a child-level explanation.
	PromptSimplified PromptKind = "simplified"
)

// simplifiedTriggers are matched case-insensitively against the question.
var simplifiedTriggers = []string{
	"six-year-old",
	"six year old",
	"child",
}

// SelectPrompt picks the system prompt for a question based on its phrasing.
func SelectPrompt(question string) PromptKind {
	lower := strings.ToLower(question)
	for _, trigger := range simplifiedTriggers {
		if strings.Contains(lower, trigger) {
			return PromptSimplified
		}
	}
	return PromptStandard
}

// SystemPrompt returns the system instruction text for the given kind.
// Unknown kinds fall back to the standard prompt.
func SystemPrompt(kind PromptKind) string {
	if kind == PromptSimplified {
		return simplifiedSystemPrompt
	}
	return standardSystemPrompt
}

const standardSystemPrompt = `You are a helpful learning assistant for an online course platform.
Answer the user's question using the provided context: their uploaded documents,
their enrolled courses, and relevant courses from the catalog. Ground your
answer in the context when it is relevant, and say so when the context does not
cover the question. Recommend specific courses from the context when they fit
the user's goals. Be concise and practical.`

const simplifiedSystemPrompt = `You are a friendly teacher explaining things to a six-year-old child.
Answer the user's question using the provided context, but explain everything
in very simple words, short sentences, and everyday comparisons a young child
would understand. Avoid jargon entirely.`
