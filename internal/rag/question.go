package rag

import "strings"

// questionSeparator splits caller-supplied context from the bare question.
// Callers such as the chat handler prepend enrollment context followed by
// this separator.
const questionSeparator = "\n\nQuestion: "

// SplitQuestion separates caller context from the bare question.
//
// The prompt is split on the last occurrence of the question separator so
// that a separator appearing inside the context itself does not truncate
// the question. A prompt without the separator is treated as a bare
// question with no caller context.
func SplitQuestion(prompt string) (callerContext, question string) {
	idx := strings.LastIndex(prompt, questionSeparator)
	if idx < 0 {
		return "", prompt
	}
	return prompt[:idx], prompt[idx+len(questionSeparator):]
}

// JoinQuestion builds a prompt from caller context and a question using the
// separator SplitQuestion recognizes. Empty context yields the bare question.
func JoinQuestion(callerContext, question string) string {
	if callerContext == "" {
		return question
	}
	return callerContext + questionSeparator + question
}
