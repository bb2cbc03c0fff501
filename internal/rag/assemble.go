package rag

import (
	"strings"

	"github.com/learnloop/learnloop/internal/catalog"
)

// Context assembly limits. Excerpts are truncated so a handful of long
// documents cannot crowd everything else out of the prompt.
const (
	maxDocExcerpts   = 3
	maxCourseEntries = 5
	excerptRunes     = 200
)

// Placeholder lines used when a retrieval stage produced nothing. The
// generation prompt always carries both sections so the model knows the
// retrieval happened and came up empty.
const (
	noDocumentsPlaceholder = "No relevant user documents found."
	noCoursesPlaceholder   = "No relevant courses found."
)

// AssembleContext builds the context block for generation from caller
// context, retrieved document excerpts, and matched catalog courses.
//
// AssembleContext is pure: it performs no I/O and the same inputs always
// produce the same output.
func AssembleContext(callerContext string, docs []string, courses []catalog.Course) string {
	var sb strings.Builder

	if callerContext != "" {
		sb.WriteString(callerContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Relevant user documents:\n")
	if len(docs) == 0 {
		sb.WriteString(noDocumentsPlaceholder)
	} else {
		if len(docs) > maxDocExcerpts {
			docs = docs[:maxDocExcerpts]
		}
		for i, doc := range docs {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString("- ")
			sb.WriteString(excerpt(doc))
		}
	}

	sb.WriteString("\n\nRelevant courses:\n")
	if len(courses) == 0 {
		sb.WriteString(noCoursesPlaceholder)
	} else {
		if len(courses) > maxCourseEntries {
			courses = courses[:maxCourseEntries]
		}
		for i, c := range courses {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(c.Summary())
		}
	}

	return sb.String()
}

// excerpt truncates a document to the excerpt length, marking the cut.
func excerpt(doc string) string {
	runes := []rune(doc)
	if len(runes) <= excerptRunes {
		return doc
	}
	return string(runes[:excerptRunes]) + "..."
}
