// Package rag implements the retrieval-augmented answering pipeline.
//
// The pipeline turns a user prompt into a grounded answer in stages:
//
//  1. Extract the bare question from the prompt (callers may prepend
//     context such as the user's enrolled courses).
//  2. Embed the question and retrieve the user's most similar document
//     chunks from the vector store.
//  3. Search the course catalog for related courses.
//  4. Assemble retrieved material into a context block and pick a system
//     prompt based on the question's phrasing.
//  5. Generate a draft answer.
//  6. Optionally refine the draft through a two-step review: classify the
//     question's intent, then review the draft for quality.
//
// Every stage degrades gracefully. Retrieval failures shrink the context
// instead of failing the query, review failures fall back to the draft, and
// generation failures produce a fixed apology. AnswerQuery never returns an
// error and never returns an empty string.
package rag
