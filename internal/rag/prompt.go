package rag

import (
	"fmt"
	"strings"
)

const (
	// RefusalMessage is streamed verbatim when a document-grounded session
	// has no retrievable content for the question.
	RefusalMessage = "I could not find relevant information in the uploaded documents to answer your question. Please try rephrasing, or upload a document that covers this topic."

	// ApologyMessage is streamed verbatim when the model provider fails.
	ApologyMessage = "I'm sorry, something went wrong while generating a response. Please try again."

	plainSystemInstruction = "You are a helpful assistant. Answer the user's questions clearly and concisely."

	groundedSystemInstruction = `You are a document assistant. Answer the user's question using only the document excerpts below. If the excerpts do not contain the answer, say so plainly instead of guessing.

Document excerpts:
%s`
)

// BuildSystemInstruction assembles the system prompt for one turn. With no
// candidates the plain instruction is used; with candidates the strict
// grounding instruction carries the excerpt block. Web results, when
// present, are appended to either form.
func BuildSystemInstruction(accepted []Candidate, webResults string) string {
	var instruction string
	if len(accepted) == 0 {
		instruction = plainSystemInstruction
	} else {
		blocks := make([]string, len(accepted))
		for i, c := range accepted {
			blocks[i] = c.Chunk.Text
		}
		instruction = fmt.Sprintf(groundedSystemInstruction, strings.Join(blocks, "\n---\n"))
	}
	if webResults != "" {
		instruction += "\n\n" + webResults
	}
	return instruction
}
