package rag

import (
	"fmt"
	"strings"
)

// DefaultInstruction opens every prompt.
const DefaultInstruction = "Answer the query using only the information in the context below. If the context does not contain the answer, say that you do not know."

// BuildContext renders results as "Title: ...\nContent: ..." blocks separated by a blank line.
func BuildContext(results []Result) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("Title: %s\nContent: %s", r.Title, r.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt concatenates the instruction, the literal query and the context block.
func BuildPrompt(instruction, query, context string) string {
	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n\nQuery: ")
	sb.WriteString(query)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(context)
	return sb.String()
}
