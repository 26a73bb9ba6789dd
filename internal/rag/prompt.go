package rag

import (
	"fmt"
	"strings"

	"axon/internal/llm"
)

// maxHistoryMessages bounds how many prior turns ride along with a question.
const maxHistoryMessages = 10

const systemPromptHeader = `You are a helpful code assistant with access to a codebase.
Use the provided code context to answer the user's question accurately.

IMPORTANT GUIDELINES:
- Reference specific files, methods, and line numbers when relevant
- If the context doesn't contain enough information, say so clearly
- Provide code examples from the context when helpful
- Explain how different parts of the code work together
- Be concise but thorough`

const systemPromptFooter = `If no relevant code context is provided, let the user know that you need more specific information or that the code might not be in the indexed repositories.`

// BuildContext renders retrieved chunks as markdown blocks with their score,
// location, and fenced source.
func BuildContext(results []Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		c := r.Chunk
		name := c.Name
		if name == "" {
			name = "N/A"
		}
		parts[i] = fmt.Sprintf(
			"## Code Context %d (Score: %.3f)\n**File**: %s (lines %d-%d)\n**Type**: %s\n**Name**: %s\n```%s\n%s\n```\n",
			i+1, r.Score, c.Path, c.StartLine, c.EndLine, c.Kind, name, c.Language, c.Content,
		)
	}
	return strings.Join(parts, "\n")
}

// BuildMessages assembles the chat prompt: a system message grounded in the
// retrieved context, the most recent turns of history, then the question.
func BuildMessages(results []Result, history []llm.Message, question string) []llm.Message {
	sys := systemPromptHeader + "\n\nCODE CONTEXT:\n" + BuildContext(results) + "\n\n" + systemPromptFooter

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: sys})
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}
