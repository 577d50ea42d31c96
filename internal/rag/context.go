package rag

import (
	"fmt"
	"strings"

	"github.com/upb/sop-assistant/models"
)

// MaxExcerptLength is the number of characters of each document placed in the context
const MaxExcerptLength = 1000

const (
	contextHeader      = "Here is information from relevant SOP documents:\n\n"
	contextInstruction = "Answer the user's question based on the information from these SOP documents. " +
		"If the documents don't contain relevant information, say so and provide a general answer. " +
		"Reference specific documents in your answer when possible (e.g., \"According to Document 1...\")."
)

// AssembleContext renders search results as the instruction block given to the
// model. Documents are labelled from 1 in result order. No results, no block.
func AssembleContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, len(results))
	for i, doc := range results {
		parts[i] = fmt.Sprintf("Document %d [%s - %s]:\n%s", i+1, doc.Category, doc.Title, excerpt(doc.Content))
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	b.WriteString(strings.Join(parts, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(contextInstruction)
	return b.String()
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxExcerptLength {
		return content
	}
	return string(runes[:MaxExcerptLength]) + "..."
}

// InjectContext returns a copy of messages with a system message holding block
// inserted right before the last user message. An empty block, or a history
// without user messages, yields an unchanged copy.
func InjectContext(messages []models.Message, block string) []models.Message {
	idx := models.LastUserMessage(messages)
	if block == "" || idx < 0 {
		return append([]models.Message(nil), messages...)
	}

	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, messages[:idx]...)
	out = append(out, models.NewSystemMessage(block))
	out = append(out, messages[idx:]...)
	return out
}
