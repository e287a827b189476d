package pipeline

import (
	"fmt"
	"strings"

	"commerce-answers/internal/lang"
)

const systemPromptTemplate = `You are a shop assistant answering customer questions about products.
Rules:
- Use only the numbered context snippets. Do not rely on outside knowledge.
- If the snippets do not answer the question, say that you are not sure and ask one short clarifying question.
- Never invent guarantees, medical effects or efficacy claims that the snippets do not state.
- Do not quote prices or stock levels.
- Keep the answer short and friendly, and refer to products by name.
- Answer in %s.`

func systemPrompt(code string) string {
	return fmt.Sprintf(systemPromptTemplate, lang.Name(code))
}

func userPrompt(question string, snippets []Snippet) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(formatSnippets(snippets))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}
