package composer

import (
	"strings"

	"github.com/kalambet/rootcause/internal/evidence"
)

const instructions = `You are an expert AI assistant tasked with analyzing customer support and operational data to determine root causes.
You have access to information from:
1. An escalation audit report (PDF)
2. An operations report (TXT)
3. Customer interaction records (CSV)

Here is the relevant context extracted from these documents:
`

const answerRule = "Based *only* on the provided context, answer the following question. If the information is not in the context, state that clearly."

// Prompt is the assembled request for the reasoning service.
type Prompt struct {
	// Context is the labeled evidence block.
	Context  string
	Question string
	// Text is the exact payload sent to the model.
	Text string
}

// Composer assembles prompts from selected evidence and the user's question.
type Composer struct{}

func New() *Composer {
	return &Composer{}
}

// Compose lays out the audit, operations and notes sections in that order,
// wraps them in the fixed instructions, and appends the question verbatim.
func (c *Composer) Compose(sel evidence.Selection, question string) Prompt {
	ctx := FormatContext(sel)

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString(ctx)
	sb.WriteString("\n")
	sb.WriteString(answerRule)
	sb.WriteString("\n\nUser's Question: ")
	sb.WriteString(question)
	sb.WriteString("\n")

	return Prompt{Context: ctx, Question: question, Text: sb.String()}
}

// FormatContext renders the selection as newline-joined labeled sections.
func FormatContext(sel evidence.Selection) string {
	snippets := sel.Snippets()
	sections := make([]string, 0, len(snippets))
	for _, s := range snippets {
		sections = append(sections, formatSection(s))
	}
	return strings.Join(sections, "\n")
}

func formatSection(s evidence.Snippet) string {
	body := s.Text
	if s.Truncated {
		body += evidence.TruncationMarker
	}
	return "--- " + s.Label + " ---\n" + body + "\n"
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
