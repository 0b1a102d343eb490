// Package evidence picks the bounded slice of documents and interaction
// notes that backs a single question.
package evidence

import (
	"strings"
	"unicode/utf8"

	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/extract"
)

// Per-section character budgets, counted in runes.
const (
	AuditBudget = 2000
	OpsBudget   = 1000
	NotesBudget = 1500

	EscalationLimit = 5
	SentimentLimit  = 3

	// LowSentiment is the exclusive upper bound for the sentiment trigger.
	LowSentiment = 0.3
)

const (
	AuditLabel = "Escalation Audit Report Snippet"
	OpsLabel   = "Operations Report Snippet"
	NotesLabel = "Relevant Customer Interaction Notes"

	AuditPlaceholder = "(PDF not loaded or empty)"
	OpsPlaceholder   = "(TXT not loaded or empty)"
	NotesPlaceholder = "(No specific notes found for this query)"
)

// TruncationMarker follows a cut section body and counts toward its budget.
const TruncationMarker = "..."

var (
	escalationKeywords = []string{"escalation", "root cause", "failure"}
	sentimentKeywords  = []string{"sentiment", "customer feedback"}
	escalationActions  = []string{"escalated", "transferred"}
)

// Trigger names a keyword rule that fired for a query.
type Trigger string

const (
	TriggerEscalation Trigger = "escalation"
	TriggerSentiment  Trigger = "sentiment"
)

// Snippet is one labeled section of evidence.
type Snippet struct {
	Label       string `json:"label"`
	Text        string `json:"text"`
	Truncated   bool   `json:"truncated"`
	Placeholder bool   `json:"placeholder"`
}

// Selection is the evidence chosen for one query.
type Selection struct {
	Audit     Snippet   `json:"audit"`
	Ops       Snippet   `json:"ops"`
	Notes     Snippet   `json:"notes"`
	Triggers  []Trigger `json:"triggers,omitempty"`
	NoteCount int       `json:"note_count"`
}

// Snippets returns the sections in prompt order.
func (s Selection) Snippets() []Snippet {
	return []Snippet{s.Audit, s.Ops, s.Notes}
}

// RecordSource is the part of a dataset the selector reads.
type RecordSource interface {
	Filter(pred func(dataset.InteractionRecord) bool, limit int) []dataset.InteractionRecord
}

// Select applies the keyword triggers to query and returns the labeled,
// truncated evidence. It does not modify records or corpus.
func Select(records RecordSource, corpus extract.Corpus, query string) Selection {
	sel := Selection{
		Audit: documentSnippet(AuditLabel, corpus.Audit, AuditBudget, AuditPlaceholder),
		Ops:   documentSnippet(OpsLabel, corpus.Ops, OpsBudget, OpsPlaceholder),
	}

	q := strings.ToLower(query)
	var notes []string

	if containsAny(q, escalationKeywords) {
		sel.Triggers = append(sel.Triggers, TriggerEscalation)
		if records != nil {
			for _, r := range records.Filter(isEscalated, EscalationLimit) {
				notes = append(notes, r.InteractionNotes)
			}
		}
	}
	if containsAny(q, sentimentKeywords) {
		sel.Triggers = append(sel.Triggers, TriggerSentiment)
		if records != nil {
			for _, r := range records.Filter(isLowSentiment, SentimentLimit) {
				notes = append(notes, r.InteractionNotes)
			}
		}
	}

	sel.NoteCount = len(notes)
	if len(notes) == 0 {
		sel.Notes = Snippet{Label: NotesLabel, Text: NotesPlaceholder, Placeholder: true}
	} else {
		text, cut := fit(strings.Join(notes, " "), NotesBudget)
		sel.Notes = Snippet{Label: NotesLabel, Text: text, Truncated: cut}
	}
	return sel
}

func documentSnippet(label string, doc extract.Document, budget int, placeholder string) Snippet {
	if !doc.Loaded() {
		return Snippet{Label: label, Text: placeholder, Placeholder: true}
	}
	text, cut := fit(doc.Text, budget)
	return Snippet{Label: label, Text: text, Truncated: cut}
}

func isEscalated(r dataset.InteractionRecord) bool {
	return containsAny(strings.ToLower(r.ActionTaken), escalationActions)
}

func isLowSentiment(r dataset.InteractionRecord) bool {
	return r.SentimentScore < LowSentiment
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// fit cuts s so that the kept text plus TruncationMarker is at most budget
// runes. Text that already fits is returned unchanged.
func fit(s string, budget int) (string, bool) {
	if _, cut := Truncate(s, budget); !cut {
		return s, false
	}
	text, _ := Truncate(s, budget-utf8.RuneCountInString(TruncationMarker))
	return text, true
}

// Truncate returns the first n runes of s and whether anything was cut.
func Truncate(s string, n int) (string, bool) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
