package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kalambet/rootcause/internal/composer"
	"github.com/kalambet/rootcause/internal/evidence"
	"github.com/kalambet/rootcause/internal/reasoning"
)

// AnswerKind classifies how a query ended.
type AnswerKind string

const (
	KindOK          AnswerKind = "ok"
	KindUnavailable AnswerKind = "unavailable"
	KindError       AnswerKind = "error"
)

// UnavailableMessage is the answer when no reasoning provider is configured.
const UnavailableMessage = "AI model not available due to API configuration issues. Cannot generate response."

func errorMessage(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error when trying to generate a response: %v\n\nPlease check your API key and connection.", err)
}

// Answer is the result of one query. Text is always set and is what the
// shells render.
type Answer struct {
	Text      string             `json:"text"`
	Kind      AnswerKind         `json:"kind"`
	Err       error              `json:"-"`
	Prompt    composer.Prompt    `json:"-"`
	Selection evidence.Selection `json:"selection"`
	Duration  time.Duration      `json:"duration_ns"`
}

// Assistant answers questions from a snapshot.
type Assistant struct {
	snap      *Snapshot
	composer  *composer.Composer
	reasoning *reasoning.Service
	log       *zap.Logger
}

func NewAssistant(snap *Snapshot, svc *reasoning.Service) *Assistant {
	return &Assistant{
		snap:      snap,
		composer:  composer.New(),
		reasoning: svc,
		log:       zap.L().With(zap.String("component", "pipeline")),
	}
}

func (a *Assistant) Snapshot() *Snapshot { return a.snap }

func (a *Assistant) Reasoning() *reasoning.Service { return a.reasoning }

// Ask selects evidence for query, assembles the prompt and calls the
// reasoning service once. Reasoning failures are reported in the Answer.
func (a *Assistant) Ask(ctx context.Context, query string) Answer {
	start := time.Now()

	var sel evidence.Selection
	if a.snap.Dataset != nil {
		sel = evidence.Select(a.snap.Dataset, a.snap.Corpus, query)
	} else {
		sel = evidence.Select(nil, a.snap.Corpus, query)
	}
	prompt := a.composer.Compose(sel, query)

	ans := Answer{Prompt: prompt, Selection: sel}

	text, err := a.reasoning.Generate(ctx, prompt.Text)
	switch {
	case errors.Is(err, reasoning.ErrUnavailable):
		ans.Kind, ans.Text, ans.Err = KindUnavailable, UnavailableMessage, err
	case err != nil:
		ans.Kind, ans.Text, ans.Err = KindError, errorMessage(err), err
	default:
		ans.Kind, ans.Text = KindOK, text
	}
	ans.Duration = time.Since(start)

	fields := []zap.Field{
		zap.String("kind", string(ans.Kind)),
		zap.Any("triggers", sel.Triggers),
		zap.Int("notes", sel.NoteCount),
		zap.Int("prompt_tokens_est", composer.EstimateTokens(prompt.Text)),
		zap.Duration("duration", ans.Duration),
	}
	if ans.Kind == KindError {
		a.log.Warn("query failed", append(fields, zap.Error(err))...)
	} else {
		a.log.Info("query answered", fields...)
	}
	return ans
}
