package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyQuery        = errors.New("query is empty")
	ErrUnknownSuggestion = errors.New("no such suggested question")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation.
type Turn struct {
	Role    Role       `json:"role"`
	Content string     `json:"content"`
	At      time.Time  `json:"at"`
	Kind    AnswerKind `json:"kind,omitempty"`
}

// Asker answers a single query.
type Asker interface {
	Ask(ctx context.Context, query string) Answer
}

// Session is an append-only conversation with one owner. It is not safe
// for concurrent use.
type Session struct {
	ID      string
	Created time.Time

	asker Asker
	turns []Turn
	now   func() time.Time
}

func NewSession(a Asker) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		asker:   a,
		now:     time.Now,
	}
}

// Ask records the user turn, runs the query and records the reply, error
// replies included. Blank queries are rejected before anything is recorded.
func (s *Session) Ask(ctx context.Context, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, ErrEmptyQuery
	}

	s.turns = append(s.turns, Turn{Role: RoleUser, Content: query, At: s.now()})
	ans := s.asker.Ask(ctx, query)
	s.turns = append(s.turns, Turn{Role: RoleAssistant, Content: ans.Text, At: s.now(), Kind: ans.Kind})
	return ans, nil
}

// AskSuggestion asks the n-th (1-based) suggested question.
func (s *Session) AskSuggestion(ctx context.Context, n int) (Answer, error) {
	q, ok := Suggestion(n)
	if !ok {
		return Answer{}, ErrUnknownSuggestion
	}
	return s.Ask(ctx, q)
}

// History returns a copy of the turns so far.
func (s *Session) History() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int { return len(s.turns) }
