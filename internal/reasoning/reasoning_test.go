package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/rootcause/internal/config"
)

type countingGenerator struct {
	calls int
	reply string
	err   error
}

func (g *countingGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func TestUnavailableNeverCallsProvider(t *testing.T) {
	s := Unavailable(ProviderGemini, "no API key configured")

	_, err := s.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, s.Available())
	assert.Equal(t, "no API key configured", s.Reason())
}

func TestNewWithoutKeyIsUnavailable(t *testing.T) {
	for _, p := range []string{"", ProviderGemini, ProviderAnthropic, ProviderOpenRouter} {
		s := New(context.Background(), config.ReasoningConfig{Provider: p})
		assert.False(t, s.Available(), p)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	s := New(context.Background(), config.ReasoningConfig{Provider: "mystery", APIKey: "k"})
	assert.False(t, s.Available())
	assert.Contains(t, s.Reason(), "mystery")
}

func TestNewDefaultsModel(t *testing.T) {
	s := New(context.Background(), config.ReasoningConfig{Provider: "Gemini", APIKey: "k"})
	require.True(t, s.Available())
	assert.Equal(t, ProviderGemini, s.Provider())
	assert.Equal(t, "gemini-2.5-pro", s.Model())
}

func TestOllamaNeedsNoKey(t *testing.T) {
	s := New(context.Background(), config.ReasoningConfig{Provider: ProviderOllama})
	assert.True(t, s.Available())
}

func TestServiceDelegates(t *testing.T) {
	g := &countingGenerator{reply: "answer"}
	s := NewWithGenerator("fake", "m", g)

	out, err := s.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 1, g.calls)
}

func TestServiceDoesNotRetry(t *testing.T) {
	g := &countingGenerator{err: errors.New("429 too many requests")}
	s := NewWithGenerator("fake", "m", g)

	_, err := s.Generate(context.Background(), "p")
	assert.Error(t, err)
	assert.Equal(t, 1, g.calls)
}

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotKey string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Root cause: staffing."}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "test-key", "gemini-2.5-pro", srv.URL)
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), "why?")
	require.NoError(t, err)
	assert.Equal(t, "Root cause: staffing.", out)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-2.5-pro:generateContent"), gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, body, "contents")
}

func TestGeminiServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "bad", "gemini-2.5-pro", srv.URL)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "why?")
	assert.Error(t, err)
}

func TestAnthropicGenerate(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req["model"])
		assert.EqualValues(t, 256, req["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-test",
			"stop_reason": "end_turn",
			"content":     []map[string]any{{"type": "text", "text": "Escalations "}, {"type": "text", "text": "rose."}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 3},
		})
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "claude-test", srv.URL, 256)
	out, err := a.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Escalations rose.", out)
	assert.Equal(t, 1, calls)
}

func TestAnthropicNoRetryOnRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropic("k", "claude-test", srv.URL, 0).Generate(context.Background(), "p")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOpenRouterGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.Equal(t, "rootcause", r.Header.Get("X-Title"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "google/gemini-2.5-pro", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "prompt text", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenRouter("or-key", "google/gemini-2.5-pro", srv.URL+"/").Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestOpenRouterErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	_, err := NewOpenRouter("k", "m", srv.URL).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, calls)
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenRouter("k", "m", srv.URL).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3.1", req.Model)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"local answer"}}`))
	}))
	defer srv.Close()

	out, err := NewOllama("llama3.1", srv.URL).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama("missing", srv.URL).Generate(context.Background(), "p")
	assert.Error(t, err)
}

func TestWithGeneratorStillChecksCredential(t *testing.T) {
	g := &countingGenerator{reply: "x"}

	s := New(context.Background(), config.ReasoningConfig{Provider: ProviderGemini}, WithGenerator(g))
	_, err := s.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, g.calls)

	s = New(context.Background(), config.ReasoningConfig{Provider: ProviderGemini, APIKey: "k"}, WithGenerator(g))
	out, err := s.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
	assert.Equal(t, 1, g.calls)
}
