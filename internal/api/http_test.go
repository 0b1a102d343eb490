package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/rootcause/internal/pipeline"
)

func newTestHandler(t *testing.T, token string) (http.Handler, *mockAsker) {
	t.Helper()
	asker := &mockAsker{}
	return NewHandler(Deps{
		Sessions: NewSessions(asker),
		Status:   mockStatus{},
		Stats:    mockDashboard{d: sampleDashboard()},
		Token:    token,
	}), asker
}

func do(h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, "secret")
	w := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	h, _ := newTestHandler(t, "secret")

	w := do(h, http.MethodGet, "/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/v1/status", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(h, http.MethodGet, "/v1/status", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNoAuthWithoutToken(t *testing.T) {
	h, _ := newTestHandler(t, "")
	w := do(h, http.MethodGet, "/v1/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st pipeline.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 42, st.Dataset.Records)
}

func TestSuggestions(t *testing.T) {
	h, _ := newTestHandler(t, "")
	w := do(h, http.MethodGet, "/v1/suggestions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []suggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 5)
	assert.Equal(t, 1, body.Suggestions[0].N)
	assert.Equal(t, "What are the main escalation patterns?", body.Suggestions[0].Question)
}

func TestStats(t *testing.T) {
	h, _ := newTestHandler(t, "")
	w := do(h, http.MethodGet, "/v1/stats?top=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	depts := body["departments"].([]any)
	require.Len(t, depts, 1)
	assert.Equal(t, "Support", depts[0].(map[string]any)["name"])
}

func TestStatsError(t *testing.T) {
	h := NewHandler(Deps{
		Sessions: NewSessions(&mockAsker{}),
		Status:   mockStatus{},
		Stats:    mockDashboard{err: errWarehouse},
	})
	w := do(h, http.MethodGet, "/v1/stats", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "warehouse offline")
}

func TestAskCreatesAndContinuesSession(t *testing.T) {
	h, asker := newTestHandler(t, "")

	w := do(h, http.MethodPost, "/v1/ask", `{"query":"What is the root cause?"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "answer to What is the root cause?", first.Answer)
	assert.Equal(t, pipeline.KindOK, first.Kind)
	assert.Equal(t, []string{"escalation"}, first.Triggers)
	assert.Equal(t, 2, first.NoteCount)

	body, _ := json.Marshal(AskRequest{Suggestion: 2, SessionID: first.SessionID})
	w = do(h, http.MethodPost, "/v1/ask", string(body), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)

	assert.Equal(t, []string{"What is the root cause?", "Which departments have the highest response times?"}, asker.queries)

	w = do(h, http.MethodGet, "/v1/sessions/"+first.SessionID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.Len(t, sess.Turns, 4)
	assert.Equal(t, pipeline.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, pipeline.RoleAssistant, sess.Turns[3].Role)
}

func TestAskValidation(t *testing.T) {
	h, asker := newTestHandler(t, "")

	cases := map[string]struct {
		body string
		code int
	}{
		"invalid json":    {`{`, http.StatusBadRequest},
		"blank query":     {`{"query":"   "}`, http.StatusBadRequest},
		"bad suggestion":  {`{"suggestion":9}`, http.StatusBadRequest},
		"unknown session": {`{"query":"hi","session_id":"nope"}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/v1/ask", tc.body, nil)
			assert.Equal(t, tc.code, w.Code)
		})
	}
	assert.Empty(t, asker.queries)
}

func TestAskBodyTooLarge(t *testing.T) {
	h, _ := newTestHandler(t, "")
	big := `{"query":"` + string(bytes.Repeat([]byte("a"), maxRequestBodySize+1)) + `"}`
	w := do(h, http.MethodPost, "/v1/ask", big, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t, "")
	w := do(h, http.MethodGet, "/v1/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseIntParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?top=7&neg=-1&bad=x&big=5000", nil)
	assert.Equal(t, 7, parseIntParam(r, "top", 0, 100))
	assert.Equal(t, 3, parseIntParam(r, "neg", 3, 100))
	assert.Equal(t, 3, parseIntParam(r, "bad", 3, 100))
	assert.Equal(t, 100, parseIntParam(r, "big", 3, 100))
	assert.Equal(t, 3, parseIntParam(r, "missing", 3, 100))
}

func TestGetRecord(t *testing.T) {
	h := NewHandler(Deps{
		Sessions: NewSessions(&mockAsker{}),
		Status:   mockStatus{},
		Records: mockRecords{
			{RecordID: "r-0", Department: "Support"},
			{RecordID: "r-1", Department: "Billing", InteractionNotes: "refund escalated"},
		},
	})

	w := do(h, http.MethodGet, "/v1/records/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "r-1", rec["record_id"])
	assert.Equal(t, "refund escalated", rec["interaction_notes"])

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/v1/records/7", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/v1/records/-1", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/v1/records/abc", "", nil).Code)
}

func TestGetRecordWithoutWarehouse(t *testing.T) {
	h, _ := newTestHandler(t, "")
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/v1/records/0", "", nil).Code)
}
