package api

import (
	"context"
	"errors"
	"sync"

	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/evidence"
	"github.com/kalambet/rootcause/internal/pipeline"
	"github.com/kalambet/rootcause/internal/storage"
)

// --- mocks ---

type mockAsker struct {
	mu      sync.Mutex
	queries []string
	kind    pipeline.AnswerKind
}

func (m *mockAsker) Ask(_ context.Context, query string) pipeline.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	kind := m.kind
	if kind == "" {
		kind = pipeline.KindOK
	}
	return pipeline.Answer{
		Text:      "answer to " + query,
		Kind:      kind,
		Selection: evidence.Selection{Triggers: []evidence.Trigger{evidence.TriggerEscalation}, NoteCount: 2},
	}
}

type mockStatus struct{}

func (mockStatus) Status() pipeline.Status {
	return pipeline.Status{
		Dataset:   pipeline.DatasetStatus{Source: "customer_interaction.csv", Records: 42},
		Reasoning: pipeline.ReasoningStatus{Provider: "gemini", Available: true},
	}
}

type mockDashboard struct {
	d   storage.Dashboard
	err error
}

func (m mockDashboard) Dashboard(context.Context) (storage.Dashboard, error) {
	return m.d, m.err
}

func sampleDashboard() storage.Dashboard {
	return storage.Dashboard{
		Summary: storage.Summary{Records: 3, AverageSentiment: 0.5, AverageResponseTime: 100},
		Departments: []storage.GroupStats{
			{Name: "Support", Records: 2, AverageResponseTime: 150},
			{Name: "Billing", Records: 1, AverageResponseTime: 10},
		},
		Industries:      []storage.GroupStats{{Name: "Retail", Records: 3}},
		DepartmentNames: []string{"Billing", "Support"},
	}
}

var errWarehouse = errors.New("warehouse offline")

type mockRecords []dataset.InteractionRecord

func (m mockRecords) Record(_ context.Context, seq int) (dataset.InteractionRecord, error) {
	if seq >= len(m) {
		return dataset.InteractionRecord{}, storage.ErrNotFound
	}
	return m[seq], nil
}
