package pipeline

import (
	"time"

	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/extract"
)

// Status summarizes what was loaded at startup.
type Status struct {
	LoadedAt  time.Time       `json:"loaded_at"`
	Dataset   DatasetStatus   `json:"dataset"`
	Audit     DocumentStatus  `json:"audit"`
	Ops       DocumentStatus  `json:"ops"`
	Reasoning ReasoningStatus `json:"reasoning"`
}

type DatasetStatus struct {
	Source           string                 `json:"source"`
	Records          int                    `json:"records"`
	AverageSentiment float64                `json:"average_sentiment"`
	Normalize        dataset.NormalizeStats `json:"normalize"`
}

type DocumentStatus struct {
	Path   string         `json:"path"`
	Status extract.Status `json:"status"`
	Chars  int            `json:"chars"`
	Error  string         `json:"error,omitempty"`
}

type ReasoningStatus struct {
	Available bool   `json:"available"`
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func documentStatus(d extract.Document) DocumentStatus {
	ds := DocumentStatus{Path: d.Path, Status: d.Status, Chars: len([]rune(d.Text))}
	if d.Err != nil {
		ds.Error = d.Err.Error()
	}
	return ds
}

// Status reports the snapshot and reasoning service state.
func (a *Assistant) Status() Status {
	st := Status{
		LoadedAt: a.snap.LoadedAt,
		Audit:    documentStatus(a.snap.Corpus.Audit),
		Ops:      documentStatus(a.snap.Corpus.Ops),
		Reasoning: ReasoningStatus{
			Available: a.reasoning.Available(),
			Provider:  a.reasoning.Provider(),
			Model:     a.reasoning.Model(),
			Reason:    a.reasoning.Reason(),
		},
	}
	if ds := a.snap.Dataset; ds != nil {
		st.Dataset = DatasetStatus{
			Source:           ds.Source(),
			Records:          ds.Len(),
			AverageSentiment: ds.AverageSentiment(),
			Normalize:        ds.Stats(),
		}
	}
	return st
}
