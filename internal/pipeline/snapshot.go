package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/rootcause/internal/dataset"
	"github.com/kalambet/rootcause/internal/extract"
)

// Snapshot is the evidence loaded at startup. It is read-only afterwards and
// shared by every shell.
type Snapshot struct {
	Dataset  *dataset.Dataset
	Corpus   extract.Corpus
	LoadedAt time.Time
}

// BootstrapConfig locates the sources for Bootstrap.
type BootstrapConfig struct {
	CSVPath       string
	AuditPDFPath  string
	OpsReportPath string
	// PDF defaults to extract.NativePDF.
	PDF extract.PDFExtractor
	// Cache, when set, memoizes the dataset by source identity.
	Cache *dataset.Cache
}

// Bootstrap loads the dataset and the document corpus in parallel. A dataset
// failure aborts startup; degraded documents do not.
func Bootstrap(ctx context.Context, cfg BootstrapConfig) (*Snapshot, error) {
	var (
		ds     *dataset.Dataset
		corpus extract.Corpus
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Cache != nil {
			ds, err = cfg.Cache.Load(cfg.CSVPath)
		} else {
			ds, err = dataset.Load(cfg.CSVPath)
		}
		return err
	})
	g.Go(func() error {
		corpus = extract.LoadCorpus(gCtx, extract.CorpusConfig{
			AuditPDFPath:  cfg.AuditPDFPath,
			OpsReportPath: cfg.OpsReportPath,
			PDF:           cfg.PDF,
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Snapshot{Dataset: ds, Corpus: corpus, LoadedAt: time.Now()}, nil
}
