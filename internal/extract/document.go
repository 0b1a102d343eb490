// Package extract reads the escalation audit (PDF) and operations report
// (plain text). A document that cannot be read degrades to empty text with
// a status; it never stops the process.
package extract

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Status describes how a document load ended.
type Status string

const (
	StatusLoaded    Status = "loaded"
	StatusMissing   Status = "missing"
	StatusReadError Status = "read_error"
)

// Document is the extracted text of one source file.
type Document struct {
	Path   string
	Text   string
	Status Status
	Err    error
}

// Loaded reports whether the document produced any usable text.
func (d Document) Loaded() bool {
	return d.Status == StatusLoaded && d.Text != ""
}

// Corpus holds the two optional documents.
type Corpus struct {
	Audit Document
	Ops   Document
}

type CorpusConfig struct {
	AuditPDFPath  string
	OpsReportPath string
	PDF           PDFExtractor
}

func missing(path string, err error) Document {
	return Document{Path: path, Status: StatusMissing, Err: err}
}

func readError(path string, err error) Document {
	return Document{Path: path, Status: StatusReadError, Err: err}
}

// stat separates an absent file from one that exists but cannot be used.
func stat(path string) (Document, bool) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return missing(path, err), false
	}
	if err != nil {
		return readError(path, eris.Wrap(err, "stat")), false
	}
	if info.IsDir() {
		return readError(path, eris.Errorf("%s is a directory", path)), false
	}
	return Document{}, true
}

// ExtractPDF extracts the text of the PDF at path with ex.
func ExtractPDF(ctx context.Context, ex PDFExtractor, path string) Document {
	if doc, ok := stat(path); !ok {
		return doc
	}
	text, err := ex.ExtractText(ctx, path)
	if err != nil {
		return readError(path, err)
	}
	return Document{Path: path, Text: text, Status: StatusLoaded}
}

// ExtractText reads and decodes the text file at path.
func ExtractText(path string) Document {
	if doc, ok := stat(path); !ok {
		return doc
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return readError(path, eris.Wrap(err, "read"))
	}
	text, err := Decode(raw)
	if err != nil {
		return readError(path, err)
	}
	return Document{Path: path, Text: text, Status: StatusLoaded}
}

// LoadCorpus loads both documents. Degraded documents are logged and
// returned with their status.
func LoadCorpus(ctx context.Context, cfg CorpusConfig) Corpus {
	ex := cfg.PDF
	if ex == nil {
		ex = NativePDF{}
	}
	c := Corpus{
		Audit: ExtractPDF(ctx, ex, cfg.AuditPDFPath),
		Ops:   ExtractText(cfg.OpsReportPath),
	}
	logDocument("audit", c.Audit)
	logDocument("ops", c.Ops)
	return c
}

func logDocument(kind string, d Document) {
	log := zap.L().With(
		zap.String("component", "extract"),
		zap.String("document", kind),
		zap.String("path", d.Path),
		zap.String("status", string(d.Status)),
	)
	if d.Status != StatusLoaded {
		log.Warn("document load degraded", zap.Error(d.Err))
		return
	}
	log.Info("document loaded", zap.Int("chars", len([]rune(d.Text))))
}
