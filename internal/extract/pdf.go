package extract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// PDFExtractor extracts text content from PDF files.
type PDFExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// NewPDFExtractor returns the extractor named by provider: "native" (or
// empty) for the in-process parser, "pdftotext" for the poppler CLI.
func NewPDFExtractor(provider, binPath string) (PDFExtractor, error) {
	switch provider {
	case "native", "":
		return NativePDF{}, nil
	case "pdftotext":
		return NewPdfToText(binPath), nil
	default:
		return nil, eris.Errorf("extract: unknown pdf extractor %q", provider)
	}
}

// NativePDF extracts text page by page with ledongthuc/pdf.
type NativePDF struct{}

func (NativePDF) ExtractText(ctx context.Context, path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", eris.Errorf("extract: parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pt, err := p.GetPlainText(nil)
		if err != nil {
			return "", eris.Wrapf(err, "extract: page %d of %s", i, path)
		}
		sb.WriteString(pt)
	}
	return sb.String(), nil
}

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "extract: pdftotext failed for %s: %s", path, stderr.String())
	}
	return stdout.String(), nil
}
