package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

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

// Extract spools body to a temp file and returns pdftotext's stdout.
func (p *PdfToText) Extract(ctx context.Context, body []byte) (string, error) {
	tmp, err := os.CreateTemp("", "report-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "extract: create temp pdf")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(body); err != nil {
		tmp.Close() //nolint:errcheck
		return "", eris.Wrap(err, "extract: write temp pdf")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "extract: close temp pdf")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-enc", "UTF-8", tmp.Name(), "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "extract: pdftotext failed: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// NativePDF extracts text in-process, page by page.
type NativePDF struct{}

// Extract returns the text of every page joined by newlines.
func (NativePDF) Extract(ctx context.Context, body []byte) (text string, err error) {
	// The parser panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("extract: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open pdf")
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "extract: pdf")
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			return "", eris.Wrapf(err, "extract: page %d", i)
		}
		pages = append(pages, t)
	}
	return strings.Join(pages, "\n"), nil
}

