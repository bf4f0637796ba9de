// Package extract turns downloaded report bodies (PDF or HTML) into plain
// text ready for chunking.
package extract

import (
	"context"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// Format is a report body format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Extractor pulls plain text out of a document body.
type Extractor interface {
	Extract(ctx context.Context, body []byte) (string, error)
}

// NewPDFExtractor returns the configured PDF extractor: "pdftotext" shells
// out to poppler, "native" parses in-process.
func NewPDFExtractor(provider, binPath string) (Extractor, error) {
	switch provider {
	case "pdftotext", "":
		return NewPdfToText(binPath), nil
	case "native":
		return NativePDF{}, nil
	default:
		return nil, eris.Errorf("extract: unknown pdf provider %q", provider)
	}
}

// GuessFormat uses hint when set, then the URL. Unknown URLs default to PDF.
func GuessFormat(rawURL, hint string) Format {
	if h := strings.ToLower(strings.TrimSpace(hint)); h != "" {
		return Format(h)
	}
	lower := strings.ToLower(rawURL)
	if strings.HasSuffix(urlPath(lower), ".pdf") {
		return FormatPDF
	}
	for _, marker := range []string{".html", ".htm", "sustainability", "esg"} {
		if strings.Contains(lower, marker) {
			return FormatHTML
		}
	}
	return FormatPDF
}

// FormatFromContentType maps a response content type to a Format. ok is
// false when the type says nothing useful.
func FormatFromContentType(contentType string) (Format, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/pdf"):
		return FormatPDF, true
	case strings.HasPrefix(ct, "text/html"), strings.HasPrefix(ct, "application/xhtml"):
		return FormatHTML, true
	}
	return "", false
}

// SafeFilename keeps letters, digits, underscore and hyphen.
func SafeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return path.Clean(u.Path)
}
