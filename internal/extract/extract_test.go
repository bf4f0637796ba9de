package extract

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessFormat(t *testing.T) {
	tests := []struct {
		url, hint string
		want      Format
	}{
		{"https://x.com/report.pdf", "", FormatPDF},
		{"https://x.com/REPORT.PDF?download=1", "", FormatPDF},
		{"https://x.com/esg/overview", "", FormatHTML},
		{"https://x.com/our-sustainability", "", FormatHTML},
		{"https://x.com/page.htm", "", FormatHTML},
		{"https://x.com/download?id=7", "", FormatPDF},
		{"https://x.com/report.pdf", " HTML ", FormatHTML},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GuessFormat(tt.url, tt.hint), tt.url)
	}
}

func TestFormatFromContentType(t *testing.T) {
	f, ok := FormatFromContentType("application/pdf")
	assert.True(t, ok)
	assert.Equal(t, FormatPDF, f)

	f, ok = FormatFromContentType("text/html; charset=utf-8")
	assert.True(t, ok)
	assert.Equal(t, FormatHTML, f)

	_, ok = FormatFromContentType("application/octet-stream")
	assert.False(t, ok)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "BRKB", SafeFilename("BRK.B"))
	assert.Equal(t, "ab_c-d", SafeFilename("a/b_c-d "))
	assert.Empty(t, SafeFilename("../"))
}

func TestHTML_DropsChrome(t *testing.T) {
	page := `<html><head><title>Report</title><style>p{}</style><script>var x=1;</script></head>
<body>
<header>Site header</header>
<nav><a href="/">Home</a></nav>
<main><h1>Climate Report</h1><p>We target <b>net zero</b> by 2040.</p></main>
<form><input name="q">Search</form>
<footer>Copyright</footer>
</body></html>`

	text, err := HTML{}.Extract(context.Background(), []byte(page))
	require.NoError(t, err)
	assert.Equal(t, "Report\nClimate Report\nWe target\nnet zero\nby 2040.", text)
}

func TestHTML_DecodesLatin1(t *testing.T) {
	body := []byte("<html><head><meta charset=\"iso-8859-1\"></head><body><p>Caf\xe9 emissions</p></body></html>")
	text, err := HTML{}.Extract(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, "Café emissions", text)
}

func TestDetectBlock(t *testing.T) {
	assert.Equal(t, BlockCloudflare, DetectBlock([]byte("<title>Just a moment...</title>Checking your browser")))
	assert.Equal(t, BlockCaptcha, DetectBlock([]byte("please solve the reCAPTCHA")))
	assert.Equal(t, BlockJSShell, DetectBlock([]byte(`<noscript>Enable JavaScript</noscript>`)))
	assert.Equal(t, BlockNone, DetectBlock([]byte("<p>Scope 1 emissions fell 4%.</p>")))
}

func TestNativePDF_Malformed(t *testing.T) {
	_, err := NativePDF{}.Extract(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
}

func TestNewPDFExtractor(t *testing.T) {
	e, err := NewPDFExtractor("", "")
	require.NoError(t, err)
	assert.Equal(t, "pdftotext", e.(*PdfToText).binPath)

	e, err = NewPDFExtractor("native", "")
	require.NoError(t, err)
	assert.IsType(t, NativePDF{}, e)

	_, err = NewPDFExtractor("ocr", "")
	require.Error(t, err)
}

func fakePdfToText(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	bin := filepath.Join(t.TempDir(), "pdftotext")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return bin
}

func TestPdfToText_Extract(t *testing.T) {
	// Arguments are: -enc UTF-8 <file> -
	bin := fakePdfToText(t, `cat "$3"`)

	text, err := NewPdfToText(bin).Extract(context.Background(), []byte("Scope 3 text"))
	require.NoError(t, err)
	assert.Equal(t, "Scope 3 text", text)
}

func TestPdfToText_Failure(t *testing.T) {
	bin := fakePdfToText(t, `echo "Syntax Error" >&2; exit 1`)

	_, err := NewPdfToText(bin).Extract(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Syntax Error")
}
