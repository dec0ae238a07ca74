package ocr

import (
	"context"

	"github.com/rotisserie/eris"
)

// Layout reads the text layer of a PDF with pdftotext, keeping the column
// layout so street tables stay on one line per row.
type Layout struct {
	binPath string
}

// NewLayout creates a Layout extractor. If binPath is empty, "pdftotext" is used.
func NewLayout(binPath string) *Layout {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &Layout{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
func (l *Layout) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	out, err := run(ctx, l.binPath, "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext %s", pdfPath)
	}
	return string(out), nil
}
