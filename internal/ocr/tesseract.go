package ocr

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wahlkarte/wahlkarte/internal/config"
)

var pageNumber = regexp.MustCompile(`-(\d+)\.png$`)

// Tesseract rasterises each PDF page with pdftoppm and runs tesseract on
// the images. Used for scanned PDFs without a text layer.
type Tesseract struct {
	pdfToPPM  string
	tesseract string
	language  string
	dpi       int
}

// NewTesseract creates a Tesseract extractor from config, defaulting to
// 300 dpi and German.
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	t := &Tesseract{
		pdfToPPM:  cfg.PdfToPPMPath,
		tesseract: cfg.TesseractPath,
		language:  cfg.Language,
		dpi:       cfg.DPI,
	}
	if t.pdfToPPM == "" {
		t.pdfToPPM = "pdftoppm"
	}
	if t.tesseract == "" {
		t.tesseract = "tesseract"
	}
	if t.language == "" {
		t.language = "deu"
	}
	if t.dpi <= 0 {
		t.dpi = 300
	}
	return t
}

// ExtractText returns the OCR text of all pages, one page per block.
func (t *Tesseract) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	dir, err := os.MkdirTemp("", "wahlkarte-ocr-")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	prefix := filepath.Join(dir, "page")
	if _, err := run(ctx, t.pdfToPPM, "-r", strconv.Itoa(t.dpi), "-png", pdfPath, prefix); err != nil {
		return "", eris.Wrapf(err, "ocr: rasterise %s", pdfPath)
	}

	pages, err := pageImages(dir)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", eris.Errorf("ocr: no pages rendered from %s", pdfPath)
	}

	var sb strings.Builder
	for i, img := range pages {
		zap.L().Info("ocr: processing page",
			zap.String("pdf", pdfPath),
			zap.Int("page", i+1),
			zap.Int("pages", len(pages)),
		)
		out, err := run(ctx, t.tesseract, img, "stdout", "-l", t.language)
		if err != nil {
			return "", eris.Wrapf(err, "ocr: tesseract page %d", i+1)
		}
		sb.Write(out)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// pageImages lists the rendered pages in page order. pdftoppm pads the
// page number only to the width of the page count, so names sort
// numerically rather than lexically.
func pageImages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: list pages")
	}
	sort.Slice(matches, func(i, j int) bool {
		return pageIndex(matches[i]) < pageIndex(matches[j])
	})
	return matches, nil
}

func pageIndex(path string) int {
	m := pageNumber.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
