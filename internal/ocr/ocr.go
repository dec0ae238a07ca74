// Package ocr turns PDFs into plain text, either from the embedded text
// layer, by rasterising and running tesseract, or through the Mistral OCR
// API.
package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/wahlkarte/wahlkarte/internal/config"
)

// Provider names accepted in ocr.provider.
const (
	ProviderLocal     = "local"
	ProviderTesseract = "tesseract"
	ProviderMistral   = "mistral"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderLocal, "":
		return NewLayout(cfg.PdfToTextPath), nil
	case ProviderTesseract:
		return NewTesseract(cfg), nil
	case ProviderMistral:
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// run executes bin and returns its stdout. stderr is folded into the error.
func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "ocr: %s failed: %s", bin, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
