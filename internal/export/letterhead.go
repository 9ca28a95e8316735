package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Merger places a rendered document onto a letterhead template
type Merger interface {
	Merge(ctx context.Context, rendered, template []byte) ([]byte, error)
}

// Letterhead uses the first page of the template as the background of the
// first rendered page. Later pages are left as rendered.
type Letterhead struct {
	conf    *model.Configuration
	tempDir string
}

// NewLetterhead creates a merger that writes its scratch files to tempDir
// (os.TempDir when empty).
func NewLetterhead(tempDir string) *Letterhead {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Letterhead{conf: conf, tempDir: tempDir}
}

func (l *Letterhead) Merge(ctx context.Context, rendered, template []byte) ([]byte, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("empty letterhead template")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := api.PageCount(bytes.NewReader(template), l.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read letterhead template: %w", err)
	}
	if n < 1 {
		return nil, fmt.Errorf("letterhead template has no pages")
	}

	// pdfcpu loads PDF stamps from a file path.
	dir, err := os.MkdirTemp(l.tempDir, "letterhead-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "template.pdf")
	if err := os.WriteFile(path, template, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write letterhead template: %w", err)
	}

	// onTop=false: the template is drawn as background, rendered content stays above it.
	wm, err := api.PDFWatermark(path+":1", "scalefactor:1 abs, rotation:0, opacity:1", false, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare letterhead: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(rendered), &out, []string{"1"}, wm, l.conf); err != nil {
		return nil, fmt.Errorf("failed to merge letterhead: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount reports the number of pages in a PDF
func (l *Letterhead) PageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), l.conf)
}
