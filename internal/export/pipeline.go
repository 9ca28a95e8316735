// Package export turns protocols into PDF documents (optionally on a
// letterhead) and to-do lists into spreadsheets.
package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/metrics"
)

const ContentTypePDF = "application/pdf"

// ErrExportFailed is returned when no document could be produced at all
var ErrExportFailed = apperr.ExportFailure("Das Protokoll konnte nicht als PDF erstellt werden.")

// Pipeline builds, renders and optionally merges a protocol document
type Pipeline struct {
	builder  Builder
	renderer Renderer
	merger   Merger
	metrics  *metrics.Recorder
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. merger and rec may be nil.
func NewPipeline(renderer Renderer, merger Merger, rec *metrics.Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{renderer: renderer, merger: merger, metrics: rec, logger: logger}
}

// Export renders src. When template is non-empty it is used as letterhead for
// page one; a template that cannot be merged is skipped with a warning.
func (p *Pipeline) Export(ctx context.Context, src Source, template []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := p.builder.Build(src)
	rendered, err := p.renderer.Render(doc)
	if err != nil {
		p.logger.Error("failed to render protocol", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	if len(template) == 0 || p.merger == nil {
		return rendered, nil
	}

	merged, err := p.merger.Merge(ctx, rendered, template)
	if err != nil {
		p.logger.Warn("letterhead merge failed, using plain rendering",
			zap.String("group", src.GroupName),
			zap.Error(err),
		)
		p.metrics.LetterheadFallback()
		return rendered, nil
	}
	return merged, nil
}

// Filename suggests the download name for a protocol of the given date
func Filename(date time.Time) string {
	return "protokoll_" + date.Format("2006-01-02") + ".pdf"
}
