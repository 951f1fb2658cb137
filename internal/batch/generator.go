// Package batch drives the compositor and document assembler across every row
// of a dataset, packaging the results into a single zip archive.
package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/layout"
	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/render"
)

const archiveEntryExt = "pdf"

// Assembler converts one rendered frame into document bytes.
type Assembler interface {
	Assemble(frame image.Image) ([]byte, error)
}

// Generator produces one document per dataset row, sequentially. Rows are
// independent; a failing row is recorded and skipped, never aborting the
// batch. Archive entries keep the input row order via zero-padded sequence
// numbers.
type Generator struct {
	fonts     *render.FontManager
	assembler Assembler
	maxRows   int
	logger    *zap.Logger
}

// NewGenerator creates a batch generator. maxRows is the resource-protection
// cap enforced before any work begins and must be positive.
func NewGenerator(fonts *render.FontManager, assembler Assembler, maxRows int, logger *zap.Logger) (*Generator, error) {
	if maxRows <= 0 {
		return nil, fmt.Errorf("batch: maxRows must be positive, got %d", maxRows)
	}
	return &Generator{
		fonts:     fonts,
		assembler: assembler,
		maxRows:   maxRows,
		logger:    logger,
	}, nil
}

// MaxRows returns the configured row cap.
func (g *Generator) MaxRows() int {
	return g.maxRows
}

// Generate runs the full pipeline for every row and returns the archive plus
// the per-row report. The layout is snapshotted at entry, so editor mutations
// during the run cannot affect output. Cancellation is cooperative: the
// context is checked between rows, and a cancelled run returns the partial
// report with no archive.
func (g *Generator) Generate(ctx context.Context, l *layout.Layout, rows []binding.DataRow, bindings binding.BindingMap, progress ProgressFunc) (*Result, error) {
	if len(rows) > g.maxRows {
		return nil, &BatchTooLargeError{Rows: len(rows), MaxRows: g.maxRows}
	}
	if err := bindings.Validate(l); err != nil {
		return nil, err
	}

	snapshot := l.Clone()
	compositor, err := render.NewCompositor(snapshot, g.fonts, g.logger)
	if err != nil {
		return nil, err
	}

	result := &Result{Status: StatusRunning, Rows: make([]RowResult, 0, len(rows))}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)

	for i, row := range rows {
		select {
		case <-ctx.Done():
			result.Status = StatusCancelled
			result.Archive = nil
			return result, ctx.Err()
		default:
		}

		name := binding.ArchiveEntryName(i, row, archiveEntryExt)
		doc, rowErr := g.renderRow(compositor, snapshot, row, bindings)
		if rowErr != nil {
			g.logger.Warn("row failed, skipping",
				zap.Int("row", i), zap.Error(rowErr))
			result.Rows = append(result.Rows, RowResult{Index: i, Success: false, Reason: rowErr.Error()})
			result.Failed++
			g.report(progress, i, len(rows))
			continue
		}

		w, err := zw.Create(name)
		if err != nil {
			return g.failArchive(result, err)
		}
		if _, err := w.Write(doc); err != nil {
			return g.failArchive(result, err)
		}

		result.Rows = append(result.Rows, RowResult{Index: i, FileName: name, Success: true})
		result.Succeeded++
		g.report(progress, i, len(rows))
	}

	if err := zw.Close(); err != nil {
		return g.failArchive(result, err)
	}

	result.Archive = archive.Bytes()
	if result.Failed > 0 {
		result.Status = StatusCompletedWithErrors
	} else {
		result.Status = StatusCompleted
	}
	return result, nil
}

// renderRow builds the frame, composites it and assembles the document for
// one row.
func (g *Generator) renderRow(compositor *render.Compositor, l *layout.Layout, row binding.DataRow, bindings binding.BindingMap) ([]byte, error) {
	frame := binding.BuildFrame(l, row, bindings)
	raster, err := compositor.Render(frame)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	doc, err := g.assembler.Assemble(raster)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	return doc, nil
}

func (g *Generator) report(progress ProgressFunc, index, total int) {
	if progress != nil && total > 0 {
		progress(float64(index+1) / float64(total))
	}
}

func (g *Generator) failArchive(result *Result, err error) (*Result, error) {
	result.Status = StatusFailed
	result.Archive = nil
	return result, &ArchiveError{Err: err}
}
