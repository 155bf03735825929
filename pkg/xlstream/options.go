// Package xlstream provides read access to xlsx and xlsb workbooks, either
// as materialized sheets or as streamed cells.
package xlstream

import (
	"go.uber.org/zap"
)

// Format names the container format of a workbook.
type Format string

const (
	// FormatXlsx is the Office Open XML spreadsheet format.
	FormatXlsx Format = "xlsx"
	// FormatXlsb is the binary (BIFF12) spreadsheet format.
	FormatXlsb Format = "xlsb"
)

// Mode represents what Extract collects for each sheet.
type Mode string

const (
	// ModeMetadata lists the sheets only.
	ModeMetadata Mode = "metadata"
	// ModeRows materializes every sheet and exports its rows.
	ModeRows Mode = "rows"
	// ModeCells streams every sheet and records the non-empty cells.
	ModeCells Mode = "cells"
)

// Options configures how a workbook is opened.
type Options struct {
	// Format selects the reader. If empty, it is taken from the file
	// extension, defaulting to xlsx.
	Format Format
	// Logger receives debug and warning output. Nil discards it.
	Logger *zap.Logger
	// GridCacheSize bounds the number of materialized sheets kept by the
	// workbook. Zero uses the default; a negative value disables caching.
	GridCacheSize int
	// StrictCells logs every cell whose value could not be represented.
	StrictCells bool
	// Mode specifies what Extract collects.
	Mode Mode
	// Concurrency bounds the sheets Extract processes at once. Zero or less
	// processes them one at a time.
	Concurrency int
}

// DefaultGridCacheSize is the number of materialized sheets kept by default.
const DefaultGridCacheSize = 8

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeRows,
		GridCacheSize: DefaultGridCacheSize,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) concurrency() int {
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}

func (o Options) gridCacheSize() int {
	if o.GridCacheSize == 0 {
		return DefaultGridCacheSize
	}
	return o.GridCacheSize
}

// ExportOptions configures Sheet.Export.
type ExportOptions struct {
	// SkipEmptyArea drops the empty leading rows and columns before the
	// first used cell. If nil, defaults to true.
	SkipEmptyArea *bool
	// RowLimit caps the number of exported rows. If nil, all rows are
	// exported.
	RowLimit *int
}

// ShouldSkipEmptyArea returns whether the leading empty area is dropped.
func (o ExportOptions) ShouldSkipEmptyArea() bool {
	if o.SkipEmptyArea != nil {
		return *o.SkipEmptyArea
	}
	return true
}
