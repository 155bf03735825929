package xlstream

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

// Extract reads every sheet of the workbook at path according to opts.Mode.
func Extract(path string, opts Options, export ExportOptions) (*models.WorkbookData, error) {
	wb, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Extract(context.Background(), export)
}

// Extract reads every sheet of the workbook according to the workbook's
// Mode. Sheets are processed concurrently up to Options.Concurrency. A
// streamed sheet that fails mid-way keeps the cells read so far and records
// the error; any other sheet failure aborts the extraction.
func (wb *Workbook) Extract(ctx context.Context, export ExportOptions) (*models.WorkbookData, error) {
	sheets := make([]models.SheetData, len(wb.metadata))
	for i, meta := range wb.metadata {
		sheets[i].Metadata = meta
	}

	mode := wb.opts.Mode
	if mode == "" {
		mode = ModeRows
	}
	if mode != ModeMetadata {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(wb.opts.concurrency())
		for i := range sheets {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if mode == ModeCells {
					return wb.streamSheet(ctx, &sheets[i])
				}
				return wb.exportSheet(&sheets[i], export)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return &models.WorkbookData{
		BookName: wb.name,
		Sheets:   sheets,
	}, nil
}

func (wb *Workbook) exportSheet(data *models.SheetData, export ExportOptions) error {
	sheet, err := wb.SheetByName(data.Metadata.Name())
	if err != nil {
		return err
	}
	if dims, ok := sheet.Dimensions(); ok {
		data.Dimensions = &dims
	}
	data.Rows = sheet.Export(export)
	return nil
}

func (wb *Workbook) streamSheet(ctx context.Context, data *models.SheetData) error {
	name := data.Metadata.Name()
	lazy, err := wb.LazySheetByName(name)
	if err != nil {
		return err
	}
	defer lazy.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cell, err := lazy.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			wb.logger.Warn("keeping partial sheet", zap.String("sheet", name), zap.Error(err))
			data.Error = err.Error()
			break
		}
		data.Cells = append(data.Cells, cell)
	}
	if dims, ok := lazy.Dimensions(); ok {
		data.Dimensions = &dims
	}
	return nil
}
