package xlstream

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

// Sheet is a fully materialized sheet. It is immutable and safe for
// concurrent use; its Range may be shared with other sheets and views.
type Sheet struct {
	name   string
	rng    *models.Range
	strict bool
	logger *zap.Logger
}

func newSheet(name string, rng *models.Range, opts Options) *Sheet {
	if rng == nil {
		rng = models.EmptyRange()
	}
	return &Sheet{
		name:   name,
		rng:    rng,
		strict: opts.StrictCells,
		logger: opts.logger().With(zap.String("sheet", name)),
	}
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Height returns the number of rows in the used range.
func (s *Sheet) Height() int { return s.rng.Height() }

// Width returns the number of columns in the used range.
func (s *Sheet) Width() int { return s.rng.Width() }

// TotalHeight returns the row count including the empty rows above the used
// range, or 0 for an empty sheet.
func (s *Sheet) TotalHeight() int {
	end, ok := s.rng.End()
	if !ok {
		return 0
	}
	return int(end.Row) + 1
}

// TotalWidth returns the column count including the empty columns left of
// the used range, or 0 for an empty sheet.
func (s *Sheet) TotalWidth() int {
	end, ok := s.rng.End()
	if !ok {
		return 0
	}
	return int(end.Col) + 1
}

// Start returns the first used cell.
func (s *Sheet) Start() (models.Coord, bool) { return s.rng.Start() }

// End returns the last used cell.
func (s *Sheet) End() (models.Coord, bool) { return s.rng.End() }

// Dimensions returns the used range.
func (s *Sheet) Dimensions() (models.Dimensions, bool) { return s.rng.Dimensions() }

// Range returns the shared grid backing the sheet.
func (s *Sheet) Range() *models.Range { return s.rng }

// Cell returns the value at an absolute position; positions outside the
// used range are empty.
func (s *Sheet) Cell(row, col uint32) models.CellValue {
	return s.convert(s.rng.Get(models.Coord{Row: row, Col: col}))
}

// Export returns the sheet as rows of converted values.
//
// With SkipEmptyArea (the default) the rows start at the first used row and
// column. Otherwise they start at A1, with the leading empty area filled
// with empty values. RowLimit caps the number of rows; without it every row
// up to the last used one is returned.
func (s *Sheet) Export(opts ExportOptions) [][]models.CellValue {
	end, ok := s.rng.End()
	if !ok {
		return [][]models.CellValue{}
	}
	nrows := int(end.Row) + 1
	if opts.RowLimit != nil {
		nrows = max(*opts.RowLimit, 0)
	}
	if nrows == 0 {
		return [][]models.CellValue{}
	}

	view := s.rng
	start, _ := s.rng.Start()
	if !opts.ShouldSkipEmptyArea() && start != (models.Coord{}) {
		lastRow := end.Row
		if nrows <= int(end.Row) {
			lastRow = uint32(nrows - 1)
		}
		view = s.rng.Sub(models.Coord{}, models.Coord{Row: lastRow, Col: end.Col})
	}

	out := make([][]models.CellValue, 0, min(nrows, view.Height()))
	for row := range view.Rows() {
		if len(out) == nrows {
			break
		}
		values := make([]models.CellValue, len(row))
		for i, raw := range row {
			values[i] = s.convert(raw)
		}
		out = append(out, values)
	}
	return out
}

func (s *Sheet) convert(raw models.RawCell) models.CellValue {
	return convertCell(raw, s.strict, s.logger)
}

func (s *Sheet) String() string {
	if dims, ok := s.rng.Dimensions(); ok {
		return fmt.Sprintf("Sheet(name=%q, dimensions=%s)", s.name, dims)
	}
	return fmt.Sprintf("Sheet(name=%q, empty)", s.name)
}

// convertCell converts a raw cell, logging degraded cells in strict mode.
func convertCell(raw models.RawCell, strict bool, logger *zap.Logger) models.CellValue {
	if !strict {
		return models.Convert(raw)
	}
	v, err := models.ConvertStrict(raw)
	if err != nil {
		logger.Warn("cell value degraded", zap.Error(err))
	}
	return v
}
