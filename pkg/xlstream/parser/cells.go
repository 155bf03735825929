package parser

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

// ExtractRange materializes an xlsx sheet through excelize. Cell values are
// read raw and typed from the cell's type attribute; numeric cells pick up a
// date hint from their number format.
func ExtractRange(f *excelize.File, sheetName string, date1904 bool, logger *zap.Logger) (*models.Range, error) {
	logger = loggerOrNop(logger)
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	hints := styleHints{f: f, cache: make(map[int]DateHint)}
	var cells []models.Cell
	for rowIdx, row := range rows {
		for colIdx, cellValue := range row {
			if cellValue == "" {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheetName, cellName)
			if err != nil {
				return nil, err
			}
			raw := parseValue(cellType, cellValue, date1904, func() DateHint {
				return hints.lookup(sheetName, cellName)
			})
			if raw.IsEmpty() {
				logger.Debug("undecodable cell value", zap.String("sheet", sheetName),
					zap.String("cell", cellName), zap.String("value", cellValue))
				continue
			}
			cells = append(cells, models.Cell{Row: uint32(rowIdx), Col: uint32(colIdx), Value: raw})
		}
	}
	return models.NewRangeFromCells(cells), nil
}

// parseValue types a raw cell value. The hint callback is only consulted for
// numeric cells.
func parseValue(cellType excelize.CellType, s string, date1904 bool, hint func() DateHint) models.RawCell {
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return models.RawCell{Type: models.RawString, Str: s}
	case excelize.CellTypeBool:
		return models.RawCell{Type: models.RawBool, Bool: s == "1" || strings.EqualFold(s, "true")}
	case excelize.CellTypeError:
		return models.RawCell{Type: models.RawError, Err: models.ErrorCode(s)}
	case excelize.CellTypeDate:
		t, ok := parseISODate(s)
		if !ok {
			return models.RawCell{}
		}
		return models.RawCell{Type: models.RawDateTime, Float: timeToSerial(t, date1904), Date1904: date1904}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.RawCell{}
	}
	return numericCell(f, hint(), date1904)
}

// styleHints caches the date hint of each style index seen on the sheet.
type styleHints struct {
	f     *excelize.File
	cache map[int]DateHint
}

func (h *styleHints) lookup(sheetName, cellName string) DateHint {
	idx, err := h.f.GetCellStyle(sheetName, cellName)
	if err != nil {
		return HintNone
	}
	if hint, ok := h.cache[idx]; ok {
		return hint
	}
	hint := HintNone
	if style, err := h.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			hint = formatDateHint(*style.CustomNumFmt)
		} else {
			hint = builtinDateHint(style.NumFmt)
		}
	}
	h.cache[idx] = hint
	return hint
}
