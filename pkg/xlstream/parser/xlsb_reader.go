package parser

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

// XlsbCellReader streams the cells of one xlsb worksheet part record by
// record. It is not safe for concurrent use.
type XlsbCellReader struct {
	rc       io.ReadCloser
	stream   *recordStream
	strings  SharedStrings
	formats  *NumberFormats
	date1904 bool
	logger   *zap.Logger

	bounds bounds

	row  uint32
	done bool
}

// NewXlsbCellReader opens the sheet part and positions the reader at
// BrtBeginSheetData.
func (b *Book) NewXlsbCellReader(entry SheetEntry) (*XlsbCellReader, error) {
	if !b.binary || partExt(entry.Part) != ".bin" {
		return nil, fmt.Errorf("sheet %q: part %s is not a binary worksheet", entry.Name, entry.Part)
	}
	rc, err := b.archive.Open(entry.Part)
	if err != nil {
		return nil, err
	}
	r := &XlsbCellReader{
		rc:       rc,
		stream:   newRecordStream(rc),
		strings:  b.Strings,
		formats:  b.Formats,
		date1904: b.Date1904,
		logger:   b.logger.With(zap.String("sheet", entry.Name)),
	}
	if err := r.seekSheetData(); err != nil {
		rc.Close()
		return nil, err
	}
	return r, nil
}

func (r *XlsbCellReader) seekSheetData() error {
	for {
		id, rec, err := r.stream.Next()
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("read worksheet header: %w", err)
		}
		switch id {
		case recWsDim:
			dims, err := parseWsDim(rec)
			if err != nil {
				return fmt.Errorf("read worksheet dimension: %w", err)
			}
			r.bounds.declared = dims
		case recBeginSheetData:
			return nil
		}
	}
}

// parseWsDim decodes BrtWsDim: rwFirst, rwLast, colFirst, colLast. An
// inverted box (written for empty sheets) yields nil.
func parseWsDim(rec []byte) (*models.Dimensions, error) {
	p := payload{data: rec}
	var v [4]uint32
	for i := range v {
		n, err := p.u32()
		if err != nil {
			return nil, err
		}
		v[i] = n
	}
	if v[0] > v[1] || v[2] > v[3] || v[1] > maxRowIndex || v[3] > maxColIndex {
		return nil, nil
	}
	return &models.Dimensions{
		Start: models.Coord{Row: v[0], Col: v[2]},
		End:   models.Coord{Row: v[1], Col: v[3]},
	}, nil
}

// Dimensions returns the BrtWsDim box widened by the cells read so far, or
// false when neither is known yet.
func (r *XlsbCellReader) Dimensions() (models.Dimensions, bool) {
	return r.bounds.dimensions()
}

// NextCell returns the next non-blank cell, io.EOF after BrtEndSheetData,
// and io.ErrUnexpectedEOF when the part ends before it.
func (r *XlsbCellReader) NextCell() (models.Cell, error) {
	if r.done {
		return models.Cell{}, io.EOF
	}
	for {
		id, rec, err := r.stream.Next()
		if err == io.EOF {
			return models.Cell{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return models.Cell{}, err
		}
		switch id {
		case recEndSheetData:
			r.done = true
			return models.Cell{}, io.EOF
		case recRow:
			p := payload{data: rec}
			row, err := p.u32()
			if err != nil {
				return models.Cell{}, fmt.Errorf("row record: %w", err)
			}
			if row > maxRowIndex {
				return models.Cell{}, fmt.Errorf("row index %d out of range", row)
			}
			r.row = row
		case recRk, recBoolErr, recBool, recReal, recSt, recIsst,
			recFmlaString, recFmlaNum, recFmlaBool, recFmlaError:
			cell, err := r.decodeCell(id, rec)
			if err != nil {
				return models.Cell{}, err
			}
			if cell.Value.IsEmpty() {
				continue
			}
			r.bounds.observe(cell)
			return cell, nil
		}
	}
}

// Close releases the part reader.
func (r *XlsbCellReader) Close() error {
	r.done = true
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

// decodeCell decodes a cell record: the Cell header (column, style) followed
// by the record-specific value.
func (r *XlsbCellReader) decodeCell(id int, rec []byte) (models.Cell, error) {
	p := payload{data: rec}
	col, err := p.u32()
	if err != nil {
		return models.Cell{}, fmt.Errorf("cell record 0x%x: %w", id, err)
	}
	if col > maxColIndex {
		return models.Cell{}, fmt.Errorf("column index %d out of range", col)
	}
	styleRef, err := p.u32()
	if err != nil {
		return models.Cell{}, fmt.Errorf("cell record 0x%x: %w", id, err)
	}
	// Low 24 bits are the XF index; the rest are display flags.
	xf := int(styleRef & 0xFFFFFF)

	value, err := r.decodeValue(id, &p, xf)
	if err != nil {
		return models.Cell{}, fmt.Errorf("cell %s: %w", models.Coord{Row: r.row, Col: col}.CellName(), err)
	}
	return models.Cell{Row: r.row, Col: col, Value: value}, nil
}

func (r *XlsbCellReader) decodeValue(id int, p *payload, xf int) (models.RawCell, error) {
	switch id {
	case recRk:
		f, i, isInt, err := p.rk()
		if err != nil {
			return models.RawCell{}, err
		}
		if hint := r.formats.Hint(xf); hint != HintNone {
			return numericCell(f, hint, r.date1904), nil
		}
		if isInt {
			return models.RawCell{Type: models.RawInt, Int: i}, nil
		}
		return models.RawCell{Type: models.RawFloat, Float: f}, nil
	case recReal, recFmlaNum:
		f, err := p.f64()
		if err != nil {
			return models.RawCell{}, err
		}
		return numericCell(f, r.formats.Hint(xf), r.date1904), nil
	case recBool, recFmlaBool:
		b, err := p.u8()
		if err != nil {
			return models.RawCell{}, err
		}
		return models.RawCell{Type: models.RawBool, Bool: b != 0}, nil
	case recBoolErr, recFmlaError:
		b, err := p.u8()
		if err != nil {
			return models.RawCell{}, err
		}
		return models.RawCell{Type: models.RawError, Err: models.ErrorCode(errorCode(b))}, nil
	case recSt, recFmlaString:
		s, err := p.wideString()
		if err != nil {
			return models.RawCell{}, err
		}
		return models.RawCell{Type: models.RawString, Str: s}, nil
	case recIsst:
		idx, err := p.u32()
		if err != nil {
			return models.RawCell{}, err
		}
		s, ok := r.strings.Get(int(idx))
		if !ok {
			r.logger.Debug("shared string index out of range", zap.Uint32("index", idx))
			return models.RawCell{}, nil
		}
		return models.RawCell{Type: models.RawString, Str: s}, nil
	}
	return models.RawCell{}, nil
}
