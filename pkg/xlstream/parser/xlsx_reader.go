package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

// XlsxCellReader streams the cells of one xlsx worksheet part in document
// order. It is not safe for concurrent use.
type XlsxCellReader struct {
	rc       io.ReadCloser
	decoder  *xml.Decoder
	strings  SharedStrings
	formats  *NumberFormats
	date1904 bool
	logger   *zap.Logger

	bounds bounds

	row     uint32
	nextRow uint32
	nextCol uint32
	done    bool
}

// NewXlsxCellReader opens the sheet part and positions the reader at the
// start of its cell data.
func (b *Book) NewXlsxCellReader(entry SheetEntry) (*XlsxCellReader, error) {
	if b.binary || partExt(entry.Part) == ".bin" {
		return nil, fmt.Errorf("sheet %q: part %s is not an xml worksheet", entry.Name, entry.Part)
	}
	rc, err := b.archive.Open(entry.Part)
	if err != nil {
		return nil, err
	}
	r := &XlsxCellReader{
		rc:       rc,
		decoder:  xml.NewDecoder(rc),
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

// seekSheetData consumes the worksheet header, recording the declared
// dimension. A part without sheetData (a chart or dialog sheet) reads as
// empty.
func (r *XlsxCellReader) seekSheetData() error {
	for {
		token, err := r.decoder.Token()
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse worksheet: %w", err)
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "dimension":
			ref, _ := attrValue(se, "ref")
			if dims, err := models.ParseDimensions(ref); err == nil {
				r.bounds.declared = &dims
			} else {
				r.logger.Debug("ignoring dimension", zap.String("ref", ref), zap.Error(err))
			}
		case "sheetData":
			return nil
		}
	}
}

// Dimensions returns the declared dimension widened by the cells read so
// far, or false when neither is known yet.
func (r *XlsxCellReader) Dimensions() (models.Dimensions, bool) {
	return r.bounds.dimensions()
}

// NextCell returns the next non-blank cell. It returns io.EOF once the end
// of the cell data is reached; any other error leaves the reader unusable.
func (r *XlsxCellReader) NextCell() (models.Cell, error) {
	if r.done {
		return models.Cell{}, io.EOF
	}
	for {
		token, err := r.decoder.Token()
		if err == io.EOF {
			return models.Cell{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return models.Cell{}, fmt.Errorf("parse worksheet: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				if err := r.startRow(t); err != nil {
					return models.Cell{}, err
				}
			case "c":
				cell, err := r.readCell(t)
				if err != nil {
					return models.Cell{}, err
				}
				if cell.Value.IsEmpty() {
					continue
				}
				r.bounds.observe(cell)
				return cell, nil
			}
		case xml.EndElement:
			if t.Name.Local == "sheetData" {
				r.done = true
				return models.Cell{}, io.EOF
			}
		}
	}
}

// Close releases the part reader.
func (r *XlsxCellReader) Close() error {
	r.done = true
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	return err
}

func (r *XlsxCellReader) startRow(se xml.StartElement) error {
	r.row = r.nextRow
	if v, ok := attrValue(se, "r"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 || n-1 > maxRowIndex {
			return fmt.Errorf("invalid row number %q", v)
		}
		r.row = uint32(n - 1)
	}
	r.nextRow = r.row + 1
	r.nextCol = 0
	return nil
}

// readCell decodes a <c> element whose start token has been consumed.
func (r *XlsxCellReader) readCell(se xml.StartElement) (models.Cell, error) {
	pos := models.Coord{Row: r.row, Col: r.nextCol}
	var cellType, style string
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "r":
			c, err := models.ParseCellName(attr.Value)
			if err != nil {
				return models.Cell{}, fmt.Errorf("invalid cell reference %q: %w", attr.Value, err)
			}
			pos = c
		case "t":
			cellType = attr.Value
		case "s":
			style = attr.Value
		}
	}
	r.nextCol = pos.Col + 1

	var value, inline string
	hasValue, hasInline := false, false
	for depth := 1; depth > 0; {
		token, err := r.decoder.Token()
		if err == io.EOF {
			return models.Cell{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return models.Cell{}, fmt.Errorf("parse cell %s: %w", pos.CellName(), err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "v":
				if value, err = readElementText(r.decoder); err != nil {
					return models.Cell{}, noEOF(err)
				}
				hasValue = true
			case "is":
				if inline, err = readStringItem(r.decoder); err != nil {
					return models.Cell{}, noEOF(err)
				}
				hasInline = true
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	cell := models.Cell{Row: pos.Row, Col: pos.Col}
	switch {
	case cellType == "inlineStr" && hasInline:
		cell.Value = models.RawCell{Type: models.RawString, Str: inline}
	case hasValue:
		cell.Value = r.decodeValue(cellType, style, value)
	}
	return cell, nil
}

// decodeValue interprets the <v> text of a cell according to its type
// attribute. Values that cannot be decoded are returned as blank.
func (r *XlsxCellReader) decodeValue(cellType, style, v string) models.RawCell {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return models.RawCell{}
		}
		s, ok := r.strings.Get(idx)
		if !ok {
			r.logger.Debug("shared string index out of range", zap.Int("index", idx))
			return models.RawCell{}
		}
		return models.RawCell{Type: models.RawString, Str: s}
	case "str", "inlineStr":
		return models.RawCell{Type: models.RawString, Str: v}
	case "b":
		return models.RawCell{Type: models.RawBool, Bool: v == "1" || strings.EqualFold(v, "true")}
	case "e":
		return models.RawCell{Type: models.RawError, Err: models.ErrorCode(v)}
	case "d":
		t, ok := parseISODate(v)
		if !ok {
			return models.RawCell{}
		}
		return models.RawCell{Type: models.RawDateTime, Float: timeToSerial(t, r.date1904), Date1904: r.date1904}
	case "", "n":
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return models.RawCell{}
		}
		return numericCell(f, r.styleHint(style), r.date1904)
	}
	return models.RawCell{}
}

func (r *XlsxCellReader) styleHint(style string) DateHint {
	if style == "" {
		return r.formats.Hint(0)
	}
	xf, err := strconv.Atoi(style)
	if err != nil {
		return HintNone
	}
	return r.formats.Hint(xf)
}

// numericCell applies a number format hint to a numeric value.
func numericCell(f float64, hint DateHint, date1904 bool) models.RawCell {
	switch hint {
	case HintDate:
		return models.RawCell{Type: models.RawDateTime, Float: f, Date1904: date1904}
	case HintDuration:
		return models.RawCell{Type: models.RawDateTime, Float: f, Duration: true, Date1904: date1904}
	}
	return models.RawCell{Type: models.RawFloat, Float: f}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

func parseISODate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	epoch1900 = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// timeToSerial converts a wall-clock time to a date serial. Times without a
// date part (year 0) become fractions of a day. In the 1900 calendar, dates
// before 1900-03-01 are numbered as Excel does, which counts a 1900-02-29
// that never existed.
func timeToSerial(t time.Time, date1904 bool) float64 {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if t.Year() == 0 {
		clock := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
		return clock.Hours() / 24
	}
	epoch := epoch1900
	if date1904 {
		epoch = epoch1904
	}
	secs := t.Unix() - epoch.Unix()
	serial := (float64(secs) + float64(t.Nanosecond())/1e9) / 86400
	if !date1904 && serial < 61 {
		serial--
	}
	return serial
}
