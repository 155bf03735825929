package models

import (
	"fmt"
	"math"
)

// RawType identifies the storage type reported by a format reader.
type RawType uint8

// Raw cell storage types.
const (
	RawEmpty RawType = iota
	RawString
	RawInt
	RawFloat
	RawBool
	RawDateTime
	RawError
)

// RawCell is a decoded cell as delivered by a format reader, before
// conversion to a CellValue.
type RawCell struct {
	Type  RawType
	Str   string
	Int   int64
	Float float64
	Bool  bool
	// Duration marks a RawDateTime formatted as elapsed time ([h]:mm:ss).
	Duration bool
	// Date1904 marks a RawDateTime from a workbook using the 1904 calendar.
	Date1904 bool
	Err      ErrorCode
}

// IsEmpty reports whether the raw cell carries no value.
func (r RawCell) IsEmpty() bool { return r.Type == RawEmpty }

// Cell is a raw cell positioned in its sheet (0-based coordinates).
type Cell struct {
	Row   uint32
	Col   uint32
	Value RawCell
}

// LazyCell is a converted cell delivered by a streaming reader.
type LazyCell struct {
	Row   uint32    `json:"row"`
	Col   uint32    `json:"col"`
	Value CellValue `json:"value"`
}

// DegradedCellError describes a raw cell that could not be represented and
// was converted to Empty.
type DegradedCellError struct {
	Raw    RawCell
	Reason string
}

func (e *DegradedCellError) Error() string {
	return fmt.Sprintf("cell degraded to empty: %s", e.Reason)
}

// Convert maps a raw cell to its CellValue. Conversion never fails: raw
// types outside the known set, and date serials that are not finite, are
// returned as Empty. This degradation is lossy on purpose; use ConvertStrict
// to observe it.
func Convert(raw RawCell) CellValue {
	v, _ := ConvertStrict(raw)
	return v
}

// ConvertStrict behaves like Convert and additionally reports a
// *DegradedCellError when the raw cell was collapsed to Empty. The returned
// CellValue is the same as Convert's in every case.
func ConvertStrict(raw RawCell) (CellValue, error) {
	switch raw.Type {
	case RawEmpty:
		return Empty(), nil
	case RawString:
		return String(raw.Str), nil
	case RawInt:
		return Int(raw.Int), nil
	case RawFloat:
		return Float(raw.Float), nil
	case RawBool:
		return Bool(raw.Bool), nil
	case RawError:
		return Error(raw.Err), nil
	case RawDateTime:
		if math.IsNaN(raw.Float) || math.IsInf(raw.Float, 0) {
			return Empty(), &DegradedCellError{Raw: raw, Reason: "non-finite date serial"}
		}
		if raw.Duration {
			return CellValue{Type: CellDuration, Float: raw.Float, Temporal: TemporalDuration, Date1904: raw.Date1904}, nil
		}
		return CellValue{Type: CellDateTime, Float: raw.Float, Temporal: classifySerial(raw.Float), Date1904: raw.Date1904}, nil
	}
	return Empty(), &DegradedCellError{Raw: raw, Reason: fmt.Sprintf("unknown raw type %d", raw.Type)}
}

// classifySerial decides how a date-formatted serial should be read.
// A serial below one day is a time of day, a whole serial a calendar date.
func classifySerial(f float64) TemporalKind {
	switch {
	case f >= 0 && f < 1:
		return TemporalTime
	case f == math.Trunc(f):
		return TemporalDate
	}
	return TemporalDateTime
}
