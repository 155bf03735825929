// Package models defines the sheet and cell data model shared by the
// materialized and streaming readers.
package models

import (
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
)

// CellType identifies the variant held by a CellValue.
type CellType uint8

// Cell value variants.
const (
	CellEmpty CellType = iota
	CellString
	CellInt
	CellFloat
	CellBool
	CellDateTime
	CellDuration
	CellError
)

var cellTypeNames = [...]string{
	CellEmpty:    "empty",
	CellString:   "string",
	CellInt:      "int",
	CellFloat:    "float",
	CellBool:     "bool",
	CellDateTime: "datetime",
	CellDuration: "duration",
	CellError:    "error",
}

func (t CellType) String() string {
	if int(t) < len(cellTypeNames) {
		return cellTypeNames[t]
	}
	return fmt.Sprintf("CellType(%d)", t)
}

// TemporalKind classifies a date serial number.
type TemporalKind uint8

// Temporal classifications.
const (
	TemporalNone TemporalKind = iota
	TemporalDate
	TemporalTime
	TemporalDateTime
	TemporalDuration
)

func (k TemporalKind) String() string {
	switch k {
	case TemporalDate:
		return "date"
	case TemporalTime:
		return "time"
	case TemporalDateTime:
		return "datetime"
	case TemporalDuration:
		return "duration"
	}
	return ""
}

// ErrorCode is a spreadsheet formula error code such as "#DIV/0!".
type ErrorCode string

// Well-known error codes.
const (
	ErrorNull        ErrorCode = "#NULL!"
	ErrorDiv0        ErrorCode = "#DIV/0!"
	ErrorValue       ErrorCode = "#VALUE!"
	ErrorRef         ErrorCode = "#REF!"
	ErrorName        ErrorCode = "#NAME?"
	ErrorNum         ErrorCode = "#NUM!"
	ErrorNA          ErrorCode = "#N/A"
	ErrorGettingData ErrorCode = "#GETTING_DATA"
)

// CellValue is one converted spreadsheet cell. The zero value is an empty cell.
// CellValue is comparable.
type CellValue struct {
	// Type is the variant held by the value.
	Type CellType
	// Str holds the text of a CellString.
	Str string
	// Int holds the value of a CellInt.
	Int int64
	// Float holds the value of a CellFloat, or the serial number of a
	// CellDateTime / CellDuration.
	Float float64
	// Bool holds the value of a CellBool.
	Bool bool
	// Temporal classifies CellDateTime and CellDuration values.
	Temporal TemporalKind
	// Date1904 reports whether the serial uses the 1904 calendar.
	Date1904 bool
	// Err holds the code of a CellError.
	Err ErrorCode
}

// Empty returns an empty cell value.
func Empty() CellValue { return CellValue{} }

// String returns a text cell value.
func String(s string) CellValue { return CellValue{Type: CellString, Str: s} }

// Int returns an integer cell value.
func Int(i int64) CellValue { return CellValue{Type: CellInt, Int: i} }

// Float returns a floating point cell value.
func Float(f float64) CellValue { return CellValue{Type: CellFloat, Float: f} }

// Bool returns a boolean cell value.
func Bool(b bool) CellValue { return CellValue{Type: CellBool, Bool: b} }

// Error returns an error cell value.
func Error(code ErrorCode) CellValue { return CellValue{Type: CellError, Err: code} }

// IsEmpty reports whether v is the empty variant.
func (v CellValue) IsEmpty() bool { return v.Type == CellEmpty }

// Time converts a CellDateTime to a time.Time in UTC, honouring the 1900 or
// 1904 calendar of the source workbook.
func (v CellValue) Time() (time.Time, error) {
	if v.Type != CellDateTime {
		return time.Time{}, fmt.Errorf("cell is %s, not datetime", v.Type)
	}
	return excelize.ExcelDateToTime(v.Float, v.Date1904)
}

// Duration converts a CellDuration serial (days) to a time.Duration.
func (v CellValue) Duration() (time.Duration, error) {
	if v.Type != CellDuration {
		return 0, fmt.Errorf("cell is %s, not duration", v.Type)
	}
	return serialToDuration(v.Float), nil
}

// Interface returns the natural Go value of v: nil, string, int64, float64,
// bool, time.Time, time.Duration or ErrorCode. Date serials that cannot be
// represented as a time.Time are returned as float64.
func (v CellValue) Interface() any {
	switch v.Type {
	case CellString:
		return v.Str
	case CellInt:
		return v.Int
	case CellFloat:
		return v.Float
	case CellBool:
		return v.Bool
	case CellDateTime:
		t, err := v.Time()
		if err != nil {
			return v.Float
		}
		return t
	case CellDuration:
		return serialToDuration(v.Float)
	case CellError:
		return v.Err
	}
	return nil
}

func (v CellValue) String() string {
	switch v.Type {
	case CellEmpty:
		return ""
	case CellDateTime:
		t, err := v.Time()
		if err != nil {
			return fmt.Sprint(v.Float)
		}
		switch v.Temporal {
		case TemporalDate:
			return t.Format(time.DateOnly)
		case TemporalTime:
			return t.Format("15:04:05.999999")
		}
		return t.Format("2006-01-02T15:04:05.999999")
	case CellDuration:
		return serialToDuration(v.Float).String()
	}
	return fmt.Sprint(v.Interface())
}

func serialToDuration(days float64) time.Duration {
	ms := math.Round(days * 24 * 60 * 60 * 1000)
	return time.Duration(ms) * time.Millisecond
}
