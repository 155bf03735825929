package models

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalJSON renders the natural JSON form of a cell: null, string, number,
// bool, an ISO-8601 date/time or duration string, or the error code.
func (v CellValue) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case CellEmpty:
		return []byte("null"), nil
	case CellInt:
		return strconv.AppendInt(nil, v.Int, 10), nil
	case CellFloat:
		return json.Marshal(v.Float)
	case CellBool:
		return strconv.AppendBool(nil, v.Bool), nil
	case CellDuration:
		return json.Marshal(isoDuration(serialToDuration(v.Float)))
	case CellError:
		return json.Marshal(string(v.Err))
	}
	return json.Marshal(v.String())
}

// isoDuration formats d as an ISO-8601 duration in hours, e.g. "PT255H10M10S".
func isoDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteString("PT")
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	if h > 0 {
		b.WriteString(strconv.FormatInt(int64(h), 10) + "H")
	}
	if m > 0 {
		b.WriteString(strconv.FormatInt(int64(m), 10) + "M")
	}
	if d > 0 || (h == 0 && m == 0) {
		b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S")
	}
	return b.String()
}
