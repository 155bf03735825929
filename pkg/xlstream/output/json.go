// Package output serializes extraction results.
package output

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToJSON serializes v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WorkbookToJSON serializes a whole extraction result.
func WorkbookToJSON(wb *models.WorkbookData, pretty bool) ([]byte, error) {
	return ToJSON(wb, pretty)
}

// SheetToJSON serializes one sheet of an extraction result.
func SheetToJSON(sheet *models.SheetData, pretty bool) ([]byte, error) {
	return ToJSON(sheet, pretty)
}

// CellWriter writes streamed cells as JSON lines.
type CellWriter struct {
	stream *jsoniter.Stream
	count  int
}

// NewCellWriter returns a CellWriter writing to w.
func NewCellWriter(w io.Writer) *CellWriter {
	return &CellWriter{stream: jsoniter.NewStream(json, w, 4096)}
}

// Write appends one cell as a line of JSON.
func (c *CellWriter) Write(cell models.LazyCell) error {
	c.stream.WriteVal(cell)
	c.stream.WriteRaw("\n")
	c.count++
	if c.stream.Buffered() >= 4096 {
		return c.Flush()
	}
	return c.stream.Error
}

// Count returns the number of cells written.
func (c *CellWriter) Count() int { return c.count }

// Flush writes any buffered output.
func (c *CellWriter) Flush() error {
	return c.stream.Flush()
}
