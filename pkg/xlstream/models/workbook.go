package models

// SheetData is the exported content of a single sheet.
type SheetData struct {
	// Metadata describes the sheet.
	Metadata SheetMetadata `json:"metadata"`
	// Dimensions is the bounding box reported for the sheet (nil when empty).
	Dimensions *Dimensions `json:"dimensions"`
	// Rows holds the materialized rows (materialized extraction only).
	Rows [][]CellValue `json:"rows,omitempty"`
	// Cells holds the streamed non-empty cells (streaming extraction only).
	Cells []LazyCell `json:"cells,omitempty"`
	// Error is the terminal read error of a truncated stream, if any.
	Error string `json:"error,omitempty"`
}

// WorkbookData is the workbook-level container with per-sheet data in
// workbook order.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Sheets lists the sheets in workbook order.
	Sheets []SheetData `json:"sheets"`
}
