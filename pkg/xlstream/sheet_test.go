package xlstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func str(s string) models.RawCell { return models.RawCell{Type: models.RawString, Str: s} }

// gridSheet builds a sheet from rows of strings placed at the given origin.
// Empty strings leave the cell blank.
func gridSheet(origin models.Coord, rows ...[]string) *Sheet {
	var cells []models.Cell
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cells = append(cells, models.Cell{Row: origin.Row + uint32(r), Col: origin.Col + uint32(c), Value: str(v)})
		}
	}
	return newSheet("Sheet", models.NewRangeFromCells(cells), DefaultOptions())
}

func texts(rows [][]models.CellValue) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.String()
		}
	}
	return out
}

func TestSheetExportSkipsEmptyAreaByDefault(t *testing.T) {
	sheet := gridSheet(models.Coord{Row: 1, Col: 1},
		[]string{"a", "b", "c"},
		[]string{"", "d", ""},
	)

	assert.Equal(t, 2, sheet.Height())
	assert.Equal(t, 3, sheet.Width())
	assert.Equal(t, 3, sheet.TotalHeight())
	assert.Equal(t, 4, sheet.TotalWidth())

	assert.Equal(t, [][]string{{"a", "b", "c"}, {"", "d", ""}}, texts(sheet.Export(ExportOptions{})))
}

func TestSheetExportFromOrigin(t *testing.T) {
	sheet := gridSheet(models.Coord{Row: 1, Col: 1},
		[]string{"", "line1", "line1", "line1"},
		[]string{"x", "", "", ""},
	)

	rows := sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(false)})
	assert.Equal(t, [][]string{
		{"", "", "", "", ""},
		{"", "", "line1", "line1", "line1"},
		{"", "x", "", "", ""},
	}, texts(rows))

	rows = sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(false), RowLimit: intPtr(2)})
	assert.Equal(t, [][]string{
		{"", "", "", "", ""},
		{"", "", "line1", "line1", "line1"},
	}, texts(rows))
}

func TestSheetExportRowLimitClipping(t *testing.T) {
	// Three rows by two columns, starting at row 1.
	sheet := gridSheet(models.Coord{Row: 1, Col: 0},
		[]string{"r1c0", "r1c1"},
		[]string{"r2c0", "r2c1"},
		[]string{"r3c0", "r3c1"},
	)
	start, ok := sheet.Start()
	require.True(t, ok)
	assert.Equal(t, models.Coord{Row: 1, Col: 0}, start)
	end, ok := sheet.End()
	require.True(t, ok)
	assert.Equal(t, models.Coord{Row: 3, Col: 1}, end)

	rows := sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(false), RowLimit: intPtr(2)})
	require.Len(t, rows, 2)
	assert.Equal(t, []models.CellValue{models.Empty(), models.Empty()}, rows[0])
	assert.Equal(t, [][]string{{"", ""}, {"r1c0", "r1c1"}}, texts(rows))

	tests := []struct {
		limit int
		want  int
	}{
		{0, 0},
		{1, 1},
		{3, 3},
		{4, 4},
		{10, 4},
	}
	for _, tt := range tests {
		rows := sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(false), RowLimit: intPtr(tt.limit)})
		assert.Len(t, rows, tt.want, "limit %d", tt.limit)
	}

	// With the empty area skipped the limit applies to the used rows.
	rows = sheet.Export(ExportOptions{RowLimit: intPtr(2)})
	assert.Equal(t, [][]string{{"r1c0", "r1c1"}, {"r2c0", "r2c1"}}, texts(rows))
	assert.Len(t, sheet.Export(ExportOptions{RowLimit: intPtr(10)}), 3)
}

func TestSheetExportAtOriginIgnoresSkipFlag(t *testing.T) {
	sheet := gridSheet(models.Coord{},
		[]string{"a", ""},
		[]string{"", "b"},
	)
	for _, limit := range []*int{nil, intPtr(1), intPtr(5)} {
		skipped := sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(true), RowLimit: limit})
		kept := sheet.Export(ExportOptions{SkipEmptyArea: boolPtr(false), RowLimit: limit})
		assert.Equal(t, skipped, kept)
	}
}

func TestSheetEmpty(t *testing.T) {
	sheet := newSheet("Empty", nil, DefaultOptions())

	assert.Equal(t, 0, sheet.Height())
	assert.Equal(t, 0, sheet.Width())
	assert.Equal(t, 0, sheet.TotalHeight())
	assert.Equal(t, 0, sheet.TotalWidth())
	_, ok := sheet.Start()
	assert.False(t, ok)
	_, ok = sheet.Dimensions()
	assert.False(t, ok)

	for _, opts := range []ExportOptions{
		{},
		{SkipEmptyArea: boolPtr(false)},
		{SkipEmptyArea: boolPtr(false), RowLimit: intPtr(3)},
	} {
		assert.Empty(t, sheet.Export(opts))
	}
	assert.Equal(t, `Sheet(name="Empty", empty)`, sheet.String())
}

func TestSheetCell(t *testing.T) {
	sheet := gridSheet(models.Coord{Row: 2, Col: 2}, []string{"x"})

	assert.Equal(t, models.String("x"), sheet.Cell(2, 2))
	assert.True(t, sheet.Cell(0, 0).IsEmpty())
	assert.True(t, sheet.Cell(100, 100).IsEmpty())
}

func TestSheetsShareRange(t *testing.T) {
	rng := models.NewRangeFromCells([]models.Cell{{Row: 1, Col: 1, Value: str("v")}})
	a := newSheet("A", rng, DefaultOptions())
	b := newSheet("B", rng, DefaultOptions())

	_ = a.Export(ExportOptions{SkipEmptyArea: boolPtr(false)})
	assert.Same(t, a.Range(), b.Range())
	dims, ok := rng.Dimensions()
	require.True(t, ok)
	assert.Equal(t, "B2:B2", dims.String())
}

func TestSheetStrictCellsStillConverts(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictCells = true
	rng := models.NewRangeFromCells([]models.Cell{
		{Row: 0, Col: 0, Value: models.RawCell{Type: models.RawType(99)}},
		{Row: 0, Col: 1, Value: str("ok")},
	})
	sheet := newSheet("Strict", rng, opts)

	rows := sheet.Export(ExportOptions{})
	require.Len(t, rows, 1)
	assert.True(t, rows[0][0].IsEmpty())
	assert.Equal(t, models.String("ok"), rows[0][1])
}
