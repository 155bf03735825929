package models

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Coord is a 0-based (row, col) position in a sheet.
type Coord struct {
	Row uint32 `json:"row"`
	Col uint32 `json:"col"`
}

// CellName returns the A1 reference of c.
func (c Coord) CellName() string {
	name, err := excelize.CoordinatesToCellName(int(c.Col)+1, int(c.Row)+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", c.Row+1, c.Col+1)
	}
	return name
}

// ParseCellName converts an A1 reference to a 0-based Coord.
func ParseCellName(name string) (Coord, error) {
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return Coord{}, err
	}
	return Coord{Row: uint32(row - 1), Col: uint32(col - 1)}, nil
}

// Dimensions is the inclusive bounding box of a non-empty sheet or range.
// An empty sheet has no Dimensions; functions report that as a false flag or
// a nil pointer, never as a zero box.
type Dimensions struct {
	Start Coord `json:"start"`
	End   Coord `json:"end"`
}

// ParseDimensions converts an A1 range reference ("A1:J10" or "B2") to
// Dimensions.
func ParseDimensions(ref string) (Dimensions, error) {
	first, last, ok := strings.Cut(ref, ":")
	if !ok {
		last = first
	}
	start, err := ParseCellName(first)
	if err != nil {
		return Dimensions{}, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	end, err := ParseCellName(last)
	if err != nil {
		return Dimensions{}, fmt.Errorf("invalid range %q: %w", ref, err)
	}
	if end.Row < start.Row || end.Col < start.Col {
		return Dimensions{}, fmt.Errorf("invalid range %q: end before start", ref)
	}
	return Dimensions{Start: start, End: end}, nil
}

// Height returns the number of rows covered.
func (d Dimensions) Height() int { return int(d.End.Row-d.Start.Row) + 1 }

// Width returns the number of columns covered.
func (d Dimensions) Width() int { return int(d.End.Col-d.Start.Col) + 1 }

// Contains reports whether c lies inside the box.
func (d Dimensions) Contains(c Coord) bool {
	return c.Row >= d.Start.Row && c.Row <= d.End.Row &&
		c.Col >= d.Start.Col && c.Col <= d.End.Col
}

// Extend returns the smallest box containing both d and c.
func (d Dimensions) Extend(c Coord) Dimensions {
	d.Start.Row = min(d.Start.Row, c.Row)
	d.Start.Col = min(d.Start.Col, c.Col)
	d.End.Row = max(d.End.Row, c.Row)
	d.End.Col = max(d.End.Col, c.Col)
	return d
}

// String renders d in A1 notation, e.g. "A1:J10".
func (d Dimensions) String() string {
	return d.Start.CellName() + ":" + d.End.CellName()
}
