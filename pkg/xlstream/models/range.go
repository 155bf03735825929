package models

import "iter"

// Range is an immutable rectangular grid of raw cells addressed by absolute
// sheet coordinates. A Range is never modified after construction, so one
// *Range may back any number of sheets, views and concurrent readers.
type Range struct {
	dims  *Dimensions
	cells []RawCell // row-major, dims.Width() per row
}

// EmptyRange returns a range without cells or dimensions.
func EmptyRange() *Range { return &Range{} }

// NewRangeFromCells builds the smallest range holding every non-empty cell.
// Empty raw cells do not extend the bounding box. Later cells win when two
// share a position.
func NewRangeFromCells(cells []Cell) *Range {
	var dims *Dimensions
	for _, c := range cells {
		if c.Value.IsEmpty() {
			continue
		}
		pos := Coord{Row: c.Row, Col: c.Col}
		if dims == nil {
			dims = &Dimensions{Start: pos, End: pos}
			continue
		}
		*dims = dims.Extend(pos)
	}
	if dims == nil {
		return EmptyRange()
	}
	r := &Range{dims: dims, cells: make([]RawCell, dims.Height()*dims.Width())}
	for _, c := range cells {
		if c.Value.IsEmpty() {
			continue
		}
		r.cells[r.index(c.Row, c.Col)] = c.Value
	}
	return r
}

func (r *Range) index(row, col uint32) int {
	return int(row-r.dims.Start.Row)*r.dims.Width() + int(col-r.dims.Start.Col)
}

// Dimensions returns the bounding box, or false for an empty range.
func (r *Range) Dimensions() (Dimensions, bool) {
	if r.dims == nil {
		return Dimensions{}, false
	}
	return *r.dims, true
}

// Start returns the top-left coordinate, or false for an empty range.
func (r *Range) Start() (Coord, bool) {
	if r.dims == nil {
		return Coord{}, false
	}
	return r.dims.Start, true
}

// End returns the bottom-right coordinate, or false for an empty range.
func (r *Range) End() (Coord, bool) {
	if r.dims == nil {
		return Coord{}, false
	}
	return r.dims.End, true
}

// IsEmpty reports whether the range has no dimensions.
func (r *Range) IsEmpty() bool { return r.dims == nil }

// Height returns the number of rows in the range.
func (r *Range) Height() int {
	if r.dims == nil {
		return 0
	}
	return r.dims.Height()
}

// Width returns the number of columns in the range.
func (r *Range) Width() int {
	if r.dims == nil {
		return 0
	}
	return r.dims.Width()
}

// Get returns the raw cell at an absolute position; positions outside the
// range are empty.
func (r *Range) Get(pos Coord) RawCell {
	if r.dims == nil || !r.dims.Contains(pos) {
		return RawCell{}
	}
	return r.cells[r.index(pos.Row, pos.Col)]
}

// Sub builds a new range covering start..end (inclusive, absolute
// coordinates). Cells of r inside the window are copied; positions r does not
// cover are empty. The receiver is left untouched.
func (r *Range) Sub(start, end Coord) *Range {
	if end.Row < start.Row || end.Col < start.Col {
		return EmptyRange()
	}
	dims := &Dimensions{Start: start, End: end}
	sub := &Range{dims: dims, cells: make([]RawCell, dims.Height()*dims.Width())}
	if r.dims == nil {
		return sub
	}
	rowLo, rowHi := max(start.Row, r.dims.Start.Row), min(end.Row, r.dims.End.Row)
	colLo, colHi := max(start.Col, r.dims.Start.Col), min(end.Col, r.dims.End.Col)
	if rowLo > rowHi || colLo > colHi {
		return sub
	}
	for row := rowLo; row <= rowHi; row++ {
		src := r.cells[r.index(row, colLo) : r.index(row, colHi)+1]
		copy(sub.cells[sub.index(row, colLo):], src)
	}
	return sub
}

// Rows yields each row of the range from top to bottom. The yielded slices
// alias the range storage and must not be modified.
func (r *Range) Rows() iter.Seq[[]RawCell] {
	return func(yield func([]RawCell) bool) {
		if r.dims == nil {
			return
		}
		w := r.dims.Width()
		for i := 0; i < len(r.cells); i += w {
			if !yield(r.cells[i : i+w : i+w]) {
				return
			}
		}
	}
}

// Cells yields every non-empty cell in row-major order.
func (r *Range) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		if r.dims == nil {
			return
		}
		w := r.dims.Width()
		for i, v := range r.cells {
			if v.IsEmpty() {
				continue
			}
			c := Cell{Row: r.dims.Start.Row + uint32(i/w), Col: r.dims.Start.Col + uint32(i%w), Value: v}
			if !yield(c) {
				return
			}
		}
	}
}
