package xlstream

import (
	"fmt"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
	"github.com/ukaji3/xlstream-go/pkg/xlstream/parser"
)

type cursorKind uint8

const (
	cursorXlsx cursorKind = iota
	cursorXlsb
)

// cursor is the format-specific cell reader behind a LazySheet.
type cursor struct {
	kind cursorKind
	xlsx *parser.XlsxCellReader
	xlsb *parser.XlsbCellReader
}

func (c *cursor) next() (models.Cell, error) {
	switch c.kind {
	case cursorXlsb:
		return c.xlsb.NextCell()
	default:
		return c.xlsx.NextCell()
	}
}

func (c *cursor) dimensions() (models.Dimensions, bool) {
	switch c.kind {
	case cursorXlsb:
		return c.xlsb.Dimensions()
	default:
		return c.xlsx.Dimensions()
	}
}

func (c *cursor) close() error {
	switch c.kind {
	case cursorXlsb:
		return c.xlsb.Close()
	default:
		return c.xlsx.Close()
	}
}

// LazySheet reads a sheet one cell at a time without materializing it. It
// is forward-only and not safe for concurrent use.
//
// A LazySheet is active until its cursor reports the end of the sheet or
// fails; from then on Next returns io.EOF and Err reports the failure, if
// any.
type LazySheet struct {
	name   string
	cur    *cursor
	err    error
	dims   *models.Dimensions
	count  int
	strict bool
	logger *zap.Logger
}

func newLazySheet(name string, cur *cursor, opts Options) *LazySheet {
	return &LazySheet{
		name:   name,
		cur:    cur,
		strict: opts.StrictCells,
		logger: opts.logger().With(zap.String("sheet", name)),
	}
}

// Name returns the sheet name.
func (s *LazySheet) Name() string { return s.name }

// Next returns the next non-empty cell. It returns io.EOF once the sheet is
// exhausted. A cursor failure is returned once as a *ReadError; later calls
// return io.EOF.
func (s *LazySheet) Next() (models.LazyCell, error) {
	if s.cur == nil {
		return models.LazyCell{}, io.EOF
	}
	cell, err := s.cur.next()
	if err == io.EOF {
		s.finish(nil)
		return models.LazyCell{}, io.EOF
	}
	if err != nil {
		rerr := &ReadError{SheetName: s.name, Err: err}
		s.finish(rerr)
		return models.LazyCell{}, rerr
	}
	s.count++
	return models.LazyCell{
		Row:   cell.Row,
		Col:   cell.Col,
		Value: convertCell(cell.Value, s.strict, s.logger),
	}, nil
}

// Cells iterates over the remaining cells. A read error is yielded as the
// final element.
func (s *LazySheet) Cells() iter.Seq2[models.LazyCell, error] {
	return func(yield func(models.LazyCell, error) bool) {
		for {
			cell, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(cell, err) || err != nil {
				return
			}
		}
	}
}

// Err returns the error that ended the sheet, or nil.
func (s *LazySheet) Err() error { return s.err }

// Exhausted reports whether the sheet has reached its terminal state.
func (s *LazySheet) Exhausted() bool { return s.cur == nil }

// Dimensions returns the best-known bounding box: the dimension recorded in
// the sheet when present, widened by the cells read so far.
func (s *LazySheet) Dimensions() (models.Dimensions, bool) {
	if s.cur != nil {
		return s.cur.dimensions()
	}
	if s.dims != nil {
		return *s.dims, true
	}
	return models.Dimensions{}, false
}

// Close releases the underlying part reader. It is safe to call more than
// once.
func (s *LazySheet) Close() error {
	if s.cur == nil {
		return nil
	}
	return s.release()
}

func (s *LazySheet) finish(err error) {
	s.err = err
	if cerr := s.release(); cerr != nil {
		s.logger.Debug("closing cursor", zap.Error(cerr))
	}
	if err != nil {
		s.logger.Warn("sheet read failed", zap.Int("cells", s.count), zap.Error(err))
	}
}

func (s *LazySheet) release() error {
	if dims, ok := s.cur.dimensions(); ok {
		s.dims = &dims
	}
	err := s.cur.close()
	s.cur = nil
	return err
}

func (s *LazySheet) String() string {
	state := "active"
	switch {
	case s.err != nil:
		state = "failed"
	case s.cur == nil:
		state = "exhausted"
	}
	return fmt.Sprintf("LazySheet(name=%q, %s, cells=%d)", s.name, state, s.count)
}
