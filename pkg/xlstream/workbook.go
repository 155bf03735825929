package xlstream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ukaji3/xlstream-go/pkg/xlstream/models"
	"github.com/ukaji3/xlstream-go/pkg/xlstream/parser"
)

// Workbook is an open xlsx or xlsb document. Sheets may be opened from
// several goroutines; each LazySheet has its own reader over the package.
type Workbook struct {
	name     string
	format   Format
	opts     Options
	logger   *zap.Logger
	file     *os.File
	src      io.ReaderAt
	size     int64
	book     *parser.Book
	metadata []models.SheetMetadata
	grids    *lru.Cache[string, *models.Range]

	mu    sync.Mutex
	excel *excelize.File
}

// Open opens the workbook at path. The format is taken from opts.Format or,
// when empty, from the file extension.
func Open(path string, opts Options) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if opts.Format == "" {
		opts.Format = formatFromPath(path)
	}
	wb, err := OpenReader(f, info.Size(), opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	wb.name = filepath.Base(path)
	wb.file = f
	return wb, nil
}

// OpenReader opens a workbook from r. An empty opts.Format means xlsx.
func OpenReader(r io.ReaderAt, size int64, opts Options) (*Workbook, error) {
	logger := opts.logger()
	if opts.Format == "" {
		opts.Format = FormatXlsx
	}
	if err := checkContainer(r); err != nil {
		return nil, err
	}
	archive, err := parser.NewArchive(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	var book *parser.Book
	switch opts.Format {
	case FormatXlsx:
		book, err = parser.LoadXlsx(archive, logger)
	case FormatXlsb:
		book, err = parser.LoadXlsb(archive, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidFormat, opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	metadata := make([]models.SheetMetadata, 0, len(book.Sheets))
	for _, entry := range book.Sheets {
		meta, err := models.NewSheetMetadata(entry.Name, entry.Kind, entry.State)
		if err != nil {
			return nil, NewSheetError(entry.Name, "metadata", err)
		}
		metadata = append(metadata, meta)
	}

	wb := &Workbook{
		format:   opts.Format,
		opts:     opts,
		logger:   logger,
		src:      r,
		size:     size,
		book:     book,
		metadata: metadata,
	}
	if n := opts.gridCacheSize(); n > 0 {
		if wb.grids, err = lru.New[string, *models.Range](n); err != nil {
			return nil, err
		}
	}
	logger.Debug("workbook opened",
		zap.String("format", string(opts.Format)),
		zap.Int("sheets", len(metadata)),
		zap.Bool("date1904", book.Date1904))
	return wb, nil
}

func formatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsb") {
		return FormatXlsb
	}
	return FormatXlsx
}

// checkContainer rejects compound-file containers, which hold either an
// encrypted package or a legacy binary workbook.
func checkContainer(r io.ReaderAt) error {
	doc, err := mscfb.New(r)
	if err != nil {
		return nil
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "EncryptedPackage" || entry.Name == "EncryptionInfo" {
			return ErrEncrypted
		}
	}
	return fmt.Errorf("%w: compound file is not an xlsx or xlsb package", ErrInvalidFormat)
}

// Name returns the base name of the workbook file, if opened by path.
func (wb *Workbook) Name() string { return wb.name }

// Format returns the container format.
func (wb *Workbook) Format() Format { return wb.format }

// SheetNames returns the sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.metadata))
	for i, m := range wb.metadata {
		names[i] = m.Name()
	}
	return names
}

// SheetsMetadata returns the metadata of every sheet in workbook order.
func (wb *Workbook) SheetsMetadata() []models.SheetMetadata {
	return append([]models.SheetMetadata(nil), wb.metadata...)
}

func (wb *Workbook) entryByName(name string) (parser.SheetEntry, models.SheetMetadata, error) {
	for i, m := range wb.metadata {
		if m.Name() == name {
			return wb.book.Sheets[i], m, nil
		}
	}
	return parser.SheetEntry{}, models.SheetMetadata{}, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

func (wb *Workbook) nameByIndex(index int) (string, error) {
	if index < 0 || index >= len(wb.metadata) {
		return "", fmt.Errorf("%w: index %d", ErrSheetNotFound, index)
	}
	return wb.metadata[index].Name(), nil
}

// SheetByName materializes the named sheet. Materialized grids are cached
// and shared between calls.
func (wb *Workbook) SheetByName(name string) (*Sheet, error) {
	entry, meta, err := wb.entryByName(name)
	if err != nil {
		return nil, err
	}
	if wb.grids != nil {
		if rng, ok := wb.grids.Get(name); ok {
			return newSheet(name, rng, wb.opts), nil
		}
	}
	rng, err := wb.loadRange(entry, meta)
	if err != nil {
		return nil, NewSheetError(name, "range", err)
	}
	if wb.grids != nil {
		wb.grids.Add(name, rng)
	}
	return newSheet(name, rng, wb.opts), nil
}

// SheetByIndex materializes the sheet at the given position.
func (wb *Workbook) SheetByIndex(index int) (*Sheet, error) {
	name, err := wb.nameByIndex(index)
	if err != nil {
		return nil, err
	}
	return wb.SheetByName(name)
}

func (wb *Workbook) loadRange(entry parser.SheetEntry, meta models.SheetMetadata) (*models.Range, error) {
	switch {
	case meta.Kind() == models.VbaModule:
		return models.EmptyRange(), nil
	case wb.book.Binary():
		return wb.drainRange(entry)
	}
	f, err := wb.excelFile()
	if err != nil {
		return nil, err
	}
	return parser.ExtractRange(f, entry.Name, wb.book.Date1904, wb.logger)
}

// drainRange materializes a sheet by reading its cursor to the end.
func (wb *Workbook) drainRange(entry parser.SheetEntry) (*models.Range, error) {
	cur, err := wb.openCursor(entry)
	if err != nil {
		return nil, err
	}
	defer cur.close()

	var cells []models.Cell
	for {
		cell, err := cur.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return models.NewRangeFromCells(cells), nil
}

// excelFile opens the package with excelize on first use.
func (wb *Workbook) excelFile() (*excelize.File, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.excel != nil {
		return wb.excel, nil
	}
	f, err := excelize.OpenReader(io.NewSectionReader(wb.src, 0, wb.size))
	if err != nil {
		return nil, err
	}
	wb.excel = f
	return f, nil
}

// LazySheetByName opens a streaming reader over the named sheet. The caller
// closes it.
func (wb *Workbook) LazySheetByName(name string) (*LazySheet, error) {
	entry, _, err := wb.entryByName(name)
	if err != nil {
		return nil, err
	}
	cur, err := wb.openCursor(entry)
	if err != nil {
		return nil, NewSheetError(name, "cursor", err)
	}
	return newLazySheet(name, cur, wb.opts), nil
}

// LazySheetByIndex opens a streaming reader over the sheet at the given
// position.
func (wb *Workbook) LazySheetByIndex(index int) (*LazySheet, error) {
	name, err := wb.nameByIndex(index)
	if err != nil {
		return nil, err
	}
	return wb.LazySheetByName(name)
}

func (wb *Workbook) openCursor(entry parser.SheetEntry) (*cursor, error) {
	if wb.book.Binary() {
		r, err := wb.book.NewXlsbCellReader(entry)
		if err != nil {
			return nil, err
		}
		return &cursor{kind: cursorXlsb, xlsb: r}, nil
	}
	r, err := wb.book.NewXlsxCellReader(entry)
	if err != nil {
		return nil, err
	}
	return &cursor{kind: cursorXlsx, xlsx: r}, nil
}

// Close releases the workbook. Open LazySheets must be closed separately.
func (wb *Workbook) Close() error {
	var err error
	wb.mu.Lock()
	if wb.excel != nil {
		err = multierr.Append(err, wb.excel.Close())
		wb.excel = nil
	}
	wb.mu.Unlock()
	if wb.grids != nil {
		wb.grids.Purge()
	}
	if wb.file != nil {
		err = multierr.Append(err, wb.file.Close())
		wb.file = nil
	}
	return err
}

func (wb *Workbook) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workbook(format=%s, sheets=[", wb.format)
	for i, m := range wb.metadata {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.String())
	}
	b.WriteString("])")
	return b.String()
}
