package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Default part names used when the package relationships do not point
// elsewhere.
const (
	defaultXlsxWorkbook = "xl/workbook.xml"
	defaultXlsbWorkbook = "xl/workbook.bin"
)

// ErrNoWorkbook indicates the package has no workbook part.
var ErrNoWorkbook = errors.New("workbook part not found")

// SheetEntry is a sheet as enumerated from the workbook part, before its
// kind and visibility are validated.
type SheetEntry struct {
	Name string
	// Kind is the last segment of the sheet's relationship type, for example
	// "worksheet" or "chartsheet".
	Kind string
	// State is the visibility identifier: the workbook.xml state attribute,
	// or "visible"/"hidden"/"veryHidden" for xlsb.
	State string
	// Part is the package part holding the sheet content.
	Part string
}

// Book is a loaded workbook package: the sheet list and the workbook-wide
// tables the cell cursors need.
type Book struct {
	archive  *Archive
	binary   bool
	logger   *zap.Logger
	Sheets   []SheetEntry
	Strings  SharedStrings
	Formats  *NumberFormats
	Date1904 bool
}

// Binary reports whether the book is an xlsb package.
func (b *Book) Binary() bool { return b.binary }

// LoadXlsx enumerates an xlsx package.
func LoadXlsx(a *Archive, logger *zap.Logger) (*Book, error) {
	book := &Book{archive: a, logger: loggerOrNop(logger)}
	wbPart := a.officeDocument(defaultXlsxWorkbook)
	if partExt(wbPart) == ".bin" {
		return nil, fmt.Errorf("%w: %s is a binary workbook", ErrNoWorkbook, wbPart)
	}

	rc, err := a.Open(wbPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWorkbook, err)
	}
	entries, rawDate1904, err := parseXlsxWorkbook(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}
	book.Date1904 = rawDate1904

	rels, err := a.ReadRelationships(wbPart)
	if err != nil {
		return nil, err
	}
	if book.Sheets, err = bindSheets(entries, rels); err != nil {
		return nil, err
	}

	ssPart := book.partOf(rels, "sharedStrings", "xl/sharedStrings.xml")
	if rc, err := a.Open(ssPart); err == nil {
		book.Strings, err = parseXlsxSharedStrings(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	} else {
		book.logger.Debug("no shared strings part", zap.String("part", ssPart))
	}

	stylesPart := book.partOf(rels, "styles", "xl/styles.xml")
	if rc, err := a.Open(stylesPart); err == nil {
		book.Formats, err = parseXlsxStyles(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	} else {
		book.logger.Debug("no styles part", zap.String("part", stylesPart))
	}
	return book, nil
}

// LoadXlsb enumerates an xlsb package.
func LoadXlsb(a *Archive, logger *zap.Logger) (*Book, error) {
	book := &Book{archive: a, binary: true, logger: loggerOrNop(logger)}
	wbPart := a.officeDocument(defaultXlsbWorkbook)
	if partExt(wbPart) != ".bin" {
		return nil, fmt.Errorf("%w: %s is not a binary workbook", ErrNoWorkbook, wbPart)
	}

	data, err := a.ReadFile(wbPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoWorkbook, err)
	}
	entries, rawDate1904, err := parseXlsbWorkbook(data)
	if err != nil {
		return nil, err
	}
	book.Date1904 = rawDate1904

	rels, err := a.ReadRelationships(wbPart)
	if err != nil {
		return nil, err
	}
	if book.Sheets, err = bindSheets(entries, rels); err != nil {
		return nil, err
	}

	ssPart := book.partOf(rels, "sharedStrings", "xl/sharedStrings.bin")
	if data, err := a.ReadFile(ssPart); err == nil {
		if book.Strings, err = parseXlsbSharedStrings(data); err != nil {
			return nil, err
		}
	} else {
		book.logger.Debug("no shared strings part", zap.String("part", ssPart))
	}

	stylesPart := book.partOf(rels, "styles", "xl/styles.bin")
	if data, err := a.ReadFile(stylesPart); err == nil {
		if book.Formats, err = parseXlsbStyles(data); err != nil {
			return nil, err
		}
	} else {
		book.logger.Debug("no styles part", zap.String("part", stylesPart))
	}
	return book, nil
}

func (b *Book) partOf(rels map[string]Relationship, kind, fallback string) string {
	if rel, ok := findRelationship(rels, kind); ok {
		return rel.Target
	}
	return fallback
}

// officeDocument resolves the workbook part through the package
// relationships, falling back to the conventional name.
func (a *Archive) officeDocument(fallback string) string {
	rels, err := a.ReadRelationships("")
	if err != nil {
		return fallback
	}
	if rel, ok := findRelationship(rels, "officeDocument"); ok && a.Has(rel.Target) {
		return rel.Target
	}
	return fallback
}

// workbookSheet is a sheet record before its relationship is resolved.
type workbookSheet struct {
	name  string
	state string
	relID string
}

func bindSheets(entries []workbookSheet, rels map[string]Relationship) ([]SheetEntry, error) {
	sheets := make([]SheetEntry, 0, len(entries))
	for _, e := range entries {
		rel, ok := rels[e.relID]
		if !ok {
			return nil, fmt.Errorf("sheet %q: relationship %q not found", e.name, e.relID)
		}
		sheets = append(sheets, SheetEntry{
			Name:  e.name,
			Kind:  rel.Kind(),
			State: e.state,
			Part:  rel.Target,
		})
	}
	return sheets, nil
}

// parseXlsxWorkbook reads the sheet list and the 1904 flag from
// workbook.xml.
func parseXlsxWorkbook(r io.Reader) ([]workbookSheet, bool, error) {
	var sheets []workbookSheet
	date1904 := false

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("parse workbook: %w", err)
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			if v, ok := attrValue(se, "date1904"); ok {
				date1904 = v == "1" || strings.EqualFold(v, "true")
			}
		case "sheet":
			var s workbookSheet
			s.name, _ = attrValue(se, "name")
			s.state, _ = attrValue(se, "state")
			// r:id lives in the relationships namespace; match on the
			// local name.
			s.relID, _ = attrValue(se, "id")
			sheets = append(sheets, s)
		}
	}
	return sheets, date1904, nil
}

// parseXlsbWorkbook reads the BrtBundleSh and BrtWbProp records of
// workbook.bin.
func parseXlsbWorkbook(data []byte) ([]workbookSheet, bool, error) {
	var sheets []workbookSheet
	date1904 := false

	stream := newRecordStream(bytes.NewReader(data))
	for {
		id, rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, fmt.Errorf("parse workbook: %w", err)
		}
		switch id {
		case recWbProp:
			p := payload{data: rec}
			flags, err := p.u32()
			if err != nil {
				return nil, false, fmt.Errorf("parse workbook properties: %w", err)
			}
			date1904 = flags&0x01 != 0
		case recBundleSh:
			s, err := parseBundleSheet(rec)
			if err != nil {
				return nil, false, fmt.Errorf("parse sheet record: %w", err)
			}
			sheets = append(sheets, s)
		}
	}
	return sheets, date1904, nil
}

// parseBundleSheet decodes BrtBundleSh: hsState, iTabID, strRelID, strName.
func parseBundleSheet(rec []byte) (workbookSheet, error) {
	p := payload{data: rec}
	hsState, err := p.u32()
	if err != nil {
		return workbookSheet{}, err
	}
	if _, err := p.u32(); err != nil { // iTabID
		return workbookSheet{}, err
	}
	relID, err := p.nullableWideString()
	if err != nil {
		return workbookSheet{}, err
	}
	name, err := p.wideString()
	if err != nil {
		return workbookSheet{}, err
	}
	return workbookSheet{name: name, state: hiddenState(hsState), relID: relID}, nil
}

// hiddenState maps hsState to the workbook.xml state identifiers. Unknown
// values are passed through so classification can reject them.
func hiddenState(v uint32) string {
	switch v {
	case 0:
		return "visible"
	case 1:
		return "hidden"
	case 2:
		return "veryHidden"
	}
	return fmt.Sprintf("hsState(%d)", v)
}

// partExt reports the extension of a sheet part, used to guard against
// xlsb relationships pointing at XML parts and vice versa.
func partExt(part string) string {
	return strings.ToLower(path.Ext(part))
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
