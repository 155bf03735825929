package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// SharedStrings is the workbook's shared string table.
type SharedStrings []string

// Get returns the string at idx and whether the index is valid.
func (s SharedStrings) Get(idx int) (string, bool) {
	if idx < 0 || idx >= len(s) {
		return "", false
	}
	return s[idx], true
}

// parseXlsxSharedStrings reads sharedStrings.xml. Rich text runs are
// concatenated; phonetic runs (rPh) are skipped.
func parseXlsxSharedStrings(r io.Reader) (SharedStrings, error) {
	var table SharedStrings
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "si" {
			s, err := readStringItem(decoder)
			if err != nil {
				return nil, fmt.Errorf("parse shared strings: %w", err)
			}
			table = append(table, s)
		}
	}
	return table, nil
}

// readStringItem collects the text of an <si> or <is> element whose start
// token has been consumed.
func readStringItem(decoder *xml.Decoder) (string, error) {
	var buf bytes.Buffer
	depth, skip := 1, 0
	inText := false
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch {
			case t.Name.Local == "rPh":
				skip++
			case t.Name.Local == "t" && skip == 0:
				inText = true
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "rPh":
				skip--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

// parseXlsbSharedStrings reads the BrtSSTItem records of sharedStrings.bin.
func parseXlsbSharedStrings(data []byte) (SharedStrings, error) {
	var table SharedStrings
	stream := newRecordStream(bytes.NewReader(data))
	for {
		id, rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		if id != recSSTItem {
			continue
		}
		p := payload{data: rec}
		if _, err := p.u8(); err != nil { // rich/phonetic flags
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		s, err := p.wideString()
		if err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}
		table = append(table, s)
	}
	return table, nil
}
