package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// parseXlsxStyles reads the custom number formats and the cellXfs table of
// styles.xml.
func parseXlsxStyles(r io.Reader) (*NumberFormats, error) {
	custom := make(map[int]string)
	var xfs []int
	inCellXfs := false

	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse styles: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmt":
				idStr, _ := attrValue(t, "numFmtId")
				code, _ := attrValue(t, "formatCode")
				if id, err := strconv.Atoi(idStr); err == nil {
					custom[id] = code
				}
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				id := 0
				if idStr, ok := attrValue(t, "numFmtId"); ok {
					id, _ = strconv.Atoi(idStr)
				}
				xfs = append(xfs, id)
			}
		case xml.EndElement:
			if t.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return newNumberFormats(xfs, custom), nil
}

// parseXlsbStyles reads BrtFmt and the BrtXF records of the cell XF table
// from styles.bin.
func parseXlsbStyles(data []byte) (*NumberFormats, error) {
	custom := make(map[int]string)
	var xfs []int
	inCellXfs := false

	stream := newRecordStream(bytes.NewReader(data))
	for {
		id, rec, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse styles: %w", err)
		}
		switch id {
		case recFmt:
			p := payload{data: rec}
			fmtID, err := p.u16()
			if err != nil {
				continue
			}
			code, err := p.wideString()
			if err != nil {
				continue
			}
			custom[int(fmtID)] = code
		case recBeginCellXFs:
			inCellXfs = true
		case recEndCellXFs:
			inCellXfs = false
		case recXF:
			if !inCellXfs {
				continue
			}
			p := payload{data: rec}
			if _, err := p.u16(); err != nil { // ixfeParent
				continue
			}
			fmtID, err := p.u16()
			if err != nil {
				continue
			}
			xfs = append(xfs, int(fmtID))
		}
	}
	return newNumberFormats(xfs, custom), nil
}
