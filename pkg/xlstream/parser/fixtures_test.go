package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// zipParts packs the given parts into an in-memory zip archive.
func zipParts(t *testing.T, parts map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func openArchive(t *testing.T, data []byte) *Archive {
	t.Helper()
	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return a
}

// relsXML renders a relationships part. Each entry is id, kind, target.
func relsXML(entries ...[3]string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s/%s" Target="%s"/>`, e[0], relNS, e[1], e[2])
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

// xlsxPackage builds a minimal xlsx package with one worksheet whose
// sheetData body is given.
func xlsxPackage(t *testing.T, dimension, sheetData string) []byte {
	t.Helper()
	dim := ""
	if dimension != "" {
		dim = fmt.Sprintf(`<dimension ref="%s"/>`, dimension)
	}
	return zipParts(t, map[string][]byte{
		"_rels/.rels": relsXML([3]string{"rId1", "officeDocument", "xl/workbook.xml"}),
		"xl/workbook.xml": []byte(`<workbook xmlns:r="` + relNS + `"><workbookPr/><sheets>` +
			`<sheet name="Data" sheetId="1" r:id="rId1"/>` +
			`<sheet name="Secret" sheetId="2" state="veryHidden" r:id="rId2"/>` +
			`<sheet name="Chart" sheetId="3" state="hidden" r:id="rId3"/>` +
			`</sheets></workbook>`),
		"xl/_rels/workbook.xml.rels": relsXML(
			[3]string{"rId1", "worksheet", "worksheets/sheet1.xml"},
			[3]string{"rId2", "worksheet", "worksheets/sheet2.xml"},
			[3]string{"rId3", "chartsheet", "chartsheets/sheet1.xml"},
			[3]string{"rId4", "sharedStrings", "sharedStrings.xml"},
			[3]string{"rId5", "styles", "styles.xml"},
		),
		"xl/worksheets/sheet1.xml": []byte(`<worksheet>` + dim + `<sheetData>` + sheetData + `</sheetData></worksheet>`),
		"xl/worksheets/sheet2.xml": []byte(`<worksheet><sheetData/></worksheet>`),
		"xl/chartsheets/sheet1.xml": []byte(`<chartsheet xmlns:r="` + relNS + `"><drawing r:id="rId1"/></chartsheet>`),
		"xl/sharedStrings.xml": []byte(`<sst><si><t>alpha</t></si>` +
			`<si><r><t>be</t></r><r><t>ta</t></r><rPh><t>x</t></rPh></si></sst>`),
		"xl/styles.xml": []byte(`<styleSheet><numFmts><numFmt numFmtId="164" formatCode="[h]:mm:ss"/></numFmts>` +
			`<cellStyleXfs><xf numFmtId="14"/></cellStyleXfs>` +
			`<cellXfs><xf numFmtId="0"/><xf numFmtId="14"/><xf numFmtId="164"/></cellXfs></styleSheet>`),
	})
}

// biffWriter builds BIFF12 record streams.
type biffWriter struct {
	buf bytes.Buffer
}

func (w *biffWriter) id(id int) {
	if id < 0x80 {
		w.buf.WriteByte(byte(id))
		return
	}
	w.buf.WriteByte(byte(id & 0xFF))
	w.buf.WriteByte(byte(id >> 8))
}

func (w *biffWriter) length(n int) {
	for {
		b := n & 0x7F
		n >>= 7
		if n > 0 {
			w.buf.WriteByte(byte(b) | 0x80)
		} else {
			w.buf.WriteByte(byte(b))
			return
		}
	}
}

func (w *biffWriter) rec(id int, payload []byte) {
	w.id(id)
	w.length(len(payload))
	w.buf.Write(payload)
}

func (w *biffWriter) Bytes() []byte { return w.buf.Bytes() }

func u32le(vs ...uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func f64le(f float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))
}

func wideStr(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := u32le(uint32(len(units)))
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}

func cellHeader(col, style uint32) []byte { return u32le(col, style) }

func concat(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

// xlsbPackage builds an xlsb package with a single worksheet "Data" whose
// record stream is given.
func xlsbPackage(t *testing.T, sheet []byte, date1904 bool) []byte {
	t.Helper()
	var wb biffWriter
	if date1904 {
		wb.rec(recWbProp, u32le(1))
	} else {
		wb.rec(recWbProp, u32le(0))
	}
	wb.rec(recBundleSh, concat(u32le(0, 1), wideStr("rId1"), wideStr("Data")))
	wb.rec(recBundleSh, concat(u32le(1, 2), wideStr("rId2"), wideStr("Hidden")))

	var sst biffWriter
	sst.rec(recSSTItem, concat([]byte{0}, wideStr("shared")))

	var styles biffWriter
	styles.rec(recFmt, concat([]byte{164, 0}, wideStr("[h]:mm")))
	styles.rec(recBeginCellXFs, u32le(3))
	for _, fmtID := range []uint16{0, 14, 164} {
		xf := make([]byte, 16)
		binary.LittleEndian.PutUint16(xf[0:], 0xFFFF)
		binary.LittleEndian.PutUint16(xf[2:], fmtID)
		styles.rec(recXF, xf)
	}
	styles.rec(recEndCellXFs, nil)

	var empty biffWriter
	empty.rec(recBeginSheetData, nil)
	empty.rec(recEndSheetData, nil)

	return zipParts(t, map[string][]byte{
		"_rels/.rels": relsXML([3]string{"rId1", "officeDocument", "xl/workbook.bin"}),
		"xl/workbook.bin": wb.Bytes(),
		"xl/_rels/workbook.bin.rels": relsXML(
			[3]string{"rId1", "worksheet", "worksheets/sheet1.bin"},
			[3]string{"rId2", "worksheet", "worksheets/sheet2.bin"},
			[3]string{"rId3", "sharedStrings", "sharedStrings.bin"},
			[3]string{"rId4", "styles", "styles.bin"},
		),
		"xl/worksheets/sheet1.bin": sheet,
		"xl/worksheets/sheet2.bin": empty.Bytes(),
		"xl/sharedStrings.bin":     sst.Bytes(),
		"xl/styles.bin":            styles.Bytes(),
	})
}
