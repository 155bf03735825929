package xlstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// newXlsx builds a workbook with excelize and returns its bytes.
func newXlsx(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func openBytes(t *testing.T, data []byte, format Format) *Workbook {
	t.Helper()
	opts := DefaultOptions()
	opts.Format = format
	wb, err := OpenReader(bytes.NewReader(data), int64(len(data)), opts)
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

// readParts unpacks a zip archive.
func readParts(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts[f.Name] = b
	}
	return parts
}

// zipParts packs parts into a zip archive.
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

// truncateBefore cuts the named part right before the first occurrence of
// marker.
func truncateBefore(t *testing.T, data []byte, part, marker string) []byte {
	t.Helper()
	parts := readParts(t, data)
	content := string(parts[part])
	cut := strings.Index(content, marker)
	require.Positive(t, cut, "marker %q not found in %s", marker, part)
	parts[part] = []byte(content[:cut])
	return zipParts(t, parts)
}

func relsXML(entries ...[3]string) []byte {
	var b strings.Builder
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s/%s" Target="%s"/>`, e[0], relNS, e[1], e[2])
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

// records builds BIFF12 record streams.
type records struct {
	buf bytes.Buffer
}

func (w *records) add(id int, payload ...[]byte) *records {
	if id < 0x80 {
		w.buf.WriteByte(byte(id))
	} else {
		w.buf.WriteByte(byte(id & 0xFF))
		w.buf.WriteByte(byte(id >> 8))
	}
	data := bytes.Join(payload, nil)
	n := len(data)
	for {
		b := n & 0x7F
		n >>= 7
		if n > 0 {
			w.buf.WriteByte(byte(b) | 0x80)
		} else {
			w.buf.WriteByte(byte(b))
			break
		}
	}
	w.buf.Write(data)
	return w
}

func (w *records) Bytes() []byte { return w.buf.Bytes() }

func u32(vs ...uint32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func f64(f float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))
}

// encodeUTF16 returns the UTF-16LE code units of s without a length prefix.
func encodeUTF16(s string) []byte {
	var out []byte
	for _, u := range utf16.Encode([]rune(s)) {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}

func wide(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := u32(uint32(len(units)))
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}

// BIFF12 record IDs used by the fixtures.
const (
	brtRowHdr         = 0x0000
	brtCellRk         = 0x0002
	brtCellReal       = 0x0005
	brtCellSt         = 0x0006
	brtWbProp         = 0x0199
	brtBundleSh       = 0x019C
	brtBeginSheetData = 0x0191
	brtEndSheetData   = 0x0192
	brtWsDim          = 0x0194
)

type xlsbSheet struct {
	name    string
	hsState uint32
	kind    string
	data    []byte
}

// xlsbPackage builds an xlsb workbook holding the given sheets.
func xlsbPackage(t *testing.T, sheets ...xlsbSheet) []byte {
	t.Helper()
	var wb records
	wb.add(brtWbProp, u32(0))
	rels := make([][3]string, 0, len(sheets))
	parts := map[string][]byte{
		"_rels/.rels": relsXML([3]string{"rId1", "officeDocument", "xl/workbook.bin"}),
	}
	for i, s := range sheets {
		relID := fmt.Sprintf("rId%d", i+1)
		target := fmt.Sprintf("worksheets/sheet%d.bin", i+1)
		kind := s.kind
		if kind == "" {
			kind = "worksheet"
		}
		wb.add(brtBundleSh, u32(s.hsState, uint32(i+1)), wide(relID), wide(s.name))
		rels = append(rels, [3]string{relID, kind, target})
		parts["xl/"+target] = s.data
	}
	parts["xl/workbook.bin"] = wb.Bytes()
	parts["xl/_rels/workbook.bin.rels"] = relsXML(rels...)
	return zipParts(t, parts)
}

// gridRecords writes a sheet with rows x cols RK integers numbered from 1,
// starting at row startRow. The stream is cut after cutAfterRow when it is
// not negative.
func gridRecords(startRow, rows, cols uint32, cutAfterRow int) []byte {
	var w records
	w.add(brtWsDim, u32(startRow, startRow+rows-1, 0, cols-1))
	w.add(brtBeginSheetData)
	n := uint32(1)
	for r := startRow; r < startRow+rows; r++ {
		w.add(brtRowHdr, u32(r))
		for c := uint32(0); c < cols; c++ {
			w.add(brtCellRk, u32(c, 0), u32(n<<2|0x02))
			n++
		}
		if cutAfterRow >= 0 && int(r) == cutAfterRow {
			return w.Bytes()
		}
	}
	w.add(brtEndSheetData)
	return w.Bytes()
}
