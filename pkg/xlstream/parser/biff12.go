package parser

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"golang.org/x/text/encoding/unicode"
)

// BIFF12 record identifiers used by the xlsb reader. Values are the raw
// variable-length IDs as they appear in the stream.
const (
	recRow            = 0x0000
	recBlank          = 0x0001
	recRk             = 0x0002
	recBoolErr        = 0x0003
	recBool           = 0x0004
	recReal           = 0x0005
	recSt             = 0x0006
	recIsst           = 0x0007
	recFmlaString     = 0x0008
	recFmlaNum        = 0x0009
	recFmlaBool       = 0x000A
	recFmlaError      = 0x000B
	recSSTItem        = 0x0013
	recFmt            = 0x002C
	recXF             = 0x002F
	recBundleSh       = 0x019C
	recWbProp         = 0x0199
	recBeginSheetData = 0x0191
	recEndSheetData   = 0x0192
	recWsDim          = 0x0194
	recBeginCellXFs   = 0x04E9
	recEndCellXFs     = 0x04EA
)

// Excel grid limits.
const (
	maxRowIndex = 0xFFFFF
	maxColIndex = 0x3FFF
)

var errShortRecord = errors.New("record payload too short")

// recordStream reads BIFF12 records from a part.
type recordStream struct {
	r   *bufio.Reader
	buf []byte
}

func newRecordStream(r io.Reader) *recordStream {
	return &recordStream{r: bufio.NewReader(r)}
}

// Next returns the next record. The payload aliases an internal buffer that
// is reused by the following call. io.EOF is returned only when the stream
// ends on a record boundary; a partial record yields io.ErrUnexpectedEOF.
func (s *recordStream) Next() (int, []byte, error) {
	id, err := s.readID()
	if err != nil {
		return 0, nil, err
	}
	size, err := s.readLen()
	if err != nil {
		return 0, nil, noEOF(err)
	}
	data, err := s.readPayload(size)
	if err != nil {
		return 0, nil, noEOF(err)
	}
	return id, data, nil
}

// payloadChunk bounds how much buffer a declared record length can claim
// before the bytes are actually read.
const payloadChunk = 64 << 10

func (s *recordStream) readPayload(size int) ([]byte, error) {
	if size <= cap(s.buf) {
		data := s.buf[:size]
		_, err := io.ReadFull(s.r, data)
		return data, err
	}
	data := s.buf[:0]
	for len(data) < size {
		n := min(size-len(data), payloadChunk)
		data = slices.Grow(data, n)
		if _, err := io.ReadFull(s.r, data[len(data):len(data)+n]); err != nil {
			s.buf = data
			return nil, err
		}
		data = data[:len(data)+n]
	}
	s.buf = data
	return data, nil
}

// readID decodes a record ID: up to four bytes, the high bit of each byte
// flagging that another byte follows.
func (s *recordStream) readID() (int, error) {
	var id int
	for i := 0; i < 4; i++ {
		b, err := s.r.ReadByte()
		if err != nil {
			if i > 0 {
				return 0, noEOF(err)
			}
			return 0, err
		}
		id |= int(b) << (8 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return id, nil
}

// readLen decodes a record length: up to four 7-bit groups, low group first.
func (s *recordStream) readLen() (int, error) {
	var size int
	for i := 0; i < 4; i++ {
		b, err := s.r.ReadByte()
		if err != nil {
			return 0, err
		}
		size |= int(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return size, nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// payload decodes the fields of one record.
type payload struct {
	data []byte
	pos  int
}

func (p *payload) take(n int) ([]byte, error) {
	if p.pos+n > len(p.data) {
		return nil, errShortRecord
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

func (p *payload) u8() (uint8, error) {
	b, err := p.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *payload) u16() (uint16, error) {
	b, err := p.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (p *payload) u32() (uint32, error) {
	b, err := p.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (p *payload) f64() (float64, error) {
	b, err := p.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// rk decodes an RkNumber. Integral storage is reported through isInt so the
// caller can keep the value as an integer.
func (p *payload) rk() (f float64, i int64, isInt bool, err error) {
	v, err := p.u32()
	if err != nil {
		return 0, 0, false, err
	}
	div100 := v&0x01 != 0
	if v&0x02 != 0 {
		n := int64(int32(v) >> 2)
		if div100 {
			if n%100 != 0 {
				return float64(n) / 100, 0, false, nil
			}
			n /= 100
		}
		return float64(n), n, true, nil
	}
	f = math.Float64frombits(uint64(v&0xFFFFFFFC) << 32)
	if div100 {
		f /= 100
	}
	return f, 0, false, nil
}

// wideString decodes an XLWideString: a character count followed by
// UTF-16LE code units.
func (p *payload) wideString() (string, error) {
	n, err := p.u32()
	if err != nil {
		return "", err
	}
	return p.utf16(n)
}

// nullableWideString decodes an XLNullableWideString; 0xFFFFFFFF marks null.
func (p *payload) nullableWideString() (string, error) {
	n, err := p.u32()
	if err != nil {
		return "", err
	}
	if n == 0xFFFFFFFF {
		return "", nil
	}
	return p.utf16(n)
}

func (p *payload) utf16(chars uint32) (string, error) {
	if uint64(chars)*2 > uint64(len(p.data)-p.pos) {
		return "", errShortRecord
	}
	b, err := p.take(int(chars) * 2)
	if err != nil {
		return "", err
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode wide string: %w", err)
	}
	return string(out), nil
}

// errorCodes maps BErr codes to their display strings.
var errorCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
	0x2B: "#GETTING_DATA",
}

func errorCode(b byte) string {
	if s, ok := errorCodes[b]; ok {
		return s
	}
	return fmt.Sprintf("0x%02x", b)
}
