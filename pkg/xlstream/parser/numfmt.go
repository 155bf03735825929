package parser

import (
	"github.com/xuri/nfp"
)

// DateHint is the temporal interpretation a number format gives to numeric
// cells.
type DateHint uint8

// Number format hints.
const (
	HintNone DateHint = iota
	HintDate
	HintDuration
)

// builtinDateHint classifies the built-in number format IDs. IDs 14-22 and
// 45-47 are the locale independent date/time formats; 27-36, 50-58 and 71-81
// are the East Asian date formats.
func builtinDateHint(id int) DateHint {
	switch {
	case id == 46:
		return HintDuration
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58,
		id >= 71 && id <= 81:
		return HintDate
	}
	return HintNone
}

// formatDateHint classifies a custom format code. Only the first section,
// which applies to positive values, decides the hint.
func formatDateHint(code string) DateHint {
	parser := nfp.NumberFormatParser()
	sections := parser.Parse(code)
	if len(sections) == 0 {
		return HintNone
	}
	hint := HintNone
	for _, token := range sections[0].Items {
		switch token.TType {
		case nfp.TokenTypeElapsedDateTimes:
			return HintDuration
		case nfp.TokenTypeDateTimes:
			hint = HintDate
		}
	}
	return hint
}

// NumberFormats maps cell format (XF) indexes to date hints.
type NumberFormats struct {
	hints []DateHint
}

// newNumberFormats resolves each XF's number format ID to a hint.
func newNumberFormats(xfNumFmtIDs []int, custom map[int]string) *NumberFormats {
	cache := make(map[int]DateHint)
	hints := make([]DateHint, len(xfNumFmtIDs))
	for i, id := range xfNumFmtIDs {
		hint, ok := cache[id]
		if !ok {
			if code, isCustom := custom[id]; isCustom {
				hint = formatDateHint(code)
			} else {
				hint = builtinDateHint(id)
			}
			cache[id] = hint
		}
		hints[i] = hint
	}
	return &NumberFormats{hints: hints}
}

// Hint returns the date hint of the given XF index; unknown indexes have no
// hint.
func (n *NumberFormats) Hint(xf int) DateHint {
	if n == nil || xf < 0 || xf >= len(n.hints) {
		return HintNone
	}
	return n.hints[xf]
}
