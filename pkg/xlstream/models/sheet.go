package models

import (
	"errors"
	"fmt"
)

// ErrUnknownSheetKind indicates a sheet classification outside the known set.
var ErrUnknownSheetKind = errors.New("unknown sheet kind")

// ErrUnknownVisibility indicates a sheet visibility outside the known set.
var ErrUnknownVisibility = errors.New("unknown sheet visibility")

// SheetKind is the type of a sheet.
type SheetKind uint8

// Sheet kinds.
const (
	WorkSheet SheetKind = iota
	DialogSheet
	MacroSheet
	ChartSheet
	VbaModule
)

var sheetKindNames = [...]string{
	WorkSheet:   "WorkSheet",
	DialogSheet: "DialogSheet",
	MacroSheet:  "MacroSheet",
	ChartSheet:  "ChartSheet",
	VbaModule:   "VbaModule",
}

func (k SheetKind) String() string {
	if int(k) < len(sheetKindNames) {
		return sheetKindNames[k]
	}
	return fmt.Sprintf("SheetKind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k SheetKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseSheetKind maps a loader classification to a SheetKind. Raw values are
// relationship type suffixes ("worksheet", "chartsheet", ...). Unknown values
// are an error, never a default.
func ParseSheetKind(raw string) (SheetKind, error) {
	switch raw {
	case "worksheet":
		return WorkSheet, nil
	case "dialogsheet":
		return DialogSheet, nil
	case "xlMacrosheet", "xlIntlMacrosheet", "macrosheet":
		return MacroSheet, nil
	case "chartsheet":
		return ChartSheet, nil
	case "vbaProject", "vba":
		return VbaModule, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSheetKind, raw)
}

// Visibility is the visibility state of a sheet.
type Visibility uint8

// Visibility states. VeryHidden sheets cannot be unhidden from the
// spreadsheet user interface.
const (
	Visible Visibility = iota
	Hidden
	VeryHidden
)

var visibilityNames = [...]string{
	Visible:    "Visible",
	Hidden:     "Hidden",
	VeryHidden: "VeryHidden",
}

func (v Visibility) String() string {
	if int(v) < len(visibilityNames) {
		return visibilityNames[v]
	}
	return fmt.Sprintf("Visibility(%d)", v)
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// ParseVisibility maps a loader visibility state ("visible", "hidden",
// "veryHidden"; empty means visible) to a Visibility.
func ParseVisibility(raw string) (Visibility, error) {
	switch raw {
	case "", "visible":
		return Visible, nil
	case "hidden":
		return Hidden, nil
	case "veryHidden":
		return VeryHidden, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVisibility, raw)
}

// SheetMetadata describes a sheet independently of its content.
// It is an immutable value; equality is structural.
type SheetMetadata struct {
	name    string
	kind    SheetKind
	visible Visibility
}

// NewSheetMetadata builds metadata from the loader's raw classification.
func NewSheetMetadata(name, rawKind, rawVisible string) (SheetMetadata, error) {
	kind, err := ParseSheetKind(rawKind)
	if err != nil {
		return SheetMetadata{}, fmt.Errorf("sheet %q: %w", name, err)
	}
	visible, err := ParseVisibility(rawVisible)
	if err != nil {
		return SheetMetadata{}, fmt.Errorf("sheet %q: %w", name, err)
	}
	return SheetMetadata{name: name, kind: kind, visible: visible}, nil
}

// MakeSheetMetadata builds metadata from already classified values.
func MakeSheetMetadata(name string, kind SheetKind, visible Visibility) SheetMetadata {
	return SheetMetadata{name: name, kind: kind, visible: visible}
}

// Name returns the sheet name.
func (m SheetMetadata) Name() string { return m.name }

// Kind returns the sheet type.
func (m SheetMetadata) Kind() SheetKind { return m.kind }

// Visible returns the sheet visibility.
func (m SheetMetadata) Visible() Visibility { return m.visible }

func (m SheetMetadata) String() string {
	return fmt.Sprintf("SheetMetadata(name=%q, kind=%s, visible=%s)", m.name, m.kind, m.visible)
}

// MarshalJSON implements json.Marshaler.
func (m SheetMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string     `json:"name"`
		Kind    SheetKind  `json:"kind"`
		Visible Visibility `json:"visible"`
	}{m.name, m.kind, m.visible})
}
