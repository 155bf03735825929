// Package parser provides the workbook loader: part access inside the OOXML
// package, sheet enumeration, shared strings, number formats and the
// format-specific cell cursors.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrPartNotFound indicates a package part is missing from the archive.
var ErrPartNotFound = errors.New("package part not found")

// Archive gives access to the parts of an OOXML package.
type Archive struct {
	zr *zip.Reader
}

// NewArchive reads the zip directory from r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return &Archive{zr: zr}, nil
}

func (a *Archive) find(name string) *zip.File {
	name = strings.TrimPrefix(name, "/")
	for _, f := range a.zr.File {
		if f.Name == name {
			return f
		}
	}
	// Some producers write part names with different casing or backslashes.
	for _, f := range a.zr.File {
		if strings.EqualFold(strings.ReplaceAll(f.Name, "\\", "/"), name) {
			return f
		}
	}
	return nil
}

// Has reports whether the archive contains the named part.
func (a *Archive) Has(name string) bool { return a.find(name) != nil }

// Open opens the named part for streaming. The caller closes the reader.
func (a *Archive) Open(name string) (io.ReadCloser, error) {
	f := a.find(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	return f.Open()
}

// ReadFile reads the named part fully.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Relationship is one entry of a .rels part.
type Relationship struct {
	ID     string
	Type   string
	Target string
}

// Kind returns the last segment of the relationship type URI, e.g.
// "worksheet" for ".../relationships/worksheet".
func (r Relationship) Kind() string {
	if i := strings.LastIndex(r.Type, "/"); i >= 0 {
		return r.Type[i+1:]
	}
	return r.Type
}

// relsPath returns the .rels part belonging to partName.
func relsPath(partName string) string {
	dir, file := path.Split(partName)
	return dir + "_rels/" + file + ".rels"
}

// ReadRelationships parses the relationships of partName, keyed by ID.
// A missing .rels part yields an empty map.
func (a *Archive) ReadRelationships(partName string) (map[string]Relationship, error) {
	result := make(map[string]Relationship)
	rc, err := a.Open(relsPath(partName))
	if errors.Is(err, ErrPartNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", relsPath(partName), err)
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var rel Relationship
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					rel.ID = attr.Value
				case "Type":
					rel.Type = attr.Value
				case "Target":
					rel.Target = attr.Value
				}
			}
			if rel.ID != "" {
				rel.Target = resolveRelativePath(rel.Target, path.Dir(partName))
				result[rel.ID] = rel
			}
		}
	}
	return result, nil
}

// findRelationship returns the first relationship of the given kind.
func findRelationship(rels map[string]Relationship, kind string) (Relationship, bool) {
	for _, rel := range rels {
		if rel.Kind() == kind {
			return rel, true
		}
	}
	return Relationship{}, false
}

// resolveRelativePath resolves a relationship target against the directory
// of its source part. Absolute targets are package-rooted.
func resolveRelativePath(target, baseDir string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(baseDir, target)
}

// attrValue returns the value of the attribute with the given local name.
func attrValue(se xml.StartElement, local string) (string, bool) {
	for _, attr := range se.Attr {
		if attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// readElementText returns the character data of the element whose start
// token has just been consumed, including nested elements.
func readElementText(decoder *xml.Decoder) (string, error) {
	var text strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text.String(), err
		}
		switch t := token.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text.String(), nil
}
