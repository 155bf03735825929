package parser

import "github.com/ukaji3/xlstream-go/pkg/xlstream/models"

// bounds tracks a cursor's best-known bounding box: the declared dimension
// record widened by every cell delivered so far.
type bounds struct {
	declared *models.Dimensions
	seen     *models.Dimensions
}

func (b *bounds) observe(cell models.Cell) {
	pos := models.Coord{Row: cell.Row, Col: cell.Col}
	if b.seen == nil {
		b.seen = &models.Dimensions{Start: pos, End: pos}
		return
	}
	extended := b.seen.Extend(pos)
	b.seen = &extended
}

func (b *bounds) dimensions() (models.Dimensions, bool) {
	switch {
	case b.declared != nil && b.seen != nil:
		return b.declared.Extend(b.seen.Start).Extend(b.seen.End), true
	case b.declared != nil:
		return *b.declared, true
	case b.seen != nil:
		return *b.seen, true
	}
	return models.Dimensions{}, false
}
