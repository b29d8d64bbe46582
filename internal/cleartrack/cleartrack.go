// Package cleartrack records which texture subresources have been written
// or cleared, so that uninitialized memory is zeroed before it is read.
//
// A subresource is one (mip level, array layer) pair. Depth slices of a 3D
// texture are tracked as layers.
package cleartrack

import "github.com/gogpu/gputypes"

// Table is the per-subresource "previously cleared" state of one texture.
//
// Table is not safe for concurrent use.
type Table struct {
	levels uint32
	layers uint32
	bits   []bool
}

// New creates a table for a texture with the given mip level and layer
// counts. All subresources start uncleared.
func New(levels, layers uint32) *Table {
	if levels == 0 {
		levels = 1
	}
	if layers == 0 {
		layers = 1
	}
	return &Table{
		levels: levels,
		layers: layers,
		bits:   make([]bool, int(levels)*int(layers)),
	}
}

func (t *Table) index(level, layer uint32) (int, bool) {
	if t == nil || level >= t.levels || layer >= t.layers {
		return 0, false
	}
	return int(level)*int(t.layers) + int(layer), true
}

// IsCleared reports whether the subresource holds defined contents.
// Out-of-range subresources report true so callers never clear them.
func (t *Table) IsCleared(level, layer uint32) bool {
	i, ok := t.index(level, layer)
	if !ok {
		return true
	}
	return t.bits[i]
}

// NeedsClear reports whether the subresource must be zeroed before use.
func (t *Table) NeedsClear(level, layer uint32) bool {
	return !t.IsCleared(level, layer)
}

// MarkCleared records that the subresource now holds defined contents.
func (t *Table) MarkCleared(level, layer uint32) {
	if i, ok := t.index(level, layer); ok {
		t.bits[i] = true
	}
}

// Reset marks every subresource uncleared.
func (t *Table) Reset() {
	if t == nil {
		return
	}
	clear(t.bits)
}

// Levels returns the number of tracked mip levels.
func (t *Table) Levels() uint32 { return t.levels }

// Layers returns the number of tracked layers per mip level.
func (t *Table) Layers() uint32 { return t.layers }

// WriteCompletelyClears reports whether a write of size written into one
// subresource whose logical extent is logical replaces every texel of that
// subresource. For 1D textures only the width matters; 2D layers and 3D
// depth slices need width and height covered.
func WriteCompletelyClears(dim gputypes.TextureDimension, written, logical gputypes.Extent3D) bool {
	switch dim {
	case gputypes.TextureDimension1D:
		return written.Width == logical.Width
	default:
		return written.Width == logical.Width && written.Height == logical.Height
	}
}
