// Package split decomposes a buffer/texture copy whose row stride exceeds a
// backend limit into single-row copies.
//
// The decomposition is an explicit work list: a Plan is validated once with
// checked arithmetic and then yields its units in (slice, row) order, so the
// cost is bounded by the number of rows and no recursion is involved.
package split

import (
	"iter"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/internal/checked"
)

// Unit is one single-row, single-slice copy produced by a Plan.
type Unit struct {
	// Origin is the texel origin of the row inside the texture.
	Origin gputypes.Origin3D

	// Offset is the byte offset of the row inside the buffer.
	Offset uint64
}

// Plan describes the row decomposition of one copy.
type Plan struct {
	origin        gputypes.Origin3D
	extent        gputypes.Extent3D
	offset        uint64
	bytesPerRow   uint64
	bytesPerImage uint64
}

// Needed reports whether a copy with the given stride must be split for a
// backend whose per-call stride limit is maxBytesPerRow. A zero limit means
// unlimited. Single-row copies never need splitting.
func Needed(extent gputypes.Extent3D, bytesPerRow, maxBytesPerRow uint64) bool {
	if maxBytesPerRow == 0 {
		return false
	}
	if extent.Height <= 1 && extent.DepthOrArrayLayers <= 1 {
		return false
	}
	return bytesPerRow > maxBytesPerRow
}

// NewPlan builds a plan for a copy of extent texels starting at origin and
// at byte offset in the buffer. It returns false when any unit's origin or
// offset would overflow.
func NewPlan(origin gputypes.Origin3D, extent gputypes.Extent3D, offset, bytesPerRow, bytesPerImage uint64) (Plan, bool) {
	p := Plan{
		origin:        origin,
		extent:        extent,
		offset:        offset,
		bytesPerRow:   bytesPerRow,
		bytesPerImage: bytesPerImage,
	}
	if p.Len() == 0 {
		return p, true
	}

	// Offsets and origins grow monotonically with (z, y); if the last unit
	// fits, every unit fits.
	lastZ := uint64(extent.DepthOrArrayLayers - 1)
	lastY := uint64(extent.Height - 1)
	zBytes, ok := checked.Mul(lastZ, bytesPerImage)
	if !ok {
		return Plan{}, false
	}
	yBytes, ok := checked.Mul(lastY, bytesPerRow)
	if !ok {
		return Plan{}, false
	}
	if _, ok := checked.New(offset).Add(zBytes).Add(yBytes).Get(); !ok {
		return Plan{}, false
	}
	if _, ok := checked.Add(origin.Y, extent.Height-1); !ok {
		return Plan{}, false
	}
	if _, ok := checked.Add(origin.Z, extent.DepthOrArrayLayers-1); !ok {
		return Plan{}, false
	}
	return p, true
}

// Len returns the number of units, depthOrArrayLayers × height.
func (p Plan) Len() int {
	return int(p.extent.DepthOrArrayLayers) * int(p.extent.Height)
}

// UnitExtent is the extent of every unit: (width, 1, 1).
func (p Plan) UnitExtent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: p.extent.Width, Height: 1, DepthOrArrayLayers: 1}
}

// Units yields every unit in slice-major, row-minor order.
func (p Plan) Units() iter.Seq[Unit] {
	return func(yield func(Unit) bool) {
		for z := uint32(0); z < p.extent.DepthOrArrayLayers; z++ {
			sliceOffset := p.offset + uint64(z)*p.bytesPerImage
			for y := uint32(0); y < p.extent.Height; y++ {
				u := Unit{
					Origin: gputypes.Origin3D{
						X: p.origin.X,
						Y: p.origin.Y + y,
						Z: p.origin.Z + z,
					},
					Offset: sliceOffset + uint64(y)*p.bytesPerRow,
				}
				if !yield(u) {
					return
				}
			}
		}
	}
}
