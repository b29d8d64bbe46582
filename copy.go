package gpuenc

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/internal/checked"
)

// CopyStrideUndefined marks an unspecified BytesPerRow or RowsPerImage.
const CopyStrideUndefined uint32 = 0xFFFFFFFF

// WholeSize selects the remainder of a buffer in ClearBuffer.
const WholeSize uint64 = math.MaxUint64

// Extension is a chained descriptor extension. Copy views accept none; a
// render pass accepts *RenderPassMaxDrawCount.
type Extension interface {
	ExtensionName() string
}

// TextureDataLayout is the layout of texel data in a buffer.
type TextureDataLayout struct {
	// Offset is the byte offset of the first texel.
	Offset uint64

	// BytesPerRow is the stride between rows, or CopyStrideUndefined for
	// single-row copies.
	BytesPerRow uint32

	// RowsPerImage is the number of rows between images, or
	// CopyStrideUndefined for single-image copies.
	RowsPerImage uint32
}

// BufferCopyView is the buffer side of a buffer/texture copy.
type BufferCopyView struct {
	Buffer      *Buffer
	Layout      TextureDataLayout
	NextInChain Extension
}

// TextureCopyView is the texture side of a copy.
type TextureCopyView struct {
	Texture  *Texture
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect

	NextInChain Extension
}

// CopyBufferToBuffer copies size bytes from src at srcOffset to dst at
// dstOffset.
func (e *CommandEncoder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) {
	const op = "CopyBufferToBuffer"
	if !e.prepare(op) {
		return
	}
	if err := e.validateCopyBufferToBuffer(src, srcOffset, dst, dstOffset, size); err != nil {
		e.makeInvalid(err)
		return
	}
	src.setCommandEncoder(e)
	dst.setCommandEncoder(e)
	dst.indirectInvalidated = true
	if size == 0 {
		e.skipped(op, "zero size")
		return
	}
	if src.destroyed || dst.destroyed {
		e.skipped(op, "destroyed buffer")
		return
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return
	}
	blit.CopyBufferToBuffer(src.native, srcOffset, dst.native, dstOffset, size)
}

func (e *CommandEncoder) validateCopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) error {
	const op = "CopyBufferToBuffer"
	if !src.valid(e.device) {
		return invalidf(op, "source buffer is not valid to use with this encoder")
	}
	if !dst.valid(e.device) {
		return invalidf(op, "destination buffer is not valid to use with this encoder")
	}
	if src.usage&gputypes.BufferUsageCopySrc == 0 {
		return invalidf(op, "source buffer %q lacks CopySrc usage", src.label)
	}
	if dst.usage&gputypes.BufferUsageCopyDst == 0 {
		return invalidf(op, "destination buffer %q lacks CopyDst usage", dst.label)
	}
	if size%4 != 0 {
		return invalidf(op, "size %d is not a multiple of 4", size)
	}
	if srcOffset%4 != 0 {
		return invalidf(op, "source offset %d is not a multiple of 4", srcOffset)
	}
	if dstOffset%4 != 0 {
		return invalidf(op, "destination offset %d is not a multiple of 4", dstOffset)
	}
	if end, ok := checked.Add(srcOffset, size); !ok || end > src.size {
		return invalidf(op, "source range [%d, +%d) exceeds size %d", srcOffset, size, src.size)
	}
	if end, ok := checked.Add(dstOffset, size); !ok || end > dst.size {
		return invalidf(op, "destination range [%d, +%d) exceeds size %d", dstOffset, size, dst.size)
	}
	if src == dst {
		return invalidf(op, "source and destination are the same buffer")
	}
	return nil
}

// ClearBuffer zeroes size bytes of b starting at offset. size may be
// WholeSize to clear to the end of the buffer. The range is byte-granular.
func (e *CommandEncoder) ClearBuffer(b *Buffer, offset, size uint64) {
	const op = "ClearBuffer"
	if !e.prepare(op) {
		return
	}
	if b == nil {
		e.makeInvalid(invalidf(op, "buffer is nil"))
		return
	}
	if size == WholeSize {
		rest, ok := checked.Sub(b.size, offset)
		if !ok {
			e.device.reportError(invalidf(op, "offset %d > buffer size %d", offset, b.size))
			return
		}
		size = rest
	}
	if err := e.validateClearBuffer(b, offset, size); err != nil {
		e.makeInvalid(err)
		return
	}
	b.setCommandEncoder(e)
	b.indirectInvalidated = true
	if b.destroyed || size == 0 {
		e.skipped(op, "destroyed buffer or zero size")
		return
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return
	}
	blit.FillBuffer(b.native, offset, size, 0)
}

func (e *CommandEncoder) validateClearBuffer(b *Buffer, offset, size uint64) error {
	const op = "ClearBuffer"
	if !b.valid(e.device) {
		return invalidf(op, "buffer is not valid to use with this encoder")
	}
	if b.usage&gputypes.BufferUsageCopyDst == 0 {
		return invalidf(op, "buffer %q lacks CopyDst usage", b.label)
	}
	if end, ok := checked.Add(offset, size); !ok || end > b.size {
		return invalidf(op, "range [%d, +%d) exceeds size %d", offset, size, b.size)
	}
	return nil
}

// isEmpty reports whether a copy extent has no texels.
func isEmpty(e gputypes.Extent3D) bool {
	return e.Width == 0 || e.Height == 0 || e.DepthOrArrayLayers == 0
}
