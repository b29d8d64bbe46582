package gpuenc

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/checked"
	"github.com/gogpu/gpuenc/internal/cleartrack"
	"github.com/gogpu/gpuenc/internal/split"
	"github.com/gogpu/gpuenc/internal/texformat"
)

// CopyBufferToTexture copies texel data from a buffer into a texture.
func (e *CommandEncoder) CopyBufferToTexture(src *BufferCopyView, dst *TextureCopyView, extent gputypes.Extent3D) {
	const op = "CopyBufferToTexture"
	if src != nil && dst != nil && (src.NextInChain != nil || dst.NextInChain != nil) {
		e.skipped(op, "chained extension")
		return
	}
	if !e.prepare(op) {
		return
	}
	if err := e.validateBufferTexture(op, src, dst, extent, true); err != nil {
		e.makeInvalid(err)
		return
	}
	src.Buffer.setCommandEncoder(e)
	dst.Texture.setCommandEncoder(e)
	if isEmpty(extent) || src.Buffer.destroyed || dst.Texture.destroyed {
		e.skipped(op, "zero size or destroyed resource")
		return
	}
	e.encodeBufferTexture(op, src, dst, extent, true)
}

// CopyTextureToBuffer copies texel data from a texture into a buffer.
func (e *CommandEncoder) CopyTextureToBuffer(src *TextureCopyView, dst *BufferCopyView, extent gputypes.Extent3D) {
	const op = "CopyTextureToBuffer"
	if src != nil && dst != nil && (src.NextInChain != nil || dst.NextInChain != nil) {
		e.skipped(op, "chained extension")
		return
	}
	if !e.prepare(op) {
		return
	}
	if err := e.validateBufferTexture(op, dst, src, extent, false); err != nil {
		e.makeInvalid(err)
		return
	}
	src.Texture.setCommandEncoder(e)
	dst.Buffer.setCommandEncoder(e)
	dst.Buffer.indirectInvalidated = true
	if isEmpty(extent) || src.Texture.destroyed || dst.Buffer.destroyed {
		e.skipped(op, "zero size or destroyed resource")
		return
	}
	e.encodeBufferTexture(op, dst, src, extent, false)
}

// validateBufferTexture checks a buffer/texture copy in either direction.
func (e *CommandEncoder) validateBufferTexture(op string, bv *BufferCopyView, tv *TextureCopyView, extent gputypes.Extent3D, toTexture bool) error {
	if bv == nil || tv == nil {
		return invalidf(op, "copy view is nil")
	}
	buf, tex := bv.Buffer, tv.Texture
	if !buf.valid(e.device) {
		return invalidf(op, "buffer is not valid to use with this encoder")
	}
	if err := e.validateTextureCopyView(op, tv, extent); err != nil {
		return err
	}
	aspect := normalizeAspect(tv.Aspect)
	if toTexture {
		if buf.usage&gputypes.BufferUsageCopySrc == 0 {
			return invalidf(op, "buffer %q lacks CopySrc usage", buf.label)
		}
		if tex.usage&gputypes.TextureUsageCopyDst == 0 {
			return invalidf(op, "texture %q lacks CopyDst usage", tex.label)
		}
		if !texformat.CopyDestinationAllowed(tex.format, aspect) {
			return invalidf(op, "aspect %v of %v cannot be a copy destination", aspect, tex.format)
		}
	} else {
		if tex.usage&gputypes.TextureUsageCopySrc == 0 {
			return invalidf(op, "texture %q lacks CopySrc usage", tex.label)
		}
		if buf.usage&gputypes.BufferUsageCopyDst == 0 {
			return invalidf(op, "buffer %q lacks CopyDst usage", buf.label)
		}
		if !texformat.CopySourceAllowed(tex.format, aspect) {
			return invalidf(op, "aspect %v of %v cannot be a copy source", aspect, tex.format)
		}
	}
	if tex.sampleCount != 1 {
		return invalidf(op, "texture %q is multisampled", tex.label)
	}
	l := bv.Layout
	if l.BytesPerRow != CopyStrideUndefined && l.BytesPerRow%256 != 0 {
		return invalidf(op, "bytesPerRow %d is not a multiple of 256", l.BytesPerRow)
	}
	return validateLinearTextureData(op, l, buf.size, texformat.BlockSize(tex.format, aspect), extent)
}

// validateLinearTextureData checks that layout addresses extent texels of
// blockSize bytes within a buffer of bufferSize bytes.
func validateLinearTextureData(op string, l TextureDataLayout, bufferSize uint64, blockSize uint32, extent gputypes.Extent3D) error {
	bs := uint64(blockSize)
	if l.Offset%bs != 0 {
		return invalidf(op, "offset %d is not a multiple of the block size %d", l.Offset, bs)
	}
	bytesInLastRow, ok := checked.Mul(uint64(extent.Width), bs)
	if !ok {
		return invalidf(op, "row size overflows")
	}
	bprDefined := l.BytesPerRow != CopyStrideUndefined
	rpiDefined := l.RowsPerImage != CopyStrideUndefined
	if extent.Height > 1 && !bprDefined {
		return invalidf(op, "bytesPerRow must be specified for a copy of %d rows", extent.Height)
	}
	if extent.DepthOrArrayLayers > 1 && (!bprDefined || !rpiDefined) {
		return invalidf(op, "bytesPerRow and rowsPerImage must be specified for a copy of %d images", extent.DepthOrArrayLayers)
	}
	if bprDefined && uint64(l.BytesPerRow) < bytesInLastRow {
		return invalidf(op, "bytesPerRow %d is less than the %d bytes in a row", l.BytesPerRow, bytesInLastRow)
	}
	if rpiDefined && l.RowsPerImage < extent.Height {
		return invalidf(op, "rowsPerImage %d is less than the copy height %d", l.RowsPerImage, extent.Height)
	}

	var bpr, rpi uint64
	if bprDefined {
		bpr = uint64(l.BytesPerRow)
	}
	if rpiDefined {
		rpi = uint64(l.RowsPerImage)
	}
	required := checked.New[uint64](0)
	if extent.DepthOrArrayLayers > 0 && extent.Height > 0 {
		images, ok := checked.New(bpr).Mul(rpi).Mul(uint64(extent.DepthOrArrayLayers - 1)).Get()
		if !ok {
			return invalidf(op, "image stride overflows")
		}
		rowsBytes, ok := checked.Mul(bpr, uint64(extent.Height-1))
		if !ok {
			return invalidf(op, "row stride overflows")
		}
		required = required.Add(images).Add(rowsBytes).Add(bytesInLastRow)
	}
	end, ok := required.Add(l.Offset).Get()
	if !ok || end > bufferSize {
		return invalidf(op, "copy of %dx%dx%d at offset %d exceeds buffer size %d",
			extent.Width, extent.Height, extent.DepthOrArrayLayers, l.Offset, bufferSize)
	}
	return nil
}

// validateTextureCopyView checks the texture side of any copy.
func (e *CommandEncoder) validateTextureCopyView(op string, v *TextureCopyView, extent gputypes.Extent3D) error {
	tex := v.Texture
	if !tex.valid(e.device) {
		return invalidf(op, "texture is not valid to use with this encoder")
	}
	if v.MipLevel >= tex.mipLevelCount {
		return invalidf(op, "mip level %d >= mip count %d", v.MipLevel, tex.mipLevelCount)
	}
	aspect := normalizeAspect(v.Aspect)
	if !texformat.HasAspect(tex.format, aspect) {
		return invalidf(op, "format %v has no aspect %v", tex.format, aspect)
	}
	logical := tex.LogicalExtent(v.MipLevel)
	fits := func(origin, size, limit uint32) bool {
		end, ok := checked.Add(origin, size)
		return ok && end <= limit
	}
	if !fits(v.Origin.X, extent.Width, logical.Width) ||
		!fits(v.Origin.Y, extent.Height, logical.Height) ||
		!fits(v.Origin.Z, extent.DepthOrArrayLayers, logical.DepthOrArrayLayers) {
		return invalidf(op, "region %v+%v exceeds mip %d of %q (%v)", v.Origin, extent, v.MipLevel, tex.label, logical)
	}
	return nil
}

// encodeBufferTexture emits a validated buffer/texture copy, splitting it
// when its row stride exceeds the backend limit.
func (e *CommandEncoder) encodeBufferTexture(op string, bv *BufferCopyView, tv *TextureCopyView, extent gputypes.Extent3D, toTexture bool) {
	buf, tex := bv.Buffer, tv.Texture
	aspect := normalizeAspect(tv.Aspect)
	blockSize := texformat.BlockSize(tex.format, aspect)

	bpr, ok := e.resolveBytesPerRow(bv.Layout.BytesPerRow, buf.size, blockSize, tex.dimension)
	if !ok {
		e.overflowed(op)
		return
	}
	rows := bv.Layout.RowsPerImage
	if rows == CopyStrideUndefined {
		rows = max(extent.Height, 1)
	}
	bpi, ok := checked.Mul(bpr, uint64(rows))
	if !ok {
		e.overflowed(op)
		return
	}

	base := backend.BufferTextureCopy{
		Buffer:        buf.native,
		Offset:        bv.Layout.Offset,
		BytesPerRow:   bpr,
		BytesPerImage: bpi,
		Texture:       tex.native,
		MipLevel:      tv.MipLevel,
		Origin:        tv.Origin,
		Aspect:        aspect,
		Size:          extent,
	}
	var copies []backend.BufferTextureCopy
	dim := dimensionOf(tex.dimension)
	if limit := dim.strideLimit(e.device.caps, blockSize); split.Needed(extent, bpr, limit) {
		plan, ok := split.NewPlan(tv.Origin, extent, bv.Layout.Offset, bpr, bpi)
		if !ok {
			e.overflowed(op)
			return
		}
		Logger().Debug("gpuenc: splitting copy", "op", op, "bytesPerRow", bpr, "limit", limit, "units", plan.Len())
		copies = make([]backend.BufferTextureCopy, 0, plan.Len())
		unit := base
		unit.BytesPerRow, unit.BytesPerImage = 0, 0
		unit.Size = plan.UnitExtent()
		for u := range plan.Units() {
			unit.Offset, unit.Origin = u.Offset, u.Origin
			copies = append(copies, unit)
		}
	} else if copies, ok = dim.bufferCopies(&base); !ok {
		e.overflowed(op)
		return
	}

	if toTexture {
		if !e.prepareWrite(tex, tv.MipLevel, aspect, tv.Origin.Z, extent) {
			return
		}
	} else if !e.prepareRead(tex, tv.MipLevel, tv.Origin.Z, extent.DepthOrArrayLayers) {
		return
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return
	}
	for i := range copies {
		if toTexture {
			blit.CopyBufferToTexture(&copies[i])
		} else {
			blit.CopyTextureToBuffer(&copies[i])
		}
	}
}

// resolveBytesPerRow returns the row stride of a buffer/texture copy. An
// undefined stride resolves to the buffer length, capped by the largest row
// the texture dimension allows and rounded up to the block size.
func (e *CommandEncoder) resolveBytesPerRow(bytesPerRow uint32, bufferSize uint64, blockSize uint32, dim gputypes.TextureDimension) (uint64, bool) {
	if bytesPerRow != CopyStrideUndefined {
		return uint64(bytesPerRow), true
	}
	maxDim := e.device.limits.MaxTextureDimension2D
	if dim == gputypes.TextureDimension1D {
		maxDim = e.device.limits.MaxTextureDimension1D
	}
	v := bufferSize
	if limit, ok := checked.Mul(uint64(blockSize), uint64(maxDim)); ok {
		v = min(v, limit)
	}
	return checked.RoundUp(v, uint64(blockSize))
}

func (e *CommandEncoder) overflowed(op string) {
	Logger().Debug("gpuenc: arithmetic overflow, command dropped", "encoder", e.label, "op", op)
}

// CopyTextureToTexture copies texels between two textures.
func (e *CommandEncoder) CopyTextureToTexture(src, dst *TextureCopyView, extent gputypes.Extent3D) {
	const op = "CopyTextureToTexture"
	if src != nil && dst != nil && (src.NextInChain != nil || dst.NextInChain != nil) {
		e.skipped(op, "chained extension")
		return
	}
	if !e.prepare(op) {
		return
	}
	if err := e.validateCopyTextureToTexture(src, dst, extent); err != nil {
		e.makeInvalid(err)
		return
	}
	src.Texture.setCommandEncoder(e)
	dst.Texture.setCommandEncoder(e)
	if isEmpty(extent) || src.Texture.destroyed || dst.Texture.destroyed {
		e.skipped(op, "zero size or destroyed texture")
		return
	}

	srcAspect := normalizeAspect(src.Aspect)
	copies, ok := dimensionOf(src.Texture.dimension).textureCopies(&backend.TextureCopy{
		Source:            src.Texture.native,
		SourceMip:         src.MipLevel,
		SourceOrigin:      src.Origin,
		Destination:       dst.Texture.native,
		DestinationMip:    dst.MipLevel,
		DestinationOrigin: dst.Origin,
		Aspect:            srcAspect,
		Size:              extent,
	})
	if !ok {
		e.overflowed(op)
		return
	}
	if !e.prepareRead(src.Texture, src.MipLevel, src.Origin.Z, extent.DepthOrArrayLayers) ||
		!e.prepareWrite(dst.Texture, dst.MipLevel, normalizeAspect(dst.Aspect), dst.Origin.Z, extent) {
		return
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return
	}
	for i := range copies {
		blit.CopyTextureToTexture(&copies[i])
	}
}

func (e *CommandEncoder) validateCopyTextureToTexture(src, dst *TextureCopyView, extent gputypes.Extent3D) error {
	const op = "CopyTextureToTexture"
	if src == nil || dst == nil {
		return invalidf(op, "copy view is nil")
	}
	if err := e.validateTextureCopyView(op, src, extent); err != nil {
		return err
	}
	if err := e.validateTextureCopyView(op, dst, extent); err != nil {
		return err
	}
	s, d := src.Texture, dst.Texture
	if s.usage&gputypes.TextureUsageCopySrc == 0 {
		return invalidf(op, "source texture %q lacks CopySrc usage", s.label)
	}
	if d.usage&gputypes.TextureUsageCopyDst == 0 {
		return invalidf(op, "destination texture %q lacks CopyDst usage", d.label)
	}
	if s.sampleCount != d.sampleCount {
		return invalidf(op, "sample counts %d and %d differ", s.sampleCount, d.sampleCount)
	}
	if s.dimension != d.dimension {
		return invalidf(op, "dimensions %v and %v differ", s.dimension, d.dimension)
	}
	if !texformat.CopyCompatible(s.format, d.format) {
		return invalidf(op, "formats %v and %v are not copy-compatible", s.format, d.format)
	}
	srcAspect, dstAspect := normalizeAspect(src.Aspect), normalizeAspect(dst.Aspect)
	if texformat.IsDepthStencil(s.format) || s.sampleCount > 1 {
		if srcAspect != gputypes.TextureAspectAll || dstAspect != gputypes.TextureAspectAll {
			return invalidf(op, "depth-stencil and multisampled copies must select all aspects")
		}
		if extent != s.LogicalExtent(src.MipLevel) || extent != d.LogicalExtent(dst.MipLevel) {
			return invalidf(op, "depth-stencil and multisampled copies must cover whole subresources")
		}
	}
	if s == d && src.MipLevel == dst.MipLevel {
		if s.dimension == gputypes.TextureDimension3D ||
			rangesOverlap(src.Origin.Z, dst.Origin.Z, extent.DepthOrArrayLayers) {
			return invalidf(op, "source and destination subresources of %q overlap", s.label)
		}
	}
	return nil
}

// rangesOverlap reports whether [a, a+n) and [b, b+n) intersect. Both
// ranges are known not to overflow.
func rangesOverlap(a, b, n uint32) bool {
	return a < b+n && b < a+n
}

// prepareRead clears every uncleared slice in [firstSlice, firstSlice+count)
// of mipLevel before it is read.
func (e *CommandEncoder) prepareRead(t *Texture, mipLevel, firstSlice, count uint32) bool {
	for z := firstSlice; z < firstSlice+count; z++ {
		if !e.clearIfNeeded(t, mipLevel, z) {
			return false
		}
	}
	return true
}

// prepareWrite readies the slices a write of extent touches. A write that
// replaces a whole subresource marks it cleared; other writes clear it first.
func (e *CommandEncoder) prepareWrite(t *Texture, mipLevel uint32, aspect gputypes.TextureAspect, firstSlice uint32, extent gputypes.Extent3D) bool {
	full := cleartrack.WriteCompletelyClears(t.dimension, extent, t.LogicalExtent(mipLevel)) &&
		coversAllAspects(t.format, aspect)
	if !full {
		return e.prepareRead(t, mipLevel, firstSlice, extent.DepthOrArrayLayers)
	}
	for z := firstSlice; z < firstSlice+extent.DepthOrArrayLayers; z++ {
		t.cleared.MarkCleared(mipLevel, z)
	}
	return true
}

// clearIfNeeded zeroes one subresource the first time it is used.
func (e *CommandEncoder) clearIfNeeded(t *Texture, mipLevel, slice uint32) bool {
	if !t.cleared.NeedsClear(mipLevel, slice) {
		return true
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return false
	}
	blit.ClearTexture(t.native, mipLevel, slice)
	t.cleared.MarkCleared(mipLevel, slice)
	return true
}

// coversAllAspects reports whether writing aspect of f writes every aspect.
func coversAllAspects(f gputypes.TextureFormat, aspect gputypes.TextureAspect) bool {
	info, _ := texformat.Lookup(f)
	return aspect == gputypes.TextureAspectAll || !(info.Depth && info.Stencil)
}

// copyDimension emits the native copies of a texture dimension.
type copyDimension interface {
	// strideLimit is the largest bytesPerRow one native copy may use. Zero
	// means unlimited.
	strideLimit(caps backend.Caps, blockSize uint32) uint64

	// bufferCopies splits c into the native buffer/texture copies the
	// dimension requires. It returns false on overflow.
	bufferCopies(c *backend.BufferTextureCopy) ([]backend.BufferTextureCopy, bool)

	// textureCopies does the same for a texture-to-texture copy.
	textureCopies(c *backend.TextureCopy) ([]backend.TextureCopy, bool)
}

func dimensionOf(d gputypes.TextureDimension) copyDimension {
	switch d {
	case gputypes.TextureDimension1D:
		return oneD{}
	case gputypes.TextureDimension3D:
		return threeD{}
	default:
		return twoD{}
	}
}

// layeredBufferCopies emits one copy per array layer; 1D and 2D textures
// share it.
func layeredBufferCopies(c *backend.BufferTextureCopy, height uint32) ([]backend.BufferTextureCopy, bool) {
	out := make([]backend.BufferTextureCopy, 0, c.Size.DepthOrArrayLayers)
	for layer := range c.Size.DepthOrArrayLayers {
		off, ok := checked.New(uint64(layer)).Mul(c.BytesPerImage).Add(c.Offset).Get()
		if !ok {
			return nil, false
		}
		r := *c
		r.Offset = off
		r.Origin.Z = c.Origin.Z + layer
		r.Size = gputypes.Extent3D{Width: c.Size.Width, Height: height, DepthOrArrayLayers: 1}
		r.BytesPerImage = 0
		if height <= 1 {
			r.BytesPerRow = 0
		}
		out = append(out, r)
	}
	return out, true
}

func layeredTextureCopies(c *backend.TextureCopy, height uint32) []backend.TextureCopy {
	out := make([]backend.TextureCopy, 0, c.Size.DepthOrArrayLayers)
	for layer := range c.Size.DepthOrArrayLayers {
		r := *c
		r.SourceOrigin.Z = c.SourceOrigin.Z + layer
		r.DestinationOrigin.Z = c.DestinationOrigin.Z + layer
		r.Size = gputypes.Extent3D{Width: c.Size.Width, Height: height, DepthOrArrayLayers: 1}
		out = append(out, r)
	}
	return out
}

type oneD struct{}

func (oneD) strideLimit(caps backend.Caps, _ uint32) uint64 { return caps.MaxCopyBytesPerRow }

func (oneD) bufferCopies(c *backend.BufferTextureCopy) ([]backend.BufferTextureCopy, bool) {
	c.Origin.Y = 0
	return layeredBufferCopies(c, 1)
}

func (oneD) textureCopies(c *backend.TextureCopy) ([]backend.TextureCopy, bool) {
	c.SourceOrigin.Y, c.DestinationOrigin.Y = 0, 0
	return layeredTextureCopies(c, 1), true
}

type twoD struct{}

func (twoD) strideLimit(caps backend.Caps, _ uint32) uint64 { return caps.MaxCopyBytesPerRow }

func (twoD) bufferCopies(c *backend.BufferTextureCopy) ([]backend.BufferTextureCopy, bool) {
	return layeredBufferCopies(c, c.Size.Height)
}

func (twoD) textureCopies(c *backend.TextureCopy) ([]backend.TextureCopy, bool) {
	return layeredTextureCopies(c, c.Size.Height), true
}

// threeD copies all depth slices in one native call.
type threeD struct{}

func (threeD) strideLimit(caps backend.Caps, blockSize uint32) uint64 {
	limit := caps.Max3DBytesPerRow(blockSize)
	if caps.MaxCopyBytesPerRow != 0 {
		limit = min(limit, caps.MaxCopyBytesPerRow)
	}
	return limit
}

func (threeD) bufferCopies(c *backend.BufferTextureCopy) ([]backend.BufferTextureCopy, bool) {
	r := *c
	if r.Size.Height <= 1 && r.Size.DepthOrArrayLayers <= 1 {
		r.BytesPerRow = 0
	}
	return []backend.BufferTextureCopy{r}, true
}

func (threeD) textureCopies(c *backend.TextureCopy) ([]backend.TextureCopy, bool) {
	return []backend.TextureCopy{*c}, true
}
