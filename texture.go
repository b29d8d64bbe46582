package gpuenc

import (
	"fmt"
	"math/bits"
	"weak"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/cleartrack"
	"github.com/gogpu/gpuenc/internal/texformat"
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Dimension is 1D, 2D or 3D.
	Dimension gputypes.TextureDimension

	// Size is the extent of mip level 0. DepthOrArrayLayers is the depth of
	// a 3D texture and the layer count otherwise.
	Size gputypes.Extent3D

	// MipLevelCount defaults to 1.
	MipLevelCount uint32

	// SampleCount defaults to 1.
	SampleCount uint32

	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Texture is a GPU image with lazily cleared subresources.
//
// Each (mip level, array layer) pair, or (mip level, depth slice) pair for a
// 3D texture, starts uncleared. The encoder zeroes a subresource the first
// time a command would observe its contents, unless a write replaces the
// whole subresource.
type Texture struct {
	device        *Device
	native        backend.Texture
	label         string
	dimension     gputypes.TextureDimension
	size          gputypes.Extent3D
	mipLevelCount uint32
	sampleCount   uint32
	format        gputypes.TextureFormat
	usage         gputypes.TextureUsage

	destroyed bool
	cleared   *cleartrack.Table
	encoder   weak.Pointer[CommandEncoder]
}

// CreateTexture allocates a texture.
func (d *Device) CreateTexture(desc *TextureDescriptor) (*Texture, error) {
	const op = "CreateTexture"
	if desc == nil {
		return nil, invalidf(op, "descriptor is nil")
	}
	t := &Texture{
		device:        d,
		label:         desc.Label,
		dimension:     desc.Dimension,
		size:          desc.Size,
		mipLevelCount: max(desc.MipLevelCount, 1),
		sampleCount:   max(desc.SampleCount, 1),
		format:        desc.Format,
		usage:         desc.Usage,
	}
	if err := d.validateTexture(t); err != nil {
		return nil, err
	}

	native, err := d.native.NewTexture(&backend.TextureDescriptor{
		Label:         t.label,
		Dimension:     t.dimension,
		Size:          t.size,
		MipLevelCount: t.mipLevelCount,
		SampleCount:   t.sampleCount,
		Format:        t.format,
		Usage:         t.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpuenc: create texture %q: %w", desc.Label, err)
	}
	t.native = native
	t.cleared = cleartrack.New(t.mipLevelCount, t.size.DepthOrArrayLayers)
	return t, nil
}

func (d *Device) validateTexture(t *Texture) error {
	const op = "CreateTexture"
	s := t.size
	if s.Width == 0 || s.Height == 0 || s.DepthOrArrayLayers == 0 {
		return invalidf(op, "size %dx%dx%d has a zero dimension", s.Width, s.Height, s.DepthOrArrayLayers)
	}
	if _, ok := texformat.Lookup(t.format); !ok {
		return invalidf(op, "unsupported format %v", t.format)
	}
	lim := d.limits
	var maxMips uint32
	switch t.dimension {
	case gputypes.TextureDimension1D:
		if s.Width > lim.MaxTextureDimension1D || s.Height != 1 || s.DepthOrArrayLayers != 1 {
			return invalidf(op, "1D size %dx%dx%d out of range", s.Width, s.Height, s.DepthOrArrayLayers)
		}
		maxMips = 1
	case gputypes.TextureDimension2D:
		if s.Width > lim.MaxTextureDimension2D || s.Height > lim.MaxTextureDimension2D ||
			s.DepthOrArrayLayers > lim.MaxTextureArrayLayers {
			return invalidf(op, "2D size %dx%dx%d out of range", s.Width, s.Height, s.DepthOrArrayLayers)
		}
		maxMips = uint32(bits.Len32(max(s.Width, s.Height)))
	case gputypes.TextureDimension3D:
		m := lim.MaxTextureDimension3D
		if s.Width > m || s.Height > m || s.DepthOrArrayLayers > m {
			return invalidf(op, "3D size %dx%dx%d out of range", s.Width, s.Height, s.DepthOrArrayLayers)
		}
		if texformat.IsDepthStencil(t.format) {
			return invalidf(op, "3D textures cannot have depth-stencil format %v", t.format)
		}
		maxMips = uint32(bits.Len32(max(s.Width, s.Height, s.DepthOrArrayLayers)))
	default:
		return invalidf(op, "unknown dimension %v", t.dimension)
	}
	if t.mipLevelCount > maxMips {
		return invalidf(op, "mipLevelCount %d exceeds %d", t.mipLevelCount, maxMips)
	}
	switch t.sampleCount {
	case 1:
	case 4:
		if t.dimension != gputypes.TextureDimension2D || t.mipLevelCount != 1 || s.DepthOrArrayLayers != 1 {
			return invalidf(op, "multisampled textures must be 2D with one mip level and one layer")
		}
		if t.usage&gputypes.TextureUsageRenderAttachment == 0 {
			return invalidf(op, "multisampled textures need RenderAttachment usage")
		}
	default:
		return invalidf(op, "sampleCount %d must be 1 or 4", t.sampleCount)
	}
	return nil
}

// Label returns the texture's debug label.
func (t *Texture) Label() string { return t.label }

// Dimension returns the texture dimension.
func (t *Texture) Dimension() gputypes.TextureDimension { return t.dimension }

// Size returns the extent of mip level 0.
func (t *Texture) Size() gputypes.Extent3D { return t.size }

// MipLevelCount returns the number of mip levels.
func (t *Texture) MipLevelCount() uint32 { return t.mipLevelCount }

// SampleCount returns the number of samples per texel.
func (t *Texture) SampleCount() uint32 { return t.sampleCount }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Usage returns the allowed usages.
func (t *Texture) Usage() gputypes.TextureUsage { return t.usage }

// Device returns the device the texture was created on.
func (t *Texture) Device() *Device { return t.device }

// Native returns the backend texture.
func (t *Texture) Native() backend.Texture { return t.native }

// IsDestroyed reports whether Destroy was called.
func (t *Texture) IsDestroyed() bool { return t.destroyed }

// ArrayLayerCount returns the number of array layers; 1 for 3D textures.
func (t *Texture) ArrayLayerCount() uint32 {
	if t.dimension == gputypes.TextureDimension3D {
		return 1
	}
	return t.size.DepthOrArrayLayers
}

// LogicalExtent returns the size of mipLevel in texels. For 1D and 2D
// textures DepthOrArrayLayers is the layer count.
func (t *Texture) LogicalExtent(mipLevel uint32) gputypes.Extent3D {
	e := gputypes.Extent3D{
		Width:              max(t.size.Width>>mipLevel, 1),
		Height:             max(t.size.Height>>mipLevel, 1),
		DepthOrArrayLayers: t.size.DepthOrArrayLayers,
	}
	switch t.dimension {
	case gputypes.TextureDimension1D:
		e.Height = 1
	case gputypes.TextureDimension3D:
		e.DepthOrArrayLayers = max(t.size.DepthOrArrayLayers>>mipLevel, 1)
	}
	return e
}

// IsCleared reports whether the subresource at (mipLevel, slice) holds
// defined contents. slice is the array layer, or the depth slice of a 3D
// texture.
func (t *Texture) IsCleared(mipLevel, slice uint32) bool {
	return t.cleared.IsCleared(mipLevel, slice)
}

// Destroy releases the native allocation and forgets which subresources
// were cleared. Destroy is idempotent.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.cleared.Reset()
	t.native.Destroy()
	if e := t.encoder.Value(); e != nil {
		e.makeSubmitInvalid("texture " + t.label)
	}
}

func (t *Texture) setCommandEncoder(e *CommandEncoder) {
	t.encoder = weak.Make(e)
	if t.destroyed {
		e.makeSubmitInvalid("texture " + t.label)
	}
}

func (t *Texture) valid(d *Device) bool {
	return t != nil && t.device == d
}

// TextureViewDescriptor describes a texture view to create.
type TextureViewDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Format is the view format (use TextureFormatUndefined to inherit from texture).
	Format gputypes.TextureFormat

	// Dimension is the view dimension (use TextureViewDimensionUndefined to inherit).
	Dimension gputypes.TextureViewDimension

	// Aspect specifies which aspect to view.
	Aspect gputypes.TextureAspect

	// BaseMipLevel is the first mip level in the view.
	BaseMipLevel uint32

	// MipLevelCount is the number of mip levels (0 means all remaining levels).
	MipLevelCount uint32

	// BaseArrayLayer is the first array layer in the view.
	BaseArrayLayer uint32

	// ArrayLayerCount is the number of array layers (0 means all remaining layers).
	ArrayLayerCount uint32
}

// TextureView selects a range of a texture's subresources. Render pass
// attachments are views.
type TextureView struct {
	texture *Texture
	desc    TextureViewDescriptor
}

// CreateView creates a view of t. A nil descriptor views the whole texture.
func (t *Texture) CreateView(desc *TextureViewDescriptor) (*TextureView, error) {
	const op = "CreateView"
	var d TextureViewDescriptor
	if desc != nil {
		d = *desc
	}
	if d.Format == gputypes.TextureFormatUndefined {
		d.Format = t.format
	}
	if d.Dimension == gputypes.TextureViewDimensionUndefined {
		d.Dimension = defaultViewDimension(t)
	}
	d.Aspect = normalizeAspect(d.Aspect)
	if d.BaseMipLevel >= t.mipLevelCount {
		return nil, invalidf(op, "base mip level %d >= mip count %d", d.BaseMipLevel, t.mipLevelCount)
	}
	if d.MipLevelCount == 0 {
		d.MipLevelCount = t.mipLevelCount - d.BaseMipLevel
	}
	layers := t.ArrayLayerCount()
	if d.BaseArrayLayer >= layers {
		return nil, invalidf(op, "base array layer %d >= layer count %d", d.BaseArrayLayer, layers)
	}
	if d.ArrayLayerCount == 0 {
		d.ArrayLayerCount = layers - d.BaseArrayLayer
	}
	if uint64(d.BaseMipLevel)+uint64(d.MipLevelCount) > uint64(t.mipLevelCount) ||
		uint64(d.BaseArrayLayer)+uint64(d.ArrayLayerCount) > uint64(layers) {
		return nil, invalidf(op, "subresource range exceeds texture %q", t.label)
	}
	if !texformat.CopyCompatible(t.format, d.Format) {
		return nil, invalidf(op, "view format %v incompatible with texture format %v", d.Format, t.format)
	}
	if !texformat.HasAspect(t.format, d.Aspect) {
		return nil, invalidf(op, "format %v has no aspect %v", t.format, d.Aspect)
	}
	return &TextureView{texture: t, desc: d}, nil
}

func defaultViewDimension(t *Texture) gputypes.TextureViewDimension {
	switch t.dimension {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		if t.size.DepthOrArrayLayers > 1 {
			return gputypes.TextureViewDimension2DArray
		}
		return gputypes.TextureViewDimension2D
	}
}

// normalizeAspect maps the zero aspect to TextureAspectAll.
func normalizeAspect(a gputypes.TextureAspect) gputypes.TextureAspect {
	if a == gputypes.TextureAspect(0) {
		return gputypes.TextureAspectAll
	}
	return a
}

// Texture returns the parent texture.
func (v *TextureView) Texture() *Texture { return v.texture }

// Label returns the view's debug label.
func (v *TextureView) Label() string { return v.desc.Label }

// Format returns the view's format.
func (v *TextureView) Format() gputypes.TextureFormat { return v.desc.Format }

// Dimension returns the view's dimension.
func (v *TextureView) Dimension() gputypes.TextureViewDimension { return v.desc.Dimension }

// Aspect returns the view's aspect.
func (v *TextureView) Aspect() gputypes.TextureAspect { return v.desc.Aspect }

// BaseMipLevel returns the first mip level in the view.
func (v *TextureView) BaseMipLevel() uint32 { return v.desc.BaseMipLevel }

// MipLevelCount returns the number of mip levels in the view.
func (v *TextureView) MipLevelCount() uint32 { return v.desc.MipLevelCount }

// BaseArrayLayer returns the first array layer in the view.
func (v *TextureView) BaseArrayLayer() uint32 { return v.desc.BaseArrayLayer }

// ArrayLayerCount returns the number of array layers in the view.
func (v *TextureView) ArrayLayerCount() uint32 { return v.desc.ArrayLayerCount }

// extent returns the size of the view's base mip level.
func (v *TextureView) extent() gputypes.Extent3D {
	return v.texture.LogicalExtent(v.desc.BaseMipLevel)
}
