// Package texformat describes the texel layout and render-target properties
// of the texture formats the encoder understands.
package texformat

import "github.com/gogpu/gputypes"

// Info describes a texture format.
type Info struct {
	// BlockSize is the size in bytes of one texel block for the whole format.
	// Zero for formats whose combined aspects cannot be copied (depth24plus).
	BlockSize uint32

	// Depth and Stencil report which aspects the format contains.
	Depth   bool
	Stencil bool

	// Color is set for colour formats.
	Color bool

	// ColorRenderable reports whether the format can be a colour attachment.
	ColorRenderable bool

	// Resolvable reports whether a multisampled attachment of this format can
	// be resolved.
	Resolvable bool

	// RenderTargetByteCost and RenderTargetAlignment feed the per-sample byte
	// budget of a render pass.
	RenderTargetByteCost  uint32
	RenderTargetAlignment uint32

	// Srgb links a format to its sRGB/linear twin for copy compatibility.
	Srgb gputypes.TextureFormat
}

var formats = map[gputypes.TextureFormat]Info{
	gputypes.TextureFormatR8Unorm: {
		BlockSize: 1, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 1, RenderTargetAlignment: 1,
	},
	gputypes.TextureFormatR32Float: {
		BlockSize: 4, Color: true, ColorRenderable: true,
		RenderTargetByteCost: 4, RenderTargetAlignment: 4,
	},
	gputypes.TextureFormatRG32Float: {
		BlockSize: 8, Color: true, ColorRenderable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 4,
	},
	gputypes.TextureFormatRGBA8Unorm: {
		BlockSize: 4, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 1,
		Srgb: gputypes.TextureFormatRGBA8UnormSrgb,
	},
	gputypes.TextureFormatRGBA8UnormSrgb: {
		BlockSize: 4, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 1,
		Srgb: gputypes.TextureFormatRGBA8Unorm,
	},
	gputypes.TextureFormatBGRA8Unorm: {
		BlockSize: 4, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 1,
		Srgb: gputypes.TextureFormatBGRA8UnormSrgb,
	},
	gputypes.TextureFormatBGRA8UnormSrgb: {
		BlockSize: 4, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 1,
		Srgb: gputypes.TextureFormatBGRA8Unorm,
	},
	gputypes.TextureFormatRGBA16Float: {
		BlockSize: 8, Color: true, ColorRenderable: true, Resolvable: true,
		RenderTargetByteCost: 8, RenderTargetAlignment: 2,
	},
	gputypes.TextureFormatRGBA32Float: {
		BlockSize: 16, Color: true, ColorRenderable: true,
		RenderTargetByteCost: 16, RenderTargetAlignment: 4,
	},
	gputypes.TextureFormatStencil8: {
		BlockSize: 1, Stencil: true,
	},
	gputypes.TextureFormatDepth16Unorm: {
		BlockSize: 2, Depth: true,
	},
	gputypes.TextureFormatDepth24Plus: {
		Depth: true,
	},
	gputypes.TextureFormatDepth24PlusStencil8: {
		Depth: true, Stencil: true,
	},
	gputypes.TextureFormatDepth32Float: {
		BlockSize: 4, Depth: true,
	},
}

// Lookup returns the format description and whether the format is known.
func Lookup(f gputypes.TextureFormat) (Info, bool) {
	info, ok := formats[f]
	return info, ok
}

// IsDepthStencil reports whether f has a depth or stencil aspect.
func IsDepthStencil(f gputypes.TextureFormat) bool {
	info := formats[f]
	return info.Depth || info.Stencil
}

// IsColorRenderable reports whether f can be bound as a colour attachment.
func IsColorRenderable(f gputypes.TextureFormat) bool {
	return formats[f].ColorRenderable
}

// IsDepthStencilRenderable reports whether f can be bound as a depth-stencil
// attachment.
func IsDepthStencilRenderable(f gputypes.TextureFormat) bool {
	return IsDepthStencil(f)
}

// SupportsResolve reports whether a multisampled f can be resolved.
func SupportsResolve(f gputypes.TextureFormat) bool {
	return formats[f].Resolvable
}

// HasAspect reports whether format f contains the given aspect.
func HasAspect(f gputypes.TextureFormat, aspect gputypes.TextureAspect) bool {
	info, ok := formats[f]
	if !ok {
		return false
	}
	switch aspect {
	case gputypes.TextureAspectAll:
		return true
	case gputypes.TextureAspectDepthOnly:
		return info.Depth
	case gputypes.TextureAspectStencilOnly:
		return info.Stencil
	default:
		return false
	}
}

// AspectSpecificFormat returns the single-aspect format selected by aspect.
// Colour formats and single-aspect formats are returned unchanged.
func AspectSpecificFormat(f gputypes.TextureFormat, aspect gputypes.TextureAspect) gputypes.TextureFormat {
	info := formats[f]
	if !info.Depth || !info.Stencil {
		return f
	}
	switch aspect {
	case gputypes.TextureAspectStencilOnly:
		return gputypes.TextureFormatStencil8
	case gputypes.TextureAspectDepthOnly:
		return gputypes.TextureFormatDepth24Plus
	default:
		return f
	}
}

// BlockSize returns the texel block size in bytes of aspect within f, or 0
// when that aspect cannot be addressed by copies.
func BlockSize(f gputypes.TextureFormat, aspect gputypes.TextureAspect) uint32 {
	return formats[AspectSpecificFormat(f, aspect)].BlockSize
}

// CopyCompatible reports whether two formats may be the source and
// destination of one texture-to-texture copy. Formats are compatible when
// equal or when they differ only in sRGB-ness.
func CopyCompatible(a, b gputypes.TextureFormat) bool {
	if a == b {
		return true
	}
	info, ok := formats[a]
	return ok && info.Srgb == b && info.Srgb != gputypes.TextureFormatUndefined
}

// CopySourceAllowed reports whether aspect of f can be read by a copy.
func CopySourceAllowed(f gputypes.TextureFormat, aspect gputypes.TextureAspect) bool {
	return BlockSize(f, aspect) != 0
}

// CopyDestinationAllowed reports whether aspect of f can be written by a
// buffer-to-texture copy. Depth aspects other than depth16unorm are
// read-only for copies.
func CopyDestinationAllowed(f gputypes.TextureFormat, aspect gputypes.TextureAspect) bool {
	specific := AspectSpecificFormat(f, aspect)
	info := formats[specific]
	if info.Depth && specific != gputypes.TextureFormatDepth16Unorm {
		return false
	}
	return info.BlockSize != 0
}
