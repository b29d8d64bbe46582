package texformat

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestBlockSize(t *testing.T) {
	tests := []struct {
		name   string
		format gputypes.TextureFormat
		aspect gputypes.TextureAspect
		want   uint32
	}{
		{"rgba8", gputypes.TextureFormatRGBA8Unorm, gputypes.TextureAspectAll, 4},
		{"r8", gputypes.TextureFormatR8Unorm, gputypes.TextureAspectAll, 1},
		{"rgba32float", gputypes.TextureFormatRGBA32Float, gputypes.TextureAspectAll, 16},
		{"d24s8 stencil", gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureAspectStencilOnly, 1},
		{"d24s8 depth", gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureAspectDepthOnly, 0},
		{"d24s8 all", gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureAspectAll, 0},
		{"d32", gputypes.TextureFormatDepth32Float, gputypes.TextureAspectDepthOnly, 4},
		{"unknown", gputypes.TextureFormatUndefined, gputypes.TextureAspectAll, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlockSize(tt.format, tt.aspect); got != tt.want {
				t.Errorf("BlockSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasAspect(t *testing.T) {
	if !HasAspect(gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureAspectStencilOnly) {
		t.Error("d24s8 should have a stencil aspect")
	}
	if HasAspect(gputypes.TextureFormatDepth32Float, gputypes.TextureAspectStencilOnly) {
		t.Error("d32 should not have a stencil aspect")
	}
	if HasAspect(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureAspectDepthOnly) {
		t.Error("rgba8 should not have a depth aspect")
	}
}

func TestCopyCompatible(t *testing.T) {
	if !CopyCompatible(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb) {
		t.Error("rgba8 and rgba8-srgb should be copy compatible")
	}
	if CopyCompatible(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm) {
		t.Error("rgba8 and bgra8 should not be copy compatible")
	}
	if CopyCompatible(gputypes.TextureFormatR8Unorm, gputypes.TextureFormatUndefined) {
		t.Error("undefined must never be compatible")
	}
}

func TestCopyDestinationAllowed(t *testing.T) {
	if CopyDestinationAllowed(gputypes.TextureFormatDepth32Float, gputypes.TextureAspectDepthOnly) {
		t.Error("depth32float depth is not a copy destination")
	}
	if !CopyDestinationAllowed(gputypes.TextureFormatDepth16Unorm, gputypes.TextureAspectDepthOnly) {
		t.Error("depth16unorm depth is a copy destination")
	}
	if !CopyDestinationAllowed(gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureAspectStencilOnly) {
		t.Error("stencil aspect is a copy destination")
	}
}
