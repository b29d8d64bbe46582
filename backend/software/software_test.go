package software

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

func newBuffer(t *testing.T, d *Device, size uint64) *Buffer {
	t.Helper()
	b, err := d.NewBuffer(&backend.BufferDescriptor{Label: "buf", Size: size})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}
	return b.(*Buffer)
}

func newTexture2D(t *testing.T, d *Device, w, h uint32, f gputypes.TextureFormat) *Texture {
	t.Helper()
	tex, err := d.NewTexture(&backend.TextureDescriptor{
		Label:         "tex",
		Dimension:     gputypes.TextureDimension2D,
		Size:          gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Format:        f,
	})
	if err != nil {
		t.Fatalf("NewTexture() error = %v", err)
	}
	return tex.(*Texture)
}

func blit(t *testing.T, d *Device, fn func(backend.BlitEncoder)) error {
	t.Helper()
	cb, err := d.NewCommandBuffer("test")
	if err != nil {
		t.Fatalf("NewCommandBuffer() error = %v", err)
	}
	enc, err := cb.BlitEncoder()
	if err != nil {
		t.Fatalf("BlitEncoder() error = %v", err)
	}
	fn(enc)
	enc.EndEncoding()
	return cb.Commit()
}

func TestName(t *testing.T) {
	if New().Name() != backend.BackendSoftware {
		t.Errorf("Name() = %q", New().Name())
	}
	if !backend.IsRegistered(backend.BackendSoftware) {
		t.Error("software backend should register itself")
	}
}

func TestBufferTextureRoundTrip(t *testing.T) {
	d := New()
	const w, h = 5, 3
	src := newBuffer(t, d, 256*h)
	for y := range h {
		for x := range w * 4 {
			src.data[y*256+x] = byte(y*64 + x)
		}
	}
	tex := newTexture2D(t, d, w, h, gputypes.TextureFormatRGBA8Unorm)
	dst := newBuffer(t, d, 256*h)

	err := blit(t, d, func(e backend.BlitEncoder) {
		e.CopyBufferToTexture(&backend.BufferTextureCopy{
			Buffer: src, BytesPerRow: 256, Texture: tex,
			Size: gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		})
		e.CopyTextureToBuffer(&backend.BufferTextureCopy{
			Buffer: dst, BytesPerRow: 256, Texture: tex,
			Size: gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		})
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	for y := range h {
		got := dst.data[y*256 : y*256+w*4]
		want := src.data[y*256 : y*256+w*4]
		if !bytes.Equal(got, want) {
			t.Errorf("row %d = %v, want %v", y, got, want)
		}
	}
	if n := d.Count(OpCopyBufferToTexture); n != 1 {
		t.Errorf("Count(CopyBufferToTexture) = %d, want 1", n)
	}
}

func TestStrideLimitViolation(t *testing.T) {
	d := New(WithMaxCopyBytesPerRow(64))
	b := newBuffer(t, d, 128*2)
	tex := newTexture2D(t, d, 16, 2, gputypes.TextureFormatRGBA8Unorm)

	err := blit(t, d, func(e backend.BlitEncoder) {
		e.CopyBufferToTexture(&backend.BufferTextureCopy{
			Buffer: b, BytesPerRow: 128, Texture: tex,
			Size: gputypes.Extent3D{Width: 16, Height: 2, DepthOrArrayLayers: 1},
		})
	})
	if !errors.Is(err, ErrStrideLimit) {
		t.Fatalf("Commit() error = %v, want ErrStrideLimit", err)
	}
	if len(d.Violations()) != 1 {
		t.Errorf("Violations() = %v, want one", d.Violations())
	}

	d.ResetTrace()
	err = blit(t, d, func(e backend.BlitEncoder) {
		for y := range uint32(2) {
			e.CopyBufferToTexture(&backend.BufferTextureCopy{
				Buffer: b, Offset: uint64(y) * 128, Texture: tex,
				Origin: gputypes.Origin3D{Y: y},
				Size:   gputypes.Extent3D{Width: 16, Height: 1, DepthOrArrayLayers: 1},
			})
		}
	})
	if err != nil {
		t.Fatalf("single-row copies should respect the limit, got %v", err)
	}
}

func TestFillBuffer(t *testing.T) {
	d := New()
	b := newBuffer(t, d, 16)
	for i := range b.data {
		b.data[i] = 0xAA
	}
	if err := blit(t, d, func(e backend.BlitEncoder) { e.FillBuffer(b, 4, 8, 0) }); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	want := []byte{0xAA, 0xAA, 0xAA, 0xAA, 0, 0, 0, 0, 0, 0, 0, 0, 0xAA, 0xAA, 0xAA, 0xAA}
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("Bytes() = %v, want %v", b.Bytes(), want)
	}
}

func TestOutOfBounds(t *testing.T) {
	d := New()
	a := newBuffer(t, d, 8)
	c := newBuffer(t, d, 8)
	err := blit(t, d, func(e backend.BlitEncoder) { e.CopyBufferToBuffer(a, 4, c, 0, 8) })
	if !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Commit() error = %v, want ErrOutOfBounds", err)
	}
}

func TestSubEncoderExclusive(t *testing.T) {
	d := New()
	cb, _ := d.NewCommandBuffer("x")
	if _, err := cb.BlitEncoder(); err != nil {
		t.Fatal(err)
	}
	if _, err := cb.ComputeEncoder(nil); !errors.Is(err, backend.ErrEncoderActive) {
		t.Errorf("second sub-encoder error = %v, want ErrEncoderActive", err)
	}
	if err := cb.Commit(); !errors.Is(err, backend.ErrEncoderActive) {
		t.Errorf("Commit() with active encoder error = %v, want ErrEncoderActive", err)
	}
}

func TestRenderClearAndResolve(t *testing.T) {
	d := New()
	msaa := newTexture2D(t, d, 2, 2, gputypes.TextureFormatRGBA8Unorm)
	resolve := newTexture2D(t, d, 2, 2, gputypes.TextureFormatRGBA8Unorm)

	cb, _ := d.NewCommandBuffer("render")
	enc, err := cb.RenderEncoder(&backend.RenderPassDescriptor{
		ColorAttachments: []backend.ColorAttachment{{
			Texture:        msaa,
			Load:           backend.LoadActionClear,
			Store:          backend.StoreActionStoreAndMultisampleResolve,
			ClearValue:     gputypes.Color{R: 1, G: 0, B: 0, A: 1},
			ResolveTexture: resolve,
		}},
		Width: 2, Height: 2, SampleCount: 4,
	})
	if err != nil {
		t.Fatalf("RenderEncoder() error = %v", err)
	}
	enc.Draw(3, 1, 0, 0)
	enc.EndEncoding()
	if err := cb.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got, _ := resolve.Slice(0, 0, gputypes.TextureAspectAll)
	want := bytes.Repeat([]byte{255, 0, 0, 255}, 4)
	if !bytes.Equal(got, want) {
		t.Errorf("resolve contents = %v, want %v", got, want)
	}
}

func TestVisibilityAndTimestamps(t *testing.T) {
	d := New()
	target := newTexture2D(t, d, 1, 1, gputypes.TextureFormatR8Unorm)
	vis := newBuffer(t, d, 16)
	ts := newBuffer(t, d, 16)

	cb, _ := d.NewCommandBuffer("queries")
	enc, err := cb.RenderEncoder(&backend.RenderPassDescriptor{
		ColorAttachments: []backend.ColorAttachment{{Texture: target, Store: backend.StoreActionStore}},
		VisibilityBuffer: vis,
		Width:            1, Height: 1, SampleCount: 1,
		Timestamps: &backend.TimestampWrites{Buffer: ts, BeginIndex: 0, EndIndex: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	ve, ok := enc.(backend.VisibilityEncoder)
	if !ok {
		t.Fatal("software render encoder should support visibility queries")
	}
	ve.BeginVisibilityQuery(8)
	enc.Draw(3, 1, 0, 0)
	enc.Draw(3, 1, 0, 0)
	ve.EndVisibilityQuery()
	enc.EndEncoding()
	if err := cb.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if got := binary.LittleEndian.Uint64(vis.data[8:]); got != 2 {
		t.Errorf("visibility result = %d, want 2", got)
	}
	begin := binary.LittleEndian.Uint64(ts.data[0:])
	end := binary.LittleEndian.Uint64(ts.data[8:])
	if begin == 0 || end <= begin {
		t.Errorf("timestamps begin=%d end=%d, want 0 < begin < end", begin, end)
	}
}

func TestDepthStencilPlanes(t *testing.T) {
	d := New()
	tex, err := d.NewTexture(&backend.TextureDescriptor{
		Dimension:     gputypes.TextureDimension2D,
		Size:          gputypes.Extent3D{Width: 2, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1, SampleCount: 1,
		Format: gputypes.TextureFormatDepth24PlusStencil8,
	})
	if err != nil {
		t.Fatal(err)
	}
	cb, _ := d.NewCommandBuffer("ds")
	enc, err := cb.RenderEncoder(&backend.RenderPassDescriptor{
		DepthStencil: &backend.DepthStencilAttachment{
			Texture:      tex,
			DepthLoad:    backend.LoadActionClear,
			ClearDepth:   1,
			StencilLoad:  backend.LoadActionClear,
			ClearStencil: 7,
		},
		Width: 2, Height: 1, SampleCount: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	enc.EndEncoding()
	if err := cb.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	stencil, _ := tex.(*Texture).Slice(0, 0, gputypes.TextureAspectStencilOnly)
	if !bytes.Equal(stencil, []byte{7, 7}) {
		t.Errorf("stencil plane = %v, want [7 7]", stencil)
	}
	depth, _ := tex.(*Texture).Slice(0, 0, gputypes.TextureAspectDepthOnly)
	if binary.LittleEndian.Uint32(depth) != 0xFFFFFF {
		t.Errorf("depth plane = %x, want 24-bit max", depth)
	}
}

func TestFloat16Bits(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{0, 0},
		{1, 0x3C00},
		{-2, 0xC000},
		{0.5, 0x3800},
		{65504, 0x7BFF},
		{1e6, 0x7C00},
	}
	for _, tt := range tests {
		if got := float16Bits(tt.in); got != tt.want {
			t.Errorf("float16Bits(%g) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}
