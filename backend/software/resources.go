package software

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/texformat"
)

// Buffer is an in-memory buffer.
type Buffer struct {
	label     string
	data      []byte
	destroyed bool
}

// Length returns the buffer size in bytes.
func (b *Buffer) Length() uint64 { return uint64(len(b.data)) }

// Destroy releases the buffer memory.
func (b *Buffer) Destroy() {
	b.destroyed = true
	b.data = nil
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte { return append([]byte(nil), b.data...) }

func (b *Buffer) span(offset, size uint64) ([]byte, error) {
	if b.destroyed {
		return nil, fmt.Errorf("%w: buffer %q", ErrDestroyed, b.label)
	}
	if offset > uint64(len(b.data)) || size > uint64(len(b.data))-offset {
		return nil, fmt.Errorf("%w: buffer %q [%d,+%d) of %d", ErrOutOfBounds, b.label, offset, size, len(b.data))
	}
	return b.data[offset : offset+size], nil
}

func asBuffer(b backend.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignResource, b)
	}
	return buf, nil
}

// plane is the storage of one aspect of one mip level.
type plane struct {
	blockSize uint32
	data      []byte
}

type level struct {
	width, height, slices uint32
	planes                []plane
}

// Texture is an in-memory texture. Depth-stencil formats keep depth and
// stencil in separate planes. Multisampled textures store one sample.
type Texture struct {
	desc      backend.TextureDescriptor
	levels    []level
	destroyed bool
}

func newTexture(desc *backend.TextureDescriptor) (*Texture, error) {
	info, ok := texformat.Lookup(desc.Format)
	if !ok {
		return nil, fmt.Errorf("%w: texture format %v", backend.ErrUnsupported, desc.Format)
	}

	mainBlock := info.BlockSize
	if mainBlock == 0 {
		mainBlock = 4
	}
	blocks := []uint32{mainBlock}
	if info.Depth && info.Stencil {
		blocks = []uint32{4, 1}
	}

	mips := max(desc.MipLevelCount, 1)
	t := &Texture{desc: *desc, levels: make([]level, mips)}
	for l := range mips {
		lv := level{
			width:  max(desc.Size.Width>>l, 1),
			height: max(desc.Size.Height>>l, 1),
			slices: max(desc.Size.DepthOrArrayLayers, 1),
		}
		switch desc.Dimension {
		case gputypes.TextureDimension1D:
			lv.height = 1
		case gputypes.TextureDimension3D:
			lv.slices = max(desc.Size.DepthOrArrayLayers>>l, 1)
		}
		texels := int(lv.width) * int(lv.height) * int(lv.slices)
		for _, bs := range blocks {
			lv.planes = append(lv.planes, plane{blockSize: bs, data: make([]byte, texels*int(bs))})
		}
		t.levels[l] = lv
	}
	return t, nil
}

// Destroy releases the texture memory.
func (t *Texture) Destroy() {
	t.destroyed = true
	t.levels = nil
}

// Descriptor returns the descriptor the texture was created with.
func (t *Texture) Descriptor() backend.TextureDescriptor { return t.desc }

// Slice returns a copy of one (mip level, slice) of the given aspect, rows
// tightly packed.
func (t *Texture) Slice(mipLevel, slice uint32, aspect gputypes.TextureAspect) ([]byte, error) {
	lv, p, err := t.plane(mipLevel, aspect)
	if err != nil {
		return nil, err
	}
	if slice >= lv.slices {
		return nil, fmt.Errorf("%w: slice %d of %d", ErrOutOfBounds, slice, lv.slices)
	}
	n := int(lv.width) * int(lv.height) * int(p.blockSize)
	start := int(slice) * n
	return append([]byte(nil), p.data[start:start+n]...), nil
}

func (t *Texture) plane(mipLevel uint32, aspect gputypes.TextureAspect) (*level, *plane, error) {
	if t.destroyed {
		return nil, nil, fmt.Errorf("%w: texture %q", ErrDestroyed, t.desc.Label)
	}
	if int(mipLevel) >= len(t.levels) {
		return nil, nil, fmt.Errorf("%w: mip level %d of %d", ErrOutOfBounds, mipLevel, len(t.levels))
	}
	lv := &t.levels[mipLevel]
	i := 0
	if aspect == gputypes.TextureAspectStencilOnly && len(lv.planes) > 1 {
		i = 1
	}
	return lv, &lv.planes[i], nil
}

// row returns the bytes of width texels starting at origin.
func (t *Texture) row(mipLevel uint32, aspect gputypes.TextureAspect, origin gputypes.Origin3D, width uint32) ([]byte, error) {
	lv, p, err := t.plane(mipLevel, aspect)
	if err != nil {
		return nil, err
	}
	if origin.X > lv.width || width > lv.width-origin.X || origin.Y >= lv.height || origin.Z >= lv.slices {
		return nil, fmt.Errorf("%w: texture %q mip %d origin %+v width %d", ErrOutOfBounds, t.desc.Label, mipLevel, origin, width)
	}
	texel := (int(origin.Z)*int(lv.height)+int(origin.Y))*int(lv.width) + int(origin.X)
	bs := int(p.blockSize)
	return p.data[texel*bs : (texel+int(width))*bs], nil
}

func (t *Texture) blockSize(mipLevel uint32, aspect gputypes.TextureAspect) (uint32, error) {
	_, p, err := t.plane(mipLevel, aspect)
	if err != nil {
		return 0, err
	}
	return p.blockSize, nil
}

// fillSlice writes pattern repeatedly over one slice of a plane.
func (t *Texture) fillSlice(mipLevel, slice uint32, aspect gputypes.TextureAspect, pattern []byte) error {
	lv, p, err := t.plane(mipLevel, aspect)
	if err != nil {
		return err
	}
	if slice >= lv.slices {
		return fmt.Errorf("%w: slice %d of %d", ErrOutOfBounds, slice, lv.slices)
	}
	n := int(lv.width) * int(lv.height) * int(p.blockSize)
	dst := p.data[int(slice)*n : int(slice+1)*n]
	if len(pattern) == 0 {
		clear(dst)
		return nil
	}
	for i := 0; i < len(dst); i += len(pattern) {
		copy(dst[i:], pattern)
	}
	return nil
}

func (t *Texture) copySlice(mipLevel, slice uint32, dst *Texture, dstMip, dstSlice uint32) error {
	for i := range t.levels[mipLevel].planes {
		aspect := gputypes.TextureAspectAll
		if i == 1 {
			aspect = gputypes.TextureAspectStencilOnly
		}
		src, err := t.Slice(mipLevel, slice, aspect)
		if err != nil {
			return err
		}
		dlv, dp, err := dst.plane(dstMip, aspect)
		if err != nil {
			return err
		}
		if dstSlice >= dlv.slices {
			return fmt.Errorf("%w: resolve slice %d of %d", ErrOutOfBounds, dstSlice, dlv.slices)
		}
		n := int(dlv.width) * int(dlv.height) * int(dp.blockSize)
		if n != len(src) {
			return fmt.Errorf("%w: resolve size %d != %d", ErrOutOfBounds, n, len(src))
		}
		copy(dp.data[int(dstSlice)*n:], src)
	}
	return nil
}

func asTexture(t backend.Texture) (*Texture, error) {
	tex, ok := t.(*Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignResource, t)
	}
	return tex, nil
}
