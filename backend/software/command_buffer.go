package software

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

// CommandBuffer records commands and executes them on Commit.
type CommandBuffer struct {
	dev       *Device
	label     string
	cmds      []func() error
	active    bool
	committed bool
}

func (cb *CommandBuffer) begin(op Op) error {
	if cb.committed {
		return backend.ErrCommitted
	}
	if cb.active {
		return backend.ErrEncoderActive
	}
	cb.active = true
	cb.dev.record(op, "")
	return nil
}

func (cb *CommandBuffer) end() {
	cb.active = false
	cb.dev.record(OpEndEncoding, "")
}

func (cb *CommandBuffer) push(cmd func() error) {
	cb.cmds = append(cb.cmds, cmd)
}

// BlitEncoder starts a copy/fill sub-encoder.
func (cb *CommandBuffer) BlitEncoder() (backend.BlitEncoder, error) {
	if err := cb.begin(OpBeginBlit); err != nil {
		return nil, err
	}
	return &blitEncoder{cb: cb}, nil
}

// Commit executes every recorded command in order. Execution continues past
// failing commands; the returned error joins every failure together with
// the stride violations recorded while encoding.
func (cb *CommandBuffer) Commit() error {
	if cb.committed {
		return backend.ErrCommitted
	}
	if cb.active {
		return backend.ErrEncoderActive
	}
	cb.committed = true
	cb.dev.record(OpCommit, "%q", cb.label)

	var errs []error
	for _, cmd := range cb.cmds {
		if err := cmd(); err != nil {
			errs = append(errs, err)
		}
	}
	cb.cmds = nil
	cb.dev.log().Debug("software: committed command buffer", "label", cb.label, "errors", len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("software: commit %q: %w", cb.label, errors.Join(errs...))
	}
	return nil
}

type blitEncoder struct {
	cb *CommandBuffer
}

func (e *blitEncoder) EndEncoding() { e.cb.end() }

func (e *blitEncoder) CopyBufferToBuffer(src backend.Buffer, srcOffset uint64, dst backend.Buffer, dstOffset, size uint64) {
	e.cb.dev.record(OpCopyBufferToBuffer, "src+%d dst+%d size=%d", srcOffset, dstOffset, size)
	e.cb.push(func() error {
		s, err := asBuffer(src)
		if err != nil {
			return err
		}
		d, err := asBuffer(dst)
		if err != nil {
			return err
		}
		from, err := s.span(srcOffset, size)
		if err != nil {
			return err
		}
		to, err := d.span(dstOffset, size)
		if err != nil {
			return err
		}
		copy(to, from)
		return nil
	})
}

func (e *blitEncoder) CopyBufferToTexture(c *backend.BufferTextureCopy) {
	cp := *c
	e.cb.dev.record(OpCopyBufferToTexture, "offset=%d bpr=%d bpi=%d mip=%d origin=%v size=%v",
		cp.Offset, cp.BytesPerRow, cp.BytesPerImage, cp.MipLevel, cp.Origin, cp.Size)
	strideErr := e.cb.dev.checkStride(OpCopyBufferToTexture, cp.BytesPerRow)
	e.cb.push(func() error {
		if strideErr != nil {
			return strideErr
		}
		return bufferTextureRows(&cp, func(buf, tex []byte) { copy(tex, buf) })
	})
}

func (e *blitEncoder) CopyTextureToBuffer(c *backend.BufferTextureCopy) {
	cp := *c
	e.cb.dev.record(OpCopyTextureToBuffer, "offset=%d bpr=%d bpi=%d mip=%d origin=%v size=%v",
		cp.Offset, cp.BytesPerRow, cp.BytesPerImage, cp.MipLevel, cp.Origin, cp.Size)
	strideErr := e.cb.dev.checkStride(OpCopyTextureToBuffer, cp.BytesPerRow)
	e.cb.push(func() error {
		if strideErr != nil {
			return strideErr
		}
		return bufferTextureRows(&cp, func(buf, tex []byte) { copy(buf, tex) })
	})
}

// bufferTextureRows calls fn with the matching buffer and texture bytes of
// every row of c.
func bufferTextureRows(c *backend.BufferTextureCopy, fn func(buf, tex []byte)) error {
	b, err := asBuffer(c.Buffer)
	if err != nil {
		return err
	}
	t, err := asTexture(c.Texture)
	if err != nil {
		return err
	}
	bs, err := t.blockSize(c.MipLevel, c.Aspect)
	if err != nil {
		return err
	}
	rowBytes := uint64(c.Size.Width) * uint64(bs)
	stride := c.BytesPerRow
	if stride == 0 {
		stride = rowBytes
	}
	image := c.BytesPerImage
	if image == 0 {
		image = stride * uint64(c.Size.Height)
	}
	for z := range c.Size.DepthOrArrayLayers {
		for y := range c.Size.Height {
			span, err := b.span(c.Offset+uint64(z)*image+uint64(y)*stride, rowBytes)
			if err != nil {
				return err
			}
			origin := c.Origin
			origin.Y += y
			origin.Z += z
			row, err := t.row(c.MipLevel, c.Aspect, origin, c.Size.Width)
			if err != nil {
				return err
			}
			fn(span, row)
		}
	}
	return nil
}

func (e *blitEncoder) CopyTextureToTexture(c *backend.TextureCopy) {
	cp := *c
	e.cb.dev.record(OpCopyTextureToTexture, "src mip=%d origin=%v dst mip=%d origin=%v size=%v",
		cp.SourceMip, cp.SourceOrigin, cp.DestinationMip, cp.DestinationOrigin, cp.Size)
	e.cb.push(func() error {
		src, err := asTexture(cp.Source)
		if err != nil {
			return err
		}
		dst, err := asTexture(cp.Destination)
		if err != nil {
			return err
		}
		for z := range cp.Size.DepthOrArrayLayers {
			for y := range cp.Size.Height {
				so, do := cp.SourceOrigin, cp.DestinationOrigin
				so.Y, so.Z = so.Y+y, so.Z+z
				do.Y, do.Z = do.Y+y, do.Z+z
				from, err := src.row(cp.SourceMip, cp.Aspect, so, cp.Size.Width)
				if err != nil {
					return err
				}
				to, err := dst.row(cp.DestinationMip, cp.Aspect, do, cp.Size.Width)
				if err != nil {
					return err
				}
				if len(from) != len(to) {
					return fmt.Errorf("%w: texel size mismatch %d != %d", ErrOutOfBounds, len(from), len(to))
				}
				copy(to, from)
			}
		}
		return nil
	})
}

func (e *blitEncoder) FillBuffer(b backend.Buffer, offset, size uint64, value byte) {
	e.cb.dev.record(OpFillBuffer, "offset=%d size=%d value=%d", offset, size, value)
	e.cb.push(func() error {
		buf, err := asBuffer(b)
		if err != nil {
			return err
		}
		span, err := buf.span(offset, size)
		if err != nil {
			return err
		}
		for i := range span {
			span[i] = value
		}
		return nil
	})
}

func (e *blitEncoder) ClearTexture(t backend.Texture, mipLevel, slice uint32) {
	e.cb.dev.record(OpClearTexture, "mip=%d slice=%d", mipLevel, slice)
	e.cb.push(func() error {
		tex, err := asTexture(t)
		if err != nil {
			return err
		}
		if err := tex.fillSlice(mipLevel, slice, gputypes.TextureAspectAll, nil); err != nil {
			return err
		}
		if int(mipLevel) < len(tex.levels) && len(tex.levels[mipLevel].planes) > 1 {
			return tex.fillSlice(mipLevel, slice, gputypes.TextureAspectStencilOnly, nil)
		}
		return nil
	})
}
