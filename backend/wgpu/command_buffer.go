package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuenc/backend"
)

// CommandBuffer records onto one hal command encoder.
type CommandBuffer struct {
	dev       *Device
	enc       hal.CommandEncoder
	label     string
	staging   []hal.Buffer
	errs      []error
	active    bool
	committed bool
}

// NewCommandBuffer creates a hal command encoder and begins encoding.
func (d *Device) NewCommandBuffer(label string) (backend.CommandBuffer, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &CommandBuffer{dev: d, enc: enc, label: label}, nil
}

func (cb *CommandBuffer) begin() error {
	if cb.committed {
		return backend.ErrCommitted
	}
	if cb.active {
		return backend.ErrEncoderActive
	}
	cb.active = true
	return nil
}

func (cb *CommandBuffer) fail(err error) {
	cb.dev.log().Warn("wgpu: command dropped", "label", cb.label, "err", err)
	cb.errs = append(cb.errs, err)
}

// stagingBuffer creates a buffer holding data that lives until the
// submission completes.
func (cb *CommandBuffer) stagingBuffer(data []byte) (hal.Buffer, error) {
	buf, err := cb.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: cb.label + "_staging",
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	if err := cb.dev.queue.WriteBuffer(buf, 0, data); err != nil {
		cb.dev.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: fill staging buffer: %w", err)
	}
	cb.staging = append(cb.staging, buf)
	return buf, nil
}

// Commit ends encoding, submits and waits until the queue reports the
// submission complete. Errors from dropped commands are returned after the
// submit.
func (cb *CommandBuffer) Commit() error {
	if cb.committed {
		return backend.ErrCommitted
	}
	if cb.active {
		return backend.ErrEncoderActive
	}
	cb.committed = true

	cmdBuf, err := cb.enc.EndEncoding()
	if err != nil {
		cb.releaseStaging()
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	index, err := cb.dev.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		cb.dev.device.FreeCommandBuffer(cmdBuf)
		cb.releaseStaging()
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	if err := cb.dev.waitCompleted(index); err != nil {
		// The GPU may still read the command buffer and staging buffers.
		cb.dev.log().Warn("wgpu: submission not completed, keeping its buffers", "label", cb.label, "index", index)
		return err
	}
	cb.dev.device.FreeCommandBuffer(cmdBuf)
	cb.dev.log().Debug("wgpu: committed command buffer", "label", cb.label, "index", index, "staging", len(cb.staging))
	cb.releaseStaging()
	return errors.Join(cb.errs...)
}

func (cb *CommandBuffer) releaseStaging() {
	for _, b := range cb.staging {
		cb.dev.device.DestroyBuffer(b)
	}
	cb.staging = nil
}

// BlitEncoder returns a copy encoder recording on the hal encoder.
func (cb *CommandBuffer) BlitEncoder() (backend.BlitEncoder, error) {
	if err := cb.begin(); err != nil {
		return nil, err
	}
	return &blitEncoder{cb: cb}, nil
}

type blitEncoder struct {
	cb *CommandBuffer
}

func (e *blitEncoder) EndEncoding() { e.cb.active = false }

func (e *blitEncoder) CopyBufferToBuffer(src backend.Buffer, srcOffset uint64, dst backend.Buffer, dstOffset, size uint64) {
	s, err := asBuffer(src)
	if err != nil {
		e.cb.fail(err)
		return
	}
	d, err := asBuffer(dst)
	if err != nil {
		e.cb.fail(err)
		return
	}
	e.cb.enc.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

// region converts a native buffer/texture copy into a hal region.
func region(c *backend.BufferTextureCopy, tex *Texture) (hal.BufferTextureCopy, error) {
	bpr := c.BytesPerRow
	if bpr == 0 {
		bpr = uint64(c.Size.Width) * uint64(tex.blockSize(c.Aspect))
	}
	rows := uint64(c.Size.Height)
	if c.Size.DepthOrArrayLayers > 1 && c.BytesPerImage != 0 {
		rows = c.BytesPerImage / bpr
	}
	if bpr > uint64(^uint32(0)) || rows > uint64(^uint32(0)) {
		return hal.BufferTextureCopy{}, fmt.Errorf("%w: wgpu: copy layout %d/%d exceeds 32 bits", backend.ErrUnsupported, bpr, rows)
	}
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{
			Offset:       c.Offset,
			BytesPerRow:  uint32(bpr),
			RowsPerImage: uint32(rows),
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  tex.raw,
			MipLevel: c.MipLevel,
			Origin:   origin(c.Origin),
			Aspect:   c.Aspect,
		},
		Size: extent(c.Size),
	}, nil
}

func origin(o gputypes.Origin3D) hal.Origin3D {
	return hal.Origin3D{X: o.X, Y: o.Y, Z: o.Z}
}

func extent(e gputypes.Extent3D) hal.Extent3D {
	return hal.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: e.DepthOrArrayLayers}
}

func (e *blitEncoder) bufferTexture(c *backend.BufferTextureCopy) (*Buffer, hal.BufferTextureCopy, bool) {
	buf, err := asBuffer(c.Buffer)
	if err != nil {
		e.cb.fail(err)
		return nil, hal.BufferTextureCopy{}, false
	}
	tex, err := asTexture(c.Texture)
	if err != nil {
		e.cb.fail(err)
		return nil, hal.BufferTextureCopy{}, false
	}
	r, err := region(c, tex)
	if err != nil {
		e.cb.fail(err)
		return nil, hal.BufferTextureCopy{}, false
	}
	return buf, r, true
}

func (e *blitEncoder) CopyBufferToTexture(c *backend.BufferTextureCopy) {
	buf, r, ok := e.bufferTexture(c)
	if !ok {
		return
	}
	e.cb.enc.CopyBufferToTexture(buf.raw, r.TextureBase.Texture, []hal.BufferTextureCopy{r})
}

func (e *blitEncoder) CopyTextureToBuffer(c *backend.BufferTextureCopy) {
	buf, r, ok := e.bufferTexture(c)
	if !ok {
		return
	}
	e.cb.enc.CopyTextureToBuffer(r.TextureBase.Texture, buf.raw, []hal.BufferTextureCopy{r})
}

func (e *blitEncoder) CopyTextureToTexture(c *backend.TextureCopy) {
	src, err := asTexture(c.Source)
	if err != nil {
		e.cb.fail(err)
		return
	}
	dst, err := asTexture(c.Destination)
	if err != nil {
		e.cb.fail(err)
		return
	}
	e.cb.enc.CopyTextureToTexture(src.raw, dst.raw, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{
			Texture:  src.raw,
			MipLevel: c.SourceMip,
			Origin:   origin(c.SourceOrigin),
			Aspect:   c.Aspect,
		},
		DstBase: hal.ImageCopyTexture{
			Texture:  dst.raw,
			MipLevel: c.DestinationMip,
			Origin:   origin(c.DestinationOrigin),
			Aspect:   c.Aspect,
		},
		Size: extent(c.Size),
	}})
}

// FillBuffer clears 4-byte aligned zero fills on the GPU and uploads the
// bytes of any other fill through a staging buffer.
func (e *blitEncoder) FillBuffer(b backend.Buffer, offset, size uint64, value byte) {
	dst, err := asBuffer(b)
	if err != nil {
		e.cb.fail(err)
		return
	}
	if value == 0 && offset%4 == 0 && size%4 == 0 {
		e.cb.enc.ClearBuffer(dst.raw, offset, size)
		return
	}
	data := make([]byte, size)
	if value != 0 {
		for i := range data {
			data[i] = value
		}
	}
	staging, err := e.cb.stagingBuffer(data)
	if err != nil {
		e.cb.fail(err)
		return
	}
	e.cb.enc.CopyBufferToBuffer(staging, dst.raw, []hal.BufferCopy{{DstOffset: offset, Size: size}})
}

// ClearTexture uploads zeros into every aspect of the subresource.
func (e *blitEncoder) ClearTexture(t backend.Texture, mipLevel, slice uint32) {
	tex, err := asTexture(t)
	if err != nil {
		e.cb.fail(err)
		return
	}
	aspects := []gputypes.TextureAspect{gputypes.TextureAspectAll}
	if f := tex.desc.Format; f == gputypes.TextureFormatDepth24PlusStencil8 {
		aspects = []gputypes.TextureAspect{gputypes.TextureAspectDepthOnly, gputypes.TextureAspectStencilOnly}
	}
	level := tex.levelExtent(mipLevel)
	for _, aspect := range aspects {
		bpr := uint64(level.Width) * uint64(tex.blockSize(aspect))
		size := bpr * uint64(level.Height)
		staging, err := e.cb.stagingBuffer(make([]byte, size))
		if err != nil {
			e.cb.fail(err)
			return
		}
		e.CopyBufferToTexture(&backend.BufferTextureCopy{
			Buffer:      &Buffer{dev: e.cb.dev, raw: staging, size: size},
			BytesPerRow: bpr,
			Texture:     tex,
			MipLevel:    mipLevel,
			Origin:      gputypes.Origin3D{Z: slice},
			Aspect:      aspect,
			Size:        level,
		})
	}
}
