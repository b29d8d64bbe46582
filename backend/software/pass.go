package software

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

// RenderEncoder starts a render sub-encoder. Load actions run when the
// command buffer executes; draws do not rasterize.
func (cb *CommandBuffer) RenderEncoder(desc *backend.RenderPassDescriptor) (backend.RenderEncoder, error) {
	if desc == nil {
		return nil, fmt.Errorf("software: nil render pass descriptor")
	}
	if err := cb.begin(OpBeginRender); err != nil {
		return nil, err
	}
	d := *desc
	d.ColorAttachments = append([]backend.ColorAttachment(nil), desc.ColorAttachments...)
	if desc.DepthStencil != nil {
		ds := *desc.DepthStencil
		d.DepthStencil = &ds
	}

	cb.pushTimestamp(d.Timestamps, true)
	cb.push(func() error { return loadAttachments(&d) })
	return &renderEncoder{cb: cb, desc: &d}, nil
}

// ComputeEncoder starts a compute sub-encoder. Dispatches are recorded but
// run no shader.
func (cb *CommandBuffer) ComputeEncoder(desc *backend.ComputePassDescriptor) (backend.ComputeEncoder, error) {
	if err := cb.begin(OpBeginCompute); err != nil {
		return nil, err
	}
	var ts *backend.TimestampWrites
	if desc != nil {
		ts = desc.Timestamps
	}
	cb.pushTimestamp(ts, true)
	return &computeEncoder{cb: cb, timestamps: ts}, nil
}

func (cb *CommandBuffer) pushTimestamp(ts *backend.TimestampWrites, begin bool) {
	if ts == nil {
		return
	}
	index := ts.EndIndex
	if begin {
		index = ts.BeginIndex
	}
	if index == backend.TimestampSkip {
		return
	}
	buf := ts.Buffer
	cb.push(func() error {
		b, err := asBuffer(buf)
		if err != nil {
			return err
		}
		span, err := b.span(uint64(index)*8, 8)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(span, cb.dev.tick())
		return nil
	})
}

func loadAttachments(d *backend.RenderPassDescriptor) error {
	for i, a := range d.ColorAttachments {
		if a.Texture == nil || a.Load != backend.LoadActionClear {
			continue
		}
		tex, err := asTexture(a.Texture)
		if err != nil {
			return err
		}
		pattern, err := encodeColor(tex.desc.Format, a.ClearValue)
		if err != nil {
			return fmt.Errorf("colour attachment %d: %w", i, err)
		}
		if err := tex.fillSlice(a.MipLevel, a.Slice, gputypes.TextureAspectAll, pattern); err != nil {
			return fmt.Errorf("colour attachment %d: %w", i, err)
		}
	}

	ds := d.DepthStencil
	if ds == nil || ds.Texture == nil {
		return nil
	}
	tex, err := asTexture(ds.Texture)
	if err != nil {
		return err
	}
	if ds.DepthLoad == backend.LoadActionClear {
		if err := tex.fillSlice(ds.MipLevel, ds.Slice, gputypes.TextureAspectDepthOnly, encodeDepth(tex.desc.Format, ds.ClearDepth)); err != nil {
			return fmt.Errorf("depth attachment: %w", err)
		}
	}
	if ds.StencilLoad == backend.LoadActionClear {
		if err := tex.fillSlice(ds.MipLevel, ds.Slice, gputypes.TextureAspectStencilOnly, []byte{byte(ds.ClearStencil)}); err != nil {
			return fmt.Errorf("stencil attachment: %w", err)
		}
	}
	return nil
}

func resolveAttachments(d *backend.RenderPassDescriptor) error {
	for i, a := range d.ColorAttachments {
		if a.Texture == nil || a.ResolveTexture == nil || !a.Store.Resolves() {
			continue
		}
		src, err := asTexture(a.Texture)
		if err != nil {
			return err
		}
		dst, err := asTexture(a.ResolveTexture)
		if err != nil {
			return err
		}
		if err := src.copySlice(a.MipLevel, a.Slice, dst, a.ResolveMipLevel, a.ResolveSlice); err != nil {
			return fmt.Errorf("resolve attachment %d: %w", i, err)
		}
	}
	return nil
}

type renderEncoder struct {
	cb   *CommandBuffer
	desc *backend.RenderPassDescriptor

	queryOpen   bool
	queryOffset uint64
	queryDraws  uint64
}

func (e *renderEncoder) EndEncoding() {
	d := e.desc
	e.cb.push(func() error { return resolveAttachments(d) })
	e.cb.pushTimestamp(d.Timestamps, false)
	e.cb.end()
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.cb.dev.record(OpDraw, "vertices=%d instances=%d first=%d/%d", vertexCount, instanceCount, firstVertex, firstInstance)
	if e.queryOpen {
		e.queryDraws++
	}
}

func (e *renderEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	e.cb.dev.record(OpSetViewport, "%g,%g %gx%g depth=[%g,%g]", x, y, width, height, minDepth, maxDepth)
}

func (e *renderEncoder) SetScissorRect(x, y, width, height uint32) {
	e.cb.dev.record(OpSetScissorRect, "%d,%d %dx%d", x, y, width, height)
}

func (e *renderEncoder) SetBlendColor(c gputypes.Color) {
	e.cb.dev.record(OpSetBlendColor, "%v", c)
}

func (e *renderEncoder) SetStencilReference(ref uint32) {
	e.cb.dev.record(OpSetStencilReference, "%d", ref)
}

// BeginVisibilityQuery starts counting. The software backend reports one
// passing sample per draw recorded inside the query.
func (e *renderEncoder) BeginVisibilityQuery(offset uint64) {
	e.cb.dev.record(OpBeginVisibility, "offset=%d", offset)
	e.queryOpen = true
	e.queryOffset = offset
	e.queryDraws = 0
}

func (e *renderEncoder) EndVisibilityQuery() {
	e.cb.dev.record(OpEndVisibility, "")
	if !e.queryOpen {
		return
	}
	e.queryOpen = false
	buf, offset, samples := e.desc.VisibilityBuffer, e.queryOffset, e.queryDraws
	e.cb.push(func() error {
		b, err := asBuffer(buf)
		if err != nil {
			return err
		}
		span, err := b.span(offset, 8)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(span, samples)
		return nil
	})
}

type computeEncoder struct {
	cb         *CommandBuffer
	timestamps *backend.TimestampWrites
}

func (e *computeEncoder) EndEncoding() {
	e.cb.pushTimestamp(e.timestamps, false)
	e.cb.end()
}

func (e *computeEncoder) Dispatch(x, y, z uint32) {
	e.cb.dev.record(OpDispatch, "%d,%d,%d", x, y, z)
}
