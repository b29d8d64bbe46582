package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuenc/backend"
)

func loadOp(a backend.LoadAction) gputypes.LoadOp {
	if a == backend.LoadActionClear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

func storeOp(a backend.StoreAction) gputypes.StoreOp {
	if a == backend.StoreActionStore || a == backend.StoreActionStoreAndMultisampleResolve {
		return gputypes.StoreOpStore
	}
	return gputypes.StoreOpDiscard
}

// RenderEncoder begins a hal render pass.
func (cb *CommandBuffer) RenderEncoder(desc *backend.RenderPassDescriptor) (backend.RenderEncoder, error) {
	rp := &hal.RenderPassDescriptor{Label: desc.Label}
	for _, a := range desc.ColorAttachments {
		tex, err := asTexture(a.Texture)
		if err != nil {
			return nil, err
		}
		view, err := tex.attachmentView(a.MipLevel, a.Slice)
		if err != nil {
			return nil, err
		}
		ca := hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     loadOp(a.Load),
			StoreOp:    storeOp(a.Store),
			ClearValue: a.ClearValue,
		}
		if a.ResolveTexture != nil && a.Store.Resolves() {
			rt, err := asTexture(a.ResolveTexture)
			if err != nil {
				return nil, err
			}
			if ca.ResolveTarget, err = rt.attachmentView(a.ResolveMipLevel, a.ResolveSlice); err != nil {
				return nil, err
			}
		}
		rp.ColorAttachments = append(rp.ColorAttachments, ca)
	}
	if ds := desc.DepthStencil; ds != nil {
		tex, err := asTexture(ds.Texture)
		if err != nil {
			return nil, err
		}
		view, err := tex.attachmentView(ds.MipLevel, ds.Slice)
		if err != nil {
			return nil, err
		}
		rp.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       loadOp(ds.DepthLoad),
			DepthStoreOp:      storeOp(ds.DepthStore),
			DepthClearValue:   ds.ClearDepth,
			StencilLoadOp:     loadOp(ds.StencilLoad),
			StencilStoreOp:    storeOp(ds.StencilStore),
			StencilClearValue: ds.ClearStencil,
		}
	}
	if desc.VisibilityBuffer != nil || desc.Timestamps != nil {
		cb.dev.log().Debug("wgpu: occlusion and timestamp writes are not forwarded", "label", desc.Label)
	}

	if err := cb.begin(); err != nil {
		return nil, err
	}
	return &renderEncoder{cb: cb, pass: cb.enc.BeginRenderPass(rp)}, nil
}

type renderEncoder struct {
	cb   *CommandBuffer
	pass hal.RenderPassEncoder
}

func (e *renderEncoder) EndEncoding() {
	e.pass.End()
	e.cb.active = false
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *renderEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	e.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (e *renderEncoder) SetScissorRect(x, y, width, height uint32) {
	e.pass.SetScissorRect(x, y, width, height)
}

func (e *renderEncoder) SetBlendColor(c gputypes.Color) {
	e.pass.SetBlendConstant(&c)
}

func (e *renderEncoder) SetStencilReference(ref uint32) {
	e.pass.SetStencilReference(ref)
}

// ComputeEncoder begins a hal compute pass.
func (cb *CommandBuffer) ComputeEncoder(desc *backend.ComputePassDescriptor) (backend.ComputeEncoder, error) {
	if err := cb.begin(); err != nil {
		return nil, err
	}
	label := ""
	if desc != nil {
		label = desc.Label
	}
	return &computeEncoder{cb: cb, pass: cb.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: label})}, nil
}

type computeEncoder struct {
	cb   *CommandBuffer
	pass hal.ComputePassEncoder
}

func (e *computeEncoder) EndEncoding() {
	e.pass.End()
	e.cb.active = false
}

func (e *computeEncoder) Dispatch(x, y, z uint32) {
	e.pass.Dispatch(x, y, z)
}
