package gpuenc

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/checked"
	"github.com/gogpu/gpuenc/internal/texformat"
)

// DefaultMaxDrawCount is the draw budget of a render pass without a
// RenderPassMaxDrawCount extension.
const DefaultMaxDrawCount uint64 = 50_000_000

// RenderPassMaxDrawCount bounds the number of draws in a render pass.
// Chain it through RenderPassDescriptor.NextInChain.
type RenderPassMaxDrawCount struct {
	MaxDrawCount uint64
}

// ExtensionName implements Extension.
func (*RenderPassMaxDrawCount) ExtensionName() string { return "RenderPassMaxDrawCount" }

// RenderPassColorAttachment is one colour target of a render pass. An
// attachment with a nil View is a hole and renders nothing.
type RenderPassColorAttachment struct {
	View *TextureView

	// DepthSlice selects the depth slice of a 3D view. It must be nil for
	// other views.
	DepthSlice *uint32

	// ResolveTarget receives the resolved samples of a multisampled View.
	ResolveTarget *TextureView

	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp
	ClearValue gputypes.Color
}

// RenderPassDepthStencilAttachment is the depth-stencil target of a render
// pass. The ops of an aspect must be set exactly when the format has the
// aspect and the aspect is not read-only.
type RenderPassDepthStencilAttachment struct {
	View *TextureView

	DepthLoadOp     gputypes.LoadOp
	DepthStoreOp    gputypes.StoreOp
	DepthClearValue float32
	DepthReadOnly   bool

	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
	StencilReadOnly   bool
}

// RenderPassDescriptor describes a render pass to begin.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []RenderPassColorAttachment
	DepthStencilAttachment *RenderPassDepthStencilAttachment
	OcclusionQuerySet      *QuerySet
	TimestampWrites        *PassTimestampWrites

	// NextInChain accepts *RenderPassMaxDrawCount.
	NextInChain Extension
}

// subresourceKey identifies one attachment subresource: the low half of sub
// is the slice or layer, the high half the mip level.
type subresourceKey struct {
	tex *Texture
	sub uint64
}

func keyOf(t *Texture, mipLevel, slice uint32) subresourceKey {
	return subresourceKey{tex: t, sub: uint64(slice) | uint64(mipLevel)<<32}
}

// renderPassPlan is a validated render pass, ready to be translated.
type renderPassPlan struct {
	width, height, sampleCount uint32
	maxDrawCount               uint64

	// destroyed is set when any referenced resource was destroyed; the pass
	// then validates commands but records nothing.
	destroyed bool
}

// BeginRenderPass validates desc and starts a render pass. It always
// returns an encoder; when validation fails the encoder is invalid, records
// nothing and invalidates e on End.
func (e *CommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) *RenderPassEncoder {
	const op = "BeginRenderPass"
	if desc == nil {
		desc = &RenderPassDescriptor{}
	}
	if desc.NextInChain != nil {
		if _, ok := desc.NextInChain.(*RenderPassMaxDrawCount); !ok {
			return e.invalidRenderPass(desc.Label, invalidf(op, "descriptor is corrupted"))
		}
	}
	if !e.prepare(op) {
		return e.invalidRenderPass(desc.Label, invalidf(op, "encoder is %v", e.state))
	}
	plan, err := e.validateRenderPass(desc)
	if err != nil {
		return e.invalidRenderPass(desc.Label, err)
	}
	e.recordRenderPassUse(desc)

	p := &RenderPassEncoder{
		passCore:     passCore{encoder: e, kind: "render pass", label: desc.Label},
		width:        plan.width,
		height:       plan.height,
		maxDrawCount: plan.maxDrawCount,
		occlusion:    desc.OcclusionQuerySet,
	}
	if plan.destroyed {
		e.finalizeBlit()
		e.skipped(op, "destroyed attachment or query set")
		e.lock(&p.passCore)
		return p
	}
	if !e.clearReadOnlyDepthStencil(desc.DepthStencilAttachment) {
		return p.detach()
	}
	e.finalizeBlit()
	native, err := e.cb.native.RenderEncoder(e.nativeRenderPass(desc, plan))
	if err != nil {
		e.makeInvalid(invalidf(op, "native render encoder: %v", err))
		return p.detach()
	}
	p.native = native
	e.lock(&p.passCore)
	e.sub = subEncoder{kind: subRender, pass: native}
	return p
}

func (e *CommandEncoder) invalidRenderPass(label string, reason error) *RenderPassEncoder {
	p := &RenderPassEncoder{passCore: e.invalidPass("render pass", label, reason)}
	e.lock(&p.passCore)
	return p
}

func (e *CommandEncoder) validateRenderPass(desc *RenderPassDescriptor) (renderPassPlan, error) {
	const op = "BeginRenderPass"
	limits := e.device.limits
	plan := renderPassPlan{maxDrawCount: DefaultMaxDrawCount}
	if ext, ok := desc.NextInChain.(*RenderPassMaxDrawCount); ok && ext != nil {
		plan.maxDrawCount = ext.MaxDrawCount
	}
	if uint32(len(desc.ColorAttachments)) > limits.MaxColorAttachments {
		return plan, invalidf(op, "%d colour attachments exceed the limit of %d",
			len(desc.ColorAttachments), limits.MaxColorAttachments)
	}

	var sized bool
	match := func(what string, v *TextureView) error {
		ext, samples := v.extent(), v.texture.sampleCount
		if !sized {
			plan.width, plan.height, plan.sampleCount = ext.Width, ext.Height, samples
			sized = true
			return nil
		}
		if ext.Width != plan.width || ext.Height != plan.height {
			return invalidf(op, "%s is %dx%d, expected %dx%d", what, ext.Width, ext.Height, plan.width, plan.height)
		}
		if samples != plan.sampleCount {
			return invalidf(op, "%s has %d samples, expected %d", what, samples, plan.sampleCount)
		}
		return nil
	}
	seen := make(map[subresourceKey]struct{})
	claim := func(what string, v *TextureView, slice uint32) error {
		k := keyOf(v.texture, v.desc.BaseMipLevel, slice)
		if _, dup := seen[k]; dup {
			return invalidf(op, "%s aliases mip %d slice %d of %q", what, v.desc.BaseMipLevel, slice, v.texture.label)
		}
		seen[k] = struct{}{}
		return nil
	}

	var bytesPerSample uint32
	for i := range desc.ColorAttachments {
		a := &desc.ColorAttachments[i]
		if a.View == nil {
			if a.ResolveTarget != nil {
				return plan, invalidf(op, "colour attachment %d has a resolve target but no view", i)
			}
			continue
		}
		v := a.View
		if !v.texture.valid(e.device) {
			return plan, invalidf(op, "colour attachment %d is not valid to use with this encoder", i)
		}
		if v.texture.destroyed {
			plan.destroyed = true
		} else if err := validateRenderable(op, "colour attachment", v, texformat.IsColorRenderable(v.desc.Format)); err != nil {
			return plan, err
		}
		if err := match("colour attachment", v); err != nil {
			return plan, err
		}
		info, _ := texformat.Lookup(v.desc.Format)
		aligned, ok := checked.RoundUp(bytesPerSample, info.RenderTargetAlignment)
		if !ok {
			return plan, invalidf(op, "colour attachment bytes per sample overflow")
		}
		if bytesPerSample, ok = checked.Add(aligned, info.RenderTargetByteCost); !ok || bytesPerSample > limits.MaxColorAttachmentBytesPerSample {
			return plan, invalidf(op, "colour attachments use more than %d bytes per sample", limits.MaxColorAttachmentBytesPerSample)
		}

		slice := v.desc.BaseArrayLayer
		if v.desc.Dimension == gputypes.TextureViewDimension3D {
			if a.DepthSlice == nil {
				return plan, invalidf(op, "colour attachment %d of a 3D view has no depth slice", i)
			}
			if depth := v.extent().DepthOrArrayLayers; *a.DepthSlice >= depth {
				return plan, invalidf(op, "depth slice %d >= depth %d", *a.DepthSlice, depth)
			}
			slice = *a.DepthSlice
		} else if a.DepthSlice != nil {
			return plan, invalidf(op, "colour attachment %d sets a depth slice on a %v view", i, v.desc.Dimension)
		}
		if err := claim("colour attachment", v, slice); err != nil {
			return plan, err
		}
		if a.LoadOp != gputypes.LoadOpLoad && a.LoadOp != gputypes.LoadOpClear {
			return plan, invalidf(op, "colour attachment %d has no load op", i)
		}
		if a.StoreOp != gputypes.StoreOpStore && a.StoreOp != gputypes.StoreOpDiscard {
			return plan, invalidf(op, "colour attachment %d has no store op", i)
		}

		if r := a.ResolveTarget; r != nil {
			if err := e.validateResolveTarget(v, r); err != nil {
				return plan, err
			}
			if r.texture.destroyed {
				plan.destroyed = true
			}
			if err := claim("resolve target", r, r.desc.BaseArrayLayer); err != nil {
				return plan, err
			}
		}
	}

	if ds := desc.DepthStencilAttachment; ds != nil {
		destroyed, err := e.validateDepthStencil(ds)
		if err != nil {
			return plan, err
		}
		plan.destroyed = plan.destroyed || destroyed
		if err := match("depth-stencil attachment", ds.View); err != nil {
			return plan, err
		}
		if err := claim("depth-stencil attachment", ds.View, ds.View.desc.BaseArrayLayer); err != nil {
			return plan, err
		}
	}
	if !sized {
		return plan, invalidf(op, "zero color and depth targets")
	}

	if qs := desc.OcclusionQuerySet; qs != nil {
		if !qs.valid(e.device) {
			return plan, invalidf(op, "occlusion query set is not valid to use with this encoder")
		}
		if qs.typ != QueryTypeOcclusion {
			return plan, invalidf(op, "query set %q is a %v set, not occlusion", qs.label, qs.typ)
		}
		plan.destroyed = plan.destroyed || qs.destroyed
	}
	if err := e.validateTimestampWrites(op, desc.TimestampWrites); err != nil {
		return plan, err
	}
	if tw := desc.TimestampWrites; tw != nil && tw.QuerySet.destroyed {
		plan.destroyed = true
	}
	return plan, nil
}

// validateRenderable checks the properties every live attachment view needs.
func validateRenderable(op, what string, v *TextureView, formatOK bool) error {
	t := v.texture
	if t.usage&gputypes.TextureUsageRenderAttachment == 0 {
		return invalidf(op, "%s %q lacks RenderAttachment usage", what, t.label)
	}
	if !formatOK {
		return invalidf(op, "%s format %v is not renderable", what, v.desc.Format)
	}
	switch v.desc.Dimension {
	case gputypes.TextureViewDimension2D, gputypes.TextureViewDimension2DArray, gputypes.TextureViewDimension3D:
	default:
		return invalidf(op, "%s view dimension %v is not renderable", what, v.desc.Dimension)
	}
	if v.desc.MipLevelCount != 1 {
		return invalidf(op, "%s view has %d mip levels", what, v.desc.MipLevelCount)
	}
	if v.desc.ArrayLayerCount > 1 {
		return invalidf(op, "%s view has %d array layers", what, v.desc.ArrayLayerCount)
	}
	return nil
}

func (e *CommandEncoder) validateResolveTarget(src, r *TextureView) error {
	const op = "BeginRenderPass"
	if !r.texture.valid(e.device) {
		return invalidf(op, "resolve target is not valid to use with this encoder")
	}
	if src.texture.sampleCount <= 1 {
		return invalidf(op, "resolve source %q is not multisampled", src.texture.label)
	}
	if r.texture.sampleCount != 1 {
		return invalidf(op, "resolve target %q is multisampled", r.texture.label)
	}
	if r.desc.Format != src.desc.Format {
		return invalidf(op, "resolve target format %v differs from %v", r.desc.Format, src.desc.Format)
	}
	if !r.texture.destroyed {
		if err := validateRenderable(op, "resolve target", r, texformat.IsColorRenderable(r.desc.Format)); err != nil {
			return err
		}
	}
	if !texformat.SupportsResolve(r.desc.Format) {
		return invalidf(op, "format %v cannot be resolved", r.desc.Format)
	}
	se, re := src.extent(), r.extent()
	if se.Width != re.Width || se.Height != re.Height {
		return invalidf(op, "resolve target is %dx%d, source is %dx%d", re.Width, re.Height, se.Width, se.Height)
	}
	return nil
}

// validateDepthStencil checks ds and reports whether its texture is
// destroyed.
func (e *CommandEncoder) validateDepthStencil(ds *RenderPassDepthStencilAttachment) (bool, error) {
	const op = "BeginRenderPass"
	v := ds.View
	if v == nil {
		return false, invalidf(op, "depth-stencil attachment has no view")
	}
	if !v.texture.valid(e.device) {
		return false, invalidf(op, "depth-stencil attachment is not valid to use with this encoder")
	}
	if !v.texture.destroyed {
		if err := validateRenderable(op, "depth-stencil attachment", v, texformat.IsDepthStencilRenderable(v.desc.Format)); err != nil {
			return false, err
		}
	}
	info, _ := texformat.Lookup(v.desc.Format)
	if err := validateAspectOps(op, "depth", info.Depth, ds.DepthReadOnly, ds.DepthLoadOp, ds.DepthStoreOp); err != nil {
		return false, err
	}
	if err := validateAspectOps(op, "stencil", info.Stencil, ds.StencilReadOnly, ds.StencilLoadOp, ds.StencilStoreOp); err != nil {
		return false, err
	}
	if ds.DepthLoadOp == gputypes.LoadOpClear && !(ds.DepthClearValue >= 0 && ds.DepthClearValue <= 1) {
		return false, invalidf(op, "depth clear value %g is outside [0, 1]", ds.DepthClearValue)
	}
	return v.texture.destroyed, nil
}

func validateAspectOps(op, aspect string, present, readOnly bool, load gputypes.LoadOp, store gputypes.StoreOp) error {
	var zeroLoad gputypes.LoadOp
	var zeroStore gputypes.StoreOp
	if !present || readOnly {
		if load != zeroLoad || store != zeroStore {
			return invalidf(op, "%s ops must not be set for an absent or read-only aspect", aspect)
		}
		return nil
	}
	if load != gputypes.LoadOpLoad && load != gputypes.LoadOpClear {
		return invalidf(op, "%s load op is required", aspect)
	}
	if store != gputypes.StoreOpStore && store != gputypes.StoreOpDiscard {
		return invalidf(op, "%s store op is required", aspect)
	}
	return nil
}

// recordRenderPassUse points every resource of a validated pass at e.
func (e *CommandEncoder) recordRenderPassUse(desc *RenderPassDescriptor) {
	for _, a := range desc.ColorAttachments {
		if a.View != nil {
			a.View.texture.setCommandEncoder(e)
		}
		if a.ResolveTarget != nil {
			a.ResolveTarget.texture.setCommandEncoder(e)
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		ds.View.texture.setCommandEncoder(e)
	}
	if qs := desc.OcclusionQuerySet; qs != nil {
		qs.setCommandEncoder(e)
	}
	if tw := desc.TimestampWrites; tw != nil {
		tw.QuerySet.setCommandEncoder(e)
	}
}

// clearReadOnlyDepthStencil zeroes an uncleared depth-stencil subresource
// whose aspects cannot be cleared by a load action because one of them is
// read-only.
func (e *CommandEncoder) clearReadOnlyDepthStencil(ds *RenderPassDepthStencilAttachment) bool {
	if ds == nil {
		return true
	}
	info, _ := texformat.Lookup(ds.View.desc.Format)
	if (info.Depth && ds.DepthReadOnly) || (info.Stencil && ds.StencilReadOnly) {
		return e.clearIfNeeded(ds.View.texture, ds.View.desc.BaseMipLevel, ds.View.desc.BaseArrayLayer)
	}
	return true
}

// nativeRenderPass translates a validated descriptor. Loads of uncleared
// subresources become zero clears, and every attachment ends up cleared.
func (e *CommandEncoder) nativeRenderPass(desc *RenderPassDescriptor, plan renderPassPlan) *backend.RenderPassDescriptor {
	nd := &backend.RenderPassDescriptor{
		Label:       desc.Label,
		Width:       plan.width,
		Height:      plan.height,
		SampleCount: plan.sampleCount,
		Timestamps:  nativeTimestamps(desc.TimestampWrites),
	}
	for _, a := range desc.ColorAttachments {
		v := a.View
		if v == nil {
			continue
		}
		t, mip := v.texture, v.desc.BaseMipLevel
		slice := v.desc.BaseArrayLayer
		if a.DepthSlice != nil {
			slice = *a.DepthSlice
		}
		ca := backend.ColorAttachment{
			Texture:    t.native,
			MipLevel:   mip,
			Slice:      slice,
			Load:       backend.LoadActionLoad,
			ClearValue: a.ClearValue,
		}
		switch {
		case a.LoadOp == gputypes.LoadOpClear:
			ca.Load = backend.LoadActionClear
		case t.cleared.NeedsClear(mip, slice):
			ca.Load = backend.LoadActionClear
			ca.ClearValue = gputypes.Color{}
		}
		t.cleared.MarkCleared(mip, slice)

		resolving := a.ResolveTarget != nil
		switch {
		case a.StoreOp == gputypes.StoreOpStore && resolving:
			ca.Store = backend.StoreActionStoreAndMultisampleResolve
		case a.StoreOp == gputypes.StoreOpStore:
			ca.Store = backend.StoreActionStore
		case resolving:
			ca.Store = backend.StoreActionMultisampleResolve
		default:
			ca.Store = backend.StoreActionDontCare
		}
		if r := a.ResolveTarget; r != nil {
			ca.ResolveTexture = r.texture.native
			ca.ResolveMipLevel = r.desc.BaseMipLevel
			ca.ResolveSlice = r.desc.BaseArrayLayer
			r.texture.cleared.MarkCleared(r.desc.BaseMipLevel, r.desc.BaseArrayLayer)
		}
		nd.ColorAttachments = append(nd.ColorAttachments, ca)
	}

	if ds := desc.DepthStencilAttachment; ds != nil {
		v := ds.View
		t, mip, slice := v.texture, v.desc.BaseMipLevel, v.desc.BaseArrayLayer
		info, _ := texformat.Lookup(v.desc.Format)
		uncleared := t.cleared.NeedsClear(mip, slice)
		nds := &backend.DepthStencilAttachment{
			Texture:      t.native,
			MipLevel:     mip,
			Slice:        slice,
			ClearDepth:   ds.DepthClearValue,
			ClearStencil: ds.StencilClearValue,
		}
		if info.Depth {
			nds.DepthLoad, nds.DepthStore = aspectActions(ds.DepthReadOnly, ds.DepthLoadOp, ds.DepthStoreOp, uncleared)
			if uncleared && ds.DepthLoadOp == gputypes.LoadOpLoad {
				nds.ClearDepth = 0
			}
		}
		if info.Stencil {
			nds.StencilLoad, nds.StencilStore = aspectActions(ds.StencilReadOnly, ds.StencilLoadOp, ds.StencilStoreOp, uncleared)
			if uncleared && ds.StencilLoadOp == gputypes.LoadOpLoad {
				nds.ClearStencil = 0
			}
		}
		t.cleared.MarkCleared(mip, slice)
		nd.DepthStencil = nds
	}

	if qs := desc.OcclusionQuerySet; qs != nil {
		nd.VisibilityBuffer = qs.results
	}
	return nd
}

// aspectActions maps the ops of one depth-stencil aspect to native actions.
func aspectActions(readOnly bool, load gputypes.LoadOp, store gputypes.StoreOp, uncleared bool) (backend.LoadAction, backend.StoreAction) {
	if readOnly {
		return backend.LoadActionLoad, backend.StoreActionStore
	}
	la := backend.LoadActionLoad
	if load == gputypes.LoadOpClear || uncleared {
		la = backend.LoadActionClear
	}
	sa := backend.StoreActionDontCare
	if store == gputypes.StoreOpStore {
		sa = backend.StoreActionStore
	}
	return la, sa
}

// RenderPassEncoder records draws and dynamic state into a render pass.
// Like its CommandEncoder it is NOT safe for concurrent use.
type RenderPassEncoder struct {
	passCore

	// native is nil for invalid passes and for passes over destroyed
	// resources.
	native backend.RenderEncoder

	width, height uint32
	maxDrawCount  uint64
	drawCount     uint64

	occlusion   *QuerySet
	queryActive bool
	usedQueries map[uint32]struct{}
}

// detach returns p as an inert pass after the encoder was invalidated
// during BeginRenderPass.
func (p *RenderPassEncoder) detach() *RenderPassEncoder {
	p.reason = p.encoder.reason
	return p
}

// SetViewport sets the viewport transform. Depths must satisfy
// 0 <= minDepth <= maxDepth <= 1.
func (p *RenderPassEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	const op = "SetViewport"
	if !p.recording(op) {
		return
	}
	if !(width >= 0 && height >= 0) {
		p.fail(invalidf(op, "viewport size %gx%g is negative", width, height))
		return
	}
	if !(minDepth >= 0 && minDepth <= maxDepth && maxDepth <= 1) {
		p.fail(invalidf(op, "depth range [%g, %g] is not within [0, 1]", minDepth, maxDepth))
		return
	}
	if s, ok := p.native.(backend.RenderStateEncoder); ok {
		s.SetViewport(x, y, width, height, minDepth, maxDepth)
	}
}

// SetScissorRect restricts rasterization to a rectangle within the pass.
func (p *RenderPassEncoder) SetScissorRect(x, y, width, height uint32) {
	const op = "SetScissorRect"
	if !p.recording(op) {
		return
	}
	right, okX := checked.Add(x, width)
	bottom, okY := checked.Add(y, height)
	if !okX || !okY || right > p.width || bottom > p.height {
		p.fail(invalidf(op, "scissor %d,%d %dx%d exceeds the %dx%d pass", x, y, width, height, p.width, p.height))
		return
	}
	if s, ok := p.native.(backend.RenderStateEncoder); ok {
		s.SetScissorRect(x, y, width, height)
	}
}

// SetBlendConstant sets the constant blend colour.
func (p *RenderPassEncoder) SetBlendConstant(c gputypes.Color) {
	if !p.recording("SetBlendConstant") {
		return
	}
	if s, ok := p.native.(backend.RenderStateEncoder); ok {
		s.SetBlendColor(c)
	}
}

// SetStencilReference sets the stencil reference value.
func (p *RenderPassEncoder) SetStencilReference(ref uint32) {
	if !p.recording("SetStencilReference") {
		return
	}
	if s, ok := p.native.(backend.RenderStateEncoder); ok {
		s.SetStencilReference(ref)
	}
}

// Draw records a non-indexed draw.
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	const op = "Draw"
	if !p.recording(op) {
		return
	}
	p.drawCount++
	if p.drawCount > p.maxDrawCount {
		p.fail(invalidf(op, "more than %d draws", p.maxDrawCount))
		return
	}
	if p.native != nil {
		p.native.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	}
}

// BeginOcclusionQuery starts occlusion query index of the pass's occlusion
// query set. Each index may be used once per pass.
func (p *RenderPassEncoder) BeginOcclusionQuery(index uint32) {
	const op = "BeginOcclusionQuery"
	if !p.recording(op) {
		return
	}
	switch {
	case p.occlusion == nil:
		p.fail(invalidf(op, "pass has no occlusion query set"))
		return
	case p.queryActive:
		p.fail(invalidf(op, "an occlusion query is already active"))
		return
	case index >= p.occlusion.count:
		p.fail(invalidf(op, "query index %d >= count %d", index, p.occlusion.count))
		return
	}
	if _, used := p.usedQueries[index]; used {
		p.fail(invalidf(op, "query index %d was already used in this pass", index))
		return
	}
	if p.usedQueries == nil {
		p.usedQueries = make(map[uint32]struct{})
	}
	p.usedQueries[index] = struct{}{}
	p.queryActive = true
	if v, ok := p.native.(backend.VisibilityEncoder); ok {
		v.BeginVisibilityQuery(uint64(index) * querySize)
	}
}

// EndOcclusionQuery ends the active occlusion query.
func (p *RenderPassEncoder) EndOcclusionQuery() {
	const op = "EndOcclusionQuery"
	if !p.recording(op) {
		return
	}
	if !p.queryActive {
		p.fail(invalidf(op, "no occlusion query is active"))
		return
	}
	p.queryActive = false
	if v, ok := p.native.(backend.VisibilityEncoder); ok {
		v.EndVisibilityQuery()
	}
}

// End ends the pass and unlocks the parent encoder. A pass that failed
// validation invalidates the parent with its first failure.
func (p *RenderPassEncoder) End() {
	if !p.end() {
		return
	}
	if p.queryActive && p.reason == nil {
		p.fail(invalidf("End", "occlusion query still active"))
	}
	p.encoder.unlock(&p.passCore, p.reason)
}
