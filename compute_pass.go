package gpuenc

import (
	"github.com/gogpu/gpuenc/backend"
)

// ComputePassDescriptor describes a compute pass to begin. Compute passes
// accept no chained extension.
type ComputePassDescriptor struct {
	Label           string
	TimestampWrites *PassTimestampWrites
	NextInChain     Extension
}

// ComputePassEncoder records dispatches into a compute pass. It is NOT safe
// for concurrent use.
type ComputePassEncoder struct {
	passCore
	native backend.ComputeEncoder
}

// BeginComputePass validates desc and starts a compute pass with serial
// dispatch. Like BeginRenderPass it always returns an encoder.
func (e *CommandEncoder) BeginComputePass(desc *ComputePassDescriptor) *ComputePassEncoder {
	const op = "BeginComputePass"
	if desc == nil {
		desc = &ComputePassDescriptor{}
	}
	if desc.NextInChain != nil {
		return e.invalidComputePass(desc.Label, invalidf(op, "descriptor is corrupted"))
	}
	if !e.prepare(op) {
		return e.invalidComputePass(desc.Label, invalidf(op, "encoder is %v", e.state))
	}
	if err := e.validateTimestampWrites(op, desc.TimestampWrites); err != nil {
		return e.invalidComputePass(desc.Label, err)
	}

	p := &ComputePassEncoder{passCore: passCore{encoder: e, kind: "compute pass", label: desc.Label}}
	e.finalizeBlit()
	if tw := desc.TimestampWrites; tw != nil {
		tw.QuerySet.setCommandEncoder(e)
		if tw.QuerySet.destroyed {
			e.skipped(op, "destroyed query set")
			e.lock(&p.passCore)
			return p
		}
	}
	native, err := e.cb.native.ComputeEncoder(&backend.ComputePassDescriptor{
		Label:      desc.Label,
		Timestamps: nativeTimestamps(desc.TimestampWrites),
	})
	if err != nil {
		e.makeInvalid(invalidf(op, "native compute encoder: %v", err))
		p.reason = e.reason
		return p
	}
	p.native = native
	e.lock(&p.passCore)
	e.sub = subEncoder{kind: subCompute, pass: native}
	return p
}

func (e *CommandEncoder) invalidComputePass(label string, reason error) *ComputePassEncoder {
	p := &ComputePassEncoder{passCore: e.invalidPass("compute pass", label, reason)}
	e.lock(&p.passCore)
	return p
}

// DispatchWorkgroups dispatches an x*y*z grid of workgroups. A dimension of
// zero dispatches nothing.
func (p *ComputePassEncoder) DispatchWorkgroups(x, y, z uint32) {
	const op = "DispatchWorkgroups"
	if !p.recording(op) {
		return
	}
	limit := p.encoder.device.limits.MaxComputeWorkgroupsPerDimension
	if x > limit || y > limit || z > limit {
		p.fail(invalidf(op, "workgroup count %dx%dx%d exceeds %d per dimension", x, y, z, limit))
		return
	}
	if x == 0 || y == 0 || z == 0 || p.native == nil {
		return
	}
	p.native.Dispatch(x, y, z)
}

// End ends the pass and unlocks the parent encoder.
func (p *ComputePassEncoder) End() {
	if !p.end() {
		return
	}
	p.encoder.unlock(&p.passCore, p.reason)
}
