package gpuenc

import (
	"fmt"

	"github.com/gogpu/gpuenc/backend"
)

// EncoderState is the lifecycle state of a CommandEncoder.
type EncoderState uint8

const (
	// EncoderStateOpen means the encoder accepts commands.
	EncoderStateOpen EncoderState = iota

	// EncoderStateLocked means a render or compute pass is active. Commands
	// issued to the encoder itself invalidate it.
	EncoderStateLocked

	// EncoderStateEnded means Finish was called.
	EncoderStateEnded

	// EncoderStateInvalid means a command failed validation. The first
	// failure is kept as the reason.
	EncoderStateInvalid
)

// String returns the state name.
func (s EncoderState) String() string {
	switch s {
	case EncoderStateOpen:
		return "Open"
	case EncoderStateLocked:
		return "Locked"
	case EncoderStateEnded:
		return "Ended"
	case EncoderStateInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// subEncoderKind selects the native sub-encoder currently open on the
// command buffer.
type subEncoderKind uint8

const (
	subNone subEncoderKind = iota
	subBlit
	subRender
	subCompute
)

// subEncoder is the open native sub-encoder. Installing a new one ends the
// previous one first.
type subEncoder struct {
	kind subEncoderKind
	blit backend.BlitEncoder
	pass backend.Encoder
}

// CommandEncoderDescriptor describes a command encoder to create.
type CommandEncoderDescriptor struct {
	Label string
}

// CommandEncoder validates commands and records them into a native command
// buffer.
//
// State machine:
//
//	Open   -> (BeginRenderPass/BeginComputePass) -> Locked
//	Locked -> (pass End)                         -> Open
//	Open   -> Finish()                           -> Ended
//	any    -> (validation failure)               -> Invalid
//
// Invalid is terminal; Finish on an invalid encoder returns its first
// reason and leaves it Invalid.
//
// Overflowing arithmetic, zero-sized copies and destroyed resources do not
// change the state; such commands are dropped without native calls.
//
// CommandEncoder is NOT safe for concurrent use. Each encoder should be
// used from a single goroutine.
type CommandEncoder struct {
	device *Device
	label  string
	cb     *CommandBuffer

	state  EncoderState
	reason error
	sub    subEncoder

	// activePass is the pass encoder holding the lock, valid or not.
	activePass any
}

// CreateCommandEncoder starts a native command buffer and returns an open
// encoder recording into it.
func (d *Device) CreateCommandEncoder(desc *CommandEncoderDescriptor) (*CommandEncoder, error) {
	var label string
	if desc != nil {
		label = desc.Label
	}
	native, err := d.native.NewCommandBuffer(label)
	if err != nil {
		return nil, fmt.Errorf("gpuenc: create command encoder %q: %w", label, err)
	}
	e := &CommandEncoder{device: d, label: label}
	e.cb = &CommandBuffer{device: d, label: label, native: native, encoder: e}
	return e, nil
}

// Label returns the encoder's debug label.
func (e *CommandEncoder) Label() string { return e.label }

// State returns the lifecycle state.
func (e *CommandEncoder) State() EncoderState { return e.state }

// Err returns nil for a valid encoder, and otherwise an error wrapping
// ErrEncoderInvalid and the first recorded reason.
func (e *CommandEncoder) Err() error {
	if e.state != EncoderStateInvalid {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrEncoderInvalid, e.reason)
}

// prepare reports whether op may record. A locked encoder becomes invalid;
// an ended encoder reports a device error and stays ended.
func (e *CommandEncoder) prepare(op string) bool {
	switch e.state {
	case EncoderStateOpen:
		return true
	case EncoderStateLocked:
		err := fmt.Errorf("%w: %s", ErrEncoderLocked, op)
		e.device.reportError(err)
		e.makeInvalid(err)
	case EncoderStateEnded:
		e.device.reportError(fmt.Errorf("%w: %s", ErrEncoderEnded, op))
	case EncoderStateInvalid:
		e.device.reportError(fmt.Errorf("%w: %s", ErrEncoderInvalid, op))
	}
	return false
}

// makeInvalid records reason and ends any native sub-encoder. Only the
// first reason is kept, and an ended encoder stays ended.
func (e *CommandEncoder) makeInvalid(reason error) {
	if e.state == EncoderStateInvalid || e.state == EncoderStateEnded {
		return
	}
	e.endSubEncoder()
	e.activePass = nil
	e.state = EncoderStateInvalid
	e.reason = reason
	Logger().Warn("gpuenc: encoder invalidated", "encoder", e.label, "reason", reason)
}

// makeSubmitInvalid marks the command buffer as referencing a destroyed
// resource.
func (e *CommandEncoder) makeSubmitInvalid(what string) {
	if e.cb.submitInvalid == "" {
		e.cb.submitInvalid = what + " destroyed"
		Logger().Debug("gpuenc: command buffer will fail to submit", "encoder", e.label, "resource", what)
	}
}

// ensureBlit returns the open blit sub-encoder, creating it if needed.
func (e *CommandEncoder) ensureBlit() (backend.BlitEncoder, bool) {
	if e.sub.kind == subBlit {
		return e.sub.blit, true
	}
	e.endSubEncoder()
	blit, err := e.cb.native.BlitEncoder()
	if err != nil {
		e.makeInvalid(fmt.Errorf("gpuenc: begin blit encoder: %w", err))
		return nil, false
	}
	e.sub = subEncoder{kind: subBlit, blit: blit}
	return blit, true
}

// finalizeBlit ends the blit sub-encoder, if one is open.
func (e *CommandEncoder) finalizeBlit() {
	if e.sub.kind == subBlit {
		e.endSubEncoder()
	}
}

func (e *CommandEncoder) endSubEncoder() {
	switch e.sub.kind {
	case subBlit:
		e.sub.blit.EndEncoding()
	case subRender, subCompute:
		e.sub.pass.EndEncoding()
	}
	e.sub = subEncoder{}
}

// lock installs pass as the active pass of an open encoder.
func (e *CommandEncoder) lock(pass any) {
	if e.state == EncoderStateOpen {
		e.state = EncoderStateLocked
		e.activePass = pass
	}
}

// unlock ends pass's native encoder and reopens the encoder. An invalid
// pass invalidates the encoder with its reason.
func (e *CommandEncoder) unlock(pass any, reason error) {
	if e.activePass != pass || e.state != EncoderStateLocked {
		return
	}
	e.activePass = nil
	e.state = EncoderStateOpen
	if reason != nil {
		e.makeInvalid(reason)
		return
	}
	e.endSubEncoder()
}

// skipped logs a command dropped without native calls.
func (e *CommandEncoder) skipped(op, why string) {
	Logger().Debug("gpuenc: command dropped", "encoder", e.label, "op", op, "why", why)
}

// Finish ends the encoder and returns its command buffer. An invalid or
// locked encoder yields an error instead and stays invalid, keeping its
// first reason.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	switch e.state {
	case EncoderStateEnded:
		err := fmt.Errorf("%w: Finish", ErrEncoderEnded)
		e.device.reportError(err)
		return nil, err
	case EncoderStateLocked:
		e.makeInvalid(invalidf("Finish", "encoder state is locked"))
	}
	if e.state == EncoderStateInvalid {
		return nil, e.Err()
	}
	e.endSubEncoder()
	e.state = EncoderStateEnded
	return e.cb, nil
}
