package software

import "fmt"

// Op names a recorded native call.
type Op string

// Recorded operations.
const (
	OpBeginBlit            Op = "BeginBlit"
	OpBeginRender          Op = "BeginRender"
	OpBeginCompute         Op = "BeginCompute"
	OpEndEncoding          Op = "EndEncoding"
	OpCopyBufferToBuffer   Op = "CopyBufferToBuffer"
	OpCopyBufferToTexture  Op = "CopyBufferToTexture"
	OpCopyTextureToBuffer  Op = "CopyTextureToBuffer"
	OpCopyTextureToTexture Op = "CopyTextureToTexture"
	OpFillBuffer           Op = "FillBuffer"
	OpClearTexture         Op = "ClearTexture"
	OpDraw                 Op = "Draw"
	OpDispatch             Op = "Dispatch"
	OpSetViewport          Op = "SetViewport"
	OpSetScissorRect       Op = "SetScissorRect"
	OpSetBlendColor        Op = "SetBlendColor"
	OpSetStencilReference  Op = "SetStencilReference"
	OpBeginVisibility      Op = "BeginVisibilityQuery"
	OpEndVisibility        Op = "EndVisibilityQuery"
	OpCommit               Op = "Commit"
)

// Call is one recorded native call.
type Call struct {
	Op   Op
	Args string
}

// String returns "Op(args)".
func (c Call) String() string {
	return fmt.Sprintf("%s(%s)", c.Op, c.Args)
}

func (d *Device) record(op Op, format string, args ...any) {
	c := Call{Op: op}
	if format != "" {
		c.Args = fmt.Sprintf(format, args...)
	}
	d.mu.Lock()
	d.trace = append(d.trace, c)
	d.mu.Unlock()
}

// Trace returns a copy of every call recorded since the last ResetTrace.
func (d *Device) Trace() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.trace...)
}

// ResetTrace clears the trace and the recorded violations.
func (d *Device) ResetTrace() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trace = nil
	d.violations = nil
}

// Count returns how many calls of op were recorded.
func (d *Device) Count(op Op) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.trace {
		if c.Op == op {
			n++
		}
	}
	return n
}
