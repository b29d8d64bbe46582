package gpuenc

import (
	"fmt"

	"github.com/gogpu/gpuenc/backend"
)

// CommandBuffer is the result of a finished CommandEncoder. It is consumed
// by Device.Submit.
type CommandBuffer struct {
	device *Device
	label  string
	native backend.CommandBuffer

	// encoder keeps the encoder, and with it the resources' weak
	// back-references, alive until submission.
	encoder *CommandEncoder

	// submitInvalid names the destroyed resource that makes submission
	// fail; empty while the buffer is submittable.
	submitInvalid string
	submitted     bool
}

// Label returns the command buffer's debug label.
func (cb *CommandBuffer) Label() string { return cb.label }

// Native returns the backend command buffer.
func (cb *CommandBuffer) Native() backend.CommandBuffer { return cb.native }

func (cb *CommandBuffer) submit(d *Device) error {
	if cb.device != d {
		err := fmt.Errorf("%w: command buffer %q", ErrDeviceMismatch, cb.label)
		d.reportError(err)
		return err
	}
	var err error
	switch {
	case cb.submitted:
		err = fmt.Errorf("%w: %q", ErrCommandBufferUsed, cb.label)
	case cb.submitInvalid != "":
		err = fmt.Errorf("%w: %q: %s", ErrSubmitInvalid, cb.label, cb.submitInvalid)
	}
	cb.submitted = true
	cb.encoder = nil
	if err != nil {
		d.reportError(err)
		return err
	}
	if err := cb.native.Commit(); err != nil {
		return fmt.Errorf("gpuenc: commit %q: %w", cb.label, err)
	}
	Logger().Debug("gpuenc: submitted command buffer", "label", cb.label, "backend", d.native.Name())
	return nil
}
