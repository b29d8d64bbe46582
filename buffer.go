package gpuenc

import (
	"fmt"
	"weak"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the set of allowed usages.
	Usage gputypes.BufferUsage
}

// Buffer is a linear GPU allocation.
//
// Buffer is NOT safe for concurrent use with encoders recording against it.
type Buffer struct {
	device *Device
	native backend.Buffer
	label  string
	size   uint64
	usage  gputypes.BufferUsage

	destroyed bool

	// indirectInvalidated is set when a command writes the buffer, so
	// indirect-draw arguments read from it must be validated again.
	indirectInvalidated bool

	// encoder is the command encoder that last recorded a command using the
	// buffer.
	encoder weak.Pointer[CommandEncoder]
}

// CreateBuffer allocates a buffer.
func (d *Device) CreateBuffer(desc *BufferDescriptor) (*Buffer, error) {
	const op = "CreateBuffer"
	if desc == nil {
		return nil, invalidf(op, "descriptor is nil")
	}
	if desc.Size > d.limits.MaxBufferSize {
		return nil, invalidf(op, "size %d exceeds MaxBufferSize %d", desc.Size, d.limits.MaxBufferSize)
	}
	native, err := d.native.NewBuffer(&backend.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpuenc: create buffer %q: %w", desc.Label, err)
	}
	return &Buffer{
		device: d,
		native: native,
		label:  desc.Label,
		size:   desc.Size,
		usage:  desc.Usage,
	}, nil
}

// Label returns the buffer's debug label.
func (b *Buffer) Label() string { return b.label }

// Size returns the size requested at creation.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the allowed usages.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Device returns the device the buffer was created on.
func (b *Buffer) Device() *Device { return b.device }

// Native returns the backend buffer.
func (b *Buffer) Native() backend.Buffer { return b.native }

// IsDestroyed reports whether Destroy was called.
func (b *Buffer) IsDestroyed() bool { return b.destroyed }

// IndirectInvalidated reports whether the buffer was written by a command
// since the last MarkIndirectValidated.
func (b *Buffer) IndirectInvalidated() bool { return b.indirectInvalidated }

// MarkIndirectValidated clears the indirect-invalidated flag.
func (b *Buffer) MarkIndirectValidated() { b.indirectInvalidated = false }

// Destroy releases the native allocation. A command buffer that recorded a
// command using the buffer fails to submit. Destroy is idempotent.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.native.Destroy()
	if e := b.encoder.Value(); e != nil {
		e.makeSubmitInvalid("buffer " + b.label)
	}
}

// setCommandEncoder records e as the last user of the buffer. A destroyed
// buffer poisons e's command buffer.
func (b *Buffer) setCommandEncoder(e *CommandEncoder) {
	b.encoder = weak.Make(e)
	if b.destroyed {
		e.makeSubmitInvalid("buffer " + b.label)
	}
}

// valid reports whether the buffer can be used by commands of device d.
func (b *Buffer) valid(d *Device) bool {
	return b != nil && b.device == d
}
