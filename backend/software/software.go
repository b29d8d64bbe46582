// Package software implements the native backend contract in memory.
//
// Buffers and textures are plain byte slices. Commands are recorded into a
// command buffer and executed byte-exactly on Commit, so the package serves
// as a reference against which other backends and the encoder's copy
// decomposition are checked. Every native call is appended to the device's
// trace at record time.
//
// The software backend registers itself as "software" on import.
package software

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuenc/backend"
)

// Errors reported by Commit and the buffer accessors.
var (
	// ErrStrideLimit is reported when a copy's bytesPerRow exceeds the
	// configured MaxCopyBytesPerRow.
	ErrStrideLimit = errors.New("software: copy stride exceeds backend limit")

	// ErrOutOfBounds is reported when a command addresses bytes outside a
	// resource.
	ErrOutOfBounds = errors.New("software: access out of bounds")

	// ErrDestroyed is reported when a command touches a destroyed resource.
	ErrDestroyed = errors.New("software: resource destroyed")

	// ErrForeignResource is reported when a resource from another backend
	// is passed in.
	ErrForeignResource = errors.New("software: resource not created by this backend")
)

func init() {
	backend.Register(backend.BackendSoftware, func() (backend.Device, error) {
		return New(), nil
	})
}

// Option configures a Device.
type Option func(*Device)

// WithMaxCopyBytesPerRow caps the row stride of every buffer/texture copy.
// Copies over the cap are still executed but recorded as violations and
// reported by Commit.
func WithMaxCopyBytesPerRow(n uint64) Option {
	return func(d *Device) { d.caps.MaxCopyBytesPerRow = n }
}

// WithMax3DCopyRowBlocks overrides the per-row block limit for 3D copies.
func WithMax3DCopyRowBlocks(n uint32) Option {
	return func(d *Device) { d.caps.Max3DCopyRowBlocks = n }
}

// Device is an in-memory native device.
//
// Device is safe for concurrent use; command buffers are not.
type Device struct {
	caps   backend.Caps
	logger atomic.Pointer[slog.Logger]

	mu         sync.Mutex
	trace      []Call
	violations []error
	clock      uint64
}

// New creates a software device.
func New(opts ...Option) *Device {
	d := &Device{
		caps: backend.Caps{Max3DCopyRowBlocks: backend.DefaultMax3DCopyRowBlocks},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger.Store(slog.New(discardHandler{}))
	return d
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendSoftware }

// Caps returns the configured copy limits.
func (d *Device) Caps() backend.Caps { return d.caps }

// SetLogger sets the logger used for execution diagnostics.
// Pass nil to disable logging.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger { return d.logger.Load() }

// Close releases all backend resources.
func (d *Device) Close() {}

// NewBuffer allocates a zero-filled buffer.
func (d *Device) NewBuffer(desc *backend.BufferDescriptor) (backend.Buffer, error) {
	if desc == nil {
		return nil, errors.New("software: nil buffer descriptor")
	}
	return &Buffer{label: desc.Label, data: make([]byte, desc.Size)}, nil
}

// NewTexture allocates a zero-filled texture.
func (d *Device) NewTexture(desc *backend.TextureDescriptor) (backend.Texture, error) {
	if desc == nil {
		return nil, errors.New("software: nil texture descriptor")
	}
	return newTexture(desc)
}

// NewCommandBuffer starts recording a command buffer.
func (d *Device) NewCommandBuffer(label string) (backend.CommandBuffer, error) {
	return &CommandBuffer{dev: d, label: label}, nil
}

// WriteBuffer copies data into b at offset.
func (d *Device) WriteBuffer(b backend.Buffer, offset uint64, data []byte) error {
	buf, err := asBuffer(b)
	if err != nil {
		return err
	}
	dst, err := buf.span(offset, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// ReadBuffer returns a copy of size bytes of b starting at offset.
func (d *Device) ReadBuffer(b backend.Buffer, offset, size uint64) ([]byte, error) {
	buf, err := asBuffer(b)
	if err != nil {
		return nil, err
	}
	src, err := buf.span(offset, size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), src...), nil
}

// Violations returns the limit violations recorded so far.
func (d *Device) Violations() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.violations...)
}

func (d *Device) violate(err error) {
	d.mu.Lock()
	d.violations = append(d.violations, err)
	d.mu.Unlock()
	d.log().Warn("software: limit violation", "err", err)
}

func (d *Device) checkStride(op Op, bytesPerRow uint64) error {
	limit := d.caps.MaxCopyBytesPerRow
	if limit == 0 || bytesPerRow <= limit {
		return nil
	}
	err := fmt.Errorf("%w: %s bytesPerRow %d > %d", ErrStrideLimit, op, bytesPerRow, limit)
	d.violate(err)
	return err
}

func (d *Device) tick() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock++
	return d.clock
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
