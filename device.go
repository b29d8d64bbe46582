package gpuenc

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/checked"
)

// ErrorHandler receives device-level validation errors: commands issued to
// an ended encoder, bad ClearBuffer ranges and invalid submissions.
type ErrorHandler func(err error)

// DeviceOption configures a Device during creation.
//
// Example:
//
//	dev, err := gpuenc.NewDevice(native,
//	    gpuenc.WithLabel("main"),
//	    gpuenc.WithErrorHandler(func(err error) { log.Print(err) }),
//	)
type DeviceOption func(*deviceOptions)

type deviceOptions struct {
	limits  Limits
	label   string
	onError ErrorHandler
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{limits: DefaultLimits()}
}

// WithLimits sets the limits the device validates against.
func WithLimits(l Limits) DeviceOption {
	return func(o *deviceOptions) {
		o.limits = l
	}
}

// WithLabel sets the device's debug label.
func WithLabel(label string) DeviceOption {
	return func(o *deviceOptions) {
		o.label = label
	}
}

// WithErrorHandler installs the uncaptured error handler.
func WithErrorHandler(h ErrorHandler) DeviceOption {
	return func(o *deviceOptions) {
		o.onError = h
	}
}

// Device creates resources and command encoders on top of a native backend
// device. Device methods are safe for concurrent use; the encoders and
// resources it creates are not.
type Device struct {
	native  backend.Device
	caps    backend.Caps
	label   string
	limits  Limits
	onError ErrorHandler

	errorCount atomic.Uint64
	closed     atomic.Bool
}

// NewDevice wraps a native backend device.
func NewDevice(native backend.Device, opts ...DeviceOption) (*Device, error) {
	if native == nil {
		return nil, ErrNilBackend
	}
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		native:  native,
		caps:    native.Caps(),
		label:   o.label,
		limits:  o.limits,
		onError: o.onError,
	}
	trackDevice(d)
	Logger().Debug("gpuenc: device created", "label", d.label, "backend", native.Name())
	return d, nil
}

// OpenDevice creates a device on the named registered backend. An empty
// name selects backend.Default.
func OpenDevice(name string, opts ...DeviceOption) (*Device, error) {
	var (
		native backend.Device
		err    error
	)
	if name == "" {
		native, err = backend.Default()
	} else {
		native, err = backend.Get(name)
	}
	if err != nil {
		return nil, fmt.Errorf("gpuenc: open device: %w", err)
	}
	return NewDevice(native, opts...)
}

// Native returns the backend device.
func (d *Device) Native() backend.Device { return d.native }

// Label returns the device's debug label.
func (d *Device) Label() string { return d.label }

// Limits returns the limits the device validates against.
func (d *Device) Limits() Limits { return d.limits }

// ErrorCount returns how many device-level errors have been reported.
func (d *Device) ErrorCount() uint64 { return d.errorCount.Load() }

// Close releases the native device. Close is idempotent.
func (d *Device) Close() {
	if d.closed.CompareAndSwap(false, true) {
		d.native.Close()
	}
}

// reportError delivers a device-level validation error.
func (d *Device) reportError(err error) {
	d.errorCount.Add(1)
	Logger().Warn("gpuenc: device error", "device", d.label, "err", err)
	if d.onError != nil {
		d.onError(err)
	}
}

// WriteBuffer uploads data into b at offset outside of any encoder. The
// native device must implement backend.BufferWriter.
func (d *Device) WriteBuffer(b *Buffer, offset uint64, data []byte) error {
	const op = "WriteBuffer"
	w, ok := d.native.(backend.BufferWriter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSupported, op)
	}
	if err := d.checkHostAccess(op, b, offset, uint64(len(data))); err != nil {
		return err
	}
	if b.usage&gputypes.BufferUsageCopyDst == 0 {
		return invalidf(op, "buffer %q lacks CopyDst usage", b.label)
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		return invalidf(op, "offset %d and size %d must be multiples of 4", offset, len(data))
	}
	if len(data) == 0 {
		return nil
	}
	if err := w.WriteBuffer(b.native, offset, data); err != nil {
		return fmt.Errorf("gpuenc: write buffer %q: %w", b.label, err)
	}
	return nil
}

// ReadBuffer returns size bytes of b starting at offset. The native device
// must implement backend.BufferReader.
func (d *Device) ReadBuffer(b *Buffer, offset, size uint64) ([]byte, error) {
	const op = "ReadBuffer"
	r, ok := d.native.(backend.BufferReader)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, op)
	}
	if err := d.checkHostAccess(op, b, offset, size); err != nil {
		return nil, err
	}
	data, err := r.ReadBuffer(b.native, offset, size)
	if err != nil {
		return nil, fmt.Errorf("gpuenc: read buffer %q: %w", b.label, err)
	}
	return data, nil
}

func (d *Device) checkHostAccess(op string, b *Buffer, offset, size uint64) error {
	if b == nil {
		return invalidf(op, "buffer is nil")
	}
	if b.device != d {
		return fmt.Errorf("%w: %s %q", ErrDeviceMismatch, op, b.label)
	}
	if b.destroyed {
		return fmt.Errorf("%w: %s %q", ErrDestroyed, op, b.label)
	}
	end, ok := checked.Add(offset, size)
	if !ok || end > b.size {
		return invalidf(op, "range [%d, +%d) exceeds buffer %q of size %d", offset, size, b.label, b.size)
	}
	return nil
}

// Submit commits command buffers to the native device in order. A command
// buffer that references a resource destroyed after encoding, or that was
// already submitted, is skipped and reported to the error handler.
func (d *Device) Submit(buffers ...*CommandBuffer) error {
	var errs []error
	for _, cb := range buffers {
		if cb == nil {
			continue
		}
		if err := cb.submit(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
