package wgpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuenc/backend"
	"github.com/gogpu/gpuenc/internal/texformat"
)

const (
	// defaultSubmitTimeout bounds the wait for a committed command buffer.
	defaultSubmitTimeout = 5 * time.Second

	// pollInterval is the delay between queue completion polls.
	pollInterval = 50 * time.Microsecond
)

// ErrSubmitTimeout is returned when the GPU does not signal completion of a
// committed command buffer in time.
var ErrSubmitTimeout = errors.New("wgpu: submit timed out")

// Option configures a Device.
type Option func(*Device)

// WithMaxCopyBytesPerRow reports a row stride cap for buffer/texture copies.
func WithMaxCopyBytesPerRow(n uint64) Option {
	return func(d *Device) { d.caps.MaxCopyBytesPerRow = n }
}

// WithSubmitTimeout sets how long Commit waits for the GPU.
func WithSubmitTimeout(timeout time.Duration) Option {
	return func(d *Device) { d.timeout = timeout }
}

// Device wraps a hal device and queue.
type Device struct {
	device  hal.Device
	queue   hal.Queue
	caps    backend.Caps
	timeout time.Duration
	logger  atomic.Pointer[slog.Logger]
}

// New wraps an opened hal device and its queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) *Device {
	d := &Device{
		device:  device,
		queue:   queue,
		caps:    backend.Caps{Max3DCopyRowBlocks: backend.DefaultMax3DCopyRowBlocks},
		timeout: defaultSubmitTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger.Store(slog.New(nopHandler{}))
	return d
}

// Register makes the hal device available as the "wgpu" backend.
func Register(device hal.Device, queue hal.Queue, opts ...Option) {
	backend.Register(backend.BackendWGPU, func() (backend.Device, error) {
		if device == nil || queue == nil {
			return nil, fmt.Errorf("%w: wgpu: nil hal device or queue", backend.ErrBackendNotAvailable)
		}
		return New(device, queue, opts...), nil
	})
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendWGPU }

// Caps returns the configured copy limits.
func (d *Device) Caps() backend.Caps { return d.caps }

// SetLogger sets the logger used for diagnostics. Pass nil to disable.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	d.logger.Store(l)
}

func (d *Device) log() *slog.Logger { return d.logger.Load() }

// Close is a no-op; the hal device belongs to the caller.
func (d *Device) Close() {}

// Buffer is a hal buffer.
type Buffer struct {
	dev  *Device
	raw  hal.Buffer
	size uint64
}

// Length returns the buffer size in bytes.
func (b *Buffer) Length() uint64 { return b.size }

// Destroy releases the hal buffer.
func (b *Buffer) Destroy() {
	if b.raw != nil {
		b.dev.device.DestroyBuffer(b.raw)
		b.raw = nil
	}
}

// NewBuffer creates a hal buffer. Copy usages are always added so the
// buffer can take part in staging copies.
func (d *Device) NewBuffer(desc *backend.BufferDescriptor) (backend.Buffer, error) {
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &Buffer{dev: d, raw: raw, size: desc.Size}, nil
}

// WriteBuffer uploads data through the queue.
func (d *Device) WriteBuffer(b backend.Buffer, offset uint64, data []byte) error {
	buf, err := asBuffer(b)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.queue.WriteBuffer(buf.raw, offset, data); err != nil {
		return fmt.Errorf("wgpu: write buffer: %w", err)
	}
	return nil
}

// waitCompleted polls the queue until submission index reports complete
// or the submit timeout passes.
func (d *Device) waitCompleted(index uint64) error {
	deadline := time.Now().Add(d.timeout)
	for d.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d after %v", ErrSubmitTimeout, index, d.timeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// Texture is a hal texture with a lazily created default view.
type Texture struct {
	dev  *Device
	raw  hal.Texture
	view hal.TextureView
	desc backend.TextureDescriptor
}

// NewTexture creates a hal texture.
func (d *Device) NewTexture(desc *backend.TextureDescriptor) (backend.Texture, error) {
	usage := desc.Usage | gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent(desc.Size),
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   desc.SampleCount,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	return &Texture{dev: d, raw: raw, desc: *desc}, nil
}

// Destroy releases the view and the hal texture.
func (t *Texture) Destroy() {
	if t.view != nil {
		t.dev.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		t.dev.device.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// attachmentView returns the view used to render into (mipLevel, slice).
func (t *Texture) attachmentView(mipLevel, slice uint32) (hal.TextureView, error) {
	if mipLevel != 0 || slice != 0 {
		return nil, fmt.Errorf("%w: wgpu: attachment at mip %d slice %d", backend.ErrUnsupported, mipLevel, slice)
	}
	if t.view == nil {
		view, err := t.dev.device.CreateTextureView(t.raw, &hal.TextureViewDescriptor{
			Label: t.desc.Label + "_attachment",
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create view of %q: %w", t.desc.Label, err)
		}
		t.view = view
	}
	return t.view, nil
}

// levelExtent returns the size of a mip level in texels.
func (t *Texture) levelExtent(mipLevel uint32) gputypes.Extent3D {
	e := gputypes.Extent3D{
		Width:              max(t.desc.Size.Width>>mipLevel, 1),
		Height:             max(t.desc.Size.Height>>mipLevel, 1),
		DepthOrArrayLayers: 1,
	}
	if t.desc.Dimension == gputypes.TextureDimension1D {
		e.Height = 1
	}
	return e
}

func (t *Texture) blockSize(aspect gputypes.TextureAspect) uint32 {
	bs := texformat.BlockSize(t.desc.Format, aspect)
	if bs == 0 {
		bs = 4
	}
	return bs
}

func asBuffer(b backend.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil || buf.raw == nil {
		return nil, fmt.Errorf("%w: wgpu: foreign or destroyed buffer %T", backend.ErrUnsupported, b)
	}
	return buf, nil
}

func asTexture(t backend.Texture) (*Texture, error) {
	tex, ok := t.(*Texture)
	if !ok || tex == nil || tex.raw == nil {
		return nil, fmt.Errorf("%w: wgpu: foreign or destroyed texture %T", backend.ErrUnsupported, t)
	}
	return tex, nil
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
