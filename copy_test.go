package gpuenc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gpuenc/backend/software"
)

func TestCopyBufferToBuffer(t *testing.T) {
	d, sw := newTestDevice(t)
	src := mustBuffer(t, d, 64, copySrc|copyDst)
	dst := mustBuffer(t, d, 64, copyDst|copySrc)
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	if err := d.WriteBuffer(src, 0, data); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}

	e := mustEncoder(t, d)
	e.CopyBufferToBuffer(src, 8, dst, 16, 32)
	finishAndSubmit(t, d, e)

	got, err := d.ReadBuffer(dst, 0, 64)
	if err != nil {
		t.Fatalf("ReadBuffer() error = %v", err)
	}
	want := make([]byte, 64)
	copy(want[16:48], data[8:40])
	if !bytes.Equal(got, want) {
		t.Errorf("dst = %v, want %v", got, want)
	}
	if !dst.IndirectInvalidated() {
		t.Error("a copy destination should be marked indirect-invalidated")
	}
	if n := sw.Count(software.OpCopyBufferToBuffer); n != 1 {
		t.Errorf("native copies = %d, want 1", n)
	}
}

func TestCopyBufferToBuffer_Validation(t *testing.T) {
	d, _ := newTestDevice(t)
	other, _ := newTestDevice(t)
	src := mustBuffer(t, d, 64, copySrc)
	dst := mustBuffer(t, d, 64, copyDst)
	both := mustBuffer(t, d, 64, copySrc|copyDst)

	tests := []struct {
		name      string
		src, dst  *Buffer
		srcOffset uint64
		dstOffset uint64
		size      uint64
	}{
		{"nil source", nil, dst, 0, 0, 4},
		{"other device", mustBuffer(t, other, 64, copySrc), dst, 0, 0, 4},
		{"source lacks CopySrc", dst, both, 0, 0, 4},
		{"destination lacks CopyDst", src, src, 0, 0, 4},
		{"unaligned size", src, dst, 0, 0, 6},
		{"unaligned source offset", src, dst, 2, 0, 4},
		{"unaligned destination offset", src, dst, 0, 2, 4},
		{"source out of range", src, dst, 32, 0, 36},
		{"destination out of range", src, dst, 0, 40, 32},
		{"offset overflow", src, dst, ^uint64(0) - 3, 0, 8},
		{"same buffer", both, both, 0, 32, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEncoder(t, d)
			e.CopyBufferToBuffer(tt.src, tt.srcOffset, tt.dst, tt.dstOffset, tt.size)
			if e.State() != EncoderStateInvalid {
				t.Fatalf("State() = %v, want Invalid", e.State())
			}
			if !errors.Is(e.Err(), ErrValidation) {
				t.Errorf("Err() = %v, want ErrValidation", e.Err())
			}
		})
	}
}

func TestCopyBufferToBuffer_NoOps(t *testing.T) {
	tests := []struct {
		name    string
		size    uint64
		destroy bool
	}{
		{"zero size", 0, false},
		{"destroyed destination", 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sw := newTestDevice(t)
			src := mustBuffer(t, d, 64, copySrc)
			dst := mustBuffer(t, d, 64, copyDst)
			if tt.destroy {
				dst.Destroy()
			}
			e := mustEncoder(t, d)
			e.CopyBufferToBuffer(src, 0, dst, 0, tt.size)
			if e.State() != EncoderStateOpen {
				t.Errorf("State() = %v, want Open", e.State())
			}
			if n := len(sw.Trace()); n != 0 {
				t.Errorf("native calls = %v, want none", sw.Trace())
			}
		})
	}
}

func TestClearBuffer_WholeSizeFromOffset(t *testing.T) {
	d, _ := newTestDevice(t)
	b := mustBuffer(t, d, 30, copySrc|copyDst)
	fill := bytes.Repeat([]byte{0xAB}, 28)
	if err := d.WriteBuffer(b, 0, fill); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	sb := b.Native().(*software.Buffer)

	e := mustEncoder(t, d)
	e.ClearBuffer(b, 10, WholeSize)
	finishAndSubmit(t, d, e)

	got := sb.Bytes()
	want := make([]byte, 30)
	copy(want[:10], fill[:10])
	if !bytes.Equal(got, want) {
		t.Errorf("buffer = %v, want %v", got, want)
	}
	if !b.IndirectInvalidated() {
		t.Error("ClearBuffer should mark the buffer indirect-invalidated")
	}
}

func TestClearBuffer_Errors(t *testing.T) {
	t.Run("offset past end", func(t *testing.T) {
		d, _ := newTestDevice(t)
		b := mustBuffer(t, d, 16, copyDst)
		e := mustEncoder(t, d)
		e.ClearBuffer(b, 20, WholeSize)
		if e.State() != EncoderStateOpen {
			t.Errorf("State() = %v, want Open", e.State())
		}
		if d.ErrorCount() != 1 {
			t.Errorf("ErrorCount() = %d, want 1", d.ErrorCount())
		}
	})

	tests := []struct {
		name         string
		usage        bool
		offset, size uint64
	}{
		{"no CopyDst", false, 0, 4},
		{"out of range", true, 8, 12},
		{"overflow", true, 8, ^uint64(0) - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDevice(t)
			usage := copySrc
			if tt.usage {
				usage |= copyDst
			}
			b := mustBuffer(t, d, 16, usage)
			e := mustEncoder(t, d)
			e.ClearBuffer(b, tt.offset, tt.size)
			if !errors.Is(e.Err(), ErrValidation) {
				t.Errorf("Err() = %v, want ErrValidation", e.Err())
			}
		})
	}
}
