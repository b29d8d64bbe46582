package gpuenc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/gpuenc/backend/software"
)

func TestComputePass_Dispatch(t *testing.T) {
	tests := []struct {
		name       string
		x, y, z    uint32
		wantCalls  int
		wantFailed bool
	}{
		{"grid", 2, 3, 4, 1, false},
		{"at the limit", 65535, 1, 1, 1, false},
		{"zero x", 0, 3, 4, 0, false},
		{"zero z", 2, 3, 0, 0, false},
		{"over the limit", 1, 65536, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, sw := newTestDevice(t)
			e := mustEncoder(t, d)
			p := e.BeginComputePass(&ComputePassDescriptor{Label: "cs"})
			p.DispatchWorkgroups(tt.x, tt.y, tt.z)
			if n := sw.Count(software.OpDispatch); n != tt.wantCalls {
				t.Errorf("native dispatches = %d, want %d", n, tt.wantCalls)
			}
			if gotFailed := p.Err() != nil; gotFailed != tt.wantFailed {
				t.Errorf("pass Err() = %v, wantFailed %v", p.Err(), tt.wantFailed)
			}
			p.End()
			if tt.wantFailed {
				if e.State() != EncoderStateInvalid {
					t.Errorf("State() = %v, want Invalid", e.State())
				}
				return
			}
			finishAndSubmit(t, d, e)
		})
	}
}

func TestComputePass_DeviceLimit(t *testing.T) {
	lim := DefaultLimits()
	lim.MaxComputeWorkgroupsPerDimension = 8
	d, err := NewDevice(software.New(), WithLimits(lim))
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	defer d.Close()

	e := mustEncoder(t, d)
	p := e.BeginComputePass(nil)
	p.DispatchWorkgroups(8, 8, 8)
	p.DispatchWorkgroups(9, 1, 1)
	p.DispatchWorkgroups(1, 1, 1)
	p.End()
	if !errors.Is(e.Err(), ErrValidation) {
		t.Errorf("Err() = %v, want ErrValidation", e.Err())
	}
}

func TestComputePass_FinalizesBlit(t *testing.T) {
	d, sw := newTestDevice(t)
	b := mustBuffer(t, d, 16, copyDst)
	e := mustEncoder(t, d)
	e.ClearBuffer(b, 0, WholeSize)
	p := e.BeginComputePass(nil)
	p.DispatchWorkgroups(1, 1, 1)
	p.End()
	finishAndSubmit(t, d, e)

	var ops []software.Op
	for _, c := range sw.Trace() {
		ops = append(ops, c.Op)
	}
	want := []software.Op{
		software.OpBeginBlit, software.OpFillBuffer, software.OpEndEncoding,
		software.OpBeginCompute, software.OpDispatch, software.OpEndEncoding,
		software.OpCommit,
	}
	if len(ops) != len(want) {
		t.Fatalf("trace = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("trace[%d] = %v, want %v", i, ops[i], want[i])
		}
	}
}

func TestComputePass_Timestamps(t *testing.T) {
	d, _ := newTestDevice(t)
	qs := querySet(t, d, QueryTypeTimestamp, 4)
	e := mustEncoder(t, d)
	p := e.BeginComputePass(&ComputePassDescriptor{TimestampWrites: &PassTimestampWrites{
		QuerySet:                  qs,
		BeginningOfPassWriteIndex: ptr[uint32](1),
		EndOfPassWriteIndex:       ptr[uint32](3),
	}})
	p.DispatchWorkgroups(1, 1, 1)
	p.End()
	finishAndSubmit(t, d, e)

	results := qs.results.(*software.Buffer).Bytes()
	begin := binary.LittleEndian.Uint64(results[8:])
	end := binary.LittleEndian.Uint64(results[24:])
	if begin == 0 || end <= begin {
		t.Errorf("timestamps = %d, %d, want increasing non-zero ticks", begin, end)
	}
	if skipped := binary.LittleEndian.Uint64(results[0:]); skipped != 0 {
		t.Errorf("unselected query 0 = %d, want 0", skipped)
	}
}

func TestBeginComputePass_Invalid(t *testing.T) {
	d, _ := newTestDevice(t)
	other, _ := newTestDevice(t)
	tests := []struct {
		name string
		desc func() *ComputePassDescriptor
	}{
		{"chained extension", func() *ComputePassDescriptor {
			return &ComputePassDescriptor{NextInChain: &RenderPassMaxDrawCount{MaxDrawCount: 1}}
		}},
		{"timestamps select nothing", func() *ComputePassDescriptor {
			return &ComputePassDescriptor{TimestampWrites: &PassTimestampWrites{QuerySet: querySet(t, d, QueryTypeTimestamp, 2)}}
		}},
		{"timestamp query set of another device", func() *ComputePassDescriptor {
			return &ComputePassDescriptor{TimestampWrites: &PassTimestampWrites{
				QuerySet: querySet(t, other, QueryTypeTimestamp, 2), BeginningOfPassWriteIndex: ptr[uint32](0),
			}}
		}},
		{"nil timestamp query set", func() *ComputePassDescriptor {
			return &ComputePassDescriptor{TimestampWrites: &PassTimestampWrites{BeginningOfPassWriteIndex: ptr[uint32](0)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEncoder(t, d)
			p := e.BeginComputePass(tt.desc())
			if !errors.Is(p.Err(), ErrValidation) {
				t.Fatalf("pass Err() = %v, want ErrValidation", p.Err())
			}
			if e.State() != EncoderStateLocked {
				t.Errorf("State() = %v, want Locked until End", e.State())
			}
			p.End()
			if e.State() != EncoderStateInvalid {
				t.Errorf("State() = %v, want Invalid after End", e.State())
			}
		})
	}
}

func TestComputePass_DestroyedTimestamps(t *testing.T) {
	d, sw := newTestDevice(t)
	qs := querySet(t, d, QueryTypeTimestamp, 2)
	qs.Destroy()
	e := mustEncoder(t, d)
	p := e.BeginComputePass(&ComputePassDescriptor{TimestampWrites: &PassTimestampWrites{
		QuerySet: qs, EndOfPassWriteIndex: ptr[uint32](0),
	}})
	p.DispatchWorkgroups(4, 1, 1)
	p.End()
	if n := len(sw.Trace()); n != 0 {
		t.Errorf("native calls = %v, want none", sw.Trace())
	}
	cb, err := e.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := d.Submit(cb); !errors.Is(err, ErrSubmitInvalid) {
		t.Errorf("Submit() error = %v, want ErrSubmitInvalid", err)
	}
}

func TestComputePass_AfterEnd(t *testing.T) {
	d, sw := newTestDevice(t)
	e := mustEncoder(t, d)
	p := e.BeginComputePass(nil)
	p.End()
	p.DispatchWorkgroups(1, 1, 1)
	p.End()
	if d.ErrorCount() != 2 {
		t.Errorf("ErrorCount() = %d, want 2", d.ErrorCount())
	}
	if n := sw.Count(software.OpDispatch); n != 0 {
		t.Errorf("dispatches = %d, want 0", n)
	}
	if e.State() != EncoderStateOpen {
		t.Errorf("State() = %v, want Open", e.State())
	}
}
