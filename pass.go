package gpuenc

import (
	"github.com/gogpu/gpuenc/backend"
)

// PassTimestampWrites selects the timestamp queries a pass writes when it
// begins and ends. A nil index skips that write; at least one must be set.
type PassTimestampWrites struct {
	QuerySet                  *QuerySet
	BeginningOfPassWriteIndex *uint32
	EndOfPassWriteIndex       *uint32
}

// passCore is the state shared by render and compute pass encoders.
type passCore struct {
	encoder *CommandEncoder
	kind    string
	label   string

	// reason is the first validation failure; a pass with a reason records
	// nothing and invalidates its encoder on End.
	reason error
	ended  bool
}

// Err returns the first validation failure recorded on the pass, or nil.
func (p *passCore) Err() error { return p.reason }

// Label returns the pass's debug label.
func (p *passCore) Label() string { return p.label }

// recording reports whether op may reach the native encoder.
func (p *passCore) recording(op string) bool {
	if p.ended {
		p.encoder.device.reportError(invalidf(op, "%s %q already ended", p.kind, p.label))
		return false
	}
	return p.reason == nil && p.encoder.activePass == p
}

func (p *passCore) fail(err error) {
	if p.reason == nil {
		p.reason = err
		Logger().Debug("gpuenc: pass invalidated", "pass", p.label, "reason", err)
	}
}

// end marks the pass ended. A second End is a device error.
func (p *passCore) end() bool {
	if p.ended {
		p.encoder.device.reportError(invalidf("End", "%s %q already ended", p.kind, p.label))
		return false
	}
	p.ended = true
	return true
}

// invalidPass returns the core of a pass that failed to begin. It locks an
// open encoder so that the failure surfaces when the pass ends.
func (e *CommandEncoder) invalidPass(kind, label string, reason error) passCore {
	Logger().Debug("gpuenc: invalid pass", "encoder", e.label, "kind", kind, "reason", reason)
	return passCore{encoder: e, kind: kind, label: label, reason: reason}
}

func (e *CommandEncoder) validateTimestampWrites(op string, tw *PassTimestampWrites) error {
	if tw == nil {
		return nil
	}
	qs := tw.QuerySet
	if !qs.valid(e.device) {
		return invalidf(op, "timestamp query set is not valid to use with this encoder")
	}
	if qs.typ != QueryTypeTimestamp {
		return invalidf(op, "query set %q is a %v set, not timestamp", qs.label, qs.typ)
	}
	begin, end := tw.BeginningOfPassWriteIndex, tw.EndOfPassWriteIndex
	if begin == nil && end == nil {
		return invalidf(op, "timestamp writes select no query")
	}
	if begin != nil && *begin >= qs.count {
		return invalidf(op, "beginning-of-pass index %d >= query count %d", *begin, qs.count)
	}
	if end != nil && *end >= qs.count {
		return invalidf(op, "end-of-pass index %d >= query count %d", *end, qs.count)
	}
	if begin != nil && end != nil && *begin == *end {
		return invalidf(op, "beginning and end of pass write the same query %d", *begin)
	}
	return nil
}

func nativeTimestamps(tw *PassTimestampWrites) *backend.TimestampWrites {
	if tw == nil {
		return nil
	}
	ts := &backend.TimestampWrites{
		Buffer:     tw.QuerySet.results,
		BeginIndex: backend.TimestampSkip,
		EndIndex:   backend.TimestampSkip,
	}
	if tw.BeginningOfPassWriteIndex != nil {
		ts.BeginIndex = *tw.BeginningOfPassWriteIndex
	}
	if tw.EndOfPassWriteIndex != nil {
		ts.EndIndex = *tw.EndOfPassWriteIndex
	}
	return ts
}
