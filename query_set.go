package gpuenc

import (
	"fmt"
	"weak"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

// QueryType is the kind of query stored in a QuerySet.
type QueryType uint8

// Query types.
const (
	QueryTypeOcclusion QueryType = iota
	QueryTypeTimestamp
)

// String returns the query type name.
func (q QueryType) String() string {
	switch q {
	case QueryTypeOcclusion:
		return "occlusion"
	case QueryTypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("QueryType(%d)", uint8(q))
	}
}

// querySize is the size in bytes of one query result.
const querySize = 8

// QuerySetDescriptor describes a query set to create.
type QuerySetDescriptor struct {
	Label string
	Type  QueryType
	Count uint32
}

// QuerySet is a fixed number of queries of one type. Results live in a
// native buffer of 8 bytes per query.
type QuerySet struct {
	device  *Device
	label   string
	typ     QueryType
	count   uint32
	results backend.Buffer

	destroyed bool
	encoder   weak.Pointer[CommandEncoder]
}

// CreateQuerySet allocates a query set and its results buffer.
func (d *Device) CreateQuerySet(desc *QuerySetDescriptor) (*QuerySet, error) {
	const op = "CreateQuerySet"
	if desc == nil {
		return nil, invalidf(op, "descriptor is nil")
	}
	if desc.Type != QueryTypeOcclusion && desc.Type != QueryTypeTimestamp {
		return nil, invalidf(op, "unknown query type %v", desc.Type)
	}
	if desc.Count == 0 || desc.Count > d.limits.MaxQuerySetCount {
		return nil, invalidf(op, "count %d must be in [1, %d]", desc.Count, d.limits.MaxQuerySetCount)
	}
	results, err := d.native.NewBuffer(&backend.BufferDescriptor{
		Label: desc.Label + "_results",
		Size:  uint64(desc.Count) * querySize,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageQueryResolve,
	})
	if err != nil {
		return nil, fmt.Errorf("gpuenc: create query set %q: %w", desc.Label, err)
	}
	return &QuerySet{
		device:  d,
		label:   desc.Label,
		typ:     desc.Type,
		count:   desc.Count,
		results: results,
	}, nil
}

// Label returns the query set's debug label.
func (q *QuerySet) Label() string { return q.label }

// Type returns the query type.
func (q *QuerySet) Type() QueryType { return q.typ }

// Count returns the number of queries.
func (q *QuerySet) Count() uint32 { return q.count }

// IsDestroyed reports whether Destroy was called.
func (q *QuerySet) IsDestroyed() bool { return q.destroyed }

// Destroy releases the results buffer. Destroy is idempotent.
func (q *QuerySet) Destroy() {
	if q.destroyed {
		return
	}
	q.destroyed = true
	q.results.Destroy()
	if e := q.encoder.Value(); e != nil {
		e.makeSubmitInvalid("query set " + q.label)
	}
}

func (q *QuerySet) setCommandEncoder(e *CommandEncoder) {
	q.encoder = weak.Make(e)
	if q.destroyed {
		e.makeSubmitInvalid("query set " + q.label)
	}
}

func (q *QuerySet) valid(d *Device) bool {
	return q != nil && q.device == d
}
