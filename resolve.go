package gpuenc

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/internal/checked"
)

// ResolveQuerySet writes the results of queryCount queries starting at
// firstQuery into dst at dstOffset, 8 bytes per query. dstOffset must be a
// multiple of 256.
//
// Only occlusion results are copied; resolving a timestamp set validates
// but writes nothing.
func (e *CommandEncoder) ResolveQuerySet(qs *QuerySet, firstQuery, queryCount uint32, dst *Buffer, dstOffset uint64) {
	const op = "ResolveQuerySet"
	if !e.prepare(op) {
		return
	}
	if err := e.validateResolveQuerySet(qs, firstQuery, queryCount, dst, dstOffset); err != nil {
		e.makeInvalid(err)
		return
	}
	qs.setCommandEncoder(e)
	dst.setCommandEncoder(e)
	dst.indirectInvalidated = true
	if qs.destroyed || dst.destroyed || queryCount == 0 {
		e.skipped(op, "destroyed resource or zero queries")
		return
	}
	if qs.typ != QueryTypeOcclusion {
		e.skipped(op, "timestamp results are not resolved")
		return
	}
	blit, ok := e.ensureBlit()
	if !ok {
		return
	}
	blit.CopyBufferToBuffer(qs.results, uint64(firstQuery)*querySize, dst.native, dstOffset, uint64(queryCount)*querySize)
}

func (e *CommandEncoder) validateResolveQuerySet(qs *QuerySet, firstQuery, queryCount uint32, dst *Buffer, dstOffset uint64) error {
	const op = "ResolveQuerySet"
	if dstOffset%256 != 0 {
		return invalidf(op, "destination offset %d is not a multiple of 256", dstOffset)
	}
	if !qs.valid(e.device) {
		return invalidf(op, "query set is not valid to use with this encoder")
	}
	if !dst.valid(e.device) {
		return invalidf(op, "destination buffer is not valid to use with this encoder")
	}
	if dst.usage&gputypes.BufferUsageQueryResolve == 0 {
		return invalidf(op, "destination buffer %q lacks QueryResolve usage", dst.label)
	}
	if firstQuery >= qs.count {
		return invalidf(op, "first query %d >= query count %d", firstQuery, qs.count)
	}
	if last, ok := checked.Add(firstQuery, queryCount); !ok || last > qs.count {
		return invalidf(op, "queries [%d, +%d) exceed query count %d", firstQuery, queryCount, qs.count)
	}
	end, ok := checked.New(uint64(queryCount)).Mul(querySize).Add(dstOffset).Get()
	if !ok || end > dst.size {
		return invalidf(op, "%d results at offset %d exceed buffer size %d", queryCount, dstOffset, dst.size)
	}
	return nil
}
