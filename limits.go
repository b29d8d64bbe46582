package gpuenc

import "github.com/gogpu/gputypes"

// Limits are the device limits the encoder validates against.
type Limits struct {
	MaxTextureDimension1D uint32
	MaxTextureDimension2D uint32
	MaxTextureDimension3D uint32
	MaxTextureArrayLayers uint32
	MaxBufferSize         uint64

	// MaxColorAttachments bounds the colour attachments of one render pass.
	MaxColorAttachments uint32

	// MaxColorAttachmentBytesPerSample bounds the summed, aligned render
	// target byte cost of all colour attachments of one pass.
	MaxColorAttachmentBytesPerSample uint32

	// MaxComputeWorkgroupsPerDimension bounds each DispatchWorkgroups argument.
	MaxComputeWorkgroupsPerDimension uint32

	// MaxQuerySetCount bounds the number of queries in one query set.
	MaxQuerySetCount uint32
}

// DefaultLimits returns the baseline WebGPU limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension1D:            8192,
		MaxTextureDimension2D:            8192,
		MaxTextureDimension3D:            2048,
		MaxTextureArrayLayers:            256,
		MaxBufferSize:                    256 << 20,
		MaxColorAttachments:              8,
		MaxColorAttachmentBytesPerSample: 32,
		MaxComputeWorkgroupsPerDimension: 65535,
		MaxQuerySetCount:                 4096,
	}
}

// LimitsFrom returns DefaultLimits overridden by the texture and buffer
// sizes of an adapter's gputypes.Limits.
func LimitsFrom(l gputypes.Limits) Limits {
	lim := DefaultLimits()
	if l.MaxTextureDimension2D != 0 {
		lim.MaxTextureDimension2D = l.MaxTextureDimension2D
	}
	if l.MaxBufferSize != 0 {
		lim.MaxBufferSize = l.MaxBufferSize
	}
	return lim
}
