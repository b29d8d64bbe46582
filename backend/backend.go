package backend

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("backend: unsupported operation")

	// ErrEncoderActive is returned when a sub-encoder is requested while
	// another one has not ended.
	ErrEncoderActive = errors.New("backend: sub-encoder still active")

	// ErrCommitted is returned when a command buffer is used after Commit.
	ErrCommitted = errors.New("backend: command buffer already committed")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the in-memory reference backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the backend driving gogpu/wgpu/hal.
	BackendWGPU = "wgpu"
)

// DefaultMax3DCopyRowBlocks is the number of texel blocks per row a single
// native copy may address when one side is a 3D texture.
const DefaultMax3DCopyRowBlocks = 2048

// Caps describes the per-call limits of a backend.
type Caps struct {
	// MaxCopyBytesPerRow caps the row stride of any buffer/texture copy.
	// Zero means unlimited.
	MaxCopyBytesPerRow uint64

	// Max3DCopyRowBlocks caps the row stride, in texel blocks, of copies
	// touching 3D textures. Zero means DefaultMax3DCopyRowBlocks.
	Max3DCopyRowBlocks uint32
}

// Max3DBytesPerRow returns the stride limit for a 3D copy of a format with
// the given block size.
func (c Caps) Max3DBytesPerRow(blockSize uint32) uint64 {
	blocks := c.Max3DCopyRowBlocks
	if blocks == 0 {
		blocks = DefaultMax3DCopyRowBlocks
	}
	return uint64(blocks) * uint64(blockSize)
}

// Device is a native device. It creates resources and command buffers.
type Device interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Caps returns the backend's copy limits.
	Caps() Caps

	// NewBuffer allocates a native buffer.
	NewBuffer(desc *BufferDescriptor) (Buffer, error)

	// NewTexture allocates a native texture.
	NewTexture(desc *TextureDescriptor) (Texture, error)

	// NewCommandBuffer starts recording a native command buffer.
	NewCommandBuffer(label string) (CommandBuffer, error)

	// Close releases all backend resources.
	Close()
}

// BufferWriter is implemented by devices that can upload data into a buffer
// outside of a command buffer.
type BufferWriter interface {
	WriteBuffer(b Buffer, offset uint64, data []byte) error
}

// BufferReader is implemented by devices that can read back buffer contents.
type BufferReader interface {
	ReadBuffer(b Buffer, offset, size uint64) ([]byte, error)
}

// BufferDescriptor describes a native buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a native texture.
type TextureDescriptor struct {
	Label         string
	Dimension     gputypes.TextureDimension
	Size          gputypes.Extent3D
	MipLevelCount uint32
	SampleCount   uint32
	Format        gputypes.TextureFormat
	Usage         gputypes.TextureUsage
}

// Buffer is a native buffer.
type Buffer interface {
	// Length returns the allocation size in bytes.
	Length() uint64

	// Destroy releases the native allocation.
	Destroy()
}

// Texture is a native texture.
type Texture interface {
	// Destroy releases the native allocation.
	Destroy()
}

// CommandBuffer records native commands through at most one active
// sub-encoder at a time.
type CommandBuffer interface {
	// BlitEncoder starts a copy/fill sub-encoder.
	BlitEncoder() (BlitEncoder, error)

	// RenderEncoder starts a render sub-encoder.
	RenderEncoder(desc *RenderPassDescriptor) (RenderEncoder, error)

	// ComputeEncoder starts a compute sub-encoder with serial dispatch.
	ComputeEncoder(desc *ComputePassDescriptor) (ComputeEncoder, error)

	// Commit hands the recorded commands to the device for execution.
	Commit() error
}

// Encoder is the part common to all sub-encoders.
type Encoder interface {
	// EndEncoding finalizes the sub-encoder.
	EndEncoding()
}

// BufferTextureCopy is one native copy between a buffer and a texture.
// Origin.Z selects the array layer or depth slice. BytesPerImage is only
// read when Size.DepthOrArrayLayers > 1. A zero BytesPerRow means the copy
// is a single row.
type BufferTextureCopy struct {
	Buffer        Buffer
	Offset        uint64
	BytesPerRow   uint64
	BytesPerImage uint64

	Texture  Texture
	MipLevel uint32
	Origin   gputypes.Origin3D
	Aspect   gputypes.TextureAspect
	Size     gputypes.Extent3D
}

// TextureCopy is one native copy between two textures.
type TextureCopy struct {
	Source       Texture
	SourceMip    uint32
	SourceOrigin gputypes.Origin3D

	Destination       Texture
	DestinationMip    uint32
	DestinationOrigin gputypes.Origin3D

	Aspect gputypes.TextureAspect
	Size   gputypes.Extent3D
}

// BlitEncoder records copies and fills.
type BlitEncoder interface {
	Encoder

	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64)
	CopyBufferToTexture(c *BufferTextureCopy)
	CopyTextureToBuffer(c *BufferTextureCopy)
	CopyTextureToTexture(c *TextureCopy)

	// FillBuffer sets size bytes starting at offset to value.
	FillBuffer(b Buffer, offset, size uint64, value byte)

	// ClearTexture zeroes one subresource. slice is the array layer, or the
	// depth slice of a 3D texture.
	ClearTexture(t Texture, mipLevel, slice uint32)
}

// LoadAction is the native action performed on an attachment at pass start.
type LoadAction uint8

// Load actions.
const (
	LoadActionDontCare LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

// String returns the load action name.
func (a LoadAction) String() string {
	switch a {
	case LoadActionLoad:
		return "load"
	case LoadActionClear:
		return "clear"
	default:
		return "dontcare"
	}
}

// StoreAction is the native action performed on an attachment at pass end.
type StoreAction uint8

// Store actions.
const (
	StoreActionDontCare StoreAction = iota
	StoreActionStore
	StoreActionMultisampleResolve
	StoreActionStoreAndMultisampleResolve
)

// String returns the store action name.
func (a StoreAction) String() string {
	switch a {
	case StoreActionStore:
		return "store"
	case StoreActionMultisampleResolve:
		return "resolve"
	case StoreActionStoreAndMultisampleResolve:
		return "store+resolve"
	default:
		return "dontcare"
	}
}

// Resolves reports whether the action writes the resolve target.
func (a StoreAction) Resolves() bool {
	return a == StoreActionMultisampleResolve || a == StoreActionStoreAndMultisampleResolve
}

// ColorAttachment is a native colour attachment. Slice is the array layer
// or depth slice rendered to.
type ColorAttachment struct {
	Texture    Texture
	MipLevel   uint32
	Slice      uint32
	Load       LoadAction
	Store      StoreAction
	ClearValue gputypes.Color

	ResolveTexture  Texture
	ResolveMipLevel uint32
	ResolveSlice    uint32
}

// DepthStencilAttachment is a native depth-stencil attachment. Actions of an
// absent aspect are DontCare.
type DepthStencilAttachment struct {
	Texture  Texture
	MipLevel uint32
	Slice    uint32

	DepthLoad  LoadAction
	DepthStore StoreAction
	ClearDepth float32

	StencilLoad  LoadAction
	StencilStore StoreAction
	ClearStencil uint32
}

// TimestampWrites selects where a pass writes its begin/end timestamps.
// An index of ^uint32(0) skips that write.
type TimestampWrites struct {
	Buffer     Buffer
	BeginIndex uint32
	EndIndex   uint32
}

// TimestampSkip marks an unused timestamp write index.
const TimestampSkip = ^uint32(0)

// RenderPassDescriptor is a fully validated native render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	DepthStencil     *DepthStencilAttachment

	// VisibilityBuffer receives occlusion query results, 8 bytes per query.
	VisibilityBuffer Buffer

	Width, Height uint32
	SampleCount   uint32

	Timestamps *TimestampWrites
}

// ComputePassDescriptor is a fully validated native compute pass.
type ComputePassDescriptor struct {
	Label      string
	Timestamps *TimestampWrites
}

// RenderEncoder records draws.
type RenderEncoder interface {
	Encoder

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// RenderStateEncoder is implemented by render encoders that accept dynamic
// state.
type RenderStateEncoder interface {
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)
	SetBlendColor(c gputypes.Color)
	SetStencilReference(ref uint32)
}

// VisibilityEncoder is implemented by render encoders that support
// occlusion queries. offset is a byte offset into the pass's visibility
// buffer.
type VisibilityEncoder interface {
	BeginVisibilityQuery(offset uint64)
	EndVisibilityQuery()
}

// ComputeEncoder records dispatches.
type ComputeEncoder interface {
	Encoder

	Dispatch(x, y, z uint32)
}
