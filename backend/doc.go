// Package backend defines the native command-recording contract that the
// gpuenc encoder translates into.
//
// A native backend provides a Device that allocates buffers and textures
// and records command buffers. A command buffer exposes one sub-encoder at
// a time: a BlitEncoder for copies and fills, a RenderEncoder for a render
// pass, or a ComputeEncoder for a compute pass. Every descriptor handed to a
// backend has already been validated, so backends do not re-check API rules.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend registers itself on import:
//
//	import _ "github.com/gogpu/gpuenc/backend/software"
//
// # Backend Selection
//
// Use Default() to create a device from the best available backend, or
// Get() to request a specific backend by name:
//
//	dev, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Get("software")
//
// # Optional Capabilities
//
// Devices may implement BufferWriter and BufferReader for uploads and
// readback. Render encoders may implement RenderStateEncoder and
// VisibilityEncoder; callers test for them with a type assertion.
//
// # Available Backends
//
//   - "software": in-memory reference backend (always available)
//   - "wgpu": adapter over gogpu/wgpu/hal, registered by wgpu.Register
package backend
