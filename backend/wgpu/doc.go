// Package wgpu adapts the native backend contract to gogpu/wgpu/hal.
//
// The adapter does not create an instance or adapter on its own; the caller
// passes in an opened hal.Device and hal.Queue, typically obtained from a
// gogpu application or a provider exposing HalDevice/HalQueue:
//
//	dev := wgpu.New(halDevice, halQueue)
//	enc, err := gpuenc.NewDevice(dev)
//
// Register installs such a device in the backend registry under "wgpu".
//
// # Translation
//
// hal has no separate blit encoder, so copies are recorded directly on the
// hal command encoder. Texture-to-texture copies, buffer fills and texture
// clears go through a staging buffer owned by the command buffer and
// released on Commit. Render attachments are limited to mip level 0 and
// slice 0 of their texture; other subresources report
// backend.ErrUnsupported. Dynamic render state and occlusion queries are not
// forwarded.
package wgpu
