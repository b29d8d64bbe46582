// Package gpuenc validates WebGPU-style commands and records them into a
// native backend's command buffers.
//
// # Overview
//
// gpuenc sits between an application and a native GPU backend. Commands
// (buffer and texture copies, buffer clears, render and compute passes,
// query resolves) are checked against the WebGPU validation rules before
// any native call is made, and are then translated into calls on the
// backend's blit, render and compute sub-encoders.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gpuenc"
//	    _ "github.com/gogpu/gpuenc/backend/software"
//	)
//
//	dev, _ := gpuenc.OpenDevice("")
//	enc, _ := dev.CreateCommandEncoder(nil)
//	enc.CopyBufferToBuffer(src, 0, dst, 0, 256)
//	cb, err := enc.Finish()
//	if err != nil {
//	    // the first validation failure
//	}
//	_ = dev.Submit(cb)
//
// # Errors
//
// A failing command does not return an error. It makes the encoder invalid,
// and the first failure is returned by Finish and Err. Commands issued to
// an ended encoder are reported to the device's ErrorHandler instead.
//
// Commands whose arithmetic overflows, commands on destroyed resources and
// zero-sized copies are dropped without native calls and leave the encoder
// unchanged. They are logged at debug level (see SetLogger).
//
// # Lazy clearing
//
// Texture subresources start uncleared. The first copy or render pass that
// would observe one zeroes it, unless it overwrites the whole subresource.
//
// # Backends
//
// Backends implement the interfaces in package backend and register
// themselves by name. backend/software executes commands in memory and
// records a call trace; backend/wgpu drives gogpu/wgpu's HAL.
package gpuenc
