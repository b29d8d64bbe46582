// Command gpuencdemo uploads a gradient into a texture, reads it back
// through a backend with a capped copy stride and saves the result.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gputypes"
	"golang.org/x/term"

	"github.com/gogpu/gpuenc"
	"github.com/gogpu/gpuenc/backend/software"
)

func main() {
	var (
		width   = flag.Int("width", 4096, "texture width")
		height  = flag.Int("height", 64, "texture height")
		maxRow  = flag.Uint64("max-bytes-per-row", 8192, "backend copy stride cap (0 = unlimited)")
		preview = flag.Int("preview", 512, "width of the saved image (0 = full size)")
		output  = flag.String("output", "readback.png", "output file")
		verbose = flag.Bool("v", false, "log encoder decisions")
	)
	flag.Parse()

	if *verbose {
		gpuenc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	sw := software.New(software.WithMaxCopyBytesPerRow(*maxRow))
	dev, err := gpuenc.NewDevice(sw,
		gpuenc.WithLabel("gpuencdemo"),
		gpuenc.WithErrorHandler(func(err error) { log.Printf("device error: %v", err) }))
	if err != nil {
		log.Fatalf("Failed to create device: %v", err)
	}
	defer dev.Close()

	w, h := uint32(*width), uint32(*height)
	bytesPerRow := (w*4 + 255) &^ 255
	upload := gradient(w, h, bytesPerRow)

	readback, err := roundTrip(dev, w, h, bytesPerRow, upload)
	if err != nil {
		log.Fatalf("Round trip failed: %v", err)
	}
	if !bytes.Equal(readback, upload) {
		log.Fatalf("Readback differs from the uploaded data")
	}

	img := toImage(readback, int(w), int(h), int(bytesPerRow))
	if *preview > 0 && *preview < int(w) {
		img = imaging.Resize(img, *preview, 0, imaging.Lanczos)
	}
	if err := imaging.Save(img, *output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		printTrace(sw)
	}
	log.Printf("Readback saved to %s (%dx%d, %d native readback copies)\n",
		*output, w, h, sw.Count(software.OpCopyTextureToBuffer))
}

// roundTrip copies data into a w*h RGBA8 texture and back out again.
func roundTrip(dev *gpuenc.Device, w, h, bytesPerRow uint32, data []byte) ([]byte, error) {
	size := uint64(len(data))
	src, err := dev.CreateBuffer(&gpuenc.BufferDescriptor{
		Label: "upload", Size: size,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	dst, err := dev.CreateBuffer(&gpuenc.BufferDescriptor{
		Label: "readback", Size: size,
		Usage: gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	tex, err := dev.CreateTexture(&gpuenc.TextureDescriptor{
		Label:     "gradient",
		Dimension: gputypes.TextureDimension2D,
		Size:      gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Usage:     gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := dev.WriteBuffer(src, 0, data); err != nil {
		return nil, err
	}

	enc, err := dev.CreateCommandEncoder(&gpuenc.CommandEncoderDescriptor{Label: "roundtrip"})
	if err != nil {
		return nil, err
	}
	layout := gpuenc.TextureDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: gpuenc.CopyStrideUndefined}
	extent := gputypes.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	enc.CopyBufferToTexture(&gpuenc.BufferCopyView{Buffer: src, Layout: layout}, &gpuenc.TextureCopyView{Texture: tex}, extent)
	enc.CopyTextureToBuffer(&gpuenc.TextureCopyView{Texture: tex}, &gpuenc.BufferCopyView{Buffer: dst, Layout: layout}, extent)
	cb, err := enc.Finish()
	if err != nil {
		return nil, err
	}
	if err := dev.Submit(cb); err != nil {
		return nil, err
	}
	return dev.ReadBuffer(dst, 0, size)
}

// gradient returns rows of RGBA8 texels padded to bytesPerRow.
func gradient(w, h, bytesPerRow uint32) []byte {
	data := make([]byte, int(bytesPerRow)*int(h))
	for y := range h {
		row := data[int(y)*int(bytesPerRow):]
		for x := range w {
			i := x * 4
			row[i+0] = byte(x * 255 / max(w-1, 1))
			row[i+1] = byte(y * 255 / max(h-1, 1))
			row[i+2] = byte((x ^ y) & 0xFF)
			row[i+3] = 0xFF
		}
	}
	return data
}

func toImage(data []byte, w, h, stride int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		copy(img.Pix[y*img.Stride:y*img.Stride+w*4], data[y*stride:])
	}
	return img
}

func printTrace(sw *software.Device) {
	counts := make(map[software.Op]int)
	var order []software.Op
	for _, c := range sw.Trace() {
		if counts[c.Op] == 0 {
			order = append(order, c.Op)
		}
		counts[c.Op]++
	}
	for _, op := range order {
		fmt.Printf("%-22s %d\n", op, counts[op])
	}
}
