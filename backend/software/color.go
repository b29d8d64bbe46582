package software

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuenc/backend"
)

func unorm8(v float64) byte {
	return byte(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// encodeColor returns the texel bytes of c in format f. sRGB formats store
// the value without gamma conversion.
func encodeColor(f gputypes.TextureFormat, c gputypes.Color) ([]byte, error) {
	r, g, b, a := float64(c.R), float64(c.G), float64(c.B), float64(c.A)
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return []byte{unorm8(r)}, nil
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return []byte{unorm8(r), unorm8(g), unorm8(b), unorm8(a)}, nil
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return []byte{unorm8(b), unorm8(g), unorm8(r), unorm8(a)}, nil
	case gputypes.TextureFormatR32Float:
		return float32s(r), nil
	case gputypes.TextureFormatRG32Float:
		return float32s(r, g), nil
	case gputypes.TextureFormatRGBA32Float:
		return float32s(r, g, b, a), nil
	case gputypes.TextureFormatRGBA16Float:
		out := make([]byte, 0, 8)
		for _, v := range []float64{r, g, b, a} {
			out = binary.LittleEndian.AppendUint16(out, float16Bits(float32(v)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: clear of format %v", backend.ErrUnsupported, f)
	}
}

func float32s(vs ...float64) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
	}
	return out
}

// encodeDepth returns the depth-plane bytes of depth in format f.
func encodeDepth(f gputypes.TextureFormat, depth float32) []byte {
	d := clamp01(float64(depth))
	switch f {
	case gputypes.TextureFormatDepth16Unorm:
		return binary.LittleEndian.AppendUint16(nil, uint16(math.Round(d*0xFFFF)))
	case gputypes.TextureFormatDepth32Float:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(d)))
	default:
		// depth24plus variants are stored as 24-bit unorm in 4 bytes.
		return binary.LittleEndian.AppendUint32(nil, uint32(math.Round(d*0xFFFFFF)))
	}
}

// float16Bits converts v to IEEE 754 binary16, flushing subnormals to zero.
func float16Bits(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF

	switch {
	case bits&0x7FFFFFFF == 0:
		return sign
	case bits>>23&0xFF == 0xFF:
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		return sign | 0x7C00
	case exp <= 0:
		return sign
	}
	h := sign | uint16(exp)<<10 | uint16(mant>>13)
	if mant&0x1000 != 0 {
		h++ // carry into the exponent is intended
	}
	return h
}
