// Package quant implements the byte-level codecs behind the KV cache's
// quantisation axis (package kvcache) and any other component that needs to
// round-trip a reduced-precision numeric representation. Two of the four
// codecs here wrap ecosystem libraries rather than hand-rolled bit twiddling:
// fp16 through x448/float16, bf16 through d4l3k/go-bfloat16. int8 and fp8
// have no equivalent library in this corpus, so they're a direct linear
// quantisation with an explicit per-channel scale.
package quant

import (
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Codec converts between a float32 working value and a fixed-width stored
// representation. Encode writes the stored bytes into dst using a
// caller-supplied scale (ignored by codecs that need none); Decode is its
// inverse.
type Codec interface {
	// Size is the number of bytes one stored element occupies.
	Size() int
	// Encode writes v's stored representation into dst (len(dst) == Size()),
	// using scale for codecs whose representation is scale-relative.
	Encode(dst []byte, v float32, scale float32)
	// Decode reads a stored element from src (len(src) == Size()).
	Decode(src []byte, scale float32) float32
}

// FP16 wraps x448/float16's IEEE 754 half-precision conversion. No scale is
// needed; the exponent field carries dynamic range directly.
type FP16 struct{}

func (FP16) Size() int { return 2 }

func (FP16) Encode(dst []byte, v float32, _ float32) {
	bits := float16.Fromfloat32(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
}

func (FP16) Decode(src []byte, _ float32) float32 {
	bits := float16.Float16(uint16(src[0]) | uint16(src[1])<<8)
	return bits.Float32()
}

// BF16 wraps d4l3k/go-bfloat16's truncated-mantissa bfloat16 conversion.
type BF16 struct{}

func (BF16) Size() int { return 2 }

func (BF16) Encode(dst []byte, v float32, _ float32) {
	enc := bfloat16.EncodeFloat32(v)
	copy(dst, enc)
}

func (BF16) Decode(src []byte, _ float32) float32 {
	return bfloat16.DecodeFloat32(src)
}

// Int8 is a per-channel symmetric linear quantisation: stored = round(v /
// scale), clamped to the signed byte range. scale is computed by the caller
// (typically max(|channel|)/127) and stored alongside the bytes.
type Int8 struct{}

func (Int8) Size() int { return 1 }

func (Int8) Encode(dst []byte, v float32, scale float32) {
	if scale == 0 {
		dst[0] = 0
		return
	}
	q := math.Round(float64(v / scale))
	q = math.Max(-128, math.Min(127, q))
	dst[0] = byte(int8(q))
}

func (Int8) Decode(src []byte, scale float32) float32 {
	return float32(int8(src[0])) * scale
}

// FP8 models an E4M3-style 8-bit float as a scaled, clamped single byte;
// the bit layout itself is not load-bearing for this rewrite, only the
// round-trip through a shared scale, matching how the KV cache quantisation
// axis treats FP8 and INT8 identically except for the codec used.
type FP8 struct{}

func (FP8) Size() int { return 1 }

const fp8Max = 448.0 // max representable magnitude of E4M3

func (FP8) Encode(dst []byte, v float32, scale float32) {
	if scale == 0 {
		dst[0] = 0
		return
	}
	scaled := v / scale
	scaled = float32(math.Max(-fp8Max, math.Min(fp8Max, float64(scaled))))
	dst[0] = byte(uint8(int32(scaled/fp8Max*127) + 128))
}

func (FP8) Decode(src []byte, scale float32) float32 {
	raw := int32(src[0]) - 128
	return (float32(raw) / 127 * fp8Max) * scale
}

// ChannelScale returns a symmetric scale for a slice of float32 values,
// i.e. max(|v|)/127, the convention Int8.Encode and FP8.Encode expect.
func ChannelScale(values []float32) float32 {
	var max float32
	for _, v := range values {
		if a := float32(math.Abs(float64(v))); a > max {
			max = a
		}
	}
	if max == 0 {
		return 0
	}
	return max / 127
}
