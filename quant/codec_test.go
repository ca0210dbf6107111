package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFP16RoundTrip(t *testing.T) {
	var codec FP16
	buf := make([]byte, codec.Size())

	for _, v := range []float32{0, 1, -1, 3.5, -0.25} {
		codec.Encode(buf, v, 0)
		assert.InDelta(t, v, codec.Decode(buf, 0), 1e-3)
	}
}

func TestBF16RoundTripIsLossyButOrdered(t *testing.T) {
	var codec BF16
	buf := make([]byte, codec.Size())

	codec.Encode(buf, 1.0, 0)
	got := codec.Decode(buf, 0)
	assert.InDelta(t, 1.0, got, 1e-2)

	codec.Encode(buf, 2.0, 0)
	assert.Less(t, got, codec.Decode(buf, 0))

	codec.Encode(buf, 1.001, 0)
	assert.NotEqual(t, float32(1.001), codec.Decode(buf, 0))
}

func TestInt8RoundTripWithinQuantisationError(t *testing.T) {
	var codec Int8
	buf := make([]byte, codec.Size())
	scale := ChannelScale([]float32{1, -2, 3})

	codec.Encode(buf, 3, scale)
	got := codec.Decode(buf, scale)
	assert.InDelta(t, 3.0, float64(got), float64(scale)+1e-6)
}

func TestInt8EncodeClampsToRange(t *testing.T) {
	var codec Int8
	buf := make([]byte, 1)
	codec.Encode(buf, 1000, 1)
	assert.Equal(t, int8(127), int8(buf[0]))

	codec.Encode(buf, -1000, 1)
	assert.Equal(t, int8(-128), int8(buf[0]))
}

func TestFP8RoundTripWithinQuantisationError(t *testing.T) {
	var codec FP8
	buf := make([]byte, codec.Size())
	scale := ChannelScale([]float32{100, -50})

	codec.Encode(buf, 50, scale)
	got := codec.Decode(buf, scale)
	assert.InDelta(t, 50.0, float64(got), 5.0)
}

func TestChannelScaleZeroForAllZeroInput(t *testing.T) {
	assert.Equal(t, float32(0), ChannelScale([]float32{0, 0, 0}))
}

func TestChannelScaleSymmetricAroundMaxMagnitude(t *testing.T) {
	scale := ChannelScale([]float32{-10, 3, 7})
	assert.InDelta(t, 10.0/127.0, float64(scale), 1e-6)
}
