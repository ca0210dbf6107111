package attention

import "math"

// ropeBase is the standard RoPE frequency base (10000.0) used by both the
// GPT-J and NeoX rotation layouts.
const ropeBase = 10000.0

// applyRotary rotates the first rotaryDim elements of vec (a single head's
// query or key vector) in place for the given absolute sequence position.
// Elements beyond rotaryDim, if any, pass through untouched — partial
// rotary embeddings are a supported configuration, not just rotaryDim ==
// headDim.
func applyRotary(vec []float32, rotaryDim, position int, neox bool) {
	if rotaryDim <= 0 {
		return
	}
	if neox {
		applyRotaryNeox(vec, rotaryDim, position)
	} else {
		applyRotaryGPTJ(vec, rotaryDim, position)
	}
}

// applyRotaryGPTJ rotates adjacent pairs (2i, 2i+1), the interleaved layout
// GPT-J and the original RoPE paper use.
func applyRotaryGPTJ(vec []float32, rotaryDim, position int) {
	half := rotaryDim / 2
	for i := 0; i < half; i++ {
		freq := invFreq(i, rotaryDim)
		angle := float64(position) * freq
		sin, cos := math.Sincos(angle)

		x0, x1 := vec[2*i], vec[2*i+1]
		vec[2*i] = x0*float32(cos) - x1*float32(sin)
		vec[2*i+1] = x0*float32(sin) + x1*float32(cos)
	}
}

// applyRotaryNeox rotates the (i, i+half) pair, the split-half layout GPT-
// NeoX and LLaMA use.
func applyRotaryNeox(vec []float32, rotaryDim, position int) {
	half := rotaryDim / 2
	for i := 0; i < half; i++ {
		freq := invFreq(i, rotaryDim)
		angle := float64(position) * freq
		sin, cos := math.Sincos(angle)

		x0, x1 := vec[i], vec[i+half]
		vec[i] = x0*float32(cos) - x1*float32(sin)
		vec[i+half] = x0*float32(sin) + x1*float32(cos)
	}
}

func invFreq(i, rotaryDim int) float64 {
	return 1.0 / math.Pow(ropeBase, float64(2*i)/float64(rotaryDim))
}
