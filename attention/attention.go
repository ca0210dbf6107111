// Package attention implements the Attention Step Dispatcher: context
// (prefill) attention over a full prompt and generation (single decode
// step) attention, both with support for the three query/KV head-sharing
// regimes (single KV head, multi-head, grouped-query), RoPE and ALiBi
// position encodings, and an optional fused-kernel path selected when the
// activation dtype is 16-bit and context-FMHA is enabled.
//
// Grounded on the batch/cu_seqlens bookkeeping pattern in the teacher's
// runner/llamarunner/batch.go; the kernel-dispatch shape itself has no
// direct teacher analogue (the teacher calls into llama.cpp/CGo for this),
// so it is new code written in the teacher's idiom — plain functions over
// explicit slices, errors wrapped with %w at the dispatcher boundary.
package attention

import (
	"fmt"
	"math"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/kvcache"
	"github.com/nvidia/batchdecode/quant"
)

// PositionEmbedding selects how query/key vectors are rotated or biased
// before the QK^T product.
type PositionEmbedding int

const (
	PositionNone PositionEmbedding = iota
	PositionRopeGPTJ
	PositionRopeNeox
	PositionALiBi
)

// Config is the fixed, per-model shape the dispatcher needs: head counts,
// dimensions, and which position-encoding and kernel-selection knobs apply.
type Config struct {
	NumHeads       int
	NumKVHeads     int
	HeadDim        int
	Position       PositionEmbedding
	RotaryDim      int
	ContextFMHA    bool
	MultiBlockMode bool
}

// Validate checks the invariants SPEC_FULL.md §4.E requires before any
// dispatch: numHeads%numKVHeads==0, and rotaryDim is set iff a RoPE
// position embedding is configured.
func (c Config) Validate() error {
	if c.NumKVHeads <= 0 || c.NumHeads%c.NumKVHeads != 0 {
		return fmt.Errorf("attention: numHeads (%d) must be a multiple of numKVHeads (%d)", c.NumHeads, c.NumKVHeads)
	}
	isRope := c.Position == PositionRopeGPTJ || c.Position == PositionRopeNeox
	if (c.RotaryDim != 0) != isRope {
		return fmt.Errorf("attention: rotaryDim set (%v) must match a RoPE position embedding (%v)", c.RotaryDim != 0, isRope)
	}
	return nil
}

// headsPerGroup is how many query heads share one KV head: 1 in the
// multi-head regime, NumHeads in the single-KV-head regime, and
// NumHeads/NumKVHeads in the grouped-query regime.
func (c Config) headsPerGroup() int {
	return c.NumHeads / c.NumKVHeads
}

// kvHeadFor returns which KV head query head h reads from.
func (c Config) kvHeadFor(h int) int {
	return h / c.headsPerGroup()
}

// useFMHA reports whether the fused context-attention kernel path should be
// selected for this call: context-FMHA enabled and a 16-bit activation
// dtype, per SPEC_FULL.md §4.E step 4.
func useFMHA(cfg Config, dtype engine.DType) bool {
	return cfg.ContextFMHA && dtype.Is16Bit()
}

// scaleFor returns the standard 1/sqrt(headDim) attention scale.
func scaleFor(headDim int) float32 {
	return float32(1.0 / math.Sqrt(float64(headDim)))
}

// quantScaleOrZero computes a channel scale for row when the cache view is
// quantised, or 0 (meaning "unused") otherwise.
func quantScaleOrZero(q kvcache.Quantisation, row []float32) float32 {
	if q == kvcache.QuantNone {
		return 0
	}
	return quant.ChannelScale(row)
}
