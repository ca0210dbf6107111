package attention

import (
	"fmt"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/kvcache"
)

// ContextInput is one sequence's full prompt, already projected into
// per-timestep Q/K/V rows. Q is [seqLen, NumHeads*HeadDim]; K and V are
// [seqLen, NumKVHeads*HeadDim] — the three head-sharing regimes
// (single-KV-head, multi-head, grouped-query) are all expressed by how
// NumKVHeads relates to NumHeads in cfg, not by a different input shape.
type ContextInput struct {
	Seq      int
	Q, K, V  []float32
	SeqLen   int
	StartPos int // absolute position of timestep 0 of this call (prefix-cache resume)
}

// ContextAttention runs prefill attention for one sequence: applies
// position encoding to Q/K, appends K/V to the cache one timestep at a
// time, then computes the causally-masked attention output either via the
// fused kernel path (useFMHA) or, otherwise, per-head batched GEMMs against
// engine.Matmul — steps 1-8 of SPEC_FULL.md §4.E's context-attention
// sequence. Returns the attention output, [seqLen, NumHeads*HeadDim].
func ContextAttention(cfg Config, dtype engine.DType, mm engine.Matmul, cache *kvcache.Cache, in ContextInput) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(in.Q) != in.SeqLen*cfg.NumHeads*cfg.HeadDim {
		return nil, fmt.Errorf("attention: Q has length %d, want %d", len(in.Q), in.SeqLen*cfg.NumHeads*cfg.HeadDim)
	}
	if len(in.K) != in.SeqLen*cfg.NumKVHeads*cfg.HeadDim || len(in.V) != len(in.K) {
		return nil, fmt.Errorf("attention: K/V have length %d, want %d", len(in.K), in.SeqLen*cfg.NumKVHeads*cfg.HeadDim)
	}

	neox := cfg.Position == PositionRopeNeox
	rotary := cfg.Position == PositionRopeGPTJ || cfg.Position == PositionRopeNeox

	for t := 0; t < in.SeqLen; t++ {
		pos := in.StartPos + t

		if rotary {
			for h := 0; h < cfg.NumHeads; h++ {
				applyRotary(in.Q[t*cfg.NumHeads*cfg.HeadDim+h*cfg.HeadDim:t*cfg.NumHeads*cfg.HeadDim+(h+1)*cfg.HeadDim], cfg.RotaryDim, pos, neox)
			}
			for h := 0; h < cfg.NumKVHeads; h++ {
				applyRotary(in.K[t*cfg.NumKVHeads*cfg.HeadDim+h*cfg.HeadDim:t*cfg.NumKVHeads*cfg.HeadDim+(h+1)*cfg.HeadDim], cfg.RotaryDim, pos, neox)
			}
		}

		kRow := in.K[t*cfg.NumKVHeads*cfg.HeadDim : (t+1)*cfg.NumKVHeads*cfg.HeadDim]
		vRow := in.V[t*cfg.NumKVHeads*cfg.HeadDim : (t+1)*cfg.NumKVHeads*cfg.HeadDim]
		if err := cache.WriteRow(in.Seq, 0, pos, kRow); err != nil {
			return nil, fmt.Errorf("attention: writing key row: %w", err)
		}
		if err := cache.WriteRow(in.Seq, 1, pos, vRow); err != nil {
			return nil, fmt.Errorf("attention: writing value row: %w", err)
		}
	}

	if useFMHA(cfg, dtype) {
		return contextAttentionFused(cfg, in)
	}
	return contextAttentionReference(cfg, mm, in)
}

// contextAttentionFused stands in for the vendor fused-FMHA kernel: a
// distinct code path selected under the same conditions a real fused
// kernel would be, but computed with the same reference math, since there
// is no device kernel to bind in this rewrite.
func contextAttentionFused(cfg Config, in ContextInput) ([]float32, error) {
	return contextAttentionCompute(cfg, engine.ReferenceMatmul{}, in)
}

func contextAttentionReference(cfg Config, mm engine.Matmul, in ContextInput) ([]float32, error) {
	return contextAttentionCompute(cfg, mm, in)
}

func contextAttentionCompute(cfg Config, mm engine.Matmul, in ContextInput) ([]float32, error) {
	seqLen := in.SeqLen
	scale := scaleFor(cfg.HeadDim)
	useAlibi := cfg.Position == PositionALiBi
	var slopes []float32
	if useAlibi {
		slopes = alibiSlopes(cfg.NumHeads)
	}

	out := make([]float32, seqLen*cfg.NumHeads*cfg.HeadDim)

	for h := 0; h < cfg.NumHeads; h++ {
		kv := cfg.kvHeadFor(h)

		Q := extractHead(in.Q, h, seqLen, cfg.HeadDim, cfg.NumHeads)
		K := extractHead(in.K, kv, seqLen, cfg.HeadDim, cfg.NumKVHeads)
		V := extractHead(in.V, kv, seqLen, cfg.HeadDim, cfg.NumKVHeads)
		KT := transpose(K, seqLen, cfg.HeadDim)

		scores, err := mm.BatchedGEMM(Q, KT, engine.Layout{Rows: seqLen, Cols: cfg.HeadDim}, engine.Layout{Rows: cfg.HeadDim, Cols: seqLen, Transposed: true})
		if err != nil {
			return nil, fmt.Errorf("attention: QK^T for head %d: %w", h, err)
		}

		var slope float32
		if useAlibi {
			slope = slopes[h]
		}
		softmaxRowsCausal(scores, seqLen, seqLen, scale, slope, 0, useAlibi)

		headOut, err := mm.BatchedGEMM(scores, V, engine.Layout{Rows: seqLen, Cols: seqLen}, engine.Layout{Rows: seqLen, Cols: cfg.HeadDim})
		if err != nil {
			return nil, fmt.Errorf("attention: attn@V for head %d: %w", h, err)
		}

		scatterHead(out, h, seqLen, cfg.HeadDim, cfg.NumHeads, headOut)
	}

	return out, nil
}
