package attention

import (
	"fmt"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/kvcache"
)

// GenerationInput is one sequence's single new decode-step query, plus
// bookkeeping the masked per-step computation needs: the timestep being
// produced (the new token's absolute position) and which sequence's KV
// prefix to read it against. SourceSeq implements cache-indirection: in
// beam search, Seq is the slot the new token is written to but SourceSeq
// is the parent beam whose KV history that slot is continuing, and the two
// differ whenever a beam's ancestor changes between steps. Callers outside
// beam search always set SourceSeq equal to Seq.
type GenerationInput struct {
	Seq         int
	Q, K, V     []float32 // [NumHeads*HeadDim], [NumKVHeads*HeadDim] x2: this step's new token only
	CurrentStep int       // absolute position of the new token
	SourceSeq   int       // cache-indirection: which sequence's KV prefix to read
}

// GenerationAttention runs one decode step's masked attention for one
// sequence: applies position encoding to the new Q/K, appends the new K/V
// row to the cache at CurrentStep, then attends the new query over every
// cached timestep [0, CurrentStep] of SourceSeq — SPEC_FULL.md §4.E's
// generation-attention parameter block (cache-indirection table, per-
// sequence lengths, ALiBi slopes, KV quantisation scale, multi-block mode)
// reduces to these fields once the dispatcher works one sequence at a
// time; MultiBlockMode only changes how the cache is scanned, not the
// result, so the reference implementation here ignores it.
func GenerationAttention(cfg Config, mm engine.Matmul, cache *kvcache.Cache, in GenerationInput) ([]float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(in.Q) != cfg.NumHeads*cfg.HeadDim {
		return nil, fmt.Errorf("attention: Q has length %d, want %d", len(in.Q), cfg.NumHeads*cfg.HeadDim)
	}
	if len(in.K) != cfg.NumKVHeads*cfg.HeadDim || len(in.V) != len(in.K) {
		return nil, fmt.Errorf("attention: K/V have length %d, want %d", len(in.K), cfg.NumKVHeads*cfg.HeadDim)
	}

	neox := cfg.Position == PositionRopeNeox
	rotary := cfg.Position == PositionRopeGPTJ || cfg.Position == PositionRopeNeox

	q := append([]float32(nil), in.Q...)
	if rotary {
		for h := 0; h < cfg.NumHeads; h++ {
			applyRotary(q[h*cfg.HeadDim:(h+1)*cfg.HeadDim], cfg.RotaryDim, in.CurrentStep, neox)
		}
		for h := 0; h < cfg.NumKVHeads; h++ {
			applyRotary(in.K[h*cfg.HeadDim:(h+1)*cfg.HeadDim], cfg.RotaryDim, in.CurrentStep, neox)
		}
	}

	if err := cache.WriteRow(in.Seq, 0, in.CurrentStep, in.K); err != nil {
		return nil, fmt.Errorf("attention: writing key row: %w", err)
	}
	if err := cache.WriteRow(in.Seq, 1, in.CurrentStep, in.V); err != nil {
		return nil, fmt.Errorf("attention: writing value row: %w", err)
	}

	windowLen := in.CurrentStep + 1
	source := in.SourceSeq

	useAlibi := cfg.Position == PositionALiBi
	var slopes []float32
	if useAlibi {
		slopes = alibiSlopes(cfg.NumHeads)
	}

	out := make([]float32, cfg.NumHeads*cfg.HeadDim)
	scale := scaleFor(cfg.HeadDim)

	for h := 0; h < cfg.NumHeads; h++ {
		kv := cfg.kvHeadFor(h)

		K := make([]float32, windowLen*cfg.HeadDim)
		V := make([]float32, windowLen*cfg.HeadDim)
		for t := 0; t < windowLen; t++ {
			row, err := readHeadRow(cache, source, 0, t, kv, cfg.HeadDim)
			if err != nil {
				return nil, fmt.Errorf("attention: reading cached key at t=%d: %w", t, err)
			}
			copy(K[t*cfg.HeadDim:(t+1)*cfg.HeadDim], row)

			row, err = readHeadRow(cache, source, 1, t, kv, cfg.HeadDim)
			if err != nil {
				return nil, fmt.Errorf("attention: reading cached value at t=%d: %w", t, err)
			}
			copy(V[t*cfg.HeadDim:(t+1)*cfg.HeadDim], row)
		}

		Q := q[h*cfg.HeadDim : (h+1)*cfg.HeadDim]
		KT := transpose(K, windowLen, cfg.HeadDim)

		scores, err := mm.BatchedGEMM(Q, KT, engine.Layout{Rows: 1, Cols: cfg.HeadDim}, engine.Layout{Rows: cfg.HeadDim, Cols: windowLen, Transposed: true})
		if err != nil {
			return nil, fmt.Errorf("attention: QK^T for head %d: %w", h, err)
		}

		var slope float32
		if useAlibi {
			slope = slopes[h]
		}
		softmaxRowsCausal(scores, 1, windowLen, scale, slope, in.CurrentStep, useAlibi)

		headOut, err := mm.BatchedGEMM(scores, V, engine.Layout{Rows: 1, Cols: windowLen}, engine.Layout{Rows: windowLen, Cols: cfg.HeadDim})
		if err != nil {
			return nil, fmt.Errorf("attention: attn@V for head %d: %w", h, err)
		}

		copy(out[h*cfg.HeadDim:(h+1)*cfg.HeadDim], headOut)
	}

	return out, nil
}

// readHeadRow reads one head's slice out of a cached (seq, kv, timestep)
// row without materialising the full HeadsPerKV*HeadDim row for heads it
// doesn't need.
func readHeadRow(cache *kvcache.Cache, seq, kv, timestep, head, headDim int) ([]float32, error) {
	row := make([]float32, headDim)
	for d := 0; d < headDim; d++ {
		v, err := cache.Read(seq, kv, timestep, head, d)
		if err != nil {
			return nil, err
		}
		row[d] = v
	}
	return row, nil
}
