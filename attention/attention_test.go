package attention

import (
	"sync"
	"testing"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/kvcache"
)

func newTestCache(maxSeq, headsPerKV, headDim int) *kvcache.Cache {
	return kvcache.NewCache(func() kvcache.View {
		return kvcache.NewLinear(4, maxSeq, headsPerKV, headDim, kvcache.QuantNone)
	})
}

func TestContextAttentionSingleHeadMatchesManualSoftmax(t *testing.T) {
	cfg := Config{NumHeads: 1, NumKVHeads: 1, HeadDim: 2, Position: PositionNone}
	cache := newTestCache(4, 1, 2)
	mm := engine.ReferenceMatmul{}

	in := ContextInput{
		Seq:    0,
		SeqLen: 2,
		Q:      []float32{1, 0, 0, 1},
		K:      []float32{1, 0, 0, 1},
		V:      []float32{1, 2, 3, 4},
	}

	out, err := ContextAttention(cfg, engine.DTypeF32, mm, cache, in)
	if err != nil {
		t.Fatalf("ContextAttention: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("output length = %d, want 4", len(out))
	}

	// First query can only attend to itself (causal): output must equal V[0].
	if out[0] != 1 || out[1] != 2 {
		t.Errorf("row 0 = %v, want [1 2] (only position 0 is visible)", out[0:2])
	}
}

func TestContextAttentionWritesIntoCache(t *testing.T) {
	cfg := Config{NumHeads: 1, NumKVHeads: 1, HeadDim: 2, Position: PositionNone}
	cache := newTestCache(4, 1, 2)
	mm := engine.ReferenceMatmul{}

	in := ContextInput{
		Seq:    0,
		SeqLen: 2,
		Q:      []float32{1, 0, 0, 1},
		K:      []float32{5, 6, 7, 8},
		V:      []float32{1, 2, 3, 4},
	}

	if _, err := ContextAttention(cfg, engine.DTypeF32, mm, cache, in); err != nil {
		t.Fatalf("ContextAttention: %v", err)
	}

	v, err := cache.Read(0, 0 /* kv=key */, 1, 0, 0)
	if err != nil {
		t.Fatalf("cache.Read: %v", err)
	}
	if v != 7 {
		t.Errorf("cached key at t=1 dim=0 = %v, want 7", v)
	}
}

func TestGenerationAttentionAttendsFullCachedWindow(t *testing.T) {
	cfg := Config{NumHeads: 1, NumKVHeads: 1, HeadDim: 1, Position: PositionNone}
	cache := newTestCache(4, 1, 1)
	mm := engine.ReferenceMatmul{}

	ctxIn := ContextInput{Seq: 0, SeqLen: 1, Q: []float32{1}, K: []float32{1}, V: []float32{10}}
	if _, err := ContextAttention(cfg, engine.DTypeF32, mm, cache, ctxIn); err != nil {
		t.Fatalf("ContextAttention: %v", err)
	}

	genIn := GenerationInput{Seq: 0, SourceSeq: 0, CurrentStep: 1, Q: []float32{1}, K: []float32{1}, V: []float32{20}}
	out, err := GenerationAttention(cfg, mm, cache, genIn)
	if err != nil {
		t.Fatalf("GenerationAttention: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("output length = %d, want 1", len(out))
	}
	// Equal Q.K scores at both cached positions (1*1==1*1) -> output is the
	// mean of the two values.
	if out[0] < 14.9 || out[0] > 15.1 {
		t.Errorf("output = %v, want ~15 (mean of 10 and 20)", out[0])
	}
}

func TestConfigValidateRejectsMismatchedHeads(t *testing.T) {
	cfg := Config{NumHeads: 7, NumKVHeads: 2, HeadDim: 4}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for non-divisible head counts")
	}
}

func TestConfigValidateRejectsRotaryDimWithoutRope(t *testing.T) {
	cfg := Config{NumHeads: 2, NumKVHeads: 2, HeadDim: 4, RotaryDim: 4}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for rotaryDim set without a RoPE position embedding")
	}
}

func TestAlibiSlopesDecreaseMonotonically(t *testing.T) {
	slopes := alibiSlopes(8)
	for i := 1; i < len(slopes); i++ {
		if slopes[i] >= slopes[i-1] {
			t.Errorf("slopes[%d]=%v not less than slopes[%d]=%v", i, slopes[i], i-1, slopes[i-1])
		}
	}
}

func TestAlgoCacheRecordsLookups(t *testing.T) {
	var mu sync.Mutex
	cache := engine.NewAlgoCache(&mu)
	mm := engine.ReferenceMatmul{Cache: cache}

	layoutA := engine.Layout{Rows: 2, Cols: 2}
	layoutB := engine.Layout{Rows: 2, Cols: 2}
	if _, err := mm.BatchedGEMM([]float32{1, 0, 0, 1}, []float32{1, 2, 3, 4}, layoutA, layoutB); err != nil {
		t.Fatalf("BatchedGEMM: %v", err)
	}

	if _, ok := cache.Lookup(engine.ComputeDescriptor{DType: engine.DTypeF32, BatchSize: 1}, layoutA, layoutB); !ok {
		t.Error("expected algorithm cache to record the lookup")
	}
}
