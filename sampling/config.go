// Package sampling holds the per-request sampling configuration: the knobs
// a caller can set (temperature, penalties, top-K/top-P, beam search) and
// the batch-to-slot resolution the scheduler performs before handing a
// slot-local config to its decoder. Field names follow the shape of the
// teacher's llama.SamplingParams, generalized from a single CGo sampler
// context to a batch of independent slots.
package sampling

// Value is an optional sampling knob: either unset (the decoder falls back
// to its built-in default, which equals package config's default for every
// knob config also exposes) or set to a specific value.
// This mirrors SPEC_FULL.md's "each knob is either absent (use default) or
// a value" requirement.
type Value[T any] struct {
	set bool
	v   T
}

// Set returns a Value holding v.
func Set[T any](v T) Value[T] { return Value[T]{set: true, v: v} }

// IsSet reports whether the value was explicitly provided.
func (o Value[T]) IsSet() bool { return o.set }

// Get returns the set value, or def if the value is absent.
func (o Value[T]) Get(def T) T {
	if o.set {
		return o.v
	}
	return def
}

// Batch is the batch-level sampling configuration passed to
// scheduler.NewBatch/NewRequest: every per-slot field is a slice that is
// either length 1 (broadcast to every slot) or length maxBatchSize (one
// entry per slot).
type Batch struct {
	BeamWidth         []Value[int]
	Temperature       []Value[float32]
	RepetitionPenalty []Value[float32]
	PresencePenalty   []Value[float32]
	MinLength         []Value[int]
	TopK              []Value[int]
	TopP              []Value[float32]
	TopPDecay         []Value[float32]
	TopPMin           []Value[float32]
	TopPResetIDs      [][]int32
	RandomSeed        []Value[uint64]
	BadWordsList      [][][]int32
	StopWordsList     [][][]int32
	// StopPatterns holds, per slot, regex source strings (dlclark/regexp2
	// syntax, supports lookaround) matched against a decimal rendering of
	// the generated token stream — a string-level stop condition distinct
	// from StopWordsList's token-id sequences.
	StopPatterns  [][]string
	EmbeddingBias [][]float32

	// LengthPenalty and BeamSearchDiversityRate are always batch-wide per
	// SPEC_FULL.md §4.B: beam search operates jointly across the batch's
	// beams, so these two knobs cannot vary per slot.
	LengthPenalty           Value[float32]
	BeamSearchDiversityRate Value[float32]
}

// Slot is the resolved, per-slot sampling configuration a Single-Slot
// Decoder's Setup consumes.
type Slot struct {
	BeamWidth         Value[int]
	Temperature       Value[float32]
	RepetitionPenalty Value[float32]
	PresencePenalty   Value[float32]
	MinLength         Value[int]
	TopK              Value[int]
	TopP              Value[float32]
	TopPDecay         Value[float32]
	TopPMin           Value[float32]
	TopPResetIDs      []int32
	RandomSeed        Value[uint64]
	BadWordsList  [][]int32
	StopWordsList [][]int32
	StopPatterns  []string
	EmbeddingBias []float32

	LengthPenalty           Value[float32]
	BeamSearchDiversityRate Value[float32]
}

// Resolve returns the slot-local config for batchIdx, broadcasting any
// length-1 field and indexing any full-length field directly. A field with
// length 0 resolves to the always-absent Value.
func (b *Batch) Resolve(batchIdx int) Slot {
	return Slot{
		BeamWidth:         resolveScalar(b.BeamWidth, batchIdx),
		Temperature:       resolveScalar(b.Temperature, batchIdx),
		RepetitionPenalty: resolveScalar(b.RepetitionPenalty, batchIdx),
		PresencePenalty:   resolveScalar(b.PresencePenalty, batchIdx),
		MinLength:         resolveScalar(b.MinLength, batchIdx),
		TopK:              resolveScalar(b.TopK, batchIdx),
		TopP:              resolveScalar(b.TopP, batchIdx),
		TopPDecay:         resolveScalar(b.TopPDecay, batchIdx),
		TopPMin:           resolveScalar(b.TopPMin, batchIdx),
		TopPResetIDs:      resolveSlice(b.TopPResetIDs, batchIdx),
		RandomSeed:        resolveScalar(b.RandomSeed, batchIdx),
		BadWordsList:      resolveSlice(b.BadWordsList, batchIdx),
		StopWordsList:     resolveSlice(b.StopWordsList, batchIdx),
		StopPatterns:      resolveSlice(b.StopPatterns, batchIdx),
		EmbeddingBias:     resolveSlice(b.EmbeddingBias, batchIdx),

		LengthPenalty:           b.LengthPenalty,
		BeamSearchDiversityRate: b.BeamSearchDiversityRate,
	}
}

func resolveScalar[T any](vals []Value[T], batchIdx int) Value[T] {
	switch len(vals) {
	case 0:
		return Value[T]{}
	case 1:
		return vals[0]
	default:
		return vals[batchIdx]
	}
}

func resolveSlice[T any](vals []T, batchIdx int) T {
	var zero T
	switch len(vals) {
	case 0:
		return zero
	case 1:
		return vals[0]
	default:
		return vals[batchIdx]
	}
}
