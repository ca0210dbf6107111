// Package decoder implements the Single-Slot Decoder: the per-step
// sampling algorithm for one decoding slot (temperature, penalties,
// min-length masking, bad-/stop-words masking, top-K/top-P sampling, and
// beam search), plus GatherTree reconstruction once generation finishes.
// Grounded on the teacher's llama.SamplingParams field shape
// (llama/llama_sampling.go), generalized from a single CGo sampler context
// bound to one model into pure-Go logic bound to one JointInput/JointOutput
// slot view (package iobuf).
package decoder

import (
	"math"
	"math/rand"

	"github.com/dlclark/regexp2"

	"github.com/nvidia/batchdecode/sampling"
)

// Input is everything ForwardAsync needs about the current step beyond the
// engine's raw logits: the slot's end-of-sequence and padding tokens, its
// step index, and its prompt length. The sampling configuration comes from
// Setup instead.
type Input struct {
	EndID  int32
	PadID  int32
	Step   int
	InputLength int
}

// Decoder drives one decoding slot across its whole generation: RNG state
// and penalty bookkeeping persist across ForwardAsync calls within one
// request, and are reset on Setup for the next request.
type Decoder struct {
	cfg sampling.Slot
	rng *rand.Rand

	// recentTokens backs repetition/presence penalty computation: a count
	// of how many times each token id has appeared in this beam's history
	// so far. Indexed per beam.
	recentTokens []map[int32]int32

	hypotheses   *BeamHypotheses
	stopPatterns []*regexp2.Regexp
}

// New constructs a Decoder; call Setup before the first ForwardAsync.
func New() *Decoder {
	return &Decoder{}
}

// Setup initialises internal sampling state for a new request: RNG seed
// and per-beam penalty buffers. localBatchSize is the number of beams this
// decoder instance is responsible for (beamWidth, or 1 outside beam
// search).
func (d *Decoder) Setup(cfg sampling.Slot, localBatchSize int) {
	d.cfg = cfg

	seed := cfg.RandomSeed.Get(0)
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15 // arbitrary non-zero default, distinct per process start would require a caller-supplied entropy source
	}
	d.rng = rand.New(rand.NewSource(int64(seed)))

	d.recentTokens = make([]map[int32]int32, localBatchSize)
	for i := range d.recentTokens {
		d.recentTokens[i] = make(map[int32]int32)
	}

	beamWidth := cfg.BeamWidth.Get(1)
	if beamWidth > 1 {
		d.hypotheses = NewBeamHypotheses(beamWidth)
	} else {
		d.hypotheses = nil
	}

	d.stopPatterns = compileStopPatterns(cfg.StopPatterns)
}

// clampNonFinite replaces NaN/Inf logits with a very negative finite value,
// matching SPEC_FULL.md §4.D's "numerical non-finite in logits -> replaced
// with very negative value before masking" recovery. Mutates in place.
func clampNonFinite(logits []float32) {
	const sentinel = -1e9
	for i, v := range logits {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			logits[i] = sentinel
		}
	}
}
