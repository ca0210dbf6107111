// Package engine defines the Engine Boundary the Session Driver drives: a
// minimal contract describing a compiled model's shape and its one
// operation, Execute. Production engines (weight loading, kernel launch,
// device placement) are out of scope for this rewrite; this package also
// provides a deterministic Fake engine that replays a fixed logits
// sequence, the only engine the test suite needs to exercise the
// idempotence and parity properties in SPEC_FULL.md §8.
//
// Grounded on the *idea* of ml.Context/ml.Tensor's compiled-graph contract,
// deliberately narrowed: that ~80-method interface is the graph-builder
// surface a real backend needs, almost none of which the scheduler or
// attention dispatcher ever calls directly.
package engine

import "context"

// DType is the activation datatype an engine computes in.
type DType int

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
)

func (d DType) String() string {
	switch d {
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	default:
		return "f32"
	}
}

// Is16Bit reports whether d is one of the two 16-bit activation dtypes,
// the precondition for selecting the fused context-FMHA kernel path
// (SPEC_FULL.md §4.E step 4).
func (d DType) Is16Bit() bool { return d == DTypeF16 || d == DTypeBF16 }

// Features describes which optional kernel paths a compiled engine
// supports.
type Features struct {
	AttentionPluginEnabled bool
	PackedInput            bool
	PagedKVCache           bool
}

// Descriptor describes a compiled model's fixed shape, the information the
// scheduler and attention dispatcher need before they can drive it.
type Descriptor struct {
	NumLayers   int
	NumHeads    int
	NumKVHeads  int
	HeadSize    int
	VocabSize   int
	VocabPadded int
	DType       DType
	Features    Features
}

// Step is one engine invocation's input: the token ids and positions to
// evaluate this call, laid out per SPEC_FULL.md §6's sampling-input shape.
type Step struct {
	// StepIndex is the decode step this call computes (0 for context/prefill).
	StepIndex int
	// BatchSize is the number of active slots this call evaluates.
	BatchSize int
	// BeamWidth is the number of beams per slot this call evaluates.
	BeamWidth int
	// InputIDs holds, per active slot/beam, the token(s) to evaluate.
	InputIDs []int32
}

// Logits is an engine's per-step output, shape [BatchSize, BeamWidth,
// VocabPadded] flattened in that order.
type Logits struct {
	BatchSize   int
	BeamWidth   int
	VocabPadded int
	Values      []float32
}

// Row returns the logits slice for one (slot, beam) pair.
func (l Logits) Row(batchIdx, beam int) []float32 {
	start := (batchIdx*l.BeamWidth + beam) * l.VocabPadded
	return l.Values[start : start+l.VocabPadded]
}

// Engine is the compiled-model contract the Session Driver consumes.
// Descriptor reports the compiled model's shape; the Session Driver calls
// Execute once per decode step.
type Engine interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, step Step) (Logits, error)
}
