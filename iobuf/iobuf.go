// Package iobuf implements the Decoding I/O Buffers component: the joint
// input/output tensors shared by every slot in a batch, plus the per-slot
// slice views the scheduler carves out of them. Grounded on the batch
// tensor allocation pattern in the teacher's runner/llamarunner (one flat
// backing array per field, sliced per sequence) generalized to the fixed
// [maxBatchSize, maxBeamWidth, maxSequenceLength] shape SPEC_FULL.md §3
// describes for JointInput/JointOutput.
package iobuf

import "math"

// Joint is the shared, pre-allocated storage for a batch of decoding slots.
// Every field's dimension-0 stride is one slot; slot-local views (Slot) are
// non-overlapping slices into these backing arrays, never copies.
type Joint struct {
	MaxBatchSize      int
	MaxBeamWidth       int
	MaxSequenceLength int

	// Logits is the engine's per-step output, shape conceptually
	// [batchSize, beamWidth, vocabPadded]; returned by engine.Execute
	// per step rather than allocated once at Setup (its vocab dimension is
	// engine-specific), so it is not sliced here.

	// OutputIDs holds, per slot/beam, every generated token id up to
	// MaxSequenceLength.
	OutputIDs []int32 // len == MaxBatchSize*MaxBeamWidth*MaxSequenceLength

	// Lengths holds, per slot/beam, the number of valid tokens in OutputIDs.
	Lengths []int32 // len == MaxBatchSize*MaxBeamWidth

	// SequenceLimitLength holds, per slot, inputLength+maxNewTokens.
	SequenceLimitLength []int32 // len == MaxBatchSize

	// Finished holds, per slot/beam, whether that beam has terminated.
	Finished []bool // len == MaxBatchSize*MaxBeamWidth

	// FinishedSum holds, per slot, the count of finished beams.
	FinishedSum []int32 // len == MaxBatchSize

	// CumLogProbs holds, per slot/beam, the cumulative log-probability of
	// the generated sequence so far.
	CumLogProbs []float32 // len == MaxBatchSize*MaxBeamWidth

	// ParentIDs holds, per slot/beam/timestep, the beam index a token's
	// prefix was extended from. Only meaningful for beam search.
	ParentIDs []int32 // len == MaxBatchSize*MaxBeamWidth*MaxSequenceLength

	// EndIDs holds, per slot, the configured end-of-sequence token.
	EndIDs []int32 // len == MaxBatchSize

	// NewTokens holds, per slot/beam, the token written by the most recent
	// ForwardAsync call.
	NewTokens []int32 // len == MaxBatchSize*MaxBeamWidth
}

// New allocates a Joint sized for the given capacities.
func New(maxBatchSize, maxBeamWidth, maxSequenceLength int) *Joint {
	beamRows := maxBatchSize * maxBeamWidth
	return &Joint{
		MaxBatchSize:        maxBatchSize,
		MaxBeamWidth:        maxBeamWidth,
		MaxSequenceLength:   maxSequenceLength,
		OutputIDs:           make([]int32, beamRows*maxSequenceLength),
		Lengths:             make([]int32, beamRows),
		SequenceLimitLength: make([]int32, maxBatchSize),
		Finished:            make([]bool, beamRows),
		FinishedSum:         make([]int32, maxBatchSize),
		CumLogProbs:         make([]float32, beamRows),
		ParentIDs:           make([]int32, beamRows*maxSequenceLength),
		EndIDs:              make([]int32, maxBatchSize),
		NewTokens:           make([]int32, beamRows),
	}
}

// Slot is a non-owning view into a Joint's storage for a single batch
// index, sliced across all of that slot's beams.
type Slot struct {
	joint    *Joint
	batchIdx int
	beamWidth int
}

// Slice returns the slot-local view for batchIdx, using beamWidth beams out
// of the joint's MaxBeamWidth capacity.
func (j *Joint) Slice(batchIdx, beamWidth int) Slot {
	return Slot{joint: j, batchIdx: batchIdx, beamWidth: beamWidth}
}

func (s Slot) beamRow(beam int) int {
	return s.batchIdx*s.joint.MaxBeamWidth + beam
}

// OutputIDs returns the output-id slice for one beam, its first
// MaxSequenceLength entries.
func (s Slot) OutputIDs(beam int) []int32 {
	row := s.beamRow(beam)
	start := row * s.joint.MaxSequenceLength
	return s.joint.OutputIDs[start : start+s.joint.MaxSequenceLength]
}

func (s Slot) ParentIDs(beam int) []int32 {
	row := s.beamRow(beam)
	start := row * s.joint.MaxSequenceLength
	return s.joint.ParentIDs[start : start+s.joint.MaxSequenceLength]
}

func (s Slot) Length(beam int) int32     { return s.joint.Lengths[s.beamRow(beam)] }
func (s Slot) SetLength(beam int, v int32) { s.joint.Lengths[s.beamRow(beam)] = v }

func (s Slot) Finished(beam int) bool       { return s.joint.Finished[s.beamRow(beam)] }
func (s Slot) SetFinished(beam int, v bool) { s.joint.Finished[s.beamRow(beam)] = v }

func (s Slot) CumLogProb(beam int) float32       { return s.joint.CumLogProbs[s.beamRow(beam)] }
func (s Slot) SetCumLogProb(beam int, v float32) { s.joint.CumLogProbs[s.beamRow(beam)] = v }

func (s Slot) NewToken(beam int) int32       { return s.joint.NewTokens[s.beamRow(beam)] }
func (s Slot) SetNewToken(beam int, v int32) { s.joint.NewTokens[s.beamRow(beam)] = v }

func (s Slot) SequenceLimitLength() int32 { return s.joint.SequenceLimitLength[s.batchIdx] }
func (s Slot) EndID() int32               { return s.joint.EndIDs[s.batchIdx] }
func (s Slot) FinishedSum() int32         { return s.joint.FinishedSum[s.batchIdx] }
func (s Slot) SetFinishedSum(v int32)     { s.joint.FinishedSum[s.batchIdx] = v }

// BeamWidth is the number of live beams configured for this slot.
func (s Slot) BeamWidth() int { return s.beamWidth }

// Acquire applies the fill policy from SPEC_FULL.md §4.C to a freshly
// assigned slot: endId tensor filled with the slot's end token,
// sequence-limit-length filled with inputLength+maxNewTokens, lengths
// filled with inputLength, finished flags zeroed, cumulative log-prob for
// beam 0 zeroed and for every other beam set to -Inf (so beam selection on
// the first step never prefers an empty beam), output IDs first filled
// with the end token and then the prompt tiled across every beam.
func (s Slot) Acquire(prompt []int32, endID int32, inputLength, maxNewTokens int) {
	s.joint.EndIDs[s.batchIdx] = endID
	s.joint.SequenceLimitLength[s.batchIdx] = int32(inputLength + maxNewTokens)
	s.joint.FinishedSum[s.batchIdx] = 0

	for beam := 0; beam < s.beamWidth; beam++ {
		s.SetLength(beam, int32(inputLength))
		s.SetFinished(beam, false)

		if beam == 0 {
			s.SetCumLogProb(beam, 0)
		} else {
			s.SetCumLogProb(beam, float32(math.Inf(-1)))
		}

		ids := s.OutputIDs(beam)
		for i := range ids {
			ids[i] = endID
		}
		copy(ids, prompt)

		parents := s.ParentIDs(beam)
		for i := range parents {
			parents[i] = 0
		}
	}
}
