package decoder

import (
	"math"
	"sort"
)

// Hypothesis is one completed beam-search candidate: its full token
// sequence, cumulative log-probability, and length.
type Hypothesis struct {
	TokenIDs   []int32
	CumLogProb float32
	Length     int
}

// BeamHypotheses holds up to maxSize completed hypotheses for one slot,
// kept sorted best-first, the ring SPEC_FULL.md §3 describes as backing
// the final GatherTree pass.
type BeamHypotheses struct {
	maxSize int
	hyps    []Hypothesis
}

// NewBeamHypotheses returns an empty ring with room for maxSize hypotheses.
func NewBeamHypotheses(maxSize int) *BeamHypotheses {
	return &BeamHypotheses{maxSize: maxSize}
}

// Add inserts a finished hypothesis, evicting the worst one once the ring
// is full.
func (h *BeamHypotheses) Add(tokenIDs []int32, cumLogProb float32) {
	h.hyps = append(h.hyps, Hypothesis{
		TokenIDs:   append([]int32(nil), tokenIDs...),
		CumLogProb: cumLogProb,
		Length:     len(tokenIDs),
	})
	sort.Slice(h.hyps, func(i, j int) bool { return h.hyps[i].CumLogProb > h.hyps[j].CumLogProb })
	if len(h.hyps) > h.maxSize {
		h.hyps = h.hyps[:h.maxSize]
	}
}

// Best returns the highest cumulative-log-probability hypothesis, if any.
func (h *BeamHypotheses) Best() (Hypothesis, bool) {
	if len(h.hyps) == 0 {
		return Hypothesis{}, false
	}
	return h.hyps[0], true
}

// beamCandidate is one (parent beam, next token) continuation scored for
// selection into the next live beam set.
type beamCandidate struct {
	parentBeam int
	tokenID    int32
	cumLogProb float32
}

// logSoftmax returns the log-probabilities of logits.
func logSoftmax(logits []float32) []float32 {
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - maxV))
	}
	logSum := math.Log(sum)

	out := make([]float32, len(logits))
	for i, v := range logits {
		out[i] = v - maxV - float32(logSum)
	}
	return out
}

// selectBeams scores every (beam, token) continuation across perBeamLogits
// (one logits row per live beam), folds in each beam's running
// cumLogProbs, applies the diversity penalty per beam-group index, and
// returns the top 2*beamWidth candidates by score — the pool the caller
// reduces to beamWidth live beams after discarding duplicates/invalid
// continuations, per SPEC_FULL.md §4.D step 3.
func selectBeams(perBeamLogits [][]float32, cumLogProbs []float32, beamWidth int, diversityRate float32) []beamCandidate {
	var all []beamCandidate

	for b, logits := range perBeamLogits {
		logProbs := logSoftmax(logits)
		diversityPenalty := diversityRate * float32(b)

		for tokenID, lp := range logProbs {
			all = append(all, beamCandidate{
				parentBeam: b,
				tokenID:    int32(tokenID),
				cumLogProb: cumLogProbs[b] + lp - diversityPenalty,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].cumLogProb > all[j].cumLogProb })

	keep := 2 * beamWidth
	if keep > len(all) {
		keep = len(all)
	}
	return all[:keep]
}

// lengthPenalizedScore applies the standard length-penalty rescaling:
// score / length^penalty. penalty == 1 is the neutral value (no rescaling
// beyond the raw sum of log-probabilities).
func lengthPenalizedScore(cumLogProb float32, length int, penalty float32) float32 {
	if penalty == 1 || length == 0 {
		return cumLogProb
	}
	return cumLogProb / float32(math.Pow(float64(length), float64(penalty)))
}
