package decoder

import (
	"github.com/nvidia/batchdecode/iobuf"
)

// ForwardAsync consumes one step's logits (one row per live beam) and
// writes the sampled token(s), updated lengths, finished flags, and (for
// beam search) parent ids and cumulative log-probabilities into out. It is
// synchronous from the caller's point of view: the asynchrony SPEC_FULL.md
// §4.D describes is the scheduler's per-slot goroutine that invokes this
// method, not a queue internal to the decoder itself.
func (d *Decoder) ForwardAsync(out iobuf.Slot, in Input, logitsPerBeam [][]float32) error {
	beamWidth := out.BeamWidth()

	badWords := d.cfg.BadWordsList

	for beam := 0; beam < beamWidth; beam++ {
		logits := logitsPerBeam[beam]
		clampNonFinite(logits)

		length := int(out.Length(beam))
		history := out.OutputIDs(beam)[:length]

		d.recordHistory(beam, history)

		applyTemperature(logits, d.cfg.Temperature.Get(1.0))
		applyRepetitionPenalty(logits, d.recentTokens[beam], d.cfg.RepetitionPenalty.Get(1.0))
		applyPresencePenalty(logits, d.recentTokens[beam], d.cfg.PresencePenalty.Get(0))
		applyMinLength(logits, in.EndID, in.Step, d.cfg.MinLength.Get(0))
		applyBadWords(logits, history, badWords)
	}

	if beamWidth == 1 {
		return d.stepGreedyOrSample(out, in, logitsPerBeam[0])
	}
	return d.stepBeamSearch(out, in, logitsPerBeam)
}

func (d *Decoder) recordHistory(beam int, history []int32) {
	seen := d.recentTokens[beam]
	for k := range seen {
		delete(seen, k)
	}
	for _, id := range history {
		seen[id]++
	}
}

func (d *Decoder) stepGreedyOrSample(out iobuf.Slot, in Input, logits []float32) error {
	token := sampleTopKTopP(logits, d.cfg.TopK.Get(0), d.cfg.TopP.Get(1.0), d.rng)

	length := out.Length(0)
	ids := out.OutputIDs(0)
	ids[length] = token
	out.SetLength(0, length+1)
	out.SetNewToken(0, token)

	finished := token == in.EndID || int(length)+1 >= int(out.SequenceLimitLength())
	if !finished && len(d.stopPatterns) > 0 {
		finished = matchesStopPattern(renderTokenStream(ids[:length+1]), d.stopPatterns)
	}
	out.SetFinished(0, finished)

	var sum int32
	if finished {
		sum = 1
	}
	out.SetFinishedSum(sum)

	return nil
}

func (d *Decoder) stepBeamSearch(out iobuf.Slot, in Input, logitsPerBeam [][]float32) error {
	beamWidth := out.BeamWidth()

	cumLogProbs := make([]float32, beamWidth)
	histories := make([][]int32, beamWidth)
	lengths := make([]int32, beamWidth)
	for b := 0; b < beamWidth; b++ {
		cumLogProbs[b] = out.CumLogProb(b)
		length := out.Length(b)
		lengths[b] = length
		histories[b] = append([]int32(nil), out.OutputIDs(b)[:length]...)
	}

	diversityRate := d.cfg.BeamSearchDiversityRate.Get(0)
	lengthPenalty := d.cfg.LengthPenalty.Get(1.0)

	candidates := selectBeams(logitsPerBeam, cumLogProbs, beamWidth, diversityRate)

	selected := make([]beamCandidate, 0, beamWidth)
	seenContinuation := make(map[[2]int32]bool)
	for _, c := range candidates {
		key := [2]int32{int32(c.parentBeam), c.tokenID}
		if seenContinuation[key] {
			continue
		}
		seenContinuation[key] = true
		selected = append(selected, c)
		if len(selected) == beamWidth {
			break
		}
	}

	var finishedSum int32
	for newBeam, c := range selected {
		parentHistory := histories[c.parentBeam]
		parentLength := lengths[c.parentBeam]

		newIDs := out.OutputIDs(newBeam)
		copy(newIDs, parentHistory)
		newIDs[parentLength] = c.tokenID
		newLength := parentLength + 1
		out.SetLength(newBeam, newLength)
		out.SetNewToken(newBeam, c.tokenID)

		parents := out.ParentIDs(newBeam)
		parents[in.Step] = int32(c.parentBeam)

		score := lengthPenalizedScore(c.cumLogProb, int(newLength), lengthPenalty)
		out.SetCumLogProb(newBeam, score)

		finished := c.tokenID == in.EndID || int(newLength) >= int(out.SequenceLimitLength())
		if !finished && len(d.stopPatterns) > 0 {
			finished = matchesStopPattern(renderTokenStream(newIDs[:newLength]), d.stopPatterns)
		}
		out.SetFinished(newBeam, finished)
		if finished {
			finishedSum++
			if d.hypotheses != nil {
				d.hypotheses.Add(newIDs[:newLength], score)
			}
		}
	}

	out.SetFinishedSum(finishedSum)
	return nil
}
