package decoder

import "github.com/nvidia/batchdecode/iobuf"

// GatherTree writes the slot's best token sequence into beam 0: the best
// finished hypothesis if any beam finished, otherwise the live beam with the
// highest cumulative log-probability. parentIds is not read, since each
// beam's row already holds its full history. For beamWidth==1 it is a
// no-op: there is nothing to reconstruct.
func (d *Decoder) GatherTree(out iobuf.Slot) {
	beamWidth := out.BeamWidth()
	if beamWidth <= 1 {
		return
	}

	if best, ok := d.hypotheses.Best(); ok {
		dst := out.OutputIDs(0)
		copy(dst, best.TokenIDs)
		out.SetLength(0, int32(best.Length))
		out.SetCumLogProb(0, best.CumLogProb)
		return
	}

	// No beam ever finished (e.g. generation hit maxNewTokens first): each
	// live beam's row already holds its complete sequence (stepBeamSearch
	// copies the full parent history forward on every step, unlike a
	// pointer-chasing implementation that only stores one token per step),
	// so reconstruction is just picking the best-scoring live beam and
	// copying it into beam 0's row.
	bestBeam := 0
	bestScore := out.CumLogProb(0)
	for b := 1; b < beamWidth; b++ {
		if score := out.CumLogProb(b); score > bestScore {
			bestBeam = b
			bestScore = score
		}
	}

	if bestBeam == 0 {
		return
	}

	length := out.Length(bestBeam)
	dst := out.OutputIDs(0)
	copy(dst, out.OutputIDs(bestBeam)[:length])
	out.SetLength(0, length)
	out.SetCumLogProb(0, bestScore)
}
