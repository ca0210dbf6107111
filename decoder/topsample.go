package decoder

import (
	"math"
	"math/rand"
	"sort"
)

// softmax returns a new slice holding the softmax of logits, computed with
// a max-subtraction for numerical stability.
func softmax(logits []float32) []float32 {
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}

	probs := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - maxV)))
		probs[i] = e
		sum += e
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}

// topKIndices returns the indices of the k largest values in logits, most
// significant first. k <= 0 or k >= len(logits) returns every index sorted
// by descending logit.
func topKIndices(logits []float32, k int) []int {
	idx := make([]int, len(logits))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return logits[idx[a]] > logits[idx[b]] })

	if k > 0 && k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// sampleTopKTopP applies top-K truncation (k<=0 disables) followed by
// top-P nucleus truncation (p>=1 disables) to logits, then draws one token
// from the resulting renormalised distribution using rng.
func sampleTopKTopP(logits []float32, k int, p float32, rng *rand.Rand) int32 {
	candidates := topKIndices(logits, k)

	candLogits := make([]float32, len(candidates))
	for i, id := range candidates {
		candLogits[i] = logits[id]
	}
	probs := softmax(candLogits)

	if p > 0 && p < 1 {
		candidates, probs = topPFilter(candidates, probs, p)
	}

	return int32(candidates[sampleFromDistribution(probs, rng)])
}

// topPFilter keeps the smallest prefix of candidates (already sorted by
// descending probability) whose cumulative probability reaches p, then
// renormalises the kept probabilities.
func topPFilter(candidates []int, probs []float32, p float32) ([]int, []float32) {
	var cum float32
	cut := len(candidates)
	for i, pr := range probs {
		cum += pr
		if cum >= p {
			cut = i + 1
			break
		}
	}

	kept := candidates[:cut]
	keptProbs := append([]float32(nil), probs[:cut]...)

	var sum float32
	for _, pr := range keptProbs {
		sum += pr
	}
	if sum > 0 {
		for i := range keptProbs {
			keptProbs[i] /= sum
		}
	}

	return kept, keptProbs
}

// sampleFromDistribution draws an index from probs (which must sum to ~1)
// using a single uniform draw from rng.
func sampleFromDistribution(probs []float32, rng *rand.Rand) int {
	r := rng.Float32()
	var cum float32
	for i, p := range probs {
		cum += p
		if r <= cum {
			return i
		}
	}
	return len(probs) - 1
}
