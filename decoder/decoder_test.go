package decoder

import (
	"math"
	"math/rand"
	"testing"

	"github.com/nvidia/batchdecode/iobuf"
	"github.com/nvidia/batchdecode/sampling"
)

func TestClampNonFiniteReplacesNaNAndInf(t *testing.T) {
	logits := []float32{1, float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))}
	clampNonFinite(logits)
	for i, v := range logits {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Errorf("logits[%d] = %v, want a finite sentinel", i, v)
		}
	}
	if logits[0] != 1 {
		t.Errorf("logits[0] = %v, want unchanged 1", logits[0])
	}
}

func TestApplyTemperatureDisabledAtZero(t *testing.T) {
	logits := []float32{2, 4}
	applyTemperature(logits, 0)
	if logits[0] != 2 || logits[1] != 4 {
		t.Errorf("applyTemperature with temperature<=0 should be a no-op, got %v", logits)
	}
}

func TestApplyMinLengthMasksEndIDBeforeThreshold(t *testing.T) {
	logits := []float32{1, 2, 3}
	applyMinLength(logits, 1, 0, 5)
	if !math.IsInf(float64(logits[1]), -1) {
		t.Errorf("logits[endID] = %v, want -Inf before minLength reached", logits[1])
	}

	logits = []float32{1, 2, 3}
	applyMinLength(logits, 1, 5, 5)
	if logits[1] != 2 {
		t.Errorf("logits[endID] = %v, want unchanged once step >= minLength", logits[1])
	}
}

func TestApplyBadWordsMasksCompletion(t *testing.T) {
	logits := []float32{1, 2, 3}
	applyBadWords(logits, []int32{0, 1}, [][]int32{{0, 1, 2}})
	if !math.IsInf(float64(logits[2]), -1) {
		t.Errorf("logits[2] = %v, want -Inf (history [0,1] matches bad-word prefix)", logits[2])
	}
}

func TestDecoderGreedyStepsPicksFavoredToken(t *testing.T) {
	d := New()
	d.Setup(sampling.Slot{}, 1)

	out := iobuf.New(1, 1, 8).Slice(0, 1)
	out.Acquire([]int32{0}, 9, 1, 4)

	logits := []float32{-10, -10, -10, 10, -10}
	if err := d.ForwardAsync(out, Input{EndID: 9, Step: 0, InputLength: 1}, [][]float32{logits}); err != nil {
		t.Fatalf("ForwardAsync: %v", err)
	}

	if got := out.NewToken(0); got != 3 {
		t.Errorf("NewToken(0) = %d, want 3 (the favored token)", got)
	}
	if got := out.Length(0); got != 2 {
		t.Errorf("Length(0) = %d, want 2", got)
	}
}

func TestDecoderMarksFinishedOnEndToken(t *testing.T) {
	d := New()
	d.Setup(sampling.Slot{}, 1)

	out := iobuf.New(1, 1, 8).Slice(0, 1)
	out.Acquire([]int32{0}, 2, 1, 4)

	logits := []float32{-10, -10, 10}
	if err := d.ForwardAsync(out, Input{EndID: 2, Step: 0, InputLength: 1}, [][]float32{logits}); err != nil {
		t.Fatalf("ForwardAsync: %v", err)
	}

	if !out.Finished(0) {
		t.Error("Finished(0) = false, want true after sampling the end token")
	}
	if out.FinishedSum() != 1 {
		t.Errorf("FinishedSum() = %d, want 1", out.FinishedSum())
	}
}

func TestBeamHypothesesKeepsBestFirst(t *testing.T) {
	h := NewBeamHypotheses(2)
	h.Add([]int32{1}, -5)
	h.Add([]int32{2}, -1)
	h.Add([]int32{3}, -9)

	best, ok := h.Best()
	if !ok {
		t.Fatal("Best() ok = false, want true")
	}
	if best.CumLogProb != -1 {
		t.Errorf("Best().CumLogProb = %v, want -1", best.CumLogProb)
	}
}

func TestSelectBeamsAppliesDiversityPenalty(t *testing.T) {
	logits := [][]float32{{0, 0}, {0, 0}}
	cum := []float32{0, 0}

	withoutDiversity := selectBeams(logits, cum, 2, 0)
	withDiversity := selectBeams(logits, cum, 2, 1.0)

	if withoutDiversity[0].cumLogProb == withDiversity[0].cumLogProb && withDiversity[0].parentBeam != 0 {
		t.Error("expected diversity penalty to change candidate ordering for beam > 0")
	}
}

func TestSampleTopKTopPRespectsTopK(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	logits := []float32{10, 1, 1, 1, 1}
	for i := 0; i < 20; i++ {
		tok := sampleTopKTopP(logits, 1, 1.0, rng)
		if tok != 0 {
			t.Fatalf("sampleTopKTopP with k=1: got token %d, want 0 (the only candidate)", tok)
		}
	}
}
