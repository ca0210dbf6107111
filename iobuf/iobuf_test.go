package iobuf

import (
	"math"
	"testing"
)

func TestAcquireFillsLengthsAndCumLogProbs(t *testing.T) {
	j := New(2, 3, 8)
	slot := j.Slice(0, 2)

	slot.Acquire([]int32{1, 2, 3}, 99, 3, 4)

	if got := slot.Length(0); got != 3 {
		t.Errorf("Length(0) = %d, want 3", got)
	}
	if got := slot.CumLogProb(0); got != 0 {
		t.Errorf("CumLogProb(0) = %v, want 0", got)
	}
	if got := slot.CumLogProb(1); !math.IsInf(float64(got), -1) {
		t.Errorf("CumLogProb(1) = %v, want -Inf", got)
	}
	if got := slot.SequenceLimitLength(); got != 7 {
		t.Errorf("SequenceLimitLength() = %d, want 7 (3+4)", got)
	}
	if got := slot.EndID(); got != 99 {
		t.Errorf("EndID() = %d, want 99", got)
	}
}

func TestAcquireTilesPromptAcrossBeams(t *testing.T) {
	j := New(1, 2, 8)
	slot := j.Slice(0, 2)
	slot.Acquire([]int32{5, 6}, 0, 2, 2)

	for beam := 0; beam < 2; beam++ {
		ids := slot.OutputIDs(beam)
		if ids[0] != 5 || ids[1] != 6 {
			t.Errorf("beam %d OutputIDs = %v, want prompt [5 6] tiled", beam, ids[:2])
		}
	}
}

func TestSlotViewsAreIsolatedAcrossBatchIndex(t *testing.T) {
	j := New(2, 1, 4)
	a := j.Slice(0, 1)
	b := j.Slice(1, 1)

	a.SetLength(0, 3)
	if got := b.Length(0); got != 0 {
		t.Errorf("slot 1's length was mutated by slot 0's write: got %d, want 0", got)
	}
}

func TestFinishedSumRoundTrip(t *testing.T) {
	j := New(1, 1, 4)
	slot := j.Slice(0, 1)
	slot.SetFinishedSum(1)
	if got := slot.FinishedSum(); got != 1 {
		t.Errorf("FinishedSum() = %d, want 1", got)
	}
}
