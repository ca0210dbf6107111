package sampling

import "testing"

func TestValueGetReturnsDefaultWhenUnset(t *testing.T) {
	var v Value[int]
	if got := v.Get(7); got != 7 {
		t.Errorf("Get(7) on unset Value = %d, want 7", got)
	}
	if v.IsSet() {
		t.Error("IsSet() on zero Value = true, want false")
	}
}

func TestValueGetReturnsSetValue(t *testing.T) {
	v := Set(3)
	if got := v.Get(7); got != 3 {
		t.Errorf("Get(7) on Set(3) = %d, want 3", got)
	}
	if !v.IsSet() {
		t.Error("IsSet() on Set(3) = false, want true")
	}
}

func TestResolveBroadcastsLengthOneField(t *testing.T) {
	b := &Batch{Temperature: []Value[float32]{Set(float32(0.5))}}

	for _, idx := range []int{0, 1, 2} {
		slot := b.Resolve(idx)
		if got := slot.Temperature.Get(1.0); got != 0.5 {
			t.Errorf("Resolve(%d).Temperature = %v, want 0.5 (broadcast)", idx, got)
		}
	}
}

func TestResolveIndexesFullLengthField(t *testing.T) {
	b := &Batch{TopK: []Value[int]{Set(10), Set(20), Set(30)}}

	for idx, want := range []int{10, 20, 30} {
		slot := b.Resolve(idx)
		if got := slot.TopK.Get(0); got != want {
			t.Errorf("Resolve(%d).TopK = %d, want %d", idx, got, want)
		}
	}
}

func TestResolveEmptyFieldStaysAbsent(t *testing.T) {
	b := &Batch{}
	slot := b.Resolve(0)
	if slot.MinLength.IsSet() {
		t.Error("Resolve(0).MinLength on empty Batch: IsSet() = true, want false")
	}
}

func TestResolveCarriesBatchWideBeamFields(t *testing.T) {
	b := &Batch{LengthPenalty: Set(float32(1.2)), BeamSearchDiversityRate: Set(float32(0.1))}
	slot := b.Resolve(0)
	if got := slot.LengthPenalty.Get(1.0); got != 1.2 {
		t.Errorf("LengthPenalty = %v, want 1.2", got)
	}
	if got := slot.BeamSearchDiversityRate.Get(0); got != 0.1 {
		t.Errorf("BeamSearchDiversityRate = %v, want 0.1", got)
	}
}

func TestResolveStopPatternsPerSlot(t *testing.T) {
	b := &Batch{StopPatterns: [][]string{{"a"}, {"b"}}}
	if got := b.Resolve(0).StopPatterns; len(got) != 1 || got[0] != "a" {
		t.Errorf("Resolve(0).StopPatterns = %v, want [a]", got)
	}
	if got := b.Resolve(1).StopPatterns; len(got) != 1 || got[0] != "b" {
		t.Errorf("Resolve(1).StopPatterns = %v, want [b]", got)
	}
}
