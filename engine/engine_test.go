package engine

import (
	"context"
	"testing"
)

func TestFakeReplaysScriptCyclically(t *testing.T) {
	script := []Logits{
		{BatchSize: 1, BeamWidth: 1, VocabPadded: 1, Values: []float32{1}},
		{BatchSize: 1, BeamWidth: 1, VocabPadded: 1, Values: []float32{2}},
	}
	fake := NewFake(Descriptor{}, script)

	for i, want := range []float32{1, 2, 1, 2} {
		out, err := fake.Execute(context.Background(), Step{})
		if err != nil {
			t.Fatalf("Execute call %d: %v", i, err)
		}
		if out.Values[0] != want {
			t.Errorf("call %d: got %v, want %v", i, out.Values[0], want)
		}
	}
}

func TestFakeResetRewindsScript(t *testing.T) {
	script := []Logits{{Values: []float32{1}}, {Values: []float32{2}}}
	fake := NewFake(Descriptor{}, script)

	fake.Execute(context.Background(), Step{})
	fake.Execute(context.Background(), Step{})
	fake.Reset()

	out, err := fake.Execute(context.Background(), Step{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Values[0] != 1 {
		t.Errorf("after Reset, first Execute = %v, want 1", out.Values[0])
	}
}

func TestFakeRejectsEmptyScript(t *testing.T) {
	fake := NewFake(Descriptor{}, nil)
	if _, err := fake.Execute(context.Background(), Step{}); err == nil {
		t.Error("Execute with empty script: want error, got nil")
	}
}

func TestLogitsRowSlicesCorrectOffset(t *testing.T) {
	l := Logits{BatchSize: 2, BeamWidth: 2, VocabPadded: 3, Values: []float32{
		0, 0, 0, 1, 1, 1,
		2, 2, 2, 3, 3, 3,
	}}
	row := l.Row(1, 0)
	if row[0] != 2 {
		t.Errorf("Row(1,0)[0] = %v, want 2", row[0])
	}
}

func TestDTypeIs16Bit(t *testing.T) {
	cases := map[DType]bool{DTypeF32: false, DTypeF16: true, DTypeBF16: true}
	for dtype, want := range cases {
		if got := dtype.Is16Bit(); got != want {
			t.Errorf("%v.Is16Bit() = %v, want %v", dtype, got, want)
		}
	}
}

func TestReferenceMatmulMultipliesRowMajor(t *testing.T) {
	mm := ReferenceMatmul{}
	a := []float32{1, 2, 3, 4} // 2x2
	b := []float32{5, 6, 7, 8} // 2x2
	out, err := mm.BatchedGEMM(a, b, Layout{Rows: 2, Cols: 2}, Layout{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatalf("BatchedGEMM: %v", err)
	}
	want := []float32{19, 22, 43, 50}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestReferenceMatmulRejectsIncompatibleLayouts(t *testing.T) {
	mm := ReferenceMatmul{}
	_, err := mm.BatchedGEMM([]float32{1, 2}, []float32{1, 2}, Layout{Rows: 1, Cols: 2}, Layout{Rows: 3, Cols: 1})
	if err == nil {
		t.Error("BatchedGEMM with incompatible layouts: want error, got nil")
	}
}
