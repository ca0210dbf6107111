package scheduler

import (
	"context"
	"testing"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/sampling"
)

func constantLogits(batchSize, beamWidth, vocab int, favoredToken int32) engine.Logits {
	values := make([]float32, batchSize*beamWidth*vocab)
	l := engine.Logits{BatchSize: batchSize, BeamWidth: beamWidth, VocabPadded: vocab, Values: values}
	for b := 0; b < batchSize; b++ {
		for beam := 0; beam < beamWidth; beam++ {
			row := l.Row(b, beam)
			for i := range row {
				row[i] = -1
			}
			row[favoredToken] = 10
		}
	}
	return l
}

func TestSchedulerGreedyGenerationReachesEndToken(t *testing.T) {
	const vocab = 16
	const endID = int32(2)

	s := Setup(2, 1, 8, engine.DTypeF32, nil)

	if err := s.NewRequest(0, Request{Prompt: []int32{5, 6}, EndID: endID, MaxNewTokens: 4, BeamWidth: 1}, sampling.Slot{}); err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	logits := constantLogits(2, 1, vocab, endID)

	ctx := context.Background()
	for step := 0; step < 4; step++ {
		if err := s.Forward(ctx, logits, step); err != nil {
			t.Fatalf("Forward step %d: %v", step, err)
		}
		if s.State(0) == Finished {
			break
		}
	}

	if s.State(0) != Finished {
		t.Fatalf("slot 0 state = %v, want Finished", s.State(0))
	}

	ids := s.GetFinalOutputIds()
	if len(ids[0]) == 0 || ids[0][len(ids[0])-1] != endID {
		t.Errorf("final output ids = %v, want to end with endID %d", ids[0], endID)
	}
}

func TestSchedulerRejectsOutOfRangeBatchIdx(t *testing.T) {
	s := Setup(1, 1, 8, engine.DTypeF32, nil)
	err := s.NewRequest(5, Request{Prompt: []int32{1}, MaxNewTokens: 1, BeamWidth: 1}, sampling.Slot{})
	if err == nil {
		t.Fatal("NewRequest with out-of-range batchIdx: want error, got nil")
	}
}

func TestSchedulerRejectsOversizedRequest(t *testing.T) {
	s := Setup(1, 1, 4, engine.DTypeF32, nil)
	err := s.NewRequest(0, Request{Prompt: []int32{1, 2, 3}, MaxNewTokens: 4, BeamWidth: 1}, sampling.Slot{})
	if err == nil {
		t.Fatal("NewRequest exceeding maxSequenceLength: want error, got nil")
	}
}

func TestSchedulerInactiveSlotSkippedByForward(t *testing.T) {
	s := Setup(2, 1, 8, engine.DTypeF32, nil)
	if err := s.NewRequest(0, Request{Prompt: []int32{1}, EndID: 2, MaxNewTokens: 4, BeamWidth: 1}, sampling.Slot{}); err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	logits := constantLogits(2, 1, 16, 2)
	if err := s.Forward(context.Background(), logits, 0); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if s.State(1) != Idle {
		t.Errorf("untouched slot 1 state = %v, want Idle", s.State(1))
	}
}
