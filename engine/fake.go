package engine

import (
	"context"
	"fmt"
)

// Fake is a deterministic engine that replays a fixed sequence of logits,
// one per call to Execute, regardless of the step's actual input. It exists
// so the scheduler, session, and decoder can be tested for the properties
// in SPEC_FULL.md §8 (idempotence, batch/single-slot parity) without a real
// accelerator.
type Fake struct {
	descriptor Descriptor
	// Script holds one Logits value per call index; Execute returns
	// Script[callIndex % len(Script)] and then advances callIndex, so a
	// short script can drive an arbitrarily long generation by repeating.
	Script []Logits

	callIndex int
}

// NewFake returns a Fake engine with the given descriptor and replay
// script. The script must not be empty.
func NewFake(descriptor Descriptor, script []Logits) *Fake {
	return &Fake{descriptor: descriptor, Script: script}
}

func (f *Fake) Descriptor() Descriptor { return f.descriptor }

// Execute ignores step's contents (a fake has no weights to evaluate
// against) and returns the next scripted Logits value.
func (f *Fake) Execute(ctx context.Context, step Step) (Logits, error) {
	if err := ctx.Err(); err != nil {
		return Logits{}, err
	}
	if len(f.Script) == 0 {
		return Logits{}, fmt.Errorf("engine: fake has an empty script")
	}

	out := f.Script[f.callIndex%len(f.Script)]
	f.callIndex++
	return out, nil
}

// Reset rewinds the script to its first entry, so a Fake can be reused
// across repeated Generate() calls in an idempotence test.
func (f *Fake) Reset() {
	f.callIndex = 0
}
