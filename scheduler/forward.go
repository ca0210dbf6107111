package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nvidia/batchdecode/decoder"
	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/schederr"
)

// Forward drives one decode step across every active, non-finished slot in
// ascending index order (the scheduler's deterministic tie-break): each
// slot's stream goroutine is handed this step's logits, the main goroutine
// joins on all of them (the "stop event" synchronise from SPEC_FULL.md
// §4.F), and the slot-level finished flag is updated from the joined,
// now-host-visible finishedSum counters.
func (s *Scheduler) Forward(ctx context.Context, logits engine.Logits, step int) error {
	if logits.BatchSize != s.maxBatchSize {
		return schederr.NewPrecondition("scheduler: logits batch size %d does not match scheduler batch size %d", logits.BatchSize, s.maxBatchSize)
	}

	start := time.Now()

	var wg sync.WaitGroup
	errs := make([]error, s.maxBatchSize)

	for i := 0; i < s.maxBatchSize; i++ {
		sl := s.slots[i]
		if !sl.active || sl.state != Running {
			continue
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("scheduler: acquiring stream slot %d: %w", i, err)
		}

		wg.Add(1)
		go func(i int, sl *slot) {
			defer wg.Done()
			defer s.sem.Release(1)

			logitsPerBeam := make([][]float32, sl.beamWidth)
			for b := 0; b < sl.beamWidth; b++ {
				logitsPerBeam[b] = logits.Row(i, b)
			}

			result := make(chan error, 1)
			sl.work <- forwardJob{
				logitsPerBeam: logitsPerBeam,
				in: decoder.Input{
					EndID:       sl.endID,
					Step:        sl.step,
					InputLength: sl.inputLength,
				},
				result: result,
			}
			errs[i] = <-result
		}(i, sl)
	}

	wg.Wait() // stop-event synchronise: the single host suspension point per Forward call

	var tokens int
	for i := 0; i < s.maxBatchSize; i++ {
		sl := s.slots[i]
		if !sl.active || sl.state != Running {
			continue
		}
		if errs[i] != nil {
			return fmt.Errorf("scheduler: slot %d: %w", i, schederr.NewDeviceFault(errs[i]))
		}

		sl.step++
		tokens += sl.beamWidth

		finishedSum := int(sl.view.FinishedSum())
		if sl.step >= sl.maxNewTokens || finishedSum == sl.beamWidth {
			sl.state = Finished
		}
	}

	s.metrics.ForwardStep(time.Since(start), tokens)
	s.log.Debug("scheduler forward", "step", step, "tokens", tokens)
	return nil
}

// Active reports whether batchIdx holds a live (non-Idle) request.
func (s *Scheduler) Active(batchIdx int) bool {
	return s.slots[batchIdx].active
}

// NewToken returns the token most recently written to batchIdx/beam by the
// last Forward call.
func (s *Scheduler) NewToken(batchIdx, beam int) int32 {
	return s.slots[batchIdx].view.NewToken(beam)
}
