// Package session implements the Session Driver: the outer generation loop
// binding a compiled engine's execution to the Decoder Batch Scheduler.
// Grounded on the teacher's runner loop shape (run -> processBatch ->
// notify waiters), generalized from one CGo-bound llama.cpp context to the
// engine.Engine interface.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/schederr"
	"github.com/nvidia/batchdecode/scheduler"
)

// TokenCallback is invoked once per active slot/beam after each decode
// step, with the token just written to that beam's output.
type TokenCallback func(batchIdx, beam int, token int32, finished bool)

// Driver owns the compiled engine and drives Generate's outer loop against
// a Scheduler the caller has already populated via NewRequest/NewBatch.
type Driver struct {
	engine    engine.Engine
	scheduler *scheduler.Scheduler
	log       *slog.Logger

	// plan is neither populated nor read by any method: Generate builds
	// each step's engine.Step directly on every iteration.
	plan []func(step int) engine.Step

	// poisoned is set once a step fails with a DeviceFault; every later
	// Generate call then returns schederr.ErrSessionPoisoned.
	poisoned bool
}

// New binds a Driver to an already-Setup Scheduler and a compiled Engine
// whose Descriptor is assumed consistent with the scheduler's shape.
func New(eng engine.Engine, sched *scheduler.Scheduler, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{engine: eng, scheduler: sched, log: log}
}

// Generate runs the outer loop: execute the engine for the current step,
// forward the resulting logits through the scheduler, invoke onToken for
// every active slot/beam, and stop once the scheduler reports every active
// slot finished or maxSteps is reached. onToken may be nil. An engine
// failure (other than ctx ending) is wrapped as a schederr.DeviceFault; a
// DeviceFault from the engine or the scheduler poisons the Driver.
func (d *Driver) Generate(ctx context.Context, maxSteps int, inputIDsForStep func(step int) []int32, batchSize, beamWidth int, onToken TokenCallback) error {
	if d.poisoned {
		return schederr.ErrSessionPoisoned
	}
	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		in := engine.Step{
			StepIndex: step,
			BatchSize: batchSize,
			BeamWidth: beamWidth,
			InputIDs:  inputIDsForStep(step),
		}

		logits, err := d.engine.Execute(ctx, in)
		if err != nil {
			if ctx.Err() == nil {
				d.poisoned = true
				err = schederr.NewDeviceFault(err)
			}
			return fmt.Errorf("session: engine execute at step %d: %w", step, err)
		}

		if err := d.scheduler.Forward(ctx, logits, step); err != nil {
			if schederr.IsDeviceFault(err) {
				d.poisoned = true
			}
			return fmt.Errorf("session: scheduler forward at step %d: %w", step, err)
		}

		if onToken != nil {
			d.notify(batchSize, beamWidth, onToken)
		}

		if d.allFinished(batchSize) {
			d.log.Info("session generate complete", "steps", step+1)
			return nil
		}
	}

	d.log.Info("session generate reached maxSteps", "maxSteps", maxSteps)
	return nil
}

func (d *Driver) notify(batchSize, beamWidth int, onToken TokenCallback) {
	for b := 0; b < batchSize; b++ {
		if !d.scheduler.Active(b) {
			continue
		}
		finished := d.scheduler.State(b) == scheduler.Finished
		for beam := 0; beam < beamWidth; beam++ {
			onToken(b, beam, d.scheduler.NewToken(b, beam), finished)
		}
	}
}

func (d *Driver) allFinished(batchSize int) bool {
	for b := 0; b < batchSize; b++ {
		if d.scheduler.Active(b) && d.scheduler.State(b) != scheduler.Finished {
			return false
		}
	}
	return true
}
