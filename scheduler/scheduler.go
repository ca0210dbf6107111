// Package scheduler implements the Decoder Batch Scheduler: a fixed-
// capacity pool of decoding slots, each bound to its own goroutine-backed
// "stream", driven through a join barrier once per generation step.
// Grounded on the teacher's runner/llamarunner continuous-batching loop
// (processBatch's per-sequence dispatch and s.cond.Wait() join point),
// translated from CUDA streams/events into goroutines, channels, and
// golang.org/x/sync/semaphore as SPEC_FULL.md §5 specifies.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/nvidia/batchdecode/decoder"
	"github.com/nvidia/batchdecode/engine"
	"github.com/nvidia/batchdecode/iobuf"
	"github.com/nvidia/batchdecode/metrics"
	"github.com/nvidia/batchdecode/sampling"
	"github.com/nvidia/batchdecode/schederr"
)

// State is a slot's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

// Request is one caller-supplied generation request bound to a slot by
// NewRequest.
type Request struct {
	ID           uuid.UUID
	Prompt       []int32
	EndID        int32
	MaxNewTokens int
	BeamWidth    int
}

// slot is the scheduler's private bookkeeping for one batch index; its
// exported counterpart (state, step) is read through Scheduler's methods.
type slot struct {
	state        State
	active       bool
	decoder      *decoder.Decoder
	view         iobuf.Slot
	step         int
	maxNewTokens int
	beamWidth    int
	inputLength  int
	endID        int32
	requestID    uuid.UUID

	work chan forwardJob
}

type forwardJob struct {
	logitsPerBeam [][]float32
	in            decoder.Input
	result        chan error
}

// Scheduler owns the joint I/O tensors and the fixed-size pool of slots.
type Scheduler struct {
	maxBatchSize      int
	maxBeamWidth      int
	maxSequenceLength int
	dtype             engine.DType

	joint *iobuf.Joint
	slots []*slot
	sem   *semaphore.Weighted

	metrics *metrics.Counters
	log     *slog.Logger
}

// Setup allocates the joint I/O tensors, one goroutine-backed stream per
// slot, and one Single-Slot Decoder per slot. All slots start Idle.
func Setup(maxBatchSize, maxBeamWidth, maxSequenceLength int, dtype engine.DType, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		maxBatchSize:      maxBatchSize,
		maxBeamWidth:      maxBeamWidth,
		maxSequenceLength: maxSequenceLength,
		dtype:             dtype,
		joint:             iobuf.New(maxBatchSize, maxBeamWidth, maxSequenceLength),
		slots:             make([]*slot, maxBatchSize),
		sem:               semaphore.NewWeighted(int64(maxBatchSize)),
		metrics:           metrics.New(),
		log:               log,
	}

	for i := range s.slots {
		sl := &slot{
			decoder: decoder.New(),
			view:    s.joint.Slice(i, maxBeamWidth),
			work:    make(chan forwardJob),
		}
		s.slots[i] = sl
		go runStream(sl)
	}

	log.Info("scheduler setup", "maxBatchSize", maxBatchSize, "maxBeamWidth", maxBeamWidth, "maxSequenceLength", maxSequenceLength, "dtype", dtype.String())
	return s
}

// runStream is a slot's dedicated goroutine: the idiomatic analogue of a
// CUDA stream, consuming one forwardJob at a time from its work channel for
// the lifetime of the Scheduler.
func runStream(sl *slot) {
	for job := range sl.work {
		job.result <- sl.decoder.ForwardAsync(sl.view, job.in, job.logitsPerBeam)
	}
}

// State reports the current lifecycle state of batchIdx.
func (s *Scheduler) State(batchIdx int) State {
	return s.slots[batchIdx].state
}

// Metrics returns the scheduler's in-memory counters snapshot.
func (s *Scheduler) Metrics() metrics.Snapshot {
	return s.metrics.Snapshot()
}

// NewRequest binds req to batchIdx: preconditions are checked first (an
// out-of-range index, inputLength+maxNewTokens exceeding maxSequenceLength, or a beam
// width exceeding maxBeamWidth is a schederr.PreconditionViolation, never a
// panic), then the slot's state resets, its joint-tensor view is
// initialised via iobuf.Slot.Acquire, and the slot transitions Idle/
// Finished -> Running.
func (s *Scheduler) NewRequest(batchIdx int, req Request, cfg sampling.Slot) error {
	if batchIdx < 0 || batchIdx >= s.maxBatchSize {
		return schederr.NewPrecondition("scheduler: batchIdx %d out of range [0,%d)", batchIdx, s.maxBatchSize)
	}

	inputLength := len(req.Prompt)
	if inputLength+req.MaxNewTokens > s.maxSequenceLength {
		return schederr.NewPrecondition("scheduler: inputLength+maxNewTokens (%d) exceeds maxSequenceLength (%d)", inputLength+req.MaxNewTokens, s.maxSequenceLength)
	}

	beamWidth := req.BeamWidth
	if beamWidth <= 0 {
		beamWidth = cfg.BeamWidth.Get(1)
	}
	if beamWidth > s.maxBeamWidth {
		return schederr.NewPrecondition("scheduler: beamWidth %d exceeds maxBeamWidth %d", beamWidth, s.maxBeamWidth)
	}

	requestID := req.ID
	if requestID == uuid.Nil {
		requestID = uuid.New()
	}

	sl := s.slots[batchIdx]
	sl.view = s.joint.Slice(batchIdx, beamWidth)
	sl.view.Acquire(req.Prompt, req.EndID, inputLength, req.MaxNewTokens)
	sl.decoder.Setup(cfg, beamWidth)

	sl.state = Running
	sl.active = true
	sl.step = 0
	sl.maxNewTokens = req.MaxNewTokens
	sl.beamWidth = beamWidth
	sl.inputLength = inputLength
	sl.endID = req.EndID
	sl.requestID = requestID

	s.metrics.SlotAcquired()
	s.log.Debug("scheduler new request", "batchIdx", batchIdx, "requestID", requestID, "inputLength", inputLength, "beamWidth", beamWidth)
	return nil
}

// NewBatch splits a dense batch of requests into per-slot NewRequest calls,
// resolving batch-wide sampling config to a per-slot Slot config for each.
func (s *Scheduler) NewBatch(inputs []Request, cfg *sampling.Batch) error {
	for i, req := range inputs {
		// TODO: packed/inflight batching (variable active-slot count per
		// step, dense<->packed conversion) is an Open Question this rewrite
		// defers; NewBatch assumes inputs[i] maps 1:1 to batch index i.
		if err := s.NewRequest(i, req, cfg.Resolve(i)); err != nil {
			return fmt.Errorf("scheduler: request %d: %w", i, err)
		}
	}
	return nil
}
