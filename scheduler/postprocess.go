package scheduler

// PostProcessRequest runs GatherTree on batchIdx's slot, reconstructing its
// winning beam in place (a no-op for beamWidth==1), and records the slot as
// released in the scheduler's metrics. It changes neither state nor active: a
// caller reads the slot's final output through GetFinalOutputIds or
// directly before starting a new request there.
func (s *Scheduler) PostProcessRequest(batchIdx int) {
	sl := s.slots[batchIdx]
	sl.decoder.GatherTree(sl.view)
	s.metrics.SlotReleased()
}

// GetFinalOutputIds runs PostProcessRequest for every active slot and
// returns each slot's final output id sequence (beam 0, after GatherTree),
// one slice per batch index in ascending order. Inactive slots contribute
// a nil entry.
func (s *Scheduler) GetFinalOutputIds() [][]int32 {
	out := make([][]int32, s.maxBatchSize)
	for i := 0; i < s.maxBatchSize; i++ {
		sl := s.slots[i]
		if !sl.active {
			continue
		}
		s.PostProcessRequest(i)

		length := sl.view.Length(0)
		out[i] = append([]int32(nil), sl.view.OutputIDs(0)[:length]...)
	}
	return out
}

// Release marks batchIdx Idle and inactive, ready for NewRequest to reuse
// without any prior PostProcessRequest call having been made (e.g. a
// caller abandoning a request early).
func (s *Scheduler) Release(batchIdx int) {
	sl := s.slots[batchIdx]
	sl.state = Idle
	sl.active = false
}
