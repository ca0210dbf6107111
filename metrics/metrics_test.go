package metrics

import (
	"testing"
	"time"
)

func TestSlotAcquiredReleasedTracksInUse(t *testing.T) {
	c := New()
	c.SlotAcquired()
	c.SlotAcquired()
	c.SlotReleased()

	snap := c.Snapshot()
	if snap.SlotsInUse != 1 {
		t.Errorf("SlotsInUse = %d, want 1", snap.SlotsInUse)
	}
}

func TestSlotReleasedNeverGoesNegative(t *testing.T) {
	c := New()
	c.SlotReleased()
	c.SlotReleased()

	if snap := c.Snapshot(); snap.SlotsInUse != 0 {
		t.Errorf("SlotsInUse = %d, want 0 (must not go negative)", snap.SlotsInUse)
	}
}

func TestForwardStepAccumulatesMeanLatencyAndTokens(t *testing.T) {
	c := New()
	c.ForwardStep(10*time.Millisecond, 4)
	c.ForwardStep(30*time.Millisecond, 6)

	snap := c.Snapshot()
	if snap.ForwardCalls != 2 {
		t.Errorf("ForwardCalls = %d, want 2", snap.ForwardCalls)
	}
	if snap.TokensGenerated != 10 {
		t.Errorf("TokensGenerated = %d, want 10", snap.TokensGenerated)
	}
	if want := 20 * time.Millisecond; snap.MeanForwardLatency != want {
		t.Errorf("MeanForwardLatency = %v, want %v", snap.MeanForwardLatency, want)
	}
}

func TestSnapshotWithNoForwardCallsHasZeroMean(t *testing.T) {
	c := New()
	if snap := c.Snapshot(); snap.MeanForwardLatency != 0 {
		t.Errorf("MeanForwardLatency = %v, want 0 with no calls recorded", snap.MeanForwardLatency)
	}
}
