package config

import (
	"log/slog"
	"testing"
)

func TestDefaultsWhenUnset(t *testing.T) {
	if got := BeamWidth(); got != 1 {
		t.Errorf("BeamWidth() = %d, want 1", got)
	}
	if got := TopK(); got != 0 {
		t.Errorf("TopK() = %d, want 0", got)
	}
	if got := Temperature(); got != 1.0 {
		t.Errorf("Temperature() = %v, want 1.0", got)
	}
	if got := MaxQueue(); got != 512 {
		t.Errorf("MaxQueue() = %d, want 512", got)
	}
}

func TestExplicitValueOverridesDefault(t *testing.T) {
	t.Setenv("INFER_BEAM_WIDTH", "4")
	if got := BeamWidth(); got != 4 {
		t.Errorf("BeamWidth() = %d, want 4", got)
	}
}

func TestVarTrimsWhitespaceAndQuotes(t *testing.T) {
	t.Setenv("INFER_TOP_K", " \"8\" ")
	if got := TopK(); got != 8 {
		t.Errorf("TopK() = %d, want 8 (quotes/whitespace trimmed)", got)
	}
}

func TestInvalidValueFallsBackToDefault(t *testing.T) {
	t.Setenv("INFER_TEMPERATURE", "not-a-float")
	if got := Temperature(); got != 1.0 {
		t.Errorf("Temperature() = %v, want default 1.0 on invalid input", got)
	}
}

func TestLogLevelDebugFlag(t *testing.T) {
	t.Setenv("INFER_DEBUG", "1")
	if got := LogLevel(); got != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want Debug", got)
	}
}

func TestLogLevelDefaultsToInfo(t *testing.T) {
	if got := LogLevel(); got != slog.LevelInfo {
		t.Errorf("LogLevel() = %v, want Info", got)
	}
}

func TestAsMapIncludesEveryRecognisedKey(t *testing.T) {
	m := AsMap()
	for _, key := range []string{
		"INFER_BEAM_WIDTH", "INFER_TEMPERATURE", "INFER_TOP_K", "INFER_TOP_P",
		"INFER_CONTEXT_FMHA", "INFER_MULTI_BLOCK", "INFER_POOL_SIZE", "INFER_MAX_QUEUE",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("AsMap() missing key %q", key)
		}
	}
}

func TestValuesRendersAsStrings(t *testing.T) {
	t.Setenv("INFER_BEAM_WIDTH", "2")
	vals := Values()
	if vals["INFER_BEAM_WIDTH"] != "2" {
		t.Errorf("Values()[INFER_BEAM_WIDTH] = %q, want %q", vals["INFER_BEAM_WIDTH"], "2")
	}
}
