// Package config reads the scheduler's recognised configuration keys from
// environment variables, following the same "parse on every call, cheap
// enough, defaults inline" pattern used elsewhere in this codebase.
//
// The decoder and scheduler never read these variables themselves: a caller
// (such as the CLI's generate subcommand) reads them and passes the values
// in explicitly, as sampling.Batch fields or scheduler.Setup arguments.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns an environment variable, trimming surrounding whitespace and
// quotes the way shells often leave them when a value is exported from a
// quoted assignment.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BeamWidth returns INFER_BEAM_WIDTH, defaulting to 1 (greedy/sampling, no
// beam search).
func BeamWidth() int {
	return intWithDefault("INFER_BEAM_WIDTH", 1)
}

// Temperature returns INFER_TEMPERATURE, defaulting to 1.0 (no rescaling).
func Temperature() float32 {
	return floatWithDefault("INFER_TEMPERATURE", 1.0)
}

// RepetitionPenalty returns INFER_REPETITION_PENALTY, defaulting to 1.0
// (disabled).
func RepetitionPenalty() float32 {
	return floatWithDefault("INFER_REPETITION_PENALTY", 1.0)
}

// PresencePenalty returns INFER_PRESENCE_PENALTY, defaulting to 0 (disabled).
func PresencePenalty() float32 {
	return floatWithDefault("INFER_PRESENCE_PENALTY", 0)
}

// MinLength returns INFER_MIN_LENGTH, defaulting to 0 (no minimum).
func MinLength() int {
	return intWithDefault("INFER_MIN_LENGTH", 0)
}

// TopK returns INFER_TOP_K, defaulting to 0 (disabled, full vocabulary).
func TopK() int {
	return intWithDefault("INFER_TOP_K", 0)
}

// TopP returns INFER_TOP_P, defaulting to 1.0 (disabled).
func TopP() float32 {
	return floatWithDefault("INFER_TOP_P", 1.0)
}

// RandomSeed returns INFER_RANDOM_SEED, defaulting to 0. A decoder given
// seed 0 (or no seed) uses one fixed built-in seed; see Decoder.Setup.
func RandomSeed() uint64 {
	if s := Var("INFER_RANDOM_SEED"); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
		slog.Warn("invalid INFER_RANDOM_SEED, ignoring", "value", s)
	}
	return 0
}

// LengthPenalty returns INFER_LENGTH_PENALTY, defaulting to 1.0 (neutral).
func LengthPenalty() float32 {
	return floatWithDefault("INFER_LENGTH_PENALTY", 1.0)
}

// BeamSearchDiversityRate returns INFER_BEAM_DIVERSITY_RATE, defaulting to 0
// (no diversity penalty).
func BeamSearchDiversityRate() float32 {
	return floatWithDefault("INFER_BEAM_DIVERSITY_RATE", 0)
}

// ContextFMHA reports whether the fused context-attention kernel path should
// be used when the dtype allows it. Defaults to enabled.
func ContextFMHA() bool {
	return boolWithDefault("INFER_CONTEXT_FMHA", true)
}

// MultiBlockMode reports whether generation attention should split long
// K/V histories across partial-result blocks. Defaults to disabled.
func MultiBlockMode() bool {
	return boolWithDefault("INFER_MULTI_BLOCK", false)
}

// LogLevel returns the configured slog level, read from INFER_DEBUG the same
// way the ambient config package reads OLLAMA_DEBUG: unset or "0" is Info,
// any other truthy value or a signed integer multiplier is Debug/Warn/Error.
func LogLevel() slog.Level {
	level := slog.LevelInfo

	if s := Var("INFER_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil && i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// PoolSize returns INFER_POOL_SIZE, a decoding-slot count, defaulting to 1.
// scheduler.Setup takes its slot count as an argument and does not read it.
func PoolSize() int {
	return intWithDefault("INFER_POOL_SIZE", 1)
}

// MaxQueue returns INFER_MAX_QUEUE, a request-queue limit, defaulting to 512.
// The scheduler has no request queue: NewRequest binds a request directly to
// a slot and does not read this value.
func MaxQueue() int {
	return intWithDefault("INFER_MAX_QUEUE", 512)
}

func intWithDefault(key string, defaultValue int) int {
	if s := Var(key); s != "" {
		if n, err := strconv.Atoi(s); err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		} else {
			return n
		}
	}
	return defaultValue
}

func floatWithDefault(key string, defaultValue float32) float32 {
	if s := Var(key); s != "" {
		if f, err := strconv.ParseFloat(s, 32); err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		} else {
			return float32(f)
		}
	}
	return defaultValue
}

func boolWithDefault(key string, defaultValue bool) bool {
	if s := Var(key); s != "" {
		if b, err := strconv.ParseBool(s); err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
		} else {
			return b
		}
	}
	return defaultValue
}
