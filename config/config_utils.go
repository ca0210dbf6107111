package config

import "fmt"

// EnvVar describes one recognised environment variable and its current
// resolved value, for diagnostics ("what did this process actually read").
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every recognised configuration key with its current value
// and a one-line description, mirroring the ambient envconfig.AsMap shape.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"INFER_BEAM_WIDTH":          {"INFER_BEAM_WIDTH", BeamWidth(), "Beam width; >1 enables beam search"},
		"INFER_TEMPERATURE":         {"INFER_TEMPERATURE", Temperature(), "Softmax temperature applied to logits"},
		"INFER_REPETITION_PENALTY":  {"INFER_REPETITION_PENALTY", RepetitionPenalty(), "Repetition penalty multiplier"},
		"INFER_PRESENCE_PENALTY":    {"INFER_PRESENCE_PENALTY", PresencePenalty(), "Presence penalty additive term"},
		"INFER_MIN_LENGTH":          {"INFER_MIN_LENGTH", MinLength(), "Minimum generated length before endId is allowed"},
		"INFER_TOP_K":               {"INFER_TOP_K", TopK(), "Top-K truncation (0 disables)"},
		"INFER_TOP_P":               {"INFER_TOP_P", TopP(), "Top-P nucleus truncation"},
		"INFER_RANDOM_SEED":         {"INFER_RANDOM_SEED", RandomSeed(), "RNG seed (0 uses the decoder's fixed built-in seed)"},
		"INFER_LENGTH_PENALTY":      {"INFER_LENGTH_PENALTY", LengthPenalty(), "Beam-search length penalty exponent"},
		"INFER_BEAM_DIVERSITY_RATE": {"INFER_BEAM_DIVERSITY_RATE", BeamSearchDiversityRate(), "Beam-search diversity penalty"},
		"INFER_CONTEXT_FMHA":        {"INFER_CONTEXT_FMHA", ContextFMHA(), "Use the fused context-attention kernel path when eligible"},
		"INFER_MULTI_BLOCK":         {"INFER_MULTI_BLOCK", MultiBlockMode(), "Split generation-phase K/V history across partial-result blocks"},
		"INFER_DEBUG":               {"INFER_DEBUG", LogLevel(), "Log verbosity (e.g. INFER_DEBUG=1)"},
		"INFER_POOL_SIZE":           {"INFER_POOL_SIZE", PoolSize(), "Number of concurrent decoding slots"},
		"INFER_MAX_QUEUE":           {"INFER_MAX_QUEUE", MaxQueue(), "Maximum requests admitted while the pool is full"},
	}
}

// Values renders AsMap as plain strings, for printing in a CLI "config"
// subcommand.
func Values() map[string]string {
	vals := make(map[string]string, len(AsMap()))
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
