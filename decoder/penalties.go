package decoder

import (
	"math"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// renderTokenStream formats a token id sequence as a space-separated
// decimal string, the text stopPatterns are matched against. This keeps the
// stop-pattern matcher decoupled from any particular model's vocabulary —
// vocabulary-aware stop text is the engine's concern, out of scope here.
func renderTokenStream(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return " " + strings.Join(parts, " ") + " "
}

// applyTemperature divides every logit by temperature in place. temperature
// <= 0 is treated as 1 (disabled) rather than producing a division by zero.
func applyTemperature(logits []float32, temperature float32) {
	if temperature <= 0 {
		temperature = 1
	}
	for i := range logits {
		logits[i] /= temperature
	}
}

// applyRepetitionPenalty divides (for positive logits) or multiplies (for
// negative logits) every logit whose token has appeared before by penalty,
// the standard repetition-penalty convention: a penalty > 1 discourages
// repeats regardless of the logit's sign.
func applyRepetitionPenalty(logits []float32, seen map[int32]int32, penalty float32) {
	if penalty == 1 || penalty == 0 {
		return
	}
	for id := range seen {
		if int(id) >= len(logits) {
			continue
		}
		v := logits[id]
		if v > 0 {
			logits[id] = v / penalty
		} else {
			logits[id] = v * penalty
		}
	}
}

// applyPresencePenalty subtracts an additive penalty from every logit whose
// token has appeared at least once, independent of how many times.
func applyPresencePenalty(logits []float32, seen map[int32]int32, penalty float32) {
	if penalty == 0 {
		return
	}
	for id := range seen {
		if int(id) >= len(logits) {
			continue
		}
		logits[id] -= penalty
	}
}

// applyMinLength forces endID's logit to -Inf until step has reached
// minLength, so a slot cannot terminate before generating at least
// minLength tokens.
func applyMinLength(logits []float32, endID int32, step, minLength int) {
	if step >= minLength {
		return
	}
	if int(endID) >= 0 && int(endID) < len(logits) {
		logits[endID] = float32(math.Inf(-1))
	}
}

// applyBadWords masks every token id in any sequence of badWords to -Inf
// when it would complete that sequence given the most recent tokens in
// history. Each entry in badWords is a token-id sequence (TensorRT-LLM's
// badWordsList convention); the last id in a matched prefix is banned.
func applyBadWords(logits []float32, history []int32, badWords [][]int32) {
	for _, seq := range badWords {
		if len(seq) == 0 {
			continue
		}
		if hasSuffix(history, seq[:len(seq)-1]) {
			id := seq[len(seq)-1]
			if int(id) >= 0 && int(id) < len(logits) {
				logits[id] = float32(math.Inf(-1))
			}
		}
	}
}

func hasSuffix(history, prefix []int32) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(history) < len(prefix) {
		return false
	}
	tail := history[len(history)-len(prefix):]
	for i := range prefix {
		if tail[i] != prefix[i] {
			return false
		}
	}
	return true
}

// matchesStopPattern reports whether text matches any of the given
// dlclark/regexp2 patterns, used for stop-words matching that needs
// lookaround beyond what the standard library regexp package supports
// (e.g. "stop only if not preceded by an escape character").
func matchesStopPattern(text string, patterns []*regexp2.Regexp) bool {
	for _, p := range patterns {
		if p == nil {
			continue
		}
		if ok, _ := p.MatchString(text); ok {
			return true
		}
	}
	return false
}

// compileStopPatterns compiles a list of regex source strings with
// dlclark/regexp2, skipping any pattern that fails to compile rather than
// failing the whole request — a malformed stop pattern should not abort
// generation.
func compileStopPatterns(patterns []string) []*regexp2.Regexp {
	compiled := make([]*regexp2.Regexp, 0, len(patterns))
	for _, src := range patterns {
		re, err := regexp2.Compile(src, regexp2.None)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}
