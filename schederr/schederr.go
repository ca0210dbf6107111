// Package schederr defines the scheduler's error taxonomy: the concrete Go
// error values and wrapper types every other package wraps with %w at its
// call boundary, the same sentinel-error idiom kvcache.ErrCacheFull and the
// teacher's decode-failure wrapping use.
package schederr

import (
	"errors"
	"fmt"
)

// PreconditionViolation marks a request rejected before any work was
// dispatched: a shape mismatch, inputLength+maxNewTokens exceeding
// maxSequenceLength, or beamWidth exceeding maxBeamWidth.
type PreconditionViolation struct {
	Msg string
}

func (e *PreconditionViolation) Error() string { return "precondition violation: " + e.Msg }

// NewPrecondition wraps a formatted message as a *PreconditionViolation.
func NewPrecondition(format string, args ...any) error {
	return &PreconditionViolation{Msg: fmt.Sprintf(format, args...)}
}

// DeviceFault marks a propagated engine-execute failure. A session that
// observes one is poisoned: subsequent Generate calls fail fast rather than
// attempting further steps.
type DeviceFault struct {
	Cause error
}

func (e *DeviceFault) Error() string { return "device fault: " + e.Cause.Error() }
func (e *DeviceFault) Unwrap() error { return e.Cause }

// NewDeviceFault wraps cause as a *DeviceFault.
func NewDeviceFault(cause error) error { return &DeviceFault{Cause: cause} }

// ConfigConflict marks an unsupported configuration combination detected at
// Setup, such as an activation dtype the configured engine cannot execute.
type ConfigConflict struct {
	Msg string
}

func (e *ConfigConflict) Error() string { return "config conflict: " + e.Msg }

// NewConfigConflict wraps a formatted message as a *ConfigConflict.
func NewConfigConflict(format string, args ...any) error {
	return &ConfigConflict{Msg: fmt.Sprintf(format, args...)}
}

// ErrPartialCacheIndirection is returned when exactly one of
// source/target cache-indirection is supplied to Forward; both or neither
// is required.
var ErrPartialCacheIndirection = errors.New("schederr: exactly one of source/target cache indirection was provided")

// ErrSessionPoisoned is returned by Generate once a prior step has failed
// with a DeviceFault; the session never attempts further steps.
var ErrSessionPoisoned = errors.New("schederr: session poisoned by a prior device fault")

// IsPrecondition reports whether err is, or wraps, a *PreconditionViolation.
func IsPrecondition(err error) bool {
	var p *PreconditionViolation
	return errors.As(err, &p)
}

// IsDeviceFault reports whether err is, or wraps, a *DeviceFault.
func IsDeviceFault(err error) bool {
	var d *DeviceFault
	return errors.As(err, &d)
}
