// Package kvcache implements the addressing layer over decoder key/value
// storage: a Linear variant backed by one contiguous slice per sequence, and
// a Paged variant backed by a per-sequence table of fixed-size block
// pointers. Neither variant owns device memory in this rewrite; both address
// into plain Go slices, with the engine boundary (see package engine) being
// the only place a real device buffer would be threaded through.
package kvcache

import (
	"errors"
	"fmt"

	"github.com/nvidia/batchdecode/quant"
)

// ErrCacheFull is returned when a Paged view needs a new block for a
// sequence and its free list is empty. Linear views report an out-of-range
// timestep with a plain error instead.
var ErrCacheFull = errors.New("kvcache: no free storage for sequence")

// ErrNotSupported is returned by operations a particular view variant does
// not implement, such as Paged.Address, which has no sequence to look up.
var ErrNotSupported = errors.New("kvcache: operation not supported by this view")

// Quantisation selects the element type a View stores K/V data as.
type Quantisation int

const (
	// QuantNone stores K/V in the activation dtype (float32 in this
	// rewrite), one element per value, no scale needed.
	QuantNone Quantisation = iota
	// QuantInt8 stores K/V as signed bytes with a per-channel float32
	// scale applied on read and write.
	QuantInt8
	// QuantFP8 stores K/V as the same byte width as QuantInt8, using a
	// distinct codec (quant.FP8 in package quant) and its own per-channel scale.
	QuantFP8
)

func (q Quantisation) elementSize() int {
	switch q {
	case QuantInt8, QuantFP8:
		return 1
	default:
		return 4
	}
}

// codec returns the byte-level codec backing a quantised view. QuantNone has
// no codec; callers store float32 directly instead.
func (q Quantisation) codec() quant.Codec {
	switch q {
	case QuantInt8:
		return quant.Int8{}
	case QuantFP8:
		return quant.FP8{}
	default:
		return nil
	}
}

func (q Quantisation) String() string {
	switch q {
	case QuantInt8:
		return "int8"
	case QuantFP8:
		return "fp8"
	default:
		return "none"
	}
}

// View addresses key/value storage for one layer. Every address returned is
// a flat index into the variant's own backing slice; quantised variants
// apply their per-row scale inside their read and write methods.
type View interface {
	// Address returns the flat-index offset of (timestep, head, dim) into
	// the view's backing storage. kv selects key (0) or value (1).
	Address(kv, timestep, head, dim int) (int, error)

	// Capacity is the largest timestep + 1 this view can address without
	// growing (maxSeq for Linear, maxBlocks*tokensPerBlock for Paged).
	Capacity() int

	Quant() Quantisation
	HeadsPerKV() int
	HeadDim() int
}

// cellRange tracks the inclusive [min, max] flat-index span touched by a
// sequence, mirroring the span bookkeeping the scheduler needs to build an
// attention mask without rescanning the whole cache.
type cellRange struct {
	min int
	max int
}

func newCellRange() cellRange {
	return cellRange{min: int(^uint(0) >> 1), max: -1}
}

func (r cellRange) empty() bool {
	return r.max < r.min
}

func roundDown(length, pad int) int {
	if pad <= 1 {
		return length
	}
	return (length / pad) * pad
}

func roundUp(length, pad int) int {
	if pad <= 1 {
		return length
	}
	return ((length + pad - 1) / pad) * pad
}

func checkTimestep(t, capacity int) error {
	if t < 0 || t >= capacity {
		return fmt.Errorf("kvcache: timestep %d out of range [0,%d)", t, capacity)
	}
	return nil
}
