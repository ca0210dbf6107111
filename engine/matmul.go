package engine

import (
	"fmt"
	"sync"
)

// Layout describes one matrix operand's shape and stride for a batched GEMM
// call, the unit the algorithm cache keys on.
type Layout struct {
	Rows, Cols int
	Transposed bool
}

// ComputeDescriptor identifies a compute configuration (dtype, batch count)
// independent of the specific matrix shapes being multiplied.
type ComputeDescriptor struct {
	DType     DType
	BatchSize int
}

// Matmul is the narrow batched-matrix-multiply contract the attention
// dispatcher drives; a real implementation would call into a vendor BLAS,
// this rewrite only needs the contract and its algorithm cache.
type Matmul interface {
	BatchedGEMM(a, b []float32, layoutA, layoutB Layout) ([]float32, error)
}

// algoCacheKey is the tuple the algorithm cache is keyed on: a compute
// descriptor plus the four matrix layouts (A, B, C, D) a GEMM call uses.
// This rewrite only tracks A and B (C/D are implied by output shape), which
// is sufficient because nothing here chooses between distinct kernels for
// the same input shapes.
type algoCacheKey struct {
	compute ComputeDescriptor
	a, b    Layout
}

// AlgoCache is a process-scoped cache mapping (compute descriptor, matrix
// layouts) to a chosen algorithm identifier, guarded by a mutex passed in
// at construction (SPEC_FULL.md §5). It never evicts: the keyspace is
// bounded by model shape, so an unbounded cache cannot grow without bound
// in practice.
type AlgoCache struct {
	mu    *sync.Mutex
	algos map[algoCacheKey]int
}

// NewAlgoCache returns an AlgoCache guarded by mu. Passing the mutex in
// (rather than embedding one) lets multiple AlgoCache instances within a
// process share a single lock when they share an underlying device queue.
func NewAlgoCache(mu *sync.Mutex) *AlgoCache {
	return &AlgoCache{mu: mu, algos: make(map[algoCacheKey]int)}
}

// Lookup returns the cached algorithm id for the given key, and whether one
// was found, holding the mutex for the duration of the map read.
func (c *AlgoCache) Lookup(compute ComputeDescriptor, a, b Layout) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	algo, ok := c.algos[algoCacheKey{compute, a, b}]
	return algo, ok
}

// Store records the chosen algorithm id for the given key. Searching for
// which algorithm to choose (the lookup-before-search half of the
// "lookup-before-search semantics" in SPEC_FULL.md §4.I) is the caller's
// responsibility; Store only memoises the result.
func (c *AlgoCache) Store(compute ComputeDescriptor, a, b Layout, algo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.algos[algoCacheKey{compute, a, b}] = algo
}

// ReferenceMatmul is a pure-Go BatchedGEMM used by the Fake engine's
// consumers and by tests: a plain batched row-major matrix multiply with no
// device dispatch and no algorithm selection, since there is nothing to
// choose between in a single reference implementation.
type ReferenceMatmul struct {
	Cache *AlgoCache
}

func (m ReferenceMatmul) BatchedGEMM(a, b []float32, layoutA, layoutB Layout) ([]float32, error) {
	if layoutA.Cols != layoutB.Rows {
		return nil, fmt.Errorf("engine: incompatible layouts %+v x %+v", layoutA, layoutB)
	}

	if m.Cache != nil {
		compute := ComputeDescriptor{DType: DTypeF32, BatchSize: 1}
		if _, ok := m.Cache.Lookup(compute, layoutA, layoutB); !ok {
			m.Cache.Store(compute, layoutA, layoutB, 0)
		}
	}

	out := make([]float32, layoutA.Rows*layoutB.Cols)
	for i := 0; i < layoutA.Rows; i++ {
		for j := 0; j < layoutB.Cols; j++ {
			var sum float32
			for k := 0; k < layoutA.Cols; k++ {
				sum += a[i*layoutA.Cols+k] * b[k*layoutB.Cols+j]
			}
			out[i*layoutB.Cols+j] = sum
		}
	}

	return out, nil
}
