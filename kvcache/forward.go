// Cache composes one View per transformer layer, lazily constructed on
// first use of that layer, and tracks the active layer the way the teacher's Causal
// cache tracks curLayer across SetLayer/Get/Put calls. This is the type the
// attention dispatcher and scheduler actually hold; Linear and Paged are the
// per-layer storage each Cache entry delegates to.
package kvcache

import "fmt"

// NewLayerView constructs the per-layer storage for one layer of a Cache.
// The scheduler supplies one at Setup time per (variant, quant) choice.
type NewLayerView func() View

// Cache owns one addressable View per layer, all sharing the same variant
// and quantisation mode, selected once at construction.
type Cache struct {
	newLayer NewLayerView
	layers   map[int]View
	curLayer int
}

// NewCache builds a Cache that lazily allocates a fresh View per layer via
// newLayer on first touch of that layer.
func NewCache(newLayer NewLayerView) *Cache {
	return &Cache{
		newLayer: newLayer,
		layers:   make(map[int]View),
	}
}

// SetLayer selects the active layer for subsequent Read/Write calls.
func (c *Cache) SetLayer(layer int) {
	c.curLayer = layer
}

func (c *Cache) layer() View {
	v, ok := c.layers[c.curLayer]
	if !ok {
		v = c.newLayer()
		c.layers[c.curLayer] = v
	}
	return v
}

// Read dequantises and returns the value stored at (sequenceIdx, timestep,
// head, dim) in the currently selected layer's key (kv=0) or value (kv=1)
// storage.
func (c *Cache) Read(seq, kv, timestep, head, dim int) (float32, error) {
	switch v := c.layer().(type) {
	case *Linear:
		return v.ReadSeq(seq, kv, timestep, head, dim)
	case *Paged:
		return v.ReadSeq(seq, kv, timestep, head, dim)
	default:
		return 0, fmt.Errorf("kvcache: unsupported view type %T", v)
	}
}

// Write quantises (when the view is quantised) and stores v at
// (sequenceIdx, timestep, head, dim) in the currently selected layer.
func (c *Cache) Write(seq, kv, timestep, head, dim int, v float32, scale float32) error {
	switch view := c.layer().(type) {
	case *Linear:
		return view.WriteSeq(seq, kv, timestep, head, dim, v, scale)
	case *Paged:
		return view.WriteSeq(seq, kv, timestep, head, dim, v, scale)
	default:
		return fmt.Errorf("kvcache: unsupported view type %T", view)
	}
}

// Capacity reports the active layer's per-sequence timestep capacity.
func (c *Cache) Capacity() int {
	return c.layer().Capacity()
}

// Quant reports the active layer's quantisation mode.
func (c *Cache) Quant() Quantisation {
	return c.layer().Quant()
}

// Release frees any storage held for seq across every allocated layer. Only
// meaningful for Paged views; Linear views have no per-sequence allocation
// to free (they reuse the same fixed slot for the sequence's lifetime).
func (c *Cache) Release(seq int) {
	for _, v := range c.layers {
		if p, ok := v.(*Paged); ok {
			p.Release(seq)
		}
	}
}
