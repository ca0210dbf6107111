// Sequence-level operations built on top of Read/Write: copying a cached
// prefix from one sequence slot to another when a new request can resume
// generation from an already-cached prompt, mirroring the teacher's
// CopyPrefix/CanResume pair in sequence_ops.go.
package kvcache

// CopyPrefix copies the first length cached timesteps of srcSeq into dstSeq,
// across every layer and both key and value storage, respecting the view's
// quantisation (the scale travels with each element). Used when a new
// request shares a prompt prefix with one already held in cache.
func (c *Cache) CopyPrefix(srcSeq, dstSeq int, length int) error {
	for layer := range c.layers {
		prevLayer := c.curLayer
		c.curLayer = layer

		view := c.layer()
		headsPerKV := view.HeadsPerKV()
		headDim := view.HeadDim()

		for t := 0; t < length; t++ {
			for kv := 0; kv < 2; kv++ {
				for h := 0; h < headsPerKV; h++ {
					for d := 0; d < headDim; d++ {
						v, err := c.Read(srcSeq, kv, t, h, d)
						if err != nil {
							c.curLayer = prevLayer
							return err
						}
						if err := c.Write(dstSeq, kv, t, h, d, v, c.readScale(view, srcSeq, kv, t)); err != nil {
							c.curLayer = prevLayer
							return err
						}
					}
				}
			}
		}

		c.curLayer = prevLayer
	}

	return nil
}

func (c *Cache) readScale(view View, seq, kv, t int) float32 {
	switch v := view.(type) {
	case *Linear:
		if v.quant.codec() == nil {
			return 0
		}
		return v.scale[v.scaleIndex(seq, kv, t)]
	case *Paged:
		if v.quant.codec() == nil {
			return 0
		}
		table, ok := v.blockTables[seq]
		if !ok || t/v.tokensPerBlock >= len(table) {
			return 0
		}
		block := table[t/v.tokensPerBlock]
		return v.scale[v.scaleIndex(block, kv, t%v.tokensPerBlock)]
	default:
		return 0
	}
}

// CanResume reports whether a sequence previously held in cache up to the
// given length is still fully addressable: false whenever length exceeds
// the view's capacity; otherwise always true for Linear (a fixed
// per-sequence window), and true for Paged only if every block up to length
// is still assigned to seq.
func (c *Cache) CanResume(seq int, length int) bool {
	view := c.layer()

	if length > view.Capacity() {
		return false
	}

	p, ok := view.(*Paged)
	if !ok {
		return true
	}

	table, ok := p.blockTables[seq]
	if !ok {
		return length == 0
	}

	neededBlocks := (length + p.tokensPerBlock - 1) / p.tokensPerBlock
	return len(table) >= neededBlocks
}
