// Row-level helpers on top of Read/Write: writing or reading a whole
// (sequence, kv, timestep) row across every head/dim in one call, computing
// the channel scale once per row for quantised views. This is the entry
// point the attention dispatcher uses to commit K/V for a timestep (step 3
// of context attention, and the per-step append in generation attention).
package kvcache

import (
	"fmt"

	"github.com/nvidia/batchdecode/quant"
)

// WriteRow stores a full head*dim row (key or value) for one timestep of
// one sequence, computing a shared per-channel scale across the row when
// the active layer's view is quantised.
func (c *Cache) WriteRow(seq, kv, timestep int, row []float32) error {
	view := c.layer()
	headsPerKV := view.HeadsPerKV()
	headDim := view.HeadDim()

	if len(row) != headsPerKV*headDim {
		return fmt.Errorf("kvcache: row has length %d, want %d", len(row), headsPerKV*headDim)
	}

	scale := quant.ChannelScale(row)

	for h := 0; h < headsPerKV; h++ {
		for d := 0; d < headDim; d++ {
			if err := c.Write(seq, kv, timestep, h, d, row[h*headDim+d], scale); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadRow is the inverse of WriteRow: it reads back a full head*dim row for
// one timestep of one sequence, dequantising each element.
func (c *Cache) ReadRow(seq, kv, timestep int) ([]float32, error) {
	view := c.layer()
	headsPerKV := view.HeadsPerKV()
	headDim := view.HeadDim()

	row := make([]float32, headsPerKV*headDim)
	for h := 0; h < headsPerKV; h++ {
		for d := 0; d < headDim; d++ {
			v, err := c.Read(seq, kv, timestep, h, d)
			if err != nil {
				return nil, err
			}
			row[h*headDim+d] = v
		}
	}

	return row, nil
}
