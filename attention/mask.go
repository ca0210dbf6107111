package attention

import "math"

// transpose returns a cols x rows copy of an m (rows x cols) row-major
// matrix, used to hand engine.Matmul a pre-transposed key matrix since
// Layout.Transposed is descriptive metadata only (ReferenceMatmul, and any
// real BLAS binding, expects the operand bytes already laid out that way).
func transpose(m []float32, rows, cols int) []float32 {
	out := make([]float32, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = m[i*cols+j]
		}
	}
	return out
}

// extractHead pulls one head's columns out of a [rows, numHeads*headDim]
// row-major matrix, returning a dense [rows, headDim] matrix.
func extractHead(m []float32, head, rows, headDim, numHeads int) []float32 {
	out := make([]float32, rows*headDim)
	stride := numHeads * headDim
	for r := 0; r < rows; r++ {
		copy(out[r*headDim:(r+1)*headDim], m[r*stride+head*headDim:r*stride+(head+1)*headDim])
	}
	return out
}

// scatterHead writes one head's [rows, headDim] output back into its slot
// of a [rows, numHeads*headDim] destination matrix.
func scatterHead(dst []float32, head, rows, headDim, numHeads int, src []float32) {
	stride := numHeads * headDim
	for r := 0; r < rows; r++ {
		copy(dst[r*stride+head*headDim:r*stride+(head+1)*headDim], src[r*headDim:(r+1)*headDim])
	}
}

// softmaxRowsCausal applies scale, an optional ALiBi bias, a causal mask
// (column j is masked out for row i whenever j > i+offset), and a row-wise
// softmax to a [rows, cols] score matrix in place. offset lets generation
// attention's single new query row (rows==1) be causal against a KV window
// that already has offset prior timesteps.
func softmaxRowsCausal(scores []float32, rows, cols int, scale, slope float32, offset int, useAlibi bool) {
	for i := 0; i < rows; i++ {
		row := scores[i*cols : (i+1)*cols]
		limit := i + offset

		max := float32(math.Inf(-1))
		for j := range row {
			row[j] *= scale
			if useAlibi {
				row[j] += alibiBias(slope, limit, j)
			}
			if j > limit {
				row[j] = float32(math.Inf(-1))
			}
			if row[j] > max {
				max = row[j]
			}
		}

		var sum float32
		for j := range row {
			if math.IsInf(float64(row[j]), -1) {
				row[j] = 0
				continue
			}
			e := float32(math.Exp(float64(row[j] - max)))
			row[j] = e
			sum += e
		}
		if sum == 0 {
			continue
		}
		for j := range row {
			row[j] /= sum
		}
	}
}
