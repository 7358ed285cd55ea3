package tensor

import (
	"fmt"

	"github.com/viterin/vek"
)

// Contract computes the outer-broadcast contraction of a stack of matrices
// with a stack of vectors.
//
// resp has shape B... + [m, n] and truth has shape C... + [n]. The result has
// shape B... + C... + [m]: every matrix in the resp batch is applied to every
// vector in the truth batch. This is the documented contract the likelihood
// engine depends on; it is an outer product over batch axes, not an
// elementwise broadcast.
func Contract(resp, truth Array) (Array, error) {
	if resp.NDim() < 2 {
		return Array{}, &ShapeError{Op: "Contract", Detail: fmt.Sprintf("matrix stack needs at least 2 axes, got shape %v", resp.Shape)}
	}
	m := resp.Shape[resp.NDim()-2]
	n := resp.Shape[resp.NDim()-1]
	if truth.LastDim() != n {
		return Array{}, &ShapeError{Op: "Contract", Detail: fmt.Sprintf("matrix columns %d do not match vector length %d", n, truth.LastDim())}
	}

	respBatch := resp.Shape[:resp.NDim()-2]
	truthBatch := truth.Batch()
	nResp := Size(respBatch)
	nTruth := Size(truthBatch)

	out := make([]float64, nResp*nTruth*m)
	o := 0
	for b := 0; b < nResp; b++ {
		mtx := resp.Data[b*m*n : (b+1)*m*n]
		for c := 0; c < nTruth; c++ {
			vec := truth.Data[c*truth.LastDim() : (c+1)*truth.LastDim()]
			for r := 0; r < m; r++ {
				out[o] = vek.Dot(mtx[r*n:(r+1)*n], vec)
				o++
			}
		}
	}

	shape := Concat(respBatch, truthBatch, []int{m})
	return Array{Data: out, Shape: shape}, nil
}

// OuterMap evaluates fn for every combination of trailing-axis vectors from a
// and b, producing an array of shape aBatch + bBatch. fn receives one vector
// from each input.
func OuterMap(a, b Array, fn func(x, y []float64) float64) Array {
	na := a.NumRows()
	nb := b.NumRows()
	out := make([]float64, na*nb)
	o := 0
	for i := 0; i < na; i++ {
		x := a.Row(i)
		for j := 0; j < nb; j++ {
			out[o] = fn(x, b.Row(j))
			o++
		}
	}
	return Array{Data: out, Shape: Concat(a.Batch(), b.Batch())}
}
