package likelihood

import (
	"github.com/ast0815/likelihood-machine/core/tensor"
)

// EfficiencyMask returns the truth bins whose response-matrix column sum
// exceeds threshold in at least one of the stacked systematic instances.
//
// Truth bins with zero efficiency are unconstrainable by the data; the mask
// is used to exclude them from likelihood evaluation and from the
// maximum-likelihood search space entirely, rather than handing the optimizer
// flat directions.
func EfficiencyMask(response tensor.Array, threshold float64) []bool {
	nReco := response.Shape[response.NDim()-2]
	nTruth := response.Shape[response.NDim()-1]
	nToys := response.Len() / (nReco * nTruth)

	mask := make([]bool, nTruth)
	for t := 0; t < nToys; t++ {
		mtx := response.Data[t*nReco*nTruth : (t+1)*nReco*nTruth]
		for j := 0; j < nTruth; j++ {
			var eff float64
			for i := 0; i < nReco; i++ {
				eff += mtx[i*nTruth+j]
			}
			if eff > threshold {
				mask[j] = true
			}
		}
	}
	return mask
}

// ReduceResponse slices the truth axis of a (stacked) response matrix by the
// efficiency mask, keeping all leading toy axes and the reco axis intact.
func ReduceResponse(response tensor.Array, mask []bool) (tensor.Array, error) {
	return tensor.Select(response, mask)
}

// ReduceTruth selects the mask-true entries along the trailing axis of a
// truth vector or batch of truth vectors, preserving the leading batch shape.
func ReduceTruth(truth tensor.Array, mask []bool) (tensor.Array, error) {
	return tensor.Select(truth, mask)
}
