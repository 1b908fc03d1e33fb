package detection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// scaleFactor converts a filter size to a Gaussian scale: 1.2/9.
	scaleFactor = 0.1333

	// maxOffset is the largest accepted interpolation offset per dimension.
	// Larger offsets put the true extremum in a neighbouring cell.
	maxOffset = 0.5

	// maxHessianCondition rejects candidates whose scale-space Hessian is
	// singular or too badly conditioned to invert.
	maxHessianCondition = 1e10
)

// interpolateExtremum fits a 3D quadratic to the responses around (r, c) of
// t's grid and returns the keypoint at its vertex.
//
// The offset is the Newton step -H^-1 * D computed from central
// differences. The candidate is dropped when the Hessian cannot be inverted
// or when any offset component reaches 0.5.
func interpolateExtremum(r, c int, t, m, b *ResponseLayer) (Keypoint, bool) {
	offset, ok := solveOffset(r, c, t, m, b)
	if !ok {
		return Keypoint{}, false
	}

	ox, oy, os := offset[0], offset[1], offset[2]
	if math.Abs(ox) >= maxOffset || math.Abs(oy) >= maxOffset || math.Abs(os) >= maxOffset {
		return Keypoint{}, false
	}

	filterStep := float64(m.Filter - b.Filter)
	return Keypoint{
		X:         (float64(c) + ox) * float64(t.Step),
		Y:         (float64(r) + oy) * float64(t.Step),
		Scale:     scaleFactor * (float64(m.Filter) + os*filterStep),
		Response:  m.ResponseAt(r, c, t),
		Laplacian: int(m.LaplacianAt(r, c, t)),
	}, true
}

// solveOffset returns (x, y, scale) offsets of the interpolated extremum.
func solveOffset(r, c int, t, m, b *ResponseLayer) ([3]float64, bool) {
	d := buildDerivative(r, c, t, m, b)
	h := buildHessian(r, c, t, m, b)

	var lu mat.LU
	lu.Factorize(h)
	if lu.Det() == 0 || lu.Cond() > maxHessianCondition {
		return [3]float64{}, false
	}

	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, d); err != nil {
		return [3]float64{}, false
	}

	var offset [3]float64
	for i := range offset {
		offset[i] = -x.AtVec(i)
		if math.IsNaN(offset[i]) || math.IsInf(offset[i], 0) {
			return [3]float64{}, false
		}
	}
	return offset, true
}

// buildDerivative returns the first-order scale-space derivatives
// (dx, dy, ds) at (r, c) of t's grid.
func buildDerivative(r, c int, t, m, b *ResponseLayer) *mat.VecDense {
	dx := (m.ResponseAt(r, c+1, t) - m.ResponseAt(r, c-1, t)) / 2
	dy := (m.ResponseAt(r+1, c, t) - m.ResponseAt(r-1, c, t)) / 2
	ds := (t.Response(r, c) - b.ResponseAt(r, c, t)) / 2

	return mat.NewVecDense(3, []float64{dx, dy, ds})
}

// buildHessian returns the symmetric matrix of second-order scale-space
// derivatives at (r, c) of t's grid.
func buildHessian(r, c int, t, m, b *ResponseLayer) *mat.SymDense {
	v := m.ResponseAt(r, c, t)

	dxx := m.ResponseAt(r, c+1, t) + m.ResponseAt(r, c-1, t) - 2*v
	dyy := m.ResponseAt(r+1, c, t) + m.ResponseAt(r-1, c, t) - 2*v
	dss := t.Response(r, c) + b.ResponseAt(r, c, t) - 2*v
	dxy := (m.ResponseAt(r+1, c+1, t) - m.ResponseAt(r+1, c-1, t) -
		m.ResponseAt(r-1, c+1, t) + m.ResponseAt(r-1, c-1, t)) / 4
	dxs := (t.Response(r, c+1) - t.Response(r, c-1) -
		b.ResponseAt(r, c+1, t) + b.ResponseAt(r, c-1, t)) / 4
	dys := (t.Response(r+1, c) - t.Response(r-1, c) -
		b.ResponseAt(r+1, c, t) + b.ResponseAt(r-1, c, t)) / 4

	return mat.NewSymDense(3, []float64{
		dxx, dxy, dxs,
		dxy, dyy, dys,
		dxs, dys, dss,
	})
}
