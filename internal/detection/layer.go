package detection

import "github.com/ironsheep/surf-tools-mcp/internal/integral"

// hessianWeight balances the box-filter Dxy against the Gaussian second
// derivative it approximates.
const hessianWeight = 0.81

// ResponseLayer is one level of the scale-space pyramid: a grid of
// determinant-of-Hessian responses and Laplacian signs for a single filter
// size, sampled every Step pixels.
//
// Grid cell (row, col) corresponds to image pixel (row*Step, col*Step). The
// response and Laplacian slices are indexed identically, row-major.
type ResponseLayer struct {
	Width  int
	Height int
	Step   int
	Filter int

	responses []float64
	laplacian []uint8
}

func newResponseLayer(width, height, step, filter int) *ResponseLayer {
	return &ResponseLayer{
		Width:     width,
		Height:    height,
		Step:      step,
		Filter:    filter,
		responses: make([]float64, width*height),
		laplacian: make([]uint8, width*height),
	}
}

// Response returns the response at a cell of this layer's own grid.
func (rl *ResponseLayer) Response(row, col int) float64 {
	return rl.responses[row*rl.Width+col]
}

// Laplacian returns the Laplacian sign at a cell of this layer's own grid.
func (rl *ResponseLayer) Laplacian(row, col int) uint8 {
	return rl.laplacian[row*rl.Width+col]
}

// Remap converts a cell of ref's grid into this layer's grid.
//
// Layers of a finer octave are read at the resolution of a coarser one by
// the integer ratio rl.Width / ref.Width. The result is clamped to the grid
// so rounding on odd image sizes cannot leave the layer.
func (rl *ResponseLayer) Remap(row, col int, ref *ResponseLayer) (int, int) {
	scale := 1
	if ref.Width > 0 {
		scale = rl.Width / ref.Width
	}
	return clampIndex(scale*row, rl.Height), clampIndex(scale*col, rl.Width)
}

// ResponseAt returns the response at (row, col) of ref's grid.
func (rl *ResponseLayer) ResponseAt(row, col int, ref *ResponseLayer) float64 {
	r, c := rl.Remap(row, col, ref)
	return rl.responses[r*rl.Width+c]
}

// LaplacianAt returns the Laplacian sign at (row, col) of ref's grid.
func (rl *ResponseLayer) LaplacianAt(row, col int, ref *ResponseLayer) uint8 {
	r, c := rl.Remap(row, col, ref)
	return rl.laplacian[r*rl.Width+c]
}

func clampIndex(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// fillRows computes the responses of grid rows [from, to).
//
// For filter size w the lobe is l = w/3 and the border b = (w-1)/2. Dxx and
// Dyy are a full (2l-1) x w box minus three times the centre lobe; Dxy is
// the four-quadrant box pattern. All three are normalized by the filter
// area before forming Dxx*Dyy - 0.81*Dxy^2.
func (rl *ResponseLayer) fillRows(ii *integral.Image, from, to int) {
	step := rl.Step
	w := rl.Filter
	b := (w - 1) / 2
	l := w / 3
	inverseArea := 1.0 / float64(w*w)

	for ar := from; ar < to; ar++ {
		r := ar * step
		index := ar * rl.Width
		for ac := 0; ac < rl.Width; ac, index = ac+1, index+1 {
			c := ac * step

			dxx := ii.BoxIntegral(r-l+1, c-b, 2*l-1, w) -
				ii.BoxIntegral(r-l+1, c-l/2, 2*l-1, l)*3
			dyy := ii.BoxIntegral(r-b, c-l+1, w, 2*l-1) -
				ii.BoxIntegral(r-l/2, c-l+1, l, 2*l-1)*3
			dxy := ii.BoxIntegral(r-l, c+1, l, l) +
				ii.BoxIntegral(r+1, c-l, l, l) -
				ii.BoxIntegral(r-l, c-l, l, l) -
				ii.BoxIntegral(r+1, c+1, l, l)

			dxx *= inverseArea
			dyy *= inverseArea
			dxy *= inverseArea

			rl.responses[index] = dxx*dyy - hessianWeight*dxy*dxy
			if dxx+dyy >= 0 {
				rl.laplacian[index] = 1
			} else {
				rl.laplacian[index] = 0
			}
		}
	}
}
