package detection

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/surf-tools-mcp/internal/integral"
)

// Filter sizes of every layer the pyramid can hold, in build order.
//
//	Octave 1:   9,  15,  21,  27
//	Octave 2:  15,  27,  39,  51
//	Octave 3:  27,  51,  75,  99
//	Octave 4:  51,  99, 147, 195
//	Octave 5:  99, 195, 291, 387
//
// Octave 1 owns the first four layers; each later octave adds two and
// reuses two from the octave before.
var filterSizes = [...]int{9, 15, 21, 27, 39, 51, 75, 99, 147, 195, 291, 387}

// layerOctave is the zero-based octave that allocates each layer. It sets
// the layer's step (initSample << octave) and grid size (base >> octave).
var layerOctave = [...]int{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4}

// octaveLayers lists, per octave, the four layer indices searched. Intervals
// 0 and 1 use the triplets [0,1,2] and [1,2,3] of each row.
var octaveLayers = [MaxOctaves][4]int{
	{0, 1, 2, 3},
	{1, 3, 4, 5},
	{3, 5, 6, 7},
	{5, 7, 8, 9},
	{7, 9, 10, 11},
}

// rowsPerTask bounds the rows a single goroutine fills when building a
// layer.
const rowsPerTask = 32

// layerCount returns the number of layers a pyramid of the given depth holds.
func layerCount(octaves int) int {
	return 4 + 2*(octaves-1)
}

// ResponseMap is the ordered set of layers of one pyramid.
type ResponseMap struct {
	Layers []*ResponseLayer
}

// FilterSizes returns the filter size of every layer in order.
func (m *ResponseMap) FilterSizes() []int {
	sizes := make([]int, len(m.Layers))
	for i, l := range m.Layers {
		sizes[i] = l.Filter
	}
	return sizes
}

// Triplet returns the bottom, middle and top layers searched for the given
// zero-based octave and interval (0 or 1).
func (m *ResponseMap) Triplet(octave, interval int) (b, mid, t *ResponseLayer) {
	idx := octaveLayers[octave]
	return m.Layers[idx[interval]], m.Layers[idx[interval+1]], m.Layers[idx[interval+2]]
}

// BuildResponseMap allocates and fills the layers for the given number of
// octaves. The caller must pass validated arguments: octaves in 1..5 and
// initSample >= 1.
//
// The grid of octave o is (Width/initSample) >> o by (Height/initSample) >> o
// with step initSample << o. Layers may be empty on small images.
//
// Layers are filled concurrently in bands of rows; every band writes a
// disjoint part of one layer. workers <= 0 uses runtime.NumCPU().
func BuildResponseMap(ii *integral.Image, octaves, initSample, workers int) *ResponseMap {
	baseW := ii.Width() / initSample
	baseH := ii.Height() / initSample

	rm := &ResponseMap{Layers: make([]*ResponseLayer, layerCount(octaves))}
	for i := range rm.Layers {
		o := layerOctave[i]
		rm.Layers[i] = newResponseLayer(baseW>>o, baseH>>o, initSample<<o, filterSizes[i])
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var egroup errgroup.Group
	egroup.SetLimit(workers)
	for _, layer := range rm.Layers {
		for from := 0; from < layer.Height; from += rowsPerTask {
			layer, from := layer, from
			to := min(from+rowsPerTask, layer.Height)
			egroup.Go(func() error {
				layer.fillRows(ii, from, to)
				return nil
			})
		}
	}
	// Tasks never fail.
	_ = egroup.Wait()

	return rm
}
