package detection

// isExtremum reports whether the middle-layer response at (r, c) of t's grid
// is a thresholded strict maximum of its 3x3x3 scale-space neighbourhood.
//
// Cells closer to the edge than the top filter's half size are rejected
// because the coarsest filter has no complete support there. A neighbour
// equal to the candidate rejects it.
func isExtremum(r, c int, t, m, b *ResponseLayer, threshold float64) bool {
	layerBorder := (t.Filter + 1) / (2 * t.Step)
	if r <= layerBorder || r >= t.Height-layerBorder || c <= layerBorder || c >= t.Width-layerBorder {
		return false
	}

	candidate := m.ResponseAt(r, c, t)
	if candidate < threshold {
		return false
	}

	for rr := -1; rr <= 1; rr++ {
		for cc := -1; cc <= 1; cc++ {
			if t.Response(r+rr, c+cc) >= candidate ||
				((rr != 0 || cc != 0) && m.ResponseAt(r+rr, c+cc, t) >= candidate) ||
				b.ResponseAt(r+rr, c+cc, t) >= candidate {
				return false
			}
		}
	}

	return true
}

// scanTriplet walks every cell of t's grid and returns the refined
// keypoints of the (b, m, t) triplet in row-major scan order.
func scanTriplet(t, m, b *ResponseLayer, threshold float64) []Keypoint {
	var kps []Keypoint
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			if !isExtremum(r, c, t, m, b, threshold) {
				continue
			}
			if kp, ok := interpolateExtremum(r, c, t, m, b); ok {
				kps = append(kps, kp)
			}
		}
	}
	return kps
}
