// Package detection implements the Fast-Hessian interest point detector, the
// detection stage of SURF.
//
// Given an image, Detect returns keypoints with a sub-pixel location, a
// characteristic scale and the sign of the Laplacian. Orientation and
// descriptors are left for downstream stages.
//
// # Pipeline
//
//  1. Integral image: luma summed-area table (package integral).
//  2. Response map: for every filter size, a grid of approximated
//     determinant-of-Hessian responses computed from box sums only.
//  3. Extremum search: thresholded non-maximum suppression over 3x3x3
//     space-and-scale neighbourhoods.
//  4. Refinement: a Newton step on a quadratic fit locates the extremum
//     between samples.
//
// # Pyramid Layout
//
// Octave 1 uses filters 9, 15, 21 and 27 sampled every InitSample pixels.
// Each further octave (up to 5) doubles the filter increment and the
// sampling step and adds two filters:
//
//	Octave 1:   9,  15,  21,  27   step s
//	Octave 2:  15,  27,  39,  51   step 2s
//	Octave 3:  27,  51,  75,  99   step 4s
//	Octave 4:  51,  99, 147, 195   step 8s
//	Octave 5:  99, 195, 291, 387   step 16s
//
// Every octave is searched with the triplets (1st, 2nd, 3rd) and
// (2nd, 3rd, 4th) of its filters, at the grid resolution of the top layer.
//
// # Coordinate System
//
// Keypoint X and Y are image pixel coordinates with (0,0) at the top-left
// corner, X increasing rightward and Y downward. Layer grids are indexed
// (row, col); a cell maps to pixel (row*Step, col*Step).
//
// # Concurrency
//
// The integral image and all response layers are written once and then only
// read. Layers are built in parallel bands of rows and the triplets are
// scanned in parallel; results are merged in scan order, so two runs with the
// same input return identical slices.
//
// # Numerical Degeneracy
//
// Candidates whose scale-space Hessian is singular or badly conditioned are
// dropped rather than producing undefined coordinates. This is expected
// occasionally near saddle-shaped responses and is not reported as an error.
package detection
