package detection

import (
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/surf-tools-mcp/internal/integral"
)

// Detect finds Fast-Hessian interest points in img.
//
// Parameters:
//   - img: Source image. Colour images are reduced to luma.
//   - opts: Detector settings; see Options.
//
// Returns:
//   - []Keypoint: Accepted keypoints in scan order (octave, interval, row,
//     column). Never nil; empty when nothing passes the threshold.
//   - error: Non-nil if opts is invalid (wraps ErrInvalidOptions) or the
//     image is empty (wraps integral.ErrEmptyImage).
//
// # Algorithm
//
//  1. Build the integral image of the luma channel.
//  2. Build the response map: approximated determinant-of-Hessian layers
//     for every filter size of the requested octaves.
//  3. For each octave and each of its two intervals, scan the top layer's
//     grid for strict 3x3x3 maxima above the threshold.
//  4. Refine each maximum with a quadratic fit and keep it only when the
//     fitted vertex lies inside the sampled cell.
//
// Results are reproducible: the same image and options always yield the
// same keypoints in the same order.
func Detect(img image.Image, opts Options) ([]Keypoint, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ii, err := integral.FromImage(img)
	if err != nil {
		return nil, err
	}

	return DetectIntegral(ii, opts)
}

// DetectIntegral runs detection on an existing integral image so a
// descriptor stage can reuse the same table.
func DetectIntegral(ii *integral.Image, opts Options) ([]Keypoint, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if ii == nil {
		return nil, fmt.Errorf("failed to detect keypoints: %w", integral.ErrEmptyImage)
	}

	rm := BuildResponseMap(ii, opts.Octaves, opts.InitSample, opts.Workers)
	return scanResponseMap(rm, opts.Octaves, opts.Threshold, opts.Workers), nil
}

// scanResponseMap searches every (octave, interval) triplet concurrently.
// Each triplet fills its own slot so the merged result keeps scan order.
func scanResponseMap(rm *ResponseMap, octaves int, threshold float64, workers int) []Keypoint {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	found := make([][]Keypoint, octaves*2)

	var egroup errgroup.Group
	egroup.SetLimit(workers)
	for o := 0; o < octaves; o++ {
		for i := 0; i <= 1; i++ {
			o, i := o, i
			egroup.Go(func() error {
				b, m, t := rm.Triplet(o, i)
				found[o*2+i] = scanTriplet(t, m, b, threshold)
				return nil
			})
		}
	}
	_ = egroup.Wait()

	total := 0
	for _, kps := range found {
		total += len(kps)
	}
	kps := make([]Keypoint, 0, total)
	for _, f := range found {
		kps = append(kps, f...)
	}
	return kps
}
