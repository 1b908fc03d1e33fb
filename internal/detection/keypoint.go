package detection

import (
	"errors"
	"fmt"
	"math"
)

// MaxOctaves is the deepest pyramid the filter tables describe.
const MaxOctaves = 5

// ErrInvalidOptions is wrapped by every configuration error returned from
// Options.Validate and Detect.
var ErrInvalidOptions = errors.New("invalid detector options")

// Keypoint is a detected scale-space interest point.
//
// Keypoints are created by the refiner and never modified by this package.
// Orientation and Descriptor belong to downstream descriptor stages.
type Keypoint struct {
	// X is the sub-pixel column in image coordinates.
	X float64 `json:"x"`

	// Y is the sub-pixel row in image coordinates.
	Y float64 `json:"y"`

	// Scale is the characteristic scale, 0.1333 times the interpolated
	// filter size.
	Scale float64 `json:"scale"`

	// Response is the determinant-of-Hessian value of the accepted
	// candidate before refinement.
	Response float64 `json:"response"`

	// Orientation is measured anti-clockwise from the +x axis in radians.
	// Always 0 at detection time.
	Orientation float64 `json:"orientation"`

	// Laplacian is 1 when the trace of the Hessian is non-negative (dark
	// blob on bright background) and 0 otherwise.
	Laplacian int `json:"laplacian"`

	// Descriptor is filled in by a descriptor stage.
	Descriptor []float64 `json:"descriptor,omitempty"`
}

// Options configures a detection run.
type Options struct {
	// Threshold is the minimum determinant-of-Hessian response a candidate
	// must reach. Must be >= 0. Typical value: 0.001.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Octaves is the number of pyramid octaves to search, 1 to 5.
	Octaves int `json:"octaves" yaml:"octaves"`

	// InitSample is the sampling step of the first octave in pixels.
	// Must be >= 1. Each further octave doubles it.
	InitSample int `json:"init_sample" yaml:"initSample"`

	// Workers limits the goroutines used to build and scan the pyramid.
	// Zero means runtime.NumCPU().
	Workers int `json:"workers,omitempty" yaml:"workers"`
}

// DefaultOptions returns the settings used by the command line tool.
func DefaultOptions() Options {
	return Options{
		Threshold:  0.001,
		Octaves:    2,
		InitSample: 2,
	}
}

// Validate reports the first invalid field. The returned error wraps
// ErrInvalidOptions.
func (o Options) Validate() error {
	switch {
	case math.IsNaN(o.Threshold) || o.Threshold < 0:
		return fmt.Errorf("%w: threshold must be >= 0, got %v", ErrInvalidOptions, o.Threshold)
	case o.Octaves < 1 || o.Octaves > MaxOctaves:
		return fmt.Errorf("%w: octaves must be between 1 and %d, got %d", ErrInvalidOptions, MaxOctaves, o.Octaves)
	case o.InitSample < 1:
		return fmt.Errorf("%w: init_sample must be >= 1, got %d", ErrInvalidOptions, o.InitSample)
	case o.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidOptions, o.Workers)
	}
	return nil
}
