// Package integral implements the summed-area table used by the Fast-Hessian
// detector and by descriptor stages that need constant-time box sums.
//
// The table stores accumulated luma normalized to [0,1]. Every rectangle
// query is clipped to the image, so filters centred near the border can be
// evaluated without bounds checks in the caller.
package integral

import (
	"errors"
	"fmt"
	"image"
)

// Luma weights applied to 8-bit R, G and B channels.
const (
	weightR = 0.2989
	weightG = 0.5870
	weightB = 0.1140
)

// ErrEmptyImage is returned when the source image has no pixels.
var ErrEmptyImage = errors.New("image has zero width or height")

// Image is an immutable summed-area table.
//
// Sum(y, x) holds the total luma of all pixels (x', y') with x' <= x and
// y' <= y. Values are non-decreasing along both axes.
type Image struct {
	width  int
	height int
	sums   []float64 // row-major, height*width
}

// FromImage builds the integral image of img.
//
// Each pixel is converted to luma with the weights 0.2989, 0.5870 and 0.1140
// applied to its 8-bit channels and divided by 255. The first row holds a
// running row sum; every later row adds its running row sum to the cell
// above. The image origin may be anywhere; row 0 and column 0 of the table
// always correspond to img.Bounds().Min.
//
// Returns an error wrapping ErrEmptyImage if img is nil or has no pixels.
func FromImage(img image.Image) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("failed to build integral image: %w", ErrEmptyImage)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("failed to build integral image (%dx%d): %w", width, height, ErrEmptyImage)
	}

	ii := &Image{
		width:  width,
		height: height,
		sums:   make([]float64, width*height),
	}

	for y := 0; y < height; y++ {
		var rowSum float64
		row := ii.sums[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			rowSum += luma(img, x+bounds.Min.X, y+bounds.Min.Y)
			if y == 0 {
				row[x] = rowSum
				continue
			}
			row[x] = rowSum + ii.sums[(y-1)*width+x]
		}
	}

	return ii, nil
}

// luma returns the normalized intensity of the pixel at (x, y).
func luma(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (weightR*float64(r>>8) + weightG*float64(g>>8) + weightB*float64(b>>8)) / 255.0
}

// Width returns the number of columns in the table.
func (ii *Image) Width() int { return ii.width }

// Height returns the number of rows in the table.
func (ii *Image) Height() int { return ii.height }

// At returns the accumulated luma at (row, col). The coordinates must lie
// inside the image.
func (ii *Image) At(row, col int) float64 {
	return ii.sums[row*ii.width+col]
}

// BoxIntegral returns the luma summed over the half-open rectangle
// [row, row+rows) x [col, col+cols), clipped to the image.
//
// The sum is computed from the four corners of the table. Corners past the
// bottom or right edge are clamped to the last row or column; corners above
// or left of the image contribute zero. The result is never negative, which
// absorbs floating-point cancellation on near-empty rectangles.
func (ii *Image) BoxIntegral(row, col, rows, cols int) float64 {
	// Subtract one because the table is inclusive of its own cell.
	r1 := min(row, ii.height) - 1
	c1 := min(col, ii.width) - 1
	r2 := min(row+rows, ii.height) - 1
	c2 := min(col+cols, ii.width) - 1

	var a, b, c, d float64
	if r1 >= 0 && c1 >= 0 {
		a = ii.sums[r1*ii.width+c1]
	}
	if r1 >= 0 && c2 >= 0 {
		b = ii.sums[r1*ii.width+c2]
	}
	if r2 >= 0 && c1 >= 0 {
		c = ii.sums[r2*ii.width+c1]
	}
	if r2 >= 0 && c2 >= 0 {
		d = ii.sums[r2*ii.width+c2]
	}

	// Grouped by column so a rectangle clipped to zero width or height
	// cancels exactly.
	return max(0, (d-b)-(c-a))
}

// HaarX returns the horizontal Haar wavelet response of the given size
// centred on (row, col): the right half minus the left half.
func (ii *Image) HaarX(row, col, size int) float64 {
	half := size / 2
	return ii.BoxIntegral(row-half, col, size, half) -
		ii.BoxIntegral(row-half, col-half, size, half)
}

// HaarY returns the vertical Haar wavelet response of the given size
// centred on (row, col): the bottom half minus the top half.
func (ii *Image) HaarY(row, col, size int) float64 {
	half := size / 2
	return ii.BoxIntegral(row, col-half, half, size) -
		ii.BoxIntegral(row-half, col-half, half, size)
}
