package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/surf-tools-mcp/internal/detection"
)

// Region is a rectangle in image coordinates.
//
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// NamedRegion resolves a named part of an image with the given bounds.
//
// Supported names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half, center (the middle 50% in each
// direction) and full.
func NamedRegion(name string, bounds image.Rectangle) (Region, error) {
	w, h := bounds.Dx(), bounds.Dy()
	midX, midY := w/2, h/2

	var x1, y1, x2, y2 int
	switch name {
	case "full", "":
		x1, y1, x2, y2 = 0, 0, w, h
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, h
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, h
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, h
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, h
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, h
	case "center":
		qW, qH := w/4, h/4
		x1, y1, x2, y2 = qW, qH, w-qW, h-qH
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}

	return Region{
		X1: bounds.Min.X + x1,
		Y1: bounds.Min.Y + y1,
		X2: bounds.Min.X + x2,
		Y2: bounds.Min.Y + y2,
	}, nil
}

// CropRegion extracts r from img.
//
// The returned image has its origin at (0,0); keypoints detected in it are
// mapped back to img with MapKeypoints(kps, r.X1, r.Y1, 1).
func CropRegion(img image.Image, r Region) (image.Image, error) {
	bounds := img.Bounds()

	if r.X1 < bounds.Min.X || r.Y1 < bounds.Min.Y || r.X2 > bounds.Max.X || r.Y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return imaging.Crop(img, r.Rect()), nil
}

// Downscale shrinks img by factor (0 < factor <= 1) with a Lanczos filter.
// A factor of 1 returns img unchanged.
//
// Keypoints detected in the result are mapped back with
// MapKeypoints(kps, 0, 0, factor).
func Downscale(img image.Image, factor float64) (image.Image, error) {
	if math.IsNaN(factor) || factor <= 0 || factor > 1 {
		return nil, fmt.Errorf("downscale factor must be in (0, 1], got %v", factor)
	}
	if factor == 1 {
		return img, nil
	}

	w := int(math.Round(float64(img.Bounds().Dx()) * factor))
	h := int(math.Round(float64(img.Bounds().Dy()) * factor))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("downscale factor %v leaves an empty image", factor)
	}

	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// MapKeypoints converts keypoints found in a cropped and scaled copy back to
// the coordinates of the source image: positions and scales are divided by
// factor, then positions are shifted by (originX, originY). kps is modified
// in place and returned.
func MapKeypoints(kps []detection.Keypoint, originX, originY int, factor float64) []detection.Keypoint {
	for i := range kps {
		kps[i].X = kps[i].X/factor + float64(originX)
		kps[i].Y = kps[i].Y/factor + float64(originY)
		kps[i].Scale /= factor
	}
	return kps
}
