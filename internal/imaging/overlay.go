package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/surf-tools-mcp/internal/detection"
)

// OverlayStyle selects the colours used to draw keypoints.
type OverlayStyle struct {
	// Positive outlines keypoints with Laplacian 1 (dark blobs).
	Positive color.Color

	// Negative outlines keypoints with Laplacian 0 (bright blobs).
	Negative color.Color

	// Orientation draws the radius pointing along Keypoint.Orientation.
	Orientation color.Color

	// Grayscale renders the background in luma only, the same signal
	// the detector sees.
	Grayscale bool
}

// DefaultOverlayStyle returns blue, red and white on a grayscale background.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		Positive:    color.RGBA{0, 0, 255, 255},
		Negative:    color.RGBA{255, 0, 0, 255},
		Orientation: color.RGBA{255, 255, 255, 255},
		Grayscale:   true,
	}
}

// ParseOverlayStyle builds a style from "#RRGGBB" colour strings.
func ParseOverlayStyle(positive, negative, orientation string, grayscale bool) (OverlayStyle, error) {
	pos, err := parseHexColor(positive)
	if err != nil {
		return OverlayStyle{}, fmt.Errorf("failed to parse positive colour: %w", err)
	}
	neg, err := parseHexColor(negative)
	if err != nil {
		return OverlayStyle{}, fmt.Errorf("failed to parse negative colour: %w", err)
	}
	orient, err := parseHexColor(orientation)
	if err != nil {
		return OverlayStyle{}, fmt.Errorf("failed to parse orientation colour: %w", err)
	}

	return OverlayStyle{Positive: pos, Negative: neg, Orientation: orient, Grayscale: grayscale}, nil
}

// parseHexColor parses "#RRGGBB" or "#RGB" into an opaque colour.
func parseHexColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// DrawKeypoints returns a copy of img with every keypoint drawn on it.
//
// Each keypoint is a circle of diameter S = 2*round(2.5*Scale) centred on
// the rounded position, coloured by the Laplacian sign, with a radius line
// towards Orientation. The source image is never modified.
func DrawKeypoints(img image.Image, kps []detection.Keypoint, style OverlayStyle) *image.RGBA {
	var canvas *image.RGBA
	if style.Grayscale {
		canvas = clone.AsRGBA(imaging.Grayscale(img))
	} else {
		canvas = clone.AsRGBA(img)
	}

	origin := canvas.Bounds().Min
	for _, kp := range kps {
		s := 2 * int(math.Round(2.5*kp.Scale))
		radius := s / 2
		cx := origin.X + int(math.Round(kp.X))
		cy := origin.Y + int(math.Round(kp.Y))

		c := style.Negative
		if kp.Laplacian > 0 {
			c = style.Positive
		}
		drawCircle(canvas, cx, cy, radius, c)

		ex := cx + int(math.Round(float64(radius)*math.Cos(kp.Orientation)))
		ey := cy + int(math.Round(float64(radius)*math.Sin(kp.Orientation)))
		drawLine(canvas, cx, cy, ex, ey, style.Orientation)
	}

	return canvas
}

// drawCircle draws a one pixel outline with the midpoint algorithm.
// Pixels outside the canvas are skipped.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	if radius <= 0 {
		setPixel(img, cx, cy, c)
		return
	}

	x, y := radius, 0
	err := 1 - radius
	for x >= y {
		setPixel(img, cx+x, cy+y, c)
		setPixel(img, cx+y, cy+x, c)
		setPixel(img, cx-y, cy+x, c)
		setPixel(img, cx-x, cy+y, c)
		setPixel(img, cx-x, cy-y, c)
		setPixel(img, cx-y, cy-x, c)
		setPixel(img, cx+y, cy-x, c)
		setPixel(img, cx+x, cy-y, c)

		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// drawLine draws a Bresenham line between two points inclusive.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		setPixel(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MimeType returns the MIME type of an overlay format.
func MimeType(format string) string {
	switch normalizeFormat(format) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	}
	return "image/jpeg"
}

func normalizeFormat(format string) string {
	f := strings.ToLower(format)
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// EncodeImage writes img to w as png, jpeg or webp. Quality (1-100) applies
// to jpeg and lossy webp.
func EncodeImage(w io.Writer, img image.Image, format string, quality int) error {
	switch normalizeFormat(format) {
	case "png":
		if err := imaging.Encode(w, img, imaging.PNG); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
	case "jpeg":
		if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
	case "webp":
		if err := webp.Encode(w, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
	default:
		return fmt.Errorf("unsupported overlay format: %s", format)
	}
	return nil
}

// OverlayResult contains an encoded keypoint overlay.
type OverlayResult struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ImageBase64   string `json:"image_base64"`
	MimeType      string `json:"mime_type"`
	KeypointCount int    `json:"keypoint_count"`
}

// KeypointOverlay draws kps on img and returns the encoded image as base64.
func KeypointOverlay(img image.Image, kps []detection.Keypoint, style OverlayStyle, format string, quality int) (*OverlayResult, error) {
	canvas := DrawKeypoints(img, kps, style)

	var buf bytes.Buffer
	if err := EncodeImage(&buf, canvas, format, quality); err != nil {
		return nil, err
	}

	return &OverlayResult{
		Width:         canvas.Bounds().Dx(),
		Height:        canvas.Bounds().Dy(),
		ImageBase64:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:      MimeType(format),
		KeypointCount: len(kps),
	}, nil
}
