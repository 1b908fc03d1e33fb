package detection

import (
	"math"
	"testing"
)

// quadraticLayers fills 11x11 layers with filters 9, 15 and 21 from
// f = 1 - (c-x0)^2 - (r-y0)^2 - (s-s0)^2, where s is -1, 0 and 1 for the
// bottom, middle and top layer. A 3D quadratic is fitted exactly by the
// central differences, so the refined vertex is (x0, y0, s0).
func quadraticLayers(x0, y0, s0 float64) (t, m, b *ResponseLayer) {
	b = newResponseLayer(11, 11, 1, 9)
	m = newResponseLayer(11, 11, 1, 15)
	t = newResponseLayer(11, 11, 1, 21)

	for i, layer := range []*ResponseLayer{b, m, t} {
		s := float64(i - 1)
		for r := 0; r < 11; r++ {
			for c := 0; c < 11; c++ {
				dx, dy, ds := float64(c)-x0, float64(r)-y0, s-s0
				layer.responses[r*11+c] = 1 - dx*dx - dy*dy - ds*ds
			}
		}
	}
	return t, m, b
}

func TestInterpolateExtremum_Accepted(t *testing.T) {
	top, mid, bottom := quadraticLayers(5.2, 4.9, 0.1)
	mid.laplacian[5*11+5] = 1

	kp, ok := interpolateExtremum(5, 5, top, mid, bottom)
	if !ok {
		t.Fatal("expected the candidate to be accepted")
	}

	if math.Abs(kp.X-5.2) > 1e-9 {
		t.Errorf("X: got %v, want 5.2", kp.X)
	}
	if math.Abs(kp.Y-4.9) > 1e-9 {
		t.Errorf("Y: got %v, want 4.9", kp.Y)
	}
	wantScale := scaleFactor * (15 + 0.1*6)
	if math.Abs(kp.Scale-wantScale) > 1e-9 {
		t.Errorf("Scale: got %v, want %v", kp.Scale, wantScale)
	}
	if kp.Laplacian != 1 {
		t.Errorf("Laplacian: got %d, want 1", kp.Laplacian)
	}
	if kp.Response != mid.Response(5, 5) {
		t.Errorf("Response: got %v, want %v", kp.Response, mid.Response(5, 5))
	}
}

func TestInterpolateExtremum_StepScalesCoordinates(t *testing.T) {
	top, mid, bottom := quadraticLayers(4.75, 5.25, -0.2)
	for _, l := range []*ResponseLayer{top, mid, bottom} {
		l.Step = 4
	}

	kp, ok := interpolateExtremum(5, 5, top, mid, bottom)
	if !ok {
		t.Fatal("expected the candidate to be accepted")
	}
	if math.Abs(kp.X-19) > 1e-9 || math.Abs(kp.Y-21) > 1e-9 {
		t.Errorf("position: got (%v,%v), want (19,21)", kp.X, kp.Y)
	}
}

func TestInterpolateExtremum_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		x0, y0, s0 float64
	}{
		{"x offset past half a cell", 5.6, 5, 0},
		{"y offset past half a cell", 5, 4.3, 0},
		{"scale offset past half a layer", 5, 5, -0.7},
		{"scale offset exactly half", 5, 5, 0.5},
		{"x offset exactly half", 4.5, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, mid, bottom := quadraticLayers(tt.x0, tt.y0, tt.s0)
			if kp, ok := interpolateExtremum(5, 5, top, mid, bottom); ok {
				t.Errorf("expected rejection, got %+v", kp)
			}
		})
	}
}

func TestInterpolateExtremum_SingularHessian(t *testing.T) {
	t.Run("constant layers", func(t *testing.T) {
		bottom := newResponseLayer(11, 11, 1, 9)
		mid := newResponseLayer(11, 11, 1, 15)
		top := newResponseLayer(11, 11, 1, 21)
		for _, l := range []*ResponseLayer{bottom, mid, top} {
			for i := range l.responses {
				l.responses[i] = 0.25
			}
		}
		if _, ok := interpolateExtremum(5, 5, top, mid, bottom); ok {
			t.Error("flat neighbourhood should be dropped")
		}
	})

	t.Run("no scale dependence", func(t *testing.T) {
		top, mid, bottom := quadraticLayers(5, 5, 0)
		// Copy the middle layer into both neighbours: d2/ds2 and all
		// scale cross terms vanish.
		copy(top.responses, mid.responses)
		copy(bottom.responses, mid.responses)
		if _, ok := interpolateExtremum(5, 5, top, mid, bottom); ok {
			t.Error("Hessian with a zero scale row should be dropped")
		}
	})
}
