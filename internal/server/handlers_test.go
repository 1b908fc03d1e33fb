package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/surf-tools-mcp/internal/config"
)

// writeTestPNG encodes img into the test's temp directory.
func writeTestPNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// writeBlobImage writes a 128x128 black image with a white disc of radius 8
// centred on (64, 64).
func writeBlobImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			if dx, dy := x-64, y-64; dx*dx+dy*dy <= 64 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return writeTestPNG(t, "blob.png", img)
}

// callTool runs tools/call through handleRequest.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult extracts the JSON text content of a tool response.
func decodeToolResult[T any](t *testing.T, result interface{}) T {
	t.Helper()

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var wrapper struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("failed to unmarshal content: %v", err)
	}
	if len(wrapper.Content) != 1 || wrapper.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %s", raw)
	}

	var v T
	if err := json.Unmarshal([]byte(wrapper.Content[0].Text), &v); err != nil {
		t.Fatalf("failed to unmarshal tool result: %v", err)
	}
	return v
}

func mustSucceed(t *testing.T, resp *MCPResponse) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

// blobArgs searches three octaves at full resolution.
func blobArgs(path string) map[string]interface{} {
	return map[string]interface{}{"path": path, "octaves": 3, "init_sample": 1}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil)
	path := writeBlobImage(t)

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": path})
	mustSucceed(t, resp)

	info := decodeToolResult[map[string]interface{}](t, resp.Result)
	if info["width"] != float64(128) || info["format"] != "png" || info["grayscale"] != true {
		t.Errorf("unexpected info: %v", info)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(nil)
	path := writeTestPNG(t, "wide.png", image.NewRGBA(image.Rect(0, 0, 200, 150)))

	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"path": path})
	mustSucceed(t, resp)

	dims := decodeToolResult[map[string]int](t, resp.Result)
	if dims["width"] != 200 || dims["height"] != 150 {
		t.Errorf("dimensions: got %v, want 200x150", dims)
	}
}

func TestHandleToolsCall_SurfDetect(t *testing.T) {
	s := New(nil)
	path := writeBlobImage(t)

	resp := callTool(t, s, "surf_detect", blobArgs(path))
	mustSucceed(t, resp)

	result := decodeToolResult[DetectResult](t, resp.Result)
	if result.Count == 0 || len(result.Keypoints) != result.Count {
		t.Fatalf("count %d with %d keypoints", result.Count, len(result.Keypoints))
	}
	if result.Positive+result.Negative != result.Count {
		t.Errorf("positive %d + negative %d != count %d", result.Positive, result.Negative, result.Count)
	}
	if result.ScaleMin > result.ScaleMax {
		t.Errorf("scale range inverted: %v > %v", result.ScaleMin, result.ScaleMax)
	}
	if result.Options.Octaves != 3 || result.Options.InitSample != 1 || result.Options.Threshold != 0.001 {
		t.Errorf("options: got %+v", result.Options)
	}

	found := false
	for _, kp := range result.Keypoints {
		if math.Hypot(kp.X-64, kp.Y-64) <= 3 && kp.Laplacian == 0 {
			found = true
		}
	}
	if !found {
		t.Error("no bright-blob keypoint near the disc centre")
	}
}

func TestHandleToolsCall_SurfDetect_ConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Detector.Octaves = 3
	cfg.Detector.InitSample = 1
	cfg.Detector.Threshold = 0.002
	s := New(cfg)

	resp := callTool(t, s, "surf_detect", map[string]interface{}{"path": writeBlobImage(t)})
	mustSucceed(t, resp)

	result := decodeToolResult[DetectResult](t, resp.Result)
	if result.Options.Octaves != 3 || result.Options.InitSample != 1 || result.Options.Threshold != 0.002 {
		t.Errorf("options: got %+v, want configured defaults", result.Options)
	}

	// An explicit zero threshold is honoured rather than replaced.
	args := blobArgs(writeBlobImage(t))
	args["threshold"] = 0
	resp = callTool(t, s, "surf_detect", args)
	mustSucceed(t, resp)
	if got := decodeToolResult[DetectResult](t, resp.Result).Options.Threshold; got != 0 {
		t.Errorf("threshold: got %v, want 0", got)
	}
}

func TestHandleToolsCall_SurfDetect_PointLimits(t *testing.T) {
	s := New(nil)
	path := writeBlobImage(t)

	args := blobArgs(path)
	args["include_points"] = false
	resp := callTool(t, s, "surf_detect", args)
	mustSucceed(t, resp)
	result := decodeToolResult[DetectResult](t, resp.Result)
	if result.Count == 0 || len(result.Keypoints) != 0 {
		t.Errorf("include_points=false: count %d with %d keypoints", result.Count, len(result.Keypoints))
	}

	args = blobArgs(path)
	args["threshold"] = 0.00001
	args["max_points"] = 1
	resp = callTool(t, s, "surf_detect", args)
	mustSucceed(t, resp)
	result = decodeToolResult[DetectResult](t, resp.Result)
	if len(result.Keypoints) != 1 {
		t.Errorf("max_points=1: got %d keypoints", len(result.Keypoints))
	}
	if result.Count > 1 && !result.Truncated {
		t.Error("truncated flag not set")
	}
}

func TestHandleToolsCall_SurfDetect_Region(t *testing.T) {
	s := New(nil)
	args := blobArgs(writeBlobImage(t))
	args["region"] = map[string]int{"x1": 40, "y1": 40, "x2": 100, "y2": 100}

	resp := callTool(t, s, "surf_detect", args)
	mustSucceed(t, resp)

	result := decodeToolResult[DetectResult](t, resp.Result)
	if result.Region == nil || result.Region.X1 != 40 {
		t.Errorf("region not echoed: %+v", result.Region)
	}

	found := false
	for _, kp := range result.Keypoints {
		if math.Hypot(kp.X-64, kp.Y-64) <= 3 {
			found = true
		}
		if kp.X < 40 || kp.X >= 100 || kp.Y < 40 || kp.Y >= 100 {
			t.Errorf("keypoint (%.1f,%.1f) outside the searched region", kp.X, kp.Y)
		}
	}
	if !found {
		t.Error("region keypoints are not in full image coordinates")
	}
}

func TestHandleToolsCall_SurfDetect_Downscale(t *testing.T) {
	s := New(nil)
	args := blobArgs(writeBlobImage(t))
	args["downscale"] = 0.5

	resp := callTool(t, s, "surf_detect", args)
	mustSucceed(t, resp)

	result := decodeToolResult[DetectResult](t, resp.Result)
	if result.Downscale != 0.5 || result.Width != 128 {
		t.Errorf("got downscale %v width %d, want 0.5 and 128", result.Downscale, result.Width)
	}
	for _, kp := range result.Keypoints {
		if kp.X < 0 || kp.X >= 128 || kp.Y < 0 || kp.Y >= 128 {
			t.Errorf("keypoint (%.1f,%.1f) not mapped back to the source image", kp.X, kp.Y)
		}
	}
}

func TestHandleToolsCall_SurfDetect_Errors(t *testing.T) {
	s := New(nil)
	path := writeBlobImage(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing file", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"too many octaves", map[string]interface{}{"path": path, "octaves": 7}},
		{"zero init sample", map[string]interface{}{"path": path, "init_sample": 0}},
		{"negative threshold", map[string]interface{}{"path": path, "threshold": -0.5}},
		{"unknown quadrant", map[string]interface{}{"path": path, "quadrant": "middle-ish"}},
		{"region outside image", map[string]interface{}{"path": path, "region": map[string]int{"x1": 0, "y1": 0, "x2": 500, "y2": 10}}},
		{"bad downscale", map[string]interface{}{"path": path, "downscale": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "surf_detect", tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_SurfOverlay(t *testing.T) {
	s := New(nil)
	args := blobArgs(writeBlobImage(t))
	args["format"] = "png"

	resp := callTool(t, s, "surf_overlay", args)
	mustSucceed(t, resp)

	result := decodeToolResult[map[string]interface{}](t, resp.Result)
	if result["mime_type"] != "image/png" {
		t.Errorf("mime_type: got %v", result["mime_type"])
	}
	if count, _ := result["keypoint_count"].(float64); count < 1 {
		t.Errorf("keypoint_count: got %v", result["keypoint_count"])
	}

	encoded, _ := result["image_base64"].(string)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
		t.Errorf("overlay size: got %v", img.Bounds())
	}
}

func TestHandleToolsCall_SurfOverlay_ConfigFormat(t *testing.T) {
	s := New(nil)

	resp := callTool(t, s, "surf_overlay", blobArgs(writeBlobImage(t)))
	mustSucceed(t, resp)

	result := decodeToolResult[map[string]interface{}](t, resp.Result)
	if result["mime_type"] != "image/jpeg" {
		t.Errorf("mime_type: got %v, want the configured jpeg", result["mime_type"])
	}
}

func TestHandleToolsCall_IntegralBoxSum(t *testing.T) {
	s := New(nil)
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	path := writeTestPNG(t, "half.png", img)

	// White weight is 0.2989 + 0.5870 + 0.1140 per pixel.
	const white = 0.9999

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantSum  float64
		wantHaar bool
	}{
		{"white half", map[string]interface{}{"path": path, "row": 0, "col": 5, "rows": 4, "cols": 5}, 20 * white, false},
		{"black half", map[string]interface{}{"path": path, "row": 0, "col": 0, "rows": 10, "cols": 5}, 0, false},
		{"clipped", map[string]interface{}{"path": path, "row": 8, "col": 8, "rows": 10, "cols": 10}, 4 * white, false},
		{"with haar", map[string]interface{}{"path": path, "row": 5, "col": 5, "rows": 1, "cols": 1, "haar_size": 4}, white, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "integral_box_sum", tt.args)
			mustSucceed(t, resp)

			result := decodeToolResult[BoxSumResult](t, resp.Result)
			if math.Abs(result.Sum-tt.wantSum) > 1e-9 {
				t.Errorf("sum: got %v, want %v", result.Sum, tt.wantSum)
			}
			if (result.HaarX != nil) != tt.wantHaar {
				t.Errorf("haar present: got %v, want %v", result.HaarX != nil, tt.wantHaar)
			}
		})
	}

	// A vertical edge gives a positive x response and no y response.
	resp := callTool(t, s, "integral_box_sum", map[string]interface{}{
		"path": path, "row": 5, "col": 5, "rows": 1, "cols": 1, "haar_size": 4,
	})
	result := decodeToolResult[BoxSumResult](t, resp.Result)
	if result.HaarX == nil || *result.HaarX <= 0 || math.Abs(*result.HaarY) > 1e-9 {
		t.Errorf("haar: got x=%v y=%v", result.HaarX, result.HaarY)
	}

	resp = callTool(t, s, "integral_box_sum", map[string]interface{}{"path": path, "rows": -1, "cols": 2})
	if resp.Error == nil {
		t.Error("negative size should fail")
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	resp := callTool(t, New(nil), "image_ocr_full", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v, want -32000", resp.Error)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil)
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`{invalid`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v, want -32602", resp.Error)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(nil)
	for _, name := range []string{"image_load", "image_dimensions", "surf_detect", "surf_overlay", "integral_box_sum"} {
		if _, err := s.executeTool(name, json.RawMessage(`{"path": 5`)); err == nil {
			t.Errorf("%s: expected error for invalid JSON", name)
		}
	}
}

func TestExecuteTool_CachesImages(t *testing.T) {
	s := New(nil)
	path := writeBlobImage(t)

	for i := 0; i < 3; i++ {
		if _, err := s.executeTool("surf_detect", json.RawMessage(`{"path":"`+path+`","include_points":false}`)); err != nil {
			t.Fatalf("surf_detect failed: %v", err)
		}
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache entries: got %d, want 1", s.cache.Len())
	}
}
