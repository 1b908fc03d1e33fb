package server

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/ironsheep/surf-tools-mcp/internal/detection"
	"github.com/ironsheep/surf-tools-mcp/internal/imaging"
	"github.com/ironsheep/surf-tools-mcp/internal/integral"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "surf_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.debugf("tool %s failed after %v: %v", params.Name, time.Since(start), err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.debugf("tool %s finished in %v", params.Name, time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Keypoint Detection
	case "surf_detect":
		return s.handleSurfDetect(args)
	case "surf_overlay":
		return s.handleSurfOverlay(args)

	// Integral Image
	case "integral_box_sum":
		return s.handleIntegralBoxSum(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Keypoint Detection Handlers ===

// detectArgs are shared by surf_detect and surf_overlay. Pointer fields are
// optional and fall back to the server configuration.
type detectArgs struct {
	Path          string          `json:"path"`
	Threshold     *float64        `json:"threshold"`
	Octaves       *int            `json:"octaves"`
	InitSample    *int            `json:"init_sample"`
	Region        *imaging.Region `json:"region"`
	Quadrant      string          `json:"quadrant"`
	Downscale     float64         `json:"downscale"`
	IncludePoints *bool           `json:"include_points"`
	MaxPoints     int             `json:"max_points"`
}

// options merges the call arguments over the configured detector defaults.
func (a *detectArgs) options(defaults detection.Options) detection.Options {
	opts := defaults
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if a.Octaves != nil {
		opts.Octaves = *a.Octaves
	}
	if a.InitSample != nil {
		opts.InitSample = *a.InitSample
	}
	return opts
}

// DetectResult summarizes one surf_detect call.
type DetectResult struct {
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Options   detection.Options    `json:"options"`
	Region    *imaging.Region      `json:"region,omitempty"`
	Downscale float64              `json:"downscale,omitempty"`
	Count     int                  `json:"count"`
	Positive  int                  `json:"positive"`
	Negative  int                  `json:"negative"`
	ScaleMin  float64              `json:"scale_min"`
	ScaleMax  float64              `json:"scale_max"`
	ElapsedMS float64              `json:"elapsed_ms"`
	Truncated bool                 `json:"truncated,omitempty"`
	Keypoints []detection.Keypoint `json:"keypoints,omitempty"`
}

// detect loads the image, applies the optional region and downscale, runs
// the detector and maps keypoints back to source image coordinates.
func (s *Server) detect(a *detectArgs) (image.Image, *DetectResult, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}

	opts := a.options(s.cfg.DetectorOptions())
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	result := &DetectResult{
		Width:   img.Bounds().Dx(),
		Height:  img.Bounds().Dy(),
		Options: opts,
	}

	work := img
	originX, originY := 0, 0

	if a.Region == nil && a.Quadrant != "" {
		r, err := imaging.NamedRegion(a.Quadrant, img.Bounds())
		if err != nil {
			return nil, nil, err
		}
		a.Region = &r
	}
	if a.Region != nil {
		work, err = imaging.CropRegion(img, *a.Region)
		if err != nil {
			return nil, nil, err
		}
		originX = a.Region.X1 - img.Bounds().Min.X
		originY = a.Region.Y1 - img.Bounds().Min.Y
		result.Region = a.Region
	}

	factor := 1.0
	if a.Downscale != 0 {
		work, err = imaging.Downscale(work, a.Downscale)
		if err != nil {
			return nil, nil, err
		}
		factor = a.Downscale
		result.Downscale = factor
	}

	start := time.Now()
	kps, err := detection.Detect(work, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to detect keypoints: %w", err)
	}
	result.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000

	kps = imaging.MapKeypoints(kps, originX, originY, factor)
	summarize(result, kps)

	s.debugf("surf_detect %s: %d keypoints in %.1fms", a.Path, result.Count, result.ElapsedMS)

	if a.IncludePoints == nil || *a.IncludePoints {
		result.Keypoints = kps
		if a.MaxPoints > 0 && len(kps) > a.MaxPoints {
			result.Keypoints = kps[:a.MaxPoints]
			result.Truncated = true
		}
	}

	return img, result, nil
}

// summarize fills the count and scale statistics of result.
func summarize(result *DetectResult, kps []detection.Keypoint) {
	result.Count = len(kps)
	if len(kps) == 0 {
		return
	}

	result.ScaleMin, result.ScaleMax = math.Inf(1), math.Inf(-1)
	for _, kp := range kps {
		if kp.Laplacian > 0 {
			result.Positive++
		} else {
			result.Negative++
		}
		result.ScaleMin = math.Min(result.ScaleMin, kp.Scale)
		result.ScaleMax = math.Max(result.ScaleMax, kp.Scale)
	}
}

func (s *Server) handleSurfDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, result, err := s.detect(&a)
	return result, err
}

type surfOverlayArgs struct {
	detectArgs
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

// OverlayResponse pairs an encoded overlay with its detection summary.
type OverlayResponse struct {
	*imaging.OverlayResult
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	ScaleMin float64 `json:"scale_min"`
	ScaleMax float64 `json:"scale_max"`
}

func (s *Server) handleSurfOverlay(args json.RawMessage) (interface{}, error) {
	var a surfOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = s.cfg.Overlay.Format
	}
	if a.Quality == 0 {
		a.Quality = s.cfg.Overlay.Quality
	}

	// The overlay always draws every keypoint.
	include := true
	a.IncludePoints = &include
	a.MaxPoints = 0

	img, result, err := s.detect(&a.detectArgs)
	if err != nil {
		return nil, err
	}

	style, err := s.cfg.OverlayStyle()
	if err != nil {
		return nil, err
	}

	overlay, err := imaging.KeypointOverlay(img, result.Keypoints, style, a.Format, a.Quality)
	if err != nil {
		return nil, err
	}

	return &OverlayResponse{
		OverlayResult: overlay,
		Positive:      result.Positive,
		Negative:      result.Negative,
		ScaleMin:      result.ScaleMin,
		ScaleMax:      result.ScaleMax,
	}, nil
}

// === Integral Image Handlers ===

type integralBoxSumArgs struct {
	Path     string `json:"path"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	Rows     int    `json:"rows"`
	Cols     int    `json:"cols"`
	HaarSize int    `json:"haar_size"`
}

// BoxSumResult reports a luma box sum and optional Haar responses.
type BoxSumResult struct {
	Sum   float64  `json:"sum"`
	Area  int      `json:"area"`
	Mean  float64  `json:"mean"`
	HaarX *float64 `json:"haar_x,omitempty"`
	HaarY *float64 `json:"haar_y,omitempty"`
}

func (s *Server) handleIntegralBoxSum(args json.RawMessage) (interface{}, error) {
	var a integralBoxSumArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Rows < 0 || a.Cols < 0 {
		return nil, fmt.Errorf("rows and cols must be >= 0")
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	ii, err := integral.FromImage(img)
	if err != nil {
		return nil, err
	}

	result := &BoxSumResult{
		Sum:  ii.BoxIntegral(a.Row, a.Col, a.Rows, a.Cols),
		Area: a.Rows * a.Cols,
	}
	if result.Area > 0 {
		result.Mean = result.Sum / float64(result.Area)
	}

	if a.HaarSize > 0 {
		hx := ii.HaarX(a.Row, a.Col, a.HaarSize)
		hy := ii.HaarY(a.Row, a.Col, a.HaarSize)
		result.HaarX, result.HaarY = &hx, &hy
	}

	return result, nil
}
