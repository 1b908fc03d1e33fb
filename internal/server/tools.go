package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the schema of the image path argument every tool takes.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// regionProperty is the schema of an optional rectangular region.
var regionProperty = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (inclusive)"},
		"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (inclusive)"},
		"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
		"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
	},
	"required":    []string{"x1", "y1", "x2", "y2"},
	"description": "Optional region to search. Keypoints are still reported in full image coordinates.",
}

// detectProperties returns the arguments shared by surf_detect and
// surf_overlay.
func detectProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty,
		"threshold": map[string]interface{}{
			"type":        "number",
			"description": "Minimum determinant-of-Hessian response (default 0.001). Lower values return more, weaker keypoints.",
			"default":     0.001,
		},
		"octaves": map[string]interface{}{
			"type":        "integer",
			"description": "Number of scale octaves to search, 1-5 (default 2). Each octave roughly doubles the largest detectable blob.",
			"default":     2,
		},
		"init_sample": map[string]interface{}{
			"type":        "integer",
			"description": "Sampling step of the first octave in pixels (default 2). 1 is slower but finds finer keypoints.",
			"default":     2,
		},
		"region": regionProperty,
		"quadrant": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"full", "top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
			"description": "Named region to search. Ignored when region is given.",
		},
		"downscale": map[string]interface{}{
			"type":        "number",
			"description": "Optional factor in (0, 1] to shrink the image before detection. Positions and scales are mapped back.",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	detect := detectProperties()
	detect["include_points"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Include the keypoint list in the result (default true). Set false for counts and statistics only.",
		"default":     true,
	}
	detect["max_points"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of keypoints to return, in scan order. 0 returns all.",
		"default":     0,
	}

	overlay := detectProperties()
	overlay["format"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"png", "jpeg", "webp"},
		"description": "Encoding of the returned image (default from configuration, jpeg)",
	}
	overlay["quality"] = map[string]interface{}{
		"type":        "integer",
		"description": "JPEG/WebP quality 1-100 (default from configuration, 90)",
	}

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent detection calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Keypoint Detection
		{
			Name:        "surf_detect",
			Description: "Detect SURF (Fast-Hessian) interest points: blob-like features with a sub-pixel position, a characteristic scale and the sign of the Laplacian (1 = dark blob on light background, 0 = light blob on dark background).",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detect,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "surf_overlay",
			Description: "Detect SURF interest points and return the image with each keypoint drawn as a circle sized by its scale: blue for a positive Laplacian, red otherwise.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": overlay,
				"required":   []string{"path"},
			},
		},

		// Integral Image
		{
			Name:        "integral_box_sum",
			Description: "Sum the luma (0-1 per pixel) of a rectangle using the integral image. Parts of the rectangle outside the image contribute zero. Optionally returns Haar wavelet responses of the given size centred at (row, col).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"row":  map[string]interface{}{"type": "integer", "description": "Top row of the rectangle"},
					"col":  map[string]interface{}{"type": "integer", "description": "Left column of the rectangle"},
					"rows": map[string]interface{}{"type": "integer", "description": "Rectangle height in pixels"},
					"cols": map[string]interface{}{"type": "integer", "description": "Rectangle width in pixels"},
					"haar_size": map[string]interface{}{
						"type":        "integer",
						"description": "Optional Haar wavelet size; 0 skips the Haar responses",
						"default":     0,
					},
				},
				"required": []string{"path", "row", "col", "rows", "cols"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
