// Package server implements the MCP (Model Context Protocol) server for SURF
// interest point detection.
//
// This package provides a JSON-RPC 2.0 server that exposes the Fast-Hessian
// detector and its integral image through the MCP protocol, so MCP clients
// can locate blob-like features in an image and inspect them.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Keypoint Detection:
//   - surf_detect: Detect interest points, optionally within a region or on
//     a downscaled copy, with counts and scale statistics
//   - surf_overlay: Detect and return the image with keypoints drawn
//
// Integral Image:
//   - integral_box_sum: Luma box sum and Haar wavelet responses
//
// Detector arguments that are omitted fall back to the configuration the
// server was created with (see package config).
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by absolute path and reused across tool calls for the lifetime of the
// process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := config.LoadFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
