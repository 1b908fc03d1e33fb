// Package config loads the YAML settings shared by the MCP server and the
// surf-detect command line tool.
//
// A missing file is not an error: Load returns Default() so both binaries
// run without any configuration. Values present in the file override the
// defaults field by field.
//
// Example file:
//
//	detector:
//	  threshold: 0.001
//	  octaves: 2
//	  initSample: 2
//	  workers: 0
//	overlay:
//	  positiveColor: "#0000FF"
//	  negativeColor: "#FF0000"
//	  orientationColor: "#FFFFFF"
//	  grayscale: true
//	  format: jpeg
//	  quality: 90
//	output:
//	  dir: .
//	  prefix: interest-points-
//	  writeJSON: true
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/surf-tools-mcp/internal/detection"
	"github.com/ironsheep/surf-tools-mcp/internal/imaging"
)

// EnvConfigPath names the environment variable the server reads its
// configuration path from.
const EnvConfigPath = "SURF_MCP_CONFIG"

// Config is the complete application configuration.
type Config struct {
	// Detector holds the Fast-Hessian parameters.
	Detector detection.Options `yaml:"detector"`

	// Overlay controls how keypoints are drawn.
	Overlay struct {
		// PositiveColor is used for keypoints with Laplacian 1.
		PositiveColor string `yaml:"positiveColor"`

		// NegativeColor is used for keypoints with Laplacian 0.
		NegativeColor string `yaml:"negativeColor"`

		// OrientationColor is used for the orientation line.
		OrientationColor string `yaml:"orientationColor"`

		// Grayscale draws on a luma copy of the input.
		Grayscale bool `yaml:"grayscale"`

		// Format is the overlay encoding: png, jpeg or webp.
		Format string `yaml:"format"`

		// Quality applies to jpeg and webp, 1-100.
		Quality int `yaml:"quality"`
	} `yaml:"overlay"`

	// Output controls where the command line tool writes results.
	Output struct {
		Dir       string `yaml:"dir"`
		Prefix    string `yaml:"prefix"`
		WriteJSON bool   `yaml:"writeJSON"`
	} `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{Detector: detection.DefaultOptions()}

	cfg.Overlay.PositiveColor = "#0000FF"
	cfg.Overlay.NegativeColor = "#FF0000"
	cfg.Overlay.OrientationColor = "#FFFFFF"
	cfg.Overlay.Grayscale = true
	cfg.Overlay.Format = "jpeg"
	cfg.Overlay.Quality = 90

	cfg.Output.Dir = "."
	cfg.Output.Prefix = "interest-points-"
	cfg.Output.WriteJSON = true

	return cfg
}

// Load reads a YAML configuration file on top of Default().
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by SURF_MCP_CONFIG.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}

	colors := []struct {
		key, value string
	}{
		{"overlay.positiveColor", c.Overlay.PositiveColor},
		{"overlay.negativeColor", c.Overlay.NegativeColor},
		{"overlay.orientationColor", c.Overlay.OrientationColor},
	}
	for _, col := range colors {
		if _, err := colorful.Hex(col.value); err != nil {
			return fmt.Errorf("%s must be a #RRGGBB colour, got %q", col.key, col.value)
		}
	}

	switch strings.ToLower(c.Overlay.Format) {
	case "png", "jpeg", "jpg", "webp":
	default:
		return fmt.Errorf("overlay.format must be png, jpeg or webp, got %q", c.Overlay.Format)
	}

	if c.Overlay.Quality < 1 || c.Overlay.Quality > 100 {
		return fmt.Errorf("overlay.quality must be between 1 and 100")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}

	return nil
}

// DetectorOptions returns the detector section as detection options.
func (c *Config) DetectorOptions() detection.Options {
	return c.Detector
}

// OverlayStyle parses the overlay colours.
func (c *Config) OverlayStyle() (imaging.OverlayStyle, error) {
	return imaging.ParseOverlayStyle(c.Overlay.PositiveColor, c.Overlay.NegativeColor,
		c.Overlay.OrientationColor, c.Overlay.Grayscale)
}
