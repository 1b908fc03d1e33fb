// Command surf-detect finds SURF interest points in image files and writes
// an annotated overlay and a JSON keypoint list next to each one.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ironsheep/surf-tools-mcp/internal/config"
	"github.com/ironsheep/surf-tools-mcp/internal/detection"
	"github.com/ironsheep/surf-tools-mcp/internal/imaging"
)

// Version information - set by ldflags during build
var Version = "dev"

// detectFlags are the command line overrides of the configuration file.
type detectFlags struct {
	ConfigFilename string
	Octaves        int
	InitSample     int
	Threshold      float64
	Workers        int
	OutputDir      string
	Format         string
}

func (flags *detectFlags) AsCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "YAML configuration file; missing files fall back to the defaults.",
			EnvVars:     []string{config.EnvConfigPath},
			Destination: &flags.ConfigFilename,
		},
		&cli.IntFlag{
			Name:        "octaves",
			Aliases:     []string{"o"},
			Value:       2,
			Usage:       "Number of octaves to search, 1-5.",
			Destination: &flags.Octaves,
		},
		&cli.IntFlag{
			Name:        "init-sample",
			Aliases:     []string{"i"},
			Value:       2,
			Usage:       "Sampling step of the first octave in pixels.",
			Destination: &flags.InitSample,
		},
		&cli.Float64Flag{
			Name:        "threshold",
			Aliases:     []string{"t"},
			Value:       0.001,
			Usage:       "Minimum determinant-of-Hessian response.",
			Destination: &flags.Threshold,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "Goroutines used per image, 0 for one per CPU.",
			Destination: &flags.Workers,
		},
		&cli.StringFlag{
			Name:        "out",
			Usage:       "Directory for the overlay and JSON files.",
			Destination: &flags.OutputDir,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "Overlay encoding: png, jpeg or webp.",
			Destination: &flags.Format,
		},
	}
}

// apply loads the configuration and overrides it with the flags the user
// actually set.
func (flags *detectFlags) apply(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(flags.ConfigFilename)
	if err != nil {
		return nil, err
	}

	if c.IsSet("octaves") {
		cfg.Detector.Octaves = flags.Octaves
	}
	if c.IsSet("init-sample") {
		cfg.Detector.InitSample = flags.InitSample
	}
	if c.IsSet("threshold") {
		cfg.Detector.Threshold = flags.Threshold
	}
	if c.IsSet("workers") {
		cfg.Detector.Workers = flags.Workers
	}
	if c.IsSet("out") {
		cfg.Output.Dir = flags.OutputDir
	}
	if c.IsSet("format") {
		cfg.Overlay.Format = flags.Format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// outputs holds the files written for one input image.
type outputs struct {
	Image     string
	JSON      string
	Keypoints int
}

// fileExt maps an overlay format to a file extension.
func fileExt(format string) string {
	switch f := strings.ToLower(format); f {
	case "jpeg", "jpg":
		return "jpg"
	default:
		return f
	}
}

// detectFile runs the detector on one image and writes its overlay and,
// when configured, its keypoint list.
func detectFile(cache *imaging.ImageCache, cfg *config.Config, path string) (*outputs, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	// Each file is read once.
	defer cache.Evict(path)

	start := time.Now()
	kps, err := detection.Detect(img, cfg.DetectorOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to detect keypoints in %s: %w", path, err)
	}
	if os.Getenv("SURF_MCP_LOG_LEVEL") == "debug" {
		log.Printf("%s: %d keypoints in %v", path, len(kps), time.Since(start))
	}

	style, err := cfg.OverlayStyle()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base := filepath.Join(cfg.Output.Dir, cfg.Output.Prefix+name)
	out := &outputs{Image: base + "." + fileExt(cfg.Overlay.Format), Keypoints: len(kps)}

	f, err := os.Create(out.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay file: %w", err)
	}
	canvas := imaging.DrawKeypoints(img, kps, style)
	if err := imaging.EncodeImage(f, canvas, cfg.Overlay.Format, cfg.Overlay.Quality); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write overlay file: %w", err)
	}

	if cfg.Output.WriteJSON {
		if kps == nil {
			kps = []detection.Keypoint{}
		}
		data, err := json.MarshalIndent(kps, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal keypoints: %w", err)
		}
		out.JSON = base + ".json"
		if err := os.WriteFile(out.JSON, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write keypoint file: %w", err)
		}
	}

	return out, nil
}

func newApp() *cli.App {
	var flags detectFlags
	return &cli.App{
		Name:    "surf-detect",
		Usage:   "Detect SURF interest points in image files.",
		Version: Version,
		Before: func(c *cli.Context) error {
			log.SetOutput(os.Stderr)
			log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:        "detect",
				Usage:       "Write an overlay and a keypoint list for each image.",
				Description: "Each input produces <prefix><name>.<ext> and <prefix><name>.json in the output directory.",
				ArgsUsage:   "IMAGE [IMAGE...]",
				Flags:       (&flags).AsCliFlags(),
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("no input images given", 1)
					}
					cfg, err := flags.apply(c)
					if err != nil {
						return err
					}

					cache := imaging.NewImageCache()
					for _, path := range c.Args().Slice() {
						out, err := detectFile(cache, cfg, path)
						if err != nil {
							return err
						}
						name := filepath.Base(path)
						if out.JSON != "" {
							fmt.Fprintf(c.App.Writer, "%s --> %s + %s\n", name, out.Image, out.JSON)
						} else {
							fmt.Fprintf(c.App.Writer, "%s --> %s\n", name, out.Image)
						}
					}
					return nil
				},
			},
			{
				Name:      "init-config",
				Usage:     "Write the default configuration to a YAML file.",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one output path", 1)
					}
					return config.Default().Save(c.Args().First())
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
