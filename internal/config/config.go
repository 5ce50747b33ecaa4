package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/scrollloop/internal/geometry"
)

// MaxOutputs is the number of artifacts a single run may produce.
const MaxOutputs = 2

type Config struct {
	InputPath string `yaml:"input"`
	Page      int    `yaml:"page"`
	DPI       int    `yaml:"dpi"`
	QRText    string `yaml:"qr"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`

	Outputs    []string `yaml:"outputs"`
	Direction  string   `yaml:"direction"`
	Gap        int      `yaml:"gap"`
	FrameCap   int      `yaml:"frame_cap"`
	FPS        float64  `yaml:"fps"`
	Duration   float64  `yaml:"duration"`
	Workers    int      `yaml:"workers"`
	Background string   `yaml:"background"`

	Backend      string `yaml:"backend"`
	MagickPath   string `yaml:"magick"`
	VideoEncoder string `yaml:"encoder"`
	Quality      int    `yaml:"quality"`
	FramesDir    string `yaml:"frames_dir"`

	ShowStats    bool   `yaml:"stats"`
	Verbose      bool   `yaml:"verbose"`
	BuildVersion string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		DPI:       150,
		Direction: string(geometry.LeftShift),
		FrameCap:  geometry.DefaultFrameCap,
		FPS:       30,
		Backend:   "native",
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Write stores cfg as YAML, e.g. to reproduce a run.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks everything except the direction, which the engine resolves
// before any work starts.
func (c *Config) Validate() error {
	if c.InputPath == "" && c.QRText == "" {
		return fmt.Errorf("no input given")
	}
	if len(c.Outputs) == 0 || len(c.Outputs) > MaxOutputs {
		return fmt.Errorf("expected 1 or %d outputs, got %d", MaxOutputs, len(c.Outputs))
	}
	seen := map[string]bool{}
	for _, o := range c.Outputs {
		if o == "" {
			return fmt.Errorf("empty output path")
		}
		abs, _ := filepath.Abs(o)
		if seen[abs] {
			return fmt.Errorf("output %s given twice", o)
		}
		seen[abs] = true
	}
	if c.Gap < 0 {
		return fmt.Errorf("gap must be >= 0, got %d", c.Gap)
	}
	if c.FrameCap < 0 {
		return fmt.Errorf("frame cap must be >= 0, got %d", c.FrameCap)
	}
	if c.Duration < 0 || (c.Duration == 0 && c.FPS <= 0) {
		return fmt.Errorf("need a positive fps or duration")
	}
	if c.Workers < -1 {
		return fmt.Errorf("workers must be -1 (all cores), 0 (auto) or a positive count, got %d", c.Workers)
	}
	if _, _, err := ParseColor(c.Background); err != nil {
		return err
	}
	return nil
}

// FrameRate is the playback rate for a loop of frames frames: derived from
// Duration when set, else FPS.
func (c *Config) FrameRate(frames int) float64 {
	if c.Duration > 0 && frames > 0 {
		return float64(frames) / c.Duration
	}
	return c.FPS
}

// ParseColor accepts "", "none", an SVG colour name or #rgb / #rrggbb.
// ok is false when no background is requested.
func ParseColor(s string) (c color.NRGBA, ok bool, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return color.NRGBA{}, false, nil
	}
	if named, found := colornames.Map[s]; found {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: 255}, true, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, false, fmt.Errorf("bad background colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false, fmt.Errorf("bad background colour %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true, nil
}
