package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.InputPath = "in.png"
	cfg.Outputs = []string{"out.gif"}
	return cfg
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.InputPath = "" }},
		{"no outputs", func(c *Config) { c.Outputs = nil }},
		{"three outputs", func(c *Config) { c.Outputs = []string{"a.gif", "b.mp4", "c.webm"} }},
		{"duplicate outputs", func(c *Config) { c.Outputs = []string{"a.gif", "./a.gif"} }},
		{"negative gap", func(c *Config) { c.Gap = -1 }},
		{"no rate", func(c *Config) { c.FPS = 0 }},
		{"bad workers", func(c *Config) { c.Workers = -2 }},
		{"bad colour", func(c *Config) { c.Background = "#12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	qr := validConfig()
	qr.InputPath = ""
	qr.QRText = "hello"
	if err := qr.Validate(); err != nil {
		t.Errorf("QR input should be valid: %v", err)
	}
}

func TestFrameRate(t *testing.T) {
	cfg := validConfig()
	if got := cfg.FrameRate(110); got != 30 {
		t.Errorf("Expected 30, got %f", got)
	}
	cfg.Duration = 5.5
	if got := cfg.FrameRate(110); got != 20 {
		t.Errorf("Expected 20, got %f", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"", color.NRGBA{}, false},
		{"none", color.NRGBA{}, false},
		{"White", color.NRGBA{255, 255, 255, 255}, true},
		{"#ff8000", color.NRGBA{255, 128, 0, 255}, true},
		{"0a0b0c", color.NRGBA{10, 11, 12, 255}, true},
		{"#abc", color.NRGBA{0xaa, 0xbb, 0xcc, 255}, true},
		{"orange", color.NRGBA{255, 165, 0, 255}, true},
		{" Navy ", color.NRGBA{0, 0, 128, 255}, true},
		{"chartreuse", color.NRGBA{127, 255, 0, 255}, true},
	}
	for _, tt := range tests {
		got, ok, err := ParseColor(tt.in)
		if err != nil {
			t.Fatalf("ParseColor(%q) failed: %v", tt.in, err)
		}
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseColor(%q): expected (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
	for _, bad := range []string{"#12", "zzzzzz", "brightfuchsia"} {
		if _, _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q): expected error", bad)
		}
	}
}

func TestLoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loop.yaml")
	os.WriteFile(path, []byte("input: banner.png\ndirection: ur\ngap: 12\noutputs: [a.gif, a.mp4]\nworkers: -1\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.InputPath != "banner.png" || cfg.Direction != "ur" || cfg.Gap != 12 || cfg.Workers != -1 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if len(cfg.Outputs) != 2 {
		t.Errorf("Expected 2 outputs, got %v", cfg.Outputs)
	}
	if cfg.FPS != 30 || cfg.FrameCap != 10000 {
		t.Errorf("Defaults lost: fps=%v cap=%d", cfg.FPS, cfg.FrameCap)
	}

	out := filepath.Join(dir, "copy.yaml")
	if err := Write(cfg, out); err != nil {
		t.Fatal(err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if again.Gap != cfg.Gap || again.Direction != cfg.Direction {
		t.Errorf("Round trip changed config: %+v", again)
	}

	os.WriteFile(path, []byte("gap: [oops"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}
