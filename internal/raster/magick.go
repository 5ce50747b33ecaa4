package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/ivlev/scrollloop/internal/geometry"
	"github.com/ivlev/scrollloop/internal/system"
)

// Magick implements Backend by shelling out to ImageMagick 7.
type Magick struct {
	Bin string
}

func NewMagick(bin string) *Magick {
	if bin == "" {
		bin = "magick"
	}
	return &Magick{Bin: bin}
}

func (m *Magick) Name() string { return "magick" }

func (m *Magick) Compose(src string, layout geometry.Layout, dst string) error {
	w, h, err := imageSize(src)
	if err != nil {
		return err
	}
	return system.RunTool(context.Background(), m.Bin, composeArgs(src, w, h, layout, dst)...)
}

func (m *Magick) Extract(canvas string, win image.Rectangle, dst string) error {
	return system.RunTool(context.Background(), m.Bin, extractArgs(canvas, win, dst)...)
}

func (m *Magick) Flatten(frame string, bg color.Color) error {
	return system.RunTool(context.Background(), m.Bin, flattenArgs(frame, bg)...)
}

func composeArgs(src string, w, h int, layout geometry.Layout, dst string) []string {
	size := layout.CanvasSize(w, h)
	args := []string{"-size", fmt.Sprintf("%dx%d", size.X, size.Y), "xc:none"}
	for row := 0; row < layout.Rows; row++ {
		for col := 0; col < layout.Cols; col++ {
			at := layout.Origin(col, row, w, h)
			args = append(args, src, "-geometry", fmt.Sprintf("+%d+%d", at.X, at.Y), "-composite")
		}
	}
	return append(args, "PNG32:"+dst)
}

func extractArgs(canvas string, win image.Rectangle, dst string) []string {
	return []string{
		canvas,
		"-crop", fmt.Sprintf("%dx%d+%d+%d", win.Dx(), win.Dy(), win.Min.X, win.Min.Y),
		"+repage",
		"PNG32:" + dst,
	}
}

func flattenArgs(frame string, bg color.Color) []string {
	return []string{frame, "-background", Hex(bg), "-alpha", "remove", "-alpha", "off", frame}
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
