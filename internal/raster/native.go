package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ivlev/scrollloop/internal/geometry"
	"github.com/ivlev/scrollloop/internal/system"
)

// Native implements Backend in-process. Canvases are decoded once and shared
// read-only between extraction workers.
type Native struct {
	mu       sync.Mutex
	canvases map[string]*image.NRGBA
	frames   map[image.Point]*system.FramePool
}

func NewNative() *Native {
	return &Native{
		canvases: make(map[string]*image.NRGBA),
		frames:   make(map[image.Point]*system.FramePool),
	}
}

func (n *Native) Name() string { return "native" }

func (n *Native) Compose(src string, layout geometry.Layout, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	canvas := ComposeImage(img, layout)
	if err := WritePNG(dst, canvas); err != nil {
		return err
	}

	n.mu.Lock()
	n.canvases[dst] = canvas
	n.mu.Unlock()
	return nil
}

// ComposeImage lays out layout.Copies() copies of img on a transparent canvas.
func ComposeImage(img image.Image, layout geometry.Layout) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	size := layout.CanvasSize(w, h)
	canvas := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	for row := 0; row < layout.Rows; row++ {
		for col := 0; col < layout.Cols; col++ {
			pasteRect(canvas, src, layout.Origin(col, row, w, h))
		}
	}
	return canvas
}

func pasteRect(dst, src *image.NRGBA, at image.Point) {
	rowLen := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		di := dst.PixOffset(at.X, at.Y+y)
		si := y * src.Stride
		copy(dst.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
}

func (n *Native) Extract(canvasPath string, win image.Rectangle, dst string) error {
	canvas, err := n.canvas(canvasPath)
	if err != nil {
		return err
	}
	if !win.In(canvas.Bounds()) {
		return fmt.Errorf("window %v outside canvas %v", win, canvas.Bounds())
	}

	frames := n.framePool(win.Size())
	buf := frames.Get()
	defer frames.Put(buf)

	copyRect(buf, canvas, win.Min)
	return WritePNG(dst, buf)
}

// copyRect copies dst.Rect.Size() pixels starting at at, row by row, so frame
// pixels are bit-exact copies of the canvas.
func copyRect(dst, src *image.NRGBA, at image.Point) {
	rowLen := dst.Rect.Dx() * 4
	for y := 0; y < dst.Rect.Dy(); y++ {
		si := src.PixOffset(at.X, at.Y+y)
		di := y * dst.Stride
		copy(dst.Pix[di:di+rowLen], src.Pix[si:si+rowLen])
	}
}

func (n *Native) Flatten(frame string, bg color.Color) error {
	img, err := imaging.Open(frame)
	if err != nil {
		return err
	}
	return WritePNG(frame, FlattenImage(img, bg))
}

// FlattenImage draws img over a solid bg of the same size.
func FlattenImage(img image.Image, bg color.Color) *image.NRGBA {
	b := img.Bounds()
	base := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(base, img, image.Pt(0, 0), 1.0)
}

func (n *Native) canvas(path string) (*image.NRGBA, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.canvases[path]; ok {
		return c, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load canvas: %w", err)
	}
	c := imaging.Clone(img)
	n.canvases[path] = c
	return c, nil
}

func (n *Native) framePool(size image.Point) *system.FramePool {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.frames[size]
	if !ok {
		p = system.NewFramePool(size.X, size.Y)
		n.frames[size] = p
	}
	return p
}
