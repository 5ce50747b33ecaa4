// Package raster holds the pixel-level capabilities the frame pipeline
// delegates to: composing the tiled canvas, cropping frames out of it and
// flattening transparent frames onto a solid colour. Every capability works on
// file paths so in-process and external-tool backends are interchangeable.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ivlev/scrollloop/internal/geometry"
)

// Compositor builds the base canvas: src repeated per layout on a transparent
// background, written to dst.
type Compositor interface {
	Compose(src string, layout geometry.Layout, dst string) error
}

// Extractor crops win out of the canvas and writes it to dst.
type Extractor interface {
	Extract(canvas string, win image.Rectangle, dst string) error
}

// Flattener merges the transparency of frame onto bg, in place.
type Flattener interface {
	Flatten(frame string, bg color.Color) error
}

// Backend provides all three capabilities.
type Backend interface {
	Compositor
	Extractor
	Flattener
	Name() string
}

// New returns the backend registered under name.
func New(name, magickPath string) (Backend, error) {
	switch name {
	case "native", "":
		return NewNative(), nil
	case "magick":
		return NewMagick(magickPath), nil
	default:
		return nil, fmt.Errorf("unknown raster backend: %s", name)
	}
}

var encoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &bufferPool{ch: make(chan *png.EncoderBuffer, 32)}}

// WritePNG encodes img to path through a sibling temp file so readers never
// see a partially written frame.
func WritePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+filepath.Ext(path))
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := encoder.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

type bufferPool struct {
	ch chan *png.EncoderBuffer
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	select {
	case b := <-p.ch:
		return b
	default:
		return nil
	}
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	select {
	case p.ch <- b:
	default:
	}
}

// Hex formats c as #rrggbb.
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
