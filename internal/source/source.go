// Package source provides the static image a loop is built from.
package source

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"
)

type Source interface {
	// Name is a short label used for default output names.
	Name() string
	Image() (image.Image, error)
	Close() error
}

// Options selects and sizes the source.
type Options struct {
	Path   string
	Page   int // zero-based PDF page
	DPI    int
	QRText string
	QRSize int
}

// Open picks the source implementation for opts.
func Open(opts Options) (Source, error) {
	switch {
	case opts.QRText != "":
		return NewQRSource(opts.QRText, opts.QRSize), nil
	case opts.Path == "":
		return nil, fmt.Errorf("no input given")
	case strings.EqualFold(filepath.Ext(opts.Path), ".pdf"):
		return NewFitzPDFSource(opts.Path, opts.Page, opts.DPI)
	default:
		return NewImageSource(opts.Path), nil
	}
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
	page int
	dpi  int
}

func NewFitzPDFSource(path string, page, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if page < 0 || page >= doc.NumPage() {
		n := doc.NumPage()
		doc.Close()
		return nil, fmt.Errorf("page %d out of range, %s has %d pages", page+1, filepath.Base(path), n)
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, page: page, dpi: dpi}, nil
}

func (f *FitzPDFSource) Name() string {
	return fmt.Sprintf("%s_p%d", baseName(f.path), f.page+1)
}

func (f *FitzPDFSource) Image() (image.Image, error) {
	return f.doc.ImageDPI(f.page, float64(f.dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// QRSource renders text as a QR code, handy for demos and smoke runs.
type QRSource struct {
	text string
	size int
}

func NewQRSource(text string, size int) *QRSource {
	if size <= 0 {
		size = 256
	}
	return &QRSource{text: text, size: size}
}

func (q *QRSource) Name() string { return "qr" }

func (q *QRSource) Image() (image.Image, error) {
	code, err := qrcode.New(q.text, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.Image(q.size), nil
}

func (q *QRSource) Close() error { return nil }

// Fit scales img down to fit within maxW x maxH, keeping the aspect ratio.
// Zero limits are ignored; images already inside the box are returned as is.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	if scale == 1.0 {
		return img
	}
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func baseName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, " ", "_")
}
