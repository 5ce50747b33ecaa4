package video

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/kettek/apng"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/scrollloop/internal/pool"
	"github.com/ivlev/scrollloop/internal/raster"
)

// GIFEncoder writes an infinitely looping GIF with one palette per frame.
type GIFEncoder struct{}

func (e *GIFEncoder) Assemble(ctx context.Context, seq raster.Sequence, out string, p Params) error {
	frames := make([]*image.Paletted, seq.Count)
	q := quantize.MedianCutQuantizer{AddTransparent: true}

	err := loadFrames(seq, p.Workers, func(i int, img image.Image) {
		frames[i] = toPaletted(img, q)
	})
	if err != nil {
		return err
	}

	delay := GIFDelay(p.FPS)
	anim := &gif.GIF{LoopCount: 0}
	for _, f := range frames {
		anim.Image = append(anim.Image, f)
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}

	return writeFile(out, func(w *os.File) error {
		return gif.EncodeAll(w, anim)
	})
}

func toPaletted(img image.Image, q quantize.MedianCutQuantizer) *image.Paletted {
	b := img.Bounds()
	palette := q.Quantize(make(color.Palette, 0, 256), img)
	pm := image.NewPaletted(b, palette)
	xdraw.Draw(pm, b, img, b.Min, xdraw.Src)
	return pm
}

// GIFDelay converts fps to the GIF delay in 1/100 s. Browsers clamp delays
// below 2 to 10, so 2 is the floor.
func GIFDelay(fps float64) int {
	if fps <= 0 {
		return 10
	}
	d := int(math.Round(100 / fps))
	if d < 2 {
		d = 2
	}
	return d
}

// APNGEncoder writes a looping APNG that keeps full colour and alpha.
type APNGEncoder struct{}

func (e *APNGEncoder) Assemble(ctx context.Context, seq raster.Sequence, out string, p Params) error {
	frames := make([]apng.Frame, seq.Count)
	num, den := apngDelay(p.FPS)

	err := loadFrames(seq, p.Workers, func(i int, img image.Image) {
		frames[i] = apng.Frame{
			Image:            img,
			DelayNumerator:   num,
			DelayDenominator: den,
			DisposeOp:        apng.DISPOSE_OP_BACKGROUND,
			BlendOp:          apng.BLEND_OP_SOURCE,
		}
	})
	if err != nil {
		return err
	}

	return writeFile(out, func(w *os.File) error {
		return apng.Encode(w, apng.APNG{Frames: frames, LoopCount: 0})
	})
}

// apngDelay expresses 1/fps as a uint16 fraction of a second.
func apngDelay(fps float64) (num, den uint16) {
	if fps <= 0 {
		return 1, 10
	}
	if fps == math.Trunc(fps) && fps <= math.MaxUint16 {
		return 1, uint16(fps)
	}
	n := math.Round(1000 / fps)
	if n < 1 {
		n = 1
	}
	if n > math.MaxUint16 {
		n = math.MaxUint16
	}
	return uint16(n), 1000
}

// loadFrames decodes every frame of seq on the worker pool and hands it to
// store together with its index.
func loadFrames(seq raster.Sequence, workers int, store func(i int, img image.Image)) error {
	out := pool.Run(seq.Count, workers, func(i int) error {
		img, err := imaging.Open(seq.Path(i))
		if err != nil {
			return err
		}
		store(i, img)
		return nil
	})
	if first, failed := out.First(); failed {
		return fmt.Errorf("read %d of %d frames failed, first: %s: %w", out.Failed(), seq.Count, seq.Name(first.Index), first.Err)
	}
	return nil
}

func writeFile(path string, encode func(w *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
