// Package geometry maps a scroll direction and image size to the tiled canvas
// layout, the loop length and the crop offset of every frame.
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// DefaultFrameCap bounds diagonal loops whose true period is too long.
const DefaultFrameCap = 10000

var ErrInvalidDimensions = errors.New("invalid dimensions")

// Layout describes how many copies of the source image make up the base
// canvas and how they are arranged.
type Layout struct {
	Cols int
	Rows int
	Gap  int
}

func NewLayout(m AxisMotion, gap int) (Layout, error) {
	if gap < 0 {
		return Layout{}, fmt.Errorf("%w: gap %d is negative", ErrInvalidDimensions, gap)
	}
	l := Layout{Cols: 1, Rows: 1, Gap: gap}
	if m.H != AxisNone {
		l.Cols = 2
	}
	if m.V != AxisNone {
		l.Rows = 2
	}
	if l.Copies() < 2 {
		return Layout{}, fmt.Errorf("%w: motion %s has no axis", ErrInvalidDirection, m)
	}
	return l, nil
}

func (l Layout) Copies() int {
	return l.Cols * l.Rows
}

// CanvasSize is the size of the composed canvas for a w x h source.
func (l Layout) CanvasSize(w, h int) image.Point {
	return image.Pt(l.Cols*w+(l.Cols-1)*l.Gap, l.Rows*h+(l.Rows-1)*l.Gap)
}

// Origin is the top-left corner of copy (col, row) on the canvas.
func (l Layout) Origin(col, row, w, h int) image.Point {
	return image.Pt(col*(w+l.Gap), row*(h+l.Gap))
}

// Steps returns the spatial period on each axis.
func Steps(w, h, gap int) (stepW, stepH int, err error) {
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if gap < 0 {
		return 0, 0, fmt.Errorf("%w: gap %d is negative", ErrInvalidDimensions, gap)
	}
	return w + gap, h + gap, nil
}

// FrameCount is the number of frames needed for one seamless period. For
// diagonal motion that is lcm(stepW, stepH); when it exceeds limit the count
// falls back to max(stepW, stepH) and capped is true. The fallback loop has a
// visible seam on one axis.
func FrameCount(m AxisMotion, stepW, stepH, limit int) (count int, capped bool) {
	switch {
	case m.Diagonal():
		l := LCM(stepW, stepH)
		if limit > 0 && l > limit {
			return max(stepW, stepH), true
		}
		return l, false
	case m.H != AxisNone:
		return stepW, false
	case m.V != AxisNone:
		return stepH, false
	}
	return 0, false
}

// OffsetAt returns the crop origin of frame i.
func OffsetAt(i int, m AxisMotion, stepW, stepH int) image.Point {
	if !m.Diagonal() {
		switch {
		case m.H == AxisIncreasing:
			return image.Pt(i, 0)
		case m.H == AxisDecreasing:
			return image.Pt(stepW-1-i, 0)
		case m.V == AxisIncreasing:
			return image.Pt(0, i)
		case m.V == AxisDecreasing:
			return image.Pt(0, stepH-1-i)
		}
		return image.Point{}
	}
	return image.Pt(wrap(i, m.H, stepW), wrap(i, m.V, stepH))
}

func wrap(i int, a Axis, step int) int {
	r := i % step
	if a == AxisDecreasing {
		return (step - r) % step
	}
	return r
}

// GCD is Euclid's algorithm; GCD(0, n) = n.
func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns 0 when either argument is 0.
func LCM(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / GCD(a, b) * b
}

// Plan is everything the frame stage needs to know about one run.
type Plan struct {
	Direction Direction
	Motion    AxisMotion
	Layout    Layout
	Width     int
	Height    int
	StepW     int
	StepH     int
	Frames    int
	Capped    bool
}

// NewPlan validates the inputs and computes layout, steps and frame count.
func NewPlan(d Direction, w, h, gap, limit int) (Plan, error) {
	stepW, stepH, err := Steps(w, h, gap)
	if err != nil {
		return Plan{}, err
	}
	m := d.Motion()
	layout, err := NewLayout(m, gap)
	if err != nil {
		return Plan{}, err
	}
	frames, capped := FrameCount(m, stepW, stepH, limit)
	return Plan{
		Direction: d,
		Motion:    m,
		Layout:    layout,
		Width:     w,
		Height:    h,
		StepW:     stepW,
		StepH:     stepH,
		Frames:    frames,
		Capped:    capped,
	}, nil
}

func (p Plan) Offset(i int) image.Point {
	return OffsetAt(i, p.Motion, p.StepW, p.StepH)
}

// Window is the crop rectangle of frame i on the canvas.
func (p Plan) Window(i int) image.Rectangle {
	o := p.Offset(i)
	return image.Rect(o.X, o.Y, o.X+p.Width, o.Y+p.Height)
}

func (p Plan) CanvasSize() image.Point {
	return p.Layout.CanvasSize(p.Width, p.Height)
}
