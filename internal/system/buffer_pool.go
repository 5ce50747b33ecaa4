package system

import (
	"image"
	"sync"
)

// FramePool recycles fixed-size *image.NRGBA buffers between frame workers to
// keep GC pressure flat on long sequences. Each run owns its pool.
type FramePool struct {
	rect image.Rectangle
	pool sync.Pool
}

func NewFramePool(w, h int) *FramePool {
	rect := image.Rect(0, 0, w, h)
	p := &FramePool{rect: rect}
	p.pool.New = func() any {
		return image.NewNRGBA(rect)
	}
	return p
}

// Get returns a buffer of the pool size. Its contents are undefined.
func (p *FramePool) Get() *image.NRGBA {
	return p.pool.Get().(*image.NRGBA)
}

// Put hands img back; buffers of another size are dropped.
func (p *FramePool) Put(img *image.NRGBA) {
	if img == nil || img.Rect != p.rect {
		return
	}
	p.pool.Put(img)
}
