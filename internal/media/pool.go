package media

import (
	"image"
	"sync"
)

// framePool pools *image.RGBA instances for a fixed resolution. Capture
// sources and the compositor produce frames of a consistent size, so a
// simple single-resolution pool works well.
type framePool struct {
	pool sync.Pool
	w, h int
	mu   sync.Mutex
}

func (p *framePool) get(w, h int) *image.RGBA {
	p.mu.Lock()
	if p.w == w && p.h == h {
		p.mu.Unlock()
		if v := p.pool.Get(); v != nil {
			return v.(*image.RGBA)
		}
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	// Resolution changed, reset pool
	p.w = w
	p.h = h
	p.pool = sync.Pool{}
	p.mu.Unlock()
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func (p *framePool) put(img *image.RGBA) {
	b := img.Bounds()
	p.mu.Lock()
	match := p.w == b.Dx() && p.h == b.Dy()
	p.mu.Unlock()
	if match {
		p.pool.Put(img)
	}
}

var defaultFramePool framePool

// GetFrame returns a pooled RGBA frame of the requested size.
func GetFrame(w, h int) *image.RGBA {
	return defaultFramePool.get(w, h)
}

// PutFrame returns a frame to the pool. Callers must not use it afterwards.
func PutFrame(img *image.RGBA) {
	defaultFramePool.put(img)
}

// CloneFrame copies a frame into pooled storage.
func CloneFrame(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := GetFrame(b.Dx(), b.Dy())
	copy(dst.Pix, src.Pix)
	return dst
}
