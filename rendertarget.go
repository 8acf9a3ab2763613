package isopick

import (
	"image"
	"math/bits"

	"github.com/hajimehoshi/ebiten/v2"
)

// renderTexturePool hands out offscreen images keyed by power-of-two
// dimensions. Filter passes and GPU index buffers draw from the same pool.
type renderTexturePool struct {
	buckets  map[uint64][]*ebiten.Image
	acquired int
	created  int
}

// poolKey packs power-of-two width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared offscreen image with at least (w, h) pixels.
// Dimensions are rounded up to the next power of two.
func (p *renderTexturePool) Acquire(w, h int) *ebiten.Image {
	pw := nextPowerOfTwo(w)
	ph := nextPowerOfTwo(h)
	key := poolKey(pw, ph)
	p.acquired++

	if stack := p.buckets[key]; len(stack) > 0 {
		img := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		p.buckets[key] = stack[:len(stack)-1]
		img.Clear()
		return img
	}

	p.created++
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, pw, ph),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns an image to the pool. The image is cleared on the next
// Acquire, not here.
func (p *renderTexturePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())

	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
	p.acquired--
}

// idle returns the number of pooled images waiting for reuse.
func (p *renderTexturePool) idle() int {
	n := 0
	for _, stack := range p.buckets {
		n += len(stack)
	}
	return n
}

// dispose deallocates every idle image. Images still acquired are untouched.
func (p *renderTexturePool) dispose() {
	for key, stack := range p.buckets {
		for i, img := range stack {
			img.Deallocate()
			stack[i] = nil
		}
		delete(p.buckets, key)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
