package isopick

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"
)

// Backend selects where an index buffer lives.
type Backend uint8

const (
	BackendGPU      Backend = iota // ebiten render target, Kage identity shader, 1x1 readback
	BackendSoftware                // CPU shadow buffer, no GPU round trip on probe
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendGPU:
		return "gpu"
	case BackendSoftware:
		return "software"
	default:
		return fmt.Sprintf("Backend(%d)", b)
	}
}

// indexBackend is the storage and rasterization behind an IndexBuffer.
type indexBackend interface {
	// prepare builds or refreshes the per-proxy resources needed to draw p.
	prepare(p *Proxy)
	// release frees the per-proxy resources owned by p.
	release(p *Proxy)
	// render clears the target and draws proxies in the given order.
	render(proxies []*Proxy)
	// readPixel returns the premultiplied color at buffer pixel (x, y).
	readPixel(x, y int) (color.RGBA, error)
	// snapshot copies the whole target into CPU memory.
	snapshot() (*image.RGBA, error)
	// bytes reports the approximate memory held by the target.
	bytes() int
	// dispose frees the target. The backend is unusable afterwards.
	dispose()
}

// IndexBuffer is the offscreen image every live proxy is drawn into. The
// topmost identity color at a pixel names the topmost tracked object there.
type IndexBuffer struct {
	backend indexBackend
	kind    Backend
	width   int
	height  int
	scale   float64
	origin  Vec2

	order   []*Proxy
	sortBuf []*Proxy

	rebuilds   int
	lastRender time.Duration
	lastDrawn  int
	disposed   bool
	log        *logger
}

// bufferDims returns the pixel size of a buffer covering bounds at the given
// resolution scale divisor. Each dimension is at least 1.
func bufferDims(bounds Rect, scale float64) (w, h int) {
	if scale <= 0 {
		scale = 1
	}
	w = int(math.Floor(bounds.Width / scale))
	h = int(math.Floor(bounds.Height / scale))
	return max(w, 1), max(h, 1)
}

func newIndexBuffer(kind Backend, backend indexBackend, w, h int, origin Vec2, scale float64, l *logger) *IndexBuffer {
	return &IndexBuffer{
		backend: backend,
		kind:    kind,
		width:   w,
		height:  h,
		scale:   scale,
		origin:  origin,
		log:     l,
	}
}

// Size returns the buffer's pixel dimensions.
func (b *IndexBuffer) Size() (w, h int) {
	return b.width, b.height
}

// Scale returns the resolution scale divisor (world units per buffer pixel).
func (b *IndexBuffer) Scale() float64 {
	return b.scale
}

// Backend returns the backend kind.
func (b *IndexBuffer) Backend() Backend {
	return b.kind
}

// Rebuilds returns how many times Render has drawn the buffer.
func (b *IndexBuffer) Rebuilds() int {
	return b.rebuilds
}

// proxyLessOrEqual orders proxies by paint rank, then by sort key, then by
// creation sequence. Engines rank every tracked proxy before a render, so
// the fallback keys only order proxies rendered outside an engine.
func proxyLessOrEqual(a, b *Proxy) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.geom.SortKey != b.geom.SortKey {
		return a.geom.SortKey < b.geom.SortKey
	}
	return a.seq <= b.seq
}

// Render clears the buffer and draws proxies bottom to top. Later proxies
// overwrite earlier ones where they overlap, matching the scene's own
// top-most-wins stacking. Render failures are logged and leave the buffer
// in whatever state the backend reached.
func (b *IndexBuffer) Render(proxies []*Proxy) {
	if b.disposed {
		return
	}
	start := time.Now()

	b.order = b.order[:0]
	for _, p := range proxies {
		if p.destroyed || !drawable(p) {
			continue
		}
		b.order = append(b.order, p)
	}
	b.sortBuf = mergeSortStable(b.order, b.sortBuf, proxyLessOrEqual)

	if err := b.renderSafe(); err != nil {
		b.log.errorf("index buffer render: %v", err)
		return
	}

	b.rebuilds++
	b.lastDrawn = len(b.order)
	b.lastRender = time.Since(start)
}

func (b *IndexBuffer) renderSafe() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	b.backend.render(b.order)
	return nil
}

// drawable reports whether p has a surface and a non-degenerate transform.
func drawable(p *Proxy) bool {
	if p.geom.Surface == nil || p.geom.Width <= 0 || p.geom.Height <= 0 {
		return false
	}
	m := p.geom.Transform
	det := m[0]*m[3] - m[2]*m[1]
	return det > 1e-12 || det < -1e-12
}

// pixelAt reads the buffer pixel at (x, y). Out-of-range coordinates return
// a transparent color without touching the backend.
func (b *IndexBuffer) pixelAt(x, y int) (color.RGBA, error) {
	if b.disposed {
		return color.RGBA{}, ErrEngineDestroyed
	}
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return color.RGBA{}, nil
	}
	return b.backend.readPixel(x, y)
}

// Dispose frees the buffer's backing storage.
func (b *IndexBuffer) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	b.backend.dispose()
	b.order = nil
	b.sortBuf = nil
}
