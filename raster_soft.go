package isopick

import (
	"image"
	"image/color"
	"runtime"

	"github.com/remeh/sizedwaitgroup"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// parallelStencils is the number of stale stencils at which render builds
// them on worker goroutines instead of inline.
const parallelStencils = 8

// softBackend keeps the index buffer in CPU memory. Each proxy is reduced to
// a stencil (identity color where the surface alpha clears the threshold,
// transparent elsewhere) and drawn with nearest-neighbour sampling so the
// identity colors are never blended.
type softBackend struct {
	buf       *image.RGBA
	threshold float64
}

func newSoftBackend(w, h int, threshold float64) *softBackend {
	return &softBackend{
		buf:       image.NewRGBA(image.Rect(0, 0, w, h)),
		threshold: threshold,
	}
}

func stencilFresh(p *Proxy) bool {
	return p.stencil != nil && p.stencilSrc == p.geom.Surface &&
		p.stencilGen == p.geom.SurfaceGen && p.stencilIdx == p.index
}

func (s *softBackend) prepare(p *Proxy) {
	if stencilFresh(p) {
		return
	}
	p.stencil = buildStencil(p.geom.Surface, p.index.Color(), s.threshold)
	p.stencilSrc = p.geom.Surface
	p.stencilGen = p.geom.SurfaceGen
	p.stencilIdx = p.index
}

func (s *softBackend) release(p *Proxy) {
	p.stencil = nil
	p.stencilSrc = nil
}

// prepareAll builds every stale stencil. Each worker touches only its own
// proxy, so a large first build fans out across CPUs.
func (s *softBackend) prepareAll(proxies []*Proxy) {
	stale := 0
	for _, p := range proxies {
		if !stencilFresh(p) {
			stale++
		}
	}
	if stale < parallelStencils {
		return
	}
	wg := sizedwaitgroup.New(runtime.NumCPU())
	for _, p := range proxies {
		if stencilFresh(p) {
			continue
		}
		wg.Add()
		go func(p *Proxy) {
			defer wg.Done()
			s.prepare(p)
		}(p)
	}
	wg.Wait()
}

func (s *softBackend) render(proxies []*Proxy) {
	s.prepareAll(proxies)
	clear(s.buf.Pix)
	for _, p := range proxies {
		s.prepare(p)
		t := p.geom.Transform
		s2d := f64.Aff3{t[0], t[2], t[4], t[1], t[3], t[5]}
		draw.NearestNeighbor.Transform(s.buf, s2d, p.stencil, p.stencil.Bounds(), draw.Over, nil)
	}
}

func (s *softBackend) readPixel(x, y int) (color.RGBA, error) {
	return s.buf.RGBAAt(x, y), nil
}

func (s *softBackend) snapshot() (*image.RGBA, error) {
	if s.buf == nil {
		return nil, ErrEngineDestroyed
	}
	img := image.NewRGBA(s.buf.Rect)
	copy(img.Pix, s.buf.Pix)
	return img, nil
}

func (s *softBackend) bytes() int {
	if s.buf == nil {
		return 0
	}
	return len(s.buf.Pix)
}

func (s *softBackend) dispose() {
	s.buf = nil
}

// buildStencil returns a copy of src anchored at (0, 0) that is c wherever
// src alpha is above threshold and fully transparent elsewhere.
func buildStencil(src image.Image, c color.RGBA, threshold float64) *image.NRGBA {
	b := src.Bounds()
	st := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	limit := uint32(threshold * 0xffff)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a <= limit {
				continue
			}
			i := st.PixOffset(x, y)
			st.Pix[i+0] = c.R
			st.Pix[i+1] = c.G
			st.Pix[i+2] = c.B
			st.Pix[i+3] = 0xff
		}
	}
	return st
}
