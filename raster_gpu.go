package isopick

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// identityShaderSrc paints the uniform identity color wherever the source
// alpha is above Threshold and leaves everything else transparent. Drawn
// with source-over, a transparent fragment keeps whatever proxy is below.
const identityShaderSrc = `//kage:unit pixels
package main

var R float
var G float
var B float
var Threshold float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	a := imageSrc0At(src).a
	if a > Threshold {
		return vec4(R, G, B, 1)
	}
	return vec4(0)
}
`

var identityShader *ebiten.Shader

func ensureIdentityShader() *ebiten.Shader {
	if identityShader == nil {
		s, err := ebiten.NewShader([]byte(identityShaderSrc))
		if err != nil {
			panic("isopick: failed to compile identity shader: " + err.Error())
		}
		identityShader = s
	}
	return identityShader
}

// gpuBackend draws proxies into an ebiten render target and answers probes
// with a synchronous 1x1 readback. The readback stalls until the GPU has
// finished the pending draws.
type gpuBackend struct {
	pool      *renderTexturePool
	target    *ebiten.Image
	w, h      int
	threshold float32
	op        ebiten.DrawRectShaderOptions
	pixel     [4]byte
}

func newGPUBackend(pool *renderTexturePool, w, h int, threshold float64) *gpuBackend {
	return &gpuBackend{
		pool:      pool,
		target:    pool.Acquire(w, h),
		w:         w,
		h:         h,
		threshold: float32(threshold),
	}
}

// identityUniforms returns the shader uniforms for idx.
func identityUniforms(idx ColorIndex, threshold float32) map[string]any {
	r, g, b := EncodeIndex(idx)
	return map[string]any{
		"R":         float32(r) / 255,
		"G":         float32(g) / 255,
		"B":         float32(b) / 255,
		"Threshold": threshold,
	}
}

func (g *gpuBackend) prepare(p *Proxy) {
	if p.src == nil || p.srcFrom != p.geom.Surface || p.srcGen != p.geom.SurfaceGen {
		g.releaseSource(p)
		if img, ok := p.geom.Surface.(*ebiten.Image); ok {
			p.src = img
		} else {
			p.src = ebiten.NewImageFromImage(p.geom.Surface)
			p.ownsSrc = true
		}
		p.srcFrom = p.geom.Surface
		p.srcGen = p.geom.SurfaceGen
	}
	if p.uniforms == nil || p.uniformIdx != p.index {
		p.uniforms = identityUniforms(p.index, g.threshold)
		p.uniformIdx = p.index
	}
}

func (g *gpuBackend) releaseSource(p *Proxy) {
	if p.src != nil && p.ownsSrc {
		p.src.Deallocate()
	}
	p.src = nil
	p.srcFrom = nil
	p.ownsSrc = false
}

func (g *gpuBackend) release(p *Proxy) {
	g.releaseSource(p)
	p.uniforms = nil
}

func (g *gpuBackend) render(proxies []*Proxy) {
	g.target.Clear()
	shader := ensureIdentityShader()
	for _, p := range proxies {
		g.prepare(p)
		b := p.src.Bounds()
		g.op.GeoM = affineGeoM(p.geom.Transform)
		g.op.Images[0] = p.src
		g.op.Uniforms = p.uniforms
		g.op.Blend = ebiten.BlendSourceOver
		g.target.DrawRectShader(b.Dx(), b.Dy(), shader, &g.op)
	}
	g.op.Images[0] = nil
	g.op.Uniforms = nil
}

func (g *gpuBackend) readPixel(x, y int) (c color.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("readback at (%d, %d): %v", x, y, r)
		}
	}()
	sub := g.target.SubImage(image.Rect(x, y, x+1, y+1)).(*ebiten.Image)
	sub.ReadPixels(g.pixel[:])
	return color.RGBA{R: g.pixel[0], G: g.pixel[1], B: g.pixel[2], A: g.pixel[3]}, nil
}

func (g *gpuBackend) snapshot() (img *image.RGBA, err error) {
	if g.target == nil {
		return nil, ErrEngineDestroyed
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("readback: %v", r)
		}
	}()
	// The pooled target may be larger than the buffer; read the used region.
	sub := g.target.SubImage(image.Rect(0, 0, g.w, g.h)).(*ebiten.Image)
	img = image.NewRGBA(image.Rect(0, 0, g.w, g.h))
	sub.ReadPixels(img.Pix)
	return img, nil
}

func (g *gpuBackend) bytes() int {
	if g.target == nil {
		return 0
	}
	b := g.target.Bounds()
	return b.Dx() * b.Dy() * 4
}

func (g *gpuBackend) dispose() {
	if g.target != nil {
		g.pool.Release(g.target)
		g.target = nil
	}
	g.pool.dispose()
}
