package isopick

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Filter is the interface for visual effects applied to a node's rendered output.
type Filter interface {
	// Apply renders src into dst with the filter effect.
	Apply(src, dst *ebiten.Image)
	// Padding returns the extra pixels needed around the source to fit the
	// effect. Zero means no padding.
	Padding() int
}

// glowShaderSrc spreads the source silhouette outward by Radius pixels and
// tints the spread with GlowColor scaled by Strength. The source is
// composited on top. Ebitengine colors are premultiplied.
const glowShaderSrc = `//kage:unit pixels
package main

var GlowColor vec4
var Strength float
var Radius float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	halo := 0.0
	for i := 0; i < 8; i++ {
		a := float(i) * 0.7853981634
		d := vec2(cos(a), sin(a)) * Radius
		halo = max(halo, imageSrc0At(src+d).a)
		halo = max(halo, imageSrc0At(src+d*0.5).a)
	}
	g := GlowColor * halo * Strength
	return c + g*(1-c.a)
}
`

// Lazy shader compilation (no sync.Once; the scene is single-threaded).
var glowShader *ebiten.Shader

func ensureGlowShader() *ebiten.Shader {
	if glowShader == nil {
		s, err := ebiten.NewShader([]byte(glowShaderSrc))
		if err != nil {
			panic("isopick: failed to compile glow shader: " + err.Error())
		}
		glowShader = s
	}
	return glowShader
}

// --- GlowFilter ---

// GlowFilter draws a soft colored halo around non-transparent pixels. The
// picking engines share one per engine as the hover highlight and ease
// Strength in and out.
type GlowFilter struct {
	Color    Color
	Radius   int
	Strength float64

	uniforms   map[string]any
	colorF32   [4]float32
	colorSlice []float32
	shaderOp   ebiten.DrawRectShaderOptions
}

// NewGlowFilter creates a glow filter at full strength.
func NewGlowFilter(radius int, c Color) *GlowFilter {
	if radius < 0 {
		radius = 0
	}
	f := &GlowFilter{
		Color:    c,
		Radius:   radius,
		Strength: 1,
		uniforms: make(map[string]any, 3),
	}
	f.colorSlice = f.colorF32[:]
	f.uniforms["GlowColor"] = f.colorSlice
	return f
}

// Apply renders the halo and the source into dst.
func (f *GlowFilter) Apply(src, dst *ebiten.Image) {
	shader := ensureGlowShader()
	f.colorF32[0] = float32(f.Color.R * f.Color.A)
	f.colorF32[1] = float32(f.Color.G * f.Color.A)
	f.colorF32[2] = float32(f.Color.B * f.Color.A)
	f.colorF32[3] = float32(f.Color.A)
	f.uniforms["Strength"] = float32(clamp01(f.Strength))
	f.uniforms["Radius"] = float32(f.Radius)
	bounds := src.Bounds()
	f.shaderOp.Images[0] = src
	f.shaderOp.Uniforms = f.uniforms
	dst.DrawRectShader(bounds.Dx(), bounds.Dy(), shader, &f.shaderOp)
}

// Padding returns the glow radius.
func (f *GlowFilter) Padding() int { return f.Radius }

// --- OutlineFilter ---

// OutlineFilter draws the source in 8 cardinal/diagonal offsets with the outline
// color, then draws the original on top. Works at any thickness.
type OutlineFilter struct {
	Thickness int
	Color     Color
	imgOp     ebiten.DrawImageOptions
}

// NewOutlineFilter creates an outline filter.
func NewOutlineFilter(thickness int, c Color) *OutlineFilter {
	if thickness < 0 {
		thickness = 0
	}
	return &OutlineFilter{Thickness: thickness, Color: c}
}

// Apply draws an 8-direction offset outline behind the source image.
func (f *OutlineFilter) Apply(src, dst *ebiten.Image) {
	t := float64(f.Thickness)
	offsets := [8][2]float64{
		{-t, 0}, {t, 0}, {0, -t}, {0, t},
		{-t, -t}, {t, -t}, {-t, t}, {t, t},
	}

	op := &f.imgOp
	for _, off := range offsets {
		op.GeoM.Reset()
		op.ColorScale.Reset()
		op.GeoM.Translate(off[0], off[1])
		op.ColorScale.Scale(
			float32(f.Color.R*f.Color.A),
			float32(f.Color.G*f.Color.A),
			float32(f.Color.B*f.Color.A),
			float32(f.Color.A),
		)
		dst.DrawImage(src, op)
	}

	op.GeoM.Reset()
	op.ColorScale.Reset()
	dst.DrawImage(src, op)
}

// Padding returns the outline thickness.
func (f *OutlineFilter) Padding() int { return f.Thickness }

// --- Chain helpers ---

// filterChainPadding returns the cumulative padding required by a slice of
// filters. The offscreen image is sized for the sum of all paddings.
func filterChainPadding(filters []Filter) int {
	pad := 0
	for _, f := range filters {
		pad += f.Padding()
	}
	return pad
}

// applyFilters runs a filter chain on src, ping-ponging between src and one
// pooled scratch image. Returns whichever image holds the final result. A
// scratch image that does not hold the result goes back to pool here.
func applyFilters(filters []Filter, src *ebiten.Image, pool *renderTexturePool) *ebiten.Image {
	if len(filters) == 0 {
		return src
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	current := src
	var scratch *ebiten.Image

	for _, f := range filters {
		if scratch == nil {
			scratch = pool.Acquire(w, h)
		} else {
			scratch.Clear()
		}
		f.Apply(current, scratch)
		current, scratch = scratch, current
	}

	if scratch != src {
		pool.Release(scratch)
	}
	return current
}
