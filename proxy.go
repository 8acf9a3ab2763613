package isopick

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// proxyGeometry is the subset of a node's state mirrored into its proxy.
// Transform maps texture pixels into index-buffer pixels, so it already
// includes the buffer origin and resolution scale.
type proxyGeometry struct {
	Transform  [6]float64
	Width      float64
	Height     float64
	SortKey    int
	Surface    image.Image
	SurfaceGen uint64
}

// Proxy is the stand-in drawn into an index buffer for one tracked node.
// It samples the node's texture only for its alpha and writes the flat
// identity color of its ColorIndex everywhere the alpha clears the
// engine's threshold.
//
// Proxies are owned by a ProxyCache; the IndexTable holds them as handles.
type Proxy struct {
	owner     ObjectID
	index     ColorIndex
	seq       uint64
	rank      int
	geom      proxyGeometry
	destroyed bool

	// Software backend: thresholded copy of the surface in identity color.
	stencil    *image.NRGBA
	stencilSrc image.Image
	stencilIdx ColorIndex
	stencilGen uint64

	// GPU backend: uploaded surface and shader uniforms.
	src        *ebiten.Image
	srcFrom    image.Image
	srcGen     uint64
	ownsSrc    bool
	uniforms   map[string]any
	uniformIdx ColorIndex
}

// Owner returns the id of the node this proxy stands in for.
func (p *Proxy) Owner() ObjectID { return p.owner }

// Index returns the proxy's identity color index.
func (p *Proxy) Index() ColorIndex { return p.index }

// SortKey returns the draw-order key copied from the node's ZIndex.
func (p *Proxy) SortKey() int { return p.geom.SortKey }

// Rank returns the proxy's position in the scene's paint order, counting
// from 1, or 0 when the engine has not ranked it.
func (p *Proxy) Rank() int { return p.rank }

// Transform returns the texture-to-buffer affine matrix.
func (p *Proxy) Transform() [6]float64 { return p.geom.Transform }

// Destroyed reports whether the proxy has been released.
func (p *Proxy) Destroyed() bool { return p.destroyed }

// syncField copies src into *dst when they differ and reports whether it did.
// Array types (transforms) compare element-wise through ==.
func syncField[T comparable](dst *T, src T) bool {
	if *dst == src {
		return false
	}
	*dst = src
	return true
}

// ProxyCache creates, mutates and releases proxies for one engine. Proxies
// are reused across updates; only deletion frees them.
type ProxyCache struct {
	live      []*Proxy
	scale     float64
	originX   float64
	originY   float64
	backend   indexBackend
	nextSeq   uint64
	created   int
	destroyed int
}

func newProxyCache(backend indexBackend, origin Vec2, scale float64) *ProxyCache {
	if scale <= 0 {
		scale = 1
	}
	return &ProxyCache{
		backend: backend,
		originX: origin.X,
		originY: origin.Y,
		scale:   scale,
	}
}

// bufferTransform maps a world transform into index-buffer pixel space.
func (c *ProxyCache) bufferTransform(world [6]float64) [6]float64 {
	inv := 1 / c.scale
	return [6]float64{
		world[0] * inv,
		world[1] * inv,
		world[2] * inv,
		world[3] * inv,
		(world[4] - c.originX) * inv,
		(world[5] - c.originY) * inv,
	}
}

func (c *ProxyCache) geometryOf(n *Node) proxyGeometry {
	w, h := n.Size()
	return proxyGeometry{
		Transform:  c.bufferTransform(n.computeWorldTransform()),
		Width:      w,
		Height:     h,
		SortKey:    n.ZIndex,
		Surface:    n.Texture,
		SurfaceGen: n.texGen,
	}
}

// Create builds a proxy for n carrying identity color idx.
func (c *ProxyCache) Create(n *Node, idx ColorIndex) *Proxy {
	c.nextSeq++
	p := &Proxy{
		owner: n.PickID(),
		index: idx,
		seq:   c.nextSeq,
		geom:  c.geometryOf(n),
	}
	c.live = append(c.live, p)
	c.created++
	return p
}

// Update copies n's current geometry into p field by field and reports
// whether anything changed.
func (c *ProxyCache) Update(p *Proxy, n *Node) bool {
	if p.destroyed {
		return false
	}
	g := c.geometryOf(n)
	changed := syncField(&p.geom.Transform, g.Transform)
	changed = syncField(&p.geom.Width, g.Width) || changed
	changed = syncField(&p.geom.Height, g.Height) || changed
	changed = syncField(&p.geom.SortKey, g.SortKey) || changed
	changed = syncField(&p.geom.Surface, g.Surface) || changed
	changed = syncField(&p.geom.SurfaceGen, g.SurfaceGen) || changed
	return changed
}

// Destroy releases p's backend resources and removes it from the live set.
// Calling Destroy again on the same proxy does nothing.
func (c *ProxyCache) Destroy(p *Proxy) {
	if p == nil || p.destroyed {
		return
	}
	p.destroyed = true
	for i, q := range c.live {
		if q == p {
			copy(c.live[i:], c.live[i+1:])
			c.live[len(c.live)-1] = nil
			c.live = c.live[:len(c.live)-1]
			break
		}
	}
	if c.backend != nil {
		c.backend.release(p)
	}
	c.destroyed++
}

// Live returns the proxies currently held, in creation order. The returned
// slice MUST NOT be mutated by the caller.
func (c *ProxyCache) Live() []*Proxy {
	return c.live
}

// Len returns the number of live proxies.
func (c *ProxyCache) Len() int {
	return len(c.live)
}

// destroyAll releases every live proxy.
func (c *ProxyCache) destroyAll() {
	for len(c.live) > 0 {
		c.Destroy(c.live[len(c.live)-1])
	}
}
