package isopick

import (
	"math"
	"testing"
)

func newSoftCache(origin Vec2, scale float64) (*ProxyCache, *softBackend) {
	sb := newSoftBackend(16, 16, 0)
	return newProxyCache(sb, origin, scale), sb
}

func TestProxyCacheCreateMirrorsNode(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	n := NewSprite("a", solidImage(4, 6))
	n.X, n.Y = 10, 20
	n.ZIndex = 3

	p := c.Create(n, 5)
	if p.Owner() != n.PickID() || p.Index() != 5 {
		t.Errorf("owner/index = %d/%d", p.Owner(), p.Index())
	}
	if p.SortKey() != 3 {
		t.Errorf("SortKey = %d, want 3", p.SortKey())
	}
	if p.geom.Width != 4 || p.geom.Height != 6 {
		t.Errorf("size = %vx%v", p.geom.Width, p.geom.Height)
	}
	assertMatrix(t, "transform", p.Transform(), [6]float64{1, 0, 0, 1, 10, 20})
	if c.Len() != 1 || c.Live()[0] != p {
		t.Errorf("live set = %v", c.Live())
	}
}

func TestProxyCacheBufferTransform(t *testing.T) {
	c, _ := newSoftCache(Vec2{X: -100, Y: 40}, 4)
	n := NewSprite("a", solidImage(8, 8))
	n.X, n.Y = -60, 80
	n.ScaleX = 2

	p := c.Create(n, 0)
	// (world - origin) / scale
	assertMatrix(t, "transform", p.Transform(), [6]float64{0.5, 0, 0, 0.25, 10, 10})
}

func TestProxyCacheBufferTransformIncludesParents(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	layer := NewContainer("layer")
	layer.X = 100
	n := NewSprite("a", solidImage(2, 2))
	n.X = 5
	n.Rotation = math.Pi / 2
	layer.AddChild(n)

	p := c.Create(n, 0)
	assertMatrix(t, "transform", p.Transform(), [6]float64{0, 1, -1, 0, 105, 0})
}

func TestProxyCacheUpdateReportsChanges(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	n := NewSprite("a", solidImage(4, 4))
	p := c.Create(n, 0)

	if c.Update(p, n) {
		t.Error("Update with no changes reported a change")
	}

	tests := []struct {
		name   string
		mutate func()
	}{
		{"position", func() { n.X += 3 }},
		{"rotation", func() { n.Rotation = 0.3 }},
		{"scale", func() { n.ScaleY = 2 }},
		{"sort key", func() { n.ZIndex = 9 }},
		{"texture", func() { n.SetTexture(solidImage(4, 4)) }},
		{"size", func() { n.SetTexture(solidImage(5, 4)) }},
		{"pixels redrawn", func() { n.InvalidateTexture() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mutate()
			if !c.Update(p, n) {
				t.Errorf("Update after %s change reported no change", tt.name)
			}
			if c.Update(p, n) {
				t.Errorf("second Update after %s change reported a change", tt.name)
			}
		})
	}
	if p.SortKey() != 9 || p.geom.Width != 5 {
		t.Errorf("proxy not updated in place: key %d width %v", p.SortKey(), p.geom.Width)
	}
	if c.created != 1 {
		t.Errorf("created = %d, want 1 (mutated in place)", c.created)
	}
}

func TestProxyCacheIgnoresNonGeometryChanges(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	n := NewSprite("a", solidImage(4, 4))
	p := c.Create(n, 0)

	n.Name = "renamed"
	n.Color = Color{1, 0, 0, 1}
	n.UserData = "token"
	if c.Update(p, n) {
		t.Error("Update reported a change for fields that do not affect picking")
	}
}

func TestProxyCacheDestroyOnce(t *testing.T) {
	c, sb := newSoftCache(Vec2{}, 1)
	n := NewSprite("a", solidImage(4, 4))
	p := c.Create(n, 0)
	sb.prepare(p)
	if p.stencil == nil {
		t.Fatal("prepare built no stencil")
	}

	c.Destroy(p)
	if !p.Destroyed() || c.Len() != 0 {
		t.Fatalf("after Destroy: destroyed=%v len=%d", p.Destroyed(), c.Len())
	}
	if p.stencil != nil {
		t.Error("Destroy did not release backend resources")
	}
	c.Destroy(p)
	c.Destroy(nil)
	if c.destroyed != 1 {
		t.Errorf("destroyed = %d, want 1", c.destroyed)
	}
	if c.Update(p, n) {
		t.Error("Update on a destroyed proxy reported a change")
	}
}

func TestProxyCacheDestroyAll(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	var ps []*Proxy
	for i := range 4 {
		ps = append(ps, c.Create(NewSprite("", solidImage(2, 2)), ColorIndex(i)))
	}
	c.destroyAll()
	if c.Len() != 0 {
		t.Errorf("Len = %d after destroyAll", c.Len())
	}
	for i, p := range ps {
		if !p.Destroyed() {
			t.Errorf("proxy %d not destroyed", i)
		}
	}
}

func TestProxyCacheSequenceIncreases(t *testing.T) {
	c, _ := newSoftCache(Vec2{}, 1)
	a := c.Create(NewSprite("a", solidImage(1, 1)), 0)
	b := c.Create(NewSprite("b", solidImage(1, 1)), 1)
	if !(a.seq < b.seq) {
		t.Errorf("seq a=%d b=%d, want increasing", a.seq, b.seq)
	}
}
