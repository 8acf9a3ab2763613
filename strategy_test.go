package isopick

import "testing"

// overlapLayer builds a layer with a bottom sprite at (0,0) and a top
// sprite at (4,4), both 8x8 and opaque.
func overlapLayer() (layer, bottom, top *Node) {
	layer = NewContainer("layer")
	bottom = sprite("bottom", 0, 0, 8, 8, 0)
	top = sprite("top", 4, 4, 8, 8, 1)
	layer.AddChild(bottom)
	layer.AddChild(top)
	return layer, bottom, top
}

func TestPickStrategyInstalledOnIndex(t *testing.T) {
	layer, bottom, top := overlapLayer()
	e, _ := newSoftEngine(t, layer, Config{Bounds: Rect{Width: 32, Height: 32}})

	for _, n := range []*Node{bottom, top} {
		s, ok := n.HitShape.(*PickStrategy)
		if !ok {
			t.Fatalf("%s HitShape = %T, want *PickStrategy", n.Name, n.HitShape)
		}
		if s.Node() != n || s.Original() != nil {
			t.Errorf("%s strategy node=%v original=%v", n.Name, s.Node().Name, s.Original())
		}
	}
	if again := e.HitTest(bottom); again != bottom.HitShape {
		t.Error("second HitTest installed a new strategy")
	}
}

func TestPickStrategyContains(t *testing.T) {
	layer, bottom, top := overlapLayer()
	newSoftEngine(t, layer, Config{Bounds: Rect{Width: 32, Height: 32}})

	tests := []struct {
		name   string
		node   *Node
		lx, ly float64
		want   bool
	}{
		{"bottom visible part", bottom, 1, 1, true},
		{"bottom occluded by top", bottom, 6, 6, false},
		{"top over bottom", top, 2, 2, true},
		{"top own part", top, 7, 7, true},
		{"outside bottom rect", bottom, -1, 1, false},
		{"outside top rect", top, 8.5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.HitShape.Contains(tt.lx, tt.ly); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lx, tt.ly, got, tt.want)
			}
		})
	}
}

func TestPickStrategyTransparentPixelsMiss(t *testing.T) {
	layer := NewContainer("layer")
	n := NewSprite("hole", holeImage(8, 8, 0))
	layer.AddChild(n)
	newSoftEngine(t, layer, Config{Bounds: Rect{Width: 16, Height: 16}})

	if n.HitShape.Contains(1, 1) {
		t.Error("transparent half accepted")
	}
	if !n.HitShape.Contains(6, 1) {
		t.Error("opaque half rejected")
	}
}

func TestPickStrategyControlledAcceptsRect(t *testing.T) {
	layer, bottom, _ := overlapLayer()
	newSoftEngine(t, layer, Config{Bounds: Rect{Width: 32, Height: 32}})

	bottom.Controlled = true
	if !bottom.HitShape.Contains(6, 6) {
		t.Error("controlled node rejected an occluded point inside its rect")
	}
	if bottom.HitShape.Contains(9, 1) {
		t.Error("controlled node accepted a point outside its rect")
	}
}

func TestPickStrategyFollowsParentTransform(t *testing.T) {
	layer := NewContainer("layer")
	layer.X, layer.Y = 40, 40
	n := sprite("n", 0, 0, 4, 4, 0)
	layer.AddChild(n)
	newSoftEngine(t, layer, Config{Bounds: Rect{Width: 64, Height: 64}})

	if !n.HitShape.Contains(1, 1) {
		t.Error("strategy ignored the layer offset")
	}
}

func TestRestorePutsOriginalBack(t *testing.T) {
	layer := NewContainer("layer")
	n := sprite("n", 0, 0, 8, 8, 0)
	circle := HitCircle{CenterX: 4, CenterY: 4, Radius: 2}
	n.HitShape = circle
	layer.AddChild(n)
	e, _ := newSoftEngine(t, layer, Config{Bounds: Rect{Width: 16, Height: 16}})

	s, ok := n.HitShape.(*PickStrategy)
	if !ok || s.Original() != circle {
		t.Fatalf("HitShape = %T original %v", n.HitShape, s)
	}
	e.Restore(n)
	if n.HitShape != circle {
		t.Errorf("HitShape after Restore = %v, want the circle", n.HitShape)
	}
	e.Restore(n)
	if n.HitShape != circle {
		t.Error("second Restore changed the shape")
	}
}

func TestRestoreLeavesReplacedShape(t *testing.T) {
	layer := NewContainer("layer")
	n := sprite("n", 0, 0, 8, 8, 0)
	layer.AddChild(n)
	e, _ := newSoftEngine(t, layer, Config{Bounds: Rect{Width: 16, Height: 16}})

	custom := HitRect{Width: 1, Height: 1}
	n.HitShape = custom
	e.Restore(n)
	if n.HitShape != custom {
		t.Error("Restore overwrote a shape installed after the strategy")
	}
}

func TestHitTestRewrapsSwappedShape(t *testing.T) {
	layer := NewContainer("layer")
	n := sprite("n", 0, 0, 8, 8, 0)
	layer.AddChild(n)
	e, _ := newSoftEngine(t, layer, Config{Bounds: Rect{Width: 16, Height: 16}})

	custom := HitRect{Width: 2, Height: 2}
	n.HitShape = custom
	s := e.HitTest(n)
	if n.HitShape != s || s.Original() != custom {
		t.Errorf("HitShape=%T original=%v", n.HitShape, s.Original())
	}
}

func TestDestroyRestoresEquivalentBehavior(t *testing.T) {
	layer := NewContainer("layer")
	picked := NewSprite("picked", holeImage(8, 8, 0))
	plain := NewSprite("plain", holeImage(8, 8, 0))
	layer.AddChild(picked)
	e, _ := newSoftEngine(t, layer, Config{Bounds: Rect{Width: 16, Height: 16}})

	strategy := picked.HitShape.(*PickStrategy)
	e.Destroy()

	if picked.HitShape != nil {
		t.Fatalf("HitShape after Destroy = %T, want nil", picked.HitShape)
	}
	for y := -1.0; y <= 9; y += 0.5 {
		for x := -1.0; x <= 9; x += 0.5 {
			if a, b := nodeContainsLocal(picked, x, y), nodeContainsLocal(plain, x, y); a != b {
				t.Fatalf("(%v, %v): restored=%v never-intercepted=%v", x, y, a, b)
			}
		}
	}
	// A stale reference held by the host falls back to the original answer.
	if !strategy.Contains(1, 1) {
		t.Error("stale strategy did not fall back to the rectangle after Destroy")
	}
}

func BenchmarkPickStrategyContains(b *testing.B) {
	layer, bottom, _ := overlapLayer()
	newSoftEngine(b, layer, Config{Bounds: Rect{Width: 32, Height: 32}})
	b.ReportAllocs()
	for b.Loop() {
		bottom.HitShape.Contains(1, 1)
	}
}
