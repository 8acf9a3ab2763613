package isopick

// PickStrategy is the pixel-exact HitShape an engine installs on each node
// it tracks. It keeps the node's previous HitShape so Restore can put it
// back.
type PickStrategy struct {
	engine   *Engine
	node     *Node
	original HitShape
}

// Contains reports whether the local point (lx, ly) lands on the node's
// topmost opaque pixel:
//
//  1. points outside the texture rectangle are rejected without probing;
//  2. a Controlled node accepts any point inside its rectangle;
//  3. otherwise the point is probed in the engine's index buffer and
//     accepted when the topmost object there is this node.
func (s *PickStrategy) Contains(lx, ly float64) bool {
	n := s.node
	w, h := n.Size()
	if lx < 0 || ly < 0 || lx > w || ly > h {
		return false
	}
	if s.engine.state == StateDestroyed {
		return s.originalContains(lx, ly)
	}
	if n.Controlled {
		return true
	}
	wx, wy := transformPoint(n.computeWorldTransform(), lx, ly)
	id, ok := s.engine.probe.QueryWorldPoint(wx, wy)
	return ok && id == n.PickID()
}

// originalContains answers the way the node would without picking.
func (s *PickStrategy) originalContains(lx, ly float64) bool {
	if s.original != nil {
		return s.original.Contains(lx, ly)
	}
	w, h := s.node.Size()
	return lx >= 0 && lx <= w && ly >= 0 && ly <= h
}

// Original returns the HitShape that was installed before this strategy.
// Nil means the node used its texture rectangle.
func (s *PickStrategy) Original() HitShape {
	return s.original
}

// Node returns the node the strategy is installed on.
func (s *PickStrategy) Node() *Node {
	return s.node
}

// HitTest installs the engine's PickStrategy as n's HitShape and returns
// it. Installing twice returns the existing strategy.
func (e *Engine) HitTest(n *Node) *PickStrategy {
	if n == nil || !e.usable("HitTest") {
		return nil
	}
	id := n.PickID()
	if s, ok := e.strategies[id]; ok && s.node == n {
		if n.HitShape != s {
			// Someone swapped the shape out; wrap whatever is there now.
			s.original = n.HitShape
			n.HitShape = s
		}
		return s
	}
	s := &PickStrategy{engine: e, node: n, original: n.HitShape}
	n.HitShape = s
	e.strategies[id] = s
	return s
}

// Restore puts back the HitShape n had before HitTest. A shape that was
// replaced after installation is left alone.
func (e *Engine) Restore(n *Node) {
	if n == nil {
		return
	}
	id := n.PickID()
	s, ok := e.strategies[id]
	if !ok || s.node != n {
		return
	}
	delete(e.strategies, id)
	if n.HitShape == s {
		n.HitShape = s.original
	}
}

// restoreAll reverts every installed strategy.
func (e *Engine) restoreAll() {
	for id, s := range e.strategies {
		if s.node.HitShape == s {
			s.node.HitShape = s.original
		}
		delete(e.strategies, id)
	}
}
