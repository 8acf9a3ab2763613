package isopick

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// debugStats holds per-frame timing and draw metrics.
// Only populated when Scene.debug is true.
type debugStats struct {
	traverseTime time.Duration
	submitTime   time.Duration
	commandCount int
	pooled       int
}

// debugLog prints frame timing and draw stats through the scene logger.
func (s *Scene) debugLog(stats debugStats) {
	if !s.debug {
		return
	}
	s.log.debugf("traverse: %v | submit: %v | total: %v | commands: %d | pooled targets: %d",
		stats.traverseTime, stats.submitTime, stats.traverseTime+stats.submitTime,
		stats.commandCount, stats.pooled)
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called in debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("isopick debug: %s on disposed node %q (ID %d)", op, n.Name, n.ID))
	}
}

// debugMaxTreeDepth is the depth past which debugCheckTreeDepth warns.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		newLogger(nil, "scene", true).warnf("tree depth %d exceeds %d (node %q)",
			depth, debugMaxTreeDepth, n.Name)
	}
}

// logRebuild reports one index buffer rebuild in debug mode.
func (e *Engine) logRebuild() {
	if !e.log.debug {
		return
	}
	b := e.buffer
	w, h := b.Size()
	e.log.debugf("rebuild #%d: %d proxies in %v, %dx%d %s buffer (%s)",
		b.rebuilds, b.lastDrawn, b.lastRender, w, h, b.kind,
		humanize.Bytes(uint64(b.backend.bytes())))
}
