package isopick

import (
	"slices"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// hoverState is an engine's single hover highlight. The glow filter is
// shared: at most one node per engine carries it at a time.
type hoverState struct {
	glow     *GlowFilter
	node     *Node
	tween    *gween.Tween
	duration float32
}

func (h *hoverState) init(cfg Config) {
	h.glow = NewGlowFilter(cfg.GlowRadius, cfg.GlowColor)
	h.duration = cfg.GlowDuration
}

// tick advances the fade-in.
func (h *hoverState) tick(dt float32) {
	if h.tween == nil {
		return
	}
	v, done := h.tween.Update(dt)
	h.glow.Strength = float64(v)
	if done {
		h.tween = nil
	}
}

// SetHover toggles the hover glow on n. Turning it on moves the glow off
// whichever node had it and fades it in; turning it off on a node that does
// not have it is a no-op.
func (e *Engine) SetHover(n *Node, hovered bool) {
	if n == nil || !e.usable("SetHover") {
		return
	}
	if !hovered {
		if e.hover.node == n {
			e.clearHover()
		}
		return
	}
	if e.hover.node == n {
		return
	}
	e.clearHover()

	h := &e.hover
	h.node = n
	h.glow.Strength = 0
	h.tween = gween.New(0, 1, h.duration, ease.OutQuad)
	n.Filters = append(n.Filters, h.glow)
	idx, _ := e.IndexOf(n.PickID())
	e.emit(PickHoverEnter, n.PickID(), idx)
}

// Hovered returns the node currently carrying the hover glow, or nil.
func (e *Engine) Hovered() *Node {
	return e.hover.node
}

// HoverGlow returns the engine's shared glow filter.
func (e *Engine) HoverGlow() *GlowFilter {
	return e.hover.glow
}

// clearHover strips the glow from the hovered node.
func (e *Engine) clearHover() {
	h := &e.hover
	n := h.node
	if n == nil {
		return
	}
	h.node = nil
	h.tween = nil
	if i := slices.Index(n.Filters, Filter(h.glow)); i >= 0 {
		n.Filters = slices.Delete(n.Filters, i, i+1)
	}
	idx, _ := e.IndexOf(n.PickID())
	e.emit(PickHoverLeave, n.PickID(), idx)
}

// BindHover registers pointer enter and leave handlers on s that glow the
// engine's tracked nodes under the cursor, and attaches the engine so the
// scene drives its Update. Destroy removes the handlers.
func (e *Engine) BindHover(s *Scene) {
	if s == nil || !e.usable("BindHover") {
		return
	}
	for _, h := range e.hoverHandles {
		h.Remove()
	}
	s.Attach(e)
	e.hoverHandles = []CallbackHandle{
		s.OnPointerEnter(func(ctx PointerContext) {
			if e.Tracked(ctx.Node.PickID()) && e.nodes[ctx.Node.PickID()] == ctx.Node {
				e.SetHover(ctx.Node, true)
			}
		}),
		s.OnPointerLeave(func(ctx PointerContext) {
			e.SetHover(ctx.Node, false)
		}),
	}
}
