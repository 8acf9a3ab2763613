package isopick

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// --- Built-in HitShape types ---

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// --- Pointer state ---

type pointerState struct {
	down      bool
	lastX     float64
	lastY     float64
	hitNode   *Node // node under the pointer at press time
	hoverNode *Node // last node the pointer was hovering over (for enter/leave)
	button    MouseButton
}

// --- Handler registry ---

type pointerHandler struct {
	id uint32
	fn func(PointerContext)
}

type handlerRegistry struct {
	pointerEnter []pointerHandler
	pointerLeave []pointerHandler
	pointerMove  []pointerHandler
	click        []pointerHandler
	nextID       uint32
}

func (r *handlerRegistry) list(event EventType) *[]pointerHandler {
	switch event {
	case EventPointerEnter:
		return &r.pointerEnter
	case EventPointerLeave:
		return &r.pointerLeave
	case EventPointerMove:
		return &r.pointerMove
	case EventClick:
		return &r.click
	}
	return nil
}

func (r *handlerRegistry) add(event EventType, fn func(PointerContext)) CallbackHandle {
	r.nextID++
	l := r.list(event)
	*l = append(*l, pointerHandler{id: r.nextID, fn: fn})
	return CallbackHandle{id: r.nextID, reg: r, event: event}
}

// CallbackHandle allows removing a registered scene-level callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event EventType
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	l := h.reg.list(h.event)
	if l == nil {
		return
	}
	s := *l
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = pointerHandler{}
			*l = s[:len(s)-1]
			return
		}
	}
}

// --- Scene-level event registration ---

// OnPointerEnter registers a scene-level callback fired when the pointer
// moves over a new node.
func (s *Scene) OnPointerEnter(fn func(PointerContext)) CallbackHandle {
	return s.handlers.add(EventPointerEnter, fn)
}

// OnPointerLeave registers a scene-level callback fired when the pointer
// leaves a node (to a different node or to empty space).
func (s *Scene) OnPointerLeave(fn func(PointerContext)) CallbackHandle {
	return s.handlers.add(EventPointerLeave, fn)
}

// OnPointerMove registers a scene-level callback for hover moves.
func (s *Scene) OnPointerMove(fn func(PointerContext)) CallbackHandle {
	return s.handlers.add(EventPointerMove, fn)
}

// OnClick registers a scene-level callback for click events.
func (s *Scene) OnClick(fn func(PointerContext)) CallbackHandle {
	return s.handlers.add(EventClick, fn)
}

// HoverNode returns the node currently under the mouse pointer, or nil.
func (s *Scene) HoverNode() *Node {
	return s.pointer.hoverNode
}

// --- Hit testing ---

// nodeContainsLocal tests whether (lx, ly) falls inside a node's hit region.
// Uses HitShape if set; otherwise the texture rectangle. Containers with no
// HitShape are not hit-testable.
func nodeContainsLocal(n *Node, lx, ly float64) bool {
	if n.HitShape != nil {
		return n.HitShape.Contains(lx, ly)
	}
	w, h := n.Size()
	if w == 0 && h == 0 {
		return false
	}
	return lx >= 0 && lx <= w && ly >= 0 && ly <= h
}

// collectInteractable walks the tree in painter order (DFS, ZIndex-sorted),
// appending interactable nodes to buf. Skips Visible=false or
// Interactable=false subtrees.
func (s *Scene) collectInteractable(n *Node, buf []*Node) []*Node {
	if !n.Visible || !n.Interactable {
		return buf
	}
	if n.HitShape != nil || n.Texture != nil {
		buf = append(buf, n)
	}
	if len(n.children) == 0 {
		return buf
	}
	children := n.children
	if !n.childrenSorted {
		rebuildSortedChildren(n)
	}
	if n.sortedChildren != nil {
		children = n.sortedChildren
	}
	for _, child := range children {
		buf = s.collectInteractable(child, buf)
	}
	return buf
}

// hitTest finds the topmost interactable node at (worldX, worldY).
// Returns nil if nothing is hit.
func (s *Scene) hitTest(worldX, worldY float64) *Node {
	s.hitBuf = s.collectInteractable(s.root, s.hitBuf[:0])

	// Reverse painter order: topmost visual node first.
	for i := len(s.hitBuf) - 1; i >= 0; i-- {
		n := s.hitBuf[i]
		lx, ly := n.WorldToLocal(worldX, worldY)
		if nodeContainsLocal(n, lx, ly) {
			return n
		}
	}
	return nil
}

// NodeAt returns the topmost interactable node at the given world point.
// World transforms must be current (Scene.Update refreshes them).
func (s *Scene) NodeAt(worldX, worldY float64) *Node {
	return s.hitTest(worldX, worldY)
}

// --- Input processing ---

// processInput is called from Scene.Update() to handle mouse input.
// Injected events take priority over the real mouse for that frame.
func (s *Scene) processInput() {
	cam := s.primaryCamera()
	if s.processInjectedInput(cam) {
		return
	}

	mx, my := ebiten.CursorPosition()
	wx, wy := screenToWorld(cam, float64(mx), float64(my))

	var pressed bool
	var button MouseButton
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		pressed, button = true, MouseButtonLeft
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		pressed, button = true, MouseButtonRight
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle):
		pressed, button = true, MouseButtonMiddle
	}
	s.processPointer(wx, wy, pressed, button)
}

// screenToWorld converts screen coordinates to world coordinates using the primary camera.
func screenToWorld(cam *Camera, sx, sy float64) (float64, float64) {
	if cam != nil {
		return cam.ScreenToWorld(sx, sy)
	}
	return sx, sy
}

// processPointer runs the pointer state machine: hover enter/leave on
// target changes, moves while hovering, click on press-release over the
// same node.
func (s *Scene) processPointer(wx, wy float64, pressed bool, button MouseButton) {
	ps := &s.pointer
	target := s.hitTest(wx, wy)

	if target != ps.hoverNode {
		if ps.hoverNode != nil {
			s.fire(EventPointerLeave, ps.hoverNode, wx, wy, button)
		}
		if target != nil {
			s.fire(EventPointerEnter, target, wx, wy, button)
		}
		ps.hoverNode = target
	}

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ps.hitNode = target
	case !pressed && ps.down:
		if ps.hitNode != nil && ps.hitNode == target {
			s.fire(EventClick, target, wx, wy, ps.button)
		}
		ps.down = false
		ps.hitNode = nil
	case !pressed && !ps.down:
		if target != nil && (wx != ps.lastX || wy != ps.lastY) {
			s.fire(EventPointerMove, target, wx, wy, button)
		}
	}
	ps.lastX = wx
	ps.lastY = wy
}

// fire delivers one pointer event to scene-level handlers, then to the
// node's own callback.
func (s *Scene) fire(event EventType, node *Node, wx, wy float64, button MouseButton) {
	lx, ly := node.WorldToLocal(wx, wy)
	ctx := PointerContext{
		Node: node, UserData: node.UserData,
		GlobalX: wx, GlobalY: wy, LocalX: lx, LocalY: ly,
		Button: button,
	}
	for _, h := range *s.handlers.list(event) {
		h.fn(ctx)
	}
	var own func(PointerContext)
	switch event {
	case EventPointerEnter:
		own = node.OnPointerEnter
	case EventPointerLeave:
		own = node.OnPointerLeave
	case EventPointerMove:
		own = node.OnPointerMove
	case EventClick:
		own = node.OnClick
	}
	if own != nil {
		own(ctx)
	}
}
