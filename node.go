package isopick

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// HitShape is the per-node "point is inside me" predicate used by the
// scene's hit testing. Coordinates are in the node's local space.
type HitShape interface {
	Contains(x, y float64) bool
}

// PointerContext carries pointer event data.
type PointerContext struct {
	Node     *Node
	UserData any
	GlobalX  float64
	GlobalY  float64
	LocalX   float64
	LocalY   float64
	Button   MouseButton
}

// --- ID counter ---

// nodeIDCounter is a plain counter (no atomic; the scene is single-threaded).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// --- Node ---

// Node is the scene graph element. Containers have no Texture; sprites draw
// their Texture at the local origin.
type Node struct {
	// Identity
	ID   uint32
	Name string

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	X, Y         float64
	ScaleX       float64
	ScaleY       float64
	Rotation     float64
	SkewX, SkewY float64
	PivotX       float64
	PivotY       float64

	// Computed, refreshed by updateWorldTransforms.
	worldTransform [6]float64
	transformDirty bool

	// Visibility & interaction
	Alpha        float64
	Visible      bool
	Interactable bool
	// Controlled marks the node the user is currently manipulating. Pixel
	// picking accepts any point inside its bounds without probing.
	Controlled bool

	// ZIndex orders siblings for drawing and is the picking sort key.
	ZIndex int

	// Metadata
	UserData any

	// Texture is the renderable surface. Any image.Image works; non-ebiten
	// images are uploaded on first draw.
	Texture  image.Image
	Color    Color
	texImage *ebiten.Image
	texFrom  image.Image
	texGen   uint64
	texAt    uint64

	// Hit testing
	HitShape HitShape

	// Filters
	Filters []Filter

	// Per-node callbacks (nil by default)
	OnPointerEnter func(PointerContext)
	OnPointerLeave func(PointerContext)
	OnPointerMove  func(PointerContext)
	OnClick        func(PointerContext)

	// Internal
	disposed       bool
	childrenSorted bool
	sortedChildren []*Node // reused buffer for ZIndex-sorted traversal order
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Alpha = 1
	n.Color = ColorWhite
	n.Visible = true
	n.transformDirty = true
	n.childrenSorted = true
}

// NewContainer creates a container node with no visual representation.
func NewContainer(name string) *Node {
	n := &Node{Name: name}
	nodeDefaults(n)
	return n
}

// NewSprite creates a sprite node that draws tex.
func NewSprite(name string, tex image.Image) *Node {
	n := &Node{Name: name, Texture: tex}
	nodeDefaults(n)
	return n
}

// PickID returns the id the picking engines track this node under.
func (n *Node) PickID() ObjectID {
	return ObjectID(n.ID)
}

// Size returns the unscaled local size of the node's texture, or (0, 0)
// for containers.
func (n *Node) Size() (w, h float64) {
	if n.Texture == nil {
		return 0, 0
	}
	b := n.Texture.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// SetTexture replaces the node's texture.
func (n *Node) SetTexture(tex image.Image) {
	n.Texture = tex
}

// InvalidateTexture marks the texture's pixels as changed. Call it after
// drawing into a CPU texture in place; uploads and picking stencils are
// keyed by the texture value and would otherwise keep the old pixels.
// Picking engines see the change on the next Reindex or Sync.
func (n *Node) InvalidateTexture() {
	n.texGen++
}

// TextureGeneration returns how many times InvalidateTexture was called.
func (n *Node) TextureGeneration() uint64 {
	return n.texGen
}

// drawImage returns the texture as an *ebiten.Image, uploading CPU images
// once and reusing the upload until Texture changes.
func (n *Node) drawImage() *ebiten.Image {
	if n.Texture == nil {
		return nil
	}
	if img, ok := n.Texture.(*ebiten.Image); ok {
		return img
	}
	if n.texImage == nil || n.texFrom != n.Texture || n.texAt != n.texGen {
		n.releaseUpload()
		n.texImage = ebiten.NewImageFromImage(n.Texture)
		n.texFrom = n.Texture
		n.texAt = n.texGen
	}
	return n.texImage
}

func (n *Node) releaseUpload() {
	if n.texImage != nil {
		n.texImage.Deallocate()
	}
	n.texImage = nil
	n.texFrom = nil
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("isopick: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("isopick: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	n.childrenSorted = false
	markSubtreeDirty(child)
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if globalDebug {
		debugCheckDisposed(n, "RemoveChild (parent)")
		debugCheckDisposed(child, "RemoveChild (child)")
	}
	if child.Parent != n {
		panic("isopick: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	n.childrenSorted = false
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// SetZIndex sets the node's ZIndex and marks the parent's children as unsorted.
func (n *Node) SetZIndex(z int) {
	if n.ZIndex == z {
		return
	}
	n.ZIndex = z
	if n.Parent != nil {
		n.Parent.childrenSorted = false
	}
}

// FindByID returns the node with the given id in this subtree, or nil.
func (n *Node) FindByID(id uint32) *Node {
	if n.ID == id && !n.disposed {
		return n
	}
	for _, c := range n.children {
		if found := c.FindByID(id); found != nil {
			return found
		}
	}
	return nil
}

// visibleInTree reports whether n and every ancestor are visible.
func (n *Node) visibleInTree() bool {
	for p := n; p != nil; p = p.Parent {
		if !p.Visible {
			return false
		}
	}
	return true
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.sortedChildren = nil
	n.Parent = nil
	n.HitShape = nil
	n.Filters = nil
	n.releaseUpload()
	n.Texture = nil
	n.UserData = nil
	n.OnPointerEnter = nil
	n.OnPointerLeave = nil
	n.OnPointerMove = nil
	n.OnClick = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
