package isopick

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// color32 is a compact RGBA color using float32, for render commands only.
type color32 struct {
	R, G, B, A float32
}

// RenderCommand is a single draw instruction emitted during scene traversal.
type RenderCommand struct {
	Transform [6]float32
	Color     color32
	image     *ebiten.Image
	treeOrder int
}

// affine32 converts a [6]float64 affine matrix to [6]float32.
func affine32(m [6]float64) [6]float32 {
	return [6]float32{float32(m[0]), float32(m[1]), float32(m[2]), float32(m[3]), float32(m[4]), float32(m[5])}
}

// affineGeoM converts an [a, b, c, d, tx, ty] matrix into an ebiten.GeoM.
func affineGeoM(t [6]float64) ebiten.GeoM {
	var m ebiten.GeoM
	m.SetElement(0, 0, t[0])
	m.SetElement(1, 0, t[1])
	m.SetElement(0, 1, t[2])
	m.SetElement(1, 1, t[3])
	m.SetElement(0, 2, t[4])
	m.SetElement(1, 2, t[5])
	return m
}

// commandGeoM converts a command's transform into an ebiten.GeoM.
func commandGeoM(cmd *RenderCommand) ebiten.GeoM {
	t := cmd.Transform
	return affineGeoM([6]float64{
		float64(t[0]), float64(t[1]), float64(t[2]),
		float64(t[3]), float64(t[4]), float64(t[5]),
	})
}

// traverse walks the node tree depth-first in painter order and emits a
// command for every visible sprite. World transforms must be current.
func (s *Scene) traverse(n *Node, view [6]float64, parentAlpha float64, treeOrder *int) {
	if !n.Visible {
		return
	}
	alpha := parentAlpha * n.Alpha

	if n.Texture != nil {
		t := multiplyAffine(view, n.worldTransform)
		if len(n.Filters) > 0 {
			s.emitFiltered(n, t, alpha, treeOrder)
		} else if img := n.drawImage(); img != nil {
			*treeOrder++
			s.commands = append(s.commands, RenderCommand{
				Transform: affine32(t),
				Color:     color32{float32(n.Color.R), float32(n.Color.G), float32(n.Color.B), float32(n.Color.A * alpha)},
				image:     img,
				treeOrder: *treeOrder,
			})
		}
	}

	if len(n.children) == 0 {
		return
	}
	children := n.children
	if !n.childrenSorted {
		rebuildSortedChildren(n)
	}
	if n.sortedChildren != nil {
		children = n.sortedChildren
	}
	for _, child := range children {
		s.traverse(child, view, alpha, treeOrder)
	}
}

// emitFiltered draws n's texture into a padded offscreen image, runs the
// filter chain over it and emits the result shifted back by the padding.
func (s *Scene) emitFiltered(n *Node, t [6]float64, alpha float64, treeOrder *int) {
	img := n.drawImage()
	if img == nil {
		return
	}
	pad := filterChainPadding(n.Filters)
	b := img.Bounds()

	rt := s.rtPool.Acquire(b.Dx()+2*pad, b.Dy()+2*pad)
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(float64(pad), float64(pad))
	rt.DrawImage(img, &op)

	result := applyFilters(n.Filters, rt, &s.rtPool)
	if result != rt {
		s.rtPool.Release(rt)
	}
	s.rtDeferred = append(s.rtDeferred, result)

	// RT pixel (0, 0) sits at local (-pad, -pad).
	p := float64(pad)
	t[4] -= t[0]*p + t[2]*p
	t[5] -= t[1]*p + t[3]*p

	*treeOrder++
	s.commands = append(s.commands, RenderCommand{
		Transform: affine32(t),
		Color:     color32{float32(n.Color.R), float32(n.Color.G), float32(n.Color.B), float32(n.Color.A * alpha)},
		image:     result,
		treeOrder: *treeOrder,
	})
}

// rebuildSortedChildren rebuilds the ZIndex-sorted traversal order for a node.
// Drawing, hit testing and the picking engines all walk children in this order.
// Stable insertion sort: zero allocations and O(n) when already sorted.
func rebuildSortedChildren(n *Node) {
	nc := len(n.children)
	if cap(n.sortedChildren) < nc {
		n.sortedChildren = make([]*Node, nc)
	}
	n.sortedChildren = n.sortedChildren[:nc]
	copy(n.sortedChildren, n.children)
	for i := 1; i < nc; i++ {
		key := n.sortedChildren[i]
		j := i - 1
		for j >= 0 && n.sortedChildren[j].ZIndex > key.ZIndex {
			n.sortedChildren[j+1] = n.sortedChildren[j]
			j--
		}
		n.sortedChildren[j+1] = key
	}
	n.childrenSorted = true
}

// submitCommands draws every command onto target in emission order.
func (s *Scene) submitCommands(target *ebiten.Image) {
	op := &s.drawOp
	for i := range s.commands {
		cmd := &s.commands[i]
		op.GeoM = commandGeoM(cmd)
		op.ColorScale.Reset()
		a := cmd.Color.A
		op.ColorScale.Scale(cmd.Color.R*a, cmd.Color.G*a, cmd.Color.B*a, a)
		op.Blend = ebiten.BlendSourceOver
		target.DrawImage(cmd.image, op)
	}
}

// --- Merge sort ---

// mergeSortStable sorts items in place with a bottom-up merge sort and
// returns the scratch buffer for reuse. lessOrEqual must return true when a
// may precede b; returning true for equal elements keeps the sort stable.
// Zero allocations once scratch has reached the high-water mark.
func mergeSortStable[T any](items, scratch []T, lessOrEqual func(a, b T) bool) []T {
	n := len(items)
	if n <= 1 {
		return scratch
	}
	if cap(scratch) < n {
		scratch = make([]T, n)
	}
	scratch = scratch[:n]

	a := items
	b := scratch
	swapped := false

	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			lo := i
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi, lessOrEqual)
		}
		a, b = b, a
		swapped = !swapped
	}

	if swapped {
		copy(items, scratch)
	}
	return scratch
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun[T any](src, dst []T, lo, mid, hi int, lessOrEqual func(a, b T) bool) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if lessOrEqual(src[i], src[j]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
}
