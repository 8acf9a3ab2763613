package isopick

import "math"

// Affine matrices are [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// computeLocalTransform builds n's local matrix. The texture is moved so the
// pivot sits at the origin, then scaled, sheared by SkewX/SkewY (isometric
// tiles are usually a 2:1 shear of a square), rotated and finally placed at
// (X, Y).
func computeLocalTransform(n *Node) [6]float64 {
	m := [6]float64{n.ScaleX, 0, 0, n.ScaleY, -n.PivotX * n.ScaleX, -n.PivotY * n.ScaleY}
	if n.SkewX != 0 || n.SkewY != 0 {
		m = multiplyAffine([6]float64{1, math.Tan(n.SkewY), math.Tan(n.SkewX), 1, 0, 0}, m)
	}
	if n.Rotation != 0 {
		sin, cos := math.Sincos(n.Rotation)
		m = multiplyAffine([6]float64{cos, sin, -sin, cos, 0, 0}, m)
	}
	m[4] += n.X
	m[5] += n.Y
	return m
}

// multiplyAffine returns p * c: c is applied first.
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine returns the inverse of m, or the identity when m collapses
// the plane (a zero scale).
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if math.Abs(det) < 1e-12 {
		return identityTransform
	}
	a, b := m[3]/det, -m[1]/det
	c, d := -m[2]/det, m[0]/det
	return [6]float64{a, b, c, d, -(a*m[4] + c*m[5]), -(b*m[4] + d*m[5])}
}

func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// updateWorldTransforms refreshes the cached world matrices under root.
// Clean subtrees under a clean parent are skipped.
func updateWorldTransforms(root *Node) {
	propagateTransform(root, identityTransform, false)
}

func propagateTransform(n *Node, parent [6]float64, force bool) {
	force = force || n.transformDirty
	if force {
		n.worldTransform = multiplyAffine(parent, computeLocalTransform(n))
		n.transformDirty = false
	}
	for _, c := range n.children {
		propagateTransform(c, n.worldTransform, force)
	}
}

// computeWorldTransform composes n's matrix from its ancestors directly,
// ignoring the cache. Picking engines use it because they index nodes
// between scene updates.
func (n *Node) computeWorldTransform() [6]float64 {
	m := computeLocalTransform(n)
	for p := n.Parent; p != nil; p = p.Parent {
		m = multiplyAffine(computeLocalTransform(p), m)
	}
	return m
}

// WorldTransform returns n's current world matrix.
func (n *Node) WorldTransform() [6]float64 {
	return n.computeWorldTransform()
}

// SetPosition moves n and marks its transform dirty.
func (n *Node) SetPosition(x, y float64) {
	n.X, n.Y = x, y
	n.transformDirty = true
}

// SetRotation sets n's rotation in radians and marks its transform dirty.
func (n *Node) SetRotation(r float64) {
	n.Rotation = r
	n.transformDirty = true
}

// WorldToLocal maps a world point into n's texture space using the world
// matrix from the last scene update.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	return transformPoint(invertAffine(n.worldTransform), wx, wy)
}

// LocalToWorld maps a point in n's texture space to world space using the
// world matrix from the last scene update.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(n.worldTransform, lx, ly)
}
