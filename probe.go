package isopick

import "math"

// Probe answers "what is at this world point" against one index buffer.
type Probe struct {
	buffer *IndexBuffer
	table  *IndexTable
	log    *logger

	lastIndex ColorIndex
	lastOK    bool

	queries int
	hits    int
}

func newProbe(buffer *IndexBuffer, table *IndexTable, l *logger) *Probe {
	return &Probe{buffer: buffer, table: table, log: l}
}

// bufferPixel maps a world point to buffer pixel coordinates. Reports false
// when the point falls outside the buffer.
func (p *Probe) bufferPixel(x, y float64) (bx, by int, ok bool) {
	b := p.buffer
	fx := math.Floor((x - b.origin.X) / b.scale)
	fy := math.Floor((y - b.origin.Y) / b.scale)
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return 0, 0, false
	}
	if fx < 0 || fy < 0 || fx >= float64(b.width) || fy >= float64(b.height) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

// QueryWorldPoint returns the id of the topmost tracked object whose opaque
// pixel covers (x, y) as of the last rebuild. Points outside the buffer,
// transparent pixels, indices with no live owner and readback failures are
// all misses.
func (p *Probe) QueryWorldPoint(x, y float64) (ObjectID, bool) {
	p.queries++
	p.lastOK = false

	bx, by, ok := p.bufferPixel(x, y)
	if !ok {
		return 0, false
	}
	c, err := p.buffer.pixelAt(bx, by)
	if err != nil {
		p.log.readbackFailed.Do(func() {
			p.log.warnf("probe at (%.1f, %.1f): %v", x, y, err)
		})
		return 0, false
	}
	if c.A == 0 {
		return 0, false
	}

	idx := DecodeIndex(c.R, c.G, c.B)
	p.lastIndex = idx
	p.lastOK = true
	if !idx.Valid() {
		return 0, false
	}
	id, found := p.table.Resolve(idx)
	if found {
		p.hits++
	}
	return id, found
}

// LastIndex returns the color index read by the most recent query that hit
// a non-transparent pixel. Reports false when the most recent query missed
// before decoding.
func (p *Probe) LastIndex() (ColorIndex, bool) {
	return p.lastIndex, p.lastOK
}
