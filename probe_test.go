package isopick

import (
	"bytes"
	"image/color"
	"log"
	"math"
	"strings"
	"testing"
)

func newTestProbe(tb *testBuffer, table *IndexTable, l *logger) *Probe {
	return newProbe(tb.buf, table, l)
}

func TestProbeResolvesTopmost(t *testing.T) {
	tb := newTestBuffer(Rect{Width: 32, Height: 32}, 1, 0)
	table := NewIndexTable()
	a := sprite("a", 0, 0, 8, 8, 0)
	b := sprite("b", 4, 4, 8, 8, 1)
	for _, n := range []*Node{a, b} {
		idx, _ := table.Add(n.PickID())
		table.SetProxy(n.PickID(), tb.add(n, idx))
	}
	tb.render()
	p := newTestProbe(tb, table, newLogger(quietLogger(), "", false))

	tests := []struct {
		name string
		x, y float64
		want ObjectID
		hit  bool
	}{
		{"a only", 1.5, 1.5, a.PickID(), true},
		{"overlap", 6, 6, b.PickID(), true},
		{"b only", 11.9, 11.9, b.PickID(), true},
		{"empty", 20, 20, 0, false},
		{"outside buffer", -1, 5, 0, false},
		{"beyond buffer", 32, 5, 0, false},
		{"NaN", math.NaN(), 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := p.QueryWorldPoint(tt.x, tt.y)
			if ok != tt.hit || id != tt.want {
				t.Errorf("QueryWorldPoint(%v, %v) = (%d, %v), want (%d, %v)", tt.x, tt.y, id, ok, tt.want, tt.hit)
			}
		})
	}
}

func TestProbeFloorsToBufferPixel(t *testing.T) {
	tb := newTestBuffer(Rect{X: 100, Y: 100, Width: 64, Height: 64}, 4, 0)
	p := newTestProbe(tb, NewIndexTable(), newLogger(quietLogger(), "", false))

	tests := []struct {
		x, y   float64
		bx, by int
		ok     bool
	}{
		{100, 100, 0, 0, true},
		{103.99, 103.99, 0, 0, true},
		{104, 107, 1, 1, true},
		{163.9, 100, 15, 0, true},
		{164, 100, 0, 0, false},
		{99.9, 100, 0, 0, false},
	}
	for _, tt := range tests {
		bx, by, ok := p.bufferPixel(tt.x, tt.y)
		if ok != tt.ok || (ok && (bx != tt.bx || by != tt.by)) {
			t.Errorf("bufferPixel(%v, %v) = (%d, %d, %v), want (%d, %d, %v)", tt.x, tt.y, bx, by, ok, tt.bx, tt.by, tt.ok)
		}
	}
}

func TestProbeStaleIndexIsMiss(t *testing.T) {
	tb := newTestBuffer(Rect{Width: 16, Height: 16}, 1, 0)
	table := NewIndexTable()
	n := sprite("a", 0, 0, 4, 4, 0)
	idx, _ := table.Add(n.PickID())
	tb.add(n, idx)
	tb.render()
	table.Remove(n.PickID()) // buffer not rebuilt yet

	p := newTestProbe(tb, table, newLogger(quietLogger(), "", false))
	if id, ok := p.QueryWorldPoint(1, 1); ok {
		t.Errorf("stale index resolved to %d", id)
	}
	if last, ok := p.LastIndex(); !ok || last != idx {
		t.Errorf("LastIndex = (%d, %v), want (%d, true)", last, ok, idx)
	}
}

func TestProbeReservedColorIsMiss(t *testing.T) {
	tb := newTestBuffer(Rect{Width: 4, Height: 4}, 1, 0)
	sb := tb.buf.backend.(*softBackend)
	sb.buf.SetRGBA(0, 0, color.RGBA{0xff, 0xff, 0xff, 0xff})
	p := newTestProbe(tb, NewIndexTable(), newLogger(quietLogger(), "", false))
	if _, ok := p.QueryWorldPoint(0.5, 0.5); ok {
		t.Error("reserved white resolved")
	}
}

func TestProbeReadbackErrorIsLoggedMiss(t *testing.T) {
	var buf bytes.Buffer
	tb := newTestBuffer(Rect{Width: 4, Height: 4}, 1, 0)
	tb.buf.Dispose()
	p := newTestProbe(tb, NewIndexTable(), newLogger(log.New(&buf, "", 0), "tiles", false))

	for range 3 {
		if _, ok := p.QueryWorldPoint(1, 1); ok {
			t.Fatal("query on a disposed buffer hit")
		}
	}
	if n := strings.Count(buf.String(), "warning"); n != 1 {
		t.Errorf("logged %d warnings, want 1 (throttled)\n%s", n, buf.String())
	}
}

func TestProbeCounters(t *testing.T) {
	tb := newTestBuffer(Rect{Width: 8, Height: 8}, 1, 0)
	table := NewIndexTable()
	n := sprite("a", 0, 0, 4, 4, 0)
	idx, _ := table.Add(n.PickID())
	tb.add(n, idx)
	tb.render()
	p := newTestProbe(tb, table, newLogger(quietLogger(), "", false))

	p.QueryWorldPoint(1, 1)
	p.QueryWorldPoint(6, 6)
	if p.queries != 2 || p.hits != 1 {
		t.Errorf("queries=%d hits=%d", p.queries, p.hits)
	}
	if _, ok := p.LastIndex(); ok {
		t.Error("LastIndex ok after a transparent miss")
	}
}

func BenchmarkProbeSoftware(b *testing.B) {
	tb := newTestBuffer(Rect{Width: 256, Height: 256}, 1, 0)
	table := NewIndexTable()
	n := sprite("a", 0, 0, 256, 256, 0)
	idx, _ := table.Add(n.PickID())
	tb.add(n, idx)
	tb.render()
	p := newTestProbe(tb, table, newLogger(quietLogger(), "", false))
	b.ReportAllocs()
	for b.Loop() {
		p.QueryWorldPoint(128, 128)
	}
}
