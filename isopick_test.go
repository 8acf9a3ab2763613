package isopick

import (
	"image"
	"image/color"
	"io"
	"log"
	"testing"
	"time"
)

// --- shared helpers ---

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// solidImage returns a w x h fully opaque image.
func solidImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 0x80
		img.Pix[i+1] = 0x40
		img.Pix[i+2] = 0x20
		img.Pix[i+3] = 0xff
	}
	return img
}

// holeImage returns a w x h opaque image whose left half has alpha a.
func holeImage(w, h int, a uint8) *image.NRGBA {
	img := solidImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0x80, 0x40, 0x20, a})
		}
	}
	return img
}

// quietLogger discards output.
func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newSoftEngine returns an initialized software engine driven by a fake
// clock.
func newSoftEngine(t testing.TB, layer *Node, cfg Config) (*Engine, *fakeClock) {
	t.Helper()
	clk := newFakeClock()
	cfg.Backend = BackendSoftware
	cfg.Clock = clk
	cfg.TargetFPS = 60
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	e := NewEngine(layer, cfg)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e, clk
}

// --- Rect.Contains ---

func TestRectContains(t *testing.T) {
	r := Rect{10, 20, 100, 50}
	tests := []struct {
		name   string
		x, y   float64
		expect bool
	}{
		{"inside", 50, 40, true},
		{"top-left corner", 10, 20, true},
		{"bottom-right corner", 110, 70, true},
		{"left edge", 10, 40, true},
		{"right edge", 110, 40, true},
		{"top edge", 50, 20, true},
		{"bottom edge", 50, 70, true},
		{"outside left", 9, 40, false},
		{"outside right", 111, 40, false},
		{"outside above", 50, 19, false},
		{"outside below", 50, 71, false},
		{"far outside", 999, 999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Contains(tt.x, tt.y)
			if got != tt.expect {
				t.Errorf("Rect%v.Contains(%v, %v) = %v, want %v", r, tt.x, tt.y, got, tt.expect)
			}
		})
	}
}

// --- Rect.Intersects ---

func TestRectIntersects(t *testing.T) {
	base := Rect{10, 10, 100, 100}
	tests := []struct {
		name   string
		other  Rect
		expect bool
	}{
		{"overlapping", Rect{50, 50, 100, 100}, true},
		{"fully contained", Rect{20, 20, 10, 10}, true},
		{"containing", Rect{0, 0, 200, 200}, true},
		{"adjacent right", Rect{110, 10, 50, 50}, true},
		{"adjacent bottom", Rect{10, 110, 50, 50}, true},
		{"adjacent left", Rect{-50, 10, 60, 50}, true},
		{"adjacent top", Rect{10, -50, 50, 60}, true},
		{"disjoint right", Rect{111, 10, 50, 50}, false},
		{"disjoint left", Rect{-100, 10, 50, 50}, false},
		{"disjoint above", Rect{10, -100, 50, 50}, false},
		{"disjoint below", Rect{10, 111, 50, 50}, false},
		{"same rect", Rect{10, 10, 100, 100}, true},
		{"zero-size at corner", Rect{110, 110, 0, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Intersects(tt.other)
			if got != tt.expect {
				t.Errorf("Rect%v.Intersects(Rect%v) = %v, want %v", base, tt.other, got, tt.expect)
			}
		})
	}
}

// --- Color ---

func TestColorWhite(t *testing.T) {
	if ColorWhite.R != 1 || ColorWhite.G != 1 || ColorWhite.B != 1 || ColorWhite.A != 1 {
		t.Errorf("ColorWhite = %v, want {1,1,1,1}", ColorWhite)
	}
}

// --- String methods ---

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{BackendGPU.String(), "gpu"},
		{BackendSoftware.String(), "software"},
		{Backend(9).String(), "Backend(9)"},
		{StateUninitialized.String(), "uninitialized"},
		{StateInitialized.String(), "initialized"},
		{StateActive.String(), "active"},
		{StateDestroyed.String(), "destroyed"},
		{State(7).String(), "State(7)"},
		{PickIndexed.String(), "indexed"},
		{PickRemoved.String(), "removed"},
		{PickRebuilt.String(), "rebuilt"},
		{PickHoverEnter.String(), "hover-enter"},
		{PickHoverLeave.String(), "hover-leave"},
		{PickEventKind(42).String(), "PickEventKind(42)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

// --- Benchmarks (verify zero allocations) ---

func BenchmarkRectContains(b *testing.B) {
	r := Rect{10, 20, 100, 50}
	b.ReportAllocs()
	for b.Loop() {
		_ = r.Contains(50, 40)
	}
}

func BenchmarkRectIntersects(b *testing.B) {
	r := Rect{10, 20, 100, 50}
	other := Rect{50, 40, 80, 60}
	b.ReportAllocs()
	for b.Loop() {
		_ = r.Intersects(other)
	}
}
