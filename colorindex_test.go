package isopick

import (
	"image/color"
	"strings"
	"testing"
)

func TestEncodeIndex(t *testing.T) {
	tests := []struct {
		name    string
		in      ColorIndex
		r, g, b uint8
	}{
		{"zero", 0, 0, 0, 0},
		{"blue only", 0x0000ff, 0, 0, 0xff},
		{"green only", 0x00ff00, 0, 0xff, 0},
		{"red only", 0xff0000, 0xff, 0, 0},
		{"mixed", 0x123456, 0x12, 0x34, 0x56},
		{"max", MaxColorIndex, 0xff, 0xff, 0xfe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := EncodeIndex(tt.in)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("EncodeIndex(%#x) = (%d, %d, %d), want (%d, %d, %d)", uint32(tt.in), r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestEncodeDecodeRoundtripAll(t *testing.T) {
	if testing.Short() {
		t.Skip("full 24-bit sweep")
	}
	for i := ColorIndex(0); i <= MaxColorIndex; i++ {
		if got := DecodeIndex(EncodeIndex(i)); got != i {
			t.Fatalf("DecodeIndex(EncodeIndex(%d)) = %d", i, got)
		}
	}
}

func TestEncodeDecodeRoundtripSample(t *testing.T) {
	for _, i := range []ColorIndex{0, 1, 255, 256, 65535, 65536, 1 << 20, MaxColorIndex - 1, MaxColorIndex} {
		if got := DecodeIndex(EncodeIndex(i)); got != i {
			t.Errorf("DecodeIndex(EncodeIndex(%d)) = %d", i, got)
		}
	}
}

func TestEncodeIndexOutOfRangePanics(t *testing.T) {
	for _, i := range []ColorIndex{MaxColorIndex + 1, 1 << 24, 1<<32 - 1} {
		func() {
			defer func() {
				r := recover()
				if r == nil {
					t.Errorf("EncodeIndex(%d) did not panic", i)
					return
				}
				if msg, ok := r.(string); !ok || !strings.HasPrefix(msg, "isopick:") {
					t.Errorf("panic = %v, want isopick-prefixed message", r)
				}
			}()
			EncodeIndex(i)
		}()
	}
}

func TestDecodeIndexReservedWhite(t *testing.T) {
	idx := DecodeIndex(0xff, 0xff, 0xff)
	if idx.Valid() {
		t.Errorf("white decodes to valid index %d", idx)
	}
}

func TestColorIndexColor(t *testing.T) {
	got := ColorIndex(0x010203).Color()
	want := color.RGBA{1, 2, 3, 0xff}
	if got != want {
		t.Errorf("Color() = %v, want %v", got, want)
	}
	r, g, b := ColorIndex(0x010203).RGB()
	if r != 1 || g != 2 || b != 3 {
		t.Errorf("RGB() = (%d, %d, %d)", r, g, b)
	}
}

func BenchmarkDecodeIndex(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		_ = DecodeIndex(0x12, 0x34, 0x56)
	}
}
