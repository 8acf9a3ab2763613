package isopick

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot returns a copy of the buffer's raw identity colors. The GPU
// backend reads the whole target back, which stalls until pending draws
// finish.
func (b *IndexBuffer) Snapshot() (*image.RGBA, error) {
	if b.disposed {
		return nil, ErrEngineDestroyed
	}
	return b.backend.snapshot()
}

// falseColor maps an index to a bright, well-separated color so neighbouring
// indices are distinguishable by eye.
func falseColor(idx ColorIndex) color.NRGBA {
	h := uint32(idx) * 0x9e3779b1
	return color.NRGBA{
		R: uint8(h>>24) | 0x40,
		G: uint8(h>>16) | 0x40,
		B: uint8(h>>8) | 0x40,
		A: 0xff,
	}
}

// falseColorImage decodes every pixel of raw and recolors it with falseColor.
func falseColorImage(raw *image.RGBA) *image.NRGBA {
	b := raw.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := raw.RGBAAt(b.Min.X+x, b.Min.Y+y)
			if c.A == 0 {
				continue
			}
			img.SetNRGBA(x, y, falseColor(DecodeIndex(c.R, c.G, c.B)))
		}
	}
	return img
}

// WriteSnapshot encodes the engine's index buffer as a false-color PNG.
func (e *Engine) WriteSnapshot(w io.Writer) error {
	if !e.usable("WriteSnapshot") {
		return ErrEngineDestroyed
	}
	raw, err := e.buffer.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", e.cfg.Name, err)
	}
	if err := png.Encode(w, falseColorImage(raw)); err != nil {
		return fmt.Errorf("snapshot %s: encode: %w", e.cfg.Name, err)
	}
	return nil
}

// SaveSnapshot writes the index buffer to dir as a timestamped PNG named
// after the engine and label, and returns the file path.
func (e *Engine) SaveSnapshot(dir, label string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: mkdir %s: %w", dir, err)
	}
	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.png", stamp, sanitizeLabel(e.cfg.Name), sanitizeLabel(label)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("snapshot: create %s: %w", path, err)
	}
	if err := e.WriteSnapshot(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("snapshot: close %s: %w", path, err)
	}
	return path, nil
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
