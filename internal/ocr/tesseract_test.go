//go:build cgo

package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// createTextImage renders lines with basicfont and scales the result up so
// Tesseract has glyphs of a readable size.
func createTextImage(t *testing.T, lines []string, scale int) *image.RGBA {
	t.Helper()

	maxLen := 0
	for _, l := range lines {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	w, h := maxLen*7+40, len(lines)*16+30

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	for i, l := range lines {
		d := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
			Dot:  fixed.Point26_6{X: fixed.I(20), Y: fixed.I(20 + i*16)},
		}
		d.DrawString(l)
	}

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			img.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	return img
}

func skipIfUnavailable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	msg := err.Error()
	if strings.Contains(msg, "tesseract") || strings.Contains(msg, "language") || strings.Contains(msg, "library") {
		t.Skipf("Tesseract not available: %v", err)
	}
}

func TestTesseractEngine_Recognize(t *testing.T) {
	engine := NewTesseractEngine("eng", "")
	if !engine.Info().Available {
		t.Skip("Tesseract not available")
	}

	img := createTextImage(t, []string{"INVOICE 12345", "TOTAL 45.20"}, 4)
	text, err := engine.Recognize(context.Background(), img, ModeBlock)
	skipIfUnavailable(t, err)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	upper := strings.ToUpper(text)
	if !strings.Contains(upper, "INVOICE") {
		t.Errorf("text %q does not contain INVOICE", text)
	}
}

func TestTesseractEngine_Words(t *testing.T) {
	engine := NewTesseractEngine("eng", "")
	if !engine.Info().Available {
		t.Skip("Tesseract not available")
	}

	img := createTextImage(t, []string{"HELLO WORLD"}, 4)
	words, err := engine.Words(context.Background(), img, ModeBlock)
	skipIfUnavailable(t, err)
	if err != nil {
		t.Fatalf("Words failed: %v", err)
	}

	b := img.Bounds()
	for _, w := range words {
		if w.Text == "" {
			t.Error("empty words should be dropped")
		}
		if w.Confidence < 0 || w.Confidence > 1 {
			t.Errorf("confidence %v outside [0,1]", w.Confidence)
		}
		if w.Bounds.X1 < b.Min.X || w.Bounds.X2 > b.Max.X {
			t.Errorf("bounds %+v outside image", w.Bounds)
		}
	}
}

func TestTesseractEngine_Canceled(t *testing.T) {
	engine := NewTesseractEngine("", "")
	if engine.Language != "eng" {
		t.Errorf("default language = %q", engine.Language)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Words(ctx, image.NewGray(image.Rect(0, 0, 10, 10)), ModeBlock); err == nil {
		t.Error("canceled context should fail")
	}
}
