package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255} // Red top-left
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255} // Green top-right
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255} // Blue bottom-left
			} else {
				c = color.RGBA{255, 255, 255, 255} // White bottom-right
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestColorfulness(t *testing.T) {
	tests := []struct {
		name     string
		img      image.Image
		min, max float64
	}{
		{"white", createInMemoryImage(100, 100, color.White), 0, 0.01},
		{"gray", createInMemoryImage(100, 100, color.RGBA{128, 128, 128, 255}), 0, 0.01},
		{"document", createDocumentImage(200, 150), 0, 0.01},
		{"red", createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255}), 0.5, 2},
		{"quadrants", createPatternImage(100, 100), 0.3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Colorfulness(tt.img)
			if got < tt.min || got > tt.max {
				t.Errorf("Colorfulness = %.4f, want [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestIsMonochrome(t *testing.T) {
	if !IsMonochrome(createDocumentImage(120, 90)) {
		t.Error("black text on white should be monochrome")
	}
	if IsMonochrome(createPatternImage(120, 90)) {
		t.Error("colored quadrants should not be monochrome")
	}
}

func TestColorfulness_Empty(t *testing.T) {
	if got := Colorfulness(image.NewRGBA(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Errorf("empty image: got %v", got)
	}
}

func TestColorfulness_TransparentIgnored(t *testing.T) {
	// Fully transparent pixels carry no color and are skipped.
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	if got := Colorfulness(img); got != 0 {
		t.Errorf("transparent image: got %v", got)
	}
}

func TestDominantTones(t *testing.T) {
	img := createPatternImage(100, 100)
	tones := DominantTones(img, 10)

	if len(tones) != 4 {
		t.Fatalf("got %d tones, want 4", len(tones))
	}
	total := 0.0
	for _, tone := range tones {
		total += tone.Percentage
		if absFloat(tone.Percentage-25) > 2 {
			t.Errorf("%s: %.2f%%, want ~25%%", tone.Hex, tone.Percentage)
		}
	}
	if absFloat(total-100) > 0.01 {
		t.Errorf("percentages sum to %.2f", total)
	}
}

func TestDominantTones_Limit(t *testing.T) {
	tones := DominantTones(createPatternImage(100, 100), 2)
	if len(tones) != 2 {
		t.Errorf("got %d tones, want 2", len(tones))
	}
}

func TestDominantTones_Quantization(t *testing.T) {
	// Colors within one quantization step collapse into one tone.
	img := createInMemoryImage(40, 40, color.RGBA{240, 240, 240, 255})
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{250, 250, 250, 255})
		}
	}

	tones := DominantTones(img, 5)
	if len(tones) != 1 {
		t.Fatalf("got %d tones, want 1: %+v", len(tones), tones)
	}
	if tones[0].Hex != "#f0f0f0" {
		t.Errorf("Hex = %s, want #f0f0f0", tones[0].Hex)
	}
}

func TestPaperTone(t *testing.T) {
	if got := PaperTone(createDocumentImage(200, 150)); got != "#f0f0f0" {
		t.Errorf("PaperTone = %s, want #f0f0f0 (quantized white)", got)
	}
	if got := PaperTone(image.NewRGBA(image.Rect(0, 0, 0, 0))); got != "" {
		t.Errorf("empty image: got %q", got)
	}
}
