package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// createInMemoryImage creates a uniformly coloured RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createEdgeTestImage creates a black rectangle on a white background.
func createEdgeTestImage(width, height int) *image.RGBA {
	img := createInMemoryImage(width, height, color.White)
	for y := height / 4; y < 3*height/4; y++ {
		for x := width / 4; x < 3*width/4; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

// createDocumentImage draws a page of dark "text" bars on a white background.
// The bars give high sharpness, contrast and brightness variance.
func createDocumentImage(width, height int) *image.RGBA {
	img := createInMemoryImage(width, height, color.White)
	lineH := 6
	for y := 20; y+lineH < height-20; y += 3 * lineH {
		for x := 20; x < width-20; x++ {
			// Word gaps every 40 px.
			if (x/40)%4 == 3 {
				continue
			}
			for dy := 0; dy < lineH; dy++ {
				img.Set(x, y+dy, color.Black)
			}
		}
	}
	return img
}

// createNoiseImage creates a deterministic random RGB image.
func createNoiseImage(width, height int, seed int64) *image.RGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
			continue
		}
		img.Pix[i] = uint8(r.Intn(256))
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
