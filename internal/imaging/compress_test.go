package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// createGradientImage creates a smooth colored gradient, which compresses
// well at low JPEG quality.
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / width),
				G: uint8(255 * y / height),
				B: 160,
				A: 255,
			})
		}
	}
	return img
}

// largeOriginal stands in for a big camera file; only its length matters.
func largeOriginal() []byte {
	return make([]byte, 5<<20)
}

func TestCompress_SmallFileFastPath(t *testing.T) {
	img := createDocumentImage(100, 80)
	original := encodePNG(t, img)

	out, res, err := Compress(context.Background(), img, original, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Error("small file should be returned unchanged")
	}
	if !res.FastPath || !res.Passthrough || res.Quality != 100 || res.Similarity != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
}

func TestCompress_Search(t *testing.T) {
	img := createGradientImage(400, 300)
	original := largeOriginal()

	out, res, err := Compress(context.Background(), img, original, CompressOptions{})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if len(out) > len(original) || res.CompressedBytes != len(out) {
		t.Errorf("output %d bytes, result says %d", len(out), res.CompressedBytes)
	}
	if res.BestEffort {
		t.Error("smooth gradient should reach the target")
	}
	if res.Similarity < 0.98 || res.Similarity > 1 {
		t.Errorf("Similarity = %v", res.Similarity)
	}
	if res.Quality < 20 || res.Quality >= 95 {
		t.Errorf("Quality = %d, want within [20, 95)", res.Quality)
	}
	if res.Iterations < 1 || res.Iterations > 10 {
		t.Errorf("Iterations = %d", res.Iterations)
	}
	if res.Grayscale {
		t.Error("colored gradient must not be encoded as grayscale")
	}

	decoded, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if decoded.Bounds().Dx() != 400 || decoded.Bounds().Dy() != 300 {
		t.Errorf("decoded size = %v", decoded.Bounds().Size())
	}
}

func TestCompress_Properties(t *testing.T) {
	tests := []struct {
		name   string
		img    image.Image
		target float64
	}{
		{"noise", createNoiseImage(200, 200, 9), 0.98},
		{"document", createDocumentImage(300, 200), 0.98},
		{"gradient strict", createGradientImage(200, 200), 0.999},
		{"gradient loose", createGradientImage(200, 200), 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := largeOriginal()
			opts := CompressOptions{TargetSimilarity: tt.target, MaxIterations: 6}

			out, res, err := Compress(context.Background(), tt.img, original, opts)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if len(out) > len(original) {
				t.Errorf("output larger than input")
			}
			if res.Similarity < 0 || res.Similarity > 1 {
				t.Errorf("Similarity %v outside [0,1]", res.Similarity)
			}
			if res.Similarity < tt.target-0.005 && !res.BestEffort {
				t.Errorf("similarity %v below target without BestEffort", res.Similarity)
			}
			if res.Iterations > 6 {
				t.Errorf("Iterations = %d exceeds cap", res.Iterations)
			}
		})
	}
}

func TestCompress_ReturnsOriginalWhenNotSmaller(t *testing.T) {
	img := createNoiseImage(200, 200, 4)
	original := []byte("0123456789")

	out, res, err := Compress(context.Background(), img, original, CompressOptions{SmallFileBytes: 1})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !bytes.Equal(out, original) {
		t.Error("original should be returned when encoding does not save space")
	}
	if !res.Passthrough || res.Quality != 100 || res.Similarity != 1 || res.CompressedBytes != len(original) {
		t.Errorf("result = %+v", res)
	}
}

func TestCompress_FullQualityIsNotPassthrough(t *testing.T) {
	img := createGradientImage(400, 300)
	original := largeOriginal()

	out, res, err := Compress(context.Background(), img, original, CompressOptions{MinQuality: 100, MaxQuality: 100})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Quality != 100 {
		t.Fatalf("Quality = %d, want 100", res.Quality)
	}
	if res.Passthrough || bytes.Equal(out, original) {
		t.Error("a quality 100 re-encode must not be reported as the original bytes")
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(out)); err != nil || format != "jpeg" {
		t.Errorf("output format = %q, %v; want jpeg", format, err)
	}
}

func TestCompress_Grayscale(t *testing.T) {
	img := createDocumentImage(300, 200)

	out, res, err := Compress(context.Background(), img, largeOriginal(), CompressOptions{})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !res.Grayscale {
		t.Fatal("monochrome page should be encoded as grayscale")
	}
	decoded, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded.(*image.Gray); !ok {
		t.Errorf("decoded type %T, want *image.Gray", decoded)
	}
}

func TestCompress_MaxDimension(t *testing.T) {
	img := createGradientImage(600, 400)

	_, res, err := Compress(context.Background(), img, largeOriginal(), CompressOptions{MaxDimension: 200})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Width != 200 || res.Height != 133 {
		t.Errorf("size = %dx%d, want 200x133", res.Width, res.Height)
	}
}

func TestCompress_Fast(t *testing.T) {
	img := createGradientImage(400, 300)

	_, res, err := Compress(context.Background(), img, largeOriginal(), CompressOptions{Fast: true})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !res.FastPath || res.Iterations != 1 {
		t.Errorf("result = %+v, want a single fast encode", res)
	}
	if res.Quality != 85 {
		t.Errorf("Quality = %d, want 85 for a dense file", res.Quality)
	}
}

func TestFastQuality(t *testing.T) {
	tests := []struct {
		size, pixels, want int
	}{
		{2000, 1000, 85},
		{1500, 1000, 80},
		{800, 1000, 80},
		{750, 1000, 75},
		{100, 1000, 75},
		{100, 0, 80},
	}
	for _, tt := range tests {
		if got := fastQuality(tt.size, tt.pixels); got != tt.want {
			t.Errorf("fastQuality(%d, %d) = %d, want %d", tt.size, tt.pixels, got, tt.want)
		}
	}
}

func TestCompress_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Compress(ctx, createGradientImage(100, 100), largeOriginal(), CompressOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
