package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestToGray(t *testing.T) {
	img := createPatternImage(40, 40)
	sub := img.SubImage(image.Rect(20, 20, 40, 40))

	g := ToGray(sub)
	if g.Rect.Min != (image.Point{}) {
		t.Errorf("origin = %v, want (0,0)", g.Rect.Min)
	}
	if g.Rect.Dx() != 20 || g.Rect.Dy() != 20 {
		t.Errorf("size = %v", g.Rect.Size())
	}
	// Bottom-right quadrant is white.
	if g.GrayAt(5, 5).Y != 255 {
		t.Errorf("pixel = %d, want 255", g.GrayAt(5, 5).Y)
	}

	if ToGray(g) != g {
		t.Error("zero-origin gray input should be returned as-is")
	}
}

func TestMeanVariance(t *testing.T) {
	tests := []struct {
		name             string
		img              image.Image
		wantMean, wantVar float64
	}{
		{"white", createInMemoryImage(10, 10, color.White), 255, 0},
		{"black", createInMemoryImage(10, 10, color.Black), 0, 0},
		{"half", createEdgeTestImage(20, 20), 191.25, 12192.1875},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, variance := MeanVariance(ToGray(tt.img))
			if absFloat(mean-tt.wantMean) > 0.01 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if absFloat(variance-tt.wantVar) > 0.01 {
				t.Errorf("variance = %v, want %v", variance, tt.wantVar)
			}
		})
	}
}

func TestLaplacianVariance(t *testing.T) {
	flat := LaplacianVariance(ToGray(createInMemoryImage(30, 30, color.White)))
	if flat != 0 {
		t.Errorf("flat image: got %v, want 0", flat)
	}

	sharp := LaplacianVariance(ToGray(createDocumentImage(200, 150)))
	noisy := LaplacianVariance(ToGray(createNoiseImage(200, 150, 3)))
	if sharp <= 100 {
		t.Errorf("document image should be sharp, got %v", sharp)
	}
	if noisy <= sharp {
		t.Errorf("noise (%v) should exceed document (%v)", noisy, sharp)
	}
}
