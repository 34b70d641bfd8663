package imaging

import (
	"image"
	"image/draw"
	"math"
)

// ToGray converts img to an 8-bit grayscale image using ITU-R BT.601 luma
// weights. The returned image has its origin at (0,0).
//
// A *image.Gray with a zero origin is returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// MeanVariance returns the mean and population variance of the gray levels.
func MeanVariance(g *image.Gray) (mean, variance float64) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	n := float64(w * h)
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}
	mean = sum / n
	variance = sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// LaplacianVariance returns the variance of the 3x3 Laplacian response.
//
// Uses the 4-neighbour kernel:
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// Sharp images have strong second derivatives at edges and therefore a high
// variance; blurred images score low. Borders replicate edge pixels.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(g.Pix[clamp(y, 0, h-1)*g.Stride+clamp(x, 0, w-1)])
	}

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y-1) + at(x-1, y) + at(x+1, y) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	return math.Max(0, sumSq/n-mean*mean)
}
