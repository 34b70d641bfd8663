package imaging

import (
	"fmt"
	"image"
	"math"
)

const (
	ssimWindow = 8
	ssimStep   = 4
	ssimC1     = (0.01 * 255) * (0.01 * 255)
	ssimC2     = (0.03 * 255) * (0.03 * 255)
)

// SSIM returns the mean structural similarity of two equally sized grayscale
// images, clamped to [0, 1]. Both images must have a zero origin (see ToGray).
//
// Statistics are computed over 8×8 windows placed every 4 pixels. Images
// smaller than one window are compared as a single window.
func SSIM(a, b *image.Gray) (float64, error) {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() {
		return 0, fmt.Errorf("ssim: size mismatch %dx%d vs %dx%d", w, h, b.Rect.Dx(), b.Rect.Dy())
	}
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("ssim: empty image")
	}

	winW, winH := minInt(ssimWindow, w), minInt(ssimWindow, h)

	var total float64
	n := 0
	for y := 0; y+winH <= h; y += ssimStep {
		for x := 0; x+winW <= w; x += ssimStep {
			total += windowSSIM(a, b, x, y, winW, winH)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("ssim: no windows")
	}
	return math.Max(0, math.Min(1, total/float64(n))), nil
}

func windowSSIM(a, b *image.Gray, x0, y0, w, h int) float64 {
	var sumA, sumB, sumAA, sumBB, sumAB float64
	for y := y0; y < y0+h; y++ {
		ra := a.Pix[y*a.Stride+x0 : y*a.Stride+x0+w]
		rb := b.Pix[y*b.Stride+x0 : y*b.Stride+x0+w]
		for i := range ra {
			va, vb := float64(ra[i]), float64(rb[i])
			sumA += va
			sumB += vb
			sumAA += va * va
			sumBB += vb * vb
			sumAB += va * vb
		}
	}
	n := float64(w * h)
	muA, muB := sumA/n, sumB/n
	varA := sumAA/n - muA*muA
	varB := sumBB/n - muB*muB
	cov := sumAB/n - muA*muB

	return ((2*muA*muB + ssimC1) * (2*cov + ssimC2)) /
		((muA*muA + muB*muB + ssimC1) * (varA + varB + ssimC2))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
