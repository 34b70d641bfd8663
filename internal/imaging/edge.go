package imaging

import (
	"image"
	"math"
)

// plane is a row-major float image used by the edge stages.
type plane struct {
	w, h int
	v    []float64
}

func newPlane(w, h int) *plane {
	return &plane{w: w, h: h, v: make([]float64, w*h)}
}

// planeFromGray copies g into a plane, multiplying every level by scale.
func planeFromGray(g *image.Gray, scale float64) *plane {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	p := newPlane(w, h)
	for y := 0; y < h; y++ {
		for x, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			p.v[y*w+x] = float64(v) * scale
		}
	}
	return p
}

func (p *plane) at(x, y int) float64 { return p.v[y*p.w+x] }

// clampedAt replicates border values for coordinates outside the plane.
func (p *plane) clampedAt(x, y int) float64 {
	return p.v[clamp(y, 0, p.h-1)*p.w+clamp(x, 0, p.w-1)]
}

// gaussianKernel is the 5x5 kernel with sigma about 1.4; it sums to 273.
var gaussianKernel = [5][5]float64{
	{1, 4, 7, 4, 1},
	{4, 16, 26, 16, 4},
	{7, 26, 41, 26, 7},
	{4, 16, 26, 16, 4},
	{1, 4, 7, 4, 1},
}

const gaussianKernelSum = 273.0

// gaussianBlur convolves p with gaussianKernel. Borders are replicated.
func gaussianBlur(p *plane) *plane {
	out := newPlane(p.w, p.h)
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			var sum float64
			for ky := 0; ky < 5; ky++ {
				for kx := 0; kx < 5; kx++ {
					sum += p.clampedAt(x+kx-2, y+ky-2) * gaussianKernel[ky][kx]
				}
			}
			out.v[y*p.w+x] = sum / gaussianKernelSum
		}
	}
	return out
}

// GaussianBlur5 applies the 5x5 Gaussian kernel used by Canny to a grayscale image.
func GaussianBlur5(g *image.Gray) *image.Gray {
	blurred := gaussianBlur(planeFromGray(g, 1))
	out := image.NewGray(image.Rect(0, 0, blurred.w, blurred.h))
	for i, v := range blurred.v {
		out.Pix[i] = uint8(math.Round(math.Min(255, math.Max(0, v))))
	}
	return out
}

// Gradient orientation sectors used by non-maximum suppression.
const (
	sectorHorizontal = iota // gradient along x, compare left and right
	sectorRising            // compare upper right and lower left
	sectorVertical          // compare above and below
	sectorFalling           // compare upper left and lower right
)

// tan(22.5°) splits the orientation circle into the four sectors.
var tanEighthPi = math.Tan(math.Pi / 8)

func gradientSector(gx, gy float64) int {
	ax, ay := math.Abs(gx), math.Abs(gy)
	switch {
	case ay <= tanEighthPi*ax:
		return sectorHorizontal
	case ax <= tanEighthPi*ay:
		return sectorVertical
	case gx*gy > 0:
		return sectorRising
	default:
		return sectorFalling
	}
}

// Canny performs Canny-style edge detection on a grayscale image.
//
// thresholdLow and thresholdHigh are hysteresis thresholds on the 0..255
// scale. The result has the size of g with edges at 255 and everything else
// at 0.
//
// # Algorithm
//
//  1. 5x5 Gaussian blur.
//  2. Sobel gradients. magnitude = sqrt(Gx² + Gy²), orientation quantized
//     to four sectors.
//  3. Non-maximum suppression along the gradient thins edges to one pixel.
//  4. Hysteresis: magnitudes at or above thresholdHigh are kept; those at or
//     above thresholdLow are kept when a strong pixel touches them.
//
// The document scanner uses (75, 200); quality assessment uses (50, 150).
func Canny(g *image.Gray, thresholdLow, thresholdHigh int) *image.Gray {
	blurred := gaussianBlur(planeFromGray(g, 1.0/255))
	w, h := blurred.w, blurred.h

	mag := newPlane(w, h)
	sector := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, t, tr := blurred.clampedAt(x-1, y-1), blurred.clampedAt(x, y-1), blurred.clampedAt(x+1, y-1)
			l, r := blurred.clampedAt(x-1, y), blurred.clampedAt(x+1, y)
			bl, b, br := blurred.clampedAt(x-1, y+1), blurred.clampedAt(x, y+1), blurred.clampedAt(x+1, y+1)

			gx := (tr + 2*r + br) - (tl + 2*l + bl)
			gy := (bl + 2*b + br) - (tl + 2*t + tr)
			mag.v[y*w+x] = math.Hypot(gx, gy)
			sector[y*w+x] = uint8(gradientSector(gx, gy))
		}
	}

	thin := newPlane(w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag.at(x, y)
			var n1, n2 float64
			switch sector[y*w+x] {
			case sectorHorizontal:
				n1, n2 = mag.at(x-1, y), mag.at(x+1, y)
			case sectorRising:
				n1, n2 = mag.at(x+1, y-1), mag.at(x-1, y+1)
			case sectorVertical:
				n1, n2 = mag.at(x, y-1), mag.at(x, y+1)
			default:
				n1, n2 = mag.at(x-1, y-1), mag.at(x+1, y+1)
			}
			if m >= n1 && m >= n2 {
				thin.v[y*w+x] = m
			}
		}
	}

	low := float64(thresholdLow) / 255
	high := float64(thresholdHigh) / 255
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := thin.at(x, y)
			if v >= high || (v >= low && touchesStrong(thin, x, y, high)) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// touchesStrong reports whether any 8-neighbour of (x, y) reaches high.
func touchesStrong(p *plane, x, y int, high float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if p.clampedAt(x+dx, y+dy) >= high {
				return true
			}
		}
	}
	return false
}

// EdgeDensity returns the fraction of edge (non-zero) pixels in an edge map.
func EdgeDensity(edges *image.Gray) float64 {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	count := 0
	for y := 0; y < h; y++ {
		for _, v := range edges.Pix[y*edges.Stride : y*edges.Stride+w] {
			if v != 0 {
				count++
			}
		}
	}
	return float64(count) / float64(w*h)
}

// clamp constrains val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
