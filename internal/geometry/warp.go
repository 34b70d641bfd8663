package geometry

import (
	"image"
	"image/draw"
	"math"

	"github.com/sam02425/Document-Portal/internal/detection"
)

// WarpSize returns the output size for flattening quad: the longer of each
// pair of opposite edges.
func WarpSize(q detection.Quad) (width, height int) {
	d := func(a, b detection.Point) float64 {
		return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
	}
	w := math.Max(d(q.BottomRight, q.BottomLeft), d(q.TopRight, q.TopLeft))
	h := math.Max(d(q.TopRight, q.BottomRight), d(q.TopLeft, q.BottomLeft))
	return int(math.Round(w)), int(math.Round(h))
}

// WarpPerspective maps the quad region of img onto an upright width×height
// rectangle using bilinear inverse mapping.
func WarpPerspective(img image.Image, q detection.Quad, width, height int) (*image.RGBA, error) {
	if width < 1 || height < 1 {
		return nil, ErrDegenerate
	}
	corners := q.Points()
	var src [4]Vec
	for i, p := range corners {
		src[i] = Vec{float64(p.X), float64(p.Y)}
	}
	dst := [4]Vec{
		{0, 0},
		{float64(width - 1), 0},
		{float64(width - 1), float64(height - 1)},
		{0, float64(height - 1)},
	}

	// Output pixel -> source pixel.
	m, err := Homography(dst, src)
	if err != nil {
		return nil, err
	}

	in := rgba(img)
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := m.Apply(Vec{float64(x), float64(y)})
			sampleBilinear(in, p.X, p.Y, out.Pix[out.PixOffset(x, y):])
		}
	}
	return out, nil
}

// sampleBilinear writes the interpolated RGBA value at (fx, fy) into px.
// Coordinates outside the image are clamped to the border.
func sampleBilinear(img *image.RGBA, fx, fy float64, px []uint8) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	fx = math.Max(0, math.Min(float64(w-1), fx))
	fy = math.Max(0, math.Min(float64(h-1), fy))

	x0, y0 := int(fx), int(fy)
	x1, y1 := minInt(x0+1, w-1), minInt(y0+1, h-1)
	ax, ay := fx-float64(x0), fy-float64(y0)

	i00 := y0*img.Stride + x0*4
	i10 := y0*img.Stride + x1*4
	i01 := y1*img.Stride + x0*4
	i11 := y1*img.Stride + x1*4
	for c := 0; c < 4; c++ {
		top := float64(img.Pix[i00+c])*(1-ax) + float64(img.Pix[i10+c])*ax
		bottom := float64(img.Pix[i01+c])*(1-ax) + float64(img.Pix[i11+c])*ax
		px[c] = uint8(math.Round(top*(1-ay) + bottom*ay))
	}
}

func rgba(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Rect.Min == (image.Point{}) {
		return r
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
