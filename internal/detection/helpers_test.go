package detection

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// drawLine rasterizes a 1-pixel segment into an edge map (Bresenham).
func drawLine(g *image.Gray, a, b Point) {
	dx := int(math.Abs(float64(b.X - a.X)))
	dy := -int(math.Abs(float64(b.Y - a.Y)))
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		if image.Pt(x, y).In(g.Rect) {
			g.SetGray(x, y, color.Gray{Y: 255})
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func drawPolygon(g *image.Gray, pts ...Point) {
	for i := range pts {
		drawLine(g, pts[i], pts[(i+1)%len(pts)])
	}
}

func near(a, b Point, tol int) bool {
	return math.Abs(float64(a.X-b.X)) <= float64(tol) && math.Abs(float64(a.Y-b.Y)) <= float64(tol)
}
