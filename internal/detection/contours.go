package detection

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Quad is a document outline with corners in clockwise order starting at the
// top-left corner.
type Quad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Points returns the corners as tl, tr, br, bl.
func (q Quad) Points() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Area returns the polygon area of the quad in square pixels.
func (q Quad) Area() float64 {
	p := q.Points()
	return polygonArea(p[:])
}

// QuadOptions tune FindDocumentQuad.
type QuadOptions struct {
	// Candidates is how many of the largest contours are examined. Default 5.
	Candidates int

	// EpsilonRatio scales the contour perimeter into the polygon
	// approximation tolerance. Default 0.02.
	EpsilonRatio float64

	// MinAreaRatio is the minimum quad area as a fraction of the image area.
	// Default 0.2.
	MinAreaRatio float64

	// JoinRadius is the radius of the square dilation used to group edge
	// pixels into contours. It rejoins outline segments that edge thinning
	// separates at the corners; the contours themselves keep the undilated
	// pixels. Default 2; negative disables it.
	JoinRadius int
}

func (o QuadOptions) withDefaults() QuadOptions {
	if o.Candidates <= 0 {
		o.Candidates = 5
	}
	if o.EpsilonRatio <= 0 {
		o.EpsilonRatio = 0.02
	}
	if o.MinAreaRatio <= 0 {
		o.MinAreaRatio = 0.2
	}
	if o.JoinRadius == 0 {
		o.JoinRadius = 2
	}
	return o
}

// FindDocumentQuad searches a binary edge map for the outline of a document.
//
// Parameters:
//   - edges: Edge map where non-zero pixels are edges (see imaging.Canny).
//   - opts: Search tuning; zero values select defaults.
//
// Returns the ordered quad and true when a four-corner polygon covering at
// least MinAreaRatio of the image is found, otherwise false.
//
// # Algorithm
//
//  1. Joining: the edge map is dilated by JoinRadius
//  2. Contour Finding: flood-fill over the dilated map groups edge pixels
//  3. Hull: each contour is reduced to its convex hull
//  4. Ranking: hulls are sorted by area and the largest Candidates kept
//  5. Approximation: Douglas-Peucker with epsilon = EpsilonRatio × perimeter
//  6. Selection: the first approximation with exactly 4 vertices and enough
//     area wins
func FindDocumentQuad(edges *image.Gray, opts QuadOptions) (Quad, bool) {
	opts = opts.withDefaults()
	width, height := edges.Rect.Dx(), edges.Rect.Dy()
	if width < 3 || height < 3 {
		return Quad{}, false
	}

	mask := edgeMask(edges)
	contours := findContours(joinEdges(edges, mask, opts.JoinRadius), mask, width, height)

	hulls := make([][]Point, 0, len(contours))
	for _, c := range contours {
		h := ConvexHull(c)
		if len(h) >= 4 {
			hulls = append(hulls, h)
		}
	}
	sort.SliceStable(hulls, func(i, j int) bool {
		return polygonArea(hulls[i]) > polygonArea(hulls[j])
	})
	if len(hulls) > opts.Candidates {
		hulls = hulls[:opts.Candidates]
	}

	minArea := opts.MinAreaRatio * float64(width*height)
	for _, h := range hulls {
		approx := ApproxPolygon(h, opts.EpsilonRatio*perimeter(h))
		if len(approx) != 4 {
			continue
		}
		q := OrderCorners([4]Point{approx[0], approx[1], approx[2], approx[3]})
		if q.Area() >= minArea {
			return q, true
		}
	}
	return Quad{}, false
}

// OrderCorners arranges four points as top-left, top-right, bottom-right,
// bottom-left.
//
// The top-left corner has the smallest x+y and the bottom-right the largest;
// the top-right has the smallest y-x and the bottom-left the largest.
func OrderCorners(pts [4]Point) Quad {
	var q Quad
	minSum, maxSum := math.MaxInt, math.MinInt
	minDiff, maxDiff := math.MaxInt, math.MinInt
	for _, p := range pts {
		s := p.X + p.Y
		d := p.Y - p.X
		if s < minSum {
			minSum = s
			q.TopLeft = p
		}
		if s > maxSum {
			maxSum = s
			q.BottomRight = p
		}
		if d < minDiff {
			minDiff = d
			q.TopRight = p
		}
		if d > maxDiff {
			maxDiff = d
			q.BottomLeft = p
		}
	}
	return q
}

// ConvexHull returns the convex hull of points in counter-clockwise order
// (Andrew's monotone chain). Collinear points are dropped.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}
	pts := append([]Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// ApproxPolygon simplifies a closed polygon with the Douglas-Peucker
// algorithm. Vertices closer than epsilon to the simplified outline are
// removed.
func ApproxPolygon(poly []Point, epsilon float64) []Point {
	n := len(poly)
	if n < 3 {
		return append([]Point(nil), poly...)
	}

	// Split the ring between its two mutually farthest vertices. Both are
	// extreme points of the outline, so neither is lost to simplification.
	from, to := diameter(poly)
	first := append([]Point(nil), poly[from:to+1]...)
	second := append(append([]Point(nil), poly[to:]...), poly[:from+1]...)

	a := douglasPeucker(first, epsilon)
	b := douglasPeucker(second, epsilon)

	// Both chains share their endpoints.
	out := make([]Point, 0, len(a)+len(b)-2)
	out = append(out, a[:len(a)-1]...)
	return append(out, b[:len(b)-1]...)
}

// diameter returns the indexes i < j of the farthest pair of vertices.
func diameter(poly []Point) (int, int) {
	bi, bj, best := 0, 1, -1.0
	for i := range poly {
		for j := i + 1; j < len(poly); j++ {
			if d := dist(poly[i], poly[j]); d > best {
				bi, bj, best = i, j, d
			}
		}
	}
	return bi, bj
}

func douglasPeucker(pts []Point, epsilon float64) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}
	start, end := pts[0], pts[len(pts)-1]
	idx, maxD := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegmentDistance(pts[i], start, end); d > maxD {
			idx, maxD = i, d
		}
	}
	if maxD <= epsilon {
		return []Point{start, end}
	}
	left := douglasPeucker(pts[:idx+1], epsilon)
	right := douglasPeucker(pts[idx:], epsilon)
	out := make([]Point, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	return append(out, right...)
}

func pointSegmentDistance(p, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	px, py := float64(a.X)+t*dx, float64(a.Y)+t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

func dist(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func perimeter(poly []Point) float64 {
	var p float64
	for i := range poly {
		p += dist(poly[i], poly[(i+1)%len(poly)])
	}
	return p
}

// polygonArea returns the absolute shoelace area.
func polygonArea(poly []Point) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += float64(poly[i].X*poly[j].Y - poly[j].X*poly[i].Y)
	}
	return math.Abs(a) / 2
}

// edgeMask converts an edge image to boolean form.
func edgeMask(edges *image.Gray) [][]bool {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	mask := make([][]bool, h)
	for y := 0; y < h; y++ {
		mask[y] = make([]bool, w)
		for x, v := range edges.Pix[y*edges.Stride : y*edges.Stride+w] {
			mask[y][x] = v != 0
		}
	}
	return mask
}

// joinEdges dilates the edge map with a (2r+1)² square. r <= 0 returns mask
// unchanged.
func joinEdges(edges *image.Gray, mask [][]bool, r int) [][]bool {
	if r <= 0 {
		return mask
	}
	dilated := effect.Dilate(edges, float64(r))
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	joined := make([][]bool, h)
	for y := 0; y < h; y++ {
		joined[y] = make([]bool, w)
		row := dilated.Pix[y*dilated.Stride:]
		for x := 0; x < w; x++ {
			joined[y][x] = row[x*4] != 0
		}
	}
	return joined
}

// findContours groups edge pixels into contours.
//
// Components are found by 8-connected flood fill over connect; each contour
// holds only the pixels of its component that are set in edges. Contours
// with fewer than 10 edge pixels are discarded as noise.
func findContours(connect, edges [][]bool, width, height int) [][]Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	var contours [][]Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !connect[y][x] || visited[y][x] {
				continue
			}
			var contour []Point
			floodFill(connect, visited, x, y, width, height, func(p Point) {
				if edges[p.Y][p.X] {
					contour = append(contour, p)
				}
			})
			if len(contour) >= 10 {
				contours = append(contours, contour)
			}
		}
	}
	return contours
}

// floodFill visits every pixel 8-connected to (startX, startY) within mask,
// using an explicit stack.
func floodFill(mask, visited [][]bool, startX, startY, width, height int, visit func(Point)) {
	stack := []Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true
		visit(p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
				}
			}
		}
	}
}
