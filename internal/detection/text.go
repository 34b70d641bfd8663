package detection

import (
	"image"
	"math"
	"sort"
)

// TextRegion is a block of the page that looks like printed lines.
type TextRegion struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
	Area       int     `json:"area"`
}

// TextRegionsResult lists the merged text blocks of a page.
type TextRegionsResult struct {
	Regions []TextRegion `json:"regions"`
	Count   int          `json:"count"`

	// Coverage is the fraction of the page covered by the merged regions.
	Coverage float64 `json:"coverage"`
}

// textWindows are the window sizes, roughly one printed line tall at the
// resolutions the OCR layer feeds in.
var textWindows = [...]struct{ w, h int }{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

const (
	textEdgeThreshold = 30
	textMinDensity    = 0.05
	textMaxDensity    = 0.4
	textIdealDensity  = 0.2
)

// DetectTextRegions finds blocks with a medium edge density and mostly
// horizontal structure.
//
// The OCR layer uses Coverage to pick a page segmentation mode when the
// document type is unknown: sparse pages (IDs, receipts with large margins)
// read better in sparse mode, dense pages as a uniform block.
func DetectTextRegions(g *image.Gray, minConfidence float64) *TextRegionsResult {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	em := newEdgeMap(g)

	var candidates []TextRegion
	for _, win := range textWindows {
		area := win.w * win.h
		for y := 0; y+win.h <= h; y += win.h / 2 {
			for x := 0; x+win.w <= w; x += win.w / 2 {
				density := float64(em.count(x, y, win.w, win.h)) / float64(area)
				if density < textMinDensity || density > textMaxDensity {
					continue
				}
				conf := em.horizontality(x, y, win.w, win.h) *
					(1 - math.Abs(density-textIdealDensity)/textIdealDensity)
				if conf < minConfidence {
					continue
				}
				candidates = append(candidates, TextRegion{
					Bounds:     Bounds{X1: x, Y1: y, X2: x + win.w, Y2: y + win.h},
					Confidence: math.Round(conf*1000) / 1000,
					Area:       area,
				})
			}
		}
	}

	regions := mergeOverlappingRegions(candidates)
	sort.Slice(regions, func(i, j int) bool { return regions[i].Confidence > regions[j].Confidence })

	res := &TextRegionsResult{Regions: regions, Count: len(regions)}
	if w > 0 && h > 0 {
		covered := 0
		for _, r := range regions {
			covered += r.Area
		}
		res.Coverage = math.Min(1, float64(covered)/float64(w*h))
	}
	return res
}

// edgeMap is a binary gradient map with a summed-area table for constant
// time window counts.
type edgeMap struct {
	w, h  int
	edges []bool
	sum   []int // (w+1)*(h+1), sum[(y)*(w+1)+x] counts edges above and left of (x,y)
}

// newEdgeMap marks pixels whose gray level differs from the right or lower
// neighbour by more than textEdgeThreshold. Border pixels are never edges.
func newEdgeMap(g *image.Gray) *edgeMap {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	m := &edgeMap{w: w, h: h, edges: make([]bool, w*h), sum: make([]int, (w+1)*(h+1))}

	for y := 1; y < h-1; y++ {
		row := g.Pix[y*g.Stride:]
		below := g.Pix[(y+1)*g.Stride:]
		for x := 1; x < w-1; x++ {
			c := int(row[x])
			if absInt(c-int(row[x+1])) > textEdgeThreshold || absInt(c-int(below[x])) > textEdgeThreshold {
				m.edges[y*w+x] = true
			}
		}
	}

	stride := w + 1
	for y := 0; y < h; y++ {
		run := 0
		for x := 0; x < w; x++ {
			if m.edges[y*w+x] {
				run++
			}
			m.sum[(y+1)*stride+x+1] = m.sum[y*stride+x+1] + run
		}
	}
	return m
}

func (m *edgeMap) at(x, y int) bool { return m.edges[y*m.w+x] }

func (m *edgeMap) count(x, y, w, h int) int {
	s := m.w + 1
	return m.sum[(y+h)*s+x+w] - m.sum[y*s+x+w] - m.sum[(y+h)*s+x] + m.sum[y*s+x]
}

// horizontality is the share of edge runs that are horizontal. Printed lines
// produce more horizontal runs than vertical ones.
func (m *edgeMap) horizontality(x0, y0, w, h int) float64 {
	var horiz, vert int
	for y := y0; y < y0+h; y++ {
		prev := false
		for x := x0; x < x0+w; x++ {
			e := m.at(x, y)
			if e && !prev {
				horiz++
			}
			prev = e
		}
	}
	for x := x0; x < x0+w; x++ {
		prev := false
		for y := y0; y < y0+h; y++ {
			e := m.at(x, y)
			if e && !prev {
				vert++
			}
			prev = e
		}
	}
	if horiz+vert == 0 {
		return 0
	}
	return float64(horiz) / float64(horiz+vert)
}

// mergeOverlappingRegions folds each region into the first earlier one it
// overlaps, keeping the higher confidence.
func mergeOverlappingRegions(regions []TextRegion) []TextRegion {
	var out []TextRegion
next:
	for _, r := range regions {
		for i := range out {
			if !out[i].Bounds.overlaps(r.Bounds) {
				continue
			}
			out[i].Bounds = out[i].Bounds.union(r.Bounds)
			out[i].Confidence = math.Max(out[i].Confidence, r.Confidence)
			out[i].Area = out[i].Bounds.area()
			continue next
		}
		out = append(out, r)
	}
	return out
}

func (b Bounds) overlaps(o Bounds) bool {
	return b.X1 < o.X2 && b.X2 > o.X1 && b.Y1 < o.Y2 && b.Y2 > o.Y1
}

func (b Bounds) union(o Bounds) Bounds {
	return Bounds{
		X1: min(b.X1, o.X1),
		Y1: min(b.Y1, o.Y1),
		X2: max(b.X2, o.X2),
		Y2: max(b.Y2, o.Y2),
	}
}

func (b Bounds) area() int { return (b.X2 - b.X1) * (b.Y2 - b.Y1) }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
