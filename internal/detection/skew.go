package detection

import (
	"image"
	"math"
	"sort"
)

// houghBins is the angular resolution of the accumulator (0.5 degree steps
// over 180 degrees).
const houghBins = 360

// SkewEstimate is the dominant line orientation of an edge map.
type SkewEstimate struct {
	// Angle in degrees, normalized to [-45, 45]. Positive values mean lines
	// descend to the right (clockwise tilt in image coordinates).
	Angle float64 `json:"angle"`

	// Lines is the number of Hough peaks that contributed.
	Lines int `json:"lines"`
}

// EstimateSkew finds the dominant line orientation using a Hough transform.
//
// Edge pixels vote in (rho, theta) space; the strongest local maxima (at most
// maxLines) are converted to line angles, folded into [-45, 45] so that
// vertical and horizontal strokes agree, and the median is returned. An edge
// map without qualifying lines yields an angle of 0.
func EstimateSkew(edges *image.Gray, maxLines int) SkewEstimate {
	width, height := edges.Rect.Dx(), edges.Rect.Dy()
	if width == 0 || height == 0 {
		return SkewEstimate{}
	}
	if maxLines <= 0 {
		maxLines = 50
	}

	cosT := make([]float64, houghBins)
	sinT := make([]float64, houghBins)
	for t := 0; t < houghBins; t++ {
		a := float64(t) * math.Pi / houghBins
		cosT[t] = math.Cos(a)
		sinT[t] = math.Sin(a)
	}

	maxDist := int(math.Sqrt(float64(width*width+height*height))) + 1
	accumulator := make([][]int, maxDist*2)
	for i := range accumulator {
		accumulator[i] = make([]int, houghBins)
	}

	for y := 0; y < height; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			for t := 0; t < houghBins; t++ {
				rho := float64(x)*cosT[t] + float64(y)*sinT[t]
				rhoIdx := int(math.Round(rho)) + maxDist
				if rhoIdx >= 0 && rhoIdx < maxDist*2 {
					accumulator[rhoIdx][t]++
				}
			}
		}
	}

	type peak struct {
		theta int
		votes int
	}
	peaks := make([]peak, 0)
	// A line must span at least a fifth of the shorter side.
	threshold := min(width, height) / 5
	if threshold < 10 {
		threshold = 10
	}

	for rhoIdx := 0; rhoIdx < maxDist*2; rhoIdx++ {
		for theta := 0; theta < houghBins; theta++ {
			v := accumulator[rhoIdx][theta]
			if v < threshold {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := rhoIdx + dr
					nt := (theta + dt + houghBins) % houghBins
					if nr >= 0 && nr < maxDist*2 && accumulator[nr][nt] > v {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{theta: theta, votes: v})
			}
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})
	if len(peaks) > maxLines {
		peaks = peaks[:maxLines]
	}
	if len(peaks) == 0 {
		return SkewEstimate{}
	}

	angles := make([]float64, len(peaks))
	for i, p := range peaks {
		// theta is the normal direction; the line runs perpendicular to it.
		angles[i] = normalizeAngle(float64(p.theta)*180/houghBins - 90)
	}
	sort.Float64s(angles)
	mid := len(angles) / 2
	median := angles[mid]
	if len(angles)%2 == 0 {
		median = (angles[mid-1] + angles[mid]) / 2
	}

	return SkewEstimate{
		Angle: math.Round(median*100) / 100,
		Lines: len(angles),
	}
}

// normalizeAngle folds a line angle into [-45, 45].
func normalizeAngle(a float64) float64 {
	for a < -45 {
		a += 90
	}
	for a > 45 {
		a -= 90
	}
	return a
}
