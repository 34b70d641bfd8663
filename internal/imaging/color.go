package imaging

import (
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// colorSampleGrid bounds the number of pixels sampled per axis by the color
// statistics below.
const colorSampleGrid = 64

// MonochromeChroma is the Colorfulness below which a page is treated as
// black-and-white.
const MonochromeChroma = 0.05

// ToneFrequency is a quantized color and its share of the sampled pixels.
type ToneFrequency struct {
	Hex        string  `json:"hex"`        // Hex color "#RRGGBB" (quantized)
	Percentage float64 `json:"percentage"` // Share of sampled pixels (0-100)
}

// Colorfulness returns the mean CIE L*C*h° chroma of img.
//
// Pixels are sampled on a grid of at most 64×64 points. Gray, black and white
// pixels have a chroma of zero; saturated primaries are around 1. Scanned
// text documents typically score below 0.05, photos of colored forms and
// IDs well above.
func Colorfulness(img image.Image) float64 {
	var sum float64
	n := 0
	forEachSample(img, func(c colorful.Color) {
		_, chroma, _ := c.Hcl()
		sum += chroma
		n++
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// IsMonochrome reports whether img carries no meaningful color.
func IsMonochrome(img image.Image) bool {
	return Colorfulness(img) < MonochromeChroma
}

// DominantTones returns the count most frequent colors of img.
//
// Colors are quantized in steps of 16 per channel so that paper texture and
// JPEG noise group together. Results are sorted by frequency, most common
// first; ties break on the hex value.
func DominantTones(img image.Image, count int) []ToneFrequency {
	counts := make(map[string]int)
	total := 0
	forEachSample(img, func(c colorful.Color) {
		r, g, b := c.RGB255()
		q := colorful.Color{
			R: float64(r/16*16) / 255,
			G: float64(g/16*16) / 255,
			B: float64(b/16*16) / 255,
		}
		counts[q.Hex()]++
		total++
	})
	if total == 0 {
		return nil
	}

	tones := make([]ToneFrequency, 0, len(counts))
	for hex, cnt := range counts {
		tones = append(tones, ToneFrequency{
			Hex:        hex,
			Percentage: float64(cnt) / float64(total) * 100,
		})
	}
	sort.Slice(tones, func(i, j int) bool {
		if tones[i].Percentage != tones[j].Percentage {
			return tones[i].Percentage > tones[j].Percentage
		}
		return tones[i].Hex < tones[j].Hex
	})
	if count > 0 && len(tones) > count {
		tones = tones[:count]
	}
	return tones
}

// PaperTone returns the hex color of the most common tone, which on a
// document photo is the paper. Empty images yield "".
func PaperTone(img image.Image) string {
	tones := DominantTones(img, 1)
	if len(tones) == 0 {
		return ""
	}
	return tones[0].Hex
}

// forEachSample calls fn for up to colorSampleGrid² evenly spaced opaque
// pixels of img.
func forEachSample(img image.Image, fn func(colorful.Color)) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	stepX := maxInt(1, w/colorSampleGrid)
	stepY := maxInt(1, h/colorSampleGrid)
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			fn(c)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
