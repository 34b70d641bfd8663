package imaging

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/sam02425/Document-Portal/internal/detection"
)

// Thresholds decide which enhancement stages an image needs.
type Thresholds struct {
	// BrightnessVarMin is the luma variance below which lighting is treated
	// as flat or shadowed.
	BrightnessVarMin float64 `json:"brightness_var_min"`

	// BlurVarMin is the Laplacian variance below which the image is blurry.
	BlurVarMin float64 `json:"blur_var_min"`

	// ContrastMin is the minimum luma standard deviation.
	ContrastMin float64 `json:"contrast_min"`

	// RotationMaxDeg is the largest skew left uncorrected.
	RotationMaxDeg float64 `json:"rotation_max_deg"`

	// EdgeDensityMin is the minimum fraction of Canny edge pixels.
	EdgeDensityMin float64 `json:"edge_density_min"`

	// SampleHeight bounds the height of the working copy. Default 500.
	SampleHeight int `json:"sample_height"`
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BrightnessVarMin: 1000,
		BlurVarMin:       100,
		ContrastMin:      50,
		RotationMaxDeg:   2.0,
		EdgeDensityMin:   0.05,
		SampleHeight:     500,
	}
}

// QualityProfile describes an image before enhancement.
type QualityProfile struct {
	NeedsShadowRemoval bool `json:"needs_shadow_removal"`
	NeedsRotationFix   bool `json:"needs_rotation_fix"`
	NeedsSharpening    bool `json:"needs_sharpening"`

	// Score is the overall quality in [0, 100].
	Score float64 `json:"score"`

	BrightnessVariance float64 `json:"brightness_variance"`
	LaplacianVariance  float64 `json:"laplacian_variance"`
	Contrast           float64 `json:"contrast"`
	SkewAngle          float64 `json:"skew_angle"`
	EdgeDensity        float64 `json:"edge_density"`

	// Colorfulness is the mean chroma of the page (see Colorfulness).
	Colorfulness float64 `json:"colorfulness"`

	// PaperTone is the most common quantized color, normally the paper.
	PaperTone string `json:"paper_tone"`

	IsHighQuality bool     `json:"is_high_quality"`
	Issues        []string `json:"issues"`
}

// Issue labels reported in QualityProfile.Issues.
const (
	IssueUnevenLighting = "uneven_lighting"
	IssueBlurry         = "blurry"
	IssueLowContrast    = "low_contrast"
	IssueSkewed         = "skewed"
	IssueLowEdgeDensity = "low_edge_density"
)

// Assessor measures image quality against a fixed set of thresholds.
type Assessor struct {
	t Thresholds
}

// NewAssessor creates an assessor. Zero threshold fields take their defaults.
func NewAssessor(t Thresholds) *Assessor {
	d := DefaultThresholds()
	if t.BrightnessVarMin <= 0 {
		t.BrightnessVarMin = d.BrightnessVarMin
	}
	if t.BlurVarMin <= 0 {
		t.BlurVarMin = d.BlurVarMin
	}
	if t.ContrastMin <= 0 {
		t.ContrastMin = d.ContrastMin
	}
	if t.RotationMaxDeg <= 0 {
		t.RotationMaxDeg = d.RotationMaxDeg
	}
	if t.EdgeDensityMin <= 0 {
		t.EdgeDensityMin = d.EdgeDensityMin
	}
	if t.SampleHeight <= 0 {
		t.SampleHeight = d.SampleHeight
	}
	return &Assessor{t: t}
}

// Thresholds returns the effective thresholds.
func (a *Assessor) Thresholds() Thresholds {
	return a.t
}

// Assess computes a QualityProfile with the default thresholds.
func Assess(img image.Image) QualityProfile {
	return NewAssessor(Thresholds{}).Assess(img)
}

// Assess measures img and decides which enhancements it needs.
//
// All metrics are computed on a grayscale sample no taller than
// SampleHeight pixels:
//
//   - Brightness variance: variance of luma. Flat or shadowed lighting
//     scores low.
//   - Sharpness: variance of the Laplacian.
//   - Contrast: standard deviation of luma.
//   - Skew: median Hough line angle (see detection.EstimateSkew).
//   - Edge density: fraction of Canny (50, 150) edge pixels.
//
// # Score
//
// Each metric contributes a capped share of 100 points:
//
//	brightness  min(var/2000 × 20, 20)
//	sharpness   min(lap/500 × 30, 30)
//	contrast    min(std/80 × 20, 20)
//	rotation    max(0, 15 − |angle|/5 × 15)
//	edges       min(density/0.15 × 15, 15)
func (a *Assessor) Assess(img image.Image) QualityProfile {
	sample := sampleImage(img, a.t.SampleHeight)
	gray := ToGray(sample)

	_, brightnessVar := MeanVariance(gray)
	contrast := math.Sqrt(brightnessVar)
	lapVar := LaplacianVariance(gray)

	edges := Canny(gray, 50, 150)
	density := EdgeDensity(edges)
	skew := detection.EstimateSkew(edges, 0).Angle

	p := QualityProfile{
		BrightnessVariance: round2(brightnessVar),
		LaplacianVariance:  round2(lapVar),
		Contrast:           round2(contrast),
		SkewAngle:          skew,
		EdgeDensity:        math.Round(density*10000) / 10000,
		Colorfulness:       math.Round(Colorfulness(sample)*10000) / 10000,
		PaperTone:          PaperTone(sample),
		Issues:             []string{},
	}

	if brightnessVar < a.t.BrightnessVarMin {
		p.NeedsShadowRemoval = true
		p.Issues = append(p.Issues, IssueUnevenLighting)
	}
	if lapVar < a.t.BlurVarMin {
		p.NeedsSharpening = true
		p.Issues = append(p.Issues, IssueBlurry)
	}
	if contrast < a.t.ContrastMin {
		p.Issues = append(p.Issues, IssueLowContrast)
	}
	if math.Abs(skew) > a.t.RotationMaxDeg {
		p.NeedsRotationFix = true
		p.Issues = append(p.Issues, IssueSkewed)
	}
	if density < a.t.EdgeDensityMin {
		p.Issues = append(p.Issues, IssueLowEdgeDensity)
	}

	score := math.Min(brightnessVar/2000*20, 20) +
		math.Min(lapVar/500*30, 30) +
		math.Min(contrast/80*20, 20) +
		math.Max(0, 15-math.Abs(skew)/5*15) +
		math.Min(density/0.15*15, 15)
	p.Score = round2(math.Min(score, 100))
	p.IsHighQuality = p.Score >= 70 && len(p.Issues) == 0

	return p
}

// EnhancementPlan lists the enhancer sub-stages to run.
type EnhancementPlan struct {
	Rotate       bool    `json:"rotate"`
	Angle        float64 `json:"angle"`
	RemoveShadow bool    `json:"remove_shadow"`
	Sharpen      bool    `json:"sharpen"`
}

// Empty reports whether the plan performs no work.
func (p EnhancementPlan) Empty() bool {
	return !p.Rotate && !p.RemoveShadow && !p.Sharpen
}

// Plan derives the enhancement plan from a profile.
func Plan(p QualityProfile) EnhancementPlan {
	return EnhancementPlan{
		Rotate:       p.NeedsRotationFix,
		Angle:        p.SkewAngle,
		RemoveShadow: p.NeedsShadowRemoval,
		Sharpen:      p.NeedsSharpening,
	}
}

// sampleImage downscales img to at most maxHeight pixels tall.
func sampleImage(img image.Image, maxHeight int) image.Image {
	b := img.Bounds()
	if b.Dy() <= maxHeight {
		return img
	}
	w := int(math.Round(float64(b.Dx()) * float64(maxHeight) / float64(b.Dy())))
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, maxHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
