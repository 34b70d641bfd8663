package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

const (
	// minRotation is the smallest skew worth resampling the page for.
	minRotation = 2.0
	maxRotation = 45.0

	// Background estimation: a 7x7 dilation removes text strokes, a 21 px
	// box blur smooths what remains into a lighting map.
	dilateRadius = 3
	bgBlurRadius = 10

	sharpenSigma = 1.0
)

// Applied records which enhancer sub-stages modified the image.
type Applied struct {
	Rotated       bool    `json:"rotated"`
	Angle         float64 `json:"angle"`
	ShadowRemoved bool    `json:"shadow_removed"`
	Sharpened     bool    `json:"sharpened"`
}

// Any reports whether at least one sub-stage ran.
func (a Applied) Any() bool {
	return a.Rotated || a.ShadowRemoved || a.Sharpened
}

// Enhance applies the planned corrections in order: rotation, shadow
// removal, sharpening.
//
// An empty plan returns img itself without copying or touching pixels.
func Enhance(img image.Image, plan EnhancementPlan) (image.Image, Applied) {
	var applied Applied
	if plan.Empty() {
		return img, applied
	}

	out := img
	if plan.Rotate {
		angle := math.Max(-maxRotation, math.Min(maxRotation, plan.Angle))
		if math.Abs(angle) >= minRotation {
			out = Deskew(out, angle)
			applied.Rotated = true
			applied.Angle = angle
		}
	}
	if plan.RemoveShadow {
		out = RemoveShadow(out)
		applied.ShadowRemoved = true
	}
	if plan.Sharpen {
		out = imaging.Sharpen(out, sharpenSigma)
		applied.Sharpened = true
	}
	return out, applied
}

// Deskew levels lines that descend to the right by angle degrees. The canvas
// grows to hold the rotated page and uncovered corners are filled white.
func Deskew(img image.Image, angle float64) image.Image {
	// bild rotates clockwise for positive angles.
	rotated := transform.Rotate(img, -angle, &transform.RotationOptions{ResizeBounds: true})

	dst := image.NewRGBA(rotated.Bounds())
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), rotated, rotated.Bounds().Min, draw.Over)
	return dst
}

// RemoveShadow flattens uneven lighting.
//
// For every channel the background is estimated by dilation followed by a box
// blur, the pixel is replaced by 255 − |ch − bg| and the channel is stretched
// to the full 0..255 range.
func RemoveShadow(img image.Image) image.Image {
	src := toRGBA(img)
	bg := blur.Box(effect.Dilate(src, dilateRadius), bgBlurRadius)

	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	var lo, hi [3]uint8
	for c := 0; c < 3; c++ {
		lo[c], hi[c] = 255, 0
	}

	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := int(src.Pix[i+c]) - int(bg.Pix[i+c])
			if d < 0 {
				d = -d
			}
			v := uint8(255 - d)
			out.Pix[i+c] = v
			if v < lo[c] {
				lo[c] = v
			}
			if v > hi[c] {
				hi[c] = v
			}
		}
		out.Pix[i+3] = 255
	}

	for c := 0; c < 3; c++ {
		span := int(hi[c]) - int(lo[c])
		if span == 0 || span == 255 {
			continue
		}
		for i := c; i < len(out.Pix); i += 4 {
			out.Pix[i] = uint8((int(out.Pix[i]) - int(lo[c])) * 255 / span)
		}
	}
	return out
}

// toRGBA returns img as a zero-origin *image.RGBA with a tight stride,
// copying only when necessary.
func toRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Rect.Min == (image.Point{}) && r.Stride == 4*r.Rect.Dx() {
		return r
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
