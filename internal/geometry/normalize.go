// Package geometry flattens photographed documents.
//
// A Normalizer finds the page outline in a photo and warps it to an upright
// rectangle, removing the background and perspective distortion. Pages that
// are already scanned flat (no outline found) pass through resized only.
package geometry

import (
	"context"
	"image"
	"log/slog"

	"github.com/sam02425/Document-Portal/internal/detection"
	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/logging"
)

// Options tune a Normalizer. Zero fields take the defaults shown.
type Options struct {
	// WorkingHeight bounds the image height used for detection and
	// warping. Default 1500.
	WorkingHeight int

	// MaxDimension bounds the longer side of the output. Default 2048.
	MaxDimension int

	// CannyLow and CannyHigh are the edge thresholds. Default 75 and 200.
	CannyLow  int
	CannyHigh int

	Quad detection.QuadOptions
}

func (o Options) withDefaults() Options {
	if o.WorkingHeight <= 0 {
		o.WorkingHeight = 1500
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = 2048
	}
	if o.CannyLow <= 0 {
		o.CannyLow = 75
	}
	if o.CannyHigh <= 0 {
		o.CannyHigh = 200
	}
	return o
}

// Normalized is the output of Normalize.
type Normalized struct {
	Image image.Image `json:"-"`

	// Cropped is true when a page outline was found and warped.
	Cropped bool `json:"cropped"`

	// Quad is the detected outline in working-image coordinates.
	Quad *detection.Quad `json:"quad,omitempty"`

	// Scale is working size / input size.
	Scale float64 `json:"scale"`

	Width  int `json:"width"`
	Height int `json:"height"`
}

// Normalizer detects and flattens document pages.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts Options, logger *slog.Logger) *Normalizer {
	return &Normalizer{opts: opts.withDefaults(), logger: logging.OrNop(logger)}
}

// Normalize finds the page in img and returns it flattened.
//
// Stages, with ctx checked between each:
//
//  1. Resize to WorkingHeight when taller.
//  2. Grayscale, 5×5 Gaussian blur, Canny edges.
//  3. detection.FindDocumentQuad over the edge map.
//  4. Perspective warp of the quad to its bounding size.
//  5. Fit within MaxDimension.
//
// Finding no page is not an error: the working image is returned with
// Cropped false.
func (n *Normalizer) Normalize(ctx context.Context, img image.Image) (Normalized, error) {
	if err := ctx.Err(); err != nil {
		return Normalized{}, err
	}

	inHeight := img.Bounds().Dy()
	working := imaging.ScaleToHeight(img, n.opts.WorkingHeight)
	scale := 1.0
	if inHeight > 0 {
		scale = float64(working.Bounds().Dy()) / float64(inHeight)
	}

	edges := imaging.Canny(imaging.GaussianBlur5(imaging.ToGray(working)), n.opts.CannyLow, n.opts.CannyHigh)
	if err := ctx.Err(); err != nil {
		return Normalized{}, err
	}

	quad, ok := detection.FindDocumentQuad(edges, n.opts.Quad)
	if err := ctx.Err(); err != nil {
		return Normalized{}, err
	}

	if !ok {
		n.logger.Debug("geometry.quad.none",
			"width", working.Bounds().Dx(), "height", working.Bounds().Dy())
		return n.finish(working, nil, scale), nil
	}

	w, h := WarpSize(quad)
	warped, err := WarpPerspective(working, quad, w, h)
	if err != nil {
		n.logger.Warn("geometry.warp.failed", "error", err)
		return n.finish(working, nil, scale), nil
	}
	if err := ctx.Err(); err != nil {
		return Normalized{}, err
	}

	n.logger.Debug("geometry.quad.found",
		"top_left", quad.TopLeft, "bottom_right", quad.BottomRight, "width", w, "height", h)
	return n.finish(warped, &quad, scale), nil
}

func (n *Normalizer) finish(img image.Image, quad *detection.Quad, scale float64) Normalized {
	out := imaging.FitMax(img, n.opts.MaxDimension)
	b := out.Bounds()
	return Normalized{
		Image:   out,
		Cropped: quad != nil,
		Quad:    quad,
		Scale:   scale,
		Width:   b.Dx(),
		Height:  b.Dy(),
	}
}
