package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CompressOptions tune Compress. Zero fields take the defaults shown.
type CompressOptions struct {
	TargetSimilarity float64 // 0.98
	MaxDimension     int     // 2048
	MinQuality       int     // 20
	MaxQuality       int     // 95
	MaxIterations    int     // 10
	Tolerance        float64 // 0.005
	SmallFileBytes   int     // 100 KiB

	// Fast skips the search and picks the quality from the input's bytes
	// per pixel.
	Fast bool
}

// DefaultCompressOptions returns the production settings.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		TargetSimilarity: 0.98,
		MaxDimension:     2048,
		MinQuality:       20,
		MaxQuality:       95,
		MaxIterations:    10,
		Tolerance:        0.005,
		SmallFileBytes:   100 * 1024,
	}
}

func (o CompressOptions) withDefaults() CompressOptions {
	d := DefaultCompressOptions()
	if o.TargetSimilarity <= 0 || o.TargetSimilarity > 1 {
		o.TargetSimilarity = d.TargetSimilarity
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = d.MaxDimension
	}
	if o.MinQuality <= 0 {
		o.MinQuality = d.MinQuality
	}
	if o.MaxQuality <= 0 || o.MaxQuality > 100 {
		o.MaxQuality = d.MaxQuality
	}
	if o.MinQuality > o.MaxQuality {
		o.MinQuality = o.MaxQuality
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.SmallFileBytes <= 0 {
		o.SmallFileBytes = d.SmallFileBytes
	}
	return o
}

// CompressionResult reports how an image was compressed.
type CompressionResult struct {
	Quality         int     `json:"quality"`
	Similarity      float64 `json:"similarity"`
	OriginalBytes   int     `json:"original_bytes"`
	CompressedBytes int     `json:"compressed_bytes"`
	Iterations      int     `json:"iterations"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`

	// BestEffort is set when no tried quality reached the target similarity.
	BestEffort bool `json:"best_effort"`

	// FastPath is set when the search was skipped.
	FastPath bool `json:"fast_path"`

	// Grayscale is set when the page had no color and was encoded as a
	// single-channel JPEG.
	Grayscale bool `json:"grayscale"`

	// Passthrough is set when the original bytes were returned unchanged.
	Passthrough bool `json:"passthrough"`
}

// Ratio returns CompressedBytes / OriginalBytes.
func (r CompressionResult) Ratio() float64 {
	if r.OriginalBytes == 0 {
		return 1
	}
	return float64(r.CompressedBytes) / float64(r.OriginalBytes)
}

// Compress finds the lowest JPEG quality whose decoded output stays at or
// above the target structural similarity to img.
//
// original holds the encoded input bytes. The returned bytes are never larger
// than original: when the best encoding does not save space, original is
// returned with Passthrough set, quality 100 and similarity 1. Inputs smaller
// than SmallFileBytes are passed through the same way.
//
// # Algorithm
//
//  1. Fit img within MaxDimension (Lanczos). The fitted image is the
//     similarity reference.
//  2. Pages without color are encoded as grayscale JPEG.
//  3. Binary search quality in [MinQuality, MaxQuality]: encode, decode,
//     measure SSIM. A passing quality is remembered and the search moves
//     lower; a failing one moves higher. The search ends when a passing
//     similarity is within Tolerance of the target, the range is exhausted
//     or MaxIterations encodes were made.
//  4. Without any passing quality, MaxQuality is used and BestEffort is set.
//
// ctx is checked before every encode.
func Compress(ctx context.Context, img image.Image, original []byte, opts CompressOptions) ([]byte, CompressionResult, error) {
	opts = opts.withDefaults()
	srcBounds := img.Bounds()

	res := CompressionResult{OriginalBytes: len(original)}

	if len(original) < opts.SmallFileBytes {
		res.Quality = 100
		res.Similarity = 1
		res.CompressedBytes = len(original)
		res.Width, res.Height = srcBounds.Dx(), srcBounds.Dy()
		res.FastPath = true
		res.Passthrough = true
		return original, res, nil
	}

	fitted := FitMax(img, opts.MaxDimension)
	ref := ToGray(fitted)

	var src image.Image = fitted
	if IsMonochrome(fitted) {
		src = ref
		res.Grayscale = true
	}
	res.Width, res.Height = ref.Rect.Dx(), ref.Rect.Dy()

	var (
		best    []byte
		bestSim float64
		bestQ   = -1
	)

	if opts.Fast {
		pixels := srcBounds.Dx() * srcBounds.Dy()
		q := fastQuality(len(original), pixels)
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		data, sim, err := encodeMeasure(src, ref, q)
		if err != nil {
			return nil, res, err
		}
		res.Iterations = 1
		res.FastPath = true
		res.BestEffort = sim < opts.TargetSimilarity-opts.Tolerance
		best, bestSim, bestQ = data, sim, q
	} else {
		lo, hi := opts.MinQuality, opts.MaxQuality
		for lo <= hi && res.Iterations < opts.MaxIterations {
			if err := ctx.Err(); err != nil {
				return nil, res, err
			}
			q := (lo + hi) / 2
			data, sim, err := encodeMeasure(src, ref, q)
			if err != nil {
				return nil, res, err
			}
			res.Iterations++

			if sim >= opts.TargetSimilarity {
				best, bestSim, bestQ = data, sim, q
				if sim-opts.TargetSimilarity <= opts.Tolerance {
					break
				}
				hi = q - 1
			} else {
				lo = q + 1
			}
		}

		if bestQ < 0 {
			if err := ctx.Err(); err != nil {
				return nil, res, err
			}
			data, sim, err := encodeMeasure(src, ref, opts.MaxQuality)
			if err != nil {
				return nil, res, err
			}
			best, bestSim, bestQ = data, sim, opts.MaxQuality
			res.BestEffort = true
		}
	}

	if len(best) >= len(original) {
		res.Quality = 100
		res.Similarity = 1
		res.CompressedBytes = len(original)
		res.BestEffort = false
		res.Grayscale = false
		res.Passthrough = true
		res.Width, res.Height = srcBounds.Dx(), srcBounds.Dy()
		return original, res, nil
	}

	res.Quality = bestQ
	res.Similarity = bestSim
	res.CompressedBytes = len(best)
	return best, res, nil
}

// fastQuality maps the input's bytes per pixel to a JPEG quality. Dense
// files carry detail worth keeping.
func fastQuality(size, pixels int) int {
	if pixels <= 0 {
		return 80
	}
	bpp := float64(size) / float64(pixels)
	switch {
	case bpp > 1.5:
		return 85
	case bpp > 0.75:
		return 80
	default:
		return 75
	}
}

// encodeMeasure encodes src as JPEG at quality q and returns the bytes with
// their SSIM against ref.
func encodeMeasure(src image.Image, ref *image.Gray, q int) ([]byte, float64, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, 0, fmt.Errorf("failed to encode jpeg at quality %d: %w", q, err)
	}
	decoded, err := imaging.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode jpeg at quality %d: %w", q, err)
	}
	sim, err := SSIM(ref, ToGray(decoded))
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), sim, nil
}
