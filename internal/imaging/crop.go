package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// EncodedImage is an image serialized for transport in tool responses.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int    `json:"bytes"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode serializes img as "png" or "jpeg". quality applies to JPEG only and
// falls back to 90 when outside 1..100.
func Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "jpeg", "jpg":
		if quality < 1 || quality > 100 {
			quality = 90
		}
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// EncodeBase64 encodes img and wraps it with its dimensions.
func EncodeBase64(img image.Image, format string, quality int) (*EncodedImage, error) {
	data, mime, err := Encode(img, format, quality)
	if err != nil {
		return nil, err
	}
	return WrapBytes(data, mime, img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// WrapBytes wraps already encoded bytes.
func WrapBytes(data []byte, mime string, width, height int) *EncodedImage {
	return &EncodedImage{
		Width:       width,
		Height:      height,
		Bytes:       len(data),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mime,
	}
}

// Crop extracts a rectangular region from an image and optionally rescales it.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (image.Image, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}
	return cropped, nil
}

// FitMax scales img down with the Lanczos filter so that neither side exceeds
// maxDim. Smaller images and maxDim <= 0 return img unchanged.
func FitMax(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// ScaleToHeight resizes img to the given height preserving the aspect ratio
// when it is taller. Shorter images are returned unchanged.
func ScaleToHeight(img image.Image, height int) image.Image {
	if height <= 0 || img.Bounds().Dy() <= height {
		return img
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}
