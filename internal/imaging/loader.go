package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
)

// Asset is a decoded input image together with its encoded bytes and
// perceptual hash.
//
// The hash is computed once in Decode and never changes afterwards. Pipeline
// stages produce new images rather than mutating Asset.Image.
type Asset struct {
	// Data is the original encoded file content.
	Data []byte

	// Image is the decoded image with EXIF orientation applied.
	Image image.Image

	// Format is the decoder name reported by image.DecodeConfig: "png", "jpeg" or "gif".
	Format string

	Width  int
	Height int

	// Hash is the hex perceptual hash (see Hash).
	Hash string

	// Signature is the raw 64-bit average-hash signature behind Hash.
	Signature uint64
}

// Decode parses encoded image bytes into an Asset.
//
// Returns an input error (errors.KindInput) when the bytes are empty or not a
// supported image format. The error's "hash" detail carries the fallback key
// (see HashBytes). The decode honours the EXIF orientation tag so that
// phone photos arrive upright.
func Decode(data []byte) (*Asset, error) {
	if len(data) == 0 {
		return nil, decodeError(data, fmt.Errorf("empty image data"))
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(data, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, decodeError(data, err)
	}

	sig := Signature(img)
	bounds := img.Bounds()
	return &Asset{
		Data:      data,
		Image:     img,
		Format:    format,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Hash:      digestSignature(sig),
		Signature: sig,
	}, nil
}

func decodeError(data []byte, cause error) error {
	e := perrors.NewInputError("decode", cause)
	e.Details = map[string]interface{}{"hash": rawHash(data)}
	return e
}

// LoadFile reads and decodes an image file.
func LoadFile(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Decode(data)
}

// MimeType returns the MIME type matching the asset's format.
func (a *Asset) MimeType() string {
	switch a.Format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
