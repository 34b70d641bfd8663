package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrUnavailable is returned by engines that cannot run in this build or
// environment.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Engine recognizes the text of a page.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, mode Mode) (string, error)
}

// Bounds is a pixel rectangle; X2 and Y2 are exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognized word with its location.
type Word struct {
	Text string `json:"text"`

	// Confidence is the engine's certainty in [0, 1].
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// WordEngine is implemented by engines that can report word boxes.
type WordEngine interface {
	Words(ctx context.Context, img image.Image, mode Mode) ([]Word, error)
}

// Info describes the engine for diagnostics.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}
