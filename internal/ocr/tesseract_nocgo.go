//go:build !cgo

package ocr

import (
	"context"
	"image"
)

// TesseractEngine is unavailable without cgo.
type TesseractEngine struct {
	Language       string
	TessdataPrefix string
}

func NewTesseractEngine(language, tessdataPrefix string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{Language: language, TessdataPrefix: tessdataPrefix}
}

func (e *TesseractEngine) Recognize(context.Context, image.Image, Mode) (string, error) {
	return "", ErrUnavailable
}

func (e *TesseractEngine) Words(context.Context, image.Image, Mode) ([]Word, error) {
	return nil, ErrUnavailable
}

func (e *TesseractEngine) Info() Info {
	return Info{Backend: "none (built without cgo)", Language: e.Language, Error: ErrUnavailable.Error()}
}
