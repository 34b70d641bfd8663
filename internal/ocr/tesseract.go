//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/sam02425/Document-Portal/internal/imaging"
)

// TesseractEngine runs Tesseract through gosseract. Each call uses its own
// client, so an engine is safe for concurrent use.
type TesseractEngine struct {
	Language       string
	TessdataPrefix string
}

// NewTesseractEngine creates an engine for language ("eng" when empty).
func NewTesseractEngine(language, tessdataPrefix string) *TesseractEngine {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{Language: language, TessdataPrefix: tessdataPrefix}
}

// Recognize returns the page text.
//
// gosseract calls cannot be interrupted; when ctx ends first the call keeps
// running in the background and its client is closed when it returns.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, mode Mode) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	data, _, err := imaging.Encode(img, "png", 0)
	if err != nil {
		return "", err
	}

	go func() {
		var r result
		r.err = e.withClient(data, mode, func(c *gosseract.Client) error {
			text, err := c.Text()
			if err != nil {
				return fmt.Errorf("OCR failed: %w", err)
			}
			r.text = text
			return nil
		})
		done <- r
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

// Words returns word boxes with confidence. Empty words are dropped.
func (e *TesseractEngine) Words(ctx context.Context, img image.Image, mode Mode) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := imaging.Encode(img, "png", 0)
	if err != nil {
		return nil, err
	}

	var words []Word
	err = e.withClient(data, mode, func(c *gosseract.Client) error {
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return fmt.Errorf("failed to get bounding boxes: %w", err)
		}
		words = make([]Word, 0, len(boxes))
		for _, box := range boxes {
			if box.Word == "" {
				continue
			}
			words = append(words, Word{
				Text:       box.Word,
				Confidence: float64(box.Confidence) / 100.0,
				Bounds: Bounds{
					X1: box.Box.Min.X,
					Y1: box.Box.Min.Y,
					X2: box.Box.Max.X,
					Y2: box.Box.Max.Y,
				},
			})
		}
		return nil
	})
	return words, err
}

// Info reports the Tesseract version.
func (e *TesseractEngine) Info() Info {
	client := gosseract.NewClient()
	defer client.Close()

	info := Info{Backend: "gosseract", Language: e.Language, Version: client.Version()}
	info.Available = info.Version != ""
	if !info.Available {
		info.Error = "tesseract library not found"
	}
	return info
}

func (e *TesseractEngine) withClient(data []byte, mode Mode, fn func(*gosseract.Client) error) error {
	client := gosseract.NewClient()
	defer client.Close()

	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(e.Language); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(mode.PSM())); err != nil {
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return fn(client)
}
