package ocr

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	"github.com/sam02425/Document-Portal/internal/logging"
)

// Text is the outcome of one recognition.
type Text struct {
	Text string `json:"text"`

	// Mode is the resolved mode the page was read with.
	Mode   Mode `json:"-"`
	Cached bool `json:"cached"`
}

// Recognizer reads pages through an Engine, caching text by image hash and
// mode. A nil cache disables caching.
type Recognizer struct {
	engine Engine
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewRecognizer creates a Recognizer.
func NewRecognizer(engine Engine, c *cache.Cache, logger *slog.Logger) *Recognizer {
	return &Recognizer{engine: engine, cache: c, logger: logging.OrNop(logger)}
}

// WithTTL overrides the ocr-text namespace lifetime for entries this
// Recognizer writes.
func (r *Recognizer) WithTTL(ttl time.Duration) *Recognizer {
	r.ttl = ttl
	return r
}

// Recognize returns the text of img. hash is the page's perceptual hash and
// keys the cache; an empty hash bypasses it. ModeAuto is resolved from the
// page before the lookup. Failures are not cached.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, hash string, mode Mode) (Text, error) {
	mode = Resolve(mode, img)
	key := cache.OCRKey(hash, mode.String())

	if r.cache != nil && hash != "" {
		if data, ok := r.cache.Get(ctx, cache.NamespaceOCR, key); ok {
			r.logger.Debug("ocr.cache.hit", "hash", hash, "mode", mode.String())
			return Text{Text: string(data), Mode: mode, Cached: true}, nil
		}
	}

	start := time.Now()
	text, err := r.engine.Recognize(ctx, img, mode)
	if err != nil {
		r.logger.Warn("ocr.recognize.failed", "hash", hash, "mode", mode.String(), "error", err)
		return Text{Mode: mode}, err
	}
	r.logger.Debug("ocr.recognize.done",
		"hash", hash,
		"mode", mode.String(),
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds())

	if r.cache != nil && hash != "" {
		r.cache.Set(ctx, cache.NamespaceOCR, key, []byte(text), r.ttl)
	}
	return Text{Text: text, Mode: mode}, nil
}

// Words returns word boxes when the engine supports them, and ErrUnavailable
// otherwise. Word boxes are never cached.
func (r *Recognizer) Words(ctx context.Context, img image.Image, mode Mode) ([]Word, error) {
	we, ok := r.engine.(WordEngine)
	if !ok {
		return nil, ErrUnavailable
	}
	return we.Words(ctx, img, Resolve(mode, img))
}
