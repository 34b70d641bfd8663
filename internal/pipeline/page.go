package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	"github.com/sam02425/Document-Portal/internal/detection"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/ocr"
	"github.com/sam02425/Document-Portal/internal/router"
)

// NormalizedImage is a page after geometry correction and enhancement.
type NormalizedImage struct {
	Image image.Image `json:"-"`

	Hash    string                 `json:"hash"`
	Profile imaging.QualityProfile `json:"quality"`
	Applied imaging.Applied        `json:"enhancements"`

	// Cropped is true when a page outline was found and flattened.
	Cropped bool            `json:"cropped"`
	Quad    *detection.Quad `json:"quad,omitempty"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
}

// Page is the full outcome of one page.
type Page struct {
	Sequence   int    `json:"sequence"`
	SourceFile string `json:"source_file,omitempty"`
	Hash       string `json:"hash"`

	Result extract.Result `json:"result"`

	// Trace is nil when the result came from the extraction cache.
	Trace  *router.Trace `json:"trace,omitempty"`
	Cached bool          `json:"cached"`

	Quality     *imaging.QualityProfile    `json:"quality,omitempty"`
	Applied     *imaging.Applied           `json:"enhancements,omitempty"`
	Compression *imaging.CompressionResult `json:"compression,omitempty"`
	OCRMode     string                     `json:"ocr_mode,omitempty"`
	DurationMS  int64                      `json:"duration_ms"`

	// DuplicateOf is the sequence of an earlier page in the same document
	// whose image is a near copy of this one.
	DuplicateOf *int `json:"duplicate_of,omitempty"`

	signature uint64
}

// Assess decodes data and returns its quality profile.
func (p *Pipeline) Assess(ctx context.Context, data []byte) (imaging.QualityProfile, error) {
	asset, err := imaging.Decode(data)
	if err != nil {
		return imaging.QualityProfile{}, err
	}
	if err := ctx.Err(); err != nil {
		return imaging.QualityProfile{}, err
	}
	return p.assessor.Assess(asset.Image), nil
}

// Normalize decodes data, flattens the page and applies the enhancements
// its quality profile calls for.
func (p *Pipeline) Normalize(ctx context.Context, data []byte) (NormalizedImage, error) {
	asset, err := imaging.Decode(data)
	if err != nil {
		return NormalizedImage{}, err
	}
	return p.normalize(ctx, asset)
}

func (p *Pipeline) normalize(ctx context.Context, asset *imaging.Asset) (NormalizedImage, error) {
	profile := p.assessor.Assess(asset.Image)

	geo, err := p.normalizer.Normalize(ctx, asset.Image)
	if err != nil {
		return NormalizedImage{}, err
	}

	plan := imaging.Plan(profile)
	if geo.Cropped {
		// The perspective warp already squared the page.
		plan.Rotate = false
	}
	img, applied := imaging.Enhance(geo.Image, plan)
	if err := ctx.Err(); err != nil {
		return NormalizedImage{}, err
	}

	b := img.Bounds()
	return NormalizedImage{
		Image:   img,
		Hash:    asset.Hash,
		Profile: profile,
		Applied: applied,
		Cropped: geo.Cropped,
		Quad:    geo.Quad,
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// Compress re-encodes data at the lowest quality that keeps the target
// similarity. Zero targetSimilarity or maxDimension use the configured
// values.
func (p *Pipeline) Compress(ctx context.Context, data []byte, targetSimilarity float64, maxDimension int) ([]byte, imaging.CompressionResult, error) {
	asset, err := imaging.Decode(data)
	if err != nil {
		return nil, imaging.CompressionResult{}, err
	}
	opts := p.opts.Compress
	if targetSimilarity > 0 {
		opts.TargetSimilarity = targetSimilarity
	}
	if maxDimension > 0 {
		opts.MaxDimension = maxDimension
	}
	return imaging.Compress(ctx, asset.Image, asset.Data, opts)
}

// Recognize returns the text of data read in mode.
func (p *Pipeline) Recognize(ctx context.Context, data []byte, mode ocr.Mode) (ocr.Text, error) {
	if p.recognizer == nil {
		return ocr.Text{}, ocr.ErrUnavailable
	}
	norm, err := p.Normalize(ctx, data)
	if err != nil {
		return ocr.Text{}, err
	}
	return p.recognizer.Recognize(ctx, norm.Image, norm.Hash, mode)
}

// Words returns word boxes for data, or ocr.ErrUnavailable when the engine
// cannot produce them.
func (p *Pipeline) Words(ctx context.Context, data []byte, mode ocr.Mode) ([]ocr.Word, error) {
	if p.recognizer == nil {
		return nil, ocr.ErrUnavailable
	}
	norm, err := p.Normalize(ctx, data)
	if err != nil {
		return nil, err
	}
	return p.recognizer.Words(ctx, norm.Image, mode)
}

// ExtractFields runs one page through every stage and returns its fields.
func (p *Pipeline) ExtractFields(ctx context.Context, data []byte, hint extract.DocType) (extract.Result, error) {
	page, err := p.ExtractPage(ctx, PageInput{Data: data}, hint, DefaultCallerID)
	if err != nil {
		return extract.Result{}, err
	}
	return page.Result, nil
}

// PageInput is one submitted page.
type PageInput struct {
	Name string
	Data []byte
}

// ExtractPage processes one page. Results are cached per document type,
// caller and image hash; degraded results are not cached so a later run
// can still reach the vision extractor.
func (p *Pipeline) ExtractPage(ctx context.Context, in PageInput, hint extract.DocType, callerID string) (Page, error) {
	return p.page(ctx, in, 0, hint, callerID)
}

func (p *Pipeline) page(ctx context.Context, in PageInput, seq int, hint extract.DocType, callerID string) (Page, error) {
	start := time.Now()
	if hint == "" {
		hint = extract.DocTypeUnknown
	}
	if callerID == "" {
		callerID = DefaultCallerID
	}

	asset, err := imaging.Decode(in.Data)
	if err != nil {
		return Page{}, err
	}
	page := Page{Sequence: seq, SourceFile: in.Name, Hash: asset.Hash, signature: asset.Signature}

	key := cache.ExtractionKey(string(hint), callerID, asset.Hash)
	if p.cache != nil {
		var res extract.Result
		if p.cache.GetJSON(ctx, cache.NamespaceExtraction, key, &res) {
			res.Sequence, res.SourceFile = seq, in.Name
			page.Result, page.Cached = res, true
			page.DurationMS = time.Since(start).Milliseconds()
			p.logger.Debug("pipeline.page.cached", "hash", asset.Hash, "sequence", seq)
			return page, nil
		}
	}

	norm, err := p.normalize(ctx, asset)
	if err != nil {
		return Page{}, err
	}
	page.Quality, page.Applied = &norm.Profile, &norm.Applied

	payload, comp, err := imaging.Compress(ctx, norm.Image, asset.Data, p.opts.Compress)
	if err != nil {
		return Page{}, err
	}
	page.Compression = &comp
	mime := "image/jpeg"
	if comp.Passthrough {
		mime = asset.MimeType()
	}

	var text string
	if p.recognizer != nil {
		t, err := p.recognizer.Recognize(ctx, norm.Image, asset.Hash, ocr.ModeFor(hint))
		switch {
		case err == nil:
			text, page.OCRMode = t.Text, t.Mode.String()
		case ctx.Err() != nil:
			return Page{}, ctx.Err()
		case errors.Is(err, ocr.ErrUnavailable):
			p.logger.Debug("pipeline.ocr.unavailable", "hash", asset.Hash)
		default:
			p.logger.Warn("pipeline.ocr.failed", "hash", asset.Hash, "sequence", seq, "error", err)
		}
	}

	res, trace := p.router.Route(ctx, router.Input{
		Text:       text,
		DocType:    hint,
		Hash:       asset.Hash,
		Image:      payload,
		MimeType:   mime,
		SourceFile: in.Name,
		Sequence:   seq,
	})
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	page.Result, page.Trace = res, &trace

	if p.cache != nil && !res.Degraded {
		if err := p.cache.SetJSON(ctx, cache.NamespaceExtraction, key, res, p.opts.ExtractionTTL); err != nil {
			p.logger.Warn("pipeline.cache.encode_failed", "hash", asset.Hash, "error", err)
		}
	}

	page.DurationMS = time.Since(start).Milliseconds()
	p.logger.Info("pipeline.page.done",
		"hash", asset.Hash,
		"sequence", seq,
		"doc_type", string(res.DocType),
		"method", string(res.Method),
		"confidence", res.Confidence,
		"degraded", res.Degraded,
		"state", string(trace.State),
		"duration_ms", page.DurationMS)
	return page, nil
}
