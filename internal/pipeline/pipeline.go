// Package pipeline composes the image, recognition and extraction stages
// into the operations callers use.
//
// One page flows through
//
//	decode → assess → normalize → enhance → compress → recognize → route
//
// and a document fans its pages out over a bounded worker pool before the
// merger groups them. The cache is the only state shared between runs.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	"github.com/sam02425/Document-Portal/internal/config"
	"github.com/sam02425/Document-Portal/internal/geometry"
	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/logging"
	"github.com/sam02425/Document-Portal/internal/merge"
	"github.com/sam02425/Document-Portal/internal/ocr"
	"github.com/sam02425/Document-Portal/internal/router"
	"github.com/sam02425/Document-Portal/internal/vision"
)

// DefaultCallerID scopes cached extraction results when the caller gives
// no identity.
const DefaultCallerID = "default"

// Deps are the external collaborators of a Pipeline. Every field is
// optional: without OCR pages go straight to the router with no text,
// without Vision the router degrades, and without Cache nothing is cached.
type Deps struct {
	Cache  *cache.Cache
	OCR    ocr.Engine
	Vision vision.Extractor
	Logger *slog.Logger
}

// Options tune a Pipeline. Zero fields take the package defaults.
type Options struct {
	Quality  imaging.Thresholds
	Geometry geometry.Options
	Compress imaging.CompressOptions
	Router   router.Options

	OCRTTL        time.Duration
	ExtractionTTL time.Duration

	// PageWorkers bounds concurrent pages per document. Default 4.
	PageWorkers int

	// StrictNames raises the identity name thresholds.
	StrictNames bool

	// Now is the clock for validation. Default time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	compress := imaging.DefaultCompressOptions()
	compress.TargetSimilarity = cfg.Compress.TargetSimilarity
	compress.MaxDimension = cfg.Compress.MaxDimension
	compress.MaxIterations = cfg.Compress.MaxIterations
	compress.SmallFileBytes = cfg.Compress.SmallFileBytes

	return Options{
		Quality: imaging.Thresholds{
			BrightnessVarMin: cfg.Quality.BrightnessVarMin,
			BlurVarMin:       cfg.Quality.BlurVarMin,
			ContrastMin:      cfg.Quality.ContrastMin,
			RotationMaxDeg:   cfg.Quality.RotationMaxDeg,
			EdgeDensityMin:   cfg.Quality.EdgeDensityMin,
		},
		Geometry: geometry.Options{MaxDimension: cfg.Compress.MaxDimension},
		Compress: compress,
		Router: router.Options{
			Threshold:     cfg.Router.Threshold,
			VisionTimeout: cfg.Router.VisionTimeout,
			VisionTTL:     cfg.Cache.VisionTTL,
		},
		OCRTTL:        cfg.Cache.OCRTTL,
		ExtractionTTL: cfg.Cache.ExtractionTTL,
		PageWorkers:   cfg.Worker.PageWorkers,
	}
}

// Pipeline runs documents through every stage.
type Pipeline struct {
	assessor   *imaging.Assessor
	normalizer *geometry.Normalizer
	recognizer *ocr.Recognizer
	router     *router.Router
	merger     *merge.Merger
	cache      *cache.Cache
	opts       Options
	logger     *slog.Logger
}

// New wires a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	logger := logging.OrNop(deps.Logger)
	if opts.PageWorkers <= 0 {
		opts.PageWorkers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Router.Now == nil {
		opts.Router.Now = opts.Now
	}

	p := &Pipeline{
		assessor:   imaging.NewAssessor(opts.Quality),
		normalizer: geometry.NewNormalizer(opts.Geometry, logger),
		router:     router.New(deps.Vision, deps.Cache, opts.Router, logger),
		merger:     merge.New(merge.Options{Now: opts.Now, Logger: logger}),
		cache:      deps.Cache,
		opts:       opts,
		logger:     logger,
	}
	if deps.OCR != nil {
		p.recognizer = ocr.NewRecognizer(deps.OCR, deps.Cache, logger).WithTTL(opts.OCRTTL)
	}
	return p
}

// Cache returns the pipeline's cache, which may be nil.
func (p *Pipeline) Cache() *cache.Cache {
	return p.cache
}
