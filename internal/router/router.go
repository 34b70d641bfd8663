// Package router decides, per page, whether the regex extractor's result is
// good enough or the vision extractor must be consulted.
//
// Route is a small state machine:
//
//	Deterministic ──confident──────────────────────────────▶ Done
//	      │
//	      ▼
//	VisionPending ──cache hit / call ok──▶ VisionDone ─────▶ Done
//	      │
//	      └──2 failed calls / schema rejected / no extractor──▶ Degraded
//
// A degraded result is the deterministic one, flagged; its confidence is
// never raised.
package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/logging"
	"github.com/sam02425/Document-Portal/internal/vision"
)

// State is a router state.
type State string

const (
	StateDeterministic State = "deterministic"
	StateVisionPending State = "vision_pending"
	StateVisionDone    State = "vision_done"
	StateDone          State = "done"
	StateDegraded      State = "degraded"
)

// Transition is one state change with its cause.
type Transition struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	Reason string `json:"reason"`
}

// Trace records how a result was produced.
type Trace struct {
	Transitions []Transition `json:"transitions"`

	// ExternalCall is true when the vision extractor was invoked.
	ExternalCall bool `json:"external_call"`
	Attempts     int  `json:"attempts"`
	CacheHit     bool `json:"cache_hit"`

	// State is the last state reached.
	State State `json:"state"`
}

func (t *Trace) move(to State, reason string) {
	t.Transitions = append(t.Transitions, Transition{From: t.State, To: to, Reason: reason})
	t.State = to
}

// Input is one page to route.
type Input struct {
	// Text is the recognized page text.
	Text string

	// DocType is the caller's hint; DocTypeUnknown lets the text decide.
	DocType extract.DocType

	// Hash keys the vision-result cache. Empty disables caching.
	Hash string

	// Image and MimeType are sent to the vision extractor.
	Image    []byte
	MimeType string

	SourceFile string
	Sequence   int
}

// Options tune a Router. Zero fields take the defaults shown.
type Options struct {
	Threshold     float64       // 80
	VisionTimeout time.Duration // 30s
	MaxAttempts   int           // 2
	VisionTTL     time.Duration // namespace default

	// Now is the clock for validation. Default time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = 80
	}
	if o.VisionTimeout <= 0 {
		o.VisionTimeout = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 2
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Router routes pages between the regex and vision extractors.
type Router struct {
	vision vision.Extractor
	cache  *cache.Cache
	opts   Options
	logger *slog.Logger
}

// New creates a Router. A nil extractor degrades every page that needs
// vision; a nil cache disables vision-result caching.
func New(ext vision.Extractor, c *cache.Cache, opts Options, logger *slog.Logger) *Router {
	return &Router{vision: ext, cache: c, opts: opts.withDefaults(), logger: logging.OrNop(logger)}
}

// Threshold returns the confidence needed to skip vision.
func (r *Router) Threshold() float64 {
	return r.opts.Threshold
}

// Route extracts the fields of one page.
func (r *Router) Route(ctx context.Context, in Input) (extract.Result, Trace) {
	now := r.opts.Now()
	tr := Trace{State: StateDeterministic}

	det := extract.Extract(in.Text, in.DocType, now)
	det.Sequence = in.Sequence
	det.SourceFile = in.SourceFile

	missing := det.MissingMandatory()
	if det.Confidence >= r.opts.Threshold && len(missing) == 0 {
		tr.move(StateDone, "confident")
		return det, tr
	}

	reason := "low_confidence"
	if len(missing) > 0 {
		reason = "missing_mandatory"
	}
	tr.move(StateVisionPending, reason)
	r.logger.Debug("router.vision.pending",
		"hash", in.Hash,
		"doc_type", string(det.DocType),
		"confidence", det.Confidence,
		"missing", missing)

	out, ok := r.cached(ctx, in.Hash)
	if ok {
		tr.CacheHit = true
		tr.move(StateVisionDone, "cache_hit")
	} else {
		var err error
		out, err = r.callVision(ctx, in, &tr)
		if err != nil {
			return r.degrade(det, &tr, err), tr
		}
		tr.move(StateVisionDone, "vision_ok")
	}

	merged := Merge(det, out, in.DocType, now)
	tr.move(StateDone, string(merged.Method))
	return merged, tr
}

// cached returns a previously stored vision payload for hash.
func (r *Router) cached(ctx context.Context, hash string) (vision.Output, bool) {
	if r.cache == nil || hash == "" {
		return vision.Output{}, false
	}
	raw, ok := r.cache.Get(ctx, cache.NamespaceVision, hash)
	if !ok {
		return vision.Output{}, false
	}
	out, err := vision.Parse(raw)
	if err != nil {
		r.logger.Warn("router.vision.cache_corrupt", "hash", hash, "error", err)
		r.cache.Invalidate(ctx, cache.NamespaceVision, hash)
		return vision.Output{}, false
	}
	return out, true
}

// callVision calls the extractor with a hard timeout per attempt, validates
// the payload and caches it.
func (r *Router) callVision(ctx context.Context, in Input, tr *Trace) (vision.Output, error) {
	if r.vision == nil {
		return vision.Output{}, errors.New("no vision extractor configured")
	}

	var (
		out     vision.Output
		lastErr error
	)
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		tr.ExternalCall = true
		tr.Attempts = attempt

		callCtx, cancel := context.WithTimeout(ctx, r.opts.VisionTimeout)
		start := time.Now()
		o, err := r.vision.Extract(callCtx, in.Image, in.MimeType)
		cancel()

		if err == nil {
			out, lastErr = o, nil
			break
		}
		lastErr = err
		event := "router.vision.failed"
		if errors.Is(err, context.DeadlineExceeded) {
			event = "router.vision.timeout"
		}
		r.logger.Warn(event,
			"hash", in.Hash,
			"attempt", attempt,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
	}
	if lastErr != nil {
		return vision.Output{}, perrors.NewExternalServiceError("router.vision", "vision", tr.Attempts, lastErr)
	}

	if err := extract.ValidateVisionJSON(out.Raw); err != nil {
		r.logger.Warn("router.vision.rejected", "hash", in.Hash, "error", err)
		return vision.Output{}, perrors.NewExternalServiceError("router.vision.schema", "vision", tr.Attempts, err)
	}

	if r.cache != nil && in.Hash != "" {
		r.cache.Set(ctx, cache.NamespaceVision, in.Hash, out.Raw, r.opts.VisionTTL)
	}
	return out, nil
}

func (r *Router) degrade(det extract.Result, tr *Trace, cause error) extract.Result {
	res := det.Clone()
	res.Degraded = true
	tr.move(StateDegraded, "vision_unavailable")
	r.logger.Warn("router.degraded",
		"doc_type", string(res.DocType),
		"confidence", res.Confidence,
		"attempts", tr.Attempts,
		"error", cause)
	return res
}
