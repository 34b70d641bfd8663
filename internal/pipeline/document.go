package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/imaging"
	"github.com/sam02425/Document-Portal/internal/match"
	"github.com/sam02425/Document-Portal/internal/merge"
)

// Document is the outcome of ProcessDocument.
type Document struct {
	RequestID string        `json:"request_id"`
	Pages     []Page        `json:"pages"`
	Groups    []merge.Group `json:"groups"`

	// Ambiguities lists pages the merger left standalone or whose items it
	// dropped as a repeat of an earlier page.
	Ambiguities []string `json:"ambiguities,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
}

// Results returns the merged result of every group.
func (d Document) Results() []extract.Result {
	out := make([]extract.Result, len(d.Groups))
	for i, g := range d.Groups {
		out[i] = g.Result
	}
	return out
}

// ProcessDocument runs every page and merges the results. Page i gets
// sequence i.
func (p *Pipeline) ProcessDocument(ctx context.Context, pages [][]byte, hint extract.DocType) (Document, error) {
	inputs := make([]PageInput, len(pages))
	for i, data := range pages {
		inputs[i] = PageInput{Name: fmt.Sprintf("page-%d", i+1), Data: data}
	}
	return p.Process(ctx, inputs, hint, DefaultCallerID)
}

// Process runs named pages concurrently, at most PageWorkers at a time, and
// merges them. An undecodable page fails the whole document; every other
// problem is carried on the page result.
func (p *Pipeline) Process(ctx context.Context, inputs []PageInput, hint extract.DocType, callerID string) (Document, error) {
	start := time.Now()
	doc := Document{RequestID: uuid.NewString(), Pages: make([]Page, len(inputs))}
	logger := p.logger.With("request_id", doc.RequestID)
	logger.Info("pipeline.document.start", "pages", len(inputs), "doc_type", string(hint))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.PageWorkers)
	for i, in := range inputs {
		seq, in := i, in
		eg.Go(func() error {
			page, err := p.page(gctx, in, seq, hint, callerID)
			if err != nil {
				return fmt.Errorf("page %d: %w", seq+1, err)
			}
			doc.Pages[seq] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logger.Warn("pipeline.document.failed", "error", err)
		return Document{}, err
	}

	markDuplicates(doc.Pages, logger)

	results := make([]extract.Result, len(doc.Pages))
	for i, page := range doc.Pages {
		results[i] = page.Result
	}
	doc.Groups = p.merger.Pages(results)
	for _, err := range merge.Ambiguities(doc.Groups) {
		doc.Ambiguities = append(doc.Ambiguities, err.Error())
	}

	doc.DurationMS = time.Since(start).Milliseconds()
	logger.Info("pipeline.document.done",
		"pages", len(doc.Pages),
		"groups", len(doc.Groups),
		"duration_ms", doc.DurationMS)
	return doc, nil
}

// MergePages groups page results into documents.
func (p *Pipeline) MergePages(results []extract.Result) []merge.Group {
	return p.merger.Pages(results)
}

// MatchIdentity compares the identity fields of two records.
func (p *Pipeline) MatchIdentity(a, b match.Record, fields []match.Field) match.Report {
	return match.Compare(a, b, fields, p.opts.StrictNames)
}

// nearDuplicateBits is the largest signature distance at which two pages
// count as the same photo.
const nearDuplicateBits = 3

// markDuplicates points each page at the first earlier page it nearly
// duplicates. Pages are still extracted and merged; the merger drops
// repeated line items on its own.
func markDuplicates(pages []Page, logger *slog.Logger) {
	for j := range pages {
		for i := 0; i < j; i++ {
			if imaging.Hamming(pages[i].signature, pages[j].signature) > nearDuplicateBits {
				continue
			}
			seq := pages[i].Sequence
			pages[j].DuplicateOf = &seq
			logger.Info("pipeline.page.near_duplicate", "sequence", pages[j].Sequence, "duplicate_of", seq)
			break
		}
	}
}
