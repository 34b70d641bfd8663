// Package merge groups per-page extraction results into logical documents.
//
// Pages are placed by four passes, each one only considering pages the
// previous passes left ungrouped:
//
//  1. identifier: same normalized invoice number
//  2. total: no identifier, total equal to the cent to exactly one earlier
//     identifier group
//  3. report: report pages sharing doc type, date and vendor
//  4. continuation: pages with no header fields join the group opened most
//     recently before them
//
// Anything else stays a single-page group. Output order follows page
// sequence, never the order results arrived in.
package merge

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/logging"
)

// Reason names the pass that formed a group.
type Reason string

const (
	ReasonIdentifier   Reason = "identifier"
	ReasonReport       Reason = "report"
	ReasonContinuation Reason = "continuation"
	ReasonStandalone   Reason = "standalone"
)

// headerFields are the fields whose absence marks a continuation page.
var headerFields = []string{
	extract.FieldInvoiceNumber,
	extract.FieldTotal,
	extract.FieldDate,
	extract.FieldVendor,
}

// Group is one logical document.
type Group struct {
	Key    string `json:"key,omitempty"`
	Reason Reason `json:"reason"`

	// Sequences lists the member pages in order.
	Sequences []int `json:"sequences"`

	// Result is the merged document. For a single page it is the page
	// result unchanged.
	Result extract.Result `json:"result"`

	// Ambiguity explains why a standalone page was not grouped.
	Ambiguity string `json:"ambiguity,omitempty"`

	// Repeats lists member pages whose line items were left out because
	// they equal an earlier member's full item list.
	Repeats []Repeat `json:"repeats,omitempty"`

	pages []extract.Result
}

// Repeat records a page that rescanned an earlier page.
type Repeat struct {
	Sequence int `json:"sequence"`
	RepeatOf int `json:"repeat_of"`
}

// Pages returns the member page results ordered by sequence.
func (g Group) Pages() []extract.Result {
	return append([]extract.Result(nil), g.pages...)
}

// Ambiguities returns a MergeAmbiguity error for every page that was left
// standalone because its placement was uncertain, and for every page whose
// line items were dropped as a repeat.
func Ambiguities(groups []Group) []error {
	var out []error
	for _, g := range groups {
		if g.Ambiguity != "" && len(g.Sequences) == 1 {
			out = append(out, perrors.NewMergeAmbiguityError(g.Sequences[0], g.Ambiguity))
		}
		for _, r := range g.Repeats {
			out = append(out, perrors.NewRepeatedPageError(r.Sequence, r.RepeatOf))
		}
	}
	return out
}

// Options tune a Merger.
type Options struct {
	// Now is the clock used to revalidate merged results. Default time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Merger groups page results.
type Merger struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Merger.
func New(opts Options) *Merger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Merger{now: opts.Now, logger: logging.OrNop(opts.Logger)}
}

// Pages groups results with a default Merger.
func Pages(results []extract.Result) []Group {
	return New(Options{}).Pages(results)
}

// building is a group under construction.
type building struct {
	key    string
	reason Reason
	pages  []extract.Result
	total  int64
	hasTot bool
	anchor int
	latest int
	ambig  string
}

func (b *building) add(p extract.Result) {
	b.pages = append(b.pages, p)
	if p.Sequence > b.latest {
		b.latest = p.Sequence
	}
	if p.Sequence < b.anchor {
		b.anchor = p.Sequence
	}
	if !b.hasTot {
		b.total, b.hasTot = cents(p.Value(extract.FieldTotal))
	}
}

func newBuilding(key string, reason Reason, p extract.Result) *building {
	b := &building{key: key, reason: reason, anchor: p.Sequence, latest: p.Sequence}
	b.add(p)
	return b
}

// Pages groups results into documents.
func (m *Merger) Pages(results []extract.Result) []Group {
	if len(results) == 0 {
		return nil
	}

	pages := make([]extract.Result, len(results))
	copy(pages, results)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Sequence < pages[j].Sequence })

	var (
		groups []*building
		byID   = make(map[string]*building)
		placed = make([]bool, len(pages))
		ambigs = make(map[int]string)
	)

	// Pass 1: identifier.
	for i, p := range pages {
		if p.DocType == extract.DocTypeID {
			continue
		}
		id := normalizeID(p.Value(extract.FieldInvoiceNumber))
		if id == "" {
			continue
		}
		if g, ok := byID[id]; ok {
			g.add(p)
		} else {
			g = newBuilding(id, ReasonIdentifier, p)
			byID[id] = g
			groups = append(groups, g)
		}
		placed[i] = true
	}
	idGroups := append([]*building(nil), groups...)

	// Pass 2: total, against identifier groups opened before the page.
	for i, p := range pages {
		if placed[i] || p.DocType == extract.DocTypeID {
			continue
		}
		total, ok := cents(p.Value(extract.FieldTotal))
		if !ok {
			continue
		}
		var match []*building
		for _, g := range idGroups {
			if g.hasTot && g.total == total && g.anchor < p.Sequence {
				match = append(match, g)
			}
		}
		switch len(match) {
		case 0:
		case 1:
			match[0].add(p)
			placed[i] = true
		default:
			ambigs[p.Sequence] = fmt.Sprintf("total %s matches %d documents", p.Value(extract.FieldTotal), len(match))
		}
	}

	// Pass 3: report pages by type, date and vendor.
	byReport := make(map[string]*building)
	for i, p := range pages {
		if placed[i] || !p.DocType.IsReport() {
			continue
		}
		date := extract.NormalizeDate(p.Value(extract.FieldDate))
		vendor := strings.ToUpper(strings.TrimSpace(p.Value(extract.FieldVendor)))
		if date == "" || vendor == "" {
			continue
		}
		key := string(p.DocType) + "|" + date + "|" + vendor
		if g, ok := byReport[key]; ok {
			g.add(p)
		} else {
			g = newBuilding(key, ReasonReport, p)
			byReport[key] = g
			groups = append(groups, g)
		}
		placed[i] = true
	}

	// Pass 4: continuation pages.
	var loose []int
	for i, p := range pages {
		if placed[i] || !headerless(p) {
			continue
		}
		var target *building
		for _, g := range groups {
			if g.latest < p.Sequence && (target == nil || g.latest > target.latest) {
				target = g
			}
		}
		if target == nil {
			if p.DocType.IsReport() {
				loose = append(loose, i)
			}
			continue
		}
		target.add(p)
		placed[i] = true
	}
	if len(loose) > 1 {
		g := newBuilding("", ReasonContinuation, pages[loose[0]])
		placed[loose[0]] = true
		for _, i := range loose[1:] {
			g.add(pages[i])
			placed[i] = true
		}
		groups = append(groups, g)
	}

	for i, p := range pages {
		if placed[i] {
			continue
		}
		g := newBuilding("", ReasonStandalone, p)
		g.ambig = ambigs[p.Sequence]
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].anchor < groups[j].anchor })

	out := make([]Group, 0, len(groups))
	for _, b := range groups {
		out = append(out, m.finish(b))
	}
	m.logger.Debug("merge.grouped", "pages", len(pages), "groups", len(out))
	return out
}

func (m *Merger) finish(b *building) Group {
	sort.SliceStable(b.pages, func(i, j int) bool { return b.pages[i].Sequence < b.pages[j].Sequence })

	g := Group{
		Key:       b.key,
		Reason:    b.reason,
		Sequences: make([]int, len(b.pages)),
		Ambiguity: b.ambig,
		pages:     b.pages,
	}
	for i, p := range b.pages {
		g.Sequences[i] = p.Sequence
	}
	if len(b.pages) == 1 {
		g.Result = b.pages[0].Clone()
		return g
	}
	g.Result, g.Repeats = m.combine(b.pages)
	return g
}

// combine merges ordered pages into the anchor's result and reports the
// pages whose items were skipped as repeats.
func (m *Merger) combine(pages []extract.Result) (extract.Result, []Repeat) {
	res := pages[0].Clone()
	res.LineItems = []extract.LineItem{}
	res.OriginalFilenames = make([]string, 0, len(pages))

	var (
		seen    []extract.Result
		repeats []Repeat
	)
	methods := make(map[extract.Method]bool)
	for _, p := range pages {
		res.OriginalFilenames = append(res.OriginalFilenames, p.SourceFile)
		methods[p.Method] = true

		names := make([]string, 0, len(p.Fields))
		for name := range p.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !res.Has(name) && p.Has(name) {
				res.Fields[name] = p.Fields[name]
			}
		}

		if of, ok := repeatOf(seen, p.LineItems); ok {
			repeats = append(repeats, Repeat{Sequence: p.Sequence, RepeatOf: of})
			m.logger.Info("merge.page.repeat", "sequence", p.Sequence, "repeat_of", of, "items", len(p.LineItems))
		} else {
			res.LineItems = append(res.LineItems, p.LineItems...)
			if len(p.LineItems) > 0 {
				seen = append(seen, p)
			}
		}

		if p.Confidence > res.Confidence {
			res.Confidence = p.Confidence
		}
		if p.Degraded {
			res.Degraded = true
		}
		if res.DocType == extract.DocTypeUnknown && p.DocType != extract.DocTypeUnknown {
			res.DocType = p.DocType
		}
	}

	if len(methods) > 1 {
		res.Method = extract.MethodHybrid
	}
	res.IsMerged = true
	res.MergedPageCount = len(pages)
	res.Validation = extract.Validate(res, m.now())
	return res, repeats
}

// repeatOf returns the sequence of the earlier page whose full item list
// equals items. A rescanned page contributes nothing new.
func repeatOf(seen []extract.Result, items []extract.LineItem) (int, bool) {
	if len(items) == 0 {
		return 0, false
	}
next:
	for _, prev := range seen {
		if len(prev.LineItems) != len(items) {
			continue
		}
		for i := range items {
			if !sameItem(prev.LineItems[i], items[i]) {
				continue next
			}
		}
		return prev.Sequence, true
	}
	return 0, false
}

func sameItem(a, b extract.LineItem) bool {
	return strings.EqualFold(strings.TrimSpace(a.Description), strings.TrimSpace(b.Description)) &&
		a.Quantity == b.Quantity && a.UnitPrice == b.UnitPrice && a.Total == b.Total
}

func headerless(p extract.Result) bool {
	if p.DocType == extract.DocTypeID {
		return false
	}
	for _, name := range headerFields {
		if p.Has(name) {
			return false
		}
	}
	return true
}

func normalizeID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimLeft(s, "#")
	return strings.Join(strings.Fields(s), "")
}

// cents parses an amount into integer cents.
func cents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(extract.NormalizeAmount(s), 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(v * 100)), true
}
