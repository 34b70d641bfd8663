package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/vision"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

const (
	confidentInvoice = `ACME SUPPLY CO
INVOICE # INV-123
INVOICE DATE: 01/15/2024
TOTAL $45.20`

	weakInvoice = `ACME SUPPLY CO
TOTAL $45.20`

	visionInvoice = `{"doc_type": "invoice", "invoice_details": {"number": "INV-9", "date": null}, "financials": {"total_amount": 45.2}}`
)

type fakeVision struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) (vision.Output, error)
}

func (f *fakeVision) Extract(ctx context.Context, image []byte, mime string) (vision.Output, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.fn(ctx, n)
}

func (f *fakeVision) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func returning(raw string) *fakeVision {
	return &fakeVision{fn: func(context.Context, int) (vision.Output, error) {
		return vision.Parse([]byte(raw))
	}}
}

func newRouter(t *testing.T, ext vision.Extractor, c *cache.Cache) *Router {
	t.Helper()
	return New(ext, c, Options{
		VisionTimeout: 50 * time.Millisecond,
		Now:           func() time.Time { return testNow },
	}, nil)
}

func states(tr Trace) []State {
	out := []State{StateDeterministic}
	for _, t := range tr.Transitions {
		out = append(out, t.To)
	}
	return out
}

func equalStates(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoute_ConfidentSkipsVision(t *testing.T) {
	fv := returning(visionInvoice)
	r := newRouter(t, fv, nil)

	res, tr := r.Route(context.Background(), Input{Text: confidentInvoice, DocType: extract.DocTypeInvoice, Sequence: 3})

	if fv.Calls() != 0 {
		t.Errorf("vision called %d times", fv.Calls())
	}
	if tr.ExternalCall || tr.State != StateDone {
		t.Errorf("trace = %+v", tr)
	}
	if res.Method != extract.MethodDeterministic || res.Degraded {
		t.Errorf("method = %s degraded = %v", res.Method, res.Degraded)
	}
	if res.Sequence != 3 {
		t.Errorf("sequence = %d", res.Sequence)
	}
	if want := []State{StateDeterministic, StateDone}; !equalStates(states(tr), want) {
		t.Errorf("states = %v, want %v", states(tr), want)
	}
}

func TestRoute_MissingMandatoryUsesVision(t *testing.T) {
	fv := returning(visionInvoice)
	r := newRouter(t, fv, nil)

	res, tr := r.Route(context.Background(), Input{Text: weakInvoice, DocType: extract.DocTypeInvoice})

	if fv.Calls() != 1 || tr.Attempts != 1 || !tr.ExternalCall {
		t.Fatalf("calls = %d trace = %+v", fv.Calls(), tr)
	}
	want := []State{StateDeterministic, StateVisionPending, StateVisionDone, StateDone}
	if !equalStates(states(tr), want) {
		t.Errorf("states = %v, want %v", states(tr), want)
	}
	if tr.Transitions[0].Reason != "missing_mandatory" {
		t.Errorf("reason = %s", tr.Transitions[0].Reason)
	}

	if res.Method != extract.MethodHybrid {
		t.Errorf("method = %s, want hybrid", res.Method)
	}
	if got := res.Fields[extract.FieldInvoiceNumber]; got.Value != "INV-9" || got.Source != extract.SourceVision {
		t.Errorf("invoice number = %+v", got)
	}
	if got := res.Fields[extract.FieldVendor]; got.Source != extract.SourceDeterministic {
		t.Errorf("vendor = %+v", got)
	}
	if res.Confidence != vision.Confidence {
		t.Errorf("confidence = %v, want %v", res.Confidence, vision.Confidence)
	}
	if res.Degraded {
		t.Error("result should not be degraded")
	}
}

func TestRoute_TimeoutDegrades(t *testing.T) {
	fv := &fakeVision{fn: func(ctx context.Context, _ int) (vision.Output, error) {
		<-ctx.Done()
		return vision.Output{}, ctx.Err()
	}}
	r := newRouter(t, fv, nil)

	res, tr := r.Route(context.Background(), Input{Text: weakInvoice, DocType: extract.DocTypeInvoice})

	if fv.Calls() != 2 || tr.Attempts != 2 {
		t.Errorf("calls = %d attempts = %d, want 2", fv.Calls(), tr.Attempts)
	}
	if tr.State != StateDegraded || !res.Degraded {
		t.Errorf("final = %s degraded = %v", tr.State, res.Degraded)
	}
	if res.Method != extract.MethodDeterministic {
		t.Errorf("method = %s", res.Method)
	}
	if res.Confidence != 60 {
		t.Errorf("confidence = %v, want unchanged 60", res.Confidence)
	}
}

func TestRoute_RetrySucceeds(t *testing.T) {
	fv := &fakeVision{fn: func(_ context.Context, call int) (vision.Output, error) {
		if call == 1 {
			return vision.Output{}, errors.New("503 unavailable")
		}
		return vision.Parse([]byte(visionInvoice))
	}}
	r := newRouter(t, fv, nil)

	res, tr := r.Route(context.Background(), Input{Text: weakInvoice, DocType: extract.DocTypeInvoice})

	if tr.Attempts != 2 || tr.State != StateDone {
		t.Errorf("trace = %+v", tr)
	}
	if res.Degraded || res.Value(extract.FieldInvoiceNumber) != "INV-9" {
		t.Errorf("result = %+v", res)
	}
}

func TestRoute_SchemaRejectionDegrades(t *testing.T) {
	fv := &fakeVision{fn: func(context.Context, int) (vision.Output, error) {
		return vision.Output{
			DocType: extract.DocTypeInvoice,
			Fields: map[string]extract.Field{
				extract.FieldInvoiceNumber: {Value: "X", Confidence: vision.Confidence, Source: extract.SourceVision},
			},
			Raw: []byte(`{"vendor": {"name": "no doc type"}}`),
		}, nil
	}}
	r := newRouter(t, fv, nil)

	res, tr := r.Route(context.Background(), Input{Text: weakInvoice, DocType: extract.DocTypeInvoice})

	if tr.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", tr.Attempts)
	}
	if !res.Degraded || res.Has(extract.FieldInvoiceNumber) {
		t.Errorf("rejected payload leaked into result: %+v", res)
	}
}

func TestRoute_NoExtractor(t *testing.T) {
	r := newRouter(t, nil, nil)

	res, tr := r.Route(context.Background(), Input{Text: weakInvoice, DocType: extract.DocTypeInvoice})

	if tr.ExternalCall || tr.Attempts != 0 {
		t.Errorf("trace = %+v", tr)
	}
	if !res.Degraded || tr.State != StateDegraded {
		t.Errorf("expected degraded, got %+v", res)
	}
}

func TestRoute_VisionCache(t *testing.T) {
	c, err := cache.New(cache.Options{L1Size: 10})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	fv := returning(visionInvoice)
	r := newRouter(t, fv, c)
	in := Input{Text: weakInvoice, DocType: extract.DocTypeInvoice, Hash: "abc"}

	first, tr1 := r.Route(context.Background(), in)
	second, tr2 := r.Route(context.Background(), in)

	if fv.Calls() != 1 {
		t.Errorf("vision called %d times, want 1", fv.Calls())
	}
	if tr1.CacheHit || !tr2.CacheHit || tr2.ExternalCall {
		t.Errorf("first = %+v second = %+v", tr1, tr2)
	}
	if first.Value(extract.FieldInvoiceNumber) != second.Value(extract.FieldInvoiceNumber) {
		t.Error("cached result differs")
	}
}

func TestRoute_CorruptCacheEntryIsRefetched(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"not json", `not json`},
		{"stale schema", `{"vendor": {"name": "ACME"}}`},
		{"wrong types", `{"doc_type": "invoice", "vendor": "ACME"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := cache.New(cache.Options{L1Size: 10})
			if err != nil {
				t.Fatalf("cache: %v", err)
			}
			ctx := context.Background()
			c.Set(ctx, cache.NamespaceVision, "abc", []byte(tt.entry), 0)

			fv := returning(visionInvoice)
			r := newRouter(t, fv, c)

			_, tr := r.Route(ctx, Input{Text: weakInvoice, DocType: extract.DocTypeInvoice, Hash: "abc"})

			if tr.CacheHit || fv.Calls() != 1 {
				t.Errorf("cache hit = %v calls = %d", tr.CacheHit, fv.Calls())
			}
			raw, ok := c.Get(ctx, cache.NamespaceVision, "abc")
			if !ok || string(raw) == tt.entry {
				t.Errorf("cache entry = %q, want the fresh payload", raw)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	det := extract.Result{
		DocType: extract.DocTypeReceipt,
		Fields: map[string]extract.Field{
			extract.FieldTotal:  {Value: "10.00", Confidence: 95, Source: extract.SourceDeterministic},
			extract.FieldVendor: {Value: "det vendor", Confidence: 50, Source: extract.SourceDeterministic},
		},
		Confidence: 60,
		Method:     extract.MethodDeterministic,
	}
	out, err := vision.Parse([]byte(`{
		"doc_type": "invoice",
		"vendor": {"name": "Vision Vendor"},
		"financials": {"total_amount": 11},
		"line_items": [{"description": "Chips", "quantity": 1}]
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	t.Run("hint kept", func(t *testing.T) {
		res := Merge(det, out, extract.DocTypeReceipt, testNow)
		if res.DocType != extract.DocTypeReceipt {
			t.Errorf("doc type = %s", res.DocType)
		}
		if res.Value(extract.FieldTotal) != "10.00" {
			t.Errorf("tie should keep deterministic total, got %s", res.Value(extract.FieldTotal))
		}
		if res.Value(extract.FieldVendor) != "Vision Vendor" {
			t.Errorf("vendor = %s", res.Value(extract.FieldVendor))
		}
		if res.Method != extract.MethodHybrid {
			t.Errorf("method = %s", res.Method)
		}
		if len(res.LineItems) != 1 {
			t.Errorf("line items = %d", len(res.LineItems))
		}
	})

	t.Run("vision type used without hint", func(t *testing.T) {
		res := Merge(det, out, extract.DocTypeUnknown, testNow)
		if res.DocType != extract.DocTypeInvoice {
			t.Errorf("doc type = %s", res.DocType)
		}
		// Half the mandatory fields give 47.5, below the deterministic 60.
		if res.Confidence != 60 {
			t.Errorf("confidence = %v", res.Confidence)
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		Merge(det, out, extract.DocTypeUnknown, testNow)
		if det.Value(extract.FieldVendor) != "det vendor" || det.DocType != extract.DocTypeReceipt {
			t.Error("Merge modified its input")
		}
	})
}
