package router

import (
	"sort"
	"time"

	"github.com/sam02425/Document-Portal/internal/extract"
	"github.com/sam02425/Document-Portal/internal/vision"
)

// Merge combines a deterministic result with vision output field by field.
// The source with the higher per-field confidence wins; ties keep the
// deterministic value.
//
// The document type stays the caller's hint when one was given, otherwise a
// known vision type replaces the keyword guess. Vision line items are used
// when the regex extractor found none. Confidence becomes the vision
// confidence scaled by the share of mandatory fields present, and never
// drops below the deterministic confidence.
func Merge(det extract.Result, out vision.Output, hint extract.DocType, now time.Time) extract.Result {
	res := det.Clone()

	if (hint == "" || hint == extract.DocTypeUnknown) && out.DocType != extract.DocTypeUnknown && out.DocType != "" {
		res.DocType = out.DocType
	}

	names := make([]string, 0, len(out.Fields))
	for name := range out.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := out.Fields[name]
		d, ok := res.Fields[name]
		if !ok || v.Confidence > d.Confidence {
			res.Fields[name] = v
		}
	}

	if len(res.LineItems) == 0 && len(out.LineItems) > 0 {
		res.LineItems = append([]extract.LineItem(nil), out.LineItems...)
	}

	var fromDet, fromVision bool
	for _, f := range res.Fields {
		switch f.Source {
		case extract.SourceVision:
			fromVision = true
		default:
			fromDet = true
		}
	}
	switch {
	case fromVision && fromDet:
		res.Method = extract.MethodHybrid
	case fromVision:
		res.Method = extract.MethodVision
	default:
		res.Method = extract.MethodDeterministic
	}

	if fromVision {
		req := extract.Mandatory(res.DocType)
		share := 1.0
		if len(req) > 0 {
			share = float64(len(req)-len(res.MissingMandatory())) / float64(len(req))
		}
		if c := vision.Confidence * share; c > res.Confidence {
			res.Confidence = c
		}
	}
	if res.Confidence > 100 {
		res.Confidence = 100
	}

	res.Validation = extract.Validate(res, now)
	return res
}
