// Package vision calls an external multimodal model to read documents the
// regex extractor could not.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sam02425/Document-Portal/internal/extract"
)

// Confidence is the per-field confidence assigned to vision output.
const Confidence = 95.0

// Extractor reads a document image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mime string) (Output, error)
}

// Output is a parsed vision payload.
type Output struct {
	DocType   extract.DocType          `json:"doc_type"`
	Fields    map[string]extract.Field `json:"fields"`
	LineItems []extract.LineItem       `json:"line_items"`

	// Raw is the payload exactly as the model returned it.
	Raw json.RawMessage `json:"-"`
}

// text decodes a JSON string, number or null into a string.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	default:
		*t = text(b)
	}
	return nil
}

// amount decodes a JSON number or numeric string. Null, empty and
// unreadable values decode as not present.
type amount struct {
	value float64
	ok    bool
}

func (a *amount) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	s := strings.TrimSpace(strings.TrimPrefix(string(t), "$"))
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	*a = amount{value: f, ok: s != "" && err == nil}
	return nil
}

type payload struct {
	DocType string `json:"doc_type"`
	Vendor  *struct {
		Name text `json:"name"`
	} `json:"vendor"`
	InvoiceDetails *struct {
		Number text `json:"number"`
		Date   text `json:"date"`
	} `json:"invoice_details"`
	Financials *struct {
		TotalAmount amount `json:"total_amount"`
		BalanceDue  amount `json:"balance_due"`
	} `json:"financials"`
	LineItems []struct {
		Description text   `json:"description"`
		Brand       text   `json:"brand"`
		UPC         text   `json:"upc"`
		SKU         text   `json:"sku"`
		Quantity    amount `json:"quantity"`
		UOM         text   `json:"unit_of_measure"`
		PackSize    text   `json:"pack_size"`
		UnitPrice   amount `json:"unit_price"`
		TotalPrice  amount `json:"total_price"`
	} `json:"line_items"`
	ShiftReport *struct {
		Date       text   `json:"date"`
		TotalSales amount `json:"total_sales"`
	} `json:"shift_report_details"`
	Identity map[string]text `json:"identity"`
}

var identityFields = []string{
	extract.FieldName,
	extract.FieldAddress,
	extract.FieldLicenseNumber,
	extract.FieldDOB,
	extract.FieldExpiration,
	extract.FieldIssueDate,
	extract.FieldSex,
	extract.FieldHeight,
}

// Parse validates raw against the vision schema and maps it onto extract
// field names. Line item units are standardized.
func Parse(raw []byte) (Output, error) {
	if err := extract.ValidateVisionJSON(raw); err != nil {
		return Output{}, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Output{}, fmt.Errorf("decode vision output: %w", err)
	}

	docType, err := extract.ParseDocType(p.DocType)
	if err != nil {
		docType = extract.DocTypeUnknown
	}

	out := Output{
		DocType:   docType,
		Fields:    make(map[string]extract.Field),
		LineItems: make([]extract.LineItem, 0, len(p.LineItems)),
		Raw:       append(json.RawMessage(nil), raw...),
	}
	set := func(name string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			out.Fields[name] = extract.Field{Value: value, Confidence: Confidence, Source: extract.SourceVision}
		}
	}

	if p.Vendor != nil {
		set(extract.FieldVendor, string(p.Vendor.Name))
	}
	if p.InvoiceDetails != nil {
		set(extract.FieldInvoiceNumber, string(p.InvoiceDetails.Number))
		set(extract.FieldDate, string(p.InvoiceDetails.Date))
	}
	if p.Financials != nil {
		switch {
		case p.Financials.TotalAmount.ok:
			set(extract.FieldTotal, formatAmount(p.Financials.TotalAmount))
		case p.Financials.BalanceDue.ok:
			set(extract.FieldTotal, formatAmount(p.Financials.BalanceDue))
		}
	}
	if p.ShiftReport != nil {
		if _, ok := out.Fields[extract.FieldTotal]; !ok && p.ShiftReport.TotalSales.ok {
			set(extract.FieldTotal, formatAmount(p.ShiftReport.TotalSales))
		}
		if _, ok := out.Fields[extract.FieldDate]; !ok {
			set(extract.FieldDate, string(p.ShiftReport.Date))
		}
	}
	for _, name := range identityFields {
		set(name, string(p.Identity[name]))
	}

	for _, li := range p.LineItems {
		out.LineItems = append(out.LineItems, extract.StandardizeLineItem(extract.LineItem{
			Description: string(li.Description),
			Quantity:    li.Quantity.value,
			UnitPrice:   li.UnitPrice.value,
			Total:       li.TotalPrice.value,
			UOM:         string(li.UOM),
			PackSize:    string(li.PackSize),
			SKU:         string(li.SKU),
			UPC:         string(li.UPC),
			Brand:       string(li.Brand),
		}))
	}
	return out, nil
}

func formatAmount(a amount) string {
	return strconv.FormatFloat(a.value, 'f', 2, 64)
}
