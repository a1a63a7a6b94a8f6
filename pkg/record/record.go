// Package record defines the asset record data model: the untyped raw
// mapping that arrives from upstream producers, and the typed AssetRecord
// that validation produces from it.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known field names in a raw asset mapping.
const (
	FieldID        = "isin"
	FieldCategory  = "category"
	FieldIssuer    = "issuer"
	FieldAmount    = "face_value"
	FieldCurrency  = "currency"
	FieldMaturity  = "maturity_date"
	FieldDocuments = "documents"
)

// ISO8601 is the canonical timestamp layout for maturity dates.
// No zone designator: maturity is a calendar timestamp, not an instant.
const ISO8601 = "2006-01-02T15:04:05"

// Raw is an untyped key-value mapping as received from an input source.
// Values are JSON-shaped: string, float64, bool, nil, []any, map[string]any.
type Raw map[string]any

// Clone returns a copy of the mapping. Nested slices are copied; nested
// maps are copied one level deep, which covers every shape the pipeline
// produces.
func (r Raw) Clone() Raw {
	if r == nil {
		return nil
	}
	out := make(Raw, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case []any:
			cp := make([]any, len(t))
			copy(cp, t)
			out[k] = cp
		case map[string]any:
			cp := make(map[string]any, len(t))
			for mk, mv := range t {
				cp[mk] = mv
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// String returns the value under key if it is a string.
func (r Raw) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns the value under key as a float64 if it is numeric.
func (r Raw) Number(key string) (float64, bool) {
	switch t := r[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Category is the fixed asset classification enum.
type Category string

const (
	CategoryStock      Category = "Stock"
	CategoryBond       Category = "Bond"
	CategoryDerivative Category = "Derivative"
	CategoryFX         Category = "FX"
)

// Categories lists every valid category, in declaration order.
func Categories() []Category {
	return []Category{CategoryStock, CategoryBond, CategoryDerivative, CategoryFX}
}

// ParseCategory maps a string onto the category enum.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if s == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// AssetRecord is a validated financial-asset record. An AssetRecord is only
// ever meaningful relative to the policy snapshot it was validated against;
// the same raw bytes can validate under one policy and fail under another.
type AssetRecord struct {
	ID        string     `json:"isin"`
	Category  Category   `json:"category,omitempty"`
	Issuer    string     `json:"issuer"`
	Amount    float64    `json:"face_value"`
	Currency  string     `json:"currency"`
	Maturity  *time.Time `json:"maturity_date,omitempty"`
	Documents []string   `json:"documents,omitempty"`
}

// CanonicalMap renders the record as a mapping of primitive values suitable
// for canonicalization and hashing: maturity as an ISO-8601 string, amount
// as a plain number, optional fields omitted when unset.
func (a *AssetRecord) CanonicalMap() map[string]any {
	m := map[string]any{
		FieldID:       a.ID,
		FieldIssuer:   a.Issuer,
		FieldAmount:   a.Amount,
		FieldCurrency: a.Currency,
	}
	if a.Category != "" {
		m[FieldCategory] = string(a.Category)
	}
	if a.Maturity != nil {
		m[FieldMaturity] = a.Maturity.Format(ISO8601)
	}
	if len(a.Documents) > 0 {
		docs := make([]any, len(a.Documents))
		for i, d := range a.Documents {
			docs[i] = d
		}
		m[FieldDocuments] = docs
	}
	return m
}
