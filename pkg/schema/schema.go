// Package schema validates raw asset mappings against the declared record
// schema plus the current policy snapshot. Structural constraints are
// enforced with a compiled JSON Schema; semantic constraints (policy
// currency membership, amount thresholds, calendar validity) are checked
// by hand. All violations are collected, never short-circuited, so a
// rejection enumerates every broken constraint at once.
package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/certledger/certledger/pkg/policy"
	"github.com/certledger/certledger/pkg/record"
)

// assetSchema is the structural contract for an asset record. Semantic,
// policy-dependent rules live in Validate and are re-evaluated on every
// call against the snapshot passed in.
const assetSchema = `{
	"type": "object",
	"required": ["isin", "currency", "face_value", "issuer"],
	"properties": {
		"isin": {"type": "string", "pattern": "^[A-Z]{2}[A-Z0-9]{10}$"},
		"currency": {"type": "string", "minLength": 3, "maxLength": 3},
		"face_value": {"type": "number", "exclusiveMinimum": 0},
		"issuer": {"type": "string", "minLength": 3},
		"category": {"type": "string", "enum": ["Stock", "Bond", "Derivative", "FX"]},
		"maturity_date": {"type": "string"},
		"documents": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

// maturityLayouts are the accepted calendar timestamp forms, tried in order.
var maturityLayouts = []string{record.ISO8601, time.RFC3339, "2006-01-02"}

var quotedName = regexp.MustCompile(`'([^']+)'`)

// Validator validates candidate records. Safe for concurrent use.
type Validator struct {
	structural *jsonschema.Schema
}

// NewValidator compiles the structural schema. The schema is a compile-time
// constant, so failure here is a programming error.
func NewValidator() *Validator {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("asset.schema.json", strings.NewReader(assetSchema)); err != nil {
		panic(fmt.Sprintf("schema: load structural schema: %v", err))
	}
	compiled, err := c.Compile("asset.schema.json")
	if err != nil {
		panic(fmt.Sprintf("schema: compile structural schema: %v", err))
	}
	return &Validator{structural: compiled}
}

// Validate checks raw against the record schema and the given policy
// snapshot. On success it returns the typed AssetRecord and a nil violation
// list; on failure it returns nil and every broken constraint, ordered
// deterministically by field. Validate is side-effect-free.
func (v *Validator) Validate(raw record.Raw, pol policy.Policy) (*record.AssetRecord, []Violation) {
	normalized, err := normalize(raw)
	if err != nil {
		return nil, []Violation{{Field: "", Code: CodeType, Message: fmt.Sprintf("input is not a JSON object: %v", err)}}
	}

	var violations []Violation
	if err := v.structural.Validate(map[string]any(normalized)); err != nil {
		violations = flatten(err)
	}
	violations = append(violations, semanticChecks(normalized, pol)...)

	sort.Slice(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})

	if len(violations) > 0 {
		return nil, violations
	}
	return buildAsset(normalized), nil
}

// normalize round-trips raw through JSON so every value has a pure JSON
// shape (float64 numbers, []any lists), whatever the caller constructed.
func normalize(raw record.Raw) (record.Raw, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// semanticChecks enforces the rules the structural schema cannot express.
// Each check only fires when the field is structurally sound; structural
// violations for the same field are already on the list.
func semanticChecks(raw record.Raw, pol policy.Policy) []Violation {
	var violations []Violation

	if code, ok := raw.String(record.FieldCurrency); ok && len(code) == 3 {
		switch {
		case len(pol.AllowedCurrencies) == 0:
			// Fail closed: a policy without an allowed-currency set
			// rejects rather than silently passing.
			violations = append(violations, Violation{
				Field:   record.FieldCurrency,
				Code:    CodePolicy,
				Message: "no allowed-currency set defined in current policy; rejecting",
			})
		case !pol.Allows(code):
			violations = append(violations, Violation{
				Field:   record.FieldCurrency,
				Code:    CodePolicy,
				Message: fmt.Sprintf("currency %q is not allowed by current policy (allowed: %s)", code, strings.Join(pol.AllowedCurrencies, ", ")),
			})
		}
	}

	if amount, ok := raw.Number(record.FieldAmount); ok && amount > 0 && !pol.MinAmount.IsZero() {
		if decimal.NewFromFloat(amount).LessThan(pol.MinAmount) {
			violations = append(violations, Violation{
				Field:   record.FieldAmount,
				Code:    CodeRange,
				Message: fmt.Sprintf("amount %v is below the policy minimum %s", amount, pol.MinAmount),
			})
		}
	}

	if s, ok := raw.String(record.FieldMaturity); ok {
		if _, err := parseMaturity(s); err != nil {
			violations = append(violations, Violation{
				Field:   record.FieldMaturity,
				Code:    CodeFormat,
				Message: fmt.Sprintf("%q is not a valid calendar timestamp", s),
			})
		}
	}

	return violations
}

func parseMaturity(s string) (time.Time, error) {
	for _, layout := range maturityLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// buildAsset converts a structurally and semantically valid mapping into
// the typed record. Extraction cannot fail here: every reached field has
// already passed validation.
func buildAsset(raw record.Raw) *record.AssetRecord {
	asset := &record.AssetRecord{}
	asset.ID, _ = raw.String(record.FieldID)
	asset.Issuer, _ = raw.String(record.FieldIssuer)
	asset.Currency, _ = raw.String(record.FieldCurrency)
	asset.Amount, _ = raw.Number(record.FieldAmount)

	if s, ok := raw.String(record.FieldCategory); ok {
		if c, err := record.ParseCategory(s); err == nil {
			asset.Category = c
		}
	}
	if s, ok := raw.String(record.FieldMaturity); ok {
		if t, err := parseMaturity(s); err == nil {
			asset.Maturity = &t
		}
	}
	if docs, ok := raw[record.FieldDocuments].([]any); ok {
		for _, d := range docs {
			if s, ok := d.(string); ok {
				asset.Documents = append(asset.Documents, s)
			}
		}
	}
	return asset
}

// flatten walks a jsonschema validation error tree and converts every leaf
// cause into a field-level violation.
func flatten(err error) []Violation {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Violation{{Field: "", Code: CodeFormat, Message: err.Error()}}
	}

	var violations []Violation
	for _, leaf := range leafCauses(ve) {
		violations = append(violations, leafToViolations(leaf)...)
	}
	return violations
}

func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var leaves []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		leaves = append(leaves, leafCauses(c)...)
	}
	return leaves
}

func leafToViolations(leaf *jsonschema.ValidationError) []Violation {
	keyword := leaf.KeywordLocation
	if i := strings.LastIndex(keyword, "/"); i >= 0 {
		keyword = keyword[i+1:]
	}

	// required violations sit at the object root; split them into one
	// violation per missing property.
	if keyword == "required" {
		var violations []Violation
		for _, name := range missingProperties(leaf.Message) {
			violations = append(violations, Violation{
				Field:   name,
				Code:    CodeMissing,
				Message: fmt.Sprintf("required field %q is missing", name),
			})
		}
		if len(violations) > 0 {
			return violations
		}
	}

	field := strings.TrimPrefix(leaf.InstanceLocation, "/")
	field = strings.ReplaceAll(field, "/", ".")

	var code string
	switch keyword {
	case "required":
		code = CodeMissing
	case "type":
		code = CodeType
	case "exclusiveMinimum", "minimum", "maximum":
		code = CodeRange
	default:
		code = CodeFormat
	}

	return []Violation{{Field: field, Code: code, Message: leaf.Message}}
}

// missingProperties extracts property names from a "missing properties"
// message, whether or not the library quoted them.
func missingProperties(msg string) []string {
	if names := quotedName.FindAllStringSubmatch(msg, -1); len(names) > 0 {
		out := make([]string, len(names))
		for i, m := range names {
			out[i] = m[1]
		}
		return out
	}

	const prefix = "missing properties"
	i := strings.Index(msg, prefix)
	if i < 0 {
		return nil
	}
	rest := strings.TrimLeft(msg[i+len(prefix):], ": ")
	var out []string
	for _, name := range strings.Split(rest, ",") {
		if name = strings.Trim(name, ` '"`); name != "" {
			out = append(out, name)
		}
	}
	return out
}
