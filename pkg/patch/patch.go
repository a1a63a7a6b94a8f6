// Package patch repairs common upstream defects in raw asset mappings
// before validation. Heuristics are an ordered list of pure functions
// Raw -> (Raw, changes), composed left-to-right. Each heuristic is total:
// it never fails, and silently leaves values it cannot interpret untouched.
// The composed engine is idempotent.
package patch

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/certledger/certledger/pkg/record"
)

// Heuristic names, recorded in Change entries.
const (
	HeuristicDateFormat = "date_format"
	HeuristicMagnitude  = "magnitude_suffix"
	HeuristicCurrency   = "currency_format"
	HeuristicIdentifier = "identifier_case"
)

// Change records one heuristic firing on one field.
type Change struct {
	Field     string `json:"field"`
	Heuristic string `json:"heuristic"`
	Before    any    `json:"before"`
	After     any    `json:"after"`
}

// Heuristic is a single total repair function.
type Heuristic struct {
	Name  string
	Apply func(record.Raw) []Change
}

// slashDateLayout matches upstream producers that emit YYYY/MM/DD.
const slashDateLayout = "2006/01/02"

var magnitudePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)([kKmM])$`)

// Heuristics returns the fixed, ordered heuristic set. Order matters:
// later heuristics may see fields already normalized by earlier ones.
func Heuristics() []Heuristic {
	// Currency runs before magnitude: trimming may expose a string the
	// magnitude pattern matches, and converting it in the same pass is
	// what keeps the composed engine idempotent.
	return []Heuristic{
		{Name: HeuristicDateFormat, Apply: normalizeDates},
		{Name: HeuristicCurrency, Apply: normalizeCurrency},
		{Name: HeuristicMagnitude, Apply: normalizeMagnitudes},
		{Name: HeuristicIdentifier, Apply: normalizeIdentifier},
	}
}

// Apply runs every heuristic in order against a copy of raw and returns the
// patched mapping plus the ordered list of changes. An empty change list
// means nothing needed fixing.
func Apply(raw record.Raw) (record.Raw, []Change) {
	patched := raw.Clone()
	var changes []Change
	for _, h := range Heuristics() {
		changes = append(changes, h.Apply(patched)...)
	}
	return patched, changes
}

// sortedKeys gives heuristics a deterministic field visit order.
func sortedKeys(raw record.Raw) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isDateField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "date") || lower == "maturity"
}

// normalizeDates rewrites YYYY/MM/DD strings in date-like fields as
// ISO-8601. Strings that do not parse are left untouched.
func normalizeDates(raw record.Raw) []Change {
	var changes []Change
	for _, key := range sortedKeys(raw) {
		if !isDateField(key) {
			continue
		}
		s, ok := raw.String(key)
		if !ok || !strings.Contains(s, "/") {
			continue
		}
		t, err := time.Parse(slashDateLayout, s)
		if err != nil {
			continue
		}
		fixed := t.Format(record.ISO8601)
		raw[key] = fixed
		changes = append(changes, Change{Field: key, Heuristic: HeuristicDateFormat, Before: s, After: fixed})
	}
	return changes
}

// normalizeMagnitudes converts "5M" / "2.5k" style strings into numbers.
func normalizeMagnitudes(raw record.Raw) []Change {
	var changes []Change
	for _, key := range sortedKeys(raw) {
		s, ok := raw.String(key)
		if !ok {
			continue
		}
		m := magnitudePattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "k", "K":
			n *= 1_000
		case "m", "M":
			n *= 1_000_000
		}
		raw[key] = n
		changes = append(changes, Change{Field: key, Heuristic: HeuristicMagnitude, Before: s, After: n})
	}
	return changes
}

// normalizeCurrency strips whitespace and uppercases the currency code.
func normalizeCurrency(raw record.Raw) []Change {
	s, ok := raw.String(record.FieldCurrency)
	if !ok {
		return nil
	}
	fixed := strings.ToUpper(strings.TrimSpace(s))
	if fixed == s {
		return nil
	}
	raw[record.FieldCurrency] = fixed
	return []Change{{Field: record.FieldCurrency, Heuristic: HeuristicCurrency, Before: s, After: fixed}}
}

// normalizeIdentifier uppercases the designated identifier field.
func normalizeIdentifier(raw record.Raw) []Change {
	s, ok := raw.String(record.FieldID)
	if !ok {
		return nil
	}
	fixed := strings.ToUpper(s)
	if fixed == s {
		return nil
	}
	raw[record.FieldID] = fixed
	return []Change{{Field: record.FieldID, Heuristic: HeuristicIdentifier, Before: s, After: fixed}}
}
