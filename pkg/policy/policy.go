// Package policy holds the mutable business rules that validation is
// evaluated against. The process owns a single Store; every validation
// call reads the current snapshot at call time, and the snapshot may be
// replaced wholesale at any point (simulating a regulatory change).
package policy

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Policy is one immutable snapshot of the rule set.
type Policy struct {
	// AllowedCurrencies is the set of 3-letter codes records may carry.
	// An empty set makes currency validation fail closed.
	AllowedCurrencies []string `json:"allowed_currencies" yaml:"allowed_currencies"`

	// MinAmount is an optional lower bound on the monetary amount.
	// Zero means only strict positivity is enforced.
	MinAmount decimal.Decimal `json:"min_amount,omitempty" yaml:"min_amount,omitempty"`
}

// Default returns the startup policy.
func Default() Policy {
	return Policy{AllowedCurrencies: []string{"USD", "EUR", "GBP", "NGN"}}
}

// Allows reports whether code is in the allowed-currency set.
func (p Policy) Allows(code string) bool {
	for _, c := range p.AllowedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

func (p Policy) clone() Policy {
	cp := p
	cp.AllowedCurrencies = append([]string(nil), p.AllowedCurrencies...)
	return cp
}

// Store is the process-wide policy holder. Reads hand out snapshot copies,
// never references into the stored state.
type Store struct {
	mu      sync.RWMutex
	current Policy
}

// NewStore creates a store seeded with p.
func NewStore(p Policy) *Store {
	return &Store{current: p.clone()}
}

// Current returns a copy of the policy in effect right now.
func (s *Store) Current() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Update replaces the policy wholesale. In-flight validations keep the
// snapshot they already took.
func (s *Store) Update(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p.clone()
}
