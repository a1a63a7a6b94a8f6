package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/pkg/policy"
	"github.com/certledger/certledger/pkg/record"
)

func validRaw() record.Raw {
	return record.Raw{
		"isin":          "US1234567890",
		"currency":      "USD",
		"face_value":    5000000.0,
		"issuer":        "Global Corp",
		"maturity_date": "2030-01-01T00:00:00",
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	v := NewValidator()

	asset, violations := v.Validate(validRaw(), policy.Default())
	require.Empty(t, violations)
	require.NotNil(t, asset)

	assert.Equal(t, "US1234567890", asset.ID)
	assert.Equal(t, "USD", asset.Currency)
	assert.Equal(t, 5000000.0, asset.Amount)
	assert.Equal(t, "Global Corp", asset.Issuer)
	require.NotNil(t, asset.Maturity)
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), *asset.Maturity)
}

func TestValidateMissingRequiredField(t *testing.T) {
	v := NewValidator()
	raw := validRaw()
	delete(raw, "issuer")

	asset, violations := v.Validate(raw, policy.Default())
	assert.Nil(t, asset)
	require.Len(t, violations, 1)
	assert.Equal(t, "issuer", violations[0].Field)
	assert.Equal(t, CodeMissing, violations[0].Code)
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	v := NewValidator()
	raw := record.Raw{
		"isin":          "short",           // bad format
		"currency":      "usd ",            // not 3 chars
		"face_value":    -5.0,              // not positive
		"maturity_date": "not a timestamp", // unparseable
		// issuer missing entirely
	}

	asset, violations := v.Validate(raw, policy.Default())
	assert.Nil(t, asset)

	fields := map[string]bool{}
	for _, viol := range violations {
		fields[viol.Field] = true
	}
	for _, want := range []string{"isin", "currency", "face_value", "maturity_date", "issuer"} {
		assert.True(t, fields[want], "expected a violation on %s, got %v", want, violations)
	}
}

func TestValidateWrongTypeIsViolationNotCrash(t *testing.T) {
	v := NewValidator()
	raw := validRaw()
	raw["face_value"] = "lots"
	raw["documents"] = "not-a-list"

	asset, violations := v.Validate(raw, policy.Default())
	assert.Nil(t, asset)

	byField := map[string]string{}
	for _, viol := range violations {
		byField[viol.Field] = viol.Code
	}
	assert.Equal(t, CodeType, byField["face_value"])
	assert.Equal(t, CodeType, byField["documents"])
}

func TestValidateCurrencyAgainstPolicySnapshot(t *testing.T) {
	v := NewValidator()
	raw := validRaw()
	raw["currency"] = "GBP"

	_, violations := v.Validate(raw, policy.Policy{AllowedCurrencies: []string{"USD", "EUR", "GBP", "NGN"}})
	assert.Empty(t, violations)

	_, violations = v.Validate(raw, policy.Policy{AllowedCurrencies: []string{"USD", "EUR", "NGN"}})
	require.Len(t, violations, 1)
	assert.Equal(t, "currency", violations[0].Field)
	assert.Equal(t, CodePolicy, violations[0].Code)
	assert.Contains(t, violations[0].Message, "GBP")
}

func TestValidateFailsClosedWithoutCurrencyPolicy(t *testing.T) {
	v := NewValidator()

	asset, violations := v.Validate(validRaw(), policy.Policy{})
	assert.Nil(t, asset)
	require.Len(t, violations, 1)
	assert.Equal(t, "currency", violations[0].Field)
	assert.Equal(t, CodePolicy, violations[0].Code)
}

func TestValidateMinimumAmountThreshold(t *testing.T) {
	v := NewValidator()
	pol := policy.Default()
	pol.MinAmount = decimal.NewFromInt(10_000)

	raw := validRaw()
	raw["face_value"] = 9999.99

	_, violations := v.Validate(raw, pol)
	require.Len(t, violations, 1)
	assert.Equal(t, "face_value", violations[0].Field)
	assert.Equal(t, CodeRange, violations[0].Code)

	raw["face_value"] = 10_000.0
	_, violations = v.Validate(raw, pol)
	assert.Empty(t, violations)
}

func TestValidateOptionalFields(t *testing.T) {
	v := NewValidator()

	raw := validRaw()
	delete(raw, "maturity_date")
	raw["category"] = "Bond"
	raw["documents"] = []any{"prospectus.pdf", "term-sheet.pdf"}

	asset, violations := v.Validate(raw, policy.Default())
	require.Empty(t, violations)
	assert.Nil(t, asset.Maturity)
	assert.Equal(t, record.CategoryBond, asset.Category)
	assert.Equal(t, []string{"prospectus.pdf", "term-sheet.pdf"}, asset.Documents)

	raw["category"] = "Crypto"
	asset, violations = v.Validate(raw, policy.Default())
	assert.Nil(t, asset)
	require.Len(t, violations, 1)
	assert.Equal(t, "category", violations[0].Field)
}

func TestValidateIsSideEffectFree(t *testing.T) {
	v := NewValidator()
	raw := validRaw()
	_, _ = v.Validate(raw, policy.Default())
	assert.Equal(t, validRaw(), raw)
}

func TestViolationsErrorMessage(t *testing.T) {
	err := &ViolationsError{Violations: []Violation{
		{Field: "issuer", Code: CodeMissing, Message: `required field "issuer" is missing`},
		{Field: "currency", Code: CodePolicy, Message: "currency \"GBP\" is not allowed by current policy"},
	}}
	assert.Contains(t, err.Error(), "2 violation(s)")
	assert.Contains(t, err.Error(), "issuer")
	assert.Contains(t, err.Error(), "GBP")
}
