//go:build property
// +build property

package patch

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/certledger/certledger/pkg/record"
)

// interestingValues are the string shapes the heuristics react to, mixed
// into otherwise arbitrary field values.
var interestingValues = []string{
	"5M", "2.5k", "10K", "1m", "usd ", " eur", "2030/01/01",
	"not/a/date", "US1234567890", "de000bay0017", "2030-01-01T00:00:00",
}

// TestPatchIdempotence verifies patch(patch(x)) == patch(x) for all inputs.
func TestPatchIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("re-patching patched output changes nothing", prop.ForAll(
		func(keys []string, values []string, picks []int) bool {
			raw := record.Raw{}
			for i := 0; i < len(keys); i++ {
				if keys[i] == "" {
					continue
				}
				if i < len(picks) {
					raw[keys[i]] = interestingValues[picks[i]%len(interestingValues)]
				} else if i < len(values) {
					raw[keys[i]] = values[i]
				}
			}
			// Always exercise the designated fields as well.
			if len(picks) > 0 {
				raw["currency"] = interestingValues[picks[0]%len(interestingValues)]
			}
			if len(picks) > 1 {
				raw["maturity_date"] = interestingValues[picks[1]%len(interestingValues)]
			}

			once, _ := Apply(raw)
			twice, changes := Apply(once)
			return len(changes) == 0 && reflect.DeepEqual(once, twice)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 1_000)),
	))

	properties.TestingRun(t)
}
