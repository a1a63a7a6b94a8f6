package main

import (
	"context"
	"fmt"
	"io"

	"github.com/certledger/certledger/pkg/ledger"
	"github.com/certledger/certledger/pkg/pipeline"
	"github.com/certledger/certledger/pkg/policy"
	"github.com/certledger/certledger/pkg/record"
)

// runDemoCmd walks through the full lifecycle against an in-memory ledger:
// a malformed record is auto-patched and certified, then the policy is
// narrowed and the same input replayed to show compliance drift.
func runDemoCmd(stdout, stderr io.Writer) int {
	ctx := context.Background()
	policies := policy.NewStore(policy.Default())
	store := ledger.NewMemoryStore()
	engine := pipeline.New(policies, store)

	broken := record.Raw{
		"isin":          "us1234567890",
		"currency":      "gbp ",
		"face_value":    "5M",
		"maturity_date": "2030/01/01",
		"issuer":        "Global Corp",
	}

	fmt.Fprintln(stdout, "1. Incoming malformed record:")
	printJSON(stdout, broken)

	res, err := engine.Process(ctx, broken, pipeline.Options{AutoPatch: true})
	if err != nil {
		fmt.Fprintf(stderr, "demo: unexpected rejection: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "\n2. Patched, validated, certified:")
	printCertification(stdout, res)

	fmt.Fprintln(stdout, "\n3. Policy change: GBP removed from allowed currencies.")
	policies.Update(policy.Policy{AllowedCurrencies: []string{"USD", "EUR", "NGN"}})

	replayed, err := engine.Replay(ctx, res.Entry.Sequence)
	if err == nil {
		fmt.Fprintln(stderr, "demo: replay unexpectedly passed")
		return 1
	}

	fmt.Fprintln(stdout, "\n4. Replay under the new policy:")
	printRejection(stdout, replayed)

	entries, _ := store.ReadAll(ctx)
	fmt.Fprintln(stdout, "\n5. Audit ledger:")
	fmt.Fprintln(stdout, " seq  timestamp             status   mode    trace_id")
	for _, e := range entries {
		printEntryLine(stdout, e)
	}

	if err := ledger.VerifyChain(entries); err != nil {
		fmt.Fprintf(stderr, "demo: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "\nchain verified")
	return 0
}
