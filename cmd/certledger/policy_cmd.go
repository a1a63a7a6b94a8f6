package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/certledger/certledger/pkg/config"
	"github.com/certledger/certledger/pkg/policy"
)

func runPolicyCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("policy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	currencies := fs.String("currencies", "", "comma-separated allowed currency codes; updates the policy file")
	minAmount := fs.String("min-amount", "", "optional minimum amount threshold")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// No update requested: show the effective policy.
	if *currencies == "" {
		pol := policy.Default()
		if cfg.PolicyFile != "" {
			loaded, err := policy.LoadFile(cfg.PolicyFile)
			if err != nil {
				fmt.Fprintf(stderr, "policy: %v\n", err)
				return 1
			}
			pol = loaded
		}
		fmt.Fprintf(stdout, "allowed_currencies: %s\n", strings.Join(pol.AllowedCurrencies, ", "))
		if !pol.MinAmount.IsZero() {
			fmt.Fprintf(stdout, "min_amount: %s\n", pol.MinAmount)
		}
		return 0
	}

	if cfg.PolicyFile == "" {
		fmt.Fprintln(stderr, "policy: POLICY_FILE must be set to update the policy")
		return 2
	}

	pol := policy.Policy{}
	for _, code := range strings.Split(*currencies, ",") {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			pol.AllowedCurrencies = append(pol.AllowedCurrencies, code)
		}
	}
	if *minAmount != "" {
		min, err := decimal.NewFromString(*minAmount)
		if err != nil {
			fmt.Fprintf(stderr, "policy: invalid -min-amount %q: %v\n", *minAmount, err)
			return 2
		}
		pol.MinAmount = min
	}

	if err := policy.SaveFile(cfg.PolicyFile, pol); err != nil {
		fmt.Fprintf(stderr, "policy: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "policy updated: %s\n", cfg.PolicyFile)
	return 0
}
