package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/certledger/certledger/pkg/config"
	"github.com/certledger/certledger/pkg/ledger"
	"github.com/certledger/certledger/pkg/schema"
)

func runReplayCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	seq := fs.Uint64("seq", 0, "sequence number of the entry to replay")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *seq == 0 {
		fmt.Fprintln(stderr, "replay: -seq is required")
		return 2
	}

	engine, _, _, closer, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer closer()

	res, err := engine.Replay(context.Background(), *seq)
	var vErr *schema.ViolationsError
	switch {
	case errors.As(err, &vErr):
		printRejection(stdout, res)
		return 1
	case errors.Is(err, ledger.ErrNotFound):
		fmt.Fprintf(stderr, "replay: entry %d not found\n", *seq)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "replay: %v\n", err)
		return 1
	default:
		printCertification(stdout, res)
		return 0
	}
}
