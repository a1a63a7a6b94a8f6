package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/certledger/certledger/pkg/config"
	"github.com/certledger/certledger/pkg/record"
	"github.com/certledger/certledger/pkg/schema"
)

func runValidateCmd(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "-", "path to a JSON record, or - for stdin")
	fix := fs.Bool("fix", false, "auto-patch common defects before re-validating")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	raw, err := readRaw(*input)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return 2
	}

	engine, _, _, closer, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "setup: %v\n", err)
		return 1
	}
	defer closer()

	res, err := engine.Process(context.Background(), raw, pipelineOptions(*fix))
	var vErr *schema.ViolationsError
	switch {
	case errors.As(err, &vErr):
		printRejection(stdout, res)
		return 1
	case err != nil:
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 1
	default:
		printCertification(stdout, res)
		return 0
	}
}

func readRaw(path string) (record.Raw, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var raw record.Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	return raw, nil
}
