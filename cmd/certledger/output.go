package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/certledger/certledger/pkg/ledger"
	"github.com/certledger/certledger/pkg/pipeline"
)

func pipelineOptions(fix bool) pipeline.Options {
	return pipeline.Options{AutoPatch: fix, Mode: ledger.ModeNew}
}

func printCertification(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "CERTIFIED  trace_id=%s  sequence=%d\n", res.TraceID, res.Entry.Sequence)
	for _, c := range res.Patches {
		fmt.Fprintf(w, "  patched %s (%s): %v -> %v\n", c.Field, c.Heuristic, c.Before, c.After)
	}
	printJSON(w, res.Entry.FinalAsset)
}

func printRejection(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "REJECTED  sequence=%d\n", res.Entry.Sequence)
	for _, c := range res.Patches {
		fmt.Fprintf(w, "  patched %s (%s): %v -> %v\n", c.Field, c.Heuristic, c.Before, c.After)
	}
	for _, v := range res.Violations {
		fmt.Fprintf(w, "  violation %s\n", v)
	}
}

func printEntryLine(w io.Writer, e ledger.Entry) {
	trace := e.TraceID
	if trace == "" {
		trace = "-"
	}
	fmt.Fprintf(w, "%4d  %s  %-7s  %-6s  %s\n",
		e.Sequence, e.Timestamp.Format("2006-01-02T15:04:05Z"), e.Status, e.Mode, trace)
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "render: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s\n", data)
}
