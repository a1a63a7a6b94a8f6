// Package pipeline orchestrates validation: patch (optional) → validate →
// certify → ledger append. Every invocation reads the policy snapshot in
// effect at call time, runs to completion synchronously, and appends
// exactly one ledger entry whatever the outcome.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/certledger/certledger/pkg/canonical"
	"github.com/certledger/certledger/pkg/ledger"
	"github.com/certledger/certledger/pkg/patch"
	"github.com/certledger/certledger/pkg/policy"
	"github.com/certledger/certledger/pkg/record"
	"github.com/certledger/certledger/pkg/schema"
)

// State names the pipeline's position for reporting.
type State string

const (
	StateReceived   State = "RECEIVED"
	StatePatching   State = "PATCHING"
	StateValidating State = "VALIDATING"
	StateCertified  State = "CERTIFIED"
	StateRejected   State = "REJECTED"
)

// Options control one pipeline invocation.
type Options struct {
	// AutoPatch enables the single patch-and-revalidate cycle after a
	// first validation failure. At most one cycle runs per invocation.
	AutoPatch bool
	// Mode distinguishes fresh input from a replay of stored input.
	// Defaults to ledger.ModeNew.
	Mode ledger.Mode
}

// Result is the structured outcome of one invocation. Patches are
// ephemeral: they are reported here but never persisted.
type Result struct {
	State      State
	TraceID    string
	Asset      *record.AssetRecord
	Patches    []patch.Change
	Violations []schema.Violation
	Entry      ledger.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the entry timestamp source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger overrides the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// Engine runs the validation pipeline against a policy store and a ledger.
type Engine struct {
	policies  *policy.Store
	store     ledger.Store
	validator *schema.Validator
	clock     func() time.Time
	log       *slog.Logger
}

// New creates an engine.
func New(policies *policy.Store, store ledger.Store, opts ...Option) *Engine {
	e := &Engine{
		policies:  policies,
		store:     store,
		validator: schema.NewValidator(),
		clock:     time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one raw mapping through the pipeline. On certification it
// returns the result and nil; on rejection it returns the result together
// with a *schema.ViolationsError. Either way the attempt has been appended
// to the ledger before Process returns; only ledger I/O failures surface
// as hard errors with no entry written.
func (e *Engine) Process(ctx context.Context, raw record.Raw, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ledger.ModeNew
	}

	snapshot := e.policies.Current()
	working := raw.Clone()
	res := &Result{State: StateValidating}

	asset, violations := e.validator.Validate(working, snapshot)
	if len(violations) > 0 && opts.AutoPatch {
		res.State = StatePatching
		working, res.Patches = patch.Apply(working)
		res.State = StateValidating
		asset, violations = e.validator.Validate(working, snapshot)
	}

	entry := ledger.Entry{
		Timestamp: e.clock().UTC(),
		Mode:      opts.Mode,
		Original:  raw.Clone(),
	}

	if len(violations) == 0 {
		canonicalAsset := asset.CanonicalMap()
		traceID, err := canonical.TraceID(canonicalAsset)
		if err != nil {
			return nil, fmt.Errorf("pipeline: certify: %w", err)
		}
		entry.Status = ledger.StatusSuccess
		entry.TraceID = traceID
		entry.FinalAsset = canonicalAsset

		res.State = StateCertified
		res.TraceID = traceID
		res.Asset = asset
	} else {
		entry.Status = ledger.StatusFailed
		entry.Violations = violations

		res.State = StateRejected
		res.Violations = violations
	}

	stored, err := e.store.Append(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("pipeline: ledger append: %w", err)
	}
	res.Entry = stored

	e.log.Info("pipeline finished",
		"state", string(res.State),
		"mode", string(opts.Mode),
		"sequence", stored.Sequence,
		"trace_id", stored.TraceID,
		"patches", len(res.Patches),
		"violations", len(res.Violations),
	)

	if res.State == StateRejected {
		return res, &schema.ViolationsError{Violations: violations}
	}
	return res, nil
}

// Replay fetches the original raw input of a prior entry verbatim and runs
// it through the identical pipeline under the current policy snapshot.
// This is how retroactive, policy-driven compliance drift is detected: a
// record certified under an earlier policy may be rejected under a later
// one. Replays always run with patching enabled, since the prior verdict
// may have depended on it.
func (e *Engine) Replay(ctx context.Context, seq uint64) (*Result, error) {
	prior, err := e.store.Get(ctx, seq)
	if err != nil {
		return nil, fmt.Errorf("pipeline: replay entry %d: %w", seq, err)
	}
	return e.Process(ctx, prior.Original, Options{AutoPatch: true, Mode: ledger.ModeReplay})
}
