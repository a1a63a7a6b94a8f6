// Command certledger validates, repairs, and certifies structured
// financial-asset records, appending every attempt to a tamper-evident
// ledger. The command is a thin shell: all semantics live in pkg/.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/certledger/certledger/pkg/config"
	"github.com/certledger/certledger/pkg/ledger"
	"github.com/certledger/certledger/pkg/pipeline"
	"github.com/certledger/certledger/pkg/policy"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel, stderr)
	slog.SetDefault(logger)

	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "validate":
		return runValidateCmd(cfg, args[2:], stdout, stderr)
	case "replay":
		return runReplayCmd(cfg, args[2:], stdout, stderr)
	case "history":
		return runHistoryCmd(cfg, args[2:], stdout, stderr)
	case "verify":
		return runVerifyCmd(cfg, stdout, stderr)
	case "policy":
		return runPolicyCmd(cfg, args[2:], stdout, stderr)
	case "demo":
		return runDemoCmd(stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: certledger <command> [flags]

Commands:
  validate  Validate (and optionally auto-patch) a raw asset record
  replay    Re-run a prior entry's original input under current policy
  history   Show recent ledger entries
  verify    Verify the ledger hash chain
  policy    Show or update the policy file
  demo      Run a self-contained walkthrough

Environment:
  LEDGER_BACKEND  file | sqlite | memory (default file)
  LEDGER_PATH     ledger file or database path
  POLICY_FILE     policy YAML; defaults to the built-in policy when unset
  LOG_LEVEL       DEBUG | INFO | WARN | ERROR (default INFO)`)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// buildEngine wires the policy store, ledger backend, and pipeline from
// configuration. The returned closer releases the ledger backend.
func buildEngine(cfg *config.Config) (*pipeline.Engine, ledger.Store, *policy.Store, func(), error) {
	pol := policy.Default()
	if cfg.PolicyFile != "" {
		loaded, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		pol = loaded
	}
	policies := policy.NewStore(pol)

	var (
		store  ledger.Store
		closer = func() {}
	)
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		store = ledger.NewMemoryStore()
	case config.BackendSQLite:
		db, err := ledger.OpenSQLite(cfg.LedgerPath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		s, err := ledger.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, nil, nil, err
		}
		store = s
		closer = func() { _ = db.Close() }
	case config.BackendFile:
		s, err := ledger.NewFileStore(cfg.LedgerPath, slog.Default())
		if err != nil {
			return nil, nil, nil, nil, err
		}
		store = s
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}

	return pipeline.New(policies, store), store, policies, closer, nil
}
