// Package config loads shell configuration from the environment.
package config

import "os"

// Ledger backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds CLI configuration.
type Config struct {
	LedgerBackend string
	LedgerPath    string
	PolicyFile    string
	LogLevel      string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	backend := os.Getenv("LEDGER_BACKEND")
	if backend == "" {
		backend = BackendFile
	}

	path := os.Getenv("LEDGER_PATH")
	if path == "" {
		switch backend {
		case BackendSQLite:
			path = "certledger.db"
		default:
			path = "certledger.ledger.json"
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	return &Config{
		LedgerBackend: backend,
		LedgerPath:    path,
		PolicyFile:    os.Getenv("POLICY_FILE"),
		LogLevel:      logLevel,
	}
}
