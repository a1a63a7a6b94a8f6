package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a policy snapshot from a YAML (or JSON, which YAML
// subsumes) file. Missing or unreadable files are hard errors: a caller
// that names a policy file expects it to be honored.
func LoadFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("policy: read %s: %w", path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("policy: parse %s: %w", path, err)
	}
	return p, nil
}

// SaveFile writes a policy snapshot as YAML with owner-only permissions.
func SaveFile(path string, p Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("policy: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("policy: write %s: %w", path, err)
	}
	return nil
}
