package schema

import (
	"fmt"
	"strings"
)

// Deterministic violation codes.
const (
	CodeMissing = "ERR_FIELD_MISSING"
	CodeType    = "ERR_FIELD_TYPE"
	CodeFormat  = "ERR_FIELD_FORMAT"
	CodeRange   = "ERR_FIELD_RANGE"
	CodePolicy  = "ERR_POLICY"
)

// Violation names one broken constraint on one field.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Field, v.Message, v.Code)
}

// ViolationsError is the typed, recoverable outcome of a failed validation.
// It always carries the full list of broken constraints so a caller can fix
// every issue in one pass.
type ViolationsError struct {
	Violations []Violation
}

func (e *ViolationsError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("schema: %d violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}
