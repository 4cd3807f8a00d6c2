// Package errs defines the error taxonomy of a benchmark run. Only
// ConfigurationError stops a run from starting; the others end up in the
// run verdict.
package errs

import (
	"fmt"
	"strings"
	"time"

	"benchq/pkg/sut"
)

// ConfigurationError reports an invalid setting. Fatal: the run does not start.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError is a small convenience for validators.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type ViolationKind int

const (
	UnknownID ViolationKind = iota
	DuplicateCompletion
	LateCompletion
)

func (k ViolationKind) String() string {
	switch k {
	case UnknownID:
		return "unknown id"
	case DuplicateCompletion:
		return "duplicate completion"
	case LateCompletion:
		return "completion after teardown"
	default:
		return "unknown violation"
	}
}

// ContractViolation is an integration contract violation observed on the
// completion path. Count aggregates repeated violations of the same kind;
// FirstID is the first offending id seen.
type ContractViolation struct {
	Kind    ViolationKind
	FirstID sut.ResponseID
	Count   int
}

func (e *ContractViolation) Error() string {
	if e.Count > 1 {
		return fmt.Sprintf("integration contract violation: %s (id %d and %d more)", e.Kind, e.FirstID, e.Count-1)
	}
	return fmt.Sprintf("integration contract violation: %s (id %d)", e.Kind, e.FirstID)
}

// InsufficientDataError reports that no latencies were available to summarize.
type InsufficientDataError struct{}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: no completions recorded"
}

// maxListedIDs caps the ids rendered in a DrainTimeoutError message.
const maxListedIDs = 16

// DrainTimeoutError lists the samples that never completed within the
// post-issuance grace period.
type DrainTimeoutError struct {
	Timeout     time.Duration
	Outstanding []sut.ResponseID
}

func (e *DrainTimeoutError) Error() string {
	ids := make([]string, 0, maxListedIDs)
	for i, id := range e.Outstanding {
		if i == maxListedIDs {
			ids = append(ids, "...")
			break
		}
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("drain timeout after %s: %d samples outstanding [%s]",
		e.Timeout, len(e.Outstanding), strings.Join(ids, ", "))
}
