package tamed

import "fmt"

// MisuseError marks a contract violation: calling fulfill/fail twice,
// re-entering a blocking wait from an already-driven goroutine, scheduling
// onto a closed scope. These are programmer errors, not runtime failures,
// and are never silently swallowed.
type MisuseError struct {
	Reason string
}

func (e *MisuseError) Error() string { return "tamed: misuse: " + e.Reason }

func misuse(reason string) *MisuseError { return &MisuseError{Reason: reason} }

// NotAvailableError is returned by Result.Value when the result has not
// yet been fulfilled or failed.
type NotAvailableError struct{}

func (e *NotAvailableError) Error() string { return "tamed: result not yet available" }

// CancelledError marks a scope-owned task's termination via cooperative
// cancellation; Cause holds the error the task returned (or the limiter's
// acquire error when the task never got a slot). When the
// cancellation was caused by the owning scope's own error_mode/exit_mode
// mechanics it is treated as already-consumed noise and never appears in
// an AggregateError; a cancellation inherited from an explicit Cancel()
// call or an external/parent context still surfaces like any other
// unconsumed failure.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tamed: cancelled: %v", e.Cause)
	}
	return "tamed: cancelled"
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// AggregateError carries every unconsumed task error observed at the end
// of a scope's drain. A single unconsumed failure is raised as-is by
// AsyncScope.Close; two or more are wrapped here.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tamed: %d unconsumed task errors", len(e.Errors))
}

// Unwrap exposes the individual errors for errors.Is/errors.As traversal,
// following the Go 1.20+ multi-error convention.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// ConfigError marks a construction-time misconfiguration, such as a
// reserved parameter name collision in a Registry.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "tamed: config error: " + e.Reason }
