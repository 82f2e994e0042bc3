package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ConnectionError means a backend was unreachable or rejected authentication
// at startup. The runner excludes the backend from the run; it is never fatal
// to the whole harness.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backend %s: connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryTimeoutError means a single iteration exceeded its per-execute
// timeout. The series continues with the next iteration.
type QueryTimeoutError struct {
	Backend string
	Timeout time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("backend %s: query timed out after %s", e.Backend, e.Timeout)
}

// QueryExecutionError means the backend returned an error for the query,
// e.g. a dialect incompatibility. The series continues.
type QueryExecutionError struct {
	Backend string
	Err     error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("backend %s: query failed: %v", e.Backend, e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// classifyExecError converts a raw driver error into the harness taxonomy.
// Context deadline errors become QueryTimeoutError; everything else becomes
// QueryExecutionError.
func classifyExecError(backend string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &QueryTimeoutError{Backend: backend, Timeout: timeout}
	}
	return &QueryExecutionError{Backend: backend, Err: err}
}
