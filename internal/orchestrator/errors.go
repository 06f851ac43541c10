package orchestrator

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/memegen/memegen-backend/internal/providers"
)

// ErrStaleReference indicates a follow-up image operation referenced a
// provider handle that no longer resolves, or a conversation with no
// rendered image at all.
var ErrStaleReference = errors.New("stale image reference")

// ValidationError reports a tool invocation whose arguments failed the
// tool's input schema. It is fed back to the model, never to the user.
type ValidationError struct {
	Tool   ToolName
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Tool, e.Reason)
}

// PolicyViolationError reports a tool invocation that skipped a required
// earlier step. Like validation errors it goes back to the model as a
// corrective result.
type PolicyViolationError struct {
	Tool   ToolName
	Reason string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s not allowed yet: %s", e.Tool, e.Reason)
}

// MalformedOutputError reports model output that could not be interpreted
// as narrative text or a well-formed tool invocation.
type MalformedOutputError struct {
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

// TransientError marks an error as a retryable infrastructure failure.
// Repository and provider calls wrap connection-level errors with it so
// the retry runner can tell them apart from logic errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MarkTransient wraps err as retryable. A nil err stays nil.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried by the runner.
// Explicitly marked errors always qualify; otherwise only connection-level
// failures do, everything else propagates immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRecoverable reports whether err should be returned to the model as a
// corrective tool result instead of ending the run.
func IsRecoverable(err error) bool {
	var validation *ValidationError
	var policy *PolicyViolationError
	var malformed *MalformedOutputError
	return errors.As(err, &validation) || errors.As(err, &policy) || errors.As(err, &malformed)
}

// IsRetriesExhausted reports whether err came out of the retry runner
// with every attempt spent.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// IsContentPolicy reports whether err is a provider content-policy refusal
func IsContentPolicy(err error) bool {
	return errors.Is(err, providers.ErrContentPolicy)
}

// IsStaleReference reports whether err is a stale image reference
func IsStaleReference(err error) bool {
	return errors.Is(err, ErrStaleReference) || errors.Is(err, providers.ErrHandleNotFound)
}
