package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrCallTimeout is matched by call errors caused by the per-call deadline
	ErrCallTimeout = errors.New("dispatch: call timed out")
	// ErrCredentialRequired is returned when no token could be obtained and calls require one
	ErrCredentialRequired = errors.New("dispatch: credential required")
)

// CallError is a failed outbound call attempt
type CallError struct {
	Attempt int
	Code    codes.Code
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("dispatch: attempt %d failed: %s: %s", e.Attempt, e.Code, e.Message)
}

// Unwrap lets timeouts match ErrCallTimeout
func (e *CallError) Unwrap() error {
	if e.Code == codes.DeadlineExceeded {
		return ErrCallTimeout
	}
	return nil
}

// GRPCStatus exposes the attempt's status to status.FromError
func (e *CallError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// IsAuthFailure reports whether the attempt was rejected for its credential
func (e *CallError) IsAuthFailure() bool {
	return isAuthCode(e.Code)
}

func newCallError(attempt int, err error) *CallError {
	st := status.Convert(err)
	return &CallError{
		Attempt: attempt,
		Code:    st.Code(),
		Message: st.Message(),
	}
}

func isAuthCode(code codes.Code) bool {
	return code == codes.Unauthenticated || code == codes.PermissionDenied
}

// DispatchError is the terminal failure of a call that was retried after a
// credential refresh, or whose refresh itself failed.
type DispatchError struct {
	Attempts   []*CallError
	RefreshErr error
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	b.WriteString("dispatch: call failed after credential refresh")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; attempt %d: %s", a.Attempt, a.Code)
	}
	if e.RefreshErr != nil {
		fmt.Fprintf(&b, "; refresh: %v", e.RefreshErr)
	}
	return b.String()
}

// Unwrap exposes every attempt and the refresh error
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	if e.RefreshErr != nil {
		errs = append(errs, e.RefreshErr)
	}
	return errs
}

// Codes returns the status code of every attempt in order
func (e *DispatchError) Codes() []codes.Code {
	out := make([]codes.Code, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Code)
	}
	return out
}
