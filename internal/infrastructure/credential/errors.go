package credential

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTokenRequestTimeout is matched by errors from token requests that ran out of time
	ErrTokenRequestTimeout = errors.New("credential: token request timed out")
	// ErrNoToken means the endpoint answered but the body carried no token
	ErrNoToken = errors.New("credential: no token in response")
)

// AcquisitionError reports a failed token acquisition with both attempts
type AcquisitionError struct {
	PostErr    error
	GetErr     error
	Payload    []byte // raw body of the last response received, if any
	StatusCode int    // status of the last response received, 0 if none
}

func (e *AcquisitionError) Error() string {
	var b strings.Builder
	b.WriteString("credential: token acquisition failed")
	if e.PostErr != nil {
		fmt.Fprintf(&b, "; POST: %v", e.PostErr)
	}
	if e.GetErr != nil {
		fmt.Fprintf(&b, "; GET: %v", e.GetErr)
	}
	if len(e.Payload) > 0 {
		fmt.Fprintf(&b, "; payload: %s", truncate(e.Payload, 256))
	}
	return b.String()
}

// Unwrap exposes both attempt errors to errors.Is and errors.As
func (e *AcquisitionError) Unwrap() []error {
	var errs []error
	if e.PostErr != nil {
		errs = append(errs, e.PostErr)
	}
	if e.GetErr != nil {
		errs = append(errs, e.GetErr)
	}
	return errs
}

// IsAcquisitionError reports whether err is an AcquisitionError
func IsAcquisitionError(err error) bool {
	var acqErr *AcquisitionError
	return errors.As(err, &acqErr)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
