package nse

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient covers timeouts, connection failures, unexpected status
	// codes and payloads that cannot be decoded.
	ErrTransient = errors.New("transient acquisition error")

	// ErrAuthExpired means the data source rejected the session cookies.
	ErrAuthExpired = errors.New("session rejected by data source")

	// ErrNoData means the chain had no tradable quotes inside the strike window.
	ErrNoData = errors.New("no option data available")
)

// AcquisitionError is returned by Acquire once every attempt has failed.
type AcquisitionError struct {
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
