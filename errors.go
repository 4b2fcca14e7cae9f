package agentgate

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the agentgate package.
var (
	// ErrPolicyInvalid indicates a policy failed validation.
	ErrPolicyInvalid = errors.New("agentgate: invalid policy")

	// ErrWatcherClosed indicates the policy watcher has already been closed.
	ErrWatcherClosed = errors.New("agentgate: policy watcher already closed")
)

// PolicyLoadError is returned when a policy file cannot be read or decoded.
// It wraps ErrPolicyInvalid so that errors.Is(err, ErrPolicyInvalid) works.
type PolicyLoadError struct {
	// Path is the policy file that failed to load.
	Path string
	// Err is the underlying read or decode error.
	Err error
}

func (e *PolicyLoadError) Error() string {
	return fmt.Sprintf("%s: load %q: %v", ErrPolicyInvalid.Error(), e.Path, e.Err)
}

func (e *PolicyLoadError) Unwrap() error {
	return ErrPolicyInvalid
}
