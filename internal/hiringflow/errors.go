package hiringflow

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no hiring flow exists for a candidate.
var ErrNotFound = errors.New("hiring flow not found")

// ErrTokenInvalid covers every failed redemption: token not found, already
// used, or past its expiry. The caller has no recovery path other than
// requesting a fresh link out of band.
var ErrTokenInvalid = errors.New("invalid or expired token")

// StageMismatchError is returned when a decision arrives for a workflow that
// is not at the stage the submitting role acts on — typically a consumed but
// delayed token after the workflow advanced through another path.
type StageMismatchError struct {
	Role     Role
	Expected Step
	Current  Step
}

func (e *StageMismatchError) Error() string {
	return fmt.Sprintf("workflow is at %q, but role %s acts on %q", e.Current, e.Role, e.Expected)
}

// AlreadyDecidedError is returned when a role that has already recorded a
// decision attempts to record a second one.
type AlreadyDecidedError struct {
	Role Role
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("role %s has already recorded a decision", e.Role)
}

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }
