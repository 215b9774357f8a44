package supervisor

import "fmt"

// ActionError reports a failed invocation of the update action.
type ActionError struct {
	// Invocation is 1 for the eager startup call, 2 for the first scheduled one.
	Invocation int
	// Panicked is set when the action panicked instead of returning an error.
	Panicked bool
	Err      error
}

func (e *ActionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("update invocation %d panicked: %v", e.Invocation, e.Err)
	}
	return fmt.Sprintf("update invocation %d failed: %v", e.Invocation, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
