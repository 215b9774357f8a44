package supervisor

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what a failed scheduled invocation does to the loop.
// A failure of the first invocation always stops the loop.
type FailurePolicy int

const (
	// FailExit stops the loop and returns the failure.
	FailExit FailurePolicy = iota
	// FailContinue logs the failure and waits for the next interval.
	FailContinue
	// FailRetry retries with exponential backoff, then behaves like FailContinue.
	FailRetry
)

var policyNames = map[FailurePolicy]string{
	FailExit:     "exit",
	FailContinue: "continue",
	FailRetry:    "retry",
}

func (p FailurePolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("FailurePolicy(%d)", int(p))
}

// ParseFailurePolicy maps a config value to a policy. The empty string is
// FailExit.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FailExit, nil
	}
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return FailExit, fmt.Errorf("unknown failure policy %q (want exit, continue or retry)", s)
}
