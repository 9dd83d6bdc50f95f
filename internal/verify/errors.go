package verify

import (
	"fmt"
	"time"
)

// Kind classifies why a verification step failed.
type Kind string

const (
	KindLaunch      Kind = "launch"
	KindNavigation  Kind = "navigation"
	KindAssertion   Kind = "assertion"
	KindInteraction Kind = "interaction"
	KindIO          Kind = "io"
	KindInternal    Kind = "internal"
)

// VerificationError is returned by Runner.Run for any failed step.
type VerificationError struct {
	Step string
	Kind Kind
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// AssertionError describes an expectation that did not hold on the page.
type AssertionError struct {
	Selector  string
	Attribute string
	Expected  string
	Observed  string
	// Found applies to attribute checks only.
	Found bool
}

func (e *AssertionError) Error() string {
	switch {
	case e.Attribute == "":
		// drivers only report visibility, so absent and hidden text look the same
		return fmt.Sprintf("expected text %q to be visible", e.Expected)
	case !e.Found:
		return fmt.Sprintf("expected %s to have %s=%q: element not found", e.Selector, e.Attribute, e.Expected)
	default:
		return fmt.Sprintf("expected %s to have %s=%q, got %q", e.Selector, e.Attribute, e.Expected, e.Observed)
	}
}

// TimeoutError is returned when a polled condition did not hold before its deadline.
// Last carries the most recent observation, if any.
type TimeoutError struct {
	Op      string
	Target  string
	Timeout time.Duration
	Last    error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("timed out after %s waiting for %s %s", e.Timeout, e.Op, e.Target)
	}
	return fmt.Sprintf("timed out after %s waiting for %s %s: %v", e.Timeout, e.Op, e.Target, e.Last)
}

func (e *TimeoutError) Unwrap() error {
	return e.Last
}
