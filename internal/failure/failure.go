package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why a scenario step could not complete.
type Kind string

const (
	NavigationTimeout  Kind = "NavigationTimeout"
	ElementNotFound    Kind = "ElementNotFound"
	AmbiguousMatch     Kind = "AmbiguousMatch"
	PreconditionFailed Kind = "PreconditionFailed"
	AssertionTimeout   Kind = "AssertionTimeout"
	CaptureFailed      Kind = "CaptureFailed"
	InvalidStep        Kind = "InvalidStep"
	BrowserError       Kind = "BrowserError"

	// ScenarioTimeout ends a run whose overall deadline passed between steps.
	ScenarioTimeout Kind = "ScenarioTimeout"
)

// NoStep marks errors that are not attached to a particular step.
const NoStep = -1

// Error is the structured error carried from the browser layer up to the
// invocation surface.
type Error struct {
	Kind   Kind
	Step   int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Step != NoStep {
		msg = fmt.Sprintf("step %d: %s", e.Step, msg)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Reason is the message without the kind and step prefix.
func (e *Error) Reason() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return e.Detail + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind, so callers can
// write errors.Is(err, failure.New(failure.ElementNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Step: NoStep, Detail: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Step: NoStep, Detail: fmt.Sprintf(format, args...), Err: err}
}

// WithStep attaches a step index to err. Errors that are not *Error are
// wrapped as BrowserError. An index already present is kept.
func WithStep(err error, step int) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Step != NoStep {
			return err
		}
		cp := *fe
		cp.Step = step
		return &cp
	}
	return &Error{Kind: BrowserError, Step: step, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or BrowserError
// for foreign errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return BrowserError
}

// StepOf returns the step index recorded on err, or NoStep.
func StepOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Step
	}
	return NoStep
}

// Timeout reports whether the kind ends a scenario as timed out rather than failed.
func (k Kind) Timeout() bool {
	return k == NavigationTimeout || k == AssertionTimeout || k == ScenarioTimeout
}
