// Package resilience holds the failure taxonomy, the timed quota breaker and
// the bounded retry executor that every remote inference call runs through.
//
// Dependency rule: resilience imports no other internal package. Transports
// expose their HTTP status through a StatusCode() int method, which is all
// the classifier needs.
package resilience

import (
	"errors"
	"fmt"
)

// Kind is the failure class of a remote call.
type Kind string

const (
	KindQuota     Kind = "quota"
	KindTransient Kind = "transient"
	KindTerminal  Kind = "terminal"
	KindCooldown  Kind = "cooldown"
)

// Sentinels for errors.Is. The executor wraps every failure it returns with
// the sentinel for its kind, keeping the original cause in the chain.
var (
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrTransient      = errors.New("transient service error")
	ErrTerminal       = errors.New("terminal request error")
	ErrCooldownActive = errors.New("quota cooldown active")
)

func (k Kind) sentinel() error {
	switch k {
	case KindQuota:
		return ErrQuotaExceeded
	case KindTransient:
		return ErrTransient
	case KindCooldown:
		return ErrCooldownActive
	default:
		return ErrTerminal
	}
}

// classifiedError carries the kind alongside the cause.
type classifiedError struct {
	kind     Kind
	attempts int
	cause    error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return e.kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.kind.sentinel(), e.cause)
}

func (e *classifiedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind.sentinel()}
	}
	return []error{e.kind.sentinel(), e.cause}
}

func wrap(kind Kind, attempts int, cause error) error {
	return &classifiedError{kind: kind, attempts: attempts, cause: cause}
}

// KindOf returns the kind recorded by the executor, falling back to Classify
// for errors that never went through it.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.kind
	}
	if errors.Is(err, ErrCooldownActive) {
		return KindCooldown
	}
	return Classify(err)
}

// AttemptsOf returns how many remote attempts were made before err was
// returned. Zero means the breaker short-circuited the call.
func AttemptsOf(err error) int {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.attempts
	}
	return 0
}
