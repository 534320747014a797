// Package fault defines the non-fatal error taxonomy of the rule engine.
// Every fault is logged and skipped; none of them stops a tick.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fault.
type Kind int

const (
	UnknownPreset Kind = iota
	UnknownRule
	TypeMismatch
	MissingReference
)

func (k Kind) String() string {
	switch k {
	case UnknownPreset:
		return "unknown_preset"
	case UnknownRule:
		return "unknown_rule"
	case TypeMismatch:
		return "type_mismatch"
	case MissingReference:
		return "missing_reference"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind. Faults unwrap to these.
var (
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrUnknownRule      = errors.New("unknown rule element")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrMissingReference = errors.New("missing reference")
)

func (k Kind) sentinel() error {
	switch k {
	case UnknownPreset:
		return ErrUnknownPreset
	case UnknownRule:
		return ErrUnknownRule
	case TypeMismatch:
		return ErrTypeMismatch
	default:
		return ErrMissingReference
	}
}

// Error carries enough context for the editor to point at the culprit.
// Index is the action or condition index within the rule, -1 if none.
type Error struct {
	Kind     Kind
	RuleID   string
	Index    int
	EntityID string
	Detail   string
}

// New creates a fault with no rule context.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Index: -1, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.sentinel().Error())
	if e.RuleID != "" {
		fmt.Fprintf(&b, " (rule %q", e.RuleID)
		if e.Index >= 0 {
			fmt.Fprintf(&b, " #%d", e.Index)
		}
		b.WriteString(")")
	}
	if e.EntityID != "" {
		fmt.Fprintf(&b, " entity %q", e.EntityID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}

// At returns a copy of e annotated with rule context. Existing context wins.
func (e *Error) At(ruleID string, index int, entityID string) *Error {
	c := *e
	if c.RuleID == "" {
		c.RuleID = ruleID
	}
	if c.Index < 0 {
		c.Index = index
	}
	if c.EntityID == "" {
		c.EntityID = entityID
	}
	return &c
}

// KindOf reports the Kind of err, and false if err is not a fault.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	switch {
	case errors.Is(err, ErrUnknownPreset):
		return UnknownPreset, true
	case errors.Is(err, ErrUnknownRule):
		return UnknownRule, true
	case errors.Is(err, ErrTypeMismatch):
		return TypeMismatch, true
	case errors.Is(err, ErrMissingReference):
		return MissingReference, true
	}
	return 0, false
}
