package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_UnwrapsToSentinel(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{UnknownPreset, ErrUnknownPreset},
		{UnknownRule, ErrUnknownRule},
		{TypeMismatch, ErrTypeMismatch},
		{MissingReference, ErrMissingReference},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := New(tt.kind, "detail")
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
			wrapped := fmt.Errorf("outer: %w", err)
			k, ok := KindOf(wrapped)
			if !ok || k != tt.kind {
				t.Errorf("KindOf() = %v, %v; want %v, true", k, ok, tt.kind)
			}
		})
	}
}

func TestError_At(t *testing.T) {
	base := New(MissingReference, "variable %q", "hp")
	got := base.At("jump", 2, "player")

	if got.RuleID != "jump" || got.Index != 2 || got.EntityID != "player" {
		t.Errorf("At() = %+v", got)
	}
	if base.RuleID != "" {
		t.Error("At() must not modify the receiver")
	}
	want := `missing reference (rule "jump" #2) entity "player": variable "hp"`
	if got.Error() != want {
		t.Errorf("Error() = %q, want %q", got.Error(), want)
	}

	// Existing context is kept.
	again := got.At("other", 5, "enemy")
	if again.RuleID != "jump" || again.Index != 2 || again.EntityID != "player" {
		t.Errorf("At() overwrote context: %+v", again)
	}
}

func TestKindOf_NotAFault(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("expected plain error to not be a fault")
	}
	if k, ok := KindOf(fmt.Errorf("x: %w", ErrTypeMismatch)); !ok || k != TypeMismatch {
		t.Errorf("KindOf(sentinel) = %v, %v", k, ok)
	}
}
