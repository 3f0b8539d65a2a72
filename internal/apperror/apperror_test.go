package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	sentinel := errors.New("record modified concurrently")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "Plain validation error",
			err:      Validation("responses must not be empty"),
			expected: KindValidation,
		},
		{
			name:     "Wrapped storage error",
			err:      Storage(sentinel, "mastery update kept conflicting"),
			expected: KindStorage,
		},
		{
			name:     "Kind survives further wrapping",
			err:      fmt.Errorf("evaluate retrieval: %w", NotFound("atlas node %s not found", "n1")),
			expected: KindNotFound,
		},
		{
			name:     "Foreign error has no kind",
			err:      errors.New("connection reset"),
			expected: KindUnknown,
		},
		{
			name:     "Nil error has no kind",
			err:      nil,
			expected: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("Expected kind %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWrapKeepsCauseReachable(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(KindStorage, cause, "insert mastery record")

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the wrapped cause")
	}
	if err.Error() != "insert mastery record: duplicate key" {
		t.Errorf("Unexpected error text: %q", err.Error())
	}
}

func TestIsKind(t *testing.T) {
	err := BusinessRule("invalid engagement event type %q", "capsule_skimmed")
	if !IsKind(err, KindBusinessRule) {
		t.Error("Expected IsKind to match the business-rule kind")
	}
	if IsKind(err, KindValidation) {
		t.Error("Expected IsKind to reject a different kind")
	}
}
