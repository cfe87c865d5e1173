package cmd

import (
	"errors"
	"fmt"
	"testing"
)

func TestSilentExit(t *testing.T) {
	err := NewSilentExit(1)
	code, ok := IsSilentExit(err)
	if !ok || code != 1 {
		t.Fatalf("IsSilentExit = %d, %v, want 1, true", code, ok)
	}

	wrapped := fmt.Errorf("guard: %w", err)
	if code, ok := IsSilentExit(wrapped); !ok || code != 1 {
		t.Errorf("wrapped silent exit not recognized: %d, %v", code, ok)
	}

	if _, ok := IsSilentExit(errors.New("boom")); ok {
		t.Error("plain error mistaken for silent exit")
	}
	if _, ok := IsSilentExit(nil); ok {
		t.Error("nil mistaken for silent exit")
	}
}
