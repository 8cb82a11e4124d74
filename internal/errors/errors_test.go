package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := Slippage()
	wrapped := fmt.Errorf("continuation: %w", base)

	if KindOf(wrapped) != KindSlippageExceeded {
		t.Fatalf("unexpected kind: %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindSlippageExceeded) {
		t.Fatalf("expected slippage kind")
	}
	if Is(nil, KindSlippageExceeded) {
		t.Fatalf("nil error must not match")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInvalidState, "persist checkpoint", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	if err.Error() != "invalid_state: persist checkpoint: disk full" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
