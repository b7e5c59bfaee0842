package formulaerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestBasicError(t *testing.T) {
	err := New(Config, "missing max_iter")
	if err.Type != Config {
		t.Errorf("expected type %s, got %s", Config, err.Type)
	}
	if err.Message != "missing max_iter" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	wrapped := Wrap(Network, "resolver lookup failed", cause)

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap() did not return the wrapped cause")
	}
	if wrapped.Error() != "[network] resolver lookup failed: dial tcp: refused" {
		t.Errorf("unexpected Error() string: %q", wrapped.Error())
	}
}

func TestIsMatchesByType(t *testing.T) {
	a := New(LoopBound, "a")
	b := New(LoopBound, "b")
	c := New(TypeUnknown, "c")

	if !errors.Is(a, b) {
		t.Error("expected errors of the same type to match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("expected errors of different types not to match")
	}
}

func TestWithContext(t *testing.T) {
	err := New(TypeUnknown, "no sort for type").
		WithContext("type", "mapping(address => uint256)").
		WithContext("var", "balances")

	if err.Context["type"] != "mapping(address => uint256)" {
		t.Error("type context not set correctly")
	}
	if err.Context["var"] != "balances" {
		t.Error("var context not set correctly")
	}
}

func TestRecoverableConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
	}{
		{"loop bound", LoopBoundErr("n12", 4)},
		{"empty merge", EmptyMergeErr("ADDITION")},
		{"unsat constraint", UnsatConstraintErr("require@n7")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !IsRecoverable(tc.err) {
				t.Errorf("expected %s to be recoverable", tc.name)
			}
		})
	}

	if IsRecoverable(MalformedIRErr("Call", "n3")) {
		t.Error("malformed IR should not be marked recoverable")
	}
	if IsRecoverable(fmt.Errorf("plain error")) {
		t.Error("a non-*Error should never be recoverable")
	}
}

func TestUnresolvedCalleeErr(t *testing.T) {
	cause := fmt.Errorf("404 not found")
	err := UnresolvedCalleeErr("0xa9059cbb", cause)

	if err.Type != UnresolvedCallee {
		t.Errorf("expected type %s, got %s", UnresolvedCallee, err.Type)
	}
	if err.Context["selector"] != "0xa9059cbb" {
		t.Error("selector context not recorded")
	}
}
