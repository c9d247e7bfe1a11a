package invariant_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opal-lang/acd/core/invariant"
)

// expectPanic runs fn and returns the recovered panic message.
func expectPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg = fmt.Sprintf("%v", r)
	}()
	fn()
	return ""
}

func TestPreconditionPass(t *testing.T) {
	items := []string{"application", "sequence"}
	invariant.Precondition(len(items) == 2, "two items")
	invariant.Postcondition(items[0] == "application", "application first")
	invariant.Invariant(true, "always")
}

func TestPreconditionFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Precondition(false, "item index %d out of range", 7)
	})
	if !strings.Contains(msg, "PRECONDITION VIOLATION") {
		t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
	}
	if !strings.Contains(msg, "item index 7 out of range") {
		t.Errorf("expected formatted message, got: %s", msg)
	}
	if !strings.Contains(msg, "at ") {
		t.Errorf("expected caller location, got: %s", msg)
	}
}

func TestInvariantFail(t *testing.T) {
	msg := expectPanic(t, func() {
		invariant.Invariant(false, "lexer stuck at %d", 3)
	})
	if !strings.Contains(msg, "INVARIANT VIOLATION: lexer stuck at 3") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestNotNil(t *testing.T) {
	type item struct{}
	invariant.NotNil(&item{}, "item")

	var typed *item
	msg := expectPanic(t, func() { invariant.NotNil(typed, "item") })
	if !strings.Contains(msg, "item must not be nil") {
		t.Errorf("unexpected message: %s", msg)
	}

	msg = expectPanic(t, func() { invariant.NotNil(nil, "definition") })
	if !strings.Contains(msg, "definition must not be nil") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestInRange(t *testing.T) {
	invariant.InRange(3, 1, 3, "param")
	msg := expectPanic(t, func() { invariant.InRange(4, 1, 3, "param") })
	if !strings.Contains(msg, "param must be in range [1, 3], got 4") {
		t.Errorf("unexpected message: %s", msg)
	}
}

func TestExpectNoError(t *testing.T) {
	invariant.ExpectNoError(nil, "embedded vocabulary")
	msg := expectPanic(t, func() {
		invariant.ExpectNoError(errors.New("bad yaml"), "embedded vocabulary")
	})
	if !strings.Contains(msg, "POSTCONDITION VIOLATION: embedded vocabulary must not fail: bad yaml") {
		t.Errorf("unexpected message: %s", msg)
	}
}
