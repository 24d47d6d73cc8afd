package errs

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying cause")
	err := New(KindTimeout, "carrier.answer_call", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := New(KindNotFound, "calendar.get_availability", errors.New("404"))
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a non-empty error message")
	}
	if want := "calendar.get_availability: not_found: 404"; msg != want {
		t.Fatalf("expected %q, got %q", want, msg)
	}
}
