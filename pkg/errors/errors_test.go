package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New("StreamSession.Send", "thread missing")
	want := "StreamSession.Send: thread missing"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAppError_ErrorWithCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, "StreamClient.dial", "ws connect")
	want := "StreamClient.dial: ws connect: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap_PreservesSentinel(t *testing.T) {
	err := Wrap(ErrFirstTokenTimeout, "TimeoutGuard.fire", "first-response timer fired")
	if !errors.Is(err, ErrFirstTokenTimeout) {
		t.Fatal("wrapped error should match ErrFirstTokenTimeout")
	}
	if errors.Is(err, ErrStreamTimeout) {
		t.Fatal("wrapped error should not match ErrStreamTimeout")
	}
}

func TestAs_ExtractsAppError(t *testing.T) {
	err := Wrapf(ErrTransport, "StreamClient.readLoop", "read frame %d", 3)
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should find *AppError")
	}
	if appErr.Op != "StreamClient.readLoop" {
		t.Fatalf("Op = %q, want StreamClient.readLoop", appErr.Op)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"first token timeout", ErrFirstTokenTimeout, true},
		{"stream timeout", ErrStreamTimeout, true},
		{"transport", Wrap(ErrTransport, "op", "msg"), true},
		{"server reported", ErrServerReported, true},
		{"aborted", ErrAborted, false},
		{"wrapped aborted", Wrap(ErrAborted, "op", "msg"), false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
