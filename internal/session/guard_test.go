package session

import (
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
)

func TestGuardFiresFirstTokenOnly(t *testing.T) {
	var fired atomic.Int32
	var reason atomic.Value

	g := NewTimeoutGuard(func(err error) {
		fired.Add(1)
		reason.Store(err)
	})
	g.Arm(20*time.Millisecond, 60*time.Millisecond)

	// 等两个定时器窗口都过去: 只允许触发一次, 且是 T1。
	time.Sleep(120 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("cancel fired %d times, want 1", got)
	}
	if err := reason.Load().(error); !apperrors.Is(err, apperrors.ErrFirstTokenTimeout) {
		t.Fatalf("reason = %v, want ErrFirstTokenTimeout", err)
	}
}

func TestGuardTotalAfterFirstTokenDisarmed(t *testing.T) {
	var reason atomic.Value
	g := NewTimeoutGuard(func(err error) { reason.Store(err) })
	g.Arm(20*time.Millisecond, 50*time.Millisecond)
	g.DisarmFirstToken()

	time.Sleep(100 * time.Millisecond)
	if err, _ := reason.Load().(error); !apperrors.Is(err, apperrors.ErrStreamTimeout) {
		t.Fatalf("reason = %v, want ErrStreamTimeout", err)
	}
}

func TestGuardDisarmAllPreventsFiring(t *testing.T) {
	var fired atomic.Int32
	g := NewTimeoutGuard(func(error) { fired.Add(1) })
	g.Arm(20*time.Millisecond, 40*time.Millisecond)
	g.DisarmAll()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancel fired after DisarmAll")
	}
}

func TestGuardCancelNowIsExactlyOnce(t *testing.T) {
	var fired atomic.Int32
	g := NewTimeoutGuard(func(error) { fired.Add(1) })
	g.Arm(10*time.Millisecond, 20*time.Millisecond)

	g.CancelNow(apperrors.ErrAborted)
	g.CancelNow(apperrors.ErrAborted)
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("cancel fired %d times, want 1", got)
	}
}
