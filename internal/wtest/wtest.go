// Package wtest contains helpers shared by tests across webrtcdirect.
package wtest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// ScheduleTimeout is how long the channel helpers wait
// for a value before failing the test.
const ScheduleTimeout = 2 * time.Second

// NewLogger returns a logger that writes through t.Log,
// so output is attributed to the running test.
func NewLogger(t testing.TB) *slog.Logger {
	return slogt.New(t)
}

// ReceiveSoon returns the next value from ch,
// failing the test if no value arrives within [ScheduleTimeout].
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(ScheduleTimeout):
		t.Fatalf("no value received within %s", ScheduleTimeout)
	}

	panic("unreachable")
}

// NotSending fails the test if ch has a value ready immediately.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected no value to be ready, got %v", v)
	default:
		// Okay.
	}
}
