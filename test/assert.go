// Package test provides assertion helpers shared by package tests.
package test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Assert fails the test if the condition is false.
func Assert(tb testing.TB, condition bool, msg string, v ...interface{}) {
	tb.Helper()

	if !condition {
		tb.Fatalf(msg, v...)
	}
}

// Ok fails the test if an err is not nil.
func Ok(tb testing.TB, err error) {
	tb.Helper()

	if err != nil {
		tb.Fatalf("unexpected error: %s", err.Error())
	}
}

// NotOk fails the test if an err is nil.
func NotOk(tb testing.TB, err error) {
	tb.Helper()

	if err == nil {
		tb.Fatal("expected error, got nil")
	}
}

// Equals fails the test if exp is not equal to act.
func Equals(tb testing.TB, exp, act interface{}, opts ...cmp.Option) {
	tb.Helper()

	if diff := cmp.Diff(exp, act, opts...); diff != "" {
		tb.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
