package testutil

import (
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: got error %v, expected none", msg, err)
	}
}

// AssertErrorContains fails the test if err is nil or doesn't contain the expected substring
func AssertErrorContains(t *testing.T, err error, expected string, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got none", msg, expected)
	}
	if !strings.Contains(err.Error(), expected) {
		t.Fatalf("%s: expected error containing %q, got %q", msg, expected, err.Error())
	}
}

// AssertStringContains fails the test if str doesn't contain substring
func AssertStringContains(t *testing.T, str, substring string, msg string) {
	t.Helper()
	if !strings.Contains(str, substring) {
		t.Fatalf("%s: expected %q to contain %q", msg, str, substring)
	}
}
