package version

import (
	"regexp"
	"testing"
)

func TestCurrentIsSemverWithoutVPrefix(t *testing.T) {
	t.Helper()

	semver := regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	if !semver.MatchString(Current) {
		t.Fatalf("Current=%q must match <major>.<minor>.<patch>", Current)
	}
}

func TestStringIncludesCommit(t *testing.T) {
	if got := String(); got != Current {
		t.Fatalf("String()=%q, want %q", got, Current)
	}

	Commit = "abc1234"
	defer func() { Commit = "" }()
	if got, want := String(), Current+" (abc1234)"; got != want {
		t.Fatalf("String()=%q, want %q", got, want)
	}
}
