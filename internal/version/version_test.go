package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, BuildTime = "1.2.0", "abc123", "2024-12-01"
	t.Cleanup(func() { Version, Commit, BuildTime = "dev", "unknown", "unknown" })

	want := "present-calendar v1.2.0 (commit: abc123, built: 2024-12-01)"
	if got := String(); got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}
