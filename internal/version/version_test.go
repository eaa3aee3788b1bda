package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, Commit, BuildTime
	defer func() { Version, Commit, BuildTime = oldV, oldC, oldB }()

	Version, Commit, BuildTime = "1.2.0", "abc1234", "2024-05-01T00:00:00Z"

	if got, want := String(), "1.2.0 (abc1234) built 2024-05-01T00:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Get(); got.Version != "1.2.0" || got.Commit != "abc1234" {
		t.Errorf("Get() = %+v", got)
	}
}
