package version

import (
	"strings"
	"testing"
)

func TestCurrentMatchesInfo(t *testing.T) {
	v, c, d := Info()
	build := Current()

	switch {
	case build.Version != v || GetVersion() != v:
		t.Errorf("version mismatch: %s vs %s", build.Version, v)
	case build.Commit != c || GetCommit() != c:
		t.Errorf("commit mismatch: %s vs %s", build.Commit, c)
	case build.Date != d || GetDate() != d:
		t.Errorf("date mismatch: %s vs %s", build.Date, d)
	}
}

func TestDefaultsNotEmpty(t *testing.T) {
	build := Current()
	if build.Version == "" || build.Commit == "" || build.Date == "" {
		t.Fatalf("build info should not be empty: %+v", build)
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String should contain %q, got %q", part, s)
		}
	}
}
