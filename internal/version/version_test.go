package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	tests := []struct {
		version string
		color   bool
		want    string
	}{
		{"1.2.3", false, "1.2.3"},
		{"1.2.3-rc.1", false, "1.2.3-rc.1"},
		{"nightly", false, "nightly"},
		{"", false, "dev"},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := Colored(tt.color); got != tt.want {
			t.Errorf("Colored(%v) with Version=%q = %q, want %q", tt.color, tt.version, got, tt.want)
		}
	}

	Version = "1.2.3-dev"
	got := Colored(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Errorf("Colored(true) = %q", got)
	}
}
