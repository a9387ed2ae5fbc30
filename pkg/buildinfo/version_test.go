package buildinfo

import (
	"strings"
	"testing"
)

func TestApplicationName(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"dev", "pglocktrace/dev"},
		{"v0.3.0", "pglocktrace/v0.3.0"},
		{strings.Repeat("x", 80), "pglocktrace/" + strings.Repeat("x", 51)},
	}

	defer func(v string) { Version = v }(Version)
	for _, tt := range tests {
		Version = tt.version
		if got := ApplicationName(); got != tt.want {
			t.Errorf("ApplicationName() with %q = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestTemplate(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "v0.3.0", "abc123", "2026-01-02T03:04:05Z"

	want := "{{.Name}} v0.3.0 (commit abc123, built 2026-01-02T03:04:05Z)\n"
	if got := Template(); got != want {
		t.Errorf("Template() = %q, want %q", got, want)
	}
}
