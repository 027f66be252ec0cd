package version

import (
	"errors"
	"strings"
	"testing"
)

func fakeGit(t *testing.T, replies map[string]string) {
	t.Helper()
	orig := gitOutput
	t.Cleanup(func() {
		gitOutput = orig
		Reset()
	})
	gitOutput = func(args ...string) (string, error) {
		out, ok := replies[strings.Join(args, " ")]
		if !ok {
			return "", errors.New("exit status 128")
		}
		return out, nil
	}
	Reset()
}

func TestResolve(t *testing.T) {
	const (
		commitArgs = "describe --always --dirty"
		tagArgs    = "describe --tags --abbrev=0"
	)

	tests := []struct {
		name        string
		replies     map[string]string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "tagged checkout",
			replies:     map[string]string{commitArgs: "3f2a9c1", tagArgs: "v1.0.0"},
			wantVersion: "1.0.0",
			wantCommit:  "3f2a9c1",
		},
		{
			name:        "untagged checkout",
			replies:     map[string]string{commitArgs: "3f2a9c1-dirty"},
			wantVersion: "dev",
			wantCommit:  "3f2a9c1-dirty",
		},
		{
			name:        "empty tag output",
			replies:     map[string]string{commitArgs: "3f2a9c1", tagArgs: ""},
			wantVersion: "dev",
			wantCommit:  "3f2a9c1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeGit(t, tt.replies)

			if got := GetVersion(); got != tt.wantVersion {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVersion)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if info := Info(); !strings.HasPrefix(info, Name+" "+tt.wantVersion+" (commit: "+tt.wantCommit) {
				t.Errorf("Info() = %q", info)
			}
		})
	}
}

func TestResolve_NoGit(t *testing.T) {
	fakeGit(t, nil)

	if got := GetVersion(); got != "dev" {
		t.Errorf("GetVersion() = %q, want dev", got)
	}
	// test binaries may or may not carry vcs stamps
	if GetCommit() == "" {
		t.Error("GetCommit() should never be empty")
	}
}

func TestLdflagsWin(t *testing.T) {
	fakeGit(t, map[string]string{"describe --tags --abbrev=0": "v9.9.9"})
	Version, Commit, Date = "2.1.0", "abcdef0", "2026-01-02"

	if got := GetVersion(); got != "2.1.0" {
		t.Errorf("GetVersion() = %q, want 2.1.0", got)
	}
	if got := GetDate(); got != "2026-01-02" {
		t.Errorf("GetDate() = %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "x", "y"); got != "x" {
		t.Errorf("firstNonEmpty() = %q, want x", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("firstNonEmpty() = %q, want empty", got)
	}
}
