package assist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeAgentVersion(t *testing.T, cacheDir, version string) string {
	t.Helper()
	dir := filepath.Join(cacheDir, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, agentEntryFile)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocateConfiguredBinaryWins(t *testing.T) {
	cacheDir := t.TempDir()
	writeAgentVersion(t, cacheDir, "9.9.9")

	binary := filepath.Join(t.TempDir(), "custom-agent")
	if err := os.WriteFile(binary, []byte(""), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := locateAgentBinary(InstallConfig{BinaryPath: binary, CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("locateAgentBinary: %v", err)
	}
	if got != binary {
		t.Errorf("got %q, want configured %q", got, binary)
	}
}

func TestLocateMissingConfiguredBinary(t *testing.T) {
	_, err := locateAgentBinary(InstallConfig{BinaryPath: "/nonexistent/agent"})
	var startErr *StartupError
	if !errors.As(err, &startErr) {
		t.Fatalf("err = %v, want StartupError", err)
	}
}

func TestLocateNewestCachedVersion(t *testing.T) {
	cacheDir := t.TempDir()
	writeAgentVersion(t, cacheDir, "1.9.0")
	want := writeAgentVersion(t, cacheDir, "1.10.2")
	writeAgentVersion(t, cacheDir, "1.2.30")

	// A version directory without the entry file is skipped.
	if err := os.MkdirAll(filepath.Join(cacheDir, "2.0.0"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := locateAgentBinary(InstallConfig{CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("locateAgentBinary: %v", err)
	}
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocateEmptyCache(t *testing.T) {
	_, err := locateAgentBinary(InstallConfig{CacheDir: t.TempDir()})
	var startErr *StartupError
	if !errors.As(err, &startErr) {
		t.Fatalf("err = %v, want StartupError", err)
	}
}

func TestClearAgentCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "agent")
	writeAgentVersion(t, cacheDir, "1.0.0")

	if err := clearAgentCache(InstallConfig{CacheDir: cacheDir}); err != nil {
		t.Fatalf("clearAgentCache: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Errorf("cache dir still present: %v", err)
	}

	// Clearing a missing cache is fine.
	if err := clearAgentCache(InstallConfig{CacheDir: cacheDir}); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0", "1.9.9", 1},
		{"1.0", "1.0.1", -1},
		{"1.0.0-beta", "1.0.0-alpha", 1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
