package assist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// agentEntryFile is the executable expected inside each cached agent
// version directory.
const agentEntryFile = "agent"

// InstallConfig controls where the agent binary is found.
type InstallConfig struct {
	// BinaryPath, when set, is used verbatim and the cache is ignored.
	BinaryPath string

	// CacheDir holds downloaded agent versions, one subdirectory per
	// version. Empty means the default user cache location.
	CacheDir string
}

// defaultCacheDir returns the per-user agent cache location.
func defaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "sidekick", "agent"), nil
}

// locateAgentBinary resolves the agent executable. An explicitly
// configured path wins; otherwise the newest cached version directory that
// contains the entry file is used. A failure here becomes the session's
// error state, never a crash.
func locateAgentBinary(cfg InstallConfig) (string, error) {
	if cfg.BinaryPath != "" {
		if _, err := os.Stat(cfg.BinaryPath); err != nil {
			return "", &StartupError{Message: fmt.Sprintf("configured agent binary %s", cfg.BinaryPath), Err: err}
		}
		return cfg.BinaryPath, nil
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		var err error
		cacheDir, err = defaultCacheDir()
		if err != nil {
			return "", &StartupError{Message: "resolve cache directory", Err: err}
		}
	}

	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", &StartupError{Message: fmt.Sprintf("read agent cache %s", cacheDir), Err: err}
	}

	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(cacheDir, e.Name(), agentEntryFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return "", &StartupError{Message: fmt.Sprintf("no agent versions cached under %s", cacheDir)}
	}

	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) > 0
	})

	return filepath.Join(cacheDir, versions[0], agentEntryFile), nil
}

// clearAgentCache removes all cached agent versions so the next start
// fetches a fresh install. A missing cache directory is not an error.
func clearAgentCache(cfg InstallConfig) error {
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		var err error
		cacheDir, err = defaultCacheDir()
		if err != nil {
			return err
		}
	}
	if err := os.RemoveAll(cacheDir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// compareVersions orders dotted version strings numerically segment by
// segment, falling back to string order for non-numeric segments.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		default:
			if as[i] != bs[i] {
				if as[i] < bs[i] {
					return -1
				}
				return 1
			}
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
