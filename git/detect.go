package git

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tendrilhq/tendril-core/util/pathutil"
)

// skippedScanDirs are dependency-manager directories that are never
// nested repositories worth surfacing.
var skippedScanDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// DetectRepos scans a project root one directory level deep for nested
// git repositories. Hidden directories and dependency directories are
// skipped. Results are cached with a multi-minute TTL; callers invalidate
// explicitly when they observe a filesystem change under the root.
func (e *Engine) DetectRepos(ctx context.Context, projectRoot string) (*RepoLayout, error) {
	key, err := pathutil.NormalizeForLookup(projectRoot)
	if err != nil {
		return nil, err
	}
	cacheKey := "scan:" + key

	if layout, ok := e.scanCache.Get(cacheKey); ok {
		return layout, nil
	}

	layout := &RepoLayout{SubRepos: []string{}}
	layout.RootIsRepo = hasGitEntry(projectRoot)

	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || skippedScanDirs[name] {
			continue
		}
		if hasGitEntry(filepath.Join(projectRoot, name)) {
			layout.SubRepos = append(layout.SubRepos, name)
		}
	}

	sort.Strings(layout.SubRepos)

	e.scanCache.Set(cacheKey, layout)
	return layout, nil
}

// InvalidateRepoScan drops the cached scan for a project root.
func (e *Engine) InvalidateRepoScan(projectRoot string) {
	key, err := pathutil.NormalizeForLookup(projectRoot)
	if err != nil {
		return
	}
	e.scanCache.Delete("scan:" + key)
}

// hasGitEntry reports whether dir contains a .git entry. Both forms count:
// a directory (ordinary repository) or a regular file (linked worktree or
// submodule).
func hasGitEntry(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
