package pathutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeForLookup creates a canonical path suitable for use as a map key
// or in comparisons. Two different string forms of the same working
// directory must normalize to the same key, since the operation queue and
// the branch watcher both group by path.
//
// It performs the following steps:
//  1. Makes the path absolute.
//  2. Cleans redundant separators and dot segments.
//  3. Evaluates any symbolic links (best effort: a path that does not exist
//     yet keeps its cleaned absolute form).
//  4. On case-insensitive OSes (macOS, Windows), converts the path to
//     lowercase.
func NormalizeForLookup(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	absPath = filepath.Clean(absPath)

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Path may not exist yet (e.g., a worktree about to be created).
		resolved = absPath
	}

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		resolved = strings.ToLower(resolved)
	}

	return resolved, nil
}
