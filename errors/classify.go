package errors

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// gitPattern maps a stderr substring to the classified code. Patterns are
// matched case-insensitively, first match wins, so more specific phrases
// must come before generic ones.
type gitPattern struct {
	substr string
	code   ErrorCode
}

var gitPatterns = []gitPattern{
	{"not a git repository", ErrCodeGitNotARepository},
	{"index.lock", ErrCodeGitLockConflict},
	{"another git process", ErrCodeGitLockConflict},
	{"unable to create", ErrCodeGitLockConflict}, // "unable to create '...lock': File exists"
	{"needs merge", ErrCodeGitMergeConflict},
	{"not possible because you have unmerged files", ErrCodeGitMergeConflict},
	{"conflict", ErrCodeGitMergeConflict},
	{"head detached", ErrCodeGitDetachedHead},
	{"not currently on any branch", ErrCodeGitDetachedHead},
	{"no upstream", ErrCodeGitNoUpstream},
	{"no tracking information", ErrCodeGitNoUpstream},
	{"does not point to a branch", ErrCodeGitDetachedHead},
	{"unknown revision", ErrCodeGitRefNotFound},
	{"bad revision", ErrCodeGitRefNotFound},
	{"did not match any file(s) known to git", ErrCodeGitRefNotFound},
	{"couldn't find remote ref", ErrCodeGitRefNotFound},
	{"permission denied", ErrCodeGitPermissionDenied},
}

// ClassifyGit maps a raw git subprocess failure to a stable error code.
// OS-level "file or directory not found" is checked before any stderr
// sniffing: it usually means the repository does not exist yet, which
// callers treat as a benign absence rather than a git failure. Raw stderr
// is preserved in the Details map, never in the user-facing message.
func ClassifyGit(err error, stderr, repoPath, operation string) *CoreError {
	if err == nil {
		return nil
	}

	code := classifyGitCode(err, stderr)

	coreErr := Wrap(err, code, gitMessage(code, operation)).
		WithDetail("path", repoPath).
		WithDetail("operation", operation)

	if stderr != "" {
		coreErr = coreErr.WithDetail("stderr", strings.TrimSpace(stderr))
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		coreErr = coreErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return coreErr
}

func classifyGitCode(err error, stderr string) ErrorCode {
	// OS errors first: they come from a different vocabulary than git's
	// stderr and must not be pattern-matched against it.
	if errors.Is(err, os.ErrNotExist) {
		return ErrCodeGitNotARepository
	}
	if errors.Is(err, os.ErrPermission) {
		return ErrCodeGitPermissionDenied
	}
	if errors.Is(err, exec.ErrNotFound) {
		return ErrCodeCommandNotFound
	}

	lower := strings.ToLower(stderr)
	for _, p := range gitPatterns {
		if strings.Contains(lower, p.substr) {
			return p.code
		}
	}

	return ErrCodeGitUnknown
}

// IsBenignAbsence reports whether the error describes something that does
// not exist yet (uninitialized repository, unknown ref) rather than a
// failure of an existing repository. Callers typically render these as
// empty state, not as errors.
func IsBenignAbsence(err error) bool {
	switch GetCode(err) {
	case ErrCodeGitNotARepository, ErrCodeGitRefNotFound:
		return true
	}
	return false
}

func gitMessage(code ErrorCode, operation string) string {
	switch code {
	case ErrCodeGitNotARepository:
		return "not a git repository"
	case ErrCodeGitLockConflict:
		return "git index is locked by another process"
	case ErrCodeGitMergeConflict:
		return "merge conflict"
	case ErrCodeGitDetachedHead:
		return "repository is in detached HEAD state"
	case ErrCodeGitNoUpstream:
		return "no upstream branch configured"
	case ErrCodeGitRefNotFound:
		return "ref not found"
	case ErrCodeGitPermissionDenied:
		return "permission denied"
	case ErrCodeCommandNotFound:
		return "git binary not found"
	default:
		return "git " + operation + " failed"
	}
}
