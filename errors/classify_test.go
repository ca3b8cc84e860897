package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyGit(t *testing.T) {
	raw := stderrors.New("exit status 128")

	tests := []struct {
		name   string
		err    error
		stderr string
		want   ErrorCode
	}{
		{"not a repository", raw, "fatal: not a git repository (or any of the parent directories): .git", ErrCodeGitNotARepository},
		{"lock conflict", raw, "fatal: Unable to create '/repo/.git/index.lock': File exists.", ErrCodeGitLockConflict},
		{"another process", raw, "Another git process seems to be running in this repository", ErrCodeGitLockConflict},
		{"merge conflict", raw, "CONFLICT (content): Merge conflict in main.go", ErrCodeGitMergeConflict},
		{"unmerged files", raw, "error: Pulling is not possible because you have unmerged files.", ErrCodeGitMergeConflict},
		{"detached head", raw, "HEAD detached at a1b2c3d", ErrCodeGitDetachedHead},
		{"no upstream", raw, "fatal: no upstream configured for branch 'feature'", ErrCodeGitNoUpstream},
		{"no tracking info", raw, "There is no tracking information for the current branch.", ErrCodeGitNoUpstream},
		{"unknown revision", raw, "fatal: ambiguous argument 'nope': unknown revision or path not in the working tree.", ErrCodeGitRefNotFound},
		{"bad revision", raw, "fatal: bad revision 'HEAD~99'", ErrCodeGitRefNotFound},
		{"pathspec", raw, "error: pathspec 'missing' did not match any file(s) known to git", ErrCodeGitRefNotFound},
		{"permission denied", raw, "error: insufficient permission for adding an object; Permission denied", ErrCodeGitPermissionDenied},
		{"unrecognized stderr", raw, "fatal: something entirely new", ErrCodeGitUnknown},
		{"empty stderr", raw, "", ErrCodeGitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coreErr := ClassifyGit(tt.err, tt.stderr, "/tmp/repo", "status")
			require.NotNil(t, coreErr)
			assert.Equal(t, tt.want, coreErr.Code)
			assert.Equal(t, "/tmp/repo", coreErr.Details["path"])
			assert.Equal(t, "status", coreErr.Details["operation"])
		})
	}
}

func TestClassifyGitOSErrors(t *testing.T) {
	t.Run("file not found is absence, not a git failure", func(t *testing.T) {
		err := fmt.Errorf("stat repo: %w", os.ErrNotExist)
		coreErr := ClassifyGit(err, "", "/tmp/missing", "status")
		assert.Equal(t, ErrCodeGitNotARepository, coreErr.Code)
		assert.True(t, IsBenignAbsence(coreErr))
	})

	t.Run("os permission error", func(t *testing.T) {
		err := fmt.Errorf("open: %w", os.ErrPermission)
		coreErr := ClassifyGit(err, "", "/tmp/repo", "checkout")
		assert.Equal(t, ErrCodeGitPermissionDenied, coreErr.Code)
	})

	t.Run("missing git binary", func(t *testing.T) {
		err := fmt.Errorf("exec: %w", exec.ErrNotFound)
		coreErr := ClassifyGit(err, "", "/tmp/repo", "status")
		assert.Equal(t, ErrCodeCommandNotFound, coreErr.Code)
	})

	t.Run("os error wins over stderr patterns", func(t *testing.T) {
		err := fmt.Errorf("stat: %w", os.ErrNotExist)
		coreErr := ClassifyGit(err, "permission denied", "/tmp/repo", "status")
		assert.Equal(t, ErrCodeGitNotARepository, coreErr.Code)
	})
}

func TestClassifyGitNil(t *testing.T) {
	assert.Nil(t, ClassifyGit(nil, "", "/tmp/repo", "status"))
}

func TestIsBenignAbsence(t *testing.T) {
	assert.True(t, IsBenignAbsence(New(ErrCodeGitNotARepository, "x")))
	assert.True(t, IsBenignAbsence(New(ErrCodeGitRefNotFound, "x")))
	assert.False(t, IsBenignAbsence(New(ErrCodeGitLockConflict, "x")))
	assert.False(t, IsBenignAbsence(nil))
}
