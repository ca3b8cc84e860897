package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoreError(t *testing.T) {
	t.Run("error message without cause", func(t *testing.T) {
		err := New(ErrCodeGitLockConflict, "index is locked")
		assert.Equal(t, "GIT_LOCK_CONFLICT: index is locked", err.Error())
	})

	t.Run("error message with cause", func(t *testing.T) {
		cause := fmt.Errorf("exit status 128")
		err := Wrap(cause, ErrCodeGitUnknown, "git status failed")
		assert.Contains(t, err.Error(), "GIT_UNKNOWN")
		assert.Contains(t, err.Error(), "exit status 128")
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("details", func(t *testing.T) {
		err := New(ErrCodeGitNoUpstream, "no upstream").
			WithDetail("path", "/tmp/repo").
			WithDetail("operation", "push")
		assert.Equal(t, "/tmp/repo", err.Details["path"])
		assert.Equal(t, "push", err.Details["operation"])
	})
}

func TestIs(t *testing.T) {
	err := New(ErrCodeGitRefNotFound, "missing ref")
	assert.True(t, Is(err, ErrCodeGitRefNotFound))
	assert.False(t, Is(err, ErrCodeGitLockConflict))
	assert.False(t, Is(nil, ErrCodeGitLockConflict))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, Is(wrapped, ErrCodeGitRefNotFound))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeGitNoUpstream, GetCode(New(ErrCodeGitNoUpstream, "x")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))

	wrapped := fmt.Errorf("outer: %w", New(ErrCodeGitMergeConflict, "x"))
	assert.Equal(t, ErrCodeGitMergeConflict, GetCode(wrapped))
}
