package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *CoreError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *CoreError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// WatchSetupFailed creates an error for a watcher that could not be started
func WatchSetupFailed(chatID, path string, err error) *CoreError {
	return Wrap(err, ErrCodeWatchSetupFailed,
		fmt.Sprintf("failed to set up branch watch for %s", path)).
		WithDetail("chatId", chatID).
		WithDetail("path", path)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *CoreError {
	coreErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		coreErr = coreErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return coreErr
}
