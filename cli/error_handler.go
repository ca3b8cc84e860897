package cli

import (
	"fmt"
	"os"

	"github.com/tendrilhq/tendril-core/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeGitNotARepository:
		fmt.Fprintf(os.Stderr, "❌ Not a git repository. Run this command inside a checkout, or pass a repository path.\n")
		return err

	case errors.ErrCodeGitLockConflict:
		fmt.Fprintf(os.Stderr, "❌ Another git process is holding the repository lock. Retry in a moment.\n")
		return err

	case errors.ErrCodeGitMergeConflict:
		fmt.Fprintf(os.Stderr, "❌ Merge conflict. Resolve the conflicted files, then try again.\n")
		return err

	case errors.ErrCodeGitDetachedHead:
		fmt.Fprintf(os.Stderr, "❌ The checkout is on a detached HEAD. Check out a branch first.\n")
		return err

	case errors.ErrCodeGitRefNotFound:
		if coreErr, ok := err.(*errors.CoreError); ok {
			fmt.Fprintf(os.Stderr, "❌ Unknown revision or ref: %v\n", coreErr.Details["operation"])
		} else {
			fmt.Fprintf(os.Stderr, "❌ Unknown revision or ref\n")
		}
		return err

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create a tendril.yml in the project root.\n")
		return err

	case errors.ErrCodeCommandNotFound:
		fmt.Fprintf(os.Stderr, "❌ git executable not found. Make sure git is installed and on PATH.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if coreErr, ok := err.(*errors.CoreError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", coreErr.ToJSON())
			}
		}
		return err
	}
}
