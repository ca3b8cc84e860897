package gitexec

import (
	"bytes"
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tendrilhq/tendril-core/command"
	"github.com/tendrilhq/tendril-core/errors"
	"github.com/tendrilhq/tendril-core/logging"
)

// Runner executes git with argument vectors in a repository working
// directory, capturing stdout and stderr separately so failures can be
// classified into stable error codes.
type Runner struct {
	cmdBuilder *command.SafeBuilder
	gitBinary  string
	logger     *logrus.Entry
}

// NewRunner creates a Runner using the git binary found on PATH.
func NewRunner() *Runner {
	return NewRunnerWith("git", command.NewSafeBuilder())
}

// NewRunnerWith creates a Runner with an explicit binary and builder.
// Tests use this to point at a stub executor.
func NewRunnerWith(gitBinary string, builder *command.SafeBuilder) *Runner {
	return &Runner{
		cmdBuilder: builder,
		gitBinary:  gitBinary,
		logger:     logging.NewLogger("git-exec"),
	}
}

// Git runs `git args...` with dir as the working directory and returns
// stdout. On failure the returned error is a classified *errors.CoreError
// carrying the operation name, repository path, and raw stderr as details.
func (r *Runner) Git(ctx context.Context, dir string, args ...string) (string, error) {
	if err := r.cmdBuilder.Validate("repoPath", dir); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid repository path")
	}

	cmd, err := r.cmdBuilder.Build(ctx, r.gitBinary, args...)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to build git command")
	}

	execCmd := cmd.Exec()
	execCmd.Dir = dir

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	runErr := execCmd.Run()
	if runErr != nil {
		coreErr := errors.ClassifyGit(runErr, stderr.String(), dir, operationName(args))
		r.logger.WithFields(logrus.Fields{
			"path": dir,
			"args": strings.Join(args, " "),
			"code": coreErr.Code,
		}).Debug("git command failed")
		return stdout.String(), coreErr
	}

	return stdout.String(), nil
}

// operationName derives a short label from the argument vector, skipping
// leading configuration flags like -C or -c.
func operationName(args []string) string {
	var words []string
	for i := 0; i < len(args) && len(words) < 2; i++ {
		if strings.HasPrefix(args[i], "-") {
			// -C and -c consume a value
			if args[i] == "-C" || args[i] == "-c" {
				i++
			}
			continue
		}
		words = append(words, args[i])
	}
	if len(words) == 0 {
		return "git"
	}
	// Two-word names only for subcommand families like "worktree add"
	if len(words) == 2 && (words[0] == "worktree" || words[0] == "remote" || words[0] == "stash") {
		return words[0] + " " + words[1]
	}
	return words[0]
}
