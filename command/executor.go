package command

import (
	"context"
	"os/exec"
)

// Executor is the seam between the builder and os/exec. Swapping it out
// lets tests run git subcommands against a scripted stub instead of the
// real binary.
type Executor interface {
	// Command builds an exec.Cmd for the given binary and arguments.
	Command(name string, args ...string) *exec.Cmd

	// CommandContext is Command with cancellation: the process is killed
	// when ctx is done.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor runs commands through os/exec. It is the Executor every
// non-test code path uses.
type RealExecutor struct{}

func (e *RealExecutor) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
