package executor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Command is a process to start on the local machine.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Env   []string // appended to the current environment
	Stdin io.Reader
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output is what a finished process left behind.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs local processes. A non-zero exit status is reported in
// Output.ExitCode, not as an error; err is set only when the process could
// not run at all.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Output, error)
}

type localExecutor struct{}

// NewLocalExecutor creates a new Executor for local operations.
func NewLocalExecutor() Executor {
	return &localExecutor{}
}

func (l *localExecutor) Execute(ctx context.Context, c Command) (Output, error) {
	if c.Name == "" {
		return Output{ExitCode: -1}, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdin = c.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Exited() {
			out.ExitCode = status.ExitStatus()
			return out, nil
		}
		out.ExitCode = -1
		return out, errors.Wrapf(err, "command '%s' terminated", c)
	}
	out.ExitCode = -1
	return out, errors.Wrapf(err, "failed to run command '%s'", c)
}

// Shell wraps a script for /bin/sh.
func Shell(script string) Command {
	return Command{Name: "/bin/sh", Args: []string{"-c", script}}
}
