package runner

import (
	"context"
	"strings"

	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/executor"
)

// Runner executes shell command lines on some target.
type Runner interface {
	// Run executes a command.
	// Returns stdout, stderr, exit code, and error. A non-zero exit code is
	// not an error.
	Run(ctx context.Context, command string) (stdout string, stderr string, exitCode int, err error)

	// SudoRun executes a command with superuser privileges.
	SudoRun(ctx context.Context, command string) (stdout string, stderr string, exitCode int, err error)

	// Target names where commands run, for logs.
	Target() string
}

type localRunner struct {
	exec executor.Executor
	dir  string
	env  []string
}

// Option tunes a local runner.
type Option func(*localRunner)

// InDir sets the working directory of local commands.
func InDir(dir string) Option {
	return func(r *localRunner) { r.dir = dir }
}

// WithEnv adds KEY=VALUE pairs to the environment of local commands.
func WithEnv(env ...string) Option {
	return func(r *localRunner) { r.env = append(r.env, env...) }
}

// NewLocalRunner creates a Runner that passes commands to /bin/sh on this machine.
func NewLocalRunner(opts ...Option) Runner {
	r := &localRunner{exec: executor.NewLocalExecutor()}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *localRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	cmd := executor.Shell(command)
	cmd.Dir = r.dir
	cmd.Env = r.env
	out, err := r.exec.Execute(ctx, cmd)
	return out.Stdout, out.Stderr, out.ExitCode, err
}

func (r *localRunner) SudoRun(ctx context.Context, command string) (string, string, int, error) {
	return r.Run(ctx, connector.SudoPrefix(command))
}

func (r *localRunner) Target() string {
	return "localhost"
}

type connRunner struct {
	name string
	conn connector.Connection
}

// NewConnRunner creates a Runner that executes commands over conn.
func NewConnRunner(name string, conn connector.Connection) Runner {
	return &connRunner{name: name, conn: conn}
}

func (r *connRunner) Run(ctx context.Context, command string) (string, string, int, error) {
	stdout, stderr, code, err := r.conn.Exec(ctx, command)
	return string(stdout), string(stderr), code, err
}

func (r *connRunner) SudoRun(ctx context.Context, command string) (string, string, int, error) {
	return r.Run(ctx, connector.SudoPrefix(command))
}

func (r *connRunner) Target() string {
	return r.name
}

// Join quotes each argument and joins them into one command line.
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = connector.ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}
