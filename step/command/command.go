package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/common"
	"github.com/mensylisir/xmbuild/connector"
	"github.com/mensylisir/xmbuild/ending"
	"github.com/mensylisir/xmbuild/executor"
	"github.com/mensylisir/xmbuild/runner"
	"github.com/mensylisir/xmbuild/step"
	"github.com/mensylisir/xmbuild/util"
)

// Output is reported in Result.Data by every command step.
type Output = executor.Output

const maxLoggedOutput = 2048

// Step runs a command line through a runner.
type Step struct {
	step.BaseStep
	runner  runner.Runner
	argv    []step.Value // program and arguments, quoted individually
	script  step.Value   // used verbatim when argv is empty
	dir     step.Value
	env     []string
	sudo    bool
	timeout time.Duration
}

// Run executes name with args. Each argument is shell-quoted.
func Run(r runner.Runner, name string, args ...step.Value) *Step {
	argv := append([]step.Value{step.Literal(name)}, args...)
	desc := make([]string, len(argv))
	for i, a := range argv {
		desc[i] = step.Describe(a)
	}
	return &Step{
		BaseStep: step.NewBaseStep(fmt.Sprintf("run '%s' on %s", strings.Join(desc, " "), r.Target())),
		runner:   r,
		argv:     argv,
	}
}

// Shell executes script with /bin/sh semantics.
func Shell(r runner.Runner, script step.Value) *Step {
	return &Step{
		BaseStep: step.NewBaseStep(fmt.Sprintf("run script on %s: %s", r.Target(), util.TruncateString(step.Describe(script), 60, "..."))),
		runner:   r,
		script:   script,
	}
}

// InDir runs the command from dir.
func (s *Step) InDir(dir step.Value) *Step {
	s.dir = dir
	return s
}

// WithEnv exports KEY=VALUE pairs before the command runs.
func (s *Step) WithEnv(env ...string) *Step {
	s.env = append(s.env, env...)
	return s
}

// AsRoot runs the command through sudo.
func (s *Step) AsRoot() *Step {
	s.sudo = true
	return s
}

// WithTimeout bounds how long the command may run.
func (s *Step) WithTimeout(d time.Duration) *Step {
	s.timeout = d
	return s
}

// CommandLine builds the shell line the runner receives.
func (s *Step) CommandLine() (string, error) {
	var line string
	if len(s.argv) > 0 {
		args, err := step.Resolve(s.argv...)
		if err != nil {
			return "", err
		}
		line = runner.Join(args...)
	} else {
		script, err := s.script.Value()
		if err != nil {
			return "", err
		}
		line = script
	}

	var prefix []string
	if s.dir != nil {
		dir, err := s.dir.Value()
		if err != nil {
			return "", err
		}
		prefix = append(prefix, "cd "+connector.ShellQuote(dir))
	}
	for _, kv := range s.env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return "", errors.Errorf("invalid environment entry %q, want KEY=VALUE", kv)
		}
		prefix = append(prefix, "export "+k+"="+connector.ShellQuote(v))
	}
	if len(prefix) == 0 {
		return line, nil
	}
	return strings.Join(prefix, " && ") + " && " + line, nil
}

func (s *Step) Execute(log *logrus.Entry) *ending.Result {
	line, err := s.CommandLine()
	if err != nil {
		return ending.Failure(err, "")
	}
	log = log.WithField(common.HostName, s.runner.Target())

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	run := s.runner.Run
	if s.sudo {
		run = s.runner.SudoRun
	}
	log.Debugf("executing: %s", line)
	stdout, stderr, code, err := run(ctx, line)
	out := Output{Stdout: stdout, Stderr: stderr, ExitCode: code}
	if stdout != "" {
		log.Debugf("stdout:\n%s", util.TruncateString(stdout, maxLoggedOutput, "..."))
	}
	if stderr != "" {
		log.Debugf("stderr:\n%s", util.TruncateString(stderr, maxLoggedOutput, "..."))
	}

	if err != nil {
		r := ending.Failure(errors.Wrapf(err, "command failed on %s", s.runner.Target()), "")
		r.Data = out
		return r
	}
	if code != 0 {
		r := ending.Failuref("command exited with code %d", code)
		if msg := strings.TrimSpace(stderr); msg != "" {
			r.Message += ": " + util.TruncateString(msg, 512, "...")
		}
		r.Data = out
		return r
	}
	return ending.Success(strings.TrimSpace(util.TruncateString(stdout, 512, "...")), out)
}

var _ step.Step = (*Step)(nil)
