package pipeline

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/step"
	"github.com/mensylisir/xmbuild/step/archive"
	"github.com/mensylisir/xmbuild/step/command"
	"github.com/mensylisir/xmbuild/step/fsops"
	"github.com/mensylisir/xmbuild/step/remote"
	"github.com/mensylisir/xmbuild/step/render"
)

const (
	KindTempDir  = "tempdir"
	KindTempFile = "tempfile"
)

func init() {
	for _, k := range builtinKinds() {
		MustRegister(k)
	}
}

var (
	modeParam = ParameterDefinition{Name: "mode", Type: ParamTypeString, Description: "octal file mode"}
	srcParam  = ParameterDefinition{Name: "src", Type: ParamTypePath, Description: "source path", Required: true}
	dstParam  = ParameterDefinition{Name: "dst", Type: ParamTypePath, Description: "destination path", Required: true}
	pathParam = ParameterDefinition{Name: "path", Type: ParamTypePath, Description: "target path", Required: true}

	commandParams = []ParameterDefinition{
		{Name: "dir", Type: ParamTypePath, Description: "working directory"},
		{Name: "env", Type: ParamTypeMap, Description: "environment variables"},
		{Name: "sudo", Type: ParamTypeBoolean, Description: "run as root through sudo", DefaultValue: false},
		{Name: "timeout", Type: ParamTypeString, Description: "Go duration after which the command is cancelled"},
	}
)

func builtinKinds() []Kind {
	return []Kind{
		{
			Name:        config.KindGroup,
			Description: "nested collection of entries",
			Build:       structural(config.KindGroup),
		},
		{
			Name:        KindTempDir,
			Description: "temporary directory removed when the run ends",
			Build:       structural(KindTempDir),
		},
		{
			Name:        KindTempFile,
			Description: "temporary file path removed when the run ends",
			Parameters: []ParameterDefinition{
				{Name: "ext", Type: ParamTypeString, Description: "file name extension, e.g. .json"},
			},
			Build: structural(KindTempFile),
		},
		{
			Name:        "mkdir",
			Description: "create a directory and its parents",
			Parameters:  []ParameterDefinition{pathParam, modeParam},
			Build:       buildMkdir,
		},
		{
			Name:        "write",
			Description: "write a file, restoring its previous content on rollback",
			Parameters: []ParameterDefinition{
				pathParam,
				{Name: "content", Type: ParamTypeString, Description: "file content", Required: true},
				modeParam,
			},
			Build: buildWrite,
		},
		{
			Name:        "rename",
			Description: "move a path to an absent destination",
			Parameters:  []ParameterDefinition{srcParam, dstParam},
			Build:       twoPaths(func(src, dst step.Value) step.Step { return fsops.Rename(src, dst) }),
		},
		{
			Name:        "copy",
			Description: "copy a file or tree to an absent destination",
			Parameters:  []ParameterDefinition{srcParam, dstParam},
			Build:       twoPaths(func(src, dst step.Value) step.Step { return fsops.Copy(src, dst) }),
		},
		{
			Name:        "remove",
			Description: "remove a path if it exists",
			Parameters:  []ParameterDefinition{pathParam},
			Build:       buildRemove,
		},
		{
			Name:        "tar",
			Description: "pack a directory into a gzipped tarball",
			Parameters:  []ParameterDefinition{srcParam, dstParam},
			Build:       twoPaths(func(src, dst step.Value) step.Step { return archive.Tar(src, dst) }),
		},
		{
			Name:        "untar",
			Description: "unpack a gzipped tarball into a directory",
			Parameters:  []ParameterDefinition{srcParam, dstParam},
			Build:       twoPaths(func(src, dst step.Value) step.Step { return archive.Untar(src, dst) }),
		},
		{
			Name:        "template",
			Description: "render a Go template into a file",
			Parameters: []ParameterDefinition{
				pathParam,
				{Name: "template", Type: ParamTypeString, Description: "inline template text"},
				{Name: "file", Type: ParamTypePath, Description: "template file"},
				{Name: "data", Type: ParamTypeMap, Description: "template data"},
				modeParam,
			},
			Build: buildTemplate,
		},
		{
			Name:        "exec",
			Description: "run a program with arguments",
			Host:        true,
			Parameters: append([]ParameterDefinition{
				{Name: "command", Type: ParamTypeString, Description: "program to run", Required: true},
				{Name: "args", Type: ParamTypeList, Description: "program arguments"},
			}, commandParams...),
			Build: buildExec,
		},
		{
			Name:        "shell",
			Description: "run a shell script",
			Host:        true,
			Parameters: append([]ParameterDefinition{
				{Name: "script", Type: ParamTypeString, Description: "script text", Required: true},
			}, commandParams...),
			Build: buildShell,
		},
		{
			Name:        "upload",
			Description: "copy a local file to a host over SFTP",
			Host:        true,
			Parameters: []ParameterDefinition{
				srcParam,
				{Name: "dst", Type: ParamTypeString, Description: "remote path", Required: true},
				modeParam,
			},
			Build: buildUpload,
		},
		{
			Name:        "log",
			Description: "write a message to the log",
			Parameters: []ParameterDefinition{
				{Name: "message", Type: ParamTypeString, Description: "message text", Required: true},
				{Name: "level", Type: ParamTypeString, Description: "log level", DefaultValue: "info"},
			},
			Build: buildLog,
		},
	}
}

// structural kinds are built by the collection walker itself; reaching the
// factory means the entry sits where only a plain step may go.
func structural(kind string) StepFactory {
	return func(*Context) (step.Step, error) {
		return nil, errors.Errorf("kind %s cannot be used as a rollback or completion action", kind)
	}
}

func twoPaths(fn func(src, dst step.Value) step.Step) StepFactory {
	return func(ctx *Context) (step.Step, error) {
		src, err := ctx.Args.Path("src")
		if err != nil {
			return nil, err
		}
		dst, err := ctx.Args.Path("dst")
		if err != nil {
			return nil, err
		}
		return fn(src, dst), nil
	}
}

func buildMkdir(ctx *Context) (step.Step, error) {
	path, err := ctx.Args.Path("path")
	if err != nil {
		return nil, err
	}
	mode, err := ctx.Args.Mode("mode")
	if err != nil {
		return nil, err
	}
	s := fsops.Mkdir(path)
	s.Mode = mode
	return s, nil
}

func buildWrite(ctx *Context) (step.Step, error) {
	path, err := ctx.Args.Path("path")
	if err != nil {
		return nil, err
	}
	content, err := ctx.Args.Value("content")
	if err != nil {
		return nil, err
	}
	mode, err := ctx.Args.Mode("mode")
	if err != nil {
		return nil, err
	}
	return fsops.WriteFile(path, content, mode), nil
}

func buildRemove(ctx *Context) (step.Step, error) {
	path, err := ctx.Args.Path("path")
	if err != nil {
		return nil, err
	}
	return fsops.Remove(path), nil
}

func buildTemplate(ctx *Context) (step.Step, error) {
	if ctx.Args.Has("template") == ctx.Args.Has("file") {
		return nil, errors.New("exactly one of template and file is required")
	}
	path, err := ctx.Args.Path("path")
	if err != nil {
		return nil, err
	}
	data, err := ctx.Args.Data("data")
	if err != nil {
		return nil, err
	}
	mode, err := ctx.Args.Mode("mode")
	if err != nil {
		return nil, err
	}
	if ctx.Args.Has("file") {
		tmplPath, err := ctx.Args.Path("file")
		if err != nil {
			return nil, err
		}
		return render.TemplateFile(path, tmplPath, data, mode), nil
	}
	text, err := ctx.Args.String("template")
	if err != nil {
		return nil, err
	}
	return render.Template(path, text, data, mode), nil
}

func buildExec(ctx *Context) (step.Step, error) {
	r, err := ctx.Runner()
	if err != nil {
		return nil, err
	}
	name, err := ctx.Args.String("command")
	if err != nil {
		return nil, err
	}
	args, err := ctx.Args.List("args")
	if err != nil {
		return nil, err
	}
	return withCommandOptions(ctx, command.Run(r, name, args...))
}

func buildShell(ctx *Context) (step.Step, error) {
	r, err := ctx.Runner()
	if err != nil {
		return nil, err
	}
	script, err := ctx.Args.Value("script")
	if err != nil {
		return nil, err
	}
	return withCommandOptions(ctx, command.Shell(r, script))
}

func withCommandOptions(ctx *Context, s *command.Step) (step.Step, error) {
	// remote directories are taken as given
	dir, err := ctx.Args.Value("dir")
	if ctx.Entry.Host == "" {
		dir, err = ctx.Args.Path("dir")
	}
	if err != nil {
		return nil, err
	}
	if dir != nil {
		s.InDir(dir)
	}
	env, err := ctx.Args.Env("env")
	if err != nil {
		return nil, err
	}
	if len(env) > 0 {
		s.WithEnv(env...)
	}
	sudo, err := ctx.Args.Bool("sudo")
	if err != nil {
		return nil, err
	}
	if sudo {
		s.AsRoot()
	}
	timeout, err := ctx.Args.Duration("timeout")
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		s.WithTimeout(timeout)
	}
	return s, nil
}

func buildUpload(ctx *Context) (step.Step, error) {
	if ctx.Entry.Host == "" {
		return nil, errors.New("upload needs a host")
	}
	host, ok := ctx.Runtime.Host(ctx.Entry.Host)
	if !ok {
		return nil, errors.Errorf("unknown host %q", ctx.Entry.Host)
	}
	src, err := ctx.Args.Path("src")
	if err != nil {
		return nil, err
	}
	dst, err := ctx.Args.Value("dst")
	if err != nil {
		return nil, err
	}
	mode, err := ctx.Args.Mode("mode")
	if err != nil {
		return nil, err
	}
	s := remote.Upload(ctx.Runtime.Connections(), host, src, dst)
	s.Mode = mode
	return s, nil
}

func buildLog(ctx *Context) (step.Step, error) {
	message, err := ctx.Args.String("message")
	if err != nil {
		return nil, err
	}
	name, err := ctx.Args.String("level")
	if err != nil {
		return nil, err
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, errors.Wrap(err, "argument level")
	}
	return step.Func("log: "+message, func(log *logrus.Entry) error {
		log.Log(level, message)
		return nil
	}), nil
}
