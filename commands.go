package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmbuild/collection"
	"github.com/mensylisir/xmbuild/config"
	"github.com/mensylisir/xmbuild/logger"
	"github.com/mensylisir/xmbuild/metrics"
	"github.com/mensylisir/xmbuild/pipeline"
	"github.com/mensylisir/xmbuild/runtime"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xmbuild",
		Short: "Run build plans as collections of undoable steps",
		Long: `xmbuild runs the entries of a plan in order. When an entry fails, the
rollback actions of everything that already ran are executed newest first,
then every completion action runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newDescribeCmd(), newKindsCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cli := runtime.NewCliArgs()
	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Execute a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(args[0], cli, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cli.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&cli.LogDir, "log-dir", "", "write rotated log files to this directory instead of the console")
	flags.BoolVarP(&cli.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&cli.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file when the run ends")
	flags.StringVar(&cli.TempBase, "temp-base", "", "directory temporary paths are allocated in")
	flags.StringVar(&cli.WorkDir, "work-dir", "", "directory relative paths and local commands run in")
	return cmd
}

func runPlan(path string, cli *runtime.CliArgs, out io.Writer) error {
	p, err := config.NewLoader(path).Load()
	if err != nil {
		return err
	}
	s := &p.Spec.Settings
	cli.Apply(s)

	level, err := logrus.ParseLevel(s.Log.Level)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if err := logger.InitGlobalLogger(s.Log.Dir, s.Log.Verbose, level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}

	rt, err := runtime.FromPlan(p, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	recorder, err := metrics.NewPrometheus()
	if err != nil {
		return err
	}
	c, err := pipeline.Build(p, rt, collection.WithRecorder(recorder))
	if err != nil {
		return err
	}

	agg := c.Run()
	if s.MetricsFile != "" {
		if err := recorder.WriteTextfile(s.MetricsFile); err != nil {
			logger.Log.Warnf("Failed to export metrics: %v", err)
		}
	}
	for _, d := range agg.Diagnostics {
		fmt.Fprintf(out, "warning: %s %s: %s\n", d.Phase, d.Entry, d.Result)
	}
	if agg.Failed() {
		return errors.Errorf("plan %s failed at entry %s: %s", p.Metadata.Name, agg.FailedEntry, agg.Message)
	}
	fmt.Fprintf(out, "plan %s completed\n", p.Metadata.Name)
	return nil
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <plan>",
		Short: "Print the entries of a plan without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.NewLoader(args[0]).Load()
			if err != nil {
				return err
			}
			rt, err := runtime.FromPlan(p, nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			c, err := pipeline.Build(p, rt)
			if err != nil {
				return err
			}
			return c.Describe(cmd.OutOrStdout())
		},
	}
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the entry kinds a plan can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, k := range pipeline.GetRegisteredKinds() {
				host := ""
				if k.Host {
					host = " (host)"
				}
				fmt.Fprintf(out, "%s%s: %s\n", k.Name, host, k.Description)
				for _, param := range k.Parameters {
					var notes []string
					if param.Required {
						notes = append(notes, "required")
					}
					if param.DefaultValue != nil {
						notes = append(notes, fmt.Sprintf("default %v", param.DefaultValue))
					}
					line := fmt.Sprintf("    %s %s: %s", param.Name, param.Type, param.Description)
					if len(notes) > 0 {
						line += " [" + strings.Join(notes, ", ") + "]"
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xmbuild version %s\n", version)
		},
	}
}
