// Package cmd implements the conceptual command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/conceptual/internal/log"
	"github.com/zjrosen/conceptual/internal/presentation"
	"github.com/zjrosen/conceptual/internal/tracing"
)

var version = "dev"

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
}

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	projectDir string
	goldPaths  []string
	debug      bool
	logFile    string
	noColor    bool
	verbose    int
	quiet      bool
}

// runtime is the state of one invocation. Commands receive it instead of
// reading globals.
type runtime struct {
	opts    rootOptions
	out     io.Writer
	errOut  io.Writer
	env     *viper.Viper
	tracing *tracing.Provider
	cleanup []func()
}

// exitError ends the process with code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply cannot race the watch TUI's input loop.
	_ = lipgloss.HasDarkBackground()
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	rt := &runtime{out: out, errOut: errOut, env: newEnv()}
	defer rt.close()

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	_, _ = fmt.Fprintf(errOut, "Error: %s\n", err)
	return 1
}

// newEnv reads CONCEPTUAL_* variables for the persistent flags.
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CONCEPTUAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-file", "conceptual-debug.log")
	return v
}

func newRootCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conceptual",
		Short: "Conceptual modeling for dbt projects",
		Long: `conceptual keeps a declared conceptual model (conceptual.yml) in sync with
the dbt models that implement it: it reconciles concepts with models, reports
coverage and orphans, validates the model and diffs it across git refs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&rt.opts.projectDir, "project-dir", "p", "",
		"dbt project directory (default: nearest directory holding conceptual.yml or dbt_project.yml)")
	flags.StringSliceVar(&rt.opts.goldPaths, "gold-paths", nil,
		"override scan.gold patterns (repeatable or comma separated)")
	flags.BoolVar(&rt.opts.debug, "debug", false, "write debug logs to --log-file")
	flags.StringVar(&rt.opts.logFile, "log-file", "", "debug log file (default: conceptual-debug.log)")
	flags.BoolVar(&rt.opts.noColor, "no-color", false, "disable colored output")
	flags.CountVarP(&rt.opts.verbose, "verbose", "v", "log to stderr (-v info, -vv debug)")
	flags.BoolVarP(&rt.opts.quiet, "quiet", "q", false, "only print errors")

	_ = rt.env.BindPFlag("project-dir", flags.Lookup("project-dir"))
	_ = rt.env.BindPFlag("debug", flags.Lookup("debug"))
	_ = rt.env.BindPFlag("log-file", flags.Lookup("log-file"))
	_ = rt.env.BindPFlag("no-color", flags.Lookup("no-color"))

	cmd.AddCommand(
		newInitCmd(rt),
		newStatusCmd(rt),
		newOrphansCmd(rt),
		newValidateCmd(rt),
		newSyncCmd(rt),
		newDiffCmd(rt),
		newCoverageCmd(rt),
		newShowCmd(rt),
		newTagsCmd(rt),
		newHistoryCmd(rt),
		newWatchCmd(rt),
	)
	return cmd
}

// setup resolves env-backed flags and configures logging.
func (rt *runtime) setup(cmd *cobra.Command) error {
	rt.opts.projectDir = rt.env.GetString("project-dir")
	rt.opts.debug = rt.env.GetBool("debug")
	rt.opts.logFile = rt.env.GetString("log-file")
	rt.opts.noColor = rt.env.GetBool("no-color") || os.Getenv("NO_COLOR") != ""

	if rt.opts.quiet && rt.opts.verbose > 0 {
		return errors.New("--quiet and --verbose are mutually exclusive")
	}

	logOpts := log.Options{Writer: rt.errOut, Level: log.LevelInfo}
	switch {
	case rt.opts.debug:
		logOpts = log.Options{Path: rt.opts.logFile, Level: log.LevelDebug}
	case rt.opts.verbose > 1:
		logOpts.Level = log.LevelDebug
	case rt.opts.verbose == 1:
	default:
		log.Disable()
		return nil
	}
	cleanup, err := log.Setup(logOpts)
	if err != nil {
		return err
	}
	rt.cleanup = append(rt.cleanup, cleanup)
	log.Info(log.CatConfig, "Logging enabled", "command", cmd.CommandPath(), "version", version, "level", logOpts.Level)
	return nil
}

func (rt *runtime) close() {
	if rt.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rt.tracing.Shutdown(ctx); err != nil {
			log.Warn(log.CatConfig, "Tracing shutdown failed", "error", err)
		}
		cancel()
	}
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

// humanOut is where human-readable output goes; quiet mode discards it.
func (rt *runtime) humanOut() io.Writer {
	if rt.opts.quiet {
		return io.Discard
	}
	return rt.out
}

// formatter returns a formatter for format. Machine formats are never
// silenced by --quiet.
func (rt *runtime) formatter(format presentation.Format) *presentation.Formatter {
	w := rt.out
	if format == presentation.FormatHuman {
		w = rt.humanOut()
	}
	var opts []presentation.Option
	if rt.opts.noColor || format != presentation.FormatHuman {
		opts = append(opts, presentation.WithColor(false))
	}
	return presentation.NewFormatter(w, opts...)
}

// fail prints msg to stderr and returns an exitError with code 1.
func (rt *runtime) fail(format string, args ...any) error {
	_, _ = fmt.Fprintf(rt.errOut, format+"\n", args...)
	return &exitError{code: 1}
}
