// Package cli implements the xcoff command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/config"
	"github.com/pase-tools/xcoffscan/internal/logging"
	"github.com/pase-tools/xcoffscan/internal/report"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/system"
	"github.com/pase-tools/xcoffscan/internal/ui"
)

var version = "dev"

const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError ends the command with Code. It carries no message; whatever the
// command had to say has already been printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

var errFailed = &ExitError{Code: ExitFailure}

type globalOptions struct {
	verbose    int
	quiet      bool
	format     string
	output     string
	dbPath     string
	configPath string
}

// app is the per-invocation state shared by every command.
type app struct {
	opts     globalOptions
	cfg      *config.Config
	logger   logging.Logger
	registry *analyzer.Registry

	stdout io.Writer
	stderr io.Writer
}

func (a *app) setup(cmd *cobra.Command) error {
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
	ui.Out = a.stderr

	level := logging.LevelForVerbosity(a.opts.verbose, a.opts.quiet)
	a.logger = logging.New(a.stderr, level, logging.NewOpID())

	cfgPath := config.Path(a.opts.configPath)
	cfg, err := config.Load(cfgPath, a.opts.configPath != "")
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger.Debug("config loaded", "path", cfgPath, "os", system.OS(), "arch", system.Architecture())

	if !system.IsAIX() {
		a.logger.Info("not running on AIX; analyzers depend on what and dump being on PATH")
	}

	a.registry = analyzer.Builtin(analyzer.Options{
		ObjectMode: cfg.ObjectMode,
		MaxOutput:  cfg.MaxOutputBytes,
	})
	return nil
}

func (a *app) formatter() (report.Formatter, error) {
	color := a.opts.output == "" && isTerminal(a.stdout)
	return report.New(a.opts.format, a.opts.verbose, color)
}

// emit renders through the selected formatter into -o FILE or stdout.
func (a *app) emit(render func(f report.Formatter, w io.Writer) error) error {
	f, err := a.formatter()
	if err != nil {
		return err
	}
	if a.opts.output == "" {
		return render(f, a.stdout)
	}

	file, err := os.Create(a.opts.output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := render(f, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	a.logger.Info("report written", "path", a.opts.output)
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	root, err := a.cfg.ResolveDBPath(a.opts.dbPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("using snapshot database", "path", root)
	return store.New(root, store.WithLogger(a.logger))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCmd builds the command tree. Every call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "xcoff",
		Short: "Capture, store and compare XCOFF object metadata",
		Long: `xcoff - XCOFF analysis and comparison tool for AIX and IBM i PASE

Runs the platform's what and dump commands against object files and
archives, records the parsed output as snapshots, and reports structural
differences between two files or two named snapshot sets.`,
		Example: `  # Capture a library and store it as a baseline
  xcoff snapshot /usr/lib/libc.a --store aix73

  # Check the installed library against the baseline
  xcoff compare /usr/lib/libc.a --against aix73

  # Compare two stored sets
  xcoff diff aix73 ibmi75`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.CountVarP(&a.opts.verbose, "verbose", "v", "increase verbosity (-vv for debug logs)")
	flags.BoolVarP(&a.opts.quiet, "quiet", "q", false, "only print errors")
	flags.StringVarP(&a.opts.format, "format", "f", report.FormatText, "output format: text, json")
	flags.StringVarP(&a.opts.output, "output", "o", "", "write the report to `FILE` instead of stdout")
	flags.StringVar(&a.opts.dbPath, "db-path", "", "snapshot database `DIR` (default $XCOFF_DB_PATH or ~/.xcoffscandb)")
	flags.StringVar(&a.opts.configPath, "config", "", "config `FILE` (default $XCOFF_CONFIG or ~/.config/xcoffscan.yml)")

	root.AddCommand(
		newSnapshotCmd(a),
		newCompareCmd(a),
		newDiffCmd(a),
		newInfoCmd(a),
		newValidateCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newVersionCmd(),
	)
	root.SetUsageTemplate(usageTemplate)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xcoff v%s\n", version)
		},
	}
}

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}

Environment:
  XCOFF_DB_PATH   snapshot database directory
  XCOFF_CONFIG    config file location
`

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return exitCode(ctx, err, cmd.ErrOrStderr())
}

func exitCode(ctx context.Context, err error, stderr io.Writer) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		fmt.Fprintln(stderr, "Interrupted")
		return ExitInterrupted
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFailure
}
