package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pase-tools/xcoffscan/internal/report"
	"github.com/pase-tools/xcoffscan/internal/system"
	"github.com/pase-tools/xcoffscan/internal/ui"
)

type listOptions struct {
	stored bool
	check  bool
}

func newListCmd(a *app) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list [--stored [NAME]]",
		Short: "List analyzers or stored snapshots",
		Long: `Without flags, list the analyzers and whether their commands are on PATH.
With --check the command exits 1 if any required command is missing.

With --stored, list the stored snapshot sets, or the files recorded in NAME.`,
		Example: `  xcoff list --check
  xcoff list --stored
  xcoff list --stored aix73`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && !opts.stored {
				return fmt.Errorf("NAME is only accepted with --stored")
			}
			if opts.stored {
				return listStored(a, args)
			}
			return listAnalyzers(a, opts.check)
		},
	}

	cmd.Flags().BoolVar(&opts.stored, "stored", false, "list stored snapshot sets, or the files of NAME")
	cmd.Flags().BoolVar(&opts.check, "check", false, "exit 1 if a required command is missing")
	return cmd
}

func listAnalyzers(a *app, check bool) error {
	infos := []report.AnalyzerInfo{}
	missing := false
	for _, an := range a.registry.All() {
		info := report.AnalyzerInfo{
			Name:        an.Name(),
			Description: an.Description(),
			Tools:       an.RequiredTools(),
			Missing:     an.CheckRequirements(),
		}
		missing = missing || !info.Available()
		infos = append(infos, info)
	}

	if err := a.emit(func(f report.Formatter, w io.Writer) error {
		return f.Analyzers(w, infos)
	}); err != nil {
		return err
	}
	if check && missing {
		return errFailed
	}
	return nil
}

func listStored(a *app, args []string) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		entries, err := st.ListSnapshots()
		if err != nil {
			return err
		}
		return a.emit(func(f report.Formatter, w io.Writer) error {
			return f.Sets(w, entries)
		})
	}

	name := args[0]
	if !st.Exists(name) {
		return unknownSetError(st, name)
	}
	files, err := st.ListFiles(name)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files in snapshot %q", name)
	}
	return a.emit(func(f report.Formatter, w io.Writer) error {
		return f.Files(w, name, files)
	})
}

type deleteOptions struct {
	yes bool
}

func newDeleteCmd(a *app) *cobra.Command {
	opts := &deleteOptions{}
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored snapshot set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if !st.Exists(name) {
				return unknownSetError(st, name)
			}

			if !opts.yes {
				if !system.HasTTY() {
					return fmt.Errorf("refusing to delete %q without --yes when not on a terminal", name)
				}
				entries, err := st.ListSnapshots()
				if err != nil {
					return err
				}
				question := fmt.Sprintf("Delete snapshot set %s (%d files)?", ui.Bold(name), entries[name].FileCount)
				ok, err := ui.Confirm(question, false)
				if err != nil {
					return err
				}
				if !ok {
					ui.Muted("Cancelled.")
					return nil
				}
			}

			deleted, err := st.DeleteSnapshot(name)
			if err != nil {
				return err
			}
			if !deleted {
				return unknownSetError(st, name)
			}
			if !a.opts.quiet {
				ui.Success(fmt.Sprintf("Deleted snapshot set %s", name))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "delete without asking")
	return cmd
}
