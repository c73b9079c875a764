package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pase-tools/xcoffscan/internal/report"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/ui"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

type snapshotOptions struct {
	selection   selectionFlags
	store       string
	description string
}

func newSnapshotCmd(a *app) *cobra.Command {
	opts := &snapshotOptions{}
	cmd := &cobra.Command{
		Use:   "snapshot FILE...",
		Short: "Capture analysis snapshots of XCOFF files",
		Long: `Run the analyzers against each file and print the results.

Files that fail validation are reported and skipped. With --store the
snapshots are saved under NAME in the snapshot database, replacing any
earlier snapshot of the same file in that set.`,
		Example: `  xcoff snapshot /usr/lib/libc.a
  xcoff snapshot -a what,dump-T libfoo.so
  xcoff snapshot /usr/lib/*.a --store aix73 --description "AIX 7.3 TL2"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := a.selection(cmd, &opts.selection)
			if err != nil {
				return err
			}
			return runSnapshot(cmd.Context(), a, opts, sel, args)
		},
	}

	opts.selection.register(cmd)
	cmd.Flags().StringVar(&opts.store, "store", "", "store the snapshots under `NAME` (e.g. aix73, ibmi75, baseline)")
	cmd.Flags().StringVar(&opts.description, "description", "", "description recorded for the stored set")
	return cmd
}

func runSnapshot(ctx context.Context, a *app, opts *snapshotOptions, sel selection, files []string) error {
	if opts.description != "" && opts.store == "" {
		return fmt.Errorf("--description requires --store")
	}

	var st *store.Store
	if opts.store != "" {
		if err := store.ValidateName(opts.store); err != nil {
			return err
		}
		var err error
		if st, err = a.openStore(); err != nil {
			return err
		}
	}

	results := []*snapshot.Snapshot{}
	for _, file := range files {
		validation := xcoff.Validate(file)
		if !validation.Valid {
			ui.Error(fmt.Sprintf("%s: %s", file, validation.Error))
			continue
		}

		snap, err := a.capture(ctx, file, sel)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			ui.Error(fmt.Sprintf("%s: %v", file, err))
			continue
		}

		if st != nil {
			if _, err := st.Store(opts.store, snap); err != nil {
				return fmt.Errorf("failed to store %s: %w", file, err)
			}
			if !a.opts.quiet {
				ui.Info(fmt.Sprintf("Stored: %s -> %s", file, opts.store))
			}
		}
		results = append(results, snap)
	}

	if len(results) == 0 {
		return errFailed
	}
	if st != nil && opts.description != "" {
		if err := st.Describe(opts.store, opts.description); err != nil {
			return err
		}
	}

	return a.emit(func(f report.Formatter, w io.Writer) error {
		return f.Snapshots(w, results)
	})
}
