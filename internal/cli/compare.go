package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/report"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

type compareOptions struct {
	selection   selectionFlags
	against     string
	summaryOnly bool
}

func newCompareCmd(a *app) *cobra.Command {
	opts := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare FILE1 [FILE2]",
		Short: "Compare two XCOFF files, or a file against a stored snapshot",
		Long: `Capture FILE1 and compare it with FILE2, or with the snapshot of the
same file stored under --against NAME.

With --against the stored snapshot is the old side. Unless -a is given only
the analyzers recorded in the stored snapshot are run.

Exits 1 when differences are found.`,
		Example: `  xcoff compare old/libfoo.a new/libfoo.a
  xcoff compare /usr/lib/libc.a --against aix73 --summary-only`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 2 && opts.against != "":
				return fmt.Errorf("use either FILE2 or --against, not both")
			case len(args) == 1 && opts.against == "":
				return fmt.Errorf("need --against NAME or a second file")
			}

			sel, err := a.selection(cmd, &opts.selection)
			if err != nil {
				return err
			}
			if err := requireValid(args...); err != nil {
				return err
			}

			var old *snapshot.Snapshot
			if opts.against != "" {
				if old, err = a.loadStored(opts.against, args[0]); err != nil {
					return err
				}
				if !cmd.Flags().Changed("analyzers") {
					sel.include = a.knownAnalyzers(old)
					if len(sel.include) == 0 {
						return fmt.Errorf("stored snapshot of %s in %q has no comparable analyzers", args[0], opts.against)
					}
				}
			} else if old, err = a.capture(cmd.Context(), args[0], sel); err != nil {
				return err
			}

			target := args[len(args)-1]
			current, err := a.capture(cmd.Context(), target, sel)
			if err != nil {
				return err
			}

			return a.emitComparison(compare.Compare(old, current), opts.summaryOnly)
		},
	}

	opts.selection.register(cmd)
	cmd.Flags().StringVar(&opts.against, "against", "", "compare against the stored snapshot set `NAME`")
	cmd.Flags().BoolVar(&opts.summaryOnly, "summary-only", false, "show only the summary")
	return cmd
}

type diffOptions struct {
	summaryOnly bool
}

func newDiffCmd(a *app) *cobra.Command {
	opts := &diffOptions{}
	cmd := &cobra.Command{
		Use:   "diff NAME1 NAME2 [FILE]",
		Short: "Compare two stored snapshot sets",
		Long: `Compare every file recorded in NAME1 with the same file in NAME2, or
only FILE when given. Files present in just one set are listed as removed
(only in NAME1) or added (only in NAME2).

Exits 1 when differences are found.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			for _, name := range args[:2] {
				if !st.Exists(name) {
					return unknownSetError(st, name)
				}
			}

			if len(args) == 3 {
				path := storedPath(args[2])
				old, err := loadFrom(st, args[0], path)
				if err != nil {
					return err
				}
				current, err := loadFrom(st, args[1], path)
				if err != nil {
					return err
				}
				return a.emitComparison(compare.Compare(old, current), opts.summaryOnly)
			}

			set1, err := st.LoadSet(args[0])
			if err != nil {
				return err
			}
			set2, err := st.LoadSet(args[1])
			if err != nil {
				return err
			}

			result := compare.CompareSets(args[0], args[1], set1, set2)
			if err := a.emit(func(f report.Formatter, w io.Writer) error {
				return f.SetDiff(w, result)
			}); err != nil {
				return err
			}
			if result.HasDifferences() {
				return errFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.summaryOnly, "summary-only", false, "show only the summary of a single-file diff")
	return cmd
}

func (a *app) emitComparison(result *compare.Result, summaryOnly bool) error {
	if err := a.emit(func(f report.Formatter, w io.Writer) error {
		return f.Comparison(w, result, summaryOnly)
	}); err != nil {
		return err
	}
	if result.HasDifferences {
		return errFailed
	}
	return nil
}

// requireValid fails on the first file that is not a readable XCOFF object
// or archive.
func requireValid(files ...string) error {
	for _, file := range files {
		if v := xcoff.Validate(file); !v.Valid {
			return fmt.Errorf("%s: %s", file, v.Error)
		}
	}
	return nil
}

func (a *app) loadStored(name, file string) (*snapshot.Snapshot, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	if !st.Exists(name) {
		return nil, unknownSetError(st, name)
	}
	return loadFrom(st, name, storedPath(file))
}

func loadFrom(st *store.Store, name, path string) (*snapshot.Snapshot, error) {
	snap, err := st.Load(name, path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no stored snapshot %q for %s", name, path)
	}
	return snap, err
}

// knownAnalyzers lists the analyzers recorded in snap that are still registered.
func (a *app) knownAnalyzers(snap *snapshot.Snapshot) []string {
	names := []string{}
	for _, name := range snap.AnalyzerNames() {
		if _, ok := a.registry.Get(name); ok {
			names = append(names, name)
		}
	}
	return names
}

// storedPath maps a command line path to the key it is stored under. Paths
// that no longer exist fall back to their absolute form.
func storedPath(p string) string {
	if canonical, err := snapshot.Canonical(p); err == nil {
		return canonical
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func unknownSetError(st *store.Store, name string) error {
	entries, err := st.ListSnapshots()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return unknownNameError("snapshot", name, names)
}
