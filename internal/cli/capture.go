package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/ui"
)

// selectionFlags are the analyzer and scheduling flags shared by the
// capturing commands.
type selectionFlags struct {
	analyzers []string
	exclude   []string
	timeout   int
	parallel  bool
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&s.analyzers, "analyzers", "a", nil, "comma-separated analyzer names (default: all)")
	cmd.Flags().StringArrayVarP(&s.exclude, "exclude", "x", nil, "comma-separated analyzer names to skip")
	cmd.Flags().IntVar(&s.timeout, "timeout", 0, "per-analyzer timeout in seconds (default 300)")
	cmd.Flags().BoolVar(&s.parallel, "parallel", false, "run the analyzers of one file concurrently")
}

type selection struct {
	include  []string
	exclude  []string
	timeout  time.Duration
	parallel bool
}

// selection merges the command flags over the config defaults and rejects
// unknown analyzer names.
func (a *app) selection(cmd *cobra.Command, s *selectionFlags) (selection, error) {
	sel := selection{
		include:  splitList(s.analyzers),
		exclude:  splitList(s.exclude),
		timeout:  a.cfg.Timeout(),
		parallel: a.cfg.Parallel,
	}
	if len(sel.include) == 0 {
		sel.include = a.cfg.Analyzers
	}
	if len(sel.exclude) == 0 {
		sel.exclude = a.cfg.Exclude
	}
	if cmd.Flags().Changed("parallel") {
		sel.parallel = s.parallel
	}

	switch {
	case s.timeout < 0:
		return sel, fmt.Errorf("--timeout must not be negative: %d", s.timeout)
	case s.timeout > 0:
		sel.timeout = time.Duration(s.timeout) * time.Second
	}

	if err := a.checkAnalyzerNames(sel.include, sel.exclude); err != nil {
		return sel, err
	}
	return sel, nil
}

// capture snapshots one file, drawing progress on stderr unless quiet.
func (a *app) capture(ctx context.Context, path string, sel selection) (*snapshot.Snapshot, error) {
	var progress *ui.ScanProgress
	engine := snapshot.NewEngine(a.registry,
		snapshot.WithTimeout(sel.timeout),
		snapshot.WithParallel(sel.parallel),
		snapshot.WithLogger(a.logger),
		snapshot.WithProgress(func(step snapshot.Step) {
			if progress != nil {
				progress.Update(step)
			}
		}),
	)

	names := engine.Selected(sel.include, sel.exclude)
	if !a.opts.quiet {
		progress = ui.NewScanProgress(path, names)
	}
	a.logger.Debug("capture started", "file", path, "analyzers", strings.Join(names, ","), "parallel", sel.parallel)

	snap, err := engine.Capture(ctx, path, sel.include, sel.exclude)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return nil, err
	}

	if failed := snap.Failed(); len(failed) > 0 {
		a.logger.Warn("analyzers failed", "file", snap.FilePath, "analyzers", strings.Join(failed, ","))
		if !a.opts.quiet {
			ui.Warn(fmt.Sprintf("%s: %d of %d analyzers failed (%s)", path, len(failed), len(snap.Results), strings.Join(failed, ", ")))
		}
	}
	return snap, nil
}
