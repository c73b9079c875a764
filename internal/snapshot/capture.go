package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/logging"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

// DefaultTimeout bounds a single analyzer run.
const DefaultTimeout = 300 * time.Second

type StepStatus string

const (
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// Step reports the progress of one analyzer during Capture. Index is the
// analyzer's position among the selected analyzers.
type Step struct {
	Index   int
	Total   int
	Name    string
	Status  StepStatus
	Error   string
	Elapsed time.Duration
}

// Clock supplies capture timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine runs the selected analyzers against a file and assembles a Snapshot.
type Engine struct {
	registry *analyzer.Registry
	timeout  time.Duration
	parallel bool
	clock    Clock
	logger   logging.Logger
	onStep   func(Step)
}

type Option func(*Engine)

func WithTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

// WithParallel runs the selected analyzers concurrently.
func WithParallel(on bool) Option { return func(e *Engine) { e.parallel = on } }

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithProgress registers fn to receive Step updates. In parallel mode fn is
// called from several goroutines.
func WithProgress(fn func(Step)) Option { return func(e *Engine) { e.onStep = fn } }

func NewEngine(registry *analyzer.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		timeout:  DefaultTimeout,
		clock:    systemClock{},
		logger:   logging.Nop(),
		onStep:   func(Step) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Selected returns the names of the analyzers Capture would run.
func (e *Engine) Selected(include, exclude []string) []string {
	names := []string{}
	for _, a := range e.registry.Select(include, exclude) {
		names = append(names, a.Name())
	}
	return names
}

// Capture snapshots the file at path. Analyzer failures are recorded in the
// snapshot's results. An error is returned only when the file cannot be
// stat'ed or ctx is cancelled, and then no snapshot is produced.
func (e *Engine) Capture(ctx context.Context, path string, include, exclude []string) (*Snapshot, error) {
	canonical, err := Canonical(path)
	if err != nil {
		return nil, err
	}

	started := e.clock.Now().UTC()
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", canonical, err)
	}
	validation := xcoff.Validate(canonical)

	selected := e.registry.Select(include, exclude)
	results := make([]*analyzer.Result, len(selected))

	if e.parallel {
		// Analyzer failures live in the results; only cancellation stops the group.
		g, gctx := errgroup.WithContext(ctx)
		for i, a := range selected {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.run(gctx, i, len(selected), a, canonical)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, a := range selected {
			if ctx.Err() != nil {
				break
			}
			results[i] = e.run(ctx, i, len(selected), a, canonical)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		FilePath:  canonical,
		Timestamp: started,
		FileSize:  info.Size(),
		FileMtime: info.ModTime().UTC(),
		FileType:  validation.FileType,
		Results:   make(map[string]*analyzer.Result, len(selected)),
	}
	for i, a := range selected {
		snap.Results[a.Name()] = results[i]
	}
	return snap, nil
}

func (e *Engine) run(ctx context.Context, index, total int, a analyzer.Analyzer, path string) (res *analyzer.Result) {
	name := a.Name()
	start := time.Now()
	e.onStep(Step{Index: index, Total: total, Name: name, Status: StepRunning})
	e.logger.Debug("analyzer started", "analyzer", name, "path", path)

	defer func() {
		if r := recover(); r != nil {
			res = analyzer.Failed(name, fmt.Sprintf("analyzer panicked: %v", r))
		}
		res.Analyzer = name

		step := Step{Index: index, Total: total, Name: name, Status: StepDone, Elapsed: time.Since(start)}
		if !res.Success {
			step.Status = StepFailed
			step.Error = res.Error
			e.logger.Warn("analyzer failed", "analyzer", name, "path", path, "error", res.Error)
		}
		e.logger.Debug("analyzer finished", "analyzer", name, "success", res.Success, "duration", step.Elapsed)
		e.onStep(step)
	}()

	res = a.Analyze(ctx, path, e.timeout)
	if res == nil {
		res = analyzer.Failed(name, "analyzer returned no result")
	}
	return res
}

// Canonical returns the absolute path of p with symlinks resolved. When p
// does not exist the cleaned absolute path is returned.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
