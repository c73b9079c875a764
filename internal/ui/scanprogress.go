package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/system"
)

var (
	scanCheckStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22c55e"))

	scanErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444"))

	scanActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06b6d4"))

	scanPendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	scanCountStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

var scanSpinner = spinner.MiniDot

const (
	statusPending     = "pending"
	statusFailedShown = "failed_printed"
	statusDoneShown   = "done_printed"
	statusRunning     = string(snapshot.StepRunning)
	statusDone        = string(snapshot.StepDone)
	statusFailed      = string(snapshot.StepFailed)
)

type stepState struct {
	name    string
	status  string
	err     string
	elapsed time.Duration
}

// ScanProgress shows one line per analyzer while a file is captured. On a
// terminal the block is redrawn in place with a spinner; otherwise each
// analyzer is printed once when it finishes.
type ScanProgress struct {
	title          string
	steps          []stepState
	spinnerIdx     int
	spinnerStop    chan struct{}
	spinnerDone    chan struct{}
	closeOnce      sync.Once
	mu             sync.Mutex
	isTTY          bool
	rendered       bool
	stepStartTimes []time.Time
	completedCount int
}

func NewScanProgress(title string, analyzers []string) *ScanProgress {
	return newScanProgress(title, analyzers, system.HasTTY())
}

func newScanProgress(title string, analyzers []string, isTTY bool) *ScanProgress {
	steps := make([]stepState, len(analyzers))
	for i, name := range analyzers {
		steps[i] = stepState{name: name, status: statusPending}
	}

	sp := &ScanProgress{
		title:          title,
		steps:          steps,
		spinnerStop:    make(chan struct{}),
		spinnerDone:    make(chan struct{}),
		isTTY:          isTTY,
		stepStartTimes: make([]time.Time, len(analyzers)),
	}

	if sp.isTTY {
		go sp.spin()
	} else {
		close(sp.spinnerDone)
	}
	return sp
}

func (sp *ScanProgress) spin() {
	defer close(sp.spinnerDone)
	ticker := time.NewTicker(scanSpinner.FPS)
	defer ticker.Stop()
	for {
		select {
		case <-sp.spinnerStop:
			return
		case <-ticker.C:
			sp.mu.Lock()
			sp.spinnerIdx = (sp.spinnerIdx + 1) % len(scanSpinner.Frames)
			for _, s := range sp.steps {
				if s.status == statusRunning {
					sp.render()
					break
				}
			}
			sp.mu.Unlock()
		}
	}
}

// Update records a capture step. It is safe to call from several goroutines.
func (sp *ScanProgress) Update(step snapshot.Step) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if step.Index < 0 || step.Index >= len(sp.steps) {
		return
	}

	s := &sp.steps[step.Index]
	switch step.Status {
	case snapshot.StepRunning:
		if s.status != statusRunning {
			sp.stepStartTimes[step.Index] = time.Now()
		}
	case snapshot.StepDone, snapshot.StepFailed:
		s.elapsed = step.Elapsed
		s.err = step.Error
		sp.completedCount++
	}
	s.name = step.Name
	s.status = string(step.Status)

	sp.render()
}

func (sp *ScanProgress) Finish() {
	sp.closeOnce.Do(func() { close(sp.spinnerStop) })
	<-sp.spinnerDone

	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.isTTY {
		sp.render()
	}
}

func (sp *ScanProgress) render() {
	if sp.isTTY {
		sp.renderTTY()
	} else {
		sp.renderPlain()
	}
}

func (sp *ScanProgress) renderTTY() {
	if sp.rendered {
		fmt.Fprintf(Out, "\033[%dA", len(sp.steps)+1)
	}
	sp.rendered = true
	// Wrapped lines would break the cursor-up count above.
	title := fitWidth(sp.title, system.TerminalWidth()-12)
	fmt.Fprintf(Out, "\033[K  %s [%d/%d]\n", title, sp.completedCount, len(sp.steps))

	for i, s := range sp.steps {
		fmt.Fprintf(Out, "\033[K")

		switch s.status {
		case statusDone:
			fmt.Fprintf(Out, "  %s %s\n",
				scanCheckStyle.Render("✓ "+s.name),
				scanCountStyle.Render(formatStepDuration(s.elapsed)))
		case statusFailed:
			fmt.Fprintf(Out, "  %s %s\n",
				scanErrorStyle.Render("✗ "+s.name),
				scanCountStyle.Render(fmt.Sprintf("failed, %s", formatStepDuration(s.elapsed))))
		case statusRunning:
			frame := scanSpinner.Frames[sp.spinnerIdx]
			live := time.Since(sp.stepStartTimes[i])
			fmt.Fprintf(Out, "  %s %s\n",
				scanActiveStyle.Render(frame+" "+s.name),
				scanCountStyle.Render(formatStepDuration(live)+"..."))
		default:
			fmt.Fprintf(Out, "  %s\n", scanPendingStyle.Render("  "+s.name))
		}
	}
}

func (sp *ScanProgress) renderPlain() {
	for i, s := range sp.steps {
		switch s.status {
		case statusDone:
			sp.plainTitle()
			fmt.Fprintf(Out, "  ✓ %s (%s)\n", s.name, formatStepDuration(s.elapsed))
			sp.steps[i].status = statusDoneShown
		case statusFailed:
			sp.plainTitle()
			fmt.Fprintf(Out, "  ✗ %s (failed, %s): %s\n", s.name, formatStepDuration(s.elapsed), s.err)
			sp.steps[i].status = statusFailedShown
		}
	}
}

func (sp *ScanProgress) plainTitle() {
	if !sp.rendered {
		fmt.Fprintf(Out, "  %s\n", sp.title)
		sp.rendered = true
	}
}

// fitWidth shortens s to at most width runes, keeping its tail.
func fitWidth(s string, width int) string {
	r := []rune(s)
	if width < 4 || len(r) <= width {
		return s
	}
	return "..." + string(r[len(r)-width+3:])
}

func formatStepDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
