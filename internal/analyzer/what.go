package analyzer

import (
	"context"
	"strings"
	"time"
)

// WhatData is the payload of the what analyzer.
type WhatData struct {
	Strings []string `json:"strings"`
	Count   int      `json:"count"`
}

// WhatAnalyzer extracts SCCS identification strings with what(1).
type WhatAnalyzer struct {
	runner Runner
}

func NewWhatAnalyzer(opts Options) *WhatAnalyzer {
	return &WhatAnalyzer{runner: opts.runner()}
}

func (a *WhatAnalyzer) Name() string            { return "what" }
func (a *WhatAnalyzer) Description() string     { return "Extract SCCS identification strings" }
func (a *WhatAnalyzer) RequiredTools() []string { return []string{"what"} }

func (a *WhatAnalyzer) CheckRequirements() []string {
	return missingTools(a.RequiredTools())
}

func (a *WhatAnalyzer) Analyze(ctx context.Context, path string, timeout time.Duration) *Result {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, "what", path)
	if err != nil {
		return failure(a.Name(), err, timeout)
	}
	// what exits non-zero when it finds nothing; only an empty stdout counts as failure.
	if out.ExitCode != 0 && out.Stdout == "" {
		return exitFailure(a.Name(), out)
	}

	strs := ParseWhat(out.Stdout)
	return success(a.Name(), WhatData{Strings: strs, Count: len(strs)}, out.Truncated)
}

// ParseWhat returns the trimmed identification lines of what output. The
// "<file>:" header lines are dropped.
func ParseWhat(output string) []string {
	strs := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		strs = append(strs, line)
	}
	return strs
}
