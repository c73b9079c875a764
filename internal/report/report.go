// Package report renders snapshots, comparisons and store listings as text
// or JSON.
package report

import (
	"fmt"
	"io"

	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Validation pairs a checked path with its result.
type Validation struct {
	FilePath string
	Result   xcoff.ValidationResult
}

// AnalyzerInfo describes an analyzer and the tools it is missing.
type AnalyzerInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	Missing     []string `json:"missing"`
}

// Available reports whether every required tool was found.
func (a AnalyzerInfo) Available() bool { return len(a.Missing) == 0 }

type Formatter interface {
	Snapshots(w io.Writer, snaps []*snapshot.Snapshot) error
	Comparison(w io.Writer, r *compare.Result, summaryOnly bool) error
	SetDiff(w io.Writer, r *compare.SetResult) error
	Validations(w io.Writer, vs []Validation) error
	// ValidationSummary reports one line per file.
	ValidationSummary(w io.Writer, vs []Validation) error
	Sets(w io.Writer, entries map[string]store.Entry) error
	Files(w io.Writer, name string, files []string) error
	Analyzers(w io.Writer, infos []AnalyzerInfo) error
}

// New returns the formatter for format. verbose controls symbol listings in
// text snapshots; color enables styled headings.
func New(format string, verbose int, color bool) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{Verbose: verbose, Color: color}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: text, json)", format)
	}
}
