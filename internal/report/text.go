package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
)

const (
	maxDiffItems    = 10
	maxLoaderItems  = 5
	maxVerboseItems = 20
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22c55e"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

var rule = strings.Repeat("=", 60)

// TextFormatter writes plain text reports.
type TextFormatter struct {
	Verbose int
	Color   bool
}

func (f *TextFormatter) style(s lipgloss.Style, text string) string {
	if !f.Color {
		return text
	}
	return s.Render(text)
}

type lines []string

func (l *lines) add(format string, args ...any) {
	*l = append(*l, fmt.Sprintf(format, args...))
}

func (l lines) write(w io.Writer) error {
	_, err := io.WriteString(w, strings.Join(l, "\n")+"\n")
	return err
}

func (f *TextFormatter) Snapshots(w io.Writer, snaps []*snapshot.Snapshot) error {
	var out lines
	for _, snap := range snaps {
		out.add("%s", rule)
		out.add("%s", f.style(headingStyle, "File: "+snap.FilePath))
		out.add("Type: %s", snap.FileType)
		out.add("Size: %d bytes", snap.FileSize)
		out.add("Modified: %s", snap.FileMtime.Format(time.RFC3339))
		out.add("Analyzed: %s", snap.Timestamp.Format(time.RFC3339))
		if snap.Name != "" {
			out.add("Stored as: %s", snap.Name)
		}
		out.add("")

		for _, name := range snap.AnalyzerNames() {
			result := snap.Results[name]
			out.add("[%s]", name)
			if result.Success {
				out = append(out, f.analyzerData(name, result.Data)...)
				if result.Truncated {
					out.add("  (output truncated)")
				}
			} else {
				out.add("  %s", f.style(errorStyle, "ERROR: "+result.Error))
			}
			out.add("")
		}
	}
	return out.write(w)
}

func (f *TextFormatter) analyzerData(name string, data map[string]any) lines {
	var out lines

	switch name {
	case "what":
		var d analyzer.WhatData
		if analyzer.DecodeData(data, &d) == nil {
			out.add("  Identification strings: %d", len(d.Strings))
			for _, s := range d.Strings {
				out.add("    %s", s)
			}
			return out
		}
	case "dump-h":
		var d analyzer.SectionData
		if analyzer.DecodeData(data, &d) == nil {
			out.add("  Sections: %d", len(d.Sections))
			for _, s := range d.Sections {
				size := s.Size
				if size == "" {
					size = "?"
				}
				out.add("    %s: size=%s", s.Name, size)
			}
			return out
		}
	case "dump-T":
		var d analyzer.LoaderData
		if analyzer.DecodeData(data, &d) == nil {
			out.add("  Imports: %d", len(d.Imports))
			out.add("  Exports: %d", len(d.Exports))
			if f.Verbose > 0 {
				out = append(out, symbolList("Import symbols", d.Imports, false)...)
				out = append(out, symbolList("Export symbols", d.Exports, true)...)
			}
			return out
		}
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		if k != "raw" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list, ok := data[k].([]any); ok {
			out.add("  %s: %d items", k, len(list))
		} else {
			out.add("  %s: %v", k, data[k])
		}
	}
	return out
}

func symbolList(title string, syms []analyzer.Symbol, withAddress bool) lines {
	var out lines
	if len(syms) == 0 {
		return out
	}
	out.add("  %s:", title)
	for _, s := range syms[:min(len(syms), maxVerboseItems)] {
		if withAddress {
			out.add("    %s  %s", s.Address, s.Name)
		} else {
			out.add("    %s", s.Name)
		}
	}
	if len(syms) > maxVerboseItems {
		out.add("    ... and %d more", len(syms)-maxVerboseItems)
	}
	return out
}

func (f *TextFormatter) Comparison(w io.Writer, r *compare.Result, summaryOnly bool) error {
	var out lines
	out.add("%s", rule)
	out.add("%s", f.style(headingStyle, "Comparison Result"))
	out.add("%s", rule)
	out.add("File 1: %s", r.FilePath1)
	out.add("File 2: %s", r.FilePath2)
	out.add("")

	if !r.HasDifferences {
		out.add("Status: IDENTICAL")
		return out.write(w)
	}
	out.add("Status: DIFFERENT")
	out.add("Summary: %s", r.Summary)
	if summaryOnly {
		return out.write(w)
	}

	out.add("")
	out.add("Details:")
	out.add("%s", strings.Repeat("-", 40))

	for _, name := range r.Names() {
		switch d := r.AnalyzerDiffs[name].(type) {
		case *compare.MetadataDiff:
			out.add("[metadata]")
			out.add("  file_size: %d -> %d", d.FileSize.Old, d.FileSize.New)
		case *compare.StatusDiff:
			out.add("[%s]", name)
			out.add("  %s", d.Status)
		case *compare.StringsDiff:
			out.add("[%s]", name)
			out = append(out, f.itemList("Added", "+", d.Added, maxDiffItems)...)
			out = append(out, f.itemList("Removed", "-", d.Removed, maxDiffItems)...)
		case *compare.LoaderDiff:
			out.add("[%s]", name)
			out = append(out, f.setDiff("Imports", d.Imports)...)
			out = append(out, f.setDiff("Exports", d.Exports)...)
		case compare.SectionsDiff:
			out.add("[%s]", name)
			for _, sec := range d.Names() {
				out.add("  %s: %s", sec, d[sec].Status)
			}
		default:
			out.add("[%s]", name)
			out.add("  changed")
		}
		out.add("")
	}
	return out.write(w)
}

func (f *TextFormatter) itemList(title, mark string, items []string, limit int) lines {
	var out lines
	if len(items) == 0 {
		return out
	}
	out.add("  %s (%d):", title, len(items))
	for _, item := range items[:min(len(items), limit)] {
		out.add("    %s", f.marked(mark, item))
	}
	if len(items) > limit {
		out.add("    ... and %d more", len(items)-limit)
	}
	return out
}

func (f *TextFormatter) setDiff(title string, d *compare.SetDiff) lines {
	var out lines
	if d == nil {
		return out
	}
	out.add("  %s: +%d -%d", title, len(d.Added), len(d.Removed))
	for _, s := range d.Added[:min(len(d.Added), maxLoaderItems)] {
		out.add("    %s", f.marked("+", s))
	}
	for _, s := range d.Removed[:min(len(d.Removed), maxLoaderItems)] {
		out.add("    %s", f.marked("-", s))
	}
	return out
}

func (f *TextFormatter) marked(mark, item string) string {
	text := mark + " " + item
	if mark == "+" {
		return f.style(addedStyle, text)
	}
	return f.style(removedStyle, text)
}

func (f *TextFormatter) SetDiff(w io.Writer, r *compare.SetResult) error {
	var out lines
	out.add("%s", rule)
	out.add("%s", f.style(headingStyle, fmt.Sprintf("Diff: %s vs %s", r.Name1, r.Name2)))
	out.add("%s", rule)
	out.add("Changed: %d", len(r.Changed))
	out.add("Added: %d", len(r.Added))
	out.add("Removed: %d", len(r.Removed))
	out.add("Unchanged: %d", r.Unchanged)

	if len(r.Changed) > 0 {
		out.add("")
		out.add("Changed files:")
		for _, c := range r.Changed {
			out.add("  %s", c.FilePath)
			out.add("    %s", c.Result.Summary)
		}
	}
	if len(r.Added) > 0 {
		out.add("")
		out.add("Added files:")
		for _, p := range r.Added {
			out.add("  %s", f.marked("+", p))
		}
	}
	if len(r.Removed) > 0 {
		out.add("")
		out.add("Removed files:")
		for _, p := range r.Removed {
			out.add("  %s", f.marked("-", p))
		}
	}
	return out.write(w)
}

func (f *TextFormatter) Validations(w io.Writer, vs []Validation) error {
	var out lines
	for i, v := range vs {
		if i > 0 {
			out.add("")
		}
		if len(vs) > 1 {
			out.add("%s", f.style(headingStyle, v.FilePath+":"))
		}
		if v.Result.Valid {
			out.add("Type: %s", v.Result.FileType)
		} else {
			out.add("%s", f.style(errorStyle, "Invalid: "+v.Result.Error))
		}
		if len(v.Result.Details) > 0 {
			out.add("")
			out.add("Details:")
			keys := make([]string, 0, len(v.Result.Details))
			for k := range v.Result.Details {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out.add("  %s: %v", k, v.Result.Details[k])
			}
		}
	}
	return out.write(w)
}

func (f *TextFormatter) ValidationSummary(w io.Writer, vs []Validation) error {
	var out lines
	for _, v := range vs {
		if v.Result.Valid {
			out.add("%s: valid %s", v.FilePath, v.Result.FileType)
		} else {
			out.add("%s: %s", v.FilePath, f.style(errorStyle, "invalid - "+v.Result.Error))
		}
	}
	return out.write(w)
}

func (f *TextFormatter) Sets(w io.Writer, entries map[string]store.Entry) error {
	if len(entries) == 0 {
		_, err := io.WriteString(w, "No stored snapshots\n")
		return err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var out lines
	out.add("%-20s %-25s %6s  %s", "NAME", "CREATED", "FILES", "DESCRIPTION")
	for _, name := range names {
		e := entries[name]
		out.add("%-20s %-25s %6d  %s", name, e.Created, e.FileCount, e.Description)
	}
	return out.write(w)
}

func (f *TextFormatter) Files(w io.Writer, name string, files []string) error {
	var out lines
	out.add("%s", f.style(headingStyle, fmt.Sprintf("%s (%d files)", name, len(files))))
	for _, p := range files {
		out.add("  %s", p)
	}
	return out.write(w)
}

func (f *TextFormatter) Analyzers(w io.Writer, infos []AnalyzerInfo) error {
	var out lines
	for _, a := range infos {
		status := f.style(addedStyle, "available")
		if !a.Available() {
			status = f.style(removedStyle, "missing "+strings.Join(a.Missing, ", "))
		}
		out.add("%-8s %-45s %s", a.Name, a.Description, status)
	}
	return out.write(w)
}
