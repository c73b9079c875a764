package compare

import (
	"fmt"
	"sort"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
)

// Diff is the payload recorded for one changed analyzer.
type Diff interface {
	// Fragment renders the diff for the comparison summary.
	Fragment(name string) string
}

const (
	StatusAdded    = "added"
	StatusRemoved  = "removed"
	StatusModified = "modified"
)

// MetadataKey is the AnalyzerDiffs key that holds file metadata changes.
const MetadataKey = "_metadata"

// StatusDiff marks an analyzer that ran for only one of the two snapshots.
type StatusDiff struct {
	Status string `json:"status"`
}

func (d *StatusDiff) Fragment(name string) string { return name + ": " + d.Status }

type SizeChange struct {
	Old int64 `json:"old"`
	New int64 `json:"new"`
}

// MetadataDiff records file-level changes.
type MetadataDiff struct {
	FileSize SizeChange `json:"file_size"`
}

func (d *MetadataDiff) Fragment(string) string { return "file size changed" }

// StringsDiff is the set difference of two identification string lists.
type StringsDiff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged int      `json:"unchanged"`
}

func (d *StringsDiff) Fragment(name string) string {
	return fmt.Sprintf("%s: +%d -%d", name, len(d.Added), len(d.Removed))
}

// SectionChange describes one section that was added, removed or modified.
// Old and New carry the whole section record.
type SectionChange struct {
	Status string            `json:"status"`
	Old    *analyzer.Section `json:"old,omitempty"`
	New    *analyzer.Section `json:"new,omitempty"`
}

// SectionsDiff maps section names to their change.
type SectionsDiff map[string]SectionChange

func (d SectionsDiff) Fragment(name string) string { return name + ": changed" }

// Names returns the changed section names, sorted.
func (d SectionsDiff) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetDiff lists names present only in the new set and only in the old set.
type SetDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

func (d *SetDiff) empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// LoaderDiff holds import and export name changes. A side is nil when it did
// not change.
type LoaderDiff struct {
	Imports *SetDiff `json:"imports,omitempty"`
	Exports *SetDiff `json:"exports,omitempty"`
}

func (d *LoaderDiff) Fragment(name string) string { return name + ": changed" }

// GenericDiff is used for analyzers without a dedicated diff routine.
type GenericDiff struct {
	Changed bool           `json:"changed"`
	Old     map[string]any `json:"old"`
	New     map[string]any `json:"new"`
}

func (d *GenericDiff) Fragment(name string) string { return name + ": changed" }

func diffStrings(oldData, newData map[string]any) Diff {
	var a, b analyzer.WhatData
	if analyzer.DecodeData(oldData, &a) != nil || analyzer.DecodeData(newData, &b) != nil {
		return genericDiff(oldData, newData)
	}

	added, removed, common := setDifference(a.Strings, b.Strings)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	return &StringsDiff{Added: added, Removed: removed, Unchanged: common}
}

func diffSections(oldData, newData map[string]any) Diff {
	var a, b analyzer.SectionData
	if analyzer.DecodeData(oldData, &a) != nil || analyzer.DecodeData(newData, &b) != nil {
		return genericDiff(oldData, newData)
	}

	// A later section with a repeated name wins, as in a plain name index.
	byName := func(sections []analyzer.Section) map[string]analyzer.Section {
		m := make(map[string]analyzer.Section, len(sections))
		for _, s := range sections {
			m[s.Name] = s
		}
		return m
	}
	oldSecs, newSecs := byName(a.Sections), byName(b.Sections)

	changes := SectionsDiff{}
	for name, s := range oldSecs {
		if n, ok := newSecs[name]; !ok {
			changes[name] = SectionChange{Status: StatusRemoved, Old: &s}
		} else if n != s {
			changes[name] = SectionChange{Status: StatusModified, Old: &s, New: &n}
		}
	}
	for name, s := range newSecs {
		if _, ok := oldSecs[name]; !ok {
			changes[name] = SectionChange{Status: StatusAdded, New: &s}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

func diffLoader(oldData, newData map[string]any) Diff {
	var a, b analyzer.LoaderData
	if analyzer.DecodeData(oldData, &a) != nil || analyzer.DecodeData(newData, &b) != nil {
		return genericDiff(oldData, newData)
	}

	d := &LoaderDiff{}
	if imports := symbolDiff(a.Imports, b.Imports); !imports.empty() {
		d.Imports = imports
	}
	if exports := symbolDiff(a.Exports, b.Exports); !exports.empty() {
		d.Exports = exports
	}
	if d.Imports == nil && d.Exports == nil {
		return nil
	}
	return d
}

func symbolDiff(oldSyms, newSyms []analyzer.Symbol) *SetDiff {
	names := func(syms []analyzer.Symbol) []string {
		out := make([]string, 0, len(syms))
		for _, s := range syms {
			out = append(out, s.Name)
		}
		return out
	}
	added, removed, _ := setDifference(names(oldSyms), names(newSyms))
	return &SetDiff{Added: added, Removed: removed}
}

func genericDiff(oldData, newData map[string]any) Diff {
	return &GenericDiff{Changed: true, Old: oldData, New: newData}
}

// setDifference treats both lists as sets. added and removed are sorted and
// never nil; common counts the shared members.
func setDifference(oldList, newList []string) (added, removed []string, common int) {
	oldSet := toSet(oldList)
	newSet := toSet(newList)

	added, removed = []string{}, []string{}
	for s := range newSet {
		if _, ok := oldSet[s]; !ok {
			added = append(added, s)
		}
	}
	for s := range oldSet {
		if _, ok := newSet[s]; ok {
			common++
		} else {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed, common
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}
