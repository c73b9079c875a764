// Package compare computes structural differences between snapshots.
package compare

import (
	"reflect"
	"sort"
	"strings"

	"github.com/pase-tools/xcoffscan/internal/snapshot"
)

// NoDifferences is the summary of a comparison without changes.
const NoDifferences = "No differences"

// Result is the outcome of comparing two snapshots. AnalyzerDiffs holds one
// entry per changed analyzer plus MetadataKey when the file size changed.
type Result struct {
	FilePath1      string          `json:"filepath1"`
	FilePath2      string          `json:"filepath2"`
	HasDifferences bool            `json:"has_differences"`
	Summary        string          `json:"summary"`
	AnalyzerDiffs  map[string]Diff `json:"analyzer_diffs"`
}

// Names returns the AnalyzerDiffs keys with MetadataKey first and the rest sorted.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.AnalyzerDiffs))
	for name := range r.AnalyzerDiffs {
		if name != MetadataKey {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := r.AnalyzerDiffs[MetadataKey]; ok {
		names = append([]string{MetadataKey}, names...)
	}
	return names
}

type diffFunc func(oldData, newData map[string]any) Diff

var routines = map[string]diffFunc{
	"what":   diffStrings,
	"dump-h": diffSections,
	"dump-T": diffLoader,
}

// Compare diffs a against b. Neither snapshot is modified.
func Compare(a, b *snapshot.Snapshot) *Result {
	diffs := map[string]Diff{}

	if a.FileSize != b.FileSize {
		diffs[MetadataKey] = &MetadataDiff{FileSize: SizeChange{Old: a.FileSize, New: b.FileSize}}
	}

	for _, name := range unionNames(a, b) {
		ra, inA := a.Results[name]
		rb, inB := b.Results[name]

		switch {
		case !inA:
			diffs[name] = &StatusDiff{Status: StatusAdded}
		case !inB:
			diffs[name] = &StatusDiff{Status: StatusRemoved}
		case !dataEqual(ra.Data, rb.Data):
			routine, ok := routines[name]
			if !ok {
				routine = genericDiff
			}
			if d := routine(ra.Data, rb.Data); d != nil {
				diffs[name] = d
			}
		}
	}

	r := &Result{
		FilePath1:      a.FilePath,
		FilePath2:      b.FilePath,
		HasDifferences: len(diffs) > 0,
		AnalyzerDiffs:  diffs,
	}
	r.Summary = summarize(r)
	return r
}

func summarize(r *Result) string {
	if len(r.AnalyzerDiffs) == 0 {
		return NoDifferences
	}
	parts := make([]string, 0, len(r.AnalyzerDiffs))
	for _, name := range r.Names() {
		parts = append(parts, r.AnalyzerDiffs[name].Fragment(name))
	}
	return strings.Join(parts, "; ")
}

func unionNames(a, b *snapshot.Snapshot) []string {
	seen := map[string]struct{}{}
	for name := range a.Results {
		seen[name] = struct{}{}
	}
	for name := range b.Results {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dataEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
