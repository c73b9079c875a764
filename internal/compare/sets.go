package compare

import (
	"sort"

	"github.com/pase-tools/xcoffscan/internal/snapshot"
)

// FileChange is a file present in both sets whose snapshots differ.
type FileChange struct {
	FilePath string  `json:"filepath"`
	Result   *Result `json:"result"`
}

// SetResult compares two named snapshot sets file by file.
type SetResult struct {
	Name1     string       `json:"name1"`
	Name2     string       `json:"name2"`
	Changed   []FileChange `json:"changed"`
	Added     []string     `json:"added"`
	Removed   []string     `json:"removed"`
	Unchanged int          `json:"unchanged"`
}

// HasDifferences reports whether any file was changed, added or removed.
func (r *SetResult) HasDifferences() bool {
	return len(r.Changed) > 0 || len(r.Added) > 0 || len(r.Removed) > 0
}

// CompareSets diffs every file path of set a against set b. Both maps are
// keyed by file path. Paths only in a are removed, paths only in b are added.
func CompareSets(name1, name2 string, a, b map[string]*snapshot.Snapshot) *SetResult {
	r := &SetResult{
		Name1:   name1,
		Name2:   name2,
		Changed: []FileChange{},
		Added:   []string{},
		Removed: []string{},
	}

	paths := make([]string, 0, len(a)+len(b))
	for p := range a {
		paths = append(paths, p)
	}
	for p := range b {
		if _, ok := a[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	for _, p := range paths {
		sa, inA := a[p]
		sb, inB := b[p]
		switch {
		case !inA:
			r.Added = append(r.Added, p)
		case !inB:
			r.Removed = append(r.Removed, p)
		default:
			res := Compare(sa, sb)
			if res.HasDifferences {
				r.Changed = append(r.Changed, FileChange{FilePath: p, Result: res})
			} else {
				r.Unchanged++
			}
		}
	}
	return r
}
