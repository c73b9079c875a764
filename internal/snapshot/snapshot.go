// Package snapshot captures analyzer results for one object file.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

var ErrAlreadyNamed = errors.New("snapshot already named")

// Snapshot is one file's identity plus the results of every analyzer that ran
// against it. It is not modified after capture, except for Name, which is
// set once when the snapshot is stored.
type Snapshot struct {
	Name      string                      `json:"name"`
	FilePath  string                      `json:"filepath"`
	Timestamp time.Time                   `json:"timestamp"`
	FileSize  int64                       `json:"file_size"`
	FileMtime time.Time                   `json:"file_mtime"`
	FileType  xcoff.FileType              `json:"file_type"`
	Results   map[string]*analyzer.Result `json:"results"`
}

// SetName names the snapshot. Naming it again with the same name is a no-op.
func (s *Snapshot) SetName(name string) error {
	if s.Name != "" && s.Name != name {
		return fmt.Errorf("%w: %s", ErrAlreadyNamed, s.Name)
	}
	s.Name = name
	return nil
}

// AnalyzerNames returns the names of the analyzers in Results, sorted.
func (s *Snapshot) AnalyzerNames() []string {
	names := make([]string, 0, len(s.Results))
	for name := range s.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failed returns the sorted names of analyzers that did not succeed.
func (s *Snapshot) Failed() []string {
	failed := []string{}
	for _, name := range s.AnalyzerNames() {
		if !s.Results[name].Success {
			failed = append(failed, name)
		}
	}
	return failed
}
