package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

// JSONFormatter writes indented JSON documents.
type JSONFormatter struct {
	Indent string
}

func (f *JSONFormatter) write(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", f.Indent)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Snapshots writes one record object, or an array for several snapshots.
func (f *JSONFormatter) Snapshots(w io.Writer, snaps []*snapshot.Snapshot) error {
	records := make([]json.RawMessage, 0, len(snaps))
	for _, snap := range snaps {
		data, err := snapshot.Encode(snap)
		if err != nil {
			return err
		}
		records = append(records, data)
	}
	if len(records) == 1 {
		return f.write(w, records[0])
	}
	return f.write(w, records)
}

func (f *JSONFormatter) Comparison(w io.Writer, r *compare.Result, summaryOnly bool) error {
	if !summaryOnly {
		return f.write(w, r)
	}
	return f.write(w, struct {
		FilePath1      string `json:"filepath1"`
		FilePath2      string `json:"filepath2"`
		HasDifferences bool   `json:"has_differences"`
		Summary        string `json:"summary"`
	}{r.FilePath1, r.FilePath2, r.HasDifferences, r.Summary})
}

type changedFile struct {
	FilePath string `json:"filepath"`
	Summary  string `json:"summary"`
}

func (f *JSONFormatter) SetDiff(w io.Writer, r *compare.SetResult) error {
	changed := make([]changedFile, 0, len(r.Changed))
	for _, c := range r.Changed {
		changed = append(changed, changedFile{FilePath: c.FilePath, Summary: c.Result.Summary})
	}
	return f.write(w, struct {
		Snapshot1 string        `json:"snapshot1"`
		Snapshot2 string        `json:"snapshot2"`
		Changed   []changedFile `json:"changed"`
		Added     []string      `json:"added"`
		Removed   []string      `json:"removed"`
		Unchanged int           `json:"unchanged"`
	}{r.Name1, r.Name2, changed, r.Added, r.Removed, r.Unchanged})
}

type validationDoc struct {
	FilePath string `json:"filepath"`
	xcoff.ValidationResult
}

func (f *JSONFormatter) Validations(w io.Writer, vs []Validation) error {
	docs := make([]validationDoc, 0, len(vs))
	for _, v := range vs {
		docs = append(docs, validationDoc{FilePath: v.FilePath, ValidationResult: v.Result})
	}
	if len(docs) == 1 {
		return f.write(w, docs[0])
	}
	return f.write(w, docs)
}

func (f *JSONFormatter) ValidationSummary(w io.Writer, vs []Validation) error {
	return f.Validations(w, vs)
}

func (f *JSONFormatter) Sets(w io.Writer, entries map[string]store.Entry) error {
	return f.write(w, entries)
}

func (f *JSONFormatter) Files(w io.Writer, name string, files []string) error {
	return f.write(w, struct {
		Name  string   `json:"name"`
		Files []string `json:"files"`
	}{name, files})
}

func (f *JSONFormatter) Analyzers(w io.Writer, infos []AnalyzerInfo) error {
	return f.write(w, infos)
}
