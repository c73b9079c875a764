package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/store"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

func result(t *testing.T, name string, payload any) *analyzer.Result {
	t.Helper()
	data, err := analyzer.ToData(payload)
	require.NoError(t, err)
	return &analyzer.Result{Analyzer: name, Success: true, Data: data}
}

func sampleSnapshot(t *testing.T, exports int) *snapshot.Snapshot {
	t.Helper()
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	syms := make([]analyzer.Symbol, 0, exports)
	for i := 0; i < exports; i++ {
		syms = append(syms, analyzer.Symbol{Name: fmt.Sprintf("sym%02d", i), Type: analyzer.SymbolExport, Address: "0x1000"})
	}

	return &snapshot.Snapshot{
		FilePath:  "/lib/libfoo.a",
		Timestamp: ts,
		FileSize:  1024,
		FileMtime: ts,
		FileType:  xcoff.TypeArchive,
		Results: map[string]*analyzer.Result{
			"what": result(t, "what", analyzer.WhatData{Strings: []string{"@(#) foo 1.0"}, Count: 1}),
			"dump-h": result(t, "dump-h", analyzer.SectionData{
				Sections: []analyzer.Section{{Index: 1, Name: ".text", Size: "0x100"}},
				Count:    1,
			}),
			"dump-T": result(t, "dump-T", analyzer.LoaderData{
				Imports:     []analyzer.Symbol{},
				Exports:     syms,
				ExportCount: len(syms),
			}),
			"extra": analyzer.Failed("extra", "Timeout after 1s"),
		},
	}
}

func TestNew(t *testing.T) {
	f, err := New("text", 0, false)
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)

	f, err = New("json", 0, false)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	_, err = New("yaml", 0, false)
	assert.Error(t, err)
}

func TestText_Snapshot(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{}
	require.NoError(t, f.Snapshots(&buf, []*snapshot.Snapshot{sampleSnapshot(t, 3)}))

	out := buf.String()
	assert.Contains(t, out, "File: /lib/libfoo.a")
	assert.Contains(t, out, "Type: archive")
	assert.Contains(t, out, "Size: 1024 bytes")
	assert.Contains(t, out, "Identification strings: 1")
	assert.Contains(t, out, "    @(#) foo 1.0")
	assert.Contains(t, out, "    .text: size=0x100")
	assert.Contains(t, out, "  Exports: 3")
	assert.Contains(t, out, "[extra]\n  ERROR: Timeout after 1s")
	assert.NotContains(t, out, "Export symbols")
	assert.NotContains(t, out, "Stored as")
}

func TestText_SnapshotVerboseLimitsSymbols(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{Verbose: 1}
	snap := sampleSnapshot(t, 25)
	snap.Name = "base"
	require.NoError(t, f.Snapshots(&buf, []*snapshot.Snapshot{snap}))

	out := buf.String()
	assert.Contains(t, out, "Stored as: base")
	assert.Contains(t, out, "  Export symbols:")
	assert.Contains(t, out, "    0x1000  sym19")
	assert.NotContains(t, out, "sym20")
	assert.Contains(t, out, "... and 5 more")
}

func TestText_ComparisonIdentical(t *testing.T) {
	snap := sampleSnapshot(t, 1)
	r := compare.Compare(snap, snap)

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Comparison(&buf, r, false))
	assert.Contains(t, buf.String(), "Status: IDENTICAL")
	assert.NotContains(t, buf.String(), "Summary:")
}

func TestText_ComparisonDetails(t *testing.T) {
	a := sampleSnapshot(t, 1)
	b := sampleSnapshot(t, 2)
	b.FileSize = 2048

	many := make([]string, 12)
	for i := range many {
		many[i] = fmt.Sprintf("@(#) v%02d", i)
	}
	b.Results["what"] = result(t, "what", analyzer.WhatData{Strings: many, Count: len(many)})

	r := compare.Compare(a, b)
	require.True(t, r.HasDifferences)

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Comparison(&buf, r, false))
	out := buf.String()

	assert.Contains(t, out, "Status: DIFFERENT")
	assert.Contains(t, out, "Summary: "+r.Summary)
	assert.Contains(t, out, "[metadata]\n  file_size: 1024 -> 2048")
	assert.Contains(t, out, "  Added (12):")
	assert.Contains(t, out, "    + @(#) v09")
	assert.NotContains(t, out, "v10")
	assert.Contains(t, out, "    ... and 2 more")
	assert.Contains(t, out, "  Exports: +1 -0")
	assert.Contains(t, out, "    + sym01")
	assert.Less(t, strings.Index(out, "[metadata]"), strings.Index(out, "[dump-T]"))
}

func TestText_ComparisonSummaryOnly(t *testing.T) {
	a := sampleSnapshot(t, 1)
	b := sampleSnapshot(t, 1)
	b.FileSize = 1

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Comparison(&buf, compare.Compare(a, b), true))
	assert.Contains(t, buf.String(), "Summary: file size changed")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestText_SetDiff(t *testing.T) {
	old := sampleSnapshot(t, 1)
	changed := sampleSnapshot(t, 1)
	changed.FileSize = 9

	r := compare.CompareSets("base", "next",
		map[string]*snapshot.Snapshot{"/lib/libfoo.a": old, "/lib/gone.a": old},
		map[string]*snapshot.Snapshot{"/lib/libfoo.a": changed, "/lib/new.a": old},
	)

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).SetDiff(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "Diff: base vs next")
	assert.Contains(t, out, "Changed: 1")
	assert.Contains(t, out, "  /lib/libfoo.a\n    file size changed")
	assert.Contains(t, out, "  + /lib/new.a")
	assert.Contains(t, out, "  - /lib/gone.a")
}

func TestText_Validations(t *testing.T) {
	vs := []Validation{
		{FilePath: "/a.o", Result: xcoff.ValidationResult{Valid: true, FileType: xcoff.TypeXCOFF32, Details: map[string]any{"sections": 3, "file_size": 64}}},
		{FilePath: "/b.o", Result: xcoff.ValidationResult{FileType: xcoff.TypeUnknown, Error: "Invalid magic: 0x7F45"}},
	}

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Validations(&buf, vs))
	out := buf.String()

	assert.Contains(t, out, "/a.o:\nType: xcoff32")
	assert.Contains(t, out, "  file_size: 64\n  sections: 3")
	assert.Contains(t, out, "Invalid: Invalid magic: 0x7F45")
}

func TestText_ValidationSummary(t *testing.T) {
	vs := []Validation{
		{FilePath: "/a.o", Result: xcoff.ValidationResult{Valid: true, FileType: xcoff.TypeXCOFF64}},
		{FilePath: "/b.o", Result: xcoff.ValidationResult{FileType: xcoff.TypeUnknown, Error: "File too small"}},
	}

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).ValidationSummary(&buf, vs))
	assert.Equal(t, "/a.o: valid xcoff64\n/b.o: invalid - File too small\n", buf.String())
}

func TestText_Sets(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{}
	require.NoError(t, f.Sets(&buf, map[string]store.Entry{}))
	assert.Equal(t, "No stored snapshots\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Sets(&buf, map[string]store.Entry{
		"zeta":  {Created: "2024-01-15T10:30:00Z", FileCount: 2},
		"alpha": {Created: "2024-01-14T10:30:00Z", FileCount: 1, Description: "first"},
	}))
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "zeta"))
	assert.Contains(t, out, "first")
}

func TestText_Analyzers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Analyzers(&buf, []AnalyzerInfo{
		{Name: "what", Description: "Identification strings", Tools: []string{"what"}, Missing: []string{}},
		{Name: "dump-h", Description: "Section headers", Tools: []string{"dump"}, Missing: []string{"dump"}},
	}))
	assert.Contains(t, buf.String(), "available")
	assert.Contains(t, buf.String(), "missing dump")
}

func TestJSON_SnapshotsSingleAndMany(t *testing.T) {
	f := &JSONFormatter{Indent: "  "}
	snap := sampleSnapshot(t, 1)

	var buf bytes.Buffer
	require.NoError(t, f.Snapshots(&buf, []*snapshot.Snapshot{snap}))
	var one map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &one))
	assert.Equal(t, "1.0", one["version"])
	assert.Equal(t, "/lib/libfoo.a", one["filepath"])

	decoded, err := snapshot.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, snap.Results, decoded.Results)

	buf.Reset()
	require.NoError(t, f.Snapshots(&buf, []*snapshot.Snapshot{snap, snap}))
	var many []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &many))
	assert.Len(t, many, 2)
}

func TestJSON_Comparison(t *testing.T) {
	a := sampleSnapshot(t, 1)
	b := sampleSnapshot(t, 1)
	b.FileSize = 2048
	r := compare.Compare(a, b)
	f := &JSONFormatter{}

	var buf bytes.Buffer
	require.NoError(t, f.Comparison(&buf, r, false))
	assert.JSONEq(t, `{
		"filepath1": "/lib/libfoo.a",
		"filepath2": "/lib/libfoo.a",
		"has_differences": true,
		"summary": "file size changed",
		"analyzer_diffs": {"_metadata": {"file_size": {"old": 1024, "new": 2048}}}
	}`, buf.String())

	buf.Reset()
	require.NoError(t, f.Comparison(&buf, r, true))
	assert.NotContains(t, buf.String(), "analyzer_diffs")
}

func TestJSON_SetDiff(t *testing.T) {
	snap := sampleSnapshot(t, 1)
	r := compare.CompareSets("a", "b",
		map[string]*snapshot.Snapshot{"/x": snap},
		map[string]*snapshot.Snapshot{"/x": snap, "/y": snap},
	)

	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).SetDiff(&buf, r))
	assert.JSONEq(t, `{
		"snapshot1": "a",
		"snapshot2": "b",
		"changed": [],
		"added": ["/y"],
		"removed": [],
		"unchanged": 1
	}`, buf.String())
}

func TestJSON_ValidationSummaryMatchesValidations(t *testing.T) {
	vs := []Validation{
		{FilePath: "/a.o", Result: xcoff.ValidationResult{Valid: true, FileType: xcoff.TypeArchive}},
		{FilePath: "/b.o", Result: xcoff.ValidationResult{FileType: xcoff.TypeUnknown, Error: "File too small"}},
	}

	var summary, full bytes.Buffer
	f := &JSONFormatter{}
	require.NoError(t, f.ValidationSummary(&summary, vs))
	require.NoError(t, f.Validations(&full, vs))
	assert.JSONEq(t, full.String(), summary.String())
}

func TestJSON_Validation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Validations(&buf, []Validation{
		{FilePath: "/a.o", Result: xcoff.ValidationResult{FileType: xcoff.TypeUnknown, Error: "File too small"}},
	}))
	assert.JSONEq(t, `{"filepath": "/a.o", "valid": false, "file_type": "unknown", "error": "File too small"}`, buf.String())
}
