package compare_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pase-tools/xcoffscan/internal/analyzer"
	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

func data(t *testing.T, payload any) map[string]any {
	t.Helper()
	d, err := analyzer.ToData(payload)
	require.NoError(t, err)
	return d
}

func ok(t *testing.T, name string, payload any) *analyzer.Result {
	return &analyzer.Result{Analyzer: name, Success: true, Data: data(t, payload)}
}

func loader(imports []string, exports map[string]string) analyzer.LoaderData {
	d := analyzer.LoaderData{Imports: []analyzer.Symbol{}, Exports: []analyzer.Symbol{}}
	for _, n := range imports {
		d.Imports = append(d.Imports, analyzer.Symbol{Name: n, Type: analyzer.SymbolImport, Raw: n})
	}
	for n, addr := range exports {
		d.Exports = append(d.Exports, analyzer.Symbol{Name: n, Type: analyzer.SymbolExport, Address: addr, Raw: n})
	}
	d.ImportCount, d.ExportCount = len(d.Imports), len(d.Exports)
	return d
}

func snap(size int64, results ...*analyzer.Result) *snapshot.Snapshot {
	s := &snapshot.Snapshot{
		FilePath: "/lib/libfoo.a",
		FileSize: size,
		FileType: xcoff.TypeXCOFF32,
		Results:  map[string]*analyzer.Result{},
	}
	for _, r := range results {
		s.Results[r.Analyzer] = r
	}
	return s
}

func baseline(t *testing.T) *snapshot.Snapshot {
	return snap(1024,
		ok(t, "what", analyzer.WhatData{Strings: []string{"v1", "build 7"}, Count: 2}),
		ok(t, "dump-h", analyzer.SectionData{Sections: []analyzer.Section{
			{Index: 1, Name: ".text", Size: "0x100"},
			{Index: 2, Name: ".data", Size: "0x40"},
		}, Count: 2}),
		ok(t, "dump-T", loader([]string{"printf"}, map[string]string{"bar": "0x2000"})),
	)
}

func TestCompare_SameSnapshot(t *testing.T) {
	s := baseline(t)

	r := compare.Compare(s, s)

	assert.False(t, r.HasDifferences)
	assert.Empty(t, r.AnalyzerDiffs)
	assert.Equal(t, compare.NoDifferences, r.Summary)
}

func TestCompare_IdenticalData(t *testing.T) {
	a, b := baseline(t), baseline(t)
	b.FilePath = "/other/libfoo.a"

	r := compare.Compare(a, b)

	assert.False(t, r.HasDifferences)
	assert.Equal(t, "No differences", r.Summary)
	assert.Equal(t, "/lib/libfoo.a", r.FilePath1)
	assert.Equal(t, "/other/libfoo.a", r.FilePath2)
}

func TestCompare_AddedExport(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["dump-T"] = ok(t, "dump-T", loader([]string{"printf"}, map[string]string{"bar": "0x2000", "foo": "0x1000"}))

	r := compare.Compare(a, b)

	assert.True(t, r.HasDifferences)
	require.Contains(t, r.AnalyzerDiffs, "dump-T")
	assert.Equal(t, &compare.LoaderDiff{
		Exports: &compare.SetDiff{Added: []string{"foo"}, Removed: []string{}},
	}, r.AnalyzerDiffs["dump-T"])
	assert.Len(t, r.AnalyzerDiffs, 1)

	raw, err := json.Marshal(r.AnalyzerDiffs["dump-T"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"exports": {"added": ["foo"], "removed": []}}`, string(raw))
	assert.Equal(t, "dump-T: changed", r.Summary)
}

func TestCompare_ExportAddressOnlyIsNotADifference(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["dump-T"] = ok(t, "dump-T", loader([]string{"printf"}, map[string]string{"bar": "0x9999"}))

	r := compare.Compare(a, b)

	assert.False(t, r.HasDifferences)
	assert.Equal(t, compare.NoDifferences, r.Summary)
}

func TestCompare_Strings(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["what"] = ok(t, "what", analyzer.WhatData{Strings: []string{"v2", "build 7", "extra"}, Count: 3})

	r := compare.Compare(a, b)

	assert.Equal(t, &compare.StringsDiff{
		Added:     []string{"extra", "v2"},
		Removed:   []string{"v1"},
		Unchanged: 1,
	}, r.AnalyzerDiffs["what"])
	assert.Equal(t, "what: +2 -1", r.Summary)
}

func TestCompare_StringsOrderIgnored(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["what"] = ok(t, "what", analyzer.WhatData{Strings: []string{"build 7", "v1", "v1"}, Count: 3})

	r := compare.Compare(a, b)

	assert.False(t, r.HasDifferences)
	assert.NotContains(t, r.AnalyzerDiffs, "what")
}

func TestCompare_Sections(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["dump-h"] = ok(t, "dump-h", analyzer.SectionData{Sections: []analyzer.Section{
		{Index: 1, Name: ".text", Size: "0x200"},
		{Index: 3, Name: ".bss", Size: "0x10"},
	}, Count: 2})

	r := compare.Compare(a, b)

	diff, isSections := r.AnalyzerDiffs["dump-h"].(compare.SectionsDiff)
	require.True(t, isSections)
	assert.Equal(t, []string{".bss", ".data", ".text"}, diff.Names())

	assert.Equal(t, compare.StatusAdded, diff[".bss"].Status)
	assert.Nil(t, diff[".bss"].Old)
	assert.Equal(t, "0x10", diff[".bss"].New.Size)

	assert.Equal(t, compare.StatusRemoved, diff[".data"].Status)
	assert.Equal(t, &analyzer.Section{Index: 2, Name: ".data", Size: "0x40"}, diff[".data"].Old)
	assert.Nil(t, diff[".data"].New)

	assert.Equal(t, compare.StatusModified, diff[".text"].Status)
	assert.Equal(t, "0x100", diff[".text"].Old.Size)
	assert.Equal(t, "0x200", diff[".text"].New.Size)
	assert.Equal(t, "dump-h: changed", r.Summary)
}

func TestCompare_SectionsRawOnlyChange(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	var sd analyzer.SectionData
	require.NoError(t, analyzer.DecodeData(a.Results["dump-h"].Data, &sd))
	sd.Raw = "different banner"
	b.Results["dump-h"] = ok(t, "dump-h", sd)

	r := compare.Compare(a, b)

	assert.False(t, r.HasDifferences)
}

func TestCompare_AnalyzerPresence(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	delete(b.Results, "what")
	b.Results["nm"] = ok(t, "nm", map[string]any{"symbols": 3})

	r := compare.Compare(a, b)

	assert.Equal(t, &compare.StatusDiff{Status: compare.StatusRemoved}, r.AnalyzerDiffs["what"])
	assert.Equal(t, &compare.StatusDiff{Status: compare.StatusAdded}, r.AnalyzerDiffs["nm"])
	assert.Equal(t, "nm: added; what: removed", r.Summary)
}

func TestCompare_GenericFallback(t *testing.T) {
	a := snap(10, ok(t, "nm", map[string]any{"symbols": 3}))
	b := snap(10, ok(t, "nm", map[string]any{"symbols": 4}))

	r := compare.Compare(a, b)

	g, isGeneric := r.AnalyzerDiffs["nm"].(*compare.GenericDiff)
	require.True(t, isGeneric)
	assert.True(t, g.Changed)
	assert.Equal(t, float64(3), g.Old["symbols"])
	assert.Equal(t, float64(4), g.New["symbols"])
	assert.Equal(t, "nm: changed", r.Summary)
}

func TestCompare_FileSize(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.FileSize = 2048
	delete(b.Results, "what")

	r := compare.Compare(a, b)

	assert.True(t, r.HasDifferences)
	assert.Equal(t, &compare.MetadataDiff{FileSize: compare.SizeChange{Old: 1024, New: 2048}}, r.AnalyzerDiffs[compare.MetadataKey])
	assert.Equal(t, []string{compare.MetadataKey, "what"}, r.Names())
	assert.Equal(t, "file size changed; what: removed", r.Summary)
}

func TestCompare_FailedResultsWithSameData(t *testing.T) {
	a := snap(10, analyzer.Failed("what", "Timeout after 300s"))
	b := snap(10, analyzer.Failed("what", "command not found: what"))
	b.Results["what"].Data = nil

	r := compare.Compare(a, b)

	assert.False(t, r.HasDifferences)
}

func TestCompare_Symmetric(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.FileSize = 999
	b.Results["what"] = ok(t, "what", analyzer.WhatData{Strings: []string{"v2"}, Count: 1})
	b.Results["dump-T"] = ok(t, "dump-T", loader([]string{"printf", "malloc"}, map[string]string{}))
	delete(b.Results, "dump-h")
	b.Results["nm"] = ok(t, "nm", map[string]any{})

	ab := compare.Compare(a, b)
	ba := compare.Compare(b, a)

	assert.Equal(t, ab.Names(), ba.Names())
	assert.Equal(t, &compare.StatusDiff{Status: compare.StatusRemoved}, ab.AnalyzerDiffs["dump-h"])
	assert.Equal(t, &compare.StatusDiff{Status: compare.StatusAdded}, ba.AnalyzerDiffs["dump-h"])

	abT := ab.AnalyzerDiffs["dump-T"].(*compare.LoaderDiff)
	baT := ba.AnalyzerDiffs["dump-T"].(*compare.LoaderDiff)
	assert.Equal(t, abT.Imports.Added, baT.Imports.Removed)
	assert.Equal(t, abT.Exports.Removed, baT.Exports.Added)
}

func TestCompare_DoesNotMutate(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.Results["what"] = ok(t, "what", analyzer.WhatData{Strings: []string{"v9"}, Count: 1})
	aCopy, bCopy := baseline(t), baseline(t)
	bCopy.Results["what"] = ok(t, "what", analyzer.WhatData{Strings: []string{"v9"}, Count: 1})

	compare.Compare(a, b)

	assert.Equal(t, aCopy, a)
	assert.Equal(t, bCopy, b)
}

func TestResult_JSON(t *testing.T) {
	a := baseline(t)
	b := baseline(t)
	b.FileSize = 1
	delete(b.Results, "what")

	raw, err := json.Marshal(compare.Compare(a, b))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"filepath1": "/lib/libfoo.a",
		"filepath2": "/lib/libfoo.a",
		"has_differences": true,
		"summary": "file size changed; what: removed",
		"analyzer_diffs": {
			"_metadata": {"file_size": {"old": 1024, "new": 1}},
			"what": {"status": "removed"}
		}
	}`, string(raw))
}
