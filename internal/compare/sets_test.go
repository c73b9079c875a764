package compare_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pase-tools/xcoffscan/internal/compare"
	"github.com/pase-tools/xcoffscan/internal/snapshot"
)

func TestCompareSets(t *testing.T) {
	changed := baseline(t)
	changed.FileSize = 4

	a := map[string]*snapshot.Snapshot{
		"/lib/a.o": baseline(t),
		"/lib/b.o": baseline(t),
		"/lib/c.o": baseline(t),
	}
	b := map[string]*snapshot.Snapshot{
		"/lib/a.o": baseline(t),
		"/lib/b.o": changed,
		"/lib/d.o": baseline(t),
	}

	r := compare.CompareSets("before", "after", a, b)

	assert.True(t, r.HasDifferences())
	assert.Equal(t, "before", r.Name1)
	assert.Equal(t, []string{"/lib/d.o"}, r.Added)
	assert.Equal(t, []string{"/lib/c.o"}, r.Removed)
	assert.Equal(t, 1, r.Unchanged)
	require.Len(t, r.Changed, 1)
	assert.Equal(t, "/lib/b.o", r.Changed[0].FilePath)
	assert.Equal(t, "file size changed", r.Changed[0].Result.Summary)
}

func TestCompareSets_Identical(t *testing.T) {
	a := map[string]*snapshot.Snapshot{"/lib/a.o": baseline(t)}
	b := map[string]*snapshot.Snapshot{"/lib/a.o": baseline(t)}

	r := compare.CompareSets("x", "y", a, b)

	assert.False(t, r.HasDifferences())
	assert.Equal(t, 1, r.Unchanged)
	assert.NotNil(t, r.Added)
	assert.NotNil(t, r.Changed)
}
