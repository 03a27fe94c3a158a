package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Name  string
	Count int
}

func newTestIndexer(t *testing.T) *DataIndexer[testItem] {
	t.Helper()

	idx, err := NewDataIndexer[testItem](filepath.Join(t.TempDir(), "index", "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func TestDataIndexer_ReplaceFile(t *testing.T) {
	idx := newTestIndexer(t)

	require.NoError(t, idx.ReplaceFile("a.as", 1, map[string][]testItem{
		"Shape": {{Name: "Shape", Count: 1}},
		"draw":  {{Name: "draw", Count: 2}, {Name: "draw", Count: 3}},
	}))
	require.NoError(t, idx.ReplaceFile("b.as", 2, map[string][]testItem{
		"Shape": {{Name: "Shape", Count: 4}},
	}))

	values, err := idx.GetValues("Shape")
	require.NoError(t, err)
	assert.ElementsMatch(t, []testItem{{Name: "Shape", Count: 1}, {Name: "Shape", Count: 4}}, values)

	byPath, err := idx.GetValuesByPath("a.as")
	require.NoError(t, err)
	assert.Len(t, byPath, 3)

	// Replacing drops the previous content of the file.
	require.NoError(t, idx.ReplaceFile("a.as", 5, map[string][]testItem{
		"render": {{Name: "render"}},
	}))

	values, err = idx.GetValues("draw")
	require.NoError(t, err)
	assert.Empty(t, values)

	all, err := idx.GetAllValues()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	hash, ok, err := idx.Hash("a.as")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), hash)
}

func TestDataIndexer_LargeHash(t *testing.T) {
	idx := newTestIndexer(t)

	const hash = uint64(0xfedcba9876543210)
	require.NoError(t, idx.ReplaceFile("a.as", hash, nil))

	got, ok, err := idx.Hash("a.as")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hash, got)
}

func TestDataIndexer_Delete(t *testing.T) {
	idx := newTestIndexer(t)

	require.NoError(t, idx.ReplaceFile("a.as", 1, map[string][]testItem{"x": {{Name: "x"}}}))
	require.NoError(t, idx.ReplaceFile("b.as", 2, map[string][]testItem{"y": {{Name: "y"}}}))

	require.NoError(t, idx.DeleteByFilePaths([]string{"a.as"}))
	require.NoError(t, idx.DeleteByFilePaths(nil))

	_, ok, err := idx.Hash("a.as")
	require.NoError(t, err)
	assert.False(t, ok)

	paths, err := idx.FilePaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.as"}, paths)

	require.NoError(t, idx.Clear())

	paths, err = idx.FilePaths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDataIndexer_Memory(t *testing.T) {
	idx, err := NewDataIndexer[testItem](":memory:")
	require.NoError(t, err)

	defer idx.Close()

	require.NoError(t, idx.ReplaceFile("a.as", 1, map[string][]testItem{"x": {{Name: "x", Count: 7}}}))

	values, err := idx.GetValues("x")
	require.NoError(t, err)
	assert.Equal(t, []testItem{{Name: "x", Count: 7}}, values)
}
