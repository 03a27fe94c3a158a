package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/frontend"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestIndexer_Discover(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/Main.as":             "package {}",
		"src/views/Main.mxml":     "<s:Group/>",
		"src/styles/main.css":     "",
		"src/readme.txt":          "",
		"src/.hidden/Secret.as":   "package {}",
		"bin-debug/Main.as":       "package {}",
		"node_modules/x/Other.as": "package {}",
	})

	idx := NewIndexer(NewSymbolIndex(), 2)

	files := idx.Discover([]string{root, filepath.Join(root, "src")})

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}

	sort.Strings(rel)
	assert.Equal(t, []string{"src/Main.as", "src/styles/main.css", "src/views/Main.mxml"}, rel)
}

func TestIndexer_Read(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.as": "package { public class A {} }",
		"B.as": "package { public class B {} }",
	})

	idx := NewIndexer(NewSymbolIndex(), 1)
	paths := []string{filepath.Join(root, "A.as"), filepath.Join(root, "missing.as"), filepath.Join(root, "B.as")}

	sources, err := idx.Read(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, paths[0], sources[0].Path)
	assert.Equal(t, document.PathToURI(paths[0]), sources[0].URI)
	assert.Equal(t, "package { public class A {} }", sources[0].Text)
	assert.Equal(t, Hash(sources[0].Text), sources[0].Hash)
	assert.NotEqual(t, sources[0].Hash, sources[1].Hash)
}

func TestIndexer_ReadCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"A.as": "package {}"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIndexer(NewSymbolIndex(), 1).Read(ctx, []string{filepath.Join(root, "A.as")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIndexer_Record(t *testing.T) {
	p := frontend.NewProject()
	p.SetSourceRoots([]string{"/ws/src"})

	text := `package shapes {
	public class Shape {
		public function draw():void { var local:int = 0; }
	}
}
`
	u := p.Update("file:///ws/src/shapes/Shape.as", text, 1, semantic.OriginSource)
	require.NotNil(t, u)

	idx := NewIndexer(NewSymbolIndex(), 1)

	changed, err := idx.Record(u, Hash(text))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = idx.Record(u, Hash(text))
	require.NoError(t, err)
	assert.False(t, changed)

	symbols := idx.Index().FindSymbolsInFile(u.URI)

	byName := make(map[string]SymbolLocation)
	for _, s := range symbols {
		byName[s.Name] = s
	}

	require.Contains(t, byName, "Shape")
	require.Contains(t, byName, "draw")
	assert.NotContains(t, byName, "local")

	shape := byName["Shape"]
	assert.Equal(t, "shapes.Shape", shape.QualifiedName)
	assert.Equal(t, protocol.SymbolKindClass, shape.Kind)
	assert.Equal(t, "shapes", shape.ContainerName)
	assert.Equal(t, protocol.UInteger(1), shape.Location.Range.Start.Line)

	draw := byName["draw"]
	assert.Equal(t, "Shape", draw.ContainerName)
	assert.Equal(t, protocol.SymbolKindMethod, draw.Kind)
	assert.Contains(t, draw.Detail, "function draw()")

	require.NoError(t, idx.Forget(u.URI))
	assert.Empty(t, idx.Index().FindSymbolsInFile(u.URI))

	// Library units are never recorded.
	changed, err = idx.Record(p.Units()[0], 1)
	require.NoError(t, err)
	assert.False(t, changed)
}
