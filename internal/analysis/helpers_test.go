package analysis

import (
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/frontend"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// cursor marks the request offset in test sources.
const cursor = "^"

// cut removes the cursor marker from src and returns its offset.
func cut(t *testing.T, src string) (string, int) {
	t.Helper()

	i := strings.Index(src, cursor)
	require.GreaterOrEqual(t, i, 0, "source has no cursor marker")

	return src[:i] + src[i+len(cursor):], i
}

type fixture struct {
	t *testing.T
	p *frontend.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p := frontend.NewProject()
	p.SetSourceRoots([]string{"/ws/src"})

	return &fixture{t: t, p: p}
}

func uriOf(path string) string {
	return "file:///ws/src/" + path
}

// add compiles src as the file at path below the source root.
func (f *fixture) add(path, src string) *semantic.Unit {
	f.t.Helper()

	u := f.p.Update(uriOf(path), src, 1, semantic.OriginSource)
	require.NotNil(f.t, u, path)

	return u
}

// at compiles a source carrying a cursor marker and resolves the cursor.
func (f *fixture) at(path, src string) *Position {
	f.t.Helper()

	text, offset := cut(f.t, src)

	pos := ResolveAt(f.add(path, text), offset)
	require.NotNil(f.t, pos)

	return pos
}

// pos resolves the n-th occurrence of needle in an already compiled unit,
// placing the cursor delta bytes into it.
func (f *fixture) pos(u *semantic.Unit, needle string, n, delta int) *Position {
	f.t.Helper()

	offset := -1
	for i, from := 0, 0; i <= n; i++ {
		j := strings.Index(u.Source[from:], needle)
		require.GreaterOrEqual(f.t, j, 0, "occurrence %d of %q", n, needle)

		offset = from + j
		from = offset + len(needle)
	}

	pos := ResolveAt(u, offset+delta)
	require.NotNil(f.t, pos)

	return pos
}

func itemLabels(items []protocol.CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}

	return out
}

// indexOf returns the rank of label in items, or -1.
func indexOf(items []protocol.CompletionItem, label string) int {
	for i, it := range items {
		if it.Label == label {
			return i
		}
	}

	return -1
}

// ranges renders occurrences as "file:start-end" for comparisons.
func ranges(occs []Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, fmt.Sprintf("%s:%d-%d", path.Base(o.Unit.URI), o.Start, o.End))
	}

	return out
}
