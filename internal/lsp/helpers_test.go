package lsp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

const (
	shapeSource = `package shapes {
	public class Shape {
		public function draw():void {}
	}
}
`
	mainSource = `package {
	import shapes.Shape;
	import flash.events.Event;

	public class Main {
		public function run():void {
			var s:Shape = new Shape();
			s.draw();
		}
	}
}
`
)

// Client capabilities used by the tests.
const (
	noCapabilities   = `{}`
	fullCapabilities = `{
		"workspace": {
			"applyEdit": true,
			"workspaceEdit": {"documentChanges": true, "resourceOperations": ["create", "rename", "delete"]}
		},
		"textDocument": {
			"completion": {"completionItem": {"snippetSupport": true}}
		}
	}`
)

type testWorkspace struct {
	t    *testing.T
	srv  *server.Server
	root string
}

// newTestWorkspace writes a workspace with the shapes library and Main.as
// to disk and initializes a server for it. The workspace is not loaded.
func newTestWorkspace(t *testing.T, capabilities string) *testWorkspace {
	t.Helper()

	root := t.TempDir()
	tw := &testWorkspace{t: t, srv: server.New(), root: root}

	tw.write("src/shapes/Shape.as", shapeSource)
	tw.write("src/Main.as", mainSource)

	SetServer(tw.srv)

	t.Cleanup(func() {
		_ = tw.srv.Workspace().Shutdown()
		SetServer(nil)
	})

	var caps protocol.ClientCapabilities
	require.NoError(t, json.Unmarshal([]byte(capabilities), &caps))

	rootURI := document.PathToURI(root)

	_, err := Initialize(&glsp.Context{}, &protocol.InitializeParams{
		RootURI:      &rootURI,
		Capabilities: caps,
	})
	require.NoError(t, err)

	return tw
}

func (tw *testWorkspace) write(name, content string) {
	tw.t.Helper()

	path := filepath.Join(tw.root, filepath.FromSlash(name))
	require.NoError(tw.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tw.t, os.WriteFile(path, []byte(content), 0o644))
}

func (tw *testWorkspace) uri(name string) string {
	return document.PathToURI(filepath.Join(tw.root, filepath.FromSlash(name)))
}

func (tw *testWorkspace) load() {
	tw.t.Helper()

	require.NoError(tw.t, tw.srv.Workspace().Load(context.Background()))
}

// open sends didOpen for a file with the given text.
func (tw *testWorkspace) open(name, text string, version protocol.Integer) string {
	tw.t.Helper()

	uri := tw.uri(name)

	err := DidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "actionscript",
			Version:    version,
			Text:       text,
		},
	})
	require.NoError(tw.t, err)

	return uri
}

// at returns the position of the n-th occurrence of needle in text, moved
// delta characters into it.
func at(t *testing.T, text, needle string, n, delta int) protocol.Position {
	t.Helper()

	offset := -1
	for i, from := 0, 0; i <= n; i++ {
		j := strings.Index(text[from:], needle)
		require.GreaterOrEqual(t, j, 0, "occurrence %d of %q", n, needle)

		offset = from + j
		from = offset + len(needle)
	}

	line, character, err := document.OffsetToPosition(text, offset+delta)
	require.NoError(t, err)

	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(character)}
}

func positionParams(uri string, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
}
