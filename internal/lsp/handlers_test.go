package lsp

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

func TestInitialize_Capabilities(t *testing.T) {
	SetServer(server.New())
	defer SetServer(nil)

	result, err := Initialize(&glsp.Context{}, &protocol.InitializeParams{})
	require.NoError(t, err)

	res, ok := result.(protocol.InitializeResult)
	require.True(t, ok)

	caps := res.Capabilities
	assert.Equal(t, &protocol.RenameOptions{PrepareProvider: boolPtr(true)}, caps.RenameProvider)

	completion := caps.CompletionProvider
	require.NotNil(t, completion)
	assert.Contains(t, completion.TriggerCharacters, ".")
	assert.Contains(t, completion.TriggerCharacters, "<")

	commands := caps.ExecuteCommandProvider
	require.NotNil(t, commands)
	assert.Equal(t, []string{CommandOrganizeImports}, commands.Commands)

	require.NotNil(t, res.ServerInfo)
	assert.Equal(t, "go-as3-lsp", res.ServerInfo.Name)
}

func boolPtr(b bool) *bool { return &b }

func TestTextDocument_OpenChangeClose(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 1)

	// Rename run() to start() in the editor buffer.
	start := at(t, mainSource, "run", 0, 0)
	end := at(t, mainSource, "run", 0, len("run"))

	err := DidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{Start: start, End: end},
				Text:  "start",
			},
		},
	})
	require.NoError(t, err)

	doc, ok := tw.srv.Documents().Get(uri)
	require.True(t, ok)
	assert.Equal(t, protocol.Integer(2), doc.Version)
	assert.Contains(t, doc.Text, "public function start():void")

	ws := tw.srv.Workspace()

	ws.BeginRead()
	assert.Equal(t, doc.Text, ws.Project().Unit(uri).Source)
	ws.EndRead()

	require.NoError(t, DidClose(&glsp.Context{}, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))

	_, ok = tw.srv.Documents().Get(uri)
	assert.False(t, ok)

	// The unit falls back to the file on disk.
	ws.BeginRead()
	assert.Equal(t, mainSource, ws.Project().Unit(uri).Source)
	ws.EndRead()
}

func TestDidChange_UnknownDocument(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)

	err := DidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: tw.uri("src/Missing.as")},
			Version:                1,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}},
	})
	assert.NoError(t, err)
	assert.Empty(t, tw.srv.Documents().List())
}

const loopSource = `package {
	public class Loop {
		function f():void {
			whi
		}
	}
}
`

func completionAt(t *testing.T, tw *testWorkspace, uri string, pos protocol.Position) *protocol.CompletionList {
	t.Helper()

	result, err := Completion(&glsp.Context{}, &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(uri, pos),
	})
	require.NoError(t, err)

	list, ok := result.(*protocol.CompletionList)
	require.True(t, ok)

	return list
}

func findItem(items []protocol.CompletionItem, label string) *protocol.CompletionItem {
	for i := range items {
		if items[i].Label == label {
			return &items[i]
		}
	}

	return nil
}

func TestCompletion_PlainTextWithoutSnippetSupport(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	uri := tw.open("src/Loop.as", loopSource, 1)

	list := completionAt(t, tw, uri, at(t, loopSource, "whi", 0, 3))

	item := findItem(list.Items, "while")
	require.NotNil(t, item)
	require.NotNil(t, item.InsertTextFormat)
	assert.Equal(t, protocol.InsertTextFormatPlainText, *item.InsertTextFormat)

	text := item.TextEdit.(protocol.TextEdit).NewText
	assert.Contains(t, text, "while (condition)")
	assert.NotContains(t, text, "$")
}

func TestCompletion_Snippets(t *testing.T) {
	tw := newTestWorkspace(t, fullCapabilities)
	uri := tw.open("src/Loop.as", loopSource, 1)

	list := completionAt(t, tw, uri, at(t, loopSource, "whi", 0, 3))

	item := findItem(list.Items, "while")
	require.NotNil(t, item)
	assert.Contains(t, item.TextEdit.(protocol.TextEdit).NewText, "${1:condition}")
}

func TestCompletion_MaxResults(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	uri := tw.open("src/Loop.as", loopSource, 1)

	tw.srv.UpdateConfig(func(cfg *server.Config) { cfg.MaxResults = 1 })

	list := completionAt(t, tw, uri, at(t, loopSource, "whi", 0, 3))
	assert.Len(t, list.Items, 1)
	assert.True(t, list.IsIncomplete)
}

func TestCompletion_UnknownDocument(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)

	list := completionAt(t, tw, tw.uri("src/Nowhere.as"), protocol.Position{})
	assert.Empty(t, list.Items)
	assert.False(t, list.IsIncomplete)
}

func TestCompletion_MemberAccess(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	src := strings.Replace(mainSource, "s.draw();", "s.", 1)
	uri := tw.open("src/Main.as", src, 1)

	list := completionAt(t, tw, uri, at(t, src, "s.", 0, 2))
	assert.NotNil(t, findItem(list.Items, "draw"))
}

func TestDefinition(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 1)

	result, err := Definition(&glsp.Context{}, &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, at(t, mainSource, "draw", 0, 1)),
	})
	require.NoError(t, err)

	locs, ok := result.([]protocol.Location)
	require.True(t, ok)
	require.Len(t, locs, 1)
	assert.Equal(t, tw.uri("src/shapes/Shape.as"), locs[0].URI)
	assert.Equal(t, protocol.UInteger(2), locs[0].Range.Start.Line)

	// Builtin declarations have no location.
	result, err = Definition(&glsp.Context{}, &protocol.DefinitionParams{
		TextDocumentPositionParams: positionParams(uri, at(t, mainSource, "Event", 0, 1)),
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestReferences(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	shapeURI := tw.uri("src/shapes/Shape.as")
	pos := positionParams(shapeURI, at(t, shapeSource, "draw", 0, 1))

	locs, err := References(&glsp.Context{}, &protocol.ReferenceParams{
		TextDocumentPositionParams: pos,
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	require.Len(t, locs, 2)

	files := []string{path.Base(locs[0].URI), path.Base(locs[1].URI)}
	assert.ElementsMatch(t, []string{"Shape.as", "Main.as"}, files)

	locs, err = References(&glsp.Context{}, &protocol.ReferenceParams{
		TextDocumentPositionParams: pos,
		Context:                    protocol.ReferenceContext{IncludeDeclaration: false},
	})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, tw.uri("src/Main.as"), locs[0].URI)
}

func TestHover(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 1)

	hover, err := Hover(&glsp.Context{}, &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, at(t, mainSource, "draw", 0, 1)),
	})
	require.NoError(t, err)
	require.NotNil(t, hover)

	content, ok := hover.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "draw")
	assert.Contains(t, content.Value, "shapes.Shape")

	// Whitespace has nothing to show.
	hover, err = Hover(&glsp.Context{}, &protocol.HoverParams{
		TextDocumentPositionParams: positionParams(uri, protocol.Position{Line: 3, Character: 0}),
	})
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestDocumentSymbol(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	uri := tw.open("src/Main.as", mainSource, 1)

	result, err := DocumentSymbol(&glsp.Context{}, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)

	symbols, ok := result.([]protocol.DocumentSymbol)
	require.True(t, ok)
	require.Len(t, symbols, 1)
	assert.Equal(t, "Main", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindClass, symbols[0].Kind)

	var members []string
	for _, child := range symbols[0].Children {
		members = append(members, child.Name)
	}

	assert.Contains(t, members, "run")

	result, err = DocumentSymbol(&glsp.Context{}, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: tw.uri("src/Unknown.as")},
	})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func symbolNames(symbols []protocol.SymbolInformation) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, s.Name)
	}

	return out
}

func TestWorkspaceSymbol(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)

	// Before the workspace is loaded only the index answers, and it knows
	// the open documents.
	tw.open("src/Main.as", mainSource, 1)

	symbols, err := WorkspaceSymbol(&glsp.Context{}, &protocol.WorkspaceSymbolParams{Query: "Shape"})
	require.NoError(t, err)
	assert.Empty(t, symbols)

	symbols, err = WorkspaceSymbol(&glsp.Context{}, &protocol.WorkspaceSymbolParams{Query: "Main"})
	require.NoError(t, err)
	assert.Contains(t, symbolNames(symbols), "Main")

	tw.load()

	symbols, err = WorkspaceSymbol(&glsp.Context{}, &protocol.WorkspaceSymbolParams{Query: "Shape"})
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	assert.Equal(t, "Shape", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindClass, symbols[0].Kind)
	assert.Equal(t, tw.uri("src/shapes/Shape.as"), symbols[0].Location.URI)
	require.NotNil(t, symbols[0].ContainerName)
	assert.Equal(t, "shapes", *symbols[0].ContainerName)
}

func TestRename_PrimaryType(t *testing.T) {
	tests := []struct {
		name         string
		capabilities string
		renamesFile  bool
	}{
		{name: "with resource operations", capabilities: fullCapabilities, renamesFile: true},
		{name: "without resource operations", capabilities: noCapabilities, renamesFile: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := newTestWorkspace(t, tt.capabilities)
			tw.load()

			mainURI := tw.open("src/Main.as", mainSource, 4)
			shapeURI := tw.uri("src/shapes/Shape.as")

			edit, err := Rename(&glsp.Context{}, &protocol.RenameParams{
				TextDocumentPositionParams: positionParams(shapeURI, at(t, shapeSource, "Shape", 0, 1)),
				NewName:                    "Figure",
			})
			require.NoError(t, err)
			require.NotNil(t, edit)

			var (
				edits   int
				renames []protocol.RenameFile
			)

			for _, change := range edit.DocumentChanges {
				switch c := change.(type) {
				case protocol.TextDocumentEdit:
					edits += len(c.Edits)

					if c.TextDocument.URI == mainURI {
						require.NotNil(t, c.TextDocument.Version)
						assert.Equal(t, protocol.Integer(4), *c.TextDocument.Version)
					}
				case protocol.RenameFile:
					renames = append(renames, c)
				}
			}

			// Declaration, import, annotation and new expression.
			assert.Equal(t, 4, edits)

			if !tt.renamesFile {
				assert.Empty(t, renames)
				return
			}

			require.Len(t, renames, 1)
			assert.Equal(t, shapeURI, renames[0].OldURI)
			assert.Equal(t, tw.uri("src/shapes/Figure.as"), renames[0].NewURI)
		})
	}
}

func TestRename_Rejected(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	shapeURI := tw.uri("src/shapes/Shape.as")

	edit, err := Rename(&glsp.Context{}, &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(shapeURI, at(t, shapeSource, "shapes", 0, 1)),
		NewName:                    "figures",
	})
	assert.Nil(t, edit)

	var rejection *analysis.RenameRejection
	assert.ErrorAs(t, err, &rejection)
}

func TestPrepareRename(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	shapeURI := tw.uri("src/shapes/Shape.as")

	result, err := PrepareRename(&glsp.Context{}, &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(shapeURI, at(t, shapeSource, "draw", 0, 2)),
	})
	require.NoError(t, err)

	r, ok := result.(*protocol.RangeWithPlaceholder)
	require.True(t, ok)
	assert.Equal(t, "draw", r.Placeholder)
	assert.Equal(t, at(t, shapeSource, "draw", 0, 0), r.Range.Start)

	_, err = PrepareRename(&glsp.Context{}, &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(shapeURI, at(t, shapeSource, "shapes", 0, 0)),
	})
	assert.Error(t, err)
}

func TestDidChangeConfiguration(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)

	err := DidChangeConfiguration(&glsp.Context{}, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"as3": map[string]any{"maxResults": 25, "trace": "verbose"},
		},
	})
	require.NoError(t, err)

	cfg := tw.srv.Config()
	assert.Equal(t, 25, cfg.MaxResults)
	assert.Equal(t, "verbose", cfg.Trace)

	// Settings outside the section are read as the section itself.
	assert.True(t, applySettings(tw.srv, map[string]any{"sdkPath": "/opt/flex"}))
	assert.Equal(t, "/opt/flex", tw.srv.Config().SDKPath)
	assert.False(t, applySettings(tw.srv, map[string]any{"sdkPath": "/opt/flex"}))
}
