package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// importEdit returns the single text document edit of an organize imports
// workspace edit.
func importEdit(t *testing.T, edit *protocol.WorkspaceEdit) protocol.TextDocumentEdit {
	t.Helper()

	require.NotNil(t, edit)
	require.Len(t, edit.DocumentChanges, 1)

	change, ok := edit.DocumentChanges[0].(protocol.TextDocumentEdit)
	require.True(t, ok)

	return change
}

func TestExecuteCommand_ReturnsEditWithoutApplyEdit(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 3)

	result, err := ExecuteCommand(&glsp.Context{}, &protocol.ExecuteCommandParams{
		Command:   CommandOrganizeImports,
		Arguments: []any{uri},
	})
	require.NoError(t, err)

	edit, ok := result.(*protocol.WorkspaceEdit)
	require.True(t, ok)

	change := importEdit(t, edit)
	assert.Equal(t, uri, change.TextDocument.URI)
	require.NotNil(t, change.TextDocument.Version)
	assert.Equal(t, protocol.Integer(3), *change.TextDocument.Version)

	require.Len(t, change.Edits, 1)
	text := change.Edits[0].(protocol.TextEdit).NewText
	assert.Equal(t, "\timport shapes.Shape;", text)
}

func TestExecuteCommand_AppliesEdit(t *testing.T) {
	tw := newTestWorkspace(t, fullCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 1)

	var (
		method string
		sent   protocol.ApplyWorkspaceEditParams
	)

	ctx := &glsp.Context{
		Call: func(m string, params any, result any) {
			method = m
			sent = params.(protocol.ApplyWorkspaceEditParams)
			*result.(*protocol.ApplyWorkspaceEditResponse) = protocol.ApplyWorkspaceEditResponse{Applied: true}
		},
	}

	// The argument may also be an object carrying the URI.
	result, err := ExecuteCommand(ctx, &protocol.ExecuteCommandParams{
		Command:   CommandOrganizeImports,
		Arguments: []any{map[string]any{"uri": uri}},
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.Equal(t, protocol.ServerWorkspaceApplyEdit, method)
	require.NotNil(t, sent.Label)
	assert.Equal(t, "Organize Imports", *sent.Label)
	assert.Equal(t, uri, importEdit(t, &sent.Edit).TextDocument.URI)
}

func TestExecuteCommand_NothingToOrganize(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.uri("src/shapes/Shape.as")

	result, err := ExecuteCommand(&glsp.Context{}, &protocol.ExecuteCommandParams{
		Command:   CommandOrganizeImports,
		Arguments: []any{uri},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestExecuteCommand_Errors(t *testing.T) {
	newTestWorkspace(t, noCapabilities)

	_, err := ExecuteCommand(&glsp.Context{}, &protocol.ExecuteCommandParams{Command: "as3.unknown"})
	assert.ErrorContains(t, err, "unknown command")

	_, err = ExecuteCommand(&glsp.Context{}, &protocol.ExecuteCommandParams{Command: CommandOrganizeImports})
	assert.ErrorContains(t, err, "missing document URI")

	_, err = ExecuteCommand(&glsp.Context{}, &protocol.ExecuteCommandParams{
		Command:   CommandOrganizeImports,
		Arguments: []any{42},
	})
	assert.ErrorContains(t, err, "expected a document URI")
}

func TestCodeAction(t *testing.T) {
	tw := newTestWorkspace(t, noCapabilities)
	tw.load()

	uri := tw.open("src/Main.as", mainSource, 1)

	actions := func(only ...protocol.CodeActionKind) []protocol.CodeAction {
		result, err := CodeAction(&glsp.Context{}, &protocol.CodeActionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Context:      protocol.CodeActionContext{Diagnostics: []protocol.Diagnostic{}, Only: only},
		})
		require.NoError(t, err)

		list, ok := result.([]protocol.CodeAction)
		require.True(t, ok)

		return list
	}

	all := actions()
	require.Len(t, all, 1)
	assert.Equal(t, "Organize Imports", all[0].Title)
	require.NotNil(t, all[0].Kind)
	assert.Equal(t, protocol.CodeActionKindSourceOrganizeImports, *all[0].Kind)
	importEdit(t, all[0].Edit)

	assert.Len(t, actions(protocol.CodeActionKindSource), 1)
	assert.Empty(t, actions(protocol.CodeActionKindQuickFix))
}

func TestWants(t *testing.T) {
	assert.True(t, wants(nil, protocol.CodeActionKindSourceOrganizeImports))
	assert.True(t, wants([]protocol.CodeActionKind{"source"}, "source.organizeImports"))
	assert.True(t, wants([]protocol.CodeActionKind{"source.organizeImports"}, "source.organizeImports"))
	assert.False(t, wants([]protocol.CodeActionKind{"sourc"}, "source.organizeImports"))
	assert.False(t, wants([]protocol.CodeActionKind{"refactor"}, "source.organizeImports"))
}
