package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// CodeAction handles the textDocument/codeAction request.
// The only action offered is organizing the imports of the document; it
// carries the edit directly, so clients need no command round trip.
func CodeAction(context *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	srv, ok := getServer("CodeAction")
	if !ok {
		return []protocol.CodeAction{}, nil
	}

	actions := []protocol.CodeAction{}

	if !wants(params.Context.Only, protocol.CodeActionKindSourceOrganizeImports) {
		return actions, nil
	}

	edit := organizeImports(srv, params.TextDocument.URI)
	if edit == nil {
		return actions, nil
	}

	kind := protocol.CodeActionKindSourceOrganizeImports

	actions = append(actions, protocol.CodeAction{
		Title: "Organize Imports",
		Kind:  &kind,
		Edit:  edit,
	})

	return actions, nil
}

// wants reports whether an action of kind passes the "only" filter of a
// request. Filters match hierarchically: "source" admits
// "source.organizeImports".
func wants(only []protocol.CodeActionKind, kind protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}

	for _, o := range only {
		if o == kind || len(kind) > len(o) && kind[:len(o)] == o && kind[len(o)] == '.' {
			return true
		}
	}

	return false
}
