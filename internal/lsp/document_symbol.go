package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// DocumentSymbol handles the textDocument/documentSymbol request.
// It returns the outline of the document: types with their members, and
// package-level functions and variables.
func DocumentSymbol(context *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	srv, ok := getServer("DocumentSymbol")
	if !ok {
		return []protocol.DocumentSymbol{}, nil
	}

	ws := srv.Workspace()
	ws.BeginRead()
	defer ws.EndRead()

	u := ws.Project().Unit(params.TextDocument.URI)
	if u == nil {
		log.Debugf("document not found for documentSymbol: %s", params.TextDocument.URI)
		return []protocol.DocumentSymbol{}, nil
	}

	return analysis.DocumentSymbols(u), nil
}
