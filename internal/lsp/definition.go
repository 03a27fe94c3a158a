package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// Definition handles the textDocument/definition request.
// Symbols declared in builtin or compiled libraries have no location.
func Definition(context *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	srv, ok := getServer("Definition")
	if !ok {
		return []protocol.Location{}, nil
	}

	log.Debugf("definition request at %s line %d, character %d",
		params.TextDocument.URI, params.Position.Line, params.Position.Character)

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	return analysis.FindDefinition(p, pos), nil
}
