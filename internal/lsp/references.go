package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// References handles the textDocument/references request.
// Overrides and implementations of a member count as the same symbol.
func References(context *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	srv, ok := getServer("References")
	if !ok {
		return []protocol.Location{}, nil
	}

	log.Debugf("references request at %s line %d, character %d (includeDeclaration=%t)",
		params.TextDocument.URI, params.Position.Line, params.Position.Character, params.Context.IncludeDeclaration)

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	t := analysis.ResolveTarget(p, pos)
	if t == nil || t.File != "" {
		return []protocol.Location{}, nil
	}

	occs, err := analysis.FindReferences(requestContext(context), p, t.Def, params.Context.IncludeDeclaration)
	if err != nil {
		return nil, cancelled(err)
	}

	log.Debugf("found %d references to %s", len(occs), t.Def.QualifiedName)

	return analysis.Locations(occs), nil
}
