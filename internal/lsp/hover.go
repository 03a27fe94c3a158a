package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// Hover handles the textDocument/hover request.
// It shows the declaration of the symbol under the cursor with the summary
// of its documentation comment.
func Hover(context *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	srv, ok := getServer("Hover")
	if !ok {
		return nil, nil
	}

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	return analysis.Hover(p, pos), nil
}
