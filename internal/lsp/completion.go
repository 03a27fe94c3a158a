package lsp

import (
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// Completion handles the textDocument/completion request.
// Items come ranked; the list is cut at the configured maximum.
func Completion(context *glsp.Context, params *protocol.CompletionParams) (any, error) {
	startTime := time.Now()

	defer func() {
		log.Debugf("completion took %s", time.Since(startTime))
	}()

	empty := &protocol.CompletionList{IsIncomplete: false, Items: []protocol.CompletionItem{}}

	srv, ok := getServer("Completion")
	if !ok {
		return empty, nil
	}

	log.Debugf("completion request at %s line %d, character %d",
		params.TextDocument.URI, params.Position.Line, params.Position.Character)

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	items, err := analysis.Complete(requestContext(context), p, pos)
	if err != nil {
		return nil, cancelled(err)
	}

	if !srv.SupportsSnippets() {
		items = plainText(items)
	}

	incomplete := false

	if limit := srv.Config().MaxResults; limit > 0 && len(items) > limit {
		items = items[:limit]
		incomplete = true
	}

	log.Debugf("returning %d completion items", len(items))

	return &protocol.CompletionList{IsIncomplete: incomplete, Items: items}, nil
}
