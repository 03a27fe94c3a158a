package lsp

import (
	"regexp"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
	"github.com/CWBudde/go-as3-lsp/internal/frontend"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

// readPosition enters the exclusive section as a reader and resolves the
// cursor of params. The returned func leaves the section. The position is
// nil when the document is unknown or the cursor lies outside its text.
func readPosition(srv *server.Server, params protocol.TextDocumentPositionParams) (*frontend.Project, *analysis.Position, func()) {
	ws := srv.Workspace()
	ws.BeginRead()

	p := ws.Project()
	pos := analysis.ResolveOffset(p, params.TextDocument.URI, int(params.Position.Line), int(params.Position.Character))

	return p, pos, ws.EndRead
}

var (
	snippetPlaceholder = regexp.MustCompile(`\$\{\d+:([^}]*)\}`)
	snippetTabStop     = regexp.MustCompile(`\$\d+`)
)

// plainText rewrites snippet completions for clients without snippet
// support: placeholders keep their default text, tab stops are dropped.
func plainText(items []protocol.CompletionItem) []protocol.CompletionItem {
	for i := range items {
		item := &items[i]
		if item.InsertTextFormat == nil || *item.InsertTextFormat != protocol.InsertTextFormatSnippet {
			continue
		}

		format := protocol.InsertTextFormatPlainText
		item.InsertTextFormat = &format

		if item.InsertText != nil {
			text := stripSnippet(*item.InsertText)
			item.InsertText = &text
		}

		if edit, ok := item.TextEdit.(protocol.TextEdit); ok {
			edit.NewText = stripSnippet(edit.NewText)
			item.TextEdit = edit
		}
	}

	return items
}

func stripSnippet(s string) string {
	s = snippetPlaceholder.ReplaceAllString(s, "$1")
	return snippetTabStop.ReplaceAllString(s, "")
}
