package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
	"github.com/CWBudde/go-as3-lsp/internal/workspace"
)

// WorkspaceSymbol handles the workspace/symbol request.
// It returns symbols across the entire workspace that match the query string.
// Until the workspace has been loaded the persisted symbol index answers.
func WorkspaceSymbol(context *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	srv, ok := getServer("WorkspaceSymbol")
	if !ok {
		return []protocol.SymbolInformation{}, nil
	}

	query := params.Query
	limit := srv.Config().MaxResults
	ws := srv.Workspace()

	log.Debugf("workspace symbol request with query %q", query)

	var found []workspace.SymbolLocation

	if !ws.Loaded() {
		log.Debugf("workspace not loaded yet, searching the symbol index")
		found = ws.Index().Search(query, limit)
	} else {
		ws.BeginRead()

		matches, err := analysis.SearchSymbols(requestContext(context), ws.Project(), query, limit)
		if err != nil {
			ws.EndRead()
			return nil, cancelled(err)
		}

		for _, m := range matches {
			found = append(found, workspace.SymbolOf(m.Def))
		}

		ws.EndRead()
	}

	log.Debugf("found %d workspace symbols matching %q", len(found), query)

	symbols := make([]protocol.SymbolInformation, 0, len(found))

	for _, s := range found {
		info := protocol.SymbolInformation{
			Name:     s.Name,
			Kind:     s.Kind,
			Location: s.Location,
		}

		if s.ContainerName != "" {
			container := s.ContainerName
			info.ContainerName = &container
		}

		symbols = append(symbols, info)
	}

	return symbols, nil
}
