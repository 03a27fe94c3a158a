package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

// ExecuteCommand handles the workspace/executeCommand request.
//
// as3.organizeImports takes the URI of a document, either as a string or as
// {"uri": ...}. The edit is sent with workspace/applyEdit; clients without
// applyEdit support receive it as the command result.
func ExecuteCommand(context *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	srv, ok := getServer("ExecuteCommand")
	if !ok {
		return nil, nil
	}

	switch params.Command {
	case CommandOrganizeImports:
		uri, err := commandURI(params.Arguments)
		if err != nil {
			return nil, err
		}

		edit := organizeImports(srv, uri)
		if edit == nil {
			return nil, nil
		}

		if !srv.SupportsApplyEdit() || context == nil || context.Call == nil {
			return edit, nil
		}

		label := "Organize Imports"

		var response protocol.ApplyWorkspaceEditResponse

		context.Call(protocol.ServerWorkspaceApplyEdit, protocol.ApplyWorkspaceEditParams{Label: &label, Edit: *edit}, &response)

		if !response.Applied {
			reason := "no reason given"
			if response.FailureReason != nil {
				reason = *response.FailureReason
			}

			log.Warningf("client did not apply organize imports for %s: %s", uri, reason)
		}

		return nil, nil
	}

	return nil, fmt.Errorf("unknown command %q", params.Command)
}

func commandURI(args []any) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%s: missing document URI", CommandOrganizeImports)
	}

	data, err := json.Marshal(args[0])
	if err != nil {
		return "", fmt.Errorf("%s: %w", CommandOrganizeImports, err)
	}

	arg := gjson.ParseBytes(data)

	switch {
	case arg.Type == gjson.String:
		return arg.String(), nil
	case arg.Get("uri").Type == gjson.String:
		return arg.Get("uri").String(), nil
	}

	return "", fmt.Errorf("%s: expected a document URI, got %s", CommandOrganizeImports, arg.Raw)
}

// organizeImports computes the edit inside the exclusive section as a
// writer, so no re-parse interleaves with it. It returns nil when there is
// nothing to change.
func organizeImports(srv *server.Server, uri string) *protocol.WorkspaceEdit {
	ws := srv.Workspace()
	ws.BeginWrite()
	defer ws.EndWrite()

	p := ws.Project()

	edits := analysis.OrganizeImports(p, p.Unit(uri))
	if len(edits) == 0 {
		return nil
	}

	id := protocol.OptionalVersionedTextDocumentIdentifier{
		TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
	}

	if v, ok := srv.Documents().Version(uri); ok {
		id.Version = &v
	}

	changes := make([]any, 0, len(edits))
	for _, e := range edits {
		changes = append(changes, e)
	}

	return &protocol.WorkspaceEdit{
		DocumentChanges: []any{protocol.TextDocumentEdit{TextDocument: id, Edits: changes}},
	}
}
