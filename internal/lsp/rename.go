package lsp

import (
	"errors"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

// Rename handles the textDocument/rename request.
// A symbol that cannot be renamed is reported as an error. A rename that
// finds nothing to change returns an empty edit.
func Rename(context *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	srv, ok := getServer("Rename")
	if !ok {
		return nil, errors.New("server instance not available")
	}

	log.Debugf("rename request at %s line %d, character %d to %q",
		params.TextDocument.URI, params.Position.Line, params.Position.Character, params.NewName)

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	edit, err := analysis.PlanRename(requestContext(context), p, pos, params.NewName, srv.Documents().Version)
	if err != nil {
		var rejection *analysis.RenameRejection
		if errors.As(err, &rejection) {
			log.Infof("%s", rejection)
			return nil, rejection
		}

		return nil, cancelled(err)
	}

	if !srv.SupportsFileRename() {
		edit.DocumentChanges = withoutFileOperations(edit.DocumentChanges)
	}

	return edit, nil
}

// withoutFileOperations drops the resource operations of a workspace edit
// for clients that cannot apply them.
func withoutFileOperations(changes []any) []any {
	out := changes[:0]

	for _, c := range changes {
		if _, ok := c.(protocol.RenameFile); ok {
			continue
		}

		out = append(out, c)
	}

	return out
}

// PrepareRename handles the textDocument/prepareRename request.
// It returns the range of the name that Rename would change.
func PrepareRename(context *glsp.Context, params *protocol.PrepareRenameParams) (any, error) {
	srv, ok := getServer("PrepareRename")
	if !ok {
		return nil, nil
	}

	p, pos, release := readPosition(srv, params.TextDocumentPositionParams)
	defer release()

	r, err := analysis.PrepareRename(p, pos)
	if err != nil {
		log.Debugf("prepareRename: %s", err)
		return nil, err
	}

	return r, nil
}
