package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

// DidOpen handles the textDocument/didOpen notification.
// This is sent when a document is opened in the editor.
func DidOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	srv, ok := getServer("DidOpen")
	if !ok {
		return nil
	}

	uri := params.TextDocument.URI
	text := params.TextDocument.Text
	version := params.TextDocument.Version

	log.Debugf("document opened: %s (version %d, language %s, %d bytes)",
		uri, version, params.TextDocument.LanguageID, len(text))

	srv.Documents().Set(uri, &server.Document{
		URI:        uri,
		Text:       text,
		Version:    version,
		LanguageID: params.TextDocument.LanguageID,
	})

	if srv.Workspace().Update(uri, text, version) == nil {
		log.Debugf("%s is not an ActionScript, MXML or CSS document", uri)
	}

	return nil
}

// DidClose handles the textDocument/didClose notification.
// The unit reverts to the content of the file on disk.
func DidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	srv, ok := getServer("DidClose")
	if !ok {
		return nil
	}

	uri := params.TextDocument.URI

	srv.Documents().Delete(uri)

	if document.KindOf(uri) != document.KindUnknown {
		srv.Workspace().Close(uri)
	}

	log.Debugf("document closed: %s", uri)

	return nil
}

// DidChange handles the textDocument/didChange notification.
// This is sent when a document's content changes in the editor.
// It supports both full and incremental sync modes.
func DidChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	srv, ok := getServer("DidChange")
	if !ok {
		return nil
	}

	uri := params.TextDocument.URI
	version := params.TextDocument.Version

	doc, exists := srv.Documents().Get(uri)
	if !exists {
		log.Warningf("document not found for didChange: %s", uri)
		return nil
	}

	text, err := document.ApplyContentChanges(doc.Text, params.ContentChanges)
	if err != nil {
		// Keep the previous text rather than a corrupted one.
		log.Errorf("applying changes to %s: %s", uri, err)
		return nil
	}

	srv.Documents().Set(uri, &server.Document{
		URI:        uri,
		Text:       text,
		Version:    version,
		LanguageID: doc.LanguageID,
	})

	srv.Workspace().Update(uri, text, version)

	log.Debugf("document changed: %s (version %d, %d changes)", uri, version, len(params.ContentChanges))

	return nil
}
