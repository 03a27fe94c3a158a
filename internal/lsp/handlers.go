// Package lsp implements LSP protocol handlers.
//
// Handlers use the glsp signatures so they plug into protocol.Handler.
// When they run under a Dispatcher, the request context is available
// through requestContext and is cancelled by $/cancelRequest or by a
// newer request of the same kind.
package lsp

import (
	"context"
	"errors"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/server"
)

var log = commonlog.GetLogger("as3-lsp.lsp")

var (
	// serverInstance holds the global server instance
	// This is set by SetServer and accessed by handlers
	serverInstance *server.Server

	// contexts maps the glsp context of an in-flight request to its
	// cancellable context.
	contexts sync.Map
)

// SetServer sets the global server instance for handlers to access.
func SetServer(srv *server.Server) {
	serverInstance = srv
}

func getServer(method string) (*server.Server, bool) {
	if serverInstance == nil {
		log.Warningf("server instance not available in %s", method)
		return nil, false
	}

	return serverInstance, true
}

// requestContext returns the cancellable context of the request handled
// with gctx.
func requestContext(gctx *glsp.Context) context.Context {
	if gctx != nil {
		if ctx, ok := contexts.Load(gctx); ok {
			return ctx.(context.Context)
		}
	}

	return context.Background()
}

func bindContext(gctx *glsp.Context, ctx context.Context) func() {
	contexts.Store(gctx, ctx)
	return func() { contexts.Delete(gctx) }
}

// errCancelled is the error a handler returns when its request was
// cancelled. The dispatcher answers it with RequestCancelled.
var errCancelled = errors.New("request cancelled")

func cancelled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errCancelled
	}

	return err
}

// Handler returns the protocol handler table of the server.
func Handler() *protocol.Handler {
	return &protocol.Handler{
		Initialize:  Initialize,
		Initialized: Initialized,
		Shutdown:    Shutdown,
		SetTrace:    SetTrace,

		TextDocumentDidOpen:   DidOpen,
		TextDocumentDidChange: DidChange,
		TextDocumentDidClose:  DidClose,

		TextDocumentCompletion:     Completion,
		TextDocumentDefinition:     Definition,
		TextDocumentReferences:     References,
		TextDocumentRename:         Rename,
		TextDocumentPrepareRename:  PrepareRename,
		TextDocumentHover:          Hover,
		TextDocumentDocumentSymbol: DocumentSymbol,
		TextDocumentCodeAction:     CodeAction,

		WorkspaceSymbol:                    WorkspaceSymbol,
		WorkspaceExecuteCommand:            ExecuteCommand,
		WorkspaceDidChangeConfiguration:    DidChangeConfiguration,
		WorkspaceDidChangeWorkspaceFolders: DidChangeWorkspaceFolders,
	}
}
