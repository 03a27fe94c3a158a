package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/server"
)

// Version is reported to the client in the initialize result.
var Version = "0.1.0"

// CommandOrganizeImports is the workspace/executeCommand command that
// organizes the imports of a document.
const CommandOrganizeImports = "as3.organizeImports"

// Initialize handles the LSP initialize request.
// This is the first request sent by the client and establishes the server capabilities.
func Initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if srv, ok := getServer("Initialize"); ok {
		srv.SetClientCapabilities(&params.Capabilities)
		srv.SetWorkspaceFolders(workspaceFolders(params))

		configureFromOptions(srv, params.InitializationOptions)

		cfg := srv.Config()

		err := srv.Workspace().Configure(server.Options{
			Roots:    srv.GetWorkspaceFolders(),
			SDKPath:  cfg.SDKPath,
			Workers:  cfg.Workers,
			IndexDir: cfg.IndexDir,
		})
		if err != nil {
			log.Errorf("configuring workspace: %s", err)
		}
	}

	changeKind := protocol.TextDocumentSyncKindIncremental
	trueVal := true
	falseVal := false

	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: &trueVal,
			Change:    &changeKind,
		},

		HoverProvider:           &trueVal,
		DefinitionProvider:      &trueVal,
		ReferencesProvider:      &trueVal,
		DocumentSymbolProvider:  &trueVal,
		WorkspaceSymbolProvider: &trueVal,

		CompletionProvider: &protocol.CompletionOptions{
			// Member access, MXML tags and attribute values, doc tags.
			TriggerCharacters: []string{".", ":", "<", " ", "\"", "@"},
			ResolveProvider:   &falseVal,
		},

		RenameProvider: &protocol.RenameOptions{
			PrepareProvider: &trueVal,
		},

		CodeActionProvider: &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{
				protocol.CodeActionKindSourceOrganizeImports,
			},
			ResolveProvider: &falseVal,
		},

		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: []string{CommandOrganizeImports},
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    "go-as3-lsp",
			Version: &Version,
		},
	}, nil
}

// workspaceFolders returns the folders of the workspace as paths, falling
// back to the root URI of older clients.
func workspaceFolders(params *protocol.InitializeParams) []string {
	var folders []string

	for _, f := range params.WorkspaceFolders {
		folders = append(folders, document.URIToPath(f.URI))
	}

	if len(folders) == 0 && params.RootURI != nil && *params.RootURI != "" {
		folders = append(folders, document.URIToPath(*params.RootURI))
	}

	return folders
}

// Initialized handles the initialized notification from the client.
// The workspace is loaded in the background; requests answered before it
// completes see the open documents only, and workspace/symbol falls back to
// the persisted index.
func Initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	srv, ok := getServer("Initialized")
	if !ok {
		return nil
	}

	go loadWorkspace(srv)

	return nil
}

func loadWorkspace(srv *server.Server) {
	ws := srv.Workspace()

	if err := ws.Load(ws.Context()); err != nil {
		log.Errorf("%s", err)
		return
	}

	if err := ws.Watch(); err != nil {
		log.Errorf("watching workspace: %s", err)
	}
}

// Shutdown handles the shutdown request.
// The client sends this to ask the server to shut down gracefully.
func Shutdown(context *glsp.Context) error {
	srv, ok := getServer("Shutdown")
	if !ok {
		return nil
	}

	srv.SetShuttingDown()

	if err := srv.Workspace().Shutdown(); err != nil {
		log.Warningf("shutting down workspace: %s", err)
	}

	return nil
}

// SetTrace handles the $/setTrace notification.
func SetTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	if srv, ok := getServer("SetTrace"); ok {
		srv.UpdateConfig(func(cfg *server.Config) {
			cfg.Trace = string(params.Value)
		})
	}

	return nil
}
