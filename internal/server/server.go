// Package server provides the core LSP server state and management.
package server

import (
	"runtime"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("as3-lsp.server")

// Server holds the state of the LSP server.
type Server struct {
	// documents stores all open documents
	documents *DocumentStore

	// workspace owns the project and its exclusive section
	workspace *Workspace

	// workspaceFolders stores the workspace folders from the client
	workspaceFolders []string

	// clientCapabilities stores the client's capabilities from the initialize request
	clientCapabilities *protocol.ClientCapabilities

	// config holds server configuration
	config *Config

	// mutex protects server state
	mu sync.RWMutex

	// shutting down flag
	shuttingDown bool
}

// Config holds server configuration options.
type Config struct {
	// MaxResults limits the number of workspace symbols and completion
	// items returned. Zero means no limit.
	MaxResults int

	// Trace controls logging verbosity
	Trace string

	// SDKPath is the Flex or AIR SDK whose libraries are loaded read-only.
	SDKPath string

	// Workers bounds the request worker pool and parallel file reads.
	Workers int

	// IndexDir holds the persistent symbol index. Empty keeps it in memory.
	IndexDir string
}

// DefaultConfig returns the configuration used until the client sends
// its settings.
func DefaultConfig() Config {
	return Config{
		MaxResults: 500,
		Trace:      "off",
		Workers:    runtime.NumCPU(),
	}
}

// New creates a new LSP server instance.
func New() *Server {
	documents := NewDocumentStore()
	config := DefaultConfig()

	return &Server{
		documents: documents,
		workspace: NewWorkspace(documents),
		config:    &config,
	}
}

// IsShuttingDown returns true if the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuttingDown
}

// SetShuttingDown marks the server as shutting down.
func (s *Server) SetShuttingDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuttingDown = true
}

// Documents returns the document store.
func (s *Server) Documents() *DocumentStore {
	return s.documents
}

// Workspace returns the workspace.
func (s *Server) Workspace() *Workspace {
	return s.workspace
}

// Config returns a copy of the server configuration.
func (s *Server) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.config
}

// UpdateConfig updates the server configuration atomically.
// The update function is called with the current config under a write lock.
func (s *Server) UpdateConfig(update func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(s.config)
}

// SetWorkspaceFolders sets the workspace folders.
func (s *Server) SetWorkspaceFolders(folders []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaceFolders = folders
}

// GetWorkspaceFolders returns the workspace folders.
func (s *Server) GetWorkspaceFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspaceFolders
}

// SetClientCapabilities sets the client's capabilities.
func (s *Server) SetClientCapabilities(capabilities *protocol.ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientCapabilities = capabilities
}

// GetClientCapabilities returns the client's capabilities.
func (s *Server) GetClientCapabilities() *protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientCapabilities
}

// SupportsSnippets returns true if the client supports snippet completions.
func (s *Server) SupportsSnippets() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clientCapabilities == nil {
		return false
	}

	if s.clientCapabilities.TextDocument == nil {
		return false
	}

	if s.clientCapabilities.TextDocument.Completion == nil {
		return false
	}

	if s.clientCapabilities.TextDocument.Completion.CompletionItem == nil {
		return false
	}

	if s.clientCapabilities.TextDocument.Completion.CompletionItem.SnippetSupport == nil {
		return false
	}

	return *s.clientCapabilities.TextDocument.Completion.CompletionItem.SnippetSupport
}

// SupportsApplyEdit returns true if the client accepts workspace/applyEdit.
func (s *Server) SupportsApplyEdit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clientCapabilities == nil || s.clientCapabilities.Workspace == nil {
		return false
	}

	applyEdit := s.clientCapabilities.Workspace.ApplyEdit

	return applyEdit != nil && *applyEdit
}

// SupportsFileRename returns true if the client accepts rename operations
// in workspace edits.
func (s *Server) SupportsFileRename() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.clientCapabilities == nil || s.clientCapabilities.Workspace == nil {
		return false
	}

	edit := s.clientCapabilities.Workspace.WorkspaceEdit
	if edit == nil {
		return false
	}

	for _, op := range edit.ResourceOperations {
		if op == protocol.ResourceOperationKindRename {
			return true
		}
	}

	return false
}
