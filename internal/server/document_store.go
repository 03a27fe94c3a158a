package server

import (
	"sort"
	"sync"
)

// Document represents an open document in the workspace.
type Document struct {
	URI        string
	Text       string
	Version    int32
	LanguageID string
}

// DocumentStore manages all open documents. While a document is open its
// text here is authoritative; the file on disk is not read again.
type DocumentStore struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Set stores or updates a document.
func (ds *DocumentStore) Set(uri string, doc *Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = doc
}

// Get retrieves a document by URI.
func (ds *DocumentStore) Get(uri string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]

	return doc, ok
}

// Text implements frontend.TextSource.
func (ds *DocumentStore) Text(uri string) (string, bool) {
	doc, ok := ds.Get(uri)
	if !ok {
		return "", false
	}

	return doc.Text, true
}

// Version returns the version of an open document.
func (ds *DocumentStore) Version(uri string) (int32, bool) {
	doc, ok := ds.Get(uri)
	if !ok {
		return 0, false
	}

	return doc.Version, true
}

// Delete removes a document from the store.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// List returns all document URIs, sorted.
func (ds *DocumentStore) List() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	uris := make([]string, 0, len(ds.documents))
	for uri := range ds.documents {
		uris = append(uris, uri)
	}

	sort.Strings(uris)

	return uris
}

// All returns every open document in URI order.
func (ds *DocumentStore) All() []*Document {
	uris := ds.List()

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	docs := make([]*Document, 0, len(uris))
	for _, uri := range uris {
		if doc, ok := ds.documents[uri]; ok {
			docs = append(docs, doc)
		}
	}

	return docs
}

// Clear removes all documents from the store.
func (ds *DocumentStore) Clear() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents = make(map[string]*Document)
}
