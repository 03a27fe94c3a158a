// Package workspace discovers, reads and watches the source files of a
// workspace and keeps a persistent index of their declarations.
package workspace

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
)

var log = commonlog.GetLogger("as3-lsp.workspace")

// SymbolLocation represents a location where a symbol is defined.
type SymbolLocation struct {
	Name          string              `msgpack:"name"`
	QualifiedName string              `msgpack:"qname"`
	Kind          protocol.SymbolKind `msgpack:"kind"`
	Location      protocol.Location   `msgpack:"location"`
	ContainerName string              `msgpack:"container"`
	Detail        string              `msgpack:"detail"`
}

// FileInfo stores metadata about an indexed file.
type FileInfo struct {
	URI     string
	Hash    uint64
	Symbols []SymbolLocation
}

// SymbolIndex maintains a workspace-wide index of declarations. With a
// backing store the index survives restarts, so files whose content hash
// did not change need no re-extraction.
type SymbolIndex struct {
	// symbols maps names to their locations across files.
	symbols map[string][]SymbolLocation
	files   map[string]*FileInfo
	store   *DataIndexer[SymbolLocation]

	mutex sync.RWMutex
}

// NewSymbolIndex creates an empty in-memory index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		symbols: make(map[string][]SymbolLocation),
		files:   make(map[string]*FileInfo),
	}
}

// OpenSymbolIndex opens the index persisted at dbPath and loads it.
func OpenSymbolIndex(dbPath string) (*SymbolIndex, error) {
	store, err := NewDataIndexer[SymbolLocation](dbPath)
	if err != nil {
		return nil, err
	}

	si := NewSymbolIndex()
	si.store = store

	uris, err := store.FilePaths()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	for _, uri := range uris {
		hash, _, err := store.Hash(uri)
		if err != nil {
			_ = store.Close()
			return nil, err
		}

		symbols, err := store.GetValuesByPath(uri)
		if err != nil {
			_ = store.Close()
			return nil, err
		}

		si.replace(uri, hash, symbols)
	}

	log.Infof("loaded %d indexed files from %s", len(uris), dbPath)

	return si, nil
}

// Unchanged reports whether uri is indexed at the given content hash.
func (si *SymbolIndex) Unchanged(uri string, hash uint64) bool {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	info, ok := si.files[uri]

	return ok && info.Hash == hash
}

// UpdateFile replaces the symbols of uri.
func (si *SymbolIndex) UpdateFile(uri string, hash uint64, symbols []SymbolLocation) error {
	si.mutex.Lock()
	si.replace(uri, hash, symbols)
	si.mutex.Unlock()

	if si.store == nil {
		return nil
	}

	byName := make(map[string][]SymbolLocation)
	for _, s := range symbols {
		byName[s.Name] = append(byName[s.Name], s)
	}

	if err := si.store.ReplaceFile(uri, hash, byName); err != nil {
		return fmt.Errorf("persisting symbols of %s: %w", uri, err)
	}

	return nil
}

func (si *SymbolIndex) replace(uri string, hash uint64, symbols []SymbolLocation) {
	si.remove(uri)

	info := &FileInfo{URI: uri, Hash: hash, Symbols: symbols}
	si.files[uri] = info

	for _, s := range symbols {
		si.symbols[s.Name] = append(si.symbols[s.Name], s)
	}
}

// RemoveFile removes all symbols from a file.
func (si *SymbolIndex) RemoveFile(uri string) error {
	si.mutex.Lock()
	si.remove(uri)
	si.mutex.Unlock()

	if si.store == nil {
		return nil
	}

	return si.store.DeleteByFilePaths([]string{uri})
}

func (si *SymbolIndex) remove(uri string) {
	info, exists := si.files[uri]
	if !exists {
		return
	}

	for _, s := range info.Symbols {
		var remaining []SymbolLocation

		for _, loc := range si.symbols[s.Name] {
			if loc.Location.URI != uri {
				remaining = append(remaining, loc)
			}
		}

		if len(remaining) > 0 {
			si.symbols[s.Name] = remaining
		} else {
			delete(si.symbols, s.Name)
		}
	}

	delete(si.files, uri)
}

// FindSymbol returns every location declaring name.
func (si *SymbolIndex) FindSymbol(name string) []SymbolLocation {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	locations, exists := si.symbols[name]
	if !exists {
		return nil
	}

	result := make([]SymbolLocation, len(locations))
	copy(result, locations)

	return result
}

// FindSymbolsInFile returns the symbols declared in uri.
func (si *SymbolIndex) FindSymbolsInFile(uri string) []SymbolLocation {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	info, exists := si.files[uri]
	if !exists {
		return nil
	}

	return append([]SymbolLocation(nil), info.Symbols...)
}

// Search matches query against qualified names the way workspace symbol
// search does: camelCase words in order, or an exact prefix for dotted
// queries. Exact name matches come first. A maxResults of zero means no
// limit.
func (si *SymbolIndex) Search(query string, maxResults int) []SymbolLocation {
	si.mutex.RLock()

	type scored struct {
		loc   SymbolLocation
		score int
	}

	var matches []scored

	for _, locations := range si.symbols {
		for _, loc := range locations {
			if analysis.MatchQuery(query, loc.QualifiedName) {
				matches = append(matches, scored{loc: loc, score: analysis.SymbolScore(query, loc.Name)})
			}
		}
	}

	si.mutex.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}

		if matches[i].loc.QualifiedName != matches[j].loc.QualifiedName {
			return matches[i].loc.QualifiedName < matches[j].loc.QualifiedName
		}

		return matches[i].loc.Location.URI < matches[j].loc.Location.URI
	})

	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	results := make([]SymbolLocation, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.loc)
	}

	return results
}

// GetFileCount returns the number of files in the index.
func (si *SymbolIndex) GetFileCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	return len(si.files)
}

// Files returns the URIs of all indexed files, sorted.
func (si *SymbolIndex) Files() []string {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	uris := make([]string, 0, len(si.files))
	for uri := range si.files {
		uris = append(uris, uri)
	}

	sort.Strings(uris)

	return uris
}

// GetSymbolCount returns the number of distinct symbol names.
func (si *SymbolIndex) GetSymbolCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	return len(si.symbols)
}

// Close releases the backing store.
func (si *SymbolIndex) Close() error {
	if si.store == nil {
		return nil
	}

	return si.store.Close()
}
