package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"

	"github.com/CWBudde/go-as3-lsp/internal/analysis"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"bin":          true,
	"bin-debug":    true,
	"bin-release":  true,
	"obj":          true,
	"dist":         true,
	"build":        true,
	"out":          true,
}

// Source is a file read from disk.
type Source struct {
	Path string
	URI  string
	Text string
	Hash uint64
}

// Hash is the content hash used to detect unchanged files.
func Hash(text string) uint64 {
	return xxhash.Sum64String(text)
}

// IsSourceFile reports whether path is an ActionScript, MXML or CSS file.
func IsSourceFile(path string) bool {
	return document.KindOf(path) != document.KindUnknown
}

// Indexer discovers and reads workspace files and records their
// declarations in a SymbolIndex.
type Indexer struct {
	index    *SymbolIndex
	maxDepth int
	maxFiles int
	workers  int
}

// NewIndexer creates an indexer reading with the given number of workers.
func NewIndexer(index *SymbolIndex, workers int) *Indexer {
	if workers <= 0 {
		workers = 4
	}

	return &Indexer{
		index:    index,
		maxDepth: 32,
		maxFiles: 50000,
		workers:  workers,
	}
}

// Index returns the symbol index the indexer writes to.
func (idx *Indexer) Index() *SymbolIndex { return idx.index }

// Discover lists the source files below roots. Hidden and build output
// directories are skipped; a file below two roots is listed once.
func (idx *Indexer) Discover(roots []string) []string {
	var files []string

	seen := make(map[string]bool)

	for _, root := range roots {
		idx.walk(filepath.Clean(root), 0, seen, &files)
	}

	log.Debugf("discovered %d source files in %d roots", len(files), len(roots))

	return files
}

func (idx *Indexer) walk(dir string, depth int, seen map[string]bool, files *[]string) {
	if depth > idx.maxDepth || len(*files) >= idx.maxFiles {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debugf("skipping %s: %s", dir, err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if !skipDirs[name] {
				idx.walk(path, depth+1, seen, files)
			}

			continue
		}

		if !IsSourceFile(path) || seen[path] {
			continue
		}

		if len(*files) >= idx.maxFiles {
			log.Warningf("file limit of %d reached, ignoring the rest", idx.maxFiles)
			return
		}

		seen[path] = true
		*files = append(*files, path)
	}
}

// Read loads files concurrently. Unreadable files are logged and left out;
// the result keeps the order of paths.
func (idx *Indexer) Read(ctx context.Context, paths []string) ([]Source, error) {
	sources := make([]*Source, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("could not read %s: %s", path, err)
				return nil
			}

			text := string(content)
			sources[i] = &Source{Path: path, URI: document.PathToURI(path), Text: text, Hash: Hash(text)}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, *s)
		}
	}

	return out, nil
}

// Record stores the declarations of u at the given content hash. It
// reports false when the index already holds that version.
func (idx *Indexer) Record(u *semantic.Unit, hash uint64) (bool, error) {
	if u == nil || u.ReadOnly() {
		return false, nil
	}

	if idx.index.Unchanged(u.URI, hash) {
		return false, nil
	}

	if err := idx.index.UpdateFile(u.URI, hash, Symbols(u)); err != nil {
		return false, err
	}

	return true, nil
}

// Forget drops the declarations of a removed file.
func (idx *Indexer) Forget(uri string) error {
	return idx.index.RemoveFile(uri)
}

// Symbols extracts the declarations of u that workspace symbol search
// lists.
func Symbols(u *semantic.Unit) []SymbolLocation {
	var out []SymbolLocation

	for _, d := range u.Definitions {
		if analysis.Searchable(d) {
			out = append(out, SymbolOf(d))
		}
	}

	return out
}

// SymbolOf describes a declaration of a loaded unit.
func SymbolOf(d *semantic.Definition) SymbolLocation {
	start, end := d.NameStart, d.NameEnd
	if d.Synthetic && d.Kind.IsType() {
		start, end = 0, 0
	}

	container := d.Package
	if d.Owner != nil {
		container = d.Owner.Name
	}

	return SymbolLocation{
		Name:          d.Name,
		QualifiedName: d.QualifiedName,
		Kind:          analysis.SymbolKind(d),
		Location: protocol.Location{
			URI:   d.Unit.URI,
			Range: document.OffsetRange(d.Unit.Source, start, end),
		},
		ContainerName: container,
		Detail:        d.Signature(),
	}
}
