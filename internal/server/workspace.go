package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/CWBudde/go-as3-lsp/internal/config"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/frontend"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
	"github.com/CWBudde/go-as3-lsp/internal/workspace"
)

// Options configure how a workspace is loaded.
type Options struct {
	// Roots are the workspace folders as file system paths.
	Roots []string

	// SDKPath is the root of a Flex or AIR SDK. Its framework libraries and
	// manifests are loaded read-only.
	SDKPath string

	// Workers bounds the number of files read in parallel.
	Workers int

	// IndexDir holds the persistent symbol index. Empty keeps the index in
	// memory.
	IndexDir string
}

// Workspace owns the project of the workspace and the exclusive section
// that guards it. Readers bracket their work with BeginRead/EndRead,
// anything that re-parses units with BeginWrite/EndWrite.
type Workspace struct {
	section sync.RWMutex
	project *frontend.Project

	documents *DocumentStore

	// mu guards the fields below.
	mu          sync.Mutex
	opts        Options
	indexer     *workspace.Indexer
	sourceRoots []string
	watcher     *workspace.Watcher

	loadMu sync.Mutex
	loaded atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkspace creates a workspace holding only the builtin API. Documents
// opened before Load are compiled against it.
func NewWorkspace(documents *DocumentStore) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Workspace{
		documents: documents,
		indexer:   workspace.NewIndexer(workspace.NewSymbolIndex(), 0),
		ctx:       ctx,
		cancel:    cancel,
	}

	w.project = w.newProject()

	return w
}

func (w *Workspace) newProject() *frontend.Project {
	p := frontend.NewProject()
	p.SetTextSource(w.documents)

	return p
}

// BeginRead enters the exclusive section as a reader.
func (w *Workspace) BeginRead() { w.section.RLock() }

// EndRead leaves the exclusive section as a reader.
func (w *Workspace) EndRead() { w.section.RUnlock() }

// BeginWrite enters the exclusive section as the only writer.
func (w *Workspace) BeginWrite() { w.section.Lock() }

// EndWrite leaves the exclusive section as a writer.
func (w *Workspace) EndWrite() { w.section.Unlock() }

// Project returns the current project. It must only be used inside the
// exclusive section.
func (w *Workspace) Project() *frontend.Project { return w.project }

// Context is cancelled when the workspace shuts down.
func (w *Workspace) Context() context.Context { return w.ctx }

// Loaded reports whether the workspace folders have been loaded.
func (w *Workspace) Loaded() bool { return w.loaded.Load() }

// Index returns the symbol index of the workspace.
func (w *Workspace) Index() *workspace.SymbolIndex {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.indexer.Index()
}

// Configure sets the load options and opens the symbol index. A persisted
// index is available for symbol search before the first Load completes.
func (w *Workspace) Configure(opts Options) error {
	index := workspace.NewSymbolIndex()

	if opts.IndexDir != "" && len(opts.Roots) > 0 {
		if err := os.MkdirAll(opts.IndexDir, 0o755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}

		opened, err := workspace.OpenSymbolIndex(indexPath(opts.IndexDir, opts.Roots))
		if err != nil {
			return fmt.Errorf("opening symbol index: %w", err)
		}

		index = opened
	}

	w.mu.Lock()

	if err := w.indexer.Index().Close(); err != nil {
		log.Warningf("closing symbol index: %s", err)
	}

	w.opts = opts
	w.indexer = workspace.NewIndexer(index, opts.Workers)

	// The next Watch call watches the new roots.
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	log.Infof("symbol index holds %d files", index.GetFileCount())

	if watcher != nil {
		return watcher.Close()
	}

	return nil
}

// SetSDKPath changes the SDK used by the next Load.
func (w *Workspace) SetSDKPath(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.opts.SDKPath = path
}

// indexPath names the index database of a set of workspace folders.
func indexPath(dir string, roots []string) string {
	return filepath.Join(dir, fmt.Sprintf("%016x.db", xxhash.Sum64String(strings.Join(roots, "\x00"))))
}

// Load compiles every source file of the workspace folders into a new
// project and swaps it in. Open documents keep their editor text.
func (w *Workspace) Load(ctx context.Context) error {
	w.loadMu.Lock()
	defer w.loadMu.Unlock()

	w.mu.Lock()
	opts := w.opts
	indexer := w.indexer
	w.mu.Unlock()

	p := w.newProject()

	var sourceRoots []string

	for _, root := range opts.Roots {
		cfg, err := config.LoadDir(root)
		if err != nil {
			log.Warningf("%s: %s, using default source path", root, err)
			cfg = config.Default(root)
		}

		sourceRoots = append(sourceRoots, cfg.SourcePaths...)

		for _, ns := range cfg.Namespaces {
			if err := loadManifest(p, ns.URI, ns.Manifest); err != nil {
				log.Warningf("%s", err)
			}
		}

		for _, lib := range cfg.LibraryRoots() {
			if err := p.LoadLibrary(lib); err != nil {
				log.Warningf("%s", err)
			}
		}
	}

	if opts.SDKPath != "" {
		loadSDK(p, opts.SDKPath)
	}

	p.SetSourceRoots(sourceRoots)

	sources, err := indexer.Read(ctx, indexer.Discover(sourceRoots))
	if err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}

	for _, src := range sources {
		p.Update(src.URI, src.Text, 0, semantic.OriginSource)
	}

	w.BeginWrite()

	for _, doc := range w.documents.All() {
		p.Update(doc.URI, doc.Text, doc.Version, semantic.OriginSource)
	}

	p.Refresh()
	w.project = p

	w.mu.Lock()
	w.sourceRoots = sourceRoots
	w.mu.Unlock()

	w.loaded.Store(true)
	w.recordAll(indexer)
	w.EndWrite()

	log.Infof("workspace loaded: %s", p.Stats())

	return nil
}

// recordAll brings the symbol index in line with the project. It runs
// inside the exclusive section.
func (w *Workspace) recordAll(indexer *workspace.Indexer) {
	live := make(map[string]bool)

	var changed int

	for _, u := range w.project.SourceUnits() {
		live[u.URI] = true

		ok, err := indexer.Record(u, workspace.Hash(u.Source))
		if err != nil {
			log.Warningf("indexing %s: %s", u.URI, err)
			continue
		}

		if ok {
			changed++
		}
	}

	for _, uri := range indexer.Index().Files() {
		if !live[uri] {
			if err := indexer.Forget(uri); err != nil {
				log.Warningf("dropping %s from index: %s", uri, err)
			}
		}
	}

	log.Debugf("indexed %d changed files", changed)
}

func loadManifest(p *frontend.Project, uri, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("manifest for %s: %w", uri, err)
	}

	m, err := mxml.ParseManifest(uri, data)
	if err != nil {
		return err
	}

	p.AddManifest(m)

	return nil
}

// loadSDK loads the framework libraries and manifests of an SDK.
func loadSDK(p *frontend.Project, sdk string) {
	frameworks := filepath.Join(sdk, "frameworks")

	if err := p.LoadLibrary(filepath.Join(frameworks, "libs")); err != nil {
		log.Warningf("SDK %s: %s", sdk, err)
	}

	manifests := map[string]string{
		mxml.SparkNamespace: "spark-manifest.xml",
		mxml.MXNamespace:    "mx-manifest.xml",
	}

	for uri, name := range manifests {
		err := loadManifest(p, uri, filepath.Join(frameworks, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warningf("SDK %s: %s", sdk, err)
		}
	}
}

// Update compiles an opened or edited document and returns its unit, nil
// for unsupported document kinds.
func (w *Workspace) Update(uri, text string, version int32) *semantic.Unit {
	w.BeginWrite()
	defer w.EndWrite()

	u := w.project.Update(uri, text, version, semantic.OriginSource)
	if u != nil {
		w.record(u)
	}

	return u
}

// Close reverts a closed document to its content on disk. Documents that
// do not exist on disk are dropped.
func (w *Workspace) Close(uri string) {
	data, err := os.ReadFile(document.URIToPath(uri))

	w.BeginWrite()
	defer w.EndWrite()

	if err != nil || !w.inSourceRoots(document.URIToPath(uri)) {
		w.project.Remove(uri)
		w.forget(uri)

		return
	}

	if u := w.project.Update(uri, string(data), 0, semantic.OriginSource); u != nil {
		w.record(u)
	}
}

func (w *Workspace) record(u *semantic.Unit) {
	w.mu.Lock()
	indexer := w.indexer
	w.mu.Unlock()

	if _, err := indexer.Record(u, workspace.Hash(u.Source)); err != nil {
		log.Warningf("indexing %s: %s", u.URI, err)
	}
}

func (w *Workspace) forget(uri string) {
	w.mu.Lock()
	indexer := w.indexer
	w.mu.Unlock()

	if err := indexer.Forget(uri); err != nil {
		log.Warningf("dropping %s from index: %s", uri, err)
	}
}

// inSourceRoots reports whether path lies below a source root. Before the
// first Load every path is accepted.
func (w *Workspace) inSourceRoots(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sourceRoots == nil {
		return true
	}

	for _, root := range w.sourceRoots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// Apply re-parses files changed on disk. Open documents are skipped, and
// a change to asconfig.json reloads the whole workspace.
func (w *Workspace) Apply(ctx context.Context, changes workspace.Changes) error {
	for _, path := range append(append([]string(nil), changes.Changed...), changes.Removed...) {
		if filepath.Base(path) == config.FileName {
			log.Infof("%s changed, reloading workspace", path)
			return w.Load(ctx)
		}
	}

	var changed []string

	for _, path := range changes.Changed {
		if _, open := w.documents.Get(document.PathToURI(path)); !open && w.inSourceRoots(path) {
			changed = append(changed, path)
		}
	}

	w.mu.Lock()
	indexer := w.indexer
	w.mu.Unlock()

	sources, err := indexer.Read(ctx, changed)
	if err != nil {
		return fmt.Errorf("applying file changes: %w", err)
	}

	w.BeginWrite()
	defer w.EndWrite()

	refresh := false

	for _, src := range sources {
		if u := w.project.Update(src.URI, src.Text, 0, semantic.OriginSource); u != nil {
			w.record(u)
			refresh = refresh || u.Kind == document.KindScript
		}
	}

	for _, path := range changes.Removed {
		uri := document.PathToURI(path)
		if _, open := w.documents.Get(uri); open {
			continue
		}

		if u := w.project.Unit(uri); u != nil {
			refresh = refresh || u.Kind == document.KindScript
		}

		w.project.Remove(uri)
		w.forget(uri)
	}

	// Event handlers in markup depend on the metadata of script classes.
	if refresh {
		w.project.Refresh()
	}

	log.Debugf("applied %d changed and %d removed files", len(sources), len(changes.Removed))

	return nil
}

// Watch starts re-parsing files as they change on disk.
func (w *Workspace) Watch() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil || len(w.opts.Roots) == 0 {
		return nil
	}

	accept := func(path string) bool {
		return workspace.IsSourceFile(path) || filepath.Base(path) == config.FileName
	}

	watcher := workspace.NewWatcher(w.opts.Roots, accept, func(c workspace.Changes) {
		if err := w.Apply(w.ctx, c); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("%s", err)
		}
	})

	if err := watcher.Start(); err != nil {
		return err
	}

	w.watcher = watcher

	return nil
}

// Shutdown stops the watcher and closes the symbol index.
func (w *Workspace) Shutdown() error {
	w.cancel()

	w.mu.Lock()
	watcher := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	var errs []error

	if watcher != nil {
		errs = append(errs, watcher.Close())
	}

	w.mu.Lock()
	errs = append(errs, w.indexer.Index().Close())
	w.mu.Unlock()

	return errors.Join(errs...)
}
