// Package frontend is the compiler frontend of the language server. It parses
// ActionScript, MXML and CSS sources into units, binds their declarations
// into scopes and definitions, and answers resolution queries through the
// semantic.Model interface.
//
// A Project is not safe for concurrent mutation. The server serializes
// Update/Remove calls against readers with its exclusive section; read-only
// queries may run in parallel.
package frontend

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/CWBudde/go-as3-lsp/internal/builtins"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/parser"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

var log = commonlog.GetLogger("as3-lsp.frontend")

// TextSource returns the current text of open documents.
type TextSource interface {
	Text(uri string) (string, bool)
}

// Project holds every unit of a workspace together with the package index
// used for cross-file resolution.
type Project struct {
	units    map[string]*semantic.Unit
	order    []string
	registry *mxml.Registry

	// byQName maps qualified names to package-level definitions. Source
	// definitions are kept ahead of library and builtin ones.
	byQName   map[string][]*semantic.Definition
	byPackage map[string][]*semantic.Definition

	sourceRoots []string
	texts       TextSource
}

// NewProject creates an empty project with the builtin API loaded.
func NewProject() *Project {
	p := &Project{
		units:     make(map[string]*semantic.Unit),
		registry:  mxml.NewRegistry(),
		byQName:   make(map[string][]*semantic.Definition),
		byPackage: make(map[string][]*semantic.Definition),
	}

	if err := p.loadBuiltins(); err != nil {
		log.Errorf("loading builtins: %s", err)
	}

	return p
}

func (p *Project) loadBuiltins() error {
	files, err := builtins.Files()
	if err != nil {
		return err
	}

	for _, f := range files {
		p.Update(f.URI, f.Text, 0, semantic.OriginBuiltin)
	}

	return nil
}

// SetTextSource installs the provider of open document text.
func (p *Project) SetTextSource(src TextSource) { p.texts = src }

// SetSourceRoots sets the directories package names are derived from.
func (p *Project) SetSourceRoots(roots []string) {
	p.sourceRoots = make([]string, 0, len(roots))
	for _, r := range roots {
		p.sourceRoots = append(p.sourceRoots, filepath.Clean(r))
	}

	// Longest root first so nested roots win.
	sort.Slice(p.sourceRoots, func(i, j int) bool { return len(p.sourceRoots[i]) > len(p.sourceRoots[j]) })
}

// SourceRoots returns the configured source roots.
func (p *Project) SourceRoots() []string { return p.sourceRoots }

// AddManifest registers a component manifest for an MXML namespace.
func (p *Project) AddManifest(m *mxml.Manifest) { p.registry.Add(m) }

// Registry implements semantic.Model.
func (p *Project) Registry() *mxml.Registry { return p.registry }

// Update parses text as the new content of uri and rebinds it. It returns
// the new unit, or nil for unsupported document kinds.
func (p *Project) Update(uri, text string, version int32, origin semantic.Origin) *semantic.Unit {
	kind := document.KindOf(uri)
	if kind == document.KindUnknown {
		return nil
	}

	path := document.URIToPath(uri)

	u := &semantic.Unit{
		URI:     uri,
		Path:    path,
		Kind:    kind,
		Origin:  origin,
		Version: version,
		Source:  text,
	}

	switch kind {
	case document.KindScript:
		u.Tree = parser.Parse(text)
		bind(u)
	case document.KindMarkup:
		u.Package = p.PackageOf(path)
		p.synthesizeMarkup(u)
		bind(u)
		u.ImportAnchor = markupImportAnchor(u)
		u.Primary = markupPrimary(u)
	case document.KindStyle:
		u.Tree = parser.NewBuilder(text).Finish()
		u.Styles = []*css.Sheet{css.Parse(text, 0, len(text))}
		bind(u)
	}

	p.linkImports(u)

	if old, ok := p.units[uri]; ok {
		p.unindex(old)
	} else {
		p.order = append(p.order, uri)
	}

	p.units[uri] = u
	p.index(u)

	return u
}

// Remove drops the unit for uri.
func (p *Project) Remove(uri string) {
	old, ok := p.units[uri]
	if !ok {
		return
	}

	p.unindex(old)
	delete(p.units, uri)

	for i, o := range p.order {
		if o == uri {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Refresh rebuilds every markup unit. Event handlers in MXML depend on the
// metadata of other classes, so they are re-synthesized once the workspace
// has been loaded.
func (p *Project) Refresh() {
	for _, uri := range append([]string(nil), p.order...) {
		u := p.units[uri]
		if u.Kind == document.KindMarkup {
			p.Update(uri, u.Source, u.Version, u.Origin)
		}
	}
}

func markupImportAnchor(u *semantic.Unit) int {
	if u.Markup == nil {
		return -1
	}

	for _, t := range u.Markup.Tags {
		if t.IsScript() && !t.SelfClosing {
			return t.EmbeddedRegion().Start
		}
	}

	return -1
}

func markupPrimary(u *semantic.Unit) *semantic.Definition {
	for _, d := range u.FileScope.Defs {
		if d.Kind == semantic.DefClass && d.Synthetic {
			return d
		}
	}

	return nil
}

// linkImports chains the package scopes of u above its file scope: its own
// package, explicit imports, wildcard imports and the top level package.
func (p *Project) linkImports(u *semantic.Unit) {
	top := &semantic.Scope{Kind: semantic.ScopePackage, Unit: u, Whole: true}
	parent := top

	var wildcards []string

	explicit := &semantic.Scope{Kind: semantic.ScopePackage, Unit: u}

	for _, imp := range u.Imports {
		if imp.Wildcard() {
			wildcards = append(wildcards, imp.Package())
		} else {
			explicit.Qualified = append(explicit.Qualified, imp.Path)
		}
	}

	for i := len(wildcards) - 1; i >= 0; i-- {
		parent = &semantic.Scope{Kind: semantic.ScopePackage, Unit: u, Package: wildcards[i], Whole: true, Parent: parent}
	}

	explicit.Parent = parent
	parent = explicit

	if u.Package != "" {
		parent = &semantic.Scope{Kind: semantic.ScopePackage, Unit: u, Package: u.Package, Whole: true, Parent: parent}
	}

	u.FileScope.Parent = parent
}

func (p *Project) index(u *semantic.Unit) {
	for _, d := range u.FileScope.Defs {
		if d.Classification != semantic.ClassPackageMember {
			continue
		}

		list := p.byQName[d.QualifiedName]
		if u.Origin == semantic.OriginSource {
			// First source definition wins over library stubs.
			i := 0
			for i < len(list) && list[i].Unit.Origin == semantic.OriginSource {
				i++
			}

			list = append(list[:i], append([]*semantic.Definition{d}, list[i:]...)...)
		} else {
			list = append(list, d)
		}

		p.byQName[d.QualifiedName] = list
		p.byPackage[d.Package] = append(p.byPackage[d.Package], d)
	}
}

func (p *Project) unindex(u *semantic.Unit) {
	for _, d := range u.FileScope.Defs {
		if d.Classification != semantic.ClassPackageMember {
			continue
		}

		p.byQName[d.QualifiedName] = without(p.byQName[d.QualifiedName], u)
		if len(p.byQName[d.QualifiedName]) == 0 {
			delete(p.byQName, d.QualifiedName)
		}

		p.byPackage[d.Package] = without(p.byPackage[d.Package], u)
		if len(p.byPackage[d.Package]) == 0 {
			delete(p.byPackage, d.Package)
		}
	}
}

func without(defs []*semantic.Definition, u *semantic.Unit) []*semantic.Definition {
	out := defs[:0:0]

	for _, d := range defs {
		if d.Unit != u {
			out = append(out, d)
		}
	}

	return out
}

// Unit implements semantic.Model.
func (p *Project) Unit(uri string) *semantic.Unit { return p.units[uri] }

// Units implements semantic.Model. Units are returned in load order.
func (p *Project) Units() []*semantic.Unit {
	out := make([]*semantic.Unit, 0, len(p.order))
	for _, uri := range p.order {
		out = append(out, p.units[uri])
	}

	return out
}

// SourceUnits returns the editable units.
func (p *Project) SourceUnits() []*semantic.Unit {
	var out []*semantic.Unit

	for _, u := range p.Units() {
		if u.Origin == semantic.OriginSource {
			out = append(out, u)
		}
	}

	return out
}

// DocumentText implements semantic.Model.
func (p *Project) DocumentText(uri string) (string, bool) {
	if p.texts != nil {
		if text, ok := p.texts.Text(uri); ok {
			return text, true
		}
	}

	if u, ok := p.units[uri]; ok {
		return u.Source, true
	}

	return "", false
}

// FindQualified implements semantic.Model.
func (p *Project) FindQualified(qname string) *semantic.Definition {
	if list := p.byQName[qname]; len(list) > 0 {
		return list[0]
	}

	return nil
}

// PackageDefinitions implements semantic.Model.
func (p *Project) PackageDefinitions(pkg string) []*semantic.Definition {
	return p.byPackage[pkg]
}

// Packages implements semantic.Model. Parent packages of known packages are
// included.
func (p *Project) Packages() []string {
	seen := make(map[string]bool)

	for pkg := range p.byPackage {
		for pkg != "" && !seen[pkg] {
			seen[pkg] = true

			i := strings.LastIndexByte(pkg, '.')
			if i < 0 {
				break
			}

			pkg = pkg[:i]
		}
	}

	out := make([]string, 0, len(seen))
	for pkg := range seen {
		out = append(out, pkg)
	}

	sort.Strings(out)

	return out
}

// PackageOf implements semantic.Model.
func (p *Project) PackageOf(path string) string {
	dir := filepath.Dir(filepath.Clean(path))

	for _, root := range p.sourceRoots {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		if rel == "." {
			return ""
		}

		return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
	}

	return ""
}

// Stats summarizes the project for logging.
func (p *Project) Stats() string {
	var src, lib, builtin int

	for _, u := range p.units {
		switch u.Origin {
		case semantic.OriginSource:
			src++
		case semantic.OriginLibrary:
			lib++
		default:
			builtin++
		}
	}

	return fmt.Sprintf("%d source, %d library, %d builtin units", src, lib, builtin)
}
