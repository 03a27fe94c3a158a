package semantic

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
)

// Import is one import directive of a unit.
type Import struct {
	// Path is the imported name, "flash.display.Sprite" or "flash.events.*".
	Path  string
	Start int
	End   int
	Node  ast.NodeID
}

// Wildcard reports whether the import names a whole package.
func (i Import) Wildcard() bool {
	return len(i.Path) >= 2 && i.Path[len(i.Path)-2:] == ".*"
}

// Package returns the imported package.
func (i Import) Package() string {
	if i.Wildcard() {
		return i.Path[:len(i.Path)-2]
	}

	pkg, _ := SplitQualified(i.Path)

	return pkg
}

// Name returns the imported definition name, or "*".
func (i Import) Name() string {
	_, name := SplitQualified(i.Path)
	return name
}

// Unit is one compiled source: an ActionScript file, an MXML component, a
// stylesheet, or a library stub.
type Unit struct {
	URI     string
	Path    string
	Kind    document.Kind
	Origin  Origin
	Version int32
	Source  string

	// Tree is the ActionScript tree. For MXML units it is synthesized from
	// the script blocks, event handlers and bindings of the markup.
	Tree *ast.Tree
	// Markup is the tag tree of MXML units.
	Markup *mxml.Document
	// Styles lists the stylesheets of the unit: fx:Style blocks or the
	// whole file for .css units.
	Styles []*css.Sheet

	Package string
	Imports []Import
	// ImportAnchor is the offset after which new imports are inserted when
	// the unit has none yet. -1 when unknown.
	ImportAnchor int

	FileScope   *Scope
	Definitions []*Definition
	// Primary is the type whose name matches the file name.
	Primary *Definition

	byNode map[ast.NodeID]*Definition
}

// Register records d as declared in the unit at node.
func (u *Unit) Register(d *Definition) {
	if u.byNode == nil {
		u.byNode = make(map[ast.NodeID]*Definition)
	}

	u.Definitions = append(u.Definitions, d)

	if d.Node.Valid() {
		u.byNode[d.Node] = d
	}
}

// DefinitionAt returns the definition declared by node.
func (u *Unit) DefinitionAt(node ast.NodeID) *Definition {
	return u.byNode[node]
}

// ScopeAt returns the innermost scope of the unit containing offset.
func (u *Unit) ScopeAt(offset int) *Scope {
	if u.FileScope == nil {
		return nil
	}

	return u.FileScope.Innermost(offset)
}

// StyleAt returns the stylesheet containing offset.
func (u *Unit) StyleAt(offset int) *css.Sheet {
	for _, s := range u.Styles {
		if s.Start <= offset && offset <= s.End {
			return s
		}
	}

	return nil
}

// Imported reports whether qname is visible through an import of u.
func (u *Unit) Imported(qname string) bool {
	pkg, _ := SplitQualified(qname)

	for _, imp := range u.Imports {
		if imp.Path == qname || imp.Wildcard() && imp.Package() == pkg {
			return true
		}
	}

	return false
}

// ReadOnly reports whether the unit may not be edited.
func (u *Unit) ReadOnly() bool { return u.Origin.ReadOnly() }
