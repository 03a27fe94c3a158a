package semantic

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
)

// Type is the static type of an expression.
type Type struct {
	Def *Definition
	// Element is the element type of Vector.<T>.
	Element *Type
	// Static is set when the expression denotes the class itself, as in
	// Math.max, so that only static members are reachable.
	Static bool
}

// Model is the compiler frontend as seen by the analysis core. It is a
// snapshot: callers hold the workspace read section while using it.
type Model interface {
	// Unit returns the current unit for uri, or nil.
	Unit(uri string) *Unit
	// Units returns every compiled unit of the project.
	Units() []*Unit
	// DocumentText returns the current text of uri, preferring open buffers.
	DocumentText(uri string) (string, bool)

	// Resolve returns the definition an identifier, type reference or
	// declaration name node refers to.
	Resolve(unit *Unit, node ast.NodeID) *Definition
	// ScopeChain returns the scopes visible at offset, innermost first.
	ScopeChain(unit *Unit, offset int) []*Scope
	// VisibleDefinitions returns the definitions a scope contributes to
	// unqualified lookup.
	VisibleDefinitions(scope *Scope) []*Definition

	// TypeOf returns the static type of an expression node, or nil.
	TypeOf(unit *Unit, expr ast.NodeID) *Type
	// DeclaredType returns the resolved declared type of a variable,
	// parameter, accessor or the return type of a function.
	DeclaredType(def *Definition) *Type
	// ResolveTypeName resolves a type name as written at offset in unit.
	ResolveTypeName(unit *Unit, name string, offset int) *Definition
	// FindQualified returns the package-level definition with a qualified
	// name.
	FindQualified(qname string) *Definition
	// PackageDefinitions returns the package-level definitions of pkg.
	PackageDefinitions(pkg string) []*Definition
	// Packages returns all package names known to the project.
	Packages() []string

	// BaseClass returns the resolved superclass of a class.
	BaseClass(def *Definition) *Definition
	// Interfaces returns the resolved interfaces a type implements or
	// extends.
	Interfaces(def *Definition) []*Definition
	// Overridden returns the definition that an override function replaces
	// in the nearest base class.
	Overridden(def *Definition) *Definition
	// Member finds a member of a type by name, searching base classes and
	// extended interfaces. Events and styles are not members.
	Member(typ *Definition, name string) *Definition
	// AllMembers returns the members of a type and its ancestors, the most
	// derived first.
	AllMembers(typ *Definition) []*Definition
	// Metadata returns the event or style definitions declared by metadata
	// on a class and its ancestors.
	Metadata(typ *Definition, kind DefKind) []*Definition

	// TagClass returns the class an MXML tag instantiates.
	TagClass(unit *Unit, tag *mxml.Tag) *Definition
	// PackageOf returns the package a file belongs to by its location under
	// the source roots.
	PackageOf(path string) string

	// Registry resolves MXML namespaces and tag names.
	Registry() *mxml.Registry
}
