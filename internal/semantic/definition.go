// Package semantic defines the symbol model shared by the frontend and the
// analysis core: units, scopes, definitions and the Model interface through
// which the core queries the frontend.
package semantic

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

// DefKind is the category of a definition.
type DefKind uint8

const (
	DefPackage DefKind = iota
	DefClass
	DefInterface
	DefFunction
	DefGetter
	DefSetter
	DefVariable
	DefConstant
	DefParameter
	DefEvent
	DefStyle
)

var defKindNames = [...]string{
	DefPackage:   "package",
	DefClass:     "class",
	DefInterface: "interface",
	DefFunction:  "function",
	DefGetter:    "getter",
	DefSetter:    "setter",
	DefVariable:  "variable",
	DefConstant:  "constant",
	DefParameter: "parameter",
	DefEvent:     "event",
	DefStyle:     "style",
}

func (k DefKind) String() string {
	if int(k) < len(defKindNames) {
		return defKindNames[k]
	}

	return "unknown"
}

// IsType reports whether definitions of this kind are types.
func (k DefKind) IsType() bool { return k == DefClass || k == DefInterface }

// IsAccessor reports whether the kind is a getter or setter.
func (k DefKind) IsAccessor() bool { return k == DefGetter || k == DefSetter }

// IsFunction reports whether the kind is a function or accessor.
func (k DefKind) IsFunction() bool { return k == DefFunction || k.IsAccessor() }

// Visibility is the access modifier of a definition.
type Visibility uint8

const (
	Internal Visibility = iota
	Public
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "internal"
	}
}

// Classification tells where a definition lives.
type Classification uint8

const (
	ClassLocal Classification = iota
	ClassParameter
	ClassMember
	ClassInterfaceMember
	ClassPackageMember
	// ClassFileMember marks helper definitions outside the package block,
	// visible in their own file only.
	ClassFileMember
)

// Origin tells where the unit holding a definition comes from.
type Origin uint8

const (
	OriginSource Origin = iota
	// OriginLibrary marks sources and compiled archives on the library path.
	OriginLibrary
	// OriginBuiltin marks the embedded language and framework API.
	OriginBuiltin
)

// ReadOnly reports whether definitions of this origin can be edited.
func (o Origin) ReadOnly() bool { return o != OriginSource }

// Definition is a named semantic entity.
type Definition struct {
	Name          string
	QualifiedName string
	Package       string
	Kind          DefKind

	Visibility     Visibility
	Static         bool
	Override       bool
	Final          bool
	Dynamic        bool
	Classification Classification

	// Synthetic marks definitions generated from markup (the class of an
	// MXML file, event handler functions) that have no name in the source.
	Synthetic bool

	Unit  *Unit
	Owner *Definition
	Node  ast.NodeID

	NameStart int
	NameEnd   int
	Start     int
	End       int

	// TypeName is the declared type (variables, parameters, accessors) or
	// return type (functions) as written.
	TypeName string
	TypeNode ast.NodeID

	// Base is the extends clause of a class as written, or a qualified name
	// for synthesized classes.
	Base       string
	Interfaces []string

	Params   []*Definition
	Members  []*Definition
	Metadata []ast.Metadata
	Doc      *ast.Comment

	// Scope is the scope this definition opens (types and functions).
	Scope *Scope
}

// Path returns the file path of the containing unit.
func (d *Definition) Path() string {
	if d.Unit == nil {
		return ""
	}

	return d.Unit.Path
}

// ReadOnly reports whether the definition lives in a library or builtin
// unit.
func (d *Definition) ReadOnly() bool {
	return d.Unit == nil || d.Unit.Origin.ReadOnly()
}

// IsMember reports whether the definition belongs to a type.
func (d *Definition) IsMember() bool {
	return d.Classification == ClassMember || d.Classification == ClassInterfaceMember
}

// IsLocal reports whether the definition is confined to a function body or
// file, so that no other file can refer to it.
func (d *Definition) IsLocal() bool {
	switch d.Classification {
	case ClassLocal, ClassParameter, ClassFileMember:
		return true
	}

	return false
}

// IsConstructor reports whether d is the constructor of its owner.
func (d *Definition) IsConstructor() bool {
	return d.Kind == DefFunction && d.Owner != nil && d.Owner.Kind == DefClass && d.Name == d.Owner.Name && !d.Static
}

// Constructor returns the constructor of a class definition.
func (d *Definition) Constructor() *Definition {
	for _, m := range d.Members {
		if m.IsConstructor() {
			return m
		}
	}

	return nil
}

// Member returns the members of d named name.
func (d *Definition) Member(name string) []*Definition {
	var out []*Definition

	for _, m := range d.Members {
		if m.Name == name {
			out = append(out, m)
		}
	}

	return out
}

// MetadataNamed returns the metadata tags of d with the given name.
func (d *Definition) MetadataNamed(name string) []ast.Metadata {
	var out []ast.Metadata

	for _, m := range d.Metadata {
		if m.Name == name {
			out = append(out, m)
		}
	}

	return out
}

// Signature renders a one-line declaration for hovers and completion
// details.
func (d *Definition) Signature() string {
	var sb strings.Builder

	if d.Classification == ClassMember || d.Classification == ClassPackageMember {
		sb.WriteString(d.Visibility.String())
		sb.WriteString(" ")
	}

	if d.Static {
		sb.WriteString("static ")
	}

	if d.Override {
		sb.WriteString("override ")
	}

	switch d.Kind {
	case DefPackage:
		return "package " + d.QualifiedName
	case DefClass, DefInterface:
		sb.WriteString(d.Kind.String())
		sb.WriteString(" ")
		sb.WriteString(d.QualifiedName)

		if d.Base != "" {
			sb.WriteString(" extends ")
			sb.WriteString(d.Base)
		}

		return sb.String()
	case DefFunction, DefGetter, DefSetter:
		sb.WriteString("function ")

		if d.Kind == DefGetter {
			sb.WriteString("get ")
		} else if d.Kind == DefSetter {
			sb.WriteString("set ")
		}

		sb.WriteString(d.Name)
		sb.WriteString("(")

		for i, p := range d.Params {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(p.Name)

			if p.TypeName != "" {
				sb.WriteString(":")
				sb.WriteString(p.TypeName)
			}
		}

		sb.WriteString(")")
	case DefConstant:
		sb.WriteString("const ")
		sb.WriteString(d.Name)
	case DefEvent:
		return "[Event(name=\"" + d.Name + "\", type=\"" + d.TypeName + "\")]"
	case DefStyle:
		return "[Style(name=\"" + d.Name + "\", type=\"" + d.TypeName + "\")]"
	default:
		sb.WriteString("var ")
		sb.WriteString(d.Name)
	}

	if d.TypeName != "" {
		sb.WriteString(":")
		sb.WriteString(d.TypeName)
	}

	return sb.String()
}

// QualifiedJoin joins a package and a name.
func QualifiedJoin(pkg, name string) string {
	if pkg == "" {
		return name
	}

	return pkg + "." + name
}

// SplitQualified splits a qualified name into package and name.
func SplitQualified(qname string) (pkg, name string) {
	if i := strings.LastIndexByte(qname, '.'); i >= 0 {
		return qname[:i], qname[i+1:]
	}

	return "", qname
}
