package frontend

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

func (p *Project) named(qname string) *semantic.Type {
	if d := p.FindQualified(qname); d != nil {
		return &semantic.Type{Def: d}
	}

	return nil
}

// DeclaredType implements semantic.Model.
func (p *Project) DeclaredType(def *semantic.Definition) *semantic.Type {
	if def == nil {
		return nil
	}

	switch def.Kind {
	case semantic.DefClass, semantic.DefInterface:
		return &semantic.Type{Def: def}
	case semantic.DefPackage:
		return nil
	case semantic.DefEvent:
		if def.TypeName == "" {
			return p.named("flash.events.Event")
		}

		return &semantic.Type{Def: p.ResolveTypeName(def.Unit, def.TypeName, def.Start)}
	}

	if def.Unit != nil && def.Unit.Tree != nil && def.TypeNode.Valid() {
		if t := p.typeFromRef(def.Unit, def.TypeNode); t != nil {
			return t
		}
	}

	if def.TypeName == "" {
		return nil
	}

	if d := p.ResolveTypeName(def.Unit, def.TypeName, def.Start); d != nil {
		return &semantic.Type{Def: d}
	}

	return nil
}

// typeFromRef resolves a type annotation including Vector type arguments.
func (p *Project) typeFromRef(u *semantic.Unit, id ast.NodeID) *semantic.Type {
	n := u.Tree.Node(id)
	if n == nil || n.Kind != ast.KindTypeRef {
		return nil
	}

	d := p.ResolveTypeName(u, n.Text, n.Start)
	if d == nil {
		return nil
	}

	t := &semantic.Type{Def: d}
	if len(n.List) > 0 {
		t.Element = p.typeFromRef(u, n.List[0])
	}

	return t
}

// TypeOf implements semantic.Model.
func (p *Project) TypeOf(u *semantic.Unit, id ast.NodeID) *semantic.Type {
	if u == nil || u.Tree == nil {
		return nil
	}

	n := u.Tree.Node(id)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case ast.KindIdentifier:
		return p.typeOfDefinition(p.Resolve(u, id))
	case ast.KindMemberAccess:
		if right := u.Tree.Node(n.Right); right != nil && right.Text != "" {
			return p.typeOfDefinition(p.Resolve(u, n.Right))
		}

		return nil
	case ast.KindThis:
		if cls := p.enclosingClass(u, id); cls != nil {
			return &semantic.Type{Def: cls}
		}
	case ast.KindSuper:
		if base := p.BaseClass(p.enclosingClass(u, id)); base != nil {
			return &semantic.Type{Def: base}
		}
	case ast.KindTypeRef:
		if t := p.typeFromRef(u, id); t != nil {
			t.Static = true
			return t
		}
	case ast.KindCall:
		return p.typeOfCall(u, n)
	case ast.KindNew:
		return p.typeOfNew(u, n)
	case ast.KindIndex:
		if t := p.TypeOf(u, n.Left); t != nil && t.Element != nil {
			return t.Element
		}
	case ast.KindLiteral:
		return p.typeOfLiteral(n)
	case ast.KindArrayLiteral:
		return p.named("Array")
	case ast.KindObjectLiteral:
		return p.named("Object")
	case ast.KindFunctionExpr:
		return p.named("Function")
	case ast.KindBinary:
		return p.typeOfBinary(u, n)
	case ast.KindAssign:
		return p.TypeOf(u, n.Left)
	case ast.KindConditional:
		if len(n.List) > 1 {
			return p.TypeOf(u, n.List[1])
		}
	case ast.KindUnary:
		switch n.Text {
		case "!", "delete":
			return p.named("Boolean")
		case "typeof":
			return p.named("String")
		case "void":
			return nil
		}

		return p.named("Number")
	}

	return nil
}

// typeOfDefinition is the type of an expression naming def: a class
// reference, or the declared type of a value.
func (p *Project) typeOfDefinition(def *semantic.Definition) *semantic.Type {
	if def == nil {
		return nil
	}

	switch {
	case def.Kind.IsType():
		return &semantic.Type{Def: def, Static: true}
	case def.Kind == semantic.DefFunction:
		return p.named("Function")
	}

	return p.DeclaredType(def)
}

func (p *Project) typeOfCall(u *semantic.Unit, n *ast.Node) *semantic.Type {
	callee := u.Tree.Node(n.Left)
	if callee == nil {
		return nil
	}

	var def *semantic.Definition

	switch callee.Kind {
	case ast.KindIdentifier:
		def = p.Resolve(u, n.Left)
	case ast.KindMemberAccess:
		def = p.Resolve(u, callee.Right)
	case ast.KindTypeRef:
		// Vector.<int>(array) converts.
		return p.typeFromRef(u, n.Left)
	case ast.KindSuper:
		return nil
	default:
		return nil
	}

	if def == nil {
		return nil
	}

	// Calling a class is a cast.
	if def.Kind.IsType() {
		return &semantic.Type{Def: def}
	}

	if def.Kind == semantic.DefFunction {
		return p.DeclaredType(def)
	}

	// Calling a Function-typed value yields nothing known.
	return nil
}

func (p *Project) typeOfNew(u *semantic.Unit, n *ast.Node) *semantic.Type {
	callee := u.Tree.Node(n.Left)
	if callee == nil {
		return nil
	}

	if callee.Kind == ast.KindTypeRef {
		t := p.typeFromRef(u, n.Left)
		if t == nil {
			return nil
		}

		// new <int>[] builds a vector of the element type.
		if callee.Text != "Vector" && len(n.List) > 0 {
			return &semantic.Type{Def: p.FindQualified("Vector"), Element: t}
		}

		return t
	}

	t := p.TypeOf(u, n.Left)
	if t == nil || t.Def == nil || !t.Def.Kind.IsType() {
		return nil
	}

	return &semantic.Type{Def: t.Def, Element: t.Element}
}

func (p *Project) typeOfLiteral(n *ast.Node) *semantic.Type {
	switch {
	case n.Flags.Has(ast.FlagString):
		return p.named("String")
	case n.Text == "true" || n.Text == "false":
		return p.named("Boolean")
	case n.Text == "null":
		return nil
	case n.Text == "xml":
		return p.named("XML")
	case strings.HasPrefix(n.Text, "/"):
		return p.named("RegExp")
	case n.Text != "" && (n.Text[0] >= '0' && n.Text[0] <= '9' || n.Text[0] == '.'):
		return p.named("Number")
	}

	return nil
}

func (p *Project) typeOfBinary(u *semantic.Unit, n *ast.Node) *semantic.Type {
	switch n.Text {
	case "as":
		right := u.Tree.Node(n.Right)
		if right == nil {
			return nil
		}

		return p.typeFromRef(u, n.Right)
	case "is", "instanceof", "in", "==", "!=", "===", "!==", "<", ">", "<=", ">=":
		return p.named("Boolean")
	case "&&", "||":
		return p.TypeOf(u, n.Left)
	case ",":
		return p.TypeOf(u, n.Right)
	case "+":
		left, right := p.TypeOf(u, n.Left), p.TypeOf(u, n.Right)
		if isString(left) || isString(right) {
			return p.named("String")
		}
	}

	return p.named("Number")
}

func isString(t *semantic.Type) bool {
	return t != nil && t.Def != nil && t.Def.QualifiedName == "String"
}
