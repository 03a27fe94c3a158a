package frontend

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// maxAncestry bounds base class walks so that cyclic extends clauses in
// broken code terminate.
const maxAncestry = 64

// ScopeChain implements semantic.Model.
func (p *Project) ScopeChain(u *semantic.Unit, offset int) []*semantic.Scope {
	s := u.ScopeAt(offset)
	if s == nil {
		return nil
	}

	return s.Chain()
}

// VisibleDefinitions implements semantic.Model.
func (p *Project) VisibleDefinitions(s *semantic.Scope) []*semantic.Definition {
	switch {
	case s.Kind == semantic.ScopeType && s.Owner != nil:
		return p.AllMembers(s.Owner)
	case s.Kind == semantic.ScopePackage && s.Whole:
		var out []*semantic.Definition

		for _, d := range p.byPackage[s.Package] {
			if d.Visibility == semantic.Public || s.Unit != nil && d.Package == s.Unit.Package {
				out = append(out, d)
			}
		}

		return out
	case s.Kind == semantic.ScopePackage:
		var out []*semantic.Definition

		for _, q := range s.Qualified {
			if d := p.FindQualified(q); d != nil {
				out = append(out, d)
			}
		}

		return out
	}

	return s.Defs
}

// lookup finds name in the chain starting at s.
func (p *Project) lookup(s *semantic.Scope, name string) *semantic.Definition {
	for cur := s; cur != nil; cur = cur.Parent {
		if d := p.lookupIn(cur, name); d != nil {
			return d
		}
	}

	return nil
}

// lookupIn finds name among the definitions s contributes, ignoring its
// parents.
func (p *Project) lookupIn(s *semantic.Scope, name string) *semantic.Definition {
	switch {
	case s.Kind == semantic.ScopeType && s.Owner != nil:
		return p.Member(s.Owner, name)
	case s.Kind == semantic.ScopePackage && s.Whole:
		d := p.FindQualified(semantic.QualifiedJoin(s.Package, name))
		if d != nil && (d.Visibility == semantic.Public || s.Unit != nil && d.Package == s.Unit.Package) {
			return d
		}
	case s.Kind == semantic.ScopePackage:
		for _, q := range s.Qualified {
			if _, n := semantic.SplitQualified(q); n == name {
				if d := p.FindQualified(q); d != nil {
					return d
				}
			}
		}
	default:
		if defs := s.Lookup(name); len(defs) > 0 {
			return defs[0]
		}
	}

	return nil
}

// ResolveTypeName implements semantic.Model.
func (p *Project) ResolveTypeName(u *semantic.Unit, name string, offset int) *semantic.Definition {
	if name == "" || name == "*" || name == "void" {
		return nil
	}

	if strings.Contains(name, ".") {
		return p.FindQualified(name)
	}

	if u == nil || u.FileScope == nil {
		return p.FindQualified(name)
	}

	for cur := u.FileScope; cur != nil; cur = cur.Parent {
		if cur.Kind == semantic.ScopeFile {
			for _, d := range cur.Lookup(name) {
				if d.Kind.IsType() {
					return d
				}
			}

			continue
		}

		if d := p.lookupIn(cur, name); d != nil && d.Kind.IsType() {
			return d
		}
	}

	return nil
}

// Resolve implements semantic.Model.
func (p *Project) Resolve(u *semantic.Unit, id ast.NodeID) *semantic.Definition {
	if u == nil || u.Tree == nil {
		return nil
	}

	tree := u.Tree

	n := tree.Node(id)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case ast.KindTypeRef:
		return p.resolveTypeRef(u, id)
	case ast.KindThis:
		return p.enclosingClass(u, id)
	case ast.KindSuper:
		return p.BaseClass(p.enclosingClass(u, id))
	case ast.KindClass, ast.KindInterface, ast.KindFunction, ast.KindVariable, ast.KindParameter, ast.KindFunctionExpr:
		return u.DefinitionAt(id)
	case ast.KindImport:
		return p.FindQualified(n.Text)
	case ast.KindIdentifier:
	default:
		return nil
	}

	parentID := n.Parent
	parent := tree.Node(parentID)

	if parent == nil {
		return nil
	}

	switch parent.Kind {
	case ast.KindClass, ast.KindInterface, ast.KindFunction, ast.KindVariable, ast.KindParameter, ast.KindFunctionExpr:
		if parent.Name == id {
			return u.DefinitionAt(parentID)
		}
	case ast.KindPackage:
		return nil
	case ast.KindImport:
		return p.FindQualified(parent.Text)
	case ast.KindTypeRef:
		return p.resolveTypeRef(u, parentID)
	case ast.KindMemberAccess:
		if parent.Right == id {
			return p.resolveMember(u, parent)
		}
	}

	if n.Text == "" {
		return nil
	}

	return p.lookup(u.ScopeAt(n.Start), n.Text)
}

func (p *Project) resolveTypeRef(u *semantic.Unit, id ast.NodeID) *semantic.Definition {
	n := u.Tree.Node(id)
	if n == nil {
		return nil
	}

	return p.ResolveTypeName(u, n.Text, n.Start)
}

// resolveMember resolves the right side of a member access.
func (p *Project) resolveMember(u *semantic.Unit, access *ast.Node) *semantic.Definition {
	name := u.Tree.Node(access.Right).Text
	if name == "" {
		return nil
	}

	if t := p.TypeOf(u, access.Left); t != nil && t.Def != nil {
		if d := p.Member(t.Def, name); d != nil {
			return d
		}

		return nil
	}

	// A package prefix: flash.display.Sprite written inline.
	if prefix := dottedText(u.Tree, access.Left); prefix != "" {
		return p.FindQualified(prefix + "." + name)
	}

	return nil
}

// dottedText renders an identifier chain a.b.c, or "" for anything else.
func dottedText(tree *ast.Tree, id ast.NodeID) string {
	n := tree.Node(id)
	if n == nil {
		return ""
	}

	switch n.Kind {
	case ast.KindIdentifier:
		return n.Text
	case ast.KindMemberAccess:
		left := dottedText(tree, n.Left)
		right := tree.Node(n.Right)

		if left == "" || right == nil || right.Text == "" {
			return ""
		}

		return left + "." + right.Text
	}

	return ""
}

// enclosingClass returns the class or interface containing node id.
func (p *Project) enclosingClass(u *semantic.Unit, id ast.NodeID) *semantic.Definition {
	cls := u.Tree.Enclosing(id, ast.KindClass, ast.KindInterface)
	if !cls.Valid() {
		return nil
	}

	return u.DefinitionAt(cls)
}

// BaseClass implements semantic.Model. Classes without an extends clause
// derive from Object.
func (p *Project) BaseClass(def *semantic.Definition) *semantic.Definition {
	if def == nil || def.Kind != semantic.DefClass {
		return nil
	}

	if def.Base == "" {
		if def.QualifiedName == "Object" {
			return nil
		}

		return p.FindQualified("Object")
	}

	base := p.ResolveTypeName(def.Unit, def.Base, def.Start)
	if base == def {
		return nil
	}

	return base
}

// Interfaces implements semantic.Model.
func (p *Project) Interfaces(def *semantic.Definition) []*semantic.Definition {
	if def == nil {
		return nil
	}

	names := def.Interfaces
	if def.Kind == semantic.DefInterface && def.Base != "" {
		names = append([]string{def.Base}, names...)
	}

	var out []*semantic.Definition

	for _, name := range names {
		if d := p.ResolveTypeName(def.Unit, name, def.Start); d != nil && d != def {
			out = append(out, d)
		}
	}

	return out
}

// ancestors returns def followed by its base classes and then every
// interface reachable from them, each once.
func (p *Project) ancestors(def *semantic.Definition) []*semantic.Definition {
	var out []*semantic.Definition

	seen := make(map[*semantic.Definition]bool)

	var queue []*semantic.Definition

	for cur := def; cur != nil && len(out) < maxAncestry; cur = p.BaseClass(cur) {
		if seen[cur] {
			break
		}

		seen[cur] = true
		out = append(out, cur)
		queue = append(queue, cur)
	}

	for i := 0; i < len(queue) && len(out) < maxAncestry; i++ {
		for _, iface := range p.Interfaces(queue[i]) {
			if !seen[iface] {
				seen[iface] = true
				out = append(out, iface)
				queue = append(queue, iface)
			}
		}
	}

	return out
}

// Member implements semantic.Model.
func (p *Project) Member(typ *semantic.Definition, name string) *semantic.Definition {
	for _, t := range p.ancestors(typ) {
		for _, m := range t.Members {
			if m.Name == name && m.Kind != semantic.DefEvent && m.Kind != semantic.DefStyle {
				return m
			}
		}
	}

	return nil
}

// AllMembers implements semantic.Model.
func (p *Project) AllMembers(typ *semantic.Definition) []*semantic.Definition {
	var out []*semantic.Definition

	for _, t := range p.ancestors(typ) {
		for _, m := range t.Members {
			if m.Kind != semantic.DefEvent && m.Kind != semantic.DefStyle {
				out = append(out, m)
			}
		}
	}

	return out
}

// Metadata implements semantic.Model.
func (p *Project) Metadata(typ *semantic.Definition, kind semantic.DefKind) []*semantic.Definition {
	var out []*semantic.Definition

	for _, t := range p.ancestors(typ) {
		for _, m := range t.Members {
			if m.Kind == kind {
				out = append(out, m)
			}
		}
	}

	return out
}

// Overridden implements semantic.Model.
func (p *Project) Overridden(def *semantic.Definition) *semantic.Definition {
	if def == nil || !def.Kind.IsFunction() || def.Owner == nil || def.Static {
		return nil
	}

	chain := p.ancestors(def.Owner)

	var fallback *semantic.Definition

	for _, t := range chain[1:] {
		if t.Kind != semantic.DefClass {
			continue
		}

		for _, m := range t.Members {
			if m.Name != def.Name || m.Static || !m.Kind.IsFunction() {
				continue
			}

			if m.Kind == def.Kind {
				return m
			}

			if fallback == nil {
				fallback = m
			}
		}

		if fallback != nil {
			return fallback
		}
	}

	return nil
}

// TagClass implements semantic.Model.
func (p *Project) TagClass(u *semantic.Unit, t *mxml.Tag) *semantic.Definition {
	if t == nil {
		return nil
	}

	qname := p.tagClassName(t)
	if qname == "" {
		return nil
	}

	return p.FindQualified(qname)
}
