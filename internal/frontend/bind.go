package frontend

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// binder turns the declarations of one tree into definitions and scopes.
type binder struct {
	unit *semantic.Unit
	tree *ast.Tree
}

// bind declares everything in u.Tree. It expects u.Package to be preset for
// markup units, whose trees carry no package block.
func bind(u *semantic.Unit) {
	b := &binder{unit: u, tree: u.Tree}

	u.FileScope = semantic.NewScope(semantic.ScopeFile, nil, 0, len(u.Source))
	u.FileScope.Unit = u
	u.ImportAnchor = -1

	root := b.tree.Node(b.tree.Root)
	if root == nil {
		return
	}

	for _, id := range root.List {
		b.fileItem(id)
	}

	b.primary()
}

func (b *binder) fileItem(id ast.NodeID) {
	n := b.tree.Node(id)

	switch n.Kind {
	case ast.KindPackage:
		b.unit.Package = n.Text

		if n.Flags.Has(ast.FlagSynthetic) {
			// Markup units place imports in their first script block.
		} else if brace := strings.IndexByte(b.tree.Source[n.Start:min(n.End, len(b.tree.Source))], '{'); brace >= 0 {
			b.unit.ImportAnchor = n.Start + brace + 1
		}

		for _, m := range n.List {
			b.packageItem(m, semantic.ClassPackageMember)
		}
	default:
		b.packageItem(id, semantic.ClassFileMember)
	}
}

func (b *binder) packageItem(id ast.NodeID, class semantic.Classification) {
	n := b.tree.Node(id)

	switch n.Kind {
	case ast.KindImport:
		b.unit.Imports = append(b.unit.Imports, semantic.Import{Path: n.Text, Start: n.Start, End: n.End, Node: id})
	case ast.KindClass, ast.KindInterface:
		b.typeDecl(id, class)
	case ast.KindFunction:
		d := b.function(id, b.unit.FileScope, nil, class)
		d.QualifiedName = b.qualify(d.Name, class)
	case ast.KindVariable:
		d := b.variable(id, b.unit.FileScope, nil, class)
		d.QualifiedName = b.qualify(d.Name, class)
	default:
		// File-level statements: their locals live in the file scope.
		b.locals(id, b.unit.FileScope, nil)
	}
}

func (b *binder) qualify(name string, class semantic.Classification) string {
	if class != semantic.ClassPackageMember {
		return name
	}

	return semantic.QualifiedJoin(b.unit.Package, name)
}

// primary picks the type named after the file.
func (b *binder) primary() {
	base := strings.TrimSuffix(filepath.Base(b.unit.Path), filepath.Ext(b.unit.Path))

	for _, d := range b.unit.FileScope.Defs {
		if d.Name == base && d.Classification == semantic.ClassPackageMember {
			b.unit.Primary = d
			return
		}
	}
}

func (b *binder) newDef(id ast.NodeID, kind semantic.DefKind) *semantic.Definition {
	n := b.tree.Node(id)

	d := &semantic.Definition{
		Kind:      kind,
		Unit:      b.unit,
		Node:      id,
		Start:     n.Start,
		End:       n.End,
		Package:   b.unit.Package,
		Metadata:  n.Meta,
		Doc:       n.Doc,
		TypeNode:  n.Type,
		Static:    n.Flags.Has(ast.FlagStatic),
		Override:  n.Flags.Has(ast.FlagOverride),
		Final:     n.Flags.Has(ast.FlagFinal),
		Dynamic:   n.Flags.Has(ast.FlagDynamic),
		Synthetic: n.Flags.Has(ast.FlagSynthetic),
	}

	if name := b.tree.Node(n.Name); name != nil {
		d.Name = name.Text
		d.NameStart = name.Start
		d.NameEnd = name.End
		d.Synthetic = d.Synthetic || name.Flags.Has(ast.FlagSynthetic)
	}

	if t := b.tree.Node(n.Type); t != nil {
		d.TypeName = t.Text
	}

	switch {
	case n.Flags.Has(ast.FlagPublic):
		d.Visibility = semantic.Public
	case n.Flags.Has(ast.FlagPrivate):
		d.Visibility = semantic.Private
	case n.Flags.Has(ast.FlagProtected):
		d.Visibility = semantic.Protected
	default:
		d.Visibility = semantic.Internal
	}

	b.unit.Register(d)

	return d
}

func (b *binder) typeDecl(id ast.NodeID, class semantic.Classification) *semantic.Definition {
	n := b.tree.Node(id)

	kind := semantic.DefClass
	memberClass := semantic.ClassMember

	if n.Kind == ast.KindInterface {
		kind = semantic.DefInterface
		memberClass = semantic.ClassInterfaceMember
	}

	d := b.newDef(id, kind)
	d.Classification = class
	d.QualifiedName = b.qualify(d.Name, class)

	if base := b.tree.Node(n.Left); base != nil {
		d.Base = base.Text
	}

	for _, i := range n.Extra {
		if t := b.tree.Node(i); t != nil && t.Text != "" {
			d.Interfaces = append(d.Interfaces, t.Text)
		}
	}

	b.unit.FileScope.Declare(d)

	d.Scope = semantic.NewScope(semantic.ScopeType, b.unit.FileScope, n.Start, n.End)
	d.Scope.Owner = d

	for _, m := range n.List {
		var member *semantic.Definition

		switch b.tree.Kind(m) {
		case ast.KindFunction:
			member = b.function(m, d.Scope, d, memberClass)
		case ast.KindVariable:
			member = b.variable(m, d.Scope, d, memberClass)
		default:
			continue
		}

		if kind == semantic.DefInterface {
			member.Visibility = semantic.Public
		}

		d.Members = append(d.Members, member)
	}

	b.metadataMembers(d)

	return d
}

// metadataMembers declares the [Event] and [Style] metadata of a class as
// members of kind event and style.
func (b *binder) metadataMembers(d *semantic.Definition) {
	for _, md := range d.Metadata {
		var kind semantic.DefKind

		switch md.Name {
		case "Event":
			kind = semantic.DefEvent
		case "Style":
			kind = semantic.DefStyle
		default:
			continue
		}

		name, ok := md.Arg("name")
		if !ok || name == "" {
			continue
		}

		typ, _ := md.Arg("type")

		m := &semantic.Definition{
			Name:           name,
			QualifiedName:  d.QualifiedName + "." + name,
			Package:        d.Package,
			Kind:           kind,
			Visibility:     semantic.Public,
			Classification: semantic.ClassMember,
			Unit:           b.unit,
			Owner:          d,
			Node:           ast.NoNode,
			TypeNode:       ast.NoNode,
			TypeName:       typ,
			Start:          md.Start,
			End:            md.End,
			Metadata:       []ast.Metadata{md},
		}

		for _, a := range md.Args {
			if a.Key == "name" {
				m.NameStart, m.NameEnd = a.ValueStart, a.ValueEnd
			}
		}

		b.unit.Register(m)
		d.Members = append(d.Members, m)
	}
}

func (b *binder) function(id ast.NodeID, scope *semantic.Scope, owner *semantic.Definition, class semantic.Classification) *semantic.Definition {
	n := b.tree.Node(id)

	kind := semantic.DefFunction

	switch {
	case n.Flags.Has(ast.FlagGetter):
		kind = semantic.DefGetter
	case n.Flags.Has(ast.FlagSetter):
		kind = semantic.DefSetter
	}

	d := b.newDef(id, kind)
	d.Owner = owner
	d.Classification = class

	if owner != nil {
		d.QualifiedName = owner.QualifiedName + "." + d.Name
		d.Package = owner.Package
	} else {
		d.QualifiedName = d.Name
	}

	if d.Name != "" {
		scope.Declare(d)
	}

	b.functionBody(id, d, scope)

	// A setter is typed by its parameter.
	if kind == semantic.DefSetter && len(d.Params) > 0 {
		d.TypeName = d.Params[0].TypeName
		d.TypeNode = d.Params[0].TypeNode
	}

	return d
}

// functionBody opens the scope of a function declaration or expression and
// declares its parameters and locals.
func (b *binder) functionBody(id ast.NodeID, d *semantic.Definition, outer *semantic.Scope) *semantic.Scope {
	n := b.tree.Node(id)

	fs := semantic.NewScope(semantic.ScopeFunction, outer, n.Start, n.End)
	fs.Owner = d

	if d != nil {
		d.Scope = fs
	}

	for _, p := range n.List {
		param := b.newDef(p, semantic.DefParameter)
		param.Classification = semantic.ClassParameter
		param.Owner = d
		param.QualifiedName = param.Name

		if param.Name != "" {
			fs.Declare(param)
		}

		if d != nil {
			d.Params = append(d.Params, param)
		}
	}

	b.locals(n.Body, fs, d)

	return fs
}

func (b *binder) variable(id ast.NodeID, scope *semantic.Scope, owner *semantic.Definition, class semantic.Classification) *semantic.Definition {
	n := b.tree.Node(id)

	kind := semantic.DefVariable
	if n.Flags.Has(ast.FlagConst) {
		kind = semantic.DefConstant
	}

	d := b.newDef(id, kind)
	d.Owner = owner
	d.Classification = class

	if owner != nil && class != semantic.ClassLocal {
		d.QualifiedName = owner.QualifiedName + "." + d.Name
		d.Package = owner.Package
	} else {
		d.QualifiedName = d.Name
	}

	if d.Name != "" {
		scope.Declare(d)
	}

	b.locals(n.Right, scope, owner)

	return d
}

// locals walks statements and expressions under id. Variables are hoisted
// to the enclosing function scope; nested functions open their own scopes.
func (b *binder) locals(id ast.NodeID, scope *semantic.Scope, owner *semantic.Definition) {
	n := b.tree.Node(id)
	if n == nil {
		return
	}

	switch n.Kind {
	case ast.KindVariable:
		b.variable(id, scope, owner, semantic.ClassLocal)
		return
	case ast.KindFunction:
		d := b.function(id, scope, owner, semantic.ClassLocal)
		d.QualifiedName = d.Name

		return
	case ast.KindFunctionExpr:
		var d *semantic.Definition

		fs := b.functionBody(id, nil, scope)

		if n.Name.Valid() {
			d = b.newDef(id, semantic.DefFunction)
			d.Classification = semantic.ClassLocal
			d.QualifiedName = d.Name
			d.Scope = fs
			fs.Owner = d
			fs.Declare(d)

			for _, p := range fs.Defs {
				if p.Kind == semantic.DefParameter {
					p.Owner = d
					d.Params = append(d.Params, p)
				}
			}
		}

		return
	case ast.KindCatch:
		if param := b.tree.Node(n.Left); param != nil {
			d := b.newDef(n.Left, semantic.DefParameter)
			d.Classification = semantic.ClassLocal
			d.QualifiedName = d.Name
			d.Owner = owner

			if d.Name != "" {
				scope.Declare(d)
			}
		}

		b.locals(n.Body, scope, owner)

		return
	}

	for _, c := range b.tree.Children(id) {
		b.locals(c, scope, owner)
	}
}
