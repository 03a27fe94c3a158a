package analysis

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// Target is what the name under the cursor denotes.
type Target struct {
	// Def is the resolved definition. For package names it is a package
	// definition that exists only for this request.
	Def *semantic.Definition
	// File is set when the cursor is on a source attribute naming a file.
	File string
	// Start and End delimit the name under the cursor.
	Start int
	End   int
	// NewCallee is set when the name is the class of a new expression.
	NewCallee bool
}

// ResolveTarget resolves the name under pos. It returns nil when nothing
// nameable is there.
func ResolveTarget(m semantic.Model, pos *Position) *Target {
	if pos == nil {
		return nil
	}

	switch {
	case pos.Comment != nil:
		return resolveDocTarget(m, pos)
	case pos.Sheet != nil:
		return resolveStyleTarget(m, pos)
	case pos.InScript():
		return resolveScriptTarget(m, pos)
	case pos.Tag != nil:
		return resolveMarkupTarget(m, pos)
	}

	return nil
}

func resolveScriptTarget(m semantic.Model, pos *Position) *Target {
	u := pos.Unit
	tree := u.Tree
	id := pos.Node
	n := tree.Node(id)

	switch n.Kind {
	case ast.KindThis, ast.KindSuper:
		if d := m.Resolve(u, id); d != nil {
			return &Target{Def: d, Start: n.Start, End: n.End}
		}

		return nil
	case ast.KindTypeRef:
		// Earlier segments of a dotted type name are not children of the
		// reference; the cursor lands on the reference itself.
		return resolveDotted(m, u, n.Text, n.Start, pos.Offset, func() *semantic.Definition {
			return m.Resolve(u, id)
		})
	case ast.KindIdentifier:
	default:
		return nil
	}

	if n.Flags.Has(ast.FlagSynthetic) || n.Text == "" {
		return nil
	}

	parent := tree.Node(n.Parent)

	if parent != nil {
		switch parent.Kind {
		case ast.KindPackage:
			return resolveDotted(m, u, n.Text, n.Start, pos.Offset, func() *semantic.Definition { return nil })
		case ast.KindImport:
			return resolveDotted(m, u, n.Text, n.Start, pos.Offset, func() *semantic.Definition {
				return m.FindQualified(parent.Text)
			})
		}
	}

	t := &Target{Start: n.Start, End: n.End, Def: m.Resolve(u, id)}

	if parent != nil && parent.Kind == ast.KindNew && parent.Left == id {
		t.NewCallee = true
	}

	if t.Def == nil {
		// A package prefix written inline: the "display" of
		// flash.display.Sprite.
		if q := packagePrefixAt(tree, id); q != "" && isPackage(m, q) {
			t.Def = packageDefinition(q)
		}
	}

	if t.Def == nil {
		return nil
	}

	return t
}

// packagePrefixAt renders the dotted chain ending at identifier id when
// it is the right side of a member access or a lone identifier.
func packagePrefixAt(tree *ast.Tree, id ast.NodeID) string {
	parentID := tree.Parent(id)

	parent := tree.Node(parentID)
	if parent != nil && parent.Kind == ast.KindMemberAccess && parent.Right == id {
		return dottedName(tree, parentID)
	}

	return dottedName(tree, id)
}

// resolveDotted handles the cursor on a dotted name "a.b.C": the last
// segment resolves through last, earlier segments name packages.
func resolveDotted(m semantic.Model, u *semantic.Unit, text string, start, offset int, last func() *semantic.Definition) *Target {
	rel := offset - start
	if rel < 0 || rel > len(text) {
		return nil
	}

	segStart := strings.LastIndexByte(text[:rel], '.') + 1

	segEnd := len(text)
	if i := strings.IndexByte(text[rel:], '.'); i >= 0 {
		segEnd = rel + i
	}

	t := &Target{Start: start + segStart, End: start + segEnd}

	if segEnd == len(text) {
		if text[segStart:] == "*" {
			t.Def = packageDefinition(text[:max(0, segStart-1)])
			return t
		}

		if d := last(); d != nil {
			t.Def = d
			return t
		}
	}

	pkg := text[:segEnd]
	if !isPackage(m, pkg) && u.Package != pkg {
		return nil
	}

	t.Def = packageDefinition(pkg)

	return t
}

// packageDefinition returns a definition standing for a package name.
func packageDefinition(name string) *semantic.Definition {
	_, short := semantic.SplitQualified(name)

	return &semantic.Definition{
		Name:          short,
		QualifiedName: name,
		Package:       name,
		Kind:          semantic.DefPackage,
		Visibility:    semantic.Public,
		Node:          ast.NoNode,
		TypeNode:      ast.NoNode,
	}
}

func resolveMarkupTarget(m semantic.Model, pos *Position) *Target {
	u := pos.Unit
	tag := pos.Tag

	if tag.InName(pos.Offset) {
		if tag.IsLanguageTag() {
			return nil
		}

		start, end := tagNameRange(tag)
		if cs, ce, ok := closeNameRange(tag); ok && tag.CloseName.Contains(pos.Offset) {
			start, end = cs, ce
		}

		if d := tagTarget(m, u, tag); d != nil {
			return &Target{Def: d, Start: start, End: end}
		}

		return nil
	}

	a := pos.Attr
	if a == nil {
		return nil
	}

	if path, ok := sourceAttrPath(u, tag, a); ok && a.InValue(pos.Offset) {
		return &Target{File: path, Start: a.ValueStart, End: a.ValueEnd}
	}

	if !a.InName(pos.Offset) {
		return nil
	}

	if d := attrTarget(m, u, tag, a); d != nil {
		start, end := attrNameRange(a)
		return &Target{Def: d, Start: start, End: end}
	}

	return nil
}

func resolveStyleTarget(m semantic.Model, pos *Position) *Target {
	sheet := pos.Sheet
	loc := sheet.At(pos.Offset)

	switch {
	case loc.Kind == css.LocSelector && loc.Type != nil:
		if cls := selectorClass(m, sheet, loc.Type); cls != nil {
			return &Target{Def: cls, Start: loc.Type.Start, End: loc.Type.End}
		}
	case loc.Kind == css.LocProperty && loc.Declaration != nil:
		d := loc.Declaration
		if style := styleNamed(m, ruleClass(m, sheet, loc.Rule), d.Property); style != nil {
			return &Target{Def: style, Start: d.PropStart, End: d.PropEnd}
		}
	}

	return nil
}

// resolveDocTarget resolves "@see Type#member" references in doc comments.
func resolveDocTarget(m semantic.Model, pos *Position) *Target {
	tag, inName := pos.Comment.TagAt(pos.Offset)
	if tag == nil || inName || tag.Name != "see" && tag.Name != "copy" {
		return nil
	}

	ref := tag.Value
	if i := strings.IndexAny(ref, " \t"); i >= 0 {
		ref = ref[:i]
	}

	if pos.Offset > tag.ValueStart+len(ref) {
		return nil
	}

	typeName, member, hasMember := strings.Cut(ref, "#")

	var typ *semantic.Definition
	if typeName == "" {
		typ = enclosingType(pos)
	} else {
		typ = m.ResolveTypeName(pos.Unit, typeName, pos.Offset)
	}

	if typ == nil {
		return nil
	}

	if !hasMember || pos.Offset <= tag.ValueStart+len(typeName) {
		return &Target{Def: typ, Start: tag.ValueStart, End: tag.ValueStart + len(typeName)}
	}

	member = strings.TrimSuffix(member, "()")
	if d := m.Member(typ, member); d != nil {
		start := tag.ValueStart + len(typeName) + 1
		return &Target{Def: d, Start: start, End: start + len(member)}
	}

	return nil
}

// enclosingType is the class a doc comment is attached to or inside of.
func enclosingType(pos *Position) *semantic.Definition {
	u := pos.Unit

	for _, d := range u.Definitions {
		if d.Kind.IsType() && d.Start <= pos.Offset && pos.Offset <= d.End {
			return d
		}
	}

	for _, d := range u.Definitions {
		if d.Kind.IsType() && d.Doc == pos.Comment {
			return d
		}
	}

	return nil
}

// FindDefinition returns the declaration locations of the name at pos.
// The class named by a new expression redirects to its constructor.
func FindDefinition(m semantic.Model, pos *Position) []protocol.Location {
	locations := []protocol.Location{}

	t := ResolveTarget(m, pos)
	if t == nil {
		return locations
	}

	if t.File != "" {
		return append(locations, protocol.Location{URI: document.PathToURI(t.File)})
	}

	d := t.Def

	if t.NewCallee && d.Kind == semantic.DefClass {
		if ctor := d.Constructor(); ctor != nil {
			d = ctor
		}
	}

	if d.Kind == semantic.DefPackage {
		return locations
	}

	if loc, ok := DefinitionLocation(m, d); ok {
		locations = append(locations, loc)
	}

	return locations
}

// DefinitionLocation returns the name range of d in its unit. Definitions
// of builtin and archive units have no navigable location.
func DefinitionLocation(m semantic.Model, d *semantic.Definition) (protocol.Location, bool) {
	if d == nil || !navigable(d.Unit) {
		return protocol.Location{}, false
	}

	text, ok := m.DocumentText(d.Unit.URI)
	if !ok || text != d.Unit.Source {
		text = d.Unit.Source
	}

	start, end := d.NameStart, d.NameEnd
	if d.Synthetic && d.Kind.IsType() {
		// A component class is declared by its file.
		start, end = 0, 0
	} else if end <= start {
		start, end = d.Start, d.Start
	}

	return protocol.Location{URI: d.Unit.URI, Range: document.OffsetRange(text, start, end)}, true
}
