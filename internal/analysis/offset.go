// Package analysis is the editor intelligence core: it maps cursor
// positions to syntax, classifies the completion context, walks scopes,
// ranks candidates, and locates definitions and references across the
// project. It reads the compiler frontend only through semantic.Model.
package analysis

import (
	"github.com/tliron/commonlog"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

var log = commonlog.GetLogger("as3-lsp.analysis")

// Position is a cursor resolved against the current text of a document.
type Position struct {
	Unit   *semantic.Unit
	Offset int
	Text   string

	// Node is the innermost script node at the offset. For markup units it
	// is set only inside script blocks, event handlers and bindings.
	Node ast.NodeID

	// Tag and Attr locate the offset in the tag tree of markup units.
	Tag  *mxml.Tag
	Attr *mxml.Attr

	// Sheet is set inside stylesheets.
	Sheet *css.Sheet

	// Comment is set inside comments.
	Comment *ast.Comment
}

// Tree returns the script tree of the unit.
func (p *Position) Tree() *ast.Tree { return p.Unit.Tree }

// InScript reports whether the offset resolved into script code.
func (p *Position) InScript() bool { return p.Node.Valid() }

// ResolveOffset converts a zero-based line and UTF-16 character in uri to a
// Position. It returns nil when the document is unknown or the position lies
// outside the text.
func ResolveOffset(m semantic.Model, uri string, line, character int) *Position {
	u := m.Unit(uri)
	if u == nil {
		return nil
	}

	text, ok := m.DocumentText(uri)
	if !ok {
		text = u.Source
	}

	offset, err := document.PositionToOffset(text, line, character)
	if err != nil {
		log.Debugf("%s: %s", uri, err)
		return nil
	}

	return ResolveAt(u, offset)
}

// ResolveAt resolves an absolute offset into u.
func ResolveAt(u *semantic.Unit, offset int) *Position {
	if u == nil || offset < 0 || offset > len(u.Source) {
		return nil
	}

	pos := &Position{Unit: u, Offset: offset, Text: u.Source, Node: ast.NoNode}

	switch u.Kind {
	case document.KindScript:
		pos.Node = u.Tree.Innermost(offset)
		pos.Comment = u.Tree.CommentAt(offset)
	case document.KindStyle:
		pos.Sheet = u.StyleAt(offset)
	case document.KindMarkup:
		resolveMarkup(pos)
	}

	return pos
}

// resolveMarkup locates the tag and attribute under the offset and descends
// into embedded code. Tag ranges are half-open, so an offset on the '<' of
// a tag belongs to that tag and an offset on the '>' of an end tag does not.
func resolveMarkup(pos *Position) {
	u := pos.Unit
	if u.Markup == nil {
		return
	}

	pos.Tag = u.Markup.TagAt(pos.Offset)
	if pos.Tag == nil {
		return
	}

	if pos.Tag.InStartTag(pos.Offset) {
		pos.Attr = pos.Tag.AttrAt(pos.Offset)
	}

	switch {
	case pos.Tag.IsStyle():
		if r := pos.Tag.EmbeddedRegion(); r.Contains(pos.Offset) && !pos.Tag.InStartTag(pos.Offset) {
			pos.Sheet = u.StyleAt(pos.Offset)
		}

		return
	case pos.Tag.IsScript():
		r := pos.Tag.EmbeddedRegion()
		if r.Empty() || !r.Contains(pos.Offset) || pos.Tag.InStartTag(pos.Offset) {
			return
		}
	case pos.Attr == nil || !pos.Attr.InValue(pos.Offset):
		return
	}

	id := u.Tree.Innermost(pos.Offset)

	// Outside script blocks only nodes synthesized from handlers, bindings
	// and id attributes count; the class spanning the file does not.
	if !pos.Tag.IsScript() && isMarkupShell(u.Tree, id) {
		return
	}

	pos.Node = id
	pos.Comment = u.Tree.CommentAt(pos.Offset)
}

func isMarkupShell(tree *ast.Tree, id ast.NodeID) bool {
	n := tree.Node(id)
	if n == nil {
		return true
	}

	switch n.Kind {
	case ast.KindFile, ast.KindPackage:
		return true
	case ast.KindClass:
		return n.Flags.Has(ast.FlagSynthetic)
	}

	return false
}
