package parser

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

// Parse parses a complete ActionScript file.
func Parse(src string) *ast.Tree {
	b := NewBuilder(src)
	b.File(0, len(src))

	return b.Finish()
}

// Builder assembles one tree out of several regions of a host document, as
// needed for MXML files where script blocks, event handlers and bindings are
// scattered between tags. All node offsets are absolute in the host text.
type Builder struct {
	tree *ast.Tree
}

// NewBuilder starts a tree over src with an empty File root spanning it.
func NewBuilder(src string) *Builder {
	t := ast.NewTree(src)
	t.Root = t.Add(ast.Blank(ast.KindFile, 0, len(src)))

	return &Builder{tree: t}
}

// Tree returns the tree under construction.
func (b *Builder) Tree() *ast.Tree { return b.tree }

// File parses src[start:end] as file-level directives and appends them to
// the root.
func (b *Builder) File(start, end int) {
	p := newParser(b.tree, start, end)
	items := p.directives(ctxFile)

	root := b.tree.Node(b.tree.Root)
	root.List = append(root.List, items...)
}

// Members parses src[start:end] as class members and appends them to the
// List of parent.
func (b *Builder) Members(parent ast.NodeID, start, end int) []ast.NodeID {
	p := newParser(b.tree, start, end)
	items := p.directives(ctxClass)

	if n := b.tree.Node(parent); n != nil {
		n.List = append(n.List, items...)
	}

	return items
}

// Statements parses src[start:end] as a statement list wrapped in a block
// node spanning the region.
func (b *Builder) Statements(start, end int) ast.NodeID {
	p := newParser(b.tree, start, end)
	id := b.tree.Add(ast.Blank(ast.KindBlock, start, end))
	items := p.directives(ctxBlock)
	b.tree.Node(id).List = items

	return id
}

// Expression parses src[start:end] as a single expression.
func (b *Builder) Expression(start, end int) ast.NodeID {
	p := newParser(b.tree, start, end)

	if p.eof() {
		return p.emptyIdent(start)
	}

	return p.expression(false)
}

// Add appends a synthesized node.
func (b *Builder) Add(n ast.Node) ast.NodeID { return b.tree.Add(n) }

// Finish links parents and orders tokens. The builder must not be used
// afterwards.
func (b *Builder) Finish() *ast.Tree {
	b.tree.SortTokens()
	b.tree.SetParents()

	return b.tree
}
