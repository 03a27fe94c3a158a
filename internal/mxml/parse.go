package mxml

import (
	"strings"

	"github.com/tliron/commonlog"
	tree_sitter_xml "github.com/tree-sitter-grammars/tree-sitter-xml/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var log = commonlog.GetLogger("as3-lsp.mxml")

func newParser() (*tree_sitter.Parser, error) {
	parser := tree_sitter.NewParser()
	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_xml.LanguageXML())); err != nil {
		parser.Close()
		return nil, err
	}

	return parser, nil
}

// Parse builds the tag tree of src. Well-formed documents are parsed with
// tree-sitter; documents with syntax errors fall back to the lenient
// scanner so that the tag under the cursor is still available while typing.
func Parse(src string) *Document {
	parser, err := newParser()
	if err != nil {
		log.Errorf("xml parser unavailable: %s", err)
		return scan(src)
	}
	defer parser.Close()

	content := []byte(src)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return scan(src)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return scan(src)
	}

	b := &treeBuilder{doc: &Document{Source: src}, src: content}
	b.visit(root, nil)
	b.doc.link()

	return b.doc
}

type treeBuilder struct {
	doc *Document
	src []byte
}

func (b *treeBuilder) visit(node *tree_sitter.Node, parent *Tag) {
	if node.Kind() == "element" {
		b.element(node, parent)
		return
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		b.visit(node.Child(i), parent)
	}
}

func (b *treeBuilder) element(node *tree_sitter.Node, parent *Tag) {
	t := &Tag{
		Start:          int(node.StartByte()),
		End:            int(node.EndByte()),
		Parent:         parent,
		Closed:         true,
		StartTagClosed: true,
	}

	b.doc.Tags = append(b.doc.Tags, t)

	if parent != nil {
		parent.Children = append(parent.Children, t)
	} else if b.doc.Root == nil {
		b.doc.Root = t
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "STag", "EmptyElemTag":
			b.startTag(t, child)
			t.SelfClosing = child.Kind() == "EmptyElemTag"
			t.OpenEnd = int(child.EndByte())
			t.Content = Region{Start: t.OpenEnd, End: t.OpenEnd}
		case "content":
			b.content(t, child)
		case "ETag":
			t.Content.End = int(child.StartByte())

			if name := firstChildOfKind(child, "Name"); name != nil {
				t.CloseName = Region{Start: int(name.StartByte()), End: int(name.EndByte())}
			}
		}
	}
}

func (b *treeBuilder) startTag(t *Tag, node *tree_sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "Name":
			t.NameStart = int(child.StartByte())
			t.NameEnd = int(child.EndByte())
			t.Prefix, t.Name = splitQName(child.Utf8Text(b.src))
		case "Attribute":
			t.Attrs = append(t.Attrs, b.attribute(child))
		}
	}
}

func (b *treeBuilder) attribute(node *tree_sitter.Node) *Attr {
	a := &Attr{ValueStart: -1, ValueEnd: -1}

	if name := firstChildOfKind(node, "Name"); name != nil {
		a.Name = name.Utf8Text(b.src)
		a.NameStart = int(name.StartByte())
		a.NameEnd = int(name.EndByte())
	}

	if value := firstChildOfKind(node, "AttValue"); value != nil {
		raw := value.Utf8Text(b.src)
		a.ValueStart = int(value.StartByte())
		a.ValueEnd = int(value.EndByte())

		if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') {
			a.Quoted = true
			a.ValueStart++
			a.ValueEnd--
			raw = raw[1 : len(raw)-1]
		}

		a.Value = raw
	}

	return a
}

func (b *treeBuilder) content(t *Tag, node *tree_sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "element":
			b.element(child, t)
		case "CDSect":
			start, end := int(child.StartByte()), int(child.EndByte())
			text := child.Utf8Text(b.src)

			inner := Region{Start: start, End: end}
			if strings.HasPrefix(text, "<![CDATA[") {
				inner.Start += len("<![CDATA[")
			}

			if strings.HasSuffix(text, "]]>") {
				inner.End -= len("]]>")
			}

			t.CDATA = append(t.CDATA, inner)
		}
	}
}

func firstChildOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child.Kind() == kind {
			return child
		}
	}

	return nil
}
