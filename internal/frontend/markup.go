package frontend

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/parser"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// synthesizer builds the ActionScript tree of an MXML component: one class
// spanning the file whose members come from script blocks, tags with an id,
// event handler attributes and {binding} expressions.
type synthesizer struct {
	p   *Project
	u   *semantic.Unit
	doc *mxml.Document
	b   *parser.Builder
	cls ast.NodeID
}

func (p *Project) synthesizeMarkup(u *semantic.Unit) {
	doc := mxml.Parse(u.Source)
	u.Markup = doc

	s := &synthesizer{p: p, u: u, doc: doc, b: parser.NewBuilder(u.Source)}

	if doc.Root != nil {
		s.class()
	}

	u.Tree = s.b.Finish()
}

func (s *synthesizer) synthIdent(text string, offset int) ast.NodeID {
	n := ast.Blank(ast.KindIdentifier, offset, offset)
	n.Text = text
	n.Flags = ast.FlagSynthetic

	return s.b.Add(n)
}

func (s *synthesizer) synthTypeRef(qname string, offset int) ast.NodeID {
	_, short := semantic.SplitQualified(qname)

	n := ast.Blank(ast.KindTypeRef, offset, offset)
	n.Text = qname
	n.Flags = ast.FlagSynthetic
	n.Name = s.synthIdent(short, offset)

	return s.b.Add(n)
}

func (s *synthesizer) class() {
	root := s.doc.Root
	tree := s.b.Tree()

	name := strings.TrimSuffix(filepath.Base(s.u.Path), filepath.Ext(s.u.Path))

	n := ast.Blank(ast.KindClass, 0, len(s.u.Source))
	n.Flags = ast.FlagPublic | ast.FlagSynthetic
	n.Name = s.synthIdent(name, root.NameStart)

	if base := s.p.tagClassName(root); base != "" {
		n.Left = s.synthTypeRef(base, root.NameStart)
	}

	s.cls = s.b.Add(n)

	pkg := ast.Blank(ast.KindPackage, 0, len(s.u.Source))
	pkg.Text = s.u.Package
	pkg.Flags = ast.FlagSynthetic
	pkg.List = []ast.NodeID{s.cls}

	file := tree.Node(tree.Root)
	file.List = append(file.List, s.b.Add(pkg))

	s.tag(root)
}

func (s *synthesizer) tag(t *mxml.Tag) {
	switch {
	case t.IsScript():
		s.script(t)
		return
	case t.IsStyle():
		s.style(t)
		return
	case t.IsLanguageTag() && t.Name != "Declarations":
		return
	}

	class := ""
	if !t.IsLanguageTag() {
		class = s.p.tagClassName(t)
	}

	if class != "" {
		if id := t.Attr("id"); id != nil && id.HasValue() && parser.IsIdentifier(id.Value) {
			s.field(t, id, class)
		}
	}

	var events map[string]string
	if class != "" {
		events = s.p.eventTypes(class)
	}

	for _, a := range t.Attrs {
		if !a.HasValue() || a.Name == "id" || strings.HasPrefix(a.Name, "xmlns") {
			continue
		}

		if typ, ok := events[a.BaseName()]; ok {
			s.handler(a, typ)
			continue
		}

		s.bindings(a.ValueStart, a.ValueEnd)
	}

	if len(t.Children) == 0 && !t.SelfClosing && t.Content.End > t.Content.Start {
		s.bindings(t.Content.Start, t.Content.End)
	}

	for _, c := range t.Children {
		s.tag(c)
	}
}

// field declares a public variable for a tag with an id. The variable name
// is the id value, so renaming the variable edits the attribute.
func (s *synthesizer) field(t *mxml.Tag, id *mxml.Attr, class string) {
	name := ast.Blank(ast.KindIdentifier, id.ValueStart, id.ValueEnd)
	name.Text = id.Value

	n := ast.Blank(ast.KindVariable, id.NameStart, id.ValueEnd)
	n.Flags = ast.FlagPublic
	n.Name = s.b.Add(name)
	n.Type = s.synthTypeRef(class, id.NameStart)

	s.member(s.b.Add(n))
}

func (s *synthesizer) member(id ast.NodeID) {
	cls := s.b.Tree().Node(s.cls)
	cls.List = append(cls.List, id)
}

// handler wraps an event attribute value into a function taking the event.
func (s *synthesizer) handler(a *mxml.Attr, eventType string) {
	if eventType == "" {
		eventType = "flash.events.Event"
	}

	param := ast.Blank(ast.KindParameter, a.ValueStart, a.ValueStart)
	param.Flags = ast.FlagSynthetic
	param.Name = s.synthIdent("event", a.ValueStart)
	param.Type = s.synthTypeRef(eventType, a.ValueStart)

	n := ast.Blank(ast.KindFunction, a.ValueStart, a.ValueEnd)
	n.Flags = ast.FlagSynthetic | ast.FlagPrivate
	n.Name = s.synthIdent("@"+a.BaseName(), a.ValueStart)
	n.List = []ast.NodeID{s.b.Add(param)}
	n.Body = s.b.Statements(a.ValueStart, a.ValueEnd)

	s.member(s.b.Add(n))
}

// bindings wraps each {expression} in [start, end) into a function.
func (s *synthesizer) bindings(start, end int) {
	src := s.u.Source

	for i := start; i < end; i++ {
		if src[i] != '{' {
			continue
		}

		depth, j := 0, i

		for ; j < end; j++ {
			if src[j] == '{' {
				depth++
			} else if src[j] == '}' {
				depth--
				if depth == 0 {
					break
				}
			}
		}

		exprEnd := min(j, end)

		expr := s.b.Expression(i+1, exprEnd)

		stmt := ast.Blank(ast.KindExprStmt, i+1, exprEnd)
		stmt.Left = expr

		block := ast.Blank(ast.KindBlock, i+1, exprEnd)
		block.List = []ast.NodeID{s.b.Add(stmt)}

		n := ast.Blank(ast.KindFunction, i+1, exprEnd)
		n.Flags = ast.FlagSynthetic | ast.FlagPrivate
		n.Name = s.synthIdent("@binding", i+1)
		n.Body = s.b.Add(block)

		s.member(s.b.Add(n))

		i = j
	}
}

func (s *synthesizer) script(t *mxml.Tag) {
	if _, ok := t.AttrValue("source"); ok {
		return
	}

	r := t.EmbeddedRegion()
	if r.Empty() {
		return
	}

	s.b.Members(s.cls, r.Start, r.End)
}

func (s *synthesizer) style(t *mxml.Tag) {
	if _, ok := t.AttrValue("source"); ok {
		return
	}

	if t.SelfClosing {
		return
	}

	r := t.EmbeddedRegion()
	s.u.Styles = append(s.u.Styles, css.Parse(s.u.Source, r.Start, r.End))
}

// tagClassName returns the qualified class a tag denotes, or "".
func (p *Project) tagClassName(t *mxml.Tag) string {
	if t.IsLanguageTag() {
		return ""
	}

	if qname, ok := p.registry.ClassFor(t.URI, t.Name); ok {
		return qname
	}

	return ""
}

// eventTypes maps event names declared on class and its ancestors to their
// event class.
func (p *Project) eventTypes(qname string) map[string]string {
	cls := p.FindQualified(qname)
	if cls == nil {
		return nil
	}

	out := make(map[string]string)

	for _, e := range p.Metadata(cls, semantic.DefEvent) {
		if _, seen := out[e.Name]; !seen {
			out[e.Name] = e.TypeName
		}
	}

	return out
}
