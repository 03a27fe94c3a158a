package parser

import (
	"fmt"
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

// context in which a directive list is parsed.
type directiveContext uint8

const (
	ctxFile directiveContext = iota
	ctxPackage
	ctxClass
	ctxInterface
	ctxBlock
)

type parser struct {
	tree *ast.Tree
	toks []ast.Token
	docs map[int]*ast.Comment
	i    int

	// regionEnd is the offset used for nodes synthesized at end of input.
	regionEnd int
	lastEnd   int
}

func newParser(tree *ast.Tree, start, end int) *parser {
	raw, comments := Lex(tree.Source, start, end)

	p := &parser{
		tree:      tree,
		docs:      make(map[int]*ast.Comment),
		regionEnd: min(end, len(tree.Source)),
		lastEnd:   start,
	}

	var lastDoc *ast.Comment

	ci := 0
	for _, t := range raw {
		switch t.Kind {
		case ast.TokenComment, ast.TokenDocComment:
			for ci < len(comments) && comments[ci].Start < t.Start {
				ci++
			}

			if ci < len(comments) && comments[ci].Doc {
				lastDoc = comments[ci]
			} else {
				lastDoc = nil
			}
		default:
			if lastDoc != nil {
				p.docs[len(p.toks)] = lastDoc
				lastDoc = nil
			}

			p.toks = append(p.toks, t)
		}
	}

	tree.Tokens = append(tree.Tokens, raw...)
	tree.Comments = append(tree.Comments, comments...)

	return p
}

// --- token helpers ---

func (p *parser) tok() ast.Token {
	if p.i < len(p.toks) {
		return p.toks[p.i]
	}

	return ast.Token{Kind: ast.TokenEOF, Start: p.regionEnd, End: p.regionEnd}
}

func (p *parser) peekTok(n int) ast.Token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}

	return ast.Token{Kind: ast.TokenEOF, Start: p.regionEnd, End: p.regionEnd}
}

func (p *parser) eof() bool { return p.i >= len(p.toks) }

func (p *parser) is(text string) bool { return p.tok().Is(text) }

func (p *parser) isName() bool { return p.tok().IsName() }

func (p *parser) advance() ast.Token {
	t := p.tok()
	if !p.eof() {
		p.i++
		p.lastEnd = t.End
	}

	return t
}

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.advance()
		return true
	}

	return false
}

func (p *parser) expect(text string) bool {
	if p.accept(text) {
		return true
	}

	t := p.tok()
	p.errorf(t.Start, t.End, "expected %q", text)

	return false
}

func (p *parser) errorf(start, end int, format string, args ...any) {
	p.tree.Errors = append(p.tree.Errors, ast.SyntaxError{
		Start:   start,
		End:     end,
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) add(n ast.Node) ast.NodeID { return p.tree.Add(n) }

func (p *parser) node(id ast.NodeID) *ast.Node { return p.tree.Node(id) }

func (p *parser) finish(id ast.NodeID) ast.NodeID {
	if n := p.node(id); n != nil && p.lastEnd > n.End {
		n.End = p.lastEnd
	}

	return id
}

// emptyIdent synthesizes a zero-width identifier at offset. Completion relies
// on these placeholders for slots the user has not typed yet.
func (p *parser) emptyIdent(offset int) ast.NodeID {
	return p.add(ast.Blank(ast.KindIdentifier, offset, offset))
}

func (p *parser) ident() ast.NodeID {
	t := p.advance()
	n := ast.Blank(ast.KindIdentifier, t.Start, t.End)
	n.Text = t.Text

	return p.add(n)
}

// --- directives ---

type modifiers struct {
	flags ast.Flags
	meta  []ast.Metadata
	doc   *ast.Comment
	start int
}

func (p *parser) directives(ctx directiveContext) []ast.NodeID {
	var out []ast.NodeID

	for !p.eof() {
		if p.is("}") {
			if ctx == ctxFile {
				t := p.advance()
				p.errorf(t.Start, t.End, "unexpected '}'")

				continue
			}

			break
		}

		before := p.i
		out = append(out, p.directive(ctx)...)

		if p.i == before {
			t := p.advance()
			p.errorf(t.Start, t.End, "unexpected %q", t.Text)
		}
	}

	return out
}

func (p *parser) directive(ctx directiveContext) []ast.NodeID {
	if p.accept(";") {
		return nil
	}

	t := p.tok()

	switch {
	case t.Is("package") && ctx == ctxFile:
		return []ast.NodeID{p.packageDecl()}
	case t.Is("import"):
		return []ast.NodeID{p.importDecl()}
	case t.Is("use"):
		return []ast.NodeID{p.useNamespace()}
	case t.Kind == ast.TokenIdentifier && t.Text == "include" && p.peekTok(1).Kind == ast.TokenString:
		p.advance()
		p.advance()

		return nil
	}

	mods := modifiers{start: t.Start, doc: p.docs[p.i]}

	if ctx != ctxBlock {
		for p.is("[") && p.peekTok(1).IsName() {
			mods.meta = append(mods.meta, p.metadata())
		}
	}

	if d := p.docs[p.i]; d != nil {
		mods.doc = d
	}

	p.modifiers(&mods)

	t = p.tok()

	switch {
	case t.Is("class"):
		return []ast.NodeID{p.classDecl(mods)}
	case t.Is("interface"):
		return []ast.NodeID{p.interfaceDecl(mods)}
	case t.Is("function") && (p.peekTok(1).IsName() || ctx != ctxBlock):
		return []ast.NodeID{p.functionDecl(mods, ctx)}
	case t.Is("var") || t.Is("const"):
		return p.variables(mods)
	case t.Kind == ast.TokenIdentifier && t.Text == "namespace" && p.peekTok(1).IsName():
		return []ast.NodeID{p.namespaceDecl(mods)}
	}

	if mods.flags != 0 || len(mods.meta) > 0 {
		// Modifiers without a declaration, typically while typing
		// "override " before the function keyword.
		return nil
	}

	return []ast.NodeID{p.statement()}
}

func (p *parser) modifiers(m *modifiers) {
	for {
		t := p.tok()

		var f ast.Flags

		switch {
		case t.Is("public"):
			f = ast.FlagPublic
		case t.Is("private"):
			f = ast.FlagPrivate
		case t.Is("protected"):
			f = ast.FlagProtected
		case t.Is("internal"):
			f = ast.FlagInternal
		case t.Is("static"):
			f = ast.FlagStatic
		case t.Is("override"):
			f = ast.FlagOverride
		case t.Is("final"):
			f = ast.FlagFinal
		case t.Is("dynamic"):
			f = ast.FlagDynamic
		case t.Is("native"):
			f = ast.FlagNative
		case t.Kind == ast.TokenIdentifier && isUserNamespaceModifier(p, t):
			f = ast.FlagPublic
		default:
			return
		}

		if m.flags == 0 && m.start > t.Start {
			m.start = t.Start
		}

		m.flags |= f
		p.advance()
	}
}

// isUserNamespaceModifier recognizes "mx_internal function foo" style
// namespace attributes: an identifier directly followed by a declaration
// keyword on the same directive.
func isUserNamespaceModifier(p *parser, t ast.Token) bool {
	next := p.peekTok(1)
	return next.Is("function") || next.Is("var") || next.Is("const")
}

func (p *parser) metadata() ast.Metadata {
	open := p.advance()
	md := ast.Metadata{Start: open.Start, Name: p.advance().Text}

	if p.accept("(") {
		for !p.eof() && !p.is(")") && !p.is("]") {
			var arg ast.MetadataArg

			t := p.advance()
			if p.is("=") {
				arg.Key = t.Text
				p.advance()
				t = p.advance()
			}

			arg.Value = unquote(t.Text)
			arg.ValueStart = t.Start
			arg.ValueEnd = t.End

			if t.Kind == ast.TokenString {
				arg.ValueStart++
				arg.ValueEnd = max(arg.ValueStart, t.End-1)
			}

			md.Args = append(md.Args, arg)

			if !p.accept(",") {
				break
			}
		}

		p.expect(")")
	}

	p.expect("]")
	md.End = p.lastEnd

	return md
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	if len(s) >= 1 && (s[0] == '"' || s[0] == '\'') {
		return s[1:]
	}

	return s
}

// dottedName parses a.b.c (optionally ending in .* for imports) and returns
// an identifier node whose Text holds the whole dotted name.
func (p *parser) dottedName(allowWildcard bool) ast.NodeID {
	start := p.tok().Start

	var sb strings.Builder

	for p.isName() || p.tok().Kind == ast.TokenKeyword && sb.Len() > 0 {
		sb.WriteString(p.advance().Text)

		if !p.is(".") {
			break
		}

		sb.WriteString(".")
		p.advance()

		if allowWildcard && p.is("*") {
			sb.WriteString("*")
			p.advance()

			break
		}
	}

	if sb.Len() == 0 {
		return ast.NoNode
	}

	n := ast.Blank(ast.KindIdentifier, start, p.lastEnd)
	n.Text = sb.String()

	return p.add(n)
}

func (p *parser) packageDecl() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindPackage, kw.Start, kw.End))

	name := p.dottedName(false)
	p.node(id).Name = name

	if n := p.node(name); n != nil {
		p.node(id).Text = n.Text
	}

	if p.expect("{") {
		members := p.directives(ctxPackage)
		p.node(id).List = members
		p.expect("}")
	}

	return p.finish(id)
}

func (p *parser) importDecl() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindImport, kw.Start, kw.End))

	name := p.dottedName(true)
	p.node(id).Name = name

	if n := p.node(name); n != nil {
		p.node(id).Text = n.Text
	}

	p.finish(id)
	p.accept(";")

	return id
}

func (p *parser) useNamespace() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindUseNamespace, kw.Start, kw.End))

	if p.tok().Kind == ast.TokenIdentifier && p.tok().Text == "namespace" {
		p.advance()
	}

	if p.isName() {
		p.node(id).Name = p.ident()
	}

	p.finish(id)
	p.accept(";")

	return id
}

func (p *parser) namespaceDecl(mods modifiers) ast.NodeID {
	p.advance()

	n := ast.Blank(ast.KindVariable, mods.start, p.lastEnd)
	n.Flags = mods.flags | ast.FlagConst
	n.Meta = mods.meta
	n.Doc = mods.doc
	id := p.add(n)

	p.node(id).Name = p.ident()

	if p.accept("=") {
		p.node(id).Right = p.assignment(false)
	}

	p.finish(id)
	p.accept(";")

	return id
}

func (p *parser) classDecl(mods modifiers) ast.NodeID {
	p.advance()

	n := ast.Blank(ast.KindClass, mods.start, p.lastEnd)
	n.Flags = mods.flags
	n.Meta = mods.meta
	n.Doc = mods.doc
	id := p.add(n)

	if p.isName() {
		p.node(id).Name = p.ident()
	}

	if p.is("extends") {
		kw := p.advance()
		p.node(id).Left = p.typeRef(kw.End)
	}

	if p.is("implements") {
		kw := p.advance()
		p.node(id).Extra = p.typeList(kw.End)
	}

	if p.expect("{") {
		members := p.directives(ctxClass)
		p.node(id).List = members
		p.expect("}")
	}

	return p.finish(id)
}

func (p *parser) interfaceDecl(mods modifiers) ast.NodeID {
	p.advance()

	n := ast.Blank(ast.KindInterface, mods.start, p.lastEnd)
	n.Flags = mods.flags
	n.Meta = mods.meta
	n.Doc = mods.doc
	id := p.add(n)

	if p.isName() {
		p.node(id).Name = p.ident()
	}

	if p.is("extends") {
		kw := p.advance()
		p.node(id).Extra = p.typeList(kw.End)
	}

	if p.expect("{") {
		members := p.directives(ctxInterface)
		p.node(id).List = members
		p.expect("}")
	}

	return p.finish(id)
}

func (p *parser) typeList(pos int) []ast.NodeID {
	list := []ast.NodeID{p.typeRef(pos)}

	for p.is(",") {
		comma := p.advance()
		list = append(list, p.typeRef(comma.End))
	}

	return list
}

func (p *parser) functionDecl(mods modifiers, ctx directiveContext) ast.NodeID {
	p.advance()

	n := ast.Blank(ast.KindFunction, mods.start, p.lastEnd)
	n.Flags = mods.flags
	n.Meta = mods.meta
	n.Doc = mods.doc
	id := p.add(n)

	if t := p.tok(); t.Kind == ast.TokenIdentifier && (t.Text == "get" || t.Text == "set") && p.peekTok(1).IsName() {
		if t.Text == "get" {
			p.node(id).Flags |= ast.FlagGetter
		} else {
			p.node(id).Flags |= ast.FlagSetter
		}

		p.advance()
	}

	if p.isName() {
		p.node(id).Name = p.ident()
	}

	p.signature(id)

	if p.is("{") {
		p.node(id).Body = p.block()
	} else {
		p.accept(";")
	}

	if ctx == ctxInterface {
		p.node(id).Flags |= ast.FlagPublic
	}

	return p.finish(id)
}

// signature parses "(params) : Type" into fn.
func (p *parser) signature(fn ast.NodeID) {
	if !p.accept("(") {
		return
	}

	var params []ast.NodeID

	for !p.eof() && !p.is(")") && !p.is("{") {
		start := p.tok().Start
		param := ast.Blank(ast.KindParameter, start, start)

		if p.accept("...") {
			param.Flags |= ast.FlagRest
		}

		pid := p.add(param)

		if p.isName() {
			p.node(pid).Name = p.ident()
		} else {
			p.node(pid).Name = p.emptyIdent(p.lastEnd)
		}

		if p.is(":") {
			colon := p.advance()
			p.node(pid).Type = p.typeRef(colon.Start)
		}

		if p.accept("=") {
			p.node(pid).Right = p.assignment(false)
		}

		params = append(params, p.finish(pid))

		if !p.accept(",") {
			break
		}
	}

	p.node(fn).List = params
	p.expect(")")

	if p.is(":") {
		colon := p.advance()
		p.node(fn).Type = p.typeRef(colon.Start)
	}
}

func (p *parser) variables(mods modifiers) []ast.NodeID {
	kw := p.advance()

	flags := mods.flags
	if kw.Text == "const" {
		flags |= ast.FlagConst
	}

	var out []ast.NodeID

	start := mods.start

	for {
		n := ast.Blank(ast.KindVariable, start, p.lastEnd)
		n.Flags = flags
		n.Meta = mods.meta
		n.Doc = mods.doc
		id := p.add(n)

		if p.isName() {
			p.node(id).Name = p.ident()
		}

		if p.is(":") {
			colon := p.advance()
			p.node(id).Type = p.typeRef(colon.Start)
		}

		if p.accept("=") {
			p.node(id).Right = p.assignment(false)
		}

		out = append(out, p.finish(id))

		if !p.is(",") || !p.peekTok(1).IsName() {
			break
		}

		p.advance()
		start = p.tok().Start
	}

	p.accept(";")

	return out
}

// typeRef parses a type annotation. pos is the offset of the token that
// introduced it (a colon, extends, implements, as or is) and is stored in
// Pos so that an annotation the user has not typed yet can still be found.
func (p *parser) typeRef(pos int) ast.NodeID {
	t := p.tok()
	n := ast.Blank(ast.KindTypeRef, t.Start, t.Start)
	n.Pos = pos

	switch {
	case t.Is("*"):
		p.advance()
		n.Text = "*"
		n.End = t.End

		return p.add(n)
	case t.Is("void"):
		p.advance()
		n.Text = "void"
		n.End = t.End
		id := p.add(n)

		name := ast.Blank(ast.KindIdentifier, t.Start, t.End)
		name.Text = "void"
		p.node(id).Name = p.add(name)

		return id
	case !t.IsName():
		// Zero-width placeholder right after the introducing token.
		n.Start = p.lastEnd
		n.End = p.lastEnd
		id := p.add(n)
		p.node(id).Name = p.emptyIdent(p.lastEnd)

		return id
	}

	id := p.add(n)

	var sb strings.Builder

	var last ast.NodeID

	for p.isName() {
		last = p.ident()
		sb.WriteString(p.node(last).Text)

		if !p.is(".") {
			break
		}

		p.advance()
		sb.WriteString(".")

		if !p.isName() {
			// "flash.display." while typing.
			last = p.emptyIdent(p.lastEnd)
			break
		}
	}

	p.node(id).Text = sb.String()
	p.node(id).Name = last

	if p.is(".<") {
		p.advance()
		p.node(id).List = []ast.NodeID{p.typeRef(p.lastEnd)}
		p.closeTypeArgs()
	}

	return p.finish(id)
}

// closeTypeArgs consumes the '>' closing a type argument list, splitting a
// '>>' or '>>>' token produced by nested vectors.
func (p *parser) closeTypeArgs() {
	t := p.tok()

	switch {
	case t.Is(">"):
		p.advance()
	case t.Kind == ast.TokenPunct && strings.HasPrefix(t.Text, ">") && len(t.Text) > 1:
		p.toks[p.i].Start++
		p.toks[p.i].Text = t.Text[1:]
		p.lastEnd = t.Start + 1
	default:
		p.errorf(t.Start, t.End, "expected '>'")
	}
}
