package parser

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

func (p *parser) block() ast.NodeID {
	open := p.advance()
	id := p.add(ast.Blank(ast.KindBlock, open.Start, open.End))

	stmts := p.directives(ctxBlock)
	p.node(id).List = stmts

	p.expect("}")

	return p.finish(id)
}

func (p *parser) statement() ast.NodeID {
	t := p.tok()

	switch {
	case t.Is("{"):
		return p.block()
	case t.Is("if"):
		return p.ifStatement()
	case t.Is("while"):
		return p.whileStatement()
	case t.Is("do"):
		return p.doWhileStatement()
	case t.Is("for"):
		return p.forStatement()
	case t.Is("switch"):
		return p.switchStatement()
	case t.Is("try"):
		return p.tryStatement()
	case t.Is("return"):
		return p.jumpWithValue(ast.KindReturn)
	case t.Is("throw"):
		return p.jumpWithValue(ast.KindThrow)
	case t.Is("break"):
		return p.jumpWithLabel(ast.KindBreak)
	case t.Is("continue"):
		return p.jumpWithLabel(ast.KindContinue)
	case t.Is(";"):
		p.advance()
		return p.add(ast.Blank(ast.KindEmpty, t.Start, t.End))
	}

	id := p.add(ast.Blank(ast.KindExprStmt, t.Start, t.Start))
	p.node(id).Left = p.expression(false)
	p.finish(id)
	p.accept(";")

	return id
}

func (p *parser) parenCondition() ast.NodeID {
	p.expect("(")
	cond := p.expression(false)
	p.expect(")")

	return cond
}

func (p *parser) ifStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindIf, kw.Start, kw.End))

	list := []ast.NodeID{p.parenCondition(), p.statement()}
	if p.accept("else") {
		list = append(list, p.statement())
	}

	p.node(id).List = list

	return p.finish(id)
}

func (p *parser) whileStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindWhile, kw.Start, kw.End))
	p.node(id).List = []ast.NodeID{p.parenCondition(), p.statement()}

	return p.finish(id)
}

func (p *parser) doWhileStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindDoWhile, kw.Start, kw.End))

	body := p.statement()

	var cond ast.NodeID = ast.NoNode
	if p.expect("while") {
		cond = p.parenCondition()
	}

	p.node(id).List = []ast.NodeID{body, cond}
	p.accept(";")

	return p.finish(id)
}

func (p *parser) forStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindFor, kw.Start, kw.End))

	if t := p.tok(); t.Kind == ast.TokenIdentifier && t.Text == "each" {
		p.advance()
		p.node(id).Flags |= ast.FlagEach
	}

	p.expect("(")

	var init ast.NodeID = ast.NoNode

	if p.is("var") || p.is("const") {
		vars := p.forVariables()
		if len(vars) > 0 {
			init = vars[0]
		}
	} else if !p.is(";") {
		init = p.expression(true)
	}

	if p.accept("in") {
		p.node(id).Kind = ast.KindForIn
		obj := p.expression(false)
		p.expect(")")
		p.node(id).List = []ast.NodeID{init, obj, p.statement()}

		return p.finish(id)
	}

	p.expect(";")

	var cond, update ast.NodeID = ast.NoNode, ast.NoNode
	if !p.is(";") {
		cond = p.expression(false)
	}

	p.expect(";")

	if !p.is(")") {
		update = p.expression(false)
	}

	p.expect(")")
	p.node(id).List = []ast.NodeID{init, cond, update, p.statement()}

	return p.finish(id)
}

// forVariables parses the declaration part of a for header, where "in"
// ends the initializer.
func (p *parser) forVariables() []ast.NodeID {
	kw := p.advance()

	var flags ast.Flags
	if kw.Text == "const" {
		flags = ast.FlagConst
	}

	var out []ast.NodeID

	start := kw.Start

	for {
		n := ast.Blank(ast.KindVariable, start, p.lastEnd)
		n.Flags = flags
		id := p.add(n)

		if p.isName() {
			p.node(id).Name = p.ident()
		}

		if p.is(":") {
			colon := p.advance()
			p.node(id).Type = p.typeRef(colon.Start)
		}

		if p.accept("=") {
			p.node(id).Right = p.assignment(true)
		}

		out = append(out, p.finish(id))

		if !p.accept(",") {
			break
		}

		start = p.tok().Start
	}

	return out
}

func (p *parser) switchStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindSwitch, kw.Start, kw.End))
	p.node(id).Left = p.parenCondition()

	if !p.expect("{") {
		return p.finish(id)
	}

	var cases []ast.NodeID

	for !p.eof() && !p.is("}") {
		t := p.tok()
		if !t.Is("case") && !t.Is("default") {
			p.advance()
			p.errorf(t.Start, t.End, "expected case or default")

			continue
		}

		p.advance()
		cid := p.add(ast.Blank(ast.KindCase, t.Start, t.End))

		if t.Is("case") {
			p.node(cid).Left = p.expression(false)
		}

		p.expect(":")

		var body []ast.NodeID

		for !p.eof() && !p.is("case") && !p.is("default") && !p.is("}") {
			before := p.i
			body = append(body, p.directive(ctxBlock)...)

			if p.i == before {
				p.advance()
			}
		}

		p.node(cid).List = body
		cases = append(cases, p.finish(cid))
	}

	p.node(id).List = cases
	p.expect("}")

	return p.finish(id)
}

func (p *parser) tryStatement() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindTry, kw.Start, kw.End))

	if p.is("{") {
		p.node(id).Body = p.block()
	}

	var catches []ast.NodeID

	for p.is("catch") {
		ckw := p.advance()
		cid := p.add(ast.Blank(ast.KindCatch, ckw.Start, ckw.End))

		if p.accept("(") {
			start := p.tok().Start
			param := p.add(ast.Blank(ast.KindParameter, start, start))

			if p.isName() {
				p.node(param).Name = p.ident()
			}

			if p.is(":") {
				colon := p.advance()
				p.node(param).Type = p.typeRef(colon.Start)
			}

			p.node(cid).Left = p.finish(param)
			p.expect(")")
		}

		if p.is("{") {
			p.node(cid).Body = p.block()
		}

		catches = append(catches, p.finish(cid))
	}

	p.node(id).List = catches

	if p.accept("finally") && p.is("{") {
		p.node(id).Right = p.block()
	}

	return p.finish(id)
}

func (p *parser) jumpWithValue(kind ast.Kind) ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(kind, kw.Start, kw.End))

	if !p.is(";") && !p.is("}") && !p.eof() && !p.onNewLine(kw) {
		p.node(id).Left = p.expression(false)
	}

	p.finish(id)
	p.accept(";")

	return id
}

func (p *parser) jumpWithLabel(kind ast.Kind) ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(kind, kw.Start, kw.End))

	if p.isName() && !p.onNewLine(kw) {
		p.node(id).Text = p.advance().Text
	}

	p.finish(id)
	p.accept(";")

	return id
}

// onNewLine reports whether the current token starts on a later line than
// the end of prev.
func (p *parser) onNewLine(prev ast.Token) bool {
	t := p.tok()
	if t.Kind == ast.TokenEOF || t.Start > len(p.tree.Source) {
		return false
	}

	for i := prev.End; i < t.Start; i++ {
		if p.tree.Source[i] == '\n' {
			return true
		}
	}

	return false
}
