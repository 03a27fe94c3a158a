package parser

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

// binary operator precedence, higher binds tighter.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6, "===": 6, "!==": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7, "instanceof": 7, "in": 7, "as": 7, "is": 7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true, ">>>=": true,
	"&&=": true, "||=": true,
}

// expression parses a comma-separated expression. noIn disables the "in"
// operator inside for-loop headers.
func (p *parser) expression(noIn bool) ast.NodeID {
	left := p.assignment(noIn)

	for p.is(",") {
		op := p.advance()
		n := ast.Blank(ast.KindBinary, p.node(left).Start, op.End)
		n.Text = ","
		n.Left = left
		n.Right = p.assignment(noIn)
		left = p.finish(p.add(n))
	}

	return left
}

func (p *parser) assignment(noIn bool) ast.NodeID {
	left := p.conditional(noIn)

	if t := p.tok(); t.Kind == ast.TokenPunct && assignOps[t.Text] {
		p.advance()
		n := ast.Blank(ast.KindAssign, p.node(left).Start, t.End)
		n.Text = t.Text
		n.Pos = t.Start
		n.Left = left
		n.Right = p.assignment(noIn)

		return p.finish(p.add(n))
	}

	return left
}

func (p *parser) conditional(noIn bool) ast.NodeID {
	cond := p.binary(1, noIn)

	if !p.is("?") {
		return cond
	}

	p.advance()

	n := ast.Blank(ast.KindConditional, p.node(cond).Start, p.lastEnd)
	id := p.add(n)

	then := p.assignment(noIn)
	p.expect(":")
	otherwise := p.assignment(noIn)

	p.node(id).List = []ast.NodeID{cond, then, otherwise}

	return p.finish(id)
}

func (p *parser) binaryOp(noIn bool) (string, int) {
	t := p.tok()
	if t.Kind != ast.TokenPunct && t.Kind != ast.TokenKeyword {
		return "", 0
	}

	if noIn && t.Text == "in" {
		return "", 0
	}

	prec, ok := binaryPrecedence[t.Text]
	if !ok {
		return "", 0
	}

	return t.Text, prec
}

func (p *parser) binary(minPrec int, noIn bool) ast.NodeID {
	left := p.unary()

	for {
		op, prec := p.binaryOp(noIn)
		if prec == 0 || prec < minPrec {
			return left
		}

		t := p.advance()

		n := ast.Blank(ast.KindBinary, p.node(left).Start, t.End)
		n.Text = op
		n.Pos = t.Start
		n.Left = left

		if op == "as" || op == "is" {
			n.Right = p.typeRef(t.End)
		} else {
			n.Right = p.binary(prec+1, noIn)
		}

		left = p.finish(p.add(n))
	}
}

func (p *parser) unary() ast.NodeID {
	t := p.tok()

	switch {
	case t.Is("!"), t.Is("~"), t.Is("-"), t.Is("+"), t.Is("++"), t.Is("--"),
		t.Is("typeof"), t.Is("void"), t.Is("delete"):
		p.advance()

		n := ast.Blank(ast.KindUnary, t.Start, t.End)
		n.Text = t.Text
		n.Left = p.unary()

		return p.finish(p.add(n))
	}

	return p.postfix()
}

func (p *parser) postfix() ast.NodeID {
	expr := p.member(p.primary(), true)

	if t := p.tok(); (t.Is("++") || t.Is("--")) && !p.onNewLine(ast.Token{End: p.lastEnd}) {
		p.advance()

		n := ast.Blank(ast.KindUnary, p.node(expr).Start, t.End)
		n.Text = t.Text + "post"
		n.Left = expr

		return p.finish(p.add(n))
	}

	return expr
}

// member applies member access, indexing, type arguments and (when
// allowCall is set) calls to expr.
func (p *parser) member(expr ast.NodeID, allowCall bool) ast.NodeID {
	for {
		t := p.tok()

		switch {
		case t.Is(".") || t.Is("..") || t.Is("::"):
			p.advance()

			n := ast.Blank(ast.KindMemberAccess, p.node(expr).Start, t.End)
			n.Pos = t.Start
			n.Left = expr

			p.accept("@")

			if next := p.tok(); (next.IsName() || next.Kind == ast.TokenKeyword) && !p.onNewLine(t) {
				n.Right = p.ident()
			} else {
				n.Right = p.emptyIdent(t.End)
			}

			expr = p.finish(p.add(n))
		case t.Is(".<"):
			p.advance()

			n := ast.Blank(ast.KindTypeRef, p.node(expr).Start, t.End)
			n.Text = p.tree.Text(expr)
			n.Pos = -1

			if p.node(expr).Kind == ast.KindIdentifier {
				n.Name = expr
			} else {
				n.Left = expr
			}

			id := p.add(n)
			p.node(id).List = []ast.NodeID{p.typeRef(t.End)}
			p.closeTypeArgs()
			expr = p.finish(id)
		case t.Is("["):
			p.advance()

			n := ast.Blank(ast.KindIndex, p.node(expr).Start, t.End)
			n.Left = expr
			id := p.add(n)
			p.node(id).Right = p.expression(false)
			p.expect("]")
			expr = p.finish(id)
		case t.Is("(") && allowCall:
			n := ast.Blank(ast.KindCall, p.node(expr).Start, t.End)
			n.Left = expr
			id := p.add(n)
			p.node(id).List = p.arguments()
			expr = p.finish(id)
		default:
			return expr
		}
	}
}

func (p *parser) arguments() []ast.NodeID {
	p.advance()

	var args []ast.NodeID

	for !p.eof() && !p.is(")") {
		if p.is(";") || p.is("}") {
			break
		}

		before := p.i
		args = append(args, p.assignment(false))

		if p.i == before {
			break
		}

		if !p.accept(",") {
			break
		}
	}

	p.expect(")")

	return args
}

func (p *parser) primary() ast.NodeID {
	t := p.tok()

	switch t.Kind {
	case ast.TokenIdentifier:
		return p.ident()
	case ast.TokenNumber, ast.TokenRegExp:
		p.advance()
		n := ast.Blank(ast.KindLiteral, t.Start, t.End)
		n.Text = t.Text

		return p.add(n)
	case ast.TokenString:
		p.advance()
		n := ast.Blank(ast.KindLiteral, t.Start, t.End)
		n.Text = t.Text
		n.Flags = ast.FlagString

		return p.add(n)
	}

	switch {
	case t.Is("this"):
		p.advance()
		return p.add(ast.Blank(ast.KindThis, t.Start, t.End))
	case t.Is("super"):
		p.advance()
		return p.add(ast.Blank(ast.KindSuper, t.Start, t.End))
	case t.Is("true"), t.Is("false"), t.Is("null"):
		p.advance()
		n := ast.Blank(ast.KindLiteral, t.Start, t.End)
		n.Text = t.Text

		return p.add(n)
	case t.Is("("):
		p.advance()
		inner := p.expression(false)
		p.expect(")")

		return inner
	case t.Is("["):
		return p.arrayLiteral()
	case t.Is("{"):
		return p.objectLiteral()
	case t.Is("function"):
		return p.functionExpr()
	case t.Is("new"):
		return p.newExpr()
	case t.Is("@"):
		p.advance()
		if p.isName() {
			return p.ident()
		}
	case t.Is("<"):
		return p.xmlLiteral()
	}

	// Missing operand: a zero-width identifier keeps the tree well formed.
	p.errorf(t.Start, t.End, "expected expression")

	return p.emptyIdent(p.lastEnd)
}

func (p *parser) arrayLiteral() ast.NodeID {
	open := p.advance()
	id := p.add(ast.Blank(ast.KindArrayLiteral, open.Start, open.End))

	var items []ast.NodeID

	for !p.eof() && !p.is("]") {
		if p.accept(",") {
			continue
		}

		if p.is(";") || p.is("}") {
			break
		}

		before := p.i
		items = append(items, p.assignment(false))

		if p.i == before {
			break
		}

		if !p.accept(",") {
			break
		}
	}

	p.node(id).List = items
	p.expect("]")

	return p.finish(id)
}

func (p *parser) objectLiteral() ast.NodeID {
	open := p.advance()
	id := p.add(ast.Blank(ast.KindObjectLiteral, open.Start, open.End))

	var props []ast.NodeID

	for !p.eof() && !p.is("}") {
		t := p.tok()
		if t.Kind != ast.TokenIdentifier && t.Kind != ast.TokenString && t.Kind != ast.TokenNumber && t.Kind != ast.TokenKeyword {
			break
		}

		p.advance()

		prop := ast.Blank(ast.KindProperty, t.Start, t.End)
		prop.Text = unquote(t.Text)
		pid := p.add(prop)

		if p.expect(":") {
			p.node(pid).Right = p.assignment(false)
		}

		props = append(props, p.finish(pid))

		if !p.accept(",") {
			break
		}
	}

	p.node(id).List = props
	p.expect("}")

	return p.finish(id)
}

func (p *parser) functionExpr() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindFunctionExpr, kw.Start, kw.End))

	if p.isName() {
		p.node(id).Name = p.ident()
	}

	p.signature(id)

	if p.is("{") {
		p.node(id).Body = p.block()
	}

	return p.finish(id)
}

func (p *parser) newExpr() ast.NodeID {
	kw := p.advance()
	id := p.add(ast.Blank(ast.KindNew, kw.Start, kw.End))
	p.node(id).Pos = kw.Start

	switch {
	case p.is("<"):
		// Vector literal: new <int>[1, 2, 3]
		p.advance()
		p.node(id).Left = p.typeRef(p.lastEnd)
		p.closeTypeArgs()

		if p.is("[") {
			p.node(id).List = []ast.NodeID{p.arrayLiteral()}
		}

		return p.finish(id)
	case p.isName() && !p.onNewLine(kw) || p.is("(") || p.is("this") || p.is("super"):
		callee := p.primary()
		p.node(id).Left = p.member(callee, false)
	default:
		p.node(id).Left = p.emptyIdent(kw.End)
	}

	if p.is("(") {
		p.node(id).List = p.arguments()
	}

	p.finish(id)

	return p.member(id, true)
}

// xmlLiteral skips an E4X literal up to the end of its statement. Its
// content is opaque to navigation.
func (p *parser) xmlLiteral() ast.NodeID {
	open := p.advance()

	for !p.eof() && !p.is(";") && !p.is("}") {
		p.advance()
	}

	n := ast.Blank(ast.KindLiteral, open.Start, p.lastEnd)
	n.Text = "xml"

	return p.add(n)
}
