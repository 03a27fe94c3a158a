// Package parser implements an error-tolerant ActionScript 3 parser that
// builds ast.Tree arenas. It never fails: malformed input yields a partial
// tree plus SyntaxErrors, which is what completion on half-typed code needs.
package parser

import (
	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

// Keywords lexed as TokenKeyword. Contextual words (get, set, each,
// namespace, include) stay identifiers.
var Keywords = map[string]bool{
	"as": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "default": true, "delete": true, "do": true,
	"dynamic": true, "else": true, "extends": true, "false": true, "final": true,
	"finally": true, "for": true, "function": true, "if": true, "implements": true,
	"import": true, "in": true, "instanceof": true, "interface": true, "internal": true,
	"is": true, "native": true, "new": true, "null": true, "override": true,
	"package": true, "private": true, "protected": true, "public": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "use": true, "var": true,
	"void": true, "while": true, "with": true,
}

// punctuators ordered longest first.
var punctuators = []string{
	">>>=",
	"...", "===", "!==", ">>>", "<<=", ">>=", "&&=", "||=",
	".<", "..", "::", "==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/",
	"%", "&", "|", "^", "!", "~", "?", ":", "=", ".", "@", "#",
}

type lexer struct {
	src      string
	pos      int
	end      int
	tokens   []ast.Token
	comments []*ast.Comment
}

// Lex tokenizes src[start:end]. Token offsets are absolute positions in src.
func Lex(src string, start, end int) ([]ast.Token, []*ast.Comment) {
	if end > len(src) {
		end = len(src)
	}

	lx := &lexer{src: src, pos: start, end: end}
	lx.run()

	return lx.tokens, lx.comments
}

func (lx *lexer) run() {
	for {
		lx.skipSpace()

		if lx.pos >= lx.end {
			return
		}

		c := lx.src[lx.pos]

		switch {
		case c == '/' && lx.peek(1) == '/':
			lx.lineComment()
		case c == '/' && lx.peek(1) == '*':
			lx.blockComment()
		case c == '/' && lx.regexAllowed():
			lx.regexp()
		case isIdentStart(c):
			lx.identifier()
		case isDigit(c) || c == '.' && isDigit(lx.peek(1)):
			lx.number()
		case c == '"' || c == '\'':
			lx.str(c)
		default:
			lx.punct()
		}
	}
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n < lx.end {
		return lx.src[lx.pos+n]
	}

	return 0
}

func (lx *lexer) emit(kind ast.TokenKind, start int) {
	lx.tokens = append(lx.tokens, ast.Token{
		Kind:  kind,
		Start: start,
		End:   lx.pos,
		Text:  lx.src[start:lx.pos],
	})
}

func (lx *lexer) skipSpace() {
	for lx.pos < lx.end {
		switch lx.src[lx.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			lx.pos++
		default:
			// Non-breaking space and BOM.
			if lx.pos+1 < lx.end && lx.src[lx.pos] == 0xC2 && lx.src[lx.pos+1] == 0xA0 {
				lx.pos += 2
				continue
			}

			if lx.pos+2 < lx.end && lx.src[lx.pos:lx.pos+3] == "\xEF\xBB\xBF" {
				lx.pos += 3
				continue
			}

			return
		}
	}
}

func (lx *lexer) lineComment() {
	start := lx.pos
	for lx.pos < lx.end && lx.src[lx.pos] != '\n' {
		lx.pos++
	}

	lx.emit(ast.TokenComment, start)
	lx.comments = append(lx.comments, &ast.Comment{Start: start, End: lx.pos, Text: lx.src[start:lx.pos]})
}

func (lx *lexer) blockComment() {
	start := lx.pos
	lx.pos += 2

	for lx.pos < lx.end && !(lx.src[lx.pos] == '*' && lx.peek(1) == '/') {
		lx.pos++
	}

	if lx.pos < lx.end {
		lx.pos += 2
	}

	text := lx.src[start:lx.pos]
	doc := len(text) > 4 && text[2] == '*' && text[3] != '/'

	kind := ast.TokenComment
	if doc {
		kind = ast.TokenDocComment
	}

	lx.emit(kind, start)

	c := &ast.Comment{Start: start, End: lx.pos, Doc: doc, Text: text}
	if doc {
		c.Tags = ast.ParseDocTags(text, start)
	}

	lx.comments = append(lx.comments, c)
}

// regexAllowed decides whether a slash starts a regular expression literal
// from the previous significant token.
func (lx *lexer) regexAllowed() bool {
	for i := len(lx.tokens) - 1; i >= 0; i-- {
		t := lx.tokens[i]
		switch t.Kind {
		case ast.TokenComment, ast.TokenDocComment:
			continue
		case ast.TokenIdentifier, ast.TokenNumber, ast.TokenString, ast.TokenRegExp:
			return false
		case ast.TokenKeyword:
			switch t.Text {
			case "this", "super", "true", "false", "null":
				return false
			}

			return true
		case ast.TokenPunct:
			return t.Text != ")" && t.Text != "]"
		}

		return true
	}

	return true
}

func (lx *lexer) regexp() {
	start := lx.pos
	lx.pos++

	inClass := false

	for lx.pos < lx.end {
		c := lx.src[lx.pos]
		if c == '\n' {
			break
		}

		if c == '\\' {
			lx.pos += 2
			continue
		}

		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			lx.pos++
			break
		}

		lx.pos++
	}

	for lx.pos < lx.end && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}

	if lx.pos > lx.end {
		lx.pos = lx.end
	}

	lx.emit(ast.TokenRegExp, start)
}

func (lx *lexer) identifier() {
	start := lx.pos
	for lx.pos < lx.end && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}

	if Keywords[lx.src[start:lx.pos]] {
		lx.emit(ast.TokenKeyword, start)
		return
	}

	lx.emit(ast.TokenIdentifier, start)
}

func (lx *lexer) number() {
	start := lx.pos

	if lx.src[lx.pos] == '0' && (lx.peek(1) == 'x' || lx.peek(1) == 'X') {
		lx.pos += 2
		for lx.pos < lx.end && isHexDigit(lx.src[lx.pos]) {
			lx.pos++
		}

		lx.emit(ast.TokenNumber, start)

		return
	}

	for lx.pos < lx.end && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}

	if lx.pos < lx.end && lx.src[lx.pos] == '.' && isDigit(lx.peek(1)) {
		lx.pos++
		for lx.pos < lx.end && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}

	if lx.pos < lx.end && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		save := lx.pos
		lx.pos++

		if lx.pos < lx.end && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.pos++
		}

		if lx.pos < lx.end && isDigit(lx.src[lx.pos]) {
			for lx.pos < lx.end && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		} else {
			lx.pos = save
		}
	}

	lx.emit(ast.TokenNumber, start)
}

func (lx *lexer) str(quote byte) {
	start := lx.pos
	lx.pos++

	for lx.pos < lx.end {
		c := lx.src[lx.pos]
		if c == '\\' {
			lx.pos += 2
			continue
		}

		lx.pos++

		if c == quote || c == '\n' {
			break
		}
	}

	if lx.pos > lx.end {
		lx.pos = lx.end
	}

	lx.emit(ast.TokenString, start)
}

func (lx *lexer) punct() {
	start := lx.pos
	rest := lx.src[lx.pos:lx.end]

	for _, p := range punctuators {
		if len(rest) >= len(p) && rest[:len(p)] == p {
			lx.pos += len(p)
			lx.emit(ast.TokenPunct, start)

			return
		}
	}

	// Unknown byte: emit it so the parser can report and skip it.
	lx.pos++
	for lx.pos < lx.end && lx.src[lx.pos]&0xC0 == 0x80 {
		lx.pos++
	}

	lx.emit(ast.TokenPunct, start)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// IsIdentifier reports whether s is a valid, non-keyword identifier.
func IsIdentifier(s string) bool {
	if s == "" || Keywords[s] || !isIdentStart(s[0]) {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}

	return true
}
