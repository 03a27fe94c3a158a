package css

import (
	"strings"

	"github.com/tliron/commonlog"
	tree_sitter_scss "github.com/tree-sitter-grammars/tree-sitter-scss/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var log = commonlog.GetLogger("as3-lsp.css")

// Parse parses the stylesheet in src[start:end]. Offsets in the result are
// absolute in src. Regions with syntax errors are rebuilt by a lenient
// scanner so that half-typed rules still classify.
func Parse(src string, start, end int) *Sheet {
	start = max(0, start)
	end = min(end, len(src))

	sheet := &Sheet{Source: src, Start: start, End: end}
	if end <= start {
		return sheet
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_scss.Language())); err != nil {
		log.Errorf("scss parser unavailable: %s", err)
		scanSheet(sheet)

		return sheet
	}

	content := []byte(src[start:end])

	tree := parser.Parse(content, nil)
	if tree == nil {
		scanSheet(sheet)
		return sheet
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		scanSheet(sheet)
		return sheet
	}

	b := &sheetBuilder{sheet: sheet, src: content, base: start}
	b.visit(root)

	return sheet
}

type sheetBuilder struct {
	sheet *Sheet
	src   []byte
	base  int
}

func (b *sheetBuilder) span(n *tree_sitter.Node) (int, int) {
	return b.base + int(n.StartByte()), b.base + int(n.EndByte())
}

func (b *sheetBuilder) visit(n *tree_sitter.Node) {
	switch n.Kind() {
	case "comment":
		s, e := b.span(n)
		b.sheet.Comments = append(b.sheet.Comments, [2]int{s, e})

		return
	case "namespace_statement":
		b.namespace(n)
		return
	case "at_rule":
		if start, _ := b.span(n); strings.HasPrefix(b.sheet.Source[start:], "@namespace") {
			scanNamespace(b.sheet, start)
			return
		}
	case "rule_set":
		b.rule(n)
		return
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		b.visit(n.Child(i))
	}
}

func (b *sheetBuilder) namespace(n *tree_sitter.Node) {
	ns := Namespace{}
	ns.Start, ns.End = b.span(n)

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)

		switch child.Kind() {
		case "namespace_name", "identifier":
			ns.Prefix = child.Utf8Text(b.src)
		case "string_value", "call_expression":
			ns.URI = strings.Trim(child.Utf8Text(b.src), `"'`)
			ns.URI = strings.TrimSuffix(strings.TrimPrefix(ns.URI, "url("), ")")
			ns.URI = strings.Trim(ns.URI, `"'`)
		}
	}

	b.sheet.Namespaces = append(b.sheet.Namespaces, ns)
}

func (b *sheetBuilder) rule(n *tree_sitter.Node) {
	r := &Rule{BlockStart: -1}
	r.Start, r.End = b.span(n)
	r.BlockEnd = r.End

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)

		switch child.Kind() {
		case "selectors":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				sel := child.NamedChild(j)
				s, e := b.span(sel)
				r.Selectors = append(r.Selectors, parseSelector(b.sheet.Source, s, e))
			}
		case "block":
			s, e := b.span(child)
			r.BlockStart = s
			r.BlockEnd = e - 1

			for j := uint(0); j < child.NamedChildCount(); j++ {
				if d := child.NamedChild(j); d.Kind() == "declaration" {
					r.Declarations = append(r.Declarations, b.declaration(d))
				}
			}
		}
	}

	b.sheet.Rules = append(b.sheet.Rules, r)
}

func (b *sheetBuilder) declaration(n *tree_sitter.Node) *Declaration {
	d := &Declaration{ValueStart: -1, ValueEnd: -1}
	start, end := b.span(n)

	if prop := n.ChildByFieldName("property"); prop != nil {
		d.PropStart, d.PropEnd = b.span(prop)
	} else if n.NamedChildCount() > 0 && n.NamedChild(0).Kind() == "property_name" {
		d.PropStart, d.PropEnd = b.span(n.NamedChild(0))
	} else {
		d.PropStart, d.PropEnd = start, start
	}

	d.Property = b.sheet.Source[d.PropStart:d.PropEnd]

	colon := strings.IndexByte(b.sheet.Source[d.PropEnd:end], ':')
	if colon >= 0 {
		valueEnd := end
		if valueEnd > d.PropEnd && b.sheet.Source[valueEnd-1] == ';' {
			valueEnd--
		}

		d.ValueStart = d.PropEnd + colon + 1
		d.ValueEnd = max(d.ValueStart, valueEnd)
		d.Value = strings.TrimSpace(b.sheet.Source[d.ValueStart:d.ValueEnd])
	}

	return d
}

// scanSheet fills sheet with a lenient scan of its region.
func scanSheet(sheet *Sheet) {
	sheet.Recovered = true
	src := sheet.Source
	i := sheet.Start

	for i < sheet.End {
		c := src[i]

		switch {
		case isCSSSpace(c):
			i++
		case strings.HasPrefix(src[i:sheet.End], "/*"):
			end := strings.Index(src[i+2:sheet.End], "*/")
			if end < 0 {
				sheet.Comments = append(sheet.Comments, [2]int{i, sheet.End})
				i = sheet.End

				continue
			}

			sheet.Comments = append(sheet.Comments, [2]int{i, i + 2 + end + 2})
			i += 2 + end + 2
		case strings.HasPrefix(src[i:sheet.End], "@namespace"):
			i = scanNamespace(sheet, i)
		case c == '@':
			i = skipStatement(src, i, sheet.End)
		default:
			i = scanRule(sheet, i)
		}
	}
}

func scanNamespace(sheet *Sheet, start int) int {
	src := sheet.Source

	end := strings.IndexByte(src[start:sheet.End], ';')
	stop := sheet.End
	if end >= 0 {
		stop = start + end + 1
	}

	fields := strings.Fields(strings.TrimSuffix(src[start+len("@namespace"):stop], ";"))
	ns := Namespace{Start: start, End: stop}

	switch len(fields) {
	case 1:
		ns.URI = strings.Trim(fields[0], `"'`)
	case 2:
		ns.Prefix = fields[0]
		ns.URI = strings.Trim(fields[1], `"'`)
	}

	sheet.Namespaces = append(sheet.Namespaces, ns)

	return stop
}

func skipStatement(src string, i, end int) int {
	for i < end && src[i] != ';' && src[i] != '{' {
		i++
	}

	if i < end && src[i] == '{' {
		depth := 0
		for i < end {
			switch src[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return i + 1
				}
			}
			i++
		}

		return end
	}

	return min(i+1, end)
}

func scanRule(sheet *Sheet, start int) int {
	src := sheet.Source
	r := &Rule{Start: start, BlockStart: -1, BlockEnd: sheet.End, End: sheet.End}

	open := strings.IndexByte(src[start:sheet.End], '{')

	selEnd := sheet.End
	if open >= 0 {
		selEnd = start + open
		r.BlockStart = selEnd
	}

	pos := start
	for _, part := range strings.Split(src[start:selEnd], ",") {
		s, e := pos, pos+len(part)
		for s < e && isCSSSpace(src[s]) {
			s++
		}

		for e > s && isCSSSpace(src[e-1]) {
			e--
		}

		r.Selectors = append(r.Selectors, parseSelector(src, s, e))
		pos += len(part) + 1
	}

	sheet.Rules = append(sheet.Rules, r)

	if r.BlockStart < 0 {
		return sheet.End
	}

	i := r.BlockStart + 1
	for i < sheet.End && src[i] != '}' {
		for i < sheet.End && (isCSSSpace(src[i]) || src[i] == ';') {
			i++
		}

		if i >= sheet.End || src[i] == '}' {
			break
		}

		d := &Declaration{PropStart: i, ValueStart: -1, ValueEnd: -1}
		for i < sheet.End && isWordByte(src[i]) {
			i++
		}

		d.PropEnd = i
		d.Property = src[d.PropStart:d.PropEnd]

		for i < sheet.End && src[i] != ':' && src[i] != ';' && src[i] != '}' {
			i++
		}

		if i < sheet.End && src[i] == ':' {
			d.ValueStart = i + 1
			for i < sheet.End && src[i] != ';' && src[i] != '}' {
				i++
			}

			d.ValueEnd = i
			d.Value = strings.TrimSpace(src[d.ValueStart:d.ValueEnd])
		}

		if d.PropEnd == d.PropStart && d.ValueStart < 0 {
			if i < sheet.End && src[i] != '}' {
				i++
			}

			continue
		}

		r.Declarations = append(r.Declarations, d)
	}

	if i < sheet.End {
		r.BlockEnd = i
		r.End = i + 1
	}

	return r.End
}

func isCSSSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
