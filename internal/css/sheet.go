// Package css models the stylesheets found in fx:Style blocks and .css
// files: namespace declarations, rules with their type selectors, and
// property declarations. All offsets are absolute in the host document.
package css

import "strings"

// Namespace is an @namespace declaration.
type Namespace struct {
	Prefix string
	URI    string
	Start  int
	End    int
}

// TypeSelector is one type selector inside a selector, such as s|Button.
type TypeSelector struct {
	Prefix string
	Name   string
	// Start and End delimit Name.
	Start int
	End   int
}

// Selector is one comma-separated selector of a rule.
type Selector struct {
	Start   int
	End     int
	Types   []TypeSelector
	Classes []string
	States  []string
}

// Declaration is a "property: value" pair.
type Declaration struct {
	Property   string
	PropStart  int
	PropEnd    int
	Value      string
	ValueStart int
	ValueEnd   int
}

// Rule is a selector list with its declaration block. BlockStart is the
// offset of '{' (-1 when missing) and BlockEnd the offset of '}', or the end
// of the sheet for an unterminated block.
type Rule struct {
	Start        int
	End          int
	Selectors    []*Selector
	BlockStart   int
	BlockEnd     int
	Declarations []*Declaration
}

// Sheet is a parsed stylesheet region.
type Sheet struct {
	Source     string
	Start      int
	End        int
	Namespaces []Namespace
	Rules      []*Rule
	// Comments lists the ranges of /* */ comments.
	Comments [][2]int
	// Recovered is set when the sheet had syntax errors and was rebuilt by
	// the lenient scanner.
	Recovered bool
}

// NamespaceURI resolves a selector prefix. The empty prefix resolves to the
// default namespace when one is declared.
func (s *Sheet) NamespaceURI(prefix string) (string, bool) {
	for _, ns := range s.Namespaces {
		if ns.Prefix == prefix {
			return ns.URI, true
		}
	}

	return "", false
}

// LocationKind tells what part of a stylesheet an offset is in.
type LocationKind uint8

const (
	LocNone LocationKind = iota
	LocSelector
	LocProperty
	LocValue
)

// Location describes an offset within a sheet.
type Location struct {
	Kind LocationKind
	Rule *Rule
	// Type is the type selector under the offset, if any.
	Type *TypeSelector
	// Declaration is the declaration under the offset, if any.
	Declaration *Declaration
	// Prefix is the partial word typed before the offset.
	Prefix string
	// WordStart is where the partial word starts.
	WordStart int
}

// At classifies offset.
func (s *Sheet) At(offset int) Location {
	if offset < s.Start || offset > s.End {
		return Location{}
	}

	for _, c := range s.Comments {
		if c[0] < offset && offset < c[1] {
			return Location{}
		}
	}

	for _, ns := range s.Namespaces {
		if ns.Start <= offset && offset <= ns.End {
			return Location{}
		}
	}

	loc := Location{WordStart: s.wordStart(offset)}
	loc.Prefix = s.Source[loc.WordStart:offset]

	for _, r := range s.Rules {
		if offset < r.Start || offset > r.End {
			continue
		}

		loc.Rule = r

		if r.BlockStart >= 0 && offset > r.BlockStart && offset <= r.BlockEnd {
			return s.inBlock(loc, r, offset)
		}

		if r.BlockStart < 0 || offset <= r.BlockStart {
			loc.Kind = LocSelector
			loc.Type = typeAt(r, offset)

			return loc
		}
	}

	loc.Kind = LocSelector

	return loc
}

func (s *Sheet) inBlock(loc Location, r *Rule, offset int) Location {
	for _, d := range r.Declarations {
		if d.PropStart <= offset && offset <= d.PropEnd {
			loc.Kind = LocProperty
			loc.Declaration = d

			return loc
		}

		if d.ValueStart >= 0 && d.ValueStart <= offset && offset <= d.ValueEnd {
			loc.Kind = LocValue
			loc.Declaration = d

			return loc
		}
	}

	// Between declarations: a property name is expected unless a colon
	// precedes the offset on the current declaration.
	i := offset - 1
	for i > r.BlockStart && s.Source[i] != ';' && s.Source[i] != '{' && s.Source[i] != ':' {
		i--
	}

	if i > r.BlockStart && s.Source[i] == ':' {
		loc.Kind = LocValue
		return loc
	}

	loc.Kind = LocProperty

	return loc
}

func typeAt(r *Rule, offset int) *TypeSelector {
	for _, sel := range r.Selectors {
		for i := range sel.Types {
			t := &sel.Types[i]
			if t.Start <= offset && offset <= t.End {
				return t
			}
		}
	}

	return nil
}

func (s *Sheet) wordStart(offset int) int {
	i := offset
	for i > s.Start && isWordByte(s.Source[i-1]) {
		i--
	}

	return i
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// parseSelector splits the selector text src[start:end] into its type
// selectors, class names and pseudo states.
func parseSelector(src string, start, end int) *Selector {
	sel := &Selector{Start: start, End: end}

	i := start
	for i < end {
		c := src[i]

		switch {
		case c == '.' || c == ':' || c == '#':
			j := i + 1
			for j < end && (src[j] == ':' || isWordByte(src[j])) {
				j++
			}

			word := strings.TrimLeft(src[i+1:j], ":")

			switch c {
			case '.':
				sel.Classes = append(sel.Classes, word)
			case ':':
				sel.States = append(sel.States, word)
			}

			i = j
		case isWordByte(c) || c == '|' || c == '*':
			j := i
			for j < end && (isWordByte(src[j]) || src[j] == '|' || src[j] == '*') {
				j++
			}

			word := src[i:j]
			ts := TypeSelector{Name: word, Start: i, End: j}

			if k := strings.IndexByte(word, '|'); k >= 0 {
				ts.Prefix = word[:k]
				ts.Name = word[k+1:]
				ts.Start = i + k + 1
			}

			if ts.Name != "*" {
				sel.Types = append(sel.Types, ts)
			}

			i = j
		default:
			i++
		}
	}

	return sel
}
