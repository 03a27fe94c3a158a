package analysis

import (
	"fmt"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// Candidate priorities. Higher sorts first.
const (
	PriorityLocal   = 300
	PriorityMember  = 200
	PriorityGlobal  = 100
	PriorityKeyword = 0

	// BoostExact and BoostAncestor reward candidates matching the expected
	// type of a new expression. An exact match always outranks a subtype.
	BoostExact    = 50
	BoostAncestor = 25
)

const maxSubtypeDepth = 64

// Candidate is one completion proposal before it is rendered.
type Candidate struct {
	Label    string
	Kind     protocol.CompletionItemKind
	Detail   string
	Doc      string
	Priority int
	Def      *semantic.Definition

	// InsertText replaces the prefix; Label is used when empty.
	InsertText string
	Snippet    bool
	// Imports lists the qualified names the candidate needs imported.
	Imports []string
}

// Priority returns the base rank of a definition.
func Priority(d *semantic.Definition) int {
	switch d.Classification {
	case semantic.ClassLocal, semantic.ClassParameter:
		return PriorityLocal
	case semantic.ClassMember, semantic.ClassInterfaceMember:
		return PriorityMember
	}

	return PriorityGlobal
}

// Boost returns the bonus of type candidate d against the expected type.
func Boost(m semantic.Model, d, expected *semantic.Definition) int {
	if expected == nil || d == nil || !d.Kind.IsType() {
		return 0
	}

	if sameDefinition(d, expected) {
		return BoostExact
	}

	if IsSubtype(m, d, expected) {
		return BoostAncestor
	}

	return 0
}

func sameDefinition(a, b *semantic.Definition) bool {
	return a == b || a.QualifiedName != "" && a.QualifiedName == b.QualifiedName && a.Kind == b.Kind && a.Owner == b.Owner
}

// IsSubtype reports whether typ has ancestor among its base classes or
// implemented interfaces. A type is not its own subtype here.
func IsSubtype(m semantic.Model, typ, ancestor *semantic.Definition) bool {
	seen := make(map[*semantic.Definition]bool)
	queue := []*semantic.Definition{typ}

	for len(queue) > 0 && len(seen) < maxSubtypeDepth {
		cur := queue[0]
		queue = queue[1:]

		if seen[cur] {
			continue
		}

		seen[cur] = true

		next := m.Interfaces(cur)
		if base := m.BaseClass(cur); base != nil {
			next = append(next, base)
		}

		for _, n := range next {
			if sameDefinition(n, ancestor) {
				return true
			}

			queue = append(queue, n)
		}
	}

	return false
}

// NewCandidate converts a definition into a candidate with its base
// priority.
func NewCandidate(d *semantic.Definition) Candidate {
	c := Candidate{
		Label:    d.Name,
		Kind:     completionKind(d),
		Detail:   d.Signature(),
		Priority: Priority(d),
		Def:      d,
	}

	if d.Doc != nil {
		c.Doc = d.Doc.Summary()
	}

	return c
}

func completionKind(d *semantic.Definition) protocol.CompletionItemKind {
	switch d.Kind {
	case semantic.DefPackage:
		return protocol.CompletionItemKindModule
	case semantic.DefClass:
		return protocol.CompletionItemKindClass
	case semantic.DefInterface:
		return protocol.CompletionItemKindInterface
	case semantic.DefGetter, semantic.DefSetter:
		return protocol.CompletionItemKindProperty
	case semantic.DefConstant:
		return protocol.CompletionItemKindConstant
	case semantic.DefEvent:
		return protocol.CompletionItemKindEvent
	case semantic.DefStyle:
		return protocol.CompletionItemKindProperty
	case semantic.DefFunction:
		if d.IsConstructor() {
			return protocol.CompletionItemKindConstructor
		}

		if d.IsMember() {
			return protocol.CompletionItemKindMethod
		}

		return protocol.CompletionItemKindFunction
	case semantic.DefVariable:
		if d.IsMember() {
			return protocol.CompletionItemKindField
		}
	}

	return protocol.CompletionItemKindVariable
}

// SortText encodes the priority so that the editor keeps the ranking.
// Ties sort by label.
func SortText(priority int, label string) string {
	return fmt.Sprintf("%04d_%s", max(0, 9999-priority), strings.ToLower(label))
}

// SortCandidates orders candidates by descending priority, then label.
func SortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Priority != cands[j].Priority {
			return cands[i].Priority > cands[j].Priority
		}

		return strings.ToLower(cands[i].Label) < strings.ToLower(cands[j].Label)
	})
}

// ImportRange is where import statements of a unit live and where a new
// one is inserted.
type ImportRange struct {
	// Start and End span the existing imports, or both equal Insert.
	Start  int
	End    int
	Insert int
	// Indent precedes each inserted import line.
	Indent string
}

// ComputeImportRange locates the import block that applies at offset: the
// imports of the package or script block containing it, or the anchor
// right after the package brace or script block start when there are none.
func ComputeImportRange(u *semantic.Unit, offset int) ImportRange {
	text := u.Source

	var first, last *semantic.Import

	for i := range u.Imports {
		imp := &u.Imports[i]
		// Imports of another script block do not apply.
		if u.Kind == document.KindMarkup && u.Markup != nil && !sameScriptBlock(u, imp.Start, offset) {
			continue
		}

		if first == nil {
			first = imp
		}

		last = imp
	}

	if last != nil {
		end := lineEnd(text, last.End)

		return ImportRange{Start: lineStart(text, first.Start), End: end, Insert: end, Indent: indentAt(text, last.Start)}
	}

	anchor := u.ImportAnchor
	if anchor < 0 {
		anchor = 0
	}

	indent := indentAfter(text, anchor)
	if indent == "" && anchor > 0 && u.Kind == document.KindScript {
		indent = "\t"
	}

	return ImportRange{Start: anchor, End: anchor, Insert: anchor, Indent: indent}
}

func sameScriptBlock(u *semantic.Unit, a, b int) bool {
	for _, t := range u.Markup.Tags {
		if !t.IsScript() {
			continue
		}

		r := t.EmbeddedRegion()
		if r.Contains(a) {
			return r.Contains(b) || !insideAnyScript(u, b)
		}
	}

	return false
}

func insideAnyScript(u *semantic.Unit, offset int) bool {
	for _, t := range u.Markup.Tags {
		if t.IsScript() && t.EmbeddedRegion().Contains(offset) {
			return true
		}
	}

	return false
}

// ImportEdit returns the text edit adding an import of qname.
func ImportEdit(u *semantic.Unit, r ImportRange, qname string) protocol.TextEdit {
	line := r.Indent + "import " + qname + ";"

	newText := "\n" + line
	if r.Insert == 0 && len(u.Imports) == 0 {
		newText = line + "\n"
	}

	return protocol.TextEdit{
		Range:   document.OffsetRange(u.Source, r.Insert, r.Insert),
		NewText: newText,
	}
}

// NeedsImport reports whether referencing d by simple name from u requires
// a new import: not for the top level package, the unit's own package, the
// unit itself, or names already imported.
func NeedsImport(u *semantic.Unit, d *semantic.Definition) bool {
	if d == nil || d.Classification != semantic.ClassPackageMember {
		return false
	}

	switch {
	case d.Package == "":
		return false
	case d.Package == u.Package:
		return false
	case d.Unit == u:
		return false
	}

	return !u.Imported(d.QualifiedName)
}

func lineStart(text string, offset int) int {
	offset = min(offset, len(text))
	if i := strings.LastIndexByte(text[:offset], '\n'); i >= 0 {
		return i + 1
	}

	return 0
}

func lineEnd(text string, offset int) int {
	offset = min(offset, len(text))
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		end := offset + i
		if end > 0 && text[end-1] == '\r' {
			end--
		}

		return end
	}

	return len(text)
}

func indentAt(text string, offset int) string {
	start := lineStart(text, offset)
	end := start

	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}

	return text[start:end]
}

// indentAfter returns the indentation of the first non-blank line after
// offset.
func indentAfter(text string, offset int) string {
	i := offset
	for i < len(text) && isSpace(text[i]) {
		i++
	}

	if i >= len(text) {
		return ""
	}

	return indentAt(text, i)
}
