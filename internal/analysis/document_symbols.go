package analysis

import (
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// SymbolKind maps a definition kind to the protocol symbol kind.
func SymbolKind(d *semantic.Definition) protocol.SymbolKind {
	switch d.Kind {
	case semantic.DefPackage:
		return protocol.SymbolKindPackage
	case semantic.DefClass:
		return protocol.SymbolKindClass
	case semantic.DefInterface:
		return protocol.SymbolKindInterface
	case semantic.DefFunction:
		if d.IsConstructor() {
			return protocol.SymbolKindConstructor
		}

		if d.IsMember() {
			return protocol.SymbolKindMethod
		}

		return protocol.SymbolKindFunction
	case semantic.DefGetter, semantic.DefSetter:
		return protocol.SymbolKindProperty
	case semantic.DefConstant:
		return protocol.SymbolKindConstant
	case semantic.DefEvent:
		return protocol.SymbolKindEvent
	case semantic.DefStyle:
		return protocol.SymbolKindProperty
	case semantic.DefVariable:
		if d.IsMember() {
			return protocol.SymbolKindField
		}
	}

	return protocol.SymbolKindVariable
}

// DocumentSymbols returns the outline of a unit: package level definitions
// with their members nested below them.
func DocumentSymbols(u *semantic.Unit) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	if u == nil {
		return symbols
	}

	for _, d := range u.Definitions {
		if d.Owner != nil || d.IsLocal() && d.Classification != semantic.ClassFileMember {
			continue
		}

		if sym, ok := documentSymbol(u, d); ok {
			symbols = append(symbols, sym)
		}
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		return comparePositions(symbols[i].Range.Start, symbols[j].Range.Start)
	})

	return symbols
}

func documentSymbol(u *semantic.Unit, d *semantic.Definition) (protocol.DocumentSymbol, bool) {
	if d.Name == "" || strings.HasPrefix(d.Name, "@") || d.Kind == semantic.DefParameter {
		return protocol.DocumentSymbol{}, false
	}

	start, end := d.Start, d.End
	nameStart, nameEnd := d.NameStart, d.NameEnd

	if d.Synthetic && d.Kind.IsType() {
		start, end = 0, len(u.Source)
		nameStart, nameEnd = 0, 0
	}

	if end < nameEnd {
		end = nameEnd
	}

	sym := protocol.DocumentSymbol{
		Name:           d.Name,
		Kind:           SymbolKind(d),
		Range:          document.OffsetRange(u.Source, start, end),
		SelectionRange: document.OffsetRange(u.Source, nameStart, nameEnd),
	}

	if detail := symbolDetail(d); detail != "" {
		sym.Detail = &detail
	}

	if d.Kind.IsType() {
		for _, member := range d.Members {
			if member.Unit != u {
				continue
			}

			if child, ok := documentSymbol(u, member); ok {
				sym.Children = append(sym.Children, child)
			}
		}
	}

	return sym, true
}

// symbolDetail is the short type information shown beside a symbol.
func symbolDetail(d *semantic.Definition) string {
	switch {
	case d.Kind.IsType():
		return d.Package
	case d.Kind.IsFunction():
		var params []string
		for _, p := range d.Params {
			params = append(params, p.Name+":"+orAny(p.TypeName))
		}

		detail := "(" + strings.Join(params, ", ") + ")"
		if d.TypeName != "" {
			detail += ":" + d.TypeName
		}

		return detail
	default:
		return d.TypeName
	}
}

func orAny(typeName string) string {
	if typeName == "" {
		return "*"
	}

	return typeName
}

func comparePositions(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Character < b.Character
}
