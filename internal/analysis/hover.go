package analysis

import (
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// Hover describes the symbol at pos: its declaration, the class that owns
// it and the summary of its documentation. It returns nil when nothing
// resolves.
func Hover(m semantic.Model, pos *Position) *protocol.Hover {
	t := ResolveTarget(m, pos)
	if t == nil {
		return nil
	}

	var value string

	if t.File != "" {
		value = fmt.Sprintf("```\n%s\n```", t.File)
	} else {
		value = HoverText(t.Def)
	}

	r := document.OffsetRange(pos.Text, t.Start, t.End)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
		Range:    &r,
	}
}

// HoverText renders the markdown shown for d.
func HoverText(d *semantic.Definition) string {
	var sb strings.Builder

	sb.WriteString("```actionscript\n")
	sb.WriteString(d.Signature())
	sb.WriteString("\n```")

	switch {
	case d.Owner != nil && d.Kind != semantic.DefParameter && d.Classification != semantic.ClassLocal:
		fmt.Fprintf(&sb, "\n\n*%s of* `%s`", d.Kind, d.Owner.QualifiedName)
	case d.Kind == semantic.DefEvent || d.Kind == semantic.DefStyle:
		fmt.Fprintf(&sb, "\n\n*%s*", d.Kind)
	}

	if d.Doc != nil {
		if summary := d.Doc.Summary(); summary != "" {
			sb.WriteString("\n\n")
			sb.WriteString(summary)
		}
	}

	if d.ReadOnly() && d.Unit != nil {
		fmt.Fprintf(&sb, "\n\n*from* `%s`", d.Unit.URI)
	}

	return sb.String()
}
