package analysis

import (
	"path/filepath"
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// tagNameRange returns the range of the local name of t's start tag,
// without the namespace prefix.
func tagNameRange(t *mxml.Tag) (int, int) {
	start := t.NameStart
	if t.Prefix != "" {
		start += len(t.Prefix) + 1
	}

	return start, t.NameEnd
}

// closeNameRange returns the local name range of t's end tag.
func closeNameRange(t *mxml.Tag) (int, int, bool) {
	if t.CloseName.Empty() {
		return 0, 0, false
	}

	start := t.CloseName.Start
	if t.Prefix != "" {
		start += len(t.Prefix) + 1
	}

	return start, t.CloseName.End, true
}

// attrNameRange returns the range of the base name of a, without prefix
// and state suffix.
func attrNameRange(a *mxml.Attr) (int, int) {
	start := a.NameStart
	if p := a.Prefix(); p != "" {
		start += len(p) + 1
	}

	return start, start + len(a.BaseName())
}

// propertyTag returns the member set by a child tag written as a property
// of its parent, as in <s:Button><s:label>..</s:label></s:Button>.
func propertyTag(m semantic.Model, u *semantic.Unit, t *mxml.Tag) *semantic.Definition {
	if t.Parent == nil || t.IsLanguageTag() || t.URI != t.Parent.URI {
		return nil
	}

	parent := m.TagClass(u, t.Parent)
	if parent == nil {
		return nil
	}

	if d := m.Member(parent, t.Name); d != nil && !d.Kind.IsType() {
		return d
	}

	return nil
}

// tagTarget returns what a tag name denotes: a property of the parent
// class, or the class the tag instantiates.
func tagTarget(m semantic.Model, u *semantic.Unit, t *mxml.Tag) *semantic.Definition {
	if d := propertyTag(m, u, t); d != nil {
		return d
	}

	return m.TagClass(u, t)
}

// attrTarget returns the property, event or style an attribute sets.
func attrTarget(m semantic.Model, u *semantic.Unit, t *mxml.Tag, a *mxml.Attr) *semantic.Definition {
	if strings.HasPrefix(a.Name, "xmlns") || a.Prefix() != "" {
		return nil
	}

	cls := m.TagClass(u, t)
	if cls == nil {
		return nil
	}

	name := a.BaseName()

	if name == "id" {
		return nil
	}

	if d := m.Member(cls, name); d != nil {
		return d
	}

	for _, kind := range []semantic.DefKind{semantic.DefEvent, semantic.DefStyle} {
		for _, d := range m.Metadata(cls, kind) {
			if d.Name == name {
				return d
			}
		}
	}

	return nil
}

// sourceAttrPath resolves the source attribute of fx:Script and fx:Style
// relative to the document.
func sourceAttrPath(u *semantic.Unit, t *mxml.Tag, a *mxml.Attr) (string, bool) {
	if a.Name != "source" || !a.HasValue() || a.Value == "" || !(t.IsScript() || t.IsStyle()) {
		return "", false
	}

	if filepath.IsAbs(a.Value) {
		return a.Value, true
	}

	return filepath.Join(filepath.Dir(u.Path), filepath.FromSlash(a.Value)), true
}

// selectorClass returns the class a stylesheet type selector names.
func selectorClass(m semantic.Model, sheet *css.Sheet, ts *css.TypeSelector) *semantic.Definition {
	if ts == nil || ts.Name == "" || ts.Name == "global" {
		return nil
	}

	uri, ok := sheet.NamespaceURI(ts.Prefix)
	if !ok {
		return m.FindQualified(ts.Name)
	}

	qname, ok := m.Registry().ClassFor(uri, ts.Name)
	if !ok {
		return nil
	}

	return m.FindQualified(qname)
}

// ruleClass returns the class a rule styles, taken from its first type
// selector.
func ruleClass(m semantic.Model, sheet *css.Sheet, r *css.Rule) *semantic.Definition {
	if r == nil {
		return nil
	}

	for _, sel := range r.Selectors {
		for i := range sel.Types {
			if cls := selectorClass(m, sheet, &sel.Types[i]); cls != nil {
				return cls
			}
		}
	}

	return nil
}

// globalStyleClass hosts the styles offered for selectors without a type.
const globalStyleClass = "mx.core.UIComponent"

// styleNamed finds the style metadata definition for a property name. CSS
// property names may be written hyphenated.
func styleNamed(m semantic.Model, cls *semantic.Definition, property string) *semantic.Definition {
	if cls == nil {
		cls = m.FindQualified(globalStyleClass)
	}

	if cls == nil {
		return nil
	}

	name := camelStyleName(property)

	for _, d := range m.Metadata(cls, semantic.DefStyle) {
		if d.Name == name {
			return d
		}
	}

	return nil
}

// camelStyleName converts "font-size" to "fontSize".
func camelStyleName(property string) string {
	if !strings.Contains(property, "-") {
		return property
	}

	parts := strings.Split(property, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}

	return strings.Join(parts, "")
}

// stateNames lists the states declared by <s:states><s:State name=".."/>
// on the root tag.
func stateNames(u *semantic.Unit) []string {
	if u.Markup == nil || u.Markup.Root == nil {
		return nil
	}

	var out []string

	for _, c := range u.Markup.Root.Children {
		if c.Name != "states" {
			continue
		}

		for _, s := range c.Children {
			if name, ok := s.AttrValue("name"); ok && s.Name == "State" && name != "" {
				out = append(out, name)
			}
		}
	}

	return out
}

// defaultProperty returns the [DefaultProperty] of cls or its ancestors.
func defaultProperty(m semantic.Model, cls *semantic.Definition) string {
	for cur, depth := cls, 0; cur != nil && depth < maxSubtypeDepth; cur, depth = m.BaseClass(cur), depth+1 {
		for _, md := range cur.MetadataNamed("DefaultProperty") {
			if v, ok := md.Arg(""); ok {
				return v
			}
		}
	}

	return ""
}

// enumeration returns the values listed by the enumeration argument of the
// [Inspectable] or [Style] metadata of d.
func enumeration(d *semantic.Definition) []string {
	for _, md := range d.Metadata {
		if md.Name != "Inspectable" && md.Name != "Style" {
			continue
		}

		if v, ok := md.Arg("enumeration"); ok && v != "" {
			var out []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}

			return out
		}
	}

	return nil
}

// navigable reports whether locations in u can be opened by an editor.
// Builtin and archive units have no file behind them.
func navigable(u *semantic.Unit) bool {
	return u != nil && strings.HasPrefix(u.URI, "file://") && u.Kind != document.KindUnknown
}
