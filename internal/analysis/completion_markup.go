package analysis

import (
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// componentTags returns "Name" -> qualified class for the components of a
// namespace: the manifest entries, or the classes of a package namespace.
func componentTags(m semantic.Model, uri string) map[string]string {
	out := make(map[string]string)

	if pkg, ok := mxml.PackageOfNamespace(uri); ok {
		for _, d := range m.PackageDefinitions(pkg) {
			if d.Kind == semantic.DefClass && d.Visibility == semantic.Public {
				out[d.Name] = d.QualifiedName
			}
		}

		return out
	}

	manifest, ok := m.Registry().Manifest(uri)
	if !ok {
		return out
	}

	for _, tag := range manifest.Tags() {
		if class, ok := manifest.Class(tag); ok {
			out[tag] = class
		}
	}

	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func qualifiedTag(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + ":" + name
}

// tagNames offers child elements: property tags of the parent class, and
// components when the parent accepts children.
func (c *completer) tagNames() {
	doc := c.u.Markup
	if doc == nil {
		return
	}

	parent := c.cc.ParentTag
	namespaces := doc.Namespaces()

	acceptsChildren := parent == nil

	if parent != nil {
		if mxml.IsLanguageNamespace(parent.URI) {
			acceptsChildren = parent.Name == "Declarations"
		} else if cls := c.m.TagClass(c.u, parent); cls != nil {
			acceptsChildren = defaultProperty(c.m, cls) != ""
			c.propertyTags(parent, cls)
		}
	}

	if parent != nil && parent == doc.Root {
		if prefix, ok := doc.PrefixFor(mxml.LanguageNamespace); ok {
			names := mxml.LanguageTagNames()
			sort.Strings(names)

			for _, name := range names {
				c.add(Candidate{Label: qualifiedTag(prefix, name), Kind: protocol.CompletionItemKindKeyword, Detail: "language tag", Priority: PriorityMember})
			}
		}
	}

	if !acceptsChildren {
		return
	}

	prefixes := make([]string, 0, len(namespaces))
	for prefix := range namespaces {
		prefixes = append(prefixes, prefix)
	}

	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		tags := componentTags(c.m, namespaces[prefix])

		for _, name := range sortedKeys(tags) {
			cand := Candidate{Label: qualifiedTag(prefix, name), Kind: protocol.CompletionItemKindClass, Detail: tags[name], Priority: PriorityGlobal}
			if d := c.m.FindQualified(tags[name]); d != nil {
				cand.Def = d
				if d.Doc != nil {
					cand.Doc = d.Doc.Summary()
				}
			}

			c.add(cand)
		}
	}
}

// propertyTags offers the writable members of cls as child elements in
// the parent's namespace.
func (c *completer) propertyTags(parent *mxml.Tag, cls *semantic.Definition) {
	for _, d := range writableMembers(c.m, cls) {
		cand := NewCandidate(d)
		cand.Label = qualifiedTag(parent.Prefix, d.Name)
		cand.Priority = PriorityMember
		c.add(cand)
	}
}

// writableMembers lists the public instance variables and setters of cls,
// each name once.
func writableMembers(m semantic.Model, cls *semantic.Definition) []*semantic.Definition {
	var out []*semantic.Definition

	seen := make(map[string]bool)

	for _, d := range m.AllMembers(cls) {
		if d.Static || d.Visibility != semantic.Public || seen[d.Name] || d.Name == "" {
			continue
		}

		switch d.Kind {
		case semantic.DefVariable, semantic.DefSetter:
		default:
			continue
		}

		seen[d.Name] = true
		out = append(out, d)
	}

	return out
}

// attributeNames offers properties, events and styles of the tag's class
// that are not set yet.
func (c *completer) attributeNames() {
	tag := c.cc.ParentTag
	if tag == nil {
		return
	}

	present := make(map[string]bool)

	for _, a := range tag.Attrs {
		if a != c.cc.Pos.Attr {
			present[a.BaseName()] = true
		}
	}

	snippet := c.cc.Pos.Attr == nil || !c.cc.Pos.Attr.HasValue()

	add := func(cand Candidate) {
		if present[cand.Label] {
			return
		}

		if snippet {
			cand.InsertText = cand.Label + "=\"$0\""
			cand.Snippet = true
		}

		c.add(cand)
	}

	if tag.IsScript() || tag.IsStyle() {
		add(Candidate{Label: "source", Kind: protocol.CompletionItemKindProperty, Priority: PriorityMember})
		return
	}

	cls := c.m.TagClass(c.u, tag)
	if cls == nil {
		return
	}

	for _, d := range writableMembers(c.m, cls) {
		add(NewCandidate(d))
	}

	for _, kind := range []semantic.DefKind{semantic.DefEvent, semantic.DefStyle} {
		for _, d := range c.m.Metadata(cls, kind) {
			add(NewCandidate(d))
		}
	}

	for _, name := range []string{"id", "includeIn", "excludeFrom"} {
		add(Candidate{Label: name, Kind: protocol.CompletionItemKindKeyword, Priority: PriorityGlobal})
	}
}

// attributeValues offers Boolean literals, enumerated values and state
// names for the attribute under the cursor.
func (c *completer) attributeValues() {
	tag, attr := c.cc.ParentTag, c.cc.Pos.Attr
	if tag == nil || attr == nil {
		return
	}

	if attr.BaseName() == "currentState" {
		c.states()
		return
	}

	d := attrTarget(c.m, c.u, tag, attr)
	if d == nil {
		return
	}

	for _, v := range enumeration(d) {
		c.addValue(v, protocol.CompletionItemKindEnumMember)
	}

	if isBoolean(c.m, d) {
		c.addValue("true", protocol.CompletionItemKindValue)
		c.addValue("false", protocol.CompletionItemKindValue)
	}
}

func isBoolean(m semantic.Model, d *semantic.Definition) bool {
	if d.Kind == semantic.DefStyle || d.Kind == semantic.DefEvent {
		return d.TypeName == "Boolean"
	}

	t := m.DeclaredType(d)

	return t != nil && t.Def != nil && t.Def.QualifiedName == "Boolean"
}

// states offers the state names of the document.
func (c *completer) states() {
	for _, name := range stateNames(c.u) {
		c.addValue(name, protocol.CompletionItemKindEnumMember)
	}
}

// styleSelectors offers the components of the namespaces declared in the
// sheet as type selectors.
func (c *completer) styleSelectors() {
	loc := c.cc.Style
	sheet := c.cc.Pos.Sheet

	if loc.Type != nil && loc.Type.Prefix != "" {
		uri, ok := sheet.NamespaceURI(loc.Type.Prefix)
		if !ok {
			return
		}

		tags := componentTags(c.m, uri)
		for _, name := range sortedKeys(tags) {
			c.add(Candidate{Label: name, Kind: protocol.CompletionItemKindClass, Detail: tags[name], Priority: PriorityGlobal})
		}

		return
	}

	for _, ns := range sheet.Namespaces {
		tags := componentTags(c.m, ns.URI)

		for _, name := range sortedKeys(tags) {
			label := name
			if ns.Prefix != "" {
				label = ns.Prefix + "|" + name
			}

			cand := Candidate{Label: label, Kind: protocol.CompletionItemKindClass, Detail: tags[name], Priority: PriorityGlobal}
			if ns.Prefix != "" && !MatchPrefix(label, c.cc.Prefix) && MatchPrefix(name, c.cc.Prefix) {
				// The prefix is matched against the local name.
				cand.InsertText = label
				cand.Label = name
			}

			c.add(cand)
		}
	}

	c.add(Candidate{Label: "global", Kind: protocol.CompletionItemKindKeyword, Priority: PriorityKeyword})
}

// styleProperties offers the styles of the rule's class in CSS spelling.
func (c *completer) styleProperties() {
	cls := ruleClass(c.m, c.cc.Pos.Sheet, c.cc.Style.Rule)
	if cls == nil {
		cls = c.m.FindQualified(globalStyleClass)
	}

	if cls == nil {
		return
	}

	for _, d := range c.m.Metadata(cls, semantic.DefStyle) {
		cand := NewCandidate(d)
		cand.Kind = protocol.CompletionItemKindProperty
		cand.InsertText = d.Name + ": "
		c.add(cand)

		if hyphen := hyphenStyleName(d.Name); hyphen != d.Name {
			alt := cand
			alt.Label = hyphen
			alt.InsertText = hyphen + ": "
			alt.Priority--
			c.add(alt)
		}
	}
}

// hyphenStyleName converts "fontSize" to "font-size".
func hyphenStyleName(name string) string {
	var sb strings.Builder

	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'A' && ch <= 'Z' {
			sb.WriteByte('-')
			sb.WriteByte(ch - 'A' + 'a')

			continue
		}

		sb.WriteByte(ch)
	}

	return sb.String()
}

// styleValues offers the enumerated values of the declared style.
func (c *completer) styleValues() {
	decl := c.cc.Style.Declaration
	if decl == nil {
		return
	}

	d := styleNamed(c.m, ruleClass(c.m, c.cc.Pos.Sheet, c.cc.Style.Rule), decl.Property)
	if d == nil {
		return
	}

	for _, v := range enumeration(d) {
		c.addValue(v, protocol.CompletionItemKindEnumMember)
	}

	if d.TypeName == "Boolean" {
		c.addValue("true", protocol.CompletionItemKindValue)
		c.addValue("false", protocol.CompletionItemKindValue)
	}
}
