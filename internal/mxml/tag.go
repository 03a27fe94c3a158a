// Package mxml builds the tag tree of MXML documents: tags with their
// namespace URIs, attributes and the embedded script and style regions that
// the frontend turns into ActionScript and stylesheet units.
package mxml

import "strings"

// Region is a half-open byte range.
type Region struct {
	Start int
	End   int
}

// Contains reports whether offset lies in the region. The end is inclusive
// so that a cursor at the end of an embedded block still belongs to it.
func (r Region) Contains(offset int) bool {
	return r.Start <= offset && offset <= r.End
}

// Empty reports whether the region is unset or zero-width.
func (r Region) Empty() bool { return r.End <= r.Start }

// Attr is one attribute of a start tag.
type Attr struct {
	// Name is the attribute name as written, including any prefix or state
	// suffix ("label.over").
	Name      string
	NameStart int
	NameEnd   int

	// Value is the unquoted value. ValueStart/ValueEnd delimit it inside the
	// quotes; both are -1 while the user has not typed "=".
	Value      string
	ValueStart int
	ValueEnd   int
	Quoted     bool
}

// HasValue reports whether the attribute has a value region.
func (a *Attr) HasValue() bool { return a.ValueStart >= 0 }

// BaseName returns the attribute name without prefix and state suffix.
func (a *Attr) BaseName() string {
	name := a.Name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}

	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}

	return name
}

// State returns the state suffix of a state-specific attribute
// ("label.over" yields "over").
func (a *Attr) State() string {
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		return a.Name[i+1:]
	}

	return ""
}

// Prefix returns the namespace prefix of the attribute name, if any.
func (a *Attr) Prefix() string {
	if i := strings.IndexByte(a.Name, ':'); i >= 0 {
		return a.Name[:i]
	}

	return ""
}

// InName reports whether offset touches the attribute name.
func (a *Attr) InName(offset int) bool {
	return a.NameStart <= offset && offset <= a.NameEnd
}

// InValue reports whether offset lies inside the quotes of the value.
func (a *Attr) InValue(offset int) bool {
	return a.HasValue() && a.ValueStart <= offset && offset <= a.ValueEnd
}

// Tag is one element of the tag tree. Parent links are plain back
// references used for upward lookups.
type Tag struct {
	Prefix string
	Name   string
	URI    string

	// Start and End span the whole element, end tag included.
	Start int
	End   int

	NameStart int
	NameEnd   int

	// OpenEnd is the offset just past the '>' of the start tag, or the end
	// of the scanned start tag when it is unterminated.
	OpenEnd int

	// Content is the region between start and end tag. It is empty for
	// self-closing tags.
	Content Region

	// CloseName is the name range inside the end tag, zero when absent.
	CloseName Region

	// CDATA lists the inner ranges of CDATA sections directly inside the
	// tag, in document order.
	CDATA []Region

	SelfClosing bool
	// StartTagClosed is set once the '>' of the start tag was seen.
	StartTagClosed bool
	// Closed is false for tags whose end is implied by the end of input.
	Closed bool

	Attrs    []*Attr
	Parent   *Tag
	Children []*Tag
}

// QName returns the tag name as written.
func (t *Tag) QName() string {
	if t.Prefix == "" {
		return t.Name
	}

	return t.Prefix + ":" + t.Name
}

// Contains reports whether offset lies within the element. The end offset
// only counts for tags left open by incomplete input.
func (t *Tag) Contains(offset int) bool {
	if offset < t.Start {
		return false
	}

	if t.Closed {
		return offset < t.End
	}

	return offset <= t.End
}

// InStartTag reports whether offset lies inside the start tag, between the
// '<' and the closing '>'.
func (t *Tag) InStartTag(offset int) bool {
	if offset <= t.Start {
		return false
	}

	if t.StartTagClosed {
		return offset < t.OpenEnd
	}

	return offset <= t.OpenEnd
}

// InName reports whether offset touches the tag name of the start or end
// tag.
func (t *Tag) InName(offset int) bool {
	if t.NameStart <= offset && offset <= t.NameEnd {
		return true
	}

	return !t.CloseName.Empty() && t.CloseName.Contains(offset)
}

// InContent reports whether offset lies between the start and end tag.
func (t *Tag) InContent(offset int) bool {
	if t.SelfClosing {
		return false
	}

	return t.OpenEnd <= offset && offset <= t.Content.End
}

// Attr returns the first attribute whose name matches exactly.
func (t *Tag) Attr(name string) *Attr {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a
		}
	}

	return nil
}

// AttrValue returns the value of the named attribute.
func (t *Tag) AttrValue(name string) (string, bool) {
	if a := t.Attr(name); a != nil && a.HasValue() {
		return a.Value, true
	}

	return "", false
}

// AttrAt returns the attribute whose name or value contains offset.
func (t *Tag) AttrAt(offset int) *Attr {
	for _, a := range t.Attrs {
		if a.InName(offset) || a.InValue(offset) {
			return a
		}
	}

	return nil
}

// EmbeddedRegion returns the region holding embedded code: the inner range
// of the first CDATA section, or the whole content.
func (t *Tag) EmbeddedRegion() Region {
	if len(t.CDATA) > 0 {
		return t.CDATA[0]
	}

	if t.SelfClosing {
		return Region{}
	}

	return t.Content
}

// LookupNamespace resolves prefix against xmlns declarations on t and its
// ancestors.
func (t *Tag) LookupNamespace(prefix string) (string, bool) {
	attr := "xmlns"
	if prefix != "" {
		attr = "xmlns:" + prefix
	}

	for cur := t; cur != nil; cur = cur.Parent {
		if v, ok := cur.AttrValue(attr); ok {
			return v, true
		}
	}

	return "", false
}

// Document is the tag tree of one MXML file.
type Document struct {
	Source string
	Root   *Tag
	// Tags lists every tag in document order.
	Tags []*Tag
	// Recovered is set when the document was not well formed and the tree
	// was rebuilt by the lenient scanner.
	Recovered bool
}

// TagAt returns the innermost tag containing offset, or nil.
func (d *Document) TagAt(offset int) *Tag {
	var best *Tag

	for _, t := range d.Tags {
		if t.Contains(offset) {
			best = t
		}
	}

	return best
}

// Namespaces returns the prefix to URI mappings declared on the root tag.
func (d *Document) Namespaces() map[string]string {
	out := make(map[string]string)

	if d.Root == nil {
		return out
	}

	for _, a := range d.Root.Attrs {
		switch {
		case a.Name == "xmlns":
			out[""] = a.Value
		case strings.HasPrefix(a.Name, "xmlns:"):
			out[strings.TrimPrefix(a.Name, "xmlns:")] = a.Value
		}
	}

	return out
}

// PrefixFor returns a prefix already bound to uri on the root tag.
func (d *Document) PrefixFor(uri string) (string, bool) {
	for prefix, u := range d.Namespaces() {
		if u == uri {
			return prefix, true
		}
	}

	return "", false
}

// Walk visits tags in document order.
func (d *Document) Walk(fn func(*Tag)) {
	for _, t := range d.Tags {
		fn(t)
	}
}

// link sets parent/child relations and resolves namespace URIs.
func (d *Document) link() {
	for _, t := range d.Tags {
		if uri, ok := t.LookupNamespace(t.Prefix); ok {
			t.URI = uri
		}
	}
}

func splitQName(qname string) (prefix, name string) {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[:i], qname[i+1:]
	}

	return "", qname
}
