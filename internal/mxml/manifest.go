package mxml

import (
	"fmt"
	"sort"
	"strings"
)

// Manifest maps the tag names of a component namespace to the qualified
// names of the classes they instantiate.
type Manifest struct {
	URI     string
	byTag   map[string]string
	byClass map[string]string
}

// NewManifest creates a manifest from tag name to class entries.
func NewManifest(uri string, entries map[string]string) *Manifest {
	m := &Manifest{
		URI:     uri,
		byTag:   make(map[string]string, len(entries)),
		byClass: make(map[string]string, len(entries)),
	}

	for tag, class := range entries {
		m.byTag[tag] = class
		m.byClass[class] = tag
	}

	return m
}

// Class returns the class a tag name denotes.
func (m *Manifest) Class(tag string) (string, bool) {
	c, ok := m.byTag[tag]
	return c, ok
}

// Tag returns the tag name a class is exposed as.
func (m *Manifest) Tag(class string) (string, bool) {
	t, ok := m.byClass[class]
	return t, ok
}

// Tags returns every tag name in sorted order.
func (m *Manifest) Tags() []string {
	out := make([]string, 0, len(m.byTag))
	for tag := range m.byTag {
		out = append(out, tag)
	}

	sort.Strings(out)

	return out
}

// ParseManifest reads a component manifest:
//
//	<componentPackage>
//	    <component id="Button" class="spark.components.Button"/>
//	</componentPackage>
func ParseManifest(uri string, data []byte) (*Manifest, error) {
	doc := Parse(string(data))
	if doc.Root == nil || doc.Root.Name != "componentPackage" {
		return nil, fmt.Errorf("manifest for %s: missing componentPackage root", uri)
	}

	entries := make(map[string]string)

	for _, t := range doc.Root.Children {
		if t.Name != "component" {
			continue
		}

		class, ok := t.AttrValue("class")
		if !ok || class == "" {
			continue
		}

		class = strings.ReplaceAll(class, ":", ".")

		id, ok := t.AttrValue("id")
		if !ok || id == "" {
			id = class[strings.LastIndexByte(class, '.')+1:]
		}

		entries[id] = class
	}

	return NewManifest(uri, entries), nil
}

// Registry resolves tag names to classes across manifests and package
// namespaces.
type Registry struct {
	manifests map[string]*Manifest
}

// NewRegistry creates a registry holding the spark and mx manifests.
func NewRegistry() *Registry {
	r := &Registry{manifests: make(map[string]*Manifest)}
	r.Add(NewManifest(SparkNamespace, sparkComponents))
	r.Add(NewManifest(MXNamespace, mxComponents))

	return r
}

// Add registers m, replacing any manifest with the same URI.
func (r *Registry) Add(m *Manifest) {
	r.manifests[m.URI] = m
}

// Manifest returns the manifest registered for uri.
func (r *Registry) Manifest(uri string) (*Manifest, bool) {
	m, ok := r.manifests[uri]
	return m, ok
}

// URIs returns the registered manifest URIs in sorted order.
func (r *Registry) URIs() []string {
	out := make([]string, 0, len(r.manifests))
	for uri := range r.manifests {
		out = append(out, uri)
	}

	sort.Strings(out)

	return out
}

// ClassFor returns the qualified class name denoted by a tag in namespace
// uri.
func (r *Registry) ClassFor(uri, name string) (string, bool) {
	if pkg, ok := PackageOfNamespace(uri); ok {
		if pkg == "" {
			return name, true
		}

		return pkg + "." + name, true
	}

	if m, ok := r.manifests[uri]; ok {
		return m.Class(name)
	}

	return "", false
}

// TagRef is one way to write a class as a tag.
type TagRef struct {
	URI  string
	Name string
}

// TagsFor returns the namespaces and tag names under which class can be
// written: every manifest exposing it, then its package namespace.
func (r *Registry) TagsFor(class string) []TagRef {
	var out []TagRef

	for _, uri := range r.URIs() {
		if tag, ok := r.manifests[uri].Tag(class); ok {
			out = append(out, TagRef{URI: uri, Name: tag})
		}
	}

	pkg, name := "", class
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		pkg, name = class[:i], class[i+1:]
	}

	return append(out, TagRef{URI: PackageNamespace(pkg), Name: name})
}

var sparkComponents = map[string]string{
	"Application":        "spark.components.Application",
	"BorderContainer":    "spark.components.BorderContainer",
	"Button":             "spark.components.Button",
	"CheckBox":           "spark.components.CheckBox",
	"DropDownList":       "spark.components.DropDownList",
	"Group":              "spark.components.Group",
	"HGroup":             "spark.components.HGroup",
	"Image":              "spark.components.Image",
	"Label":              "spark.components.Label",
	"List":               "spark.components.List",
	"Panel":              "spark.components.Panel",
	"SkinnableContainer": "spark.components.SkinnableContainer",
	"TextInput":          "spark.components.TextInput",
	"VGroup":             "spark.components.VGroup",
	"State":              "mx.states.State",
}

var mxComponents = map[string]string{
	"Button": "mx.controls.Button",
	"Canvas": "mx.containers.Canvas",
	"HBox":   "mx.containers.HBox",
	"Label":  "mx.controls.Label",
	"VBox":   "mx.containers.VBox",
	"State":  "mx.states.State",
}
