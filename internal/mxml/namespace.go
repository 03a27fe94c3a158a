package mxml

import (
	"strconv"
	"strings"
)

// Well-known namespace URIs.
const (
	LanguageNamespace       = "http://ns.adobe.com/mxml/2009"
	LegacyLanguageNamespace = "http://www.adobe.com/2006/mxml"
	SparkNamespace          = "library://ns.adobe.com/flex/spark"
	MXNamespace             = "library://ns.adobe.com/flex/mx"
)

// languageTags are the compiler directives of the language namespace. They
// do not denote classes.
var languageTags = map[string]bool{
	"Script":       true,
	"Style":        true,
	"Declarations": true,
	"Metadata":     true,
	"Binding":      true,
	"Component":    true,
	"Definition":   true,
	"Library":      true,
	"Private":      true,
	"Reparent":     true,
}

// IsLanguageNamespace reports whether uri is the MXML language namespace.
func IsLanguageNamespace(uri string) bool {
	return uri == LanguageNamespace || uri == LegacyLanguageNamespace
}

// IsLanguageTag reports whether t is a compiler directive such as
// fx:Script.
func (t *Tag) IsLanguageTag() bool {
	return IsLanguageNamespace(t.URI) && languageTags[t.Name]
}

// IsScript reports whether t is an fx:Script block.
func (t *Tag) IsScript() bool {
	return IsLanguageNamespace(t.URI) && t.Name == "Script"
}

// IsStyle reports whether t is an fx:Style block.
func (t *Tag) IsStyle() bool {
	return IsLanguageNamespace(t.URI) && t.Name == "Style"
}

// LanguageTagNames returns the directive names of the language namespace.
func LanguageTagNames() []string {
	out := make([]string, 0, len(languageTags))
	for name := range languageTags {
		out = append(out, name)
	}

	return out
}

// PackageOfNamespace returns the package named by a package namespace
// ("*" is the top level package, "com.example.*" is com.example).
func PackageOfNamespace(uri string) (string, bool) {
	if uri == "*" {
		return "", true
	}

	if strings.HasSuffix(uri, ".*") && !strings.Contains(uri, "/") {
		return strings.TrimSuffix(uri, ".*"), true
	}

	return "", false
}

// PackageNamespace returns the namespace URI for a package.
func PackageNamespace(pkg string) string {
	if pkg == "" {
		return "*"
	}

	return pkg + ".*"
}

// SuggestPrefix derives a namespace prefix for uri that is not yet used in
// taken.
func SuggestPrefix(uri string, taken map[string]string) string {
	base := "ns"

	switch uri {
	case SparkNamespace:
		base = "s"
	case MXNamespace:
		base = "mx"
	case LanguageNamespace:
		base = "fx"
	default:
		if pkg, ok := PackageOfNamespace(uri); ok && pkg != "" {
			base = pkg[strings.LastIndexByte(pkg, '.')+1:]
		} else if ok {
			base = "local"
		}
	}

	prefix := base

	for i := 1; ; i++ {
		if _, used := taken[prefix]; !used {
			return prefix
		}

		prefix = base + strconv.Itoa(i)
	}
}
