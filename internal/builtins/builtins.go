// Package builtins embeds the ActionScript top level API and the flash,
// mx and spark framework classes as declaration-only sources. The frontend
// loads them as read-only units.
package builtins

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed stubs/*.as
var stubs embed.FS

// URIScheme prefixes the URIs of builtin units.
const URIScheme = "as3builtin:///"

// File is one embedded source.
type File struct {
	// Name is the file name inside the embedded tree, e.g. "flash_events.as".
	Name string
	URI  string
	Text string
}

// Files returns the embedded sources ordered by name.
func Files() ([]File, error) {
	entries, err := fs.ReadDir(stubs, "stubs")
	if err != nil {
		return nil, fmt.Errorf("reading builtin stubs: %w", err)
	}

	files := make([]File, 0, len(entries))

	for _, e := range entries {
		data, err := stubs.ReadFile(path.Join("stubs", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading builtin stub %s: %w", e.Name(), err)
		}

		files = append(files, File{Name: e.Name(), URI: URIScheme + e.Name(), Text: string(data)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// IsBuiltinURI reports whether uri names an embedded source.
func IsBuiltinURI(uri string) bool {
	return len(uri) >= len(URIScheme) && uri[:len(URIScheme)] == URIScheme
}

// TopLevelTypes are the classes of the unnamed package that never need an
// import.
var TopLevelTypes = []string{
	"Array", "Boolean", "Class", "Date", "Error", "Function", "Math", "Number",
	"Object", "RegExp", "String", "Vector", "XML", "XMLList", "int", "uint",
}
