// Package document converts between LSP positions and byte offsets and
// applies incremental edits to document text.
package document

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Kind is the language of a document, derived from its file extension.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindScript is an ActionScript source file (.as).
	KindScript
	// KindMarkup is an MXML component (.mxml).
	KindMarkup
	// KindStyle is a standalone stylesheet (.css).
	KindStyle
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "actionscript"
	case KindMarkup:
		return "mxml"
	case KindStyle:
		return "css"
	default:
		return "unknown"
	}
}

// KindOf returns the kind for a path or URI.
func KindOf(pathOrURI string) Kind {
	switch strings.ToLower(filepath.Ext(pathOrURI)) {
	case ".as":
		return KindScript
	case ".mxml":
		return KindMarkup
	case ".css":
		return KindStyle
	default:
		return KindUnknown
	}
}

// URIToPath converts a file:// URI to a local path. Other strings are
// returned unchanged.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}

	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}

	path := u.Path
	// file:///C:/dir on Windows
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}

// PathToURI converts a local path to a file:// URI.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}

	return (&url.URL{Scheme: "file", Path: slashed}).String()
}
