// Package config loads asconfig.json project files. A file may name a
// parent file in "extends"; the chain is merged into a single document
// before the compiler options are read.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("as3-lsp.config")

// FileName is the project file looked up at the workspace root.
const FileName = "asconfig.json"

var (
	// ErrInvalid is returned for files that are not a JSON object.
	ErrInvalid = errors.New("invalid asconfig")
	// ErrExtendsCycle is returned when an "extends" chain loops.
	ErrExtendsCycle = errors.New("asconfig extends cycle")
)

// appendPaths lists the arrays that a child file extends instead of
// replacing.
var appendPaths = map[string]bool{
	"compilerOptions.source-path":           true,
	"compilerOptions.library-path":          true,
	"compilerOptions.external-library-path": true,
	"compilerOptions.namespace":             true,
}

// Namespace maps an MXML namespace URI to a component manifest file.
type Namespace struct {
	URI      string
	Manifest string
}

// Config is the resolved project configuration. All paths are absolute.
type Config struct {
	// Root is the directory of the asconfig.json file.
	Root string

	MainClass            string
	SourcePaths          []string
	LibraryPaths         []string
	ExternalLibraryPaths []string
	Namespaces           []Namespace

	// Merged is the fully merged document.
	Merged []byte
}

// LibraryRoots returns the library and external library paths.
func (c *Config) LibraryRoots() []string {
	out := make([]string, 0, len(c.LibraryPaths)+len(c.ExternalLibraryPaths))
	out = append(out, c.LibraryPaths...)

	return append(out, c.ExternalLibraryPaths...)
}

// Default is the configuration of a workspace without asconfig.json: the
// "src" directory when there is one, the root otherwise.
func Default(root string) *Config {
	src := filepath.Join(root, "src")
	if info, err := os.Stat(src); err == nil && info.IsDir() {
		return &Config{Root: root, SourcePaths: []string{src}}
	}

	return &Config{Root: root, SourcePaths: []string{root}}
}

// Load resolves the file at path together with everything it extends.
func Load(path string) (*Config, error) {
	merged, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	return Parse(filepath.Dir(path), merged)
}

// LoadDir loads the asconfig.json of root, falling back to Default when
// the file does not exist.
func LoadDir(root string) (*Config, error) {
	path := filepath.Join(root, FileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debugf("no %s in %s", FileName, root)
		return Default(root), nil
	}

	return Load(path)
}

// Resolve reads path and merges it over the files it extends. Relative
// paths inside a parent file are rebased onto the directory of path.
func Resolve(path string) ([]byte, error) {
	return resolve(path, make(map[string]bool))
}

func resolve(path string, visiting map[string]bool) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	if visiting[abs] {
		return nil, fmt.Errorf("%w: %s", ErrExtendsCycle, abs)
	}

	visiting[abs] = true
	defer delete(visiting, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading asconfig: %w", err)
	}

	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, abs)
	}

	parent := gjson.GetBytes(data, "extends")
	if !parent.Exists() {
		return data, nil
	}

	data, err = sjson.DeleteBytes(data, "extends")
	if err != nil {
		return nil, fmt.Errorf("dropping extends: %w", err)
	}

	parentPath := parent.String()
	if !filepath.IsAbs(parentPath) {
		parentPath = filepath.Join(filepath.Dir(abs), parentPath)
	}

	base, err := resolve(parentPath, visiting)
	if err != nil {
		return nil, err
	}

	base, err = Rebase(base, filepath.Dir(parentPath), filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	log.Debugf("merging %s over %s", abs, parentPath)

	return Merge(base, data)
}

// Merge applies child over base: objects merge key by key, the path
// arrays of compilerOptions append, everything else is replaced.
func Merge(base, child []byte) ([]byte, error) {
	if len(base) == 0 {
		base = []byte("{}")
	}

	return mergeObject(base, gjson.ParseBytes(child), "")
}

func mergeObject(out []byte, child gjson.Result, prefix string) ([]byte, error) {
	var err error

	child.ForEach(func(key, value gjson.Result) bool {
		path := escapeKey(key.String())
		if prefix != "" {
			path = prefix + "." + path
		}

		current := gjson.GetBytes(out, path)

		switch {
		case value.IsObject() && current.IsObject():
			out, err = mergeObject(out, value, path)
		case value.IsArray() && current.IsArray() && appendPaths[path]:
			out, err = appendArray(out, path, current, value)
		default:
			out, err = sjson.SetRawBytes(out, path, []byte(value.Raw))
		}

		return err == nil
	})

	if err != nil {
		return nil, fmt.Errorf("merging asconfig: %w", err)
	}

	return out, nil
}

func appendArray(out []byte, path string, current, value gjson.Result) ([]byte, error) {
	var err error

	for _, item := range value.Array() {
		if contains(current, item) {
			continue
		}

		out, err = sjson.SetRawBytes(out, path+".-1", []byte(item.Raw))
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func contains(arr, item gjson.Result) bool {
	for _, v := range arr.Array() {
		if v.Raw == item.Raw {
			return true
		}
	}

	return false
}

// escapeKey quotes the path syntax characters of an object key.
func escapeKey(key string) string {
	var sb strings.Builder

	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			sb.WriteByte('\\')
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// Rebase rewrites the relative paths of a parsed parent file so that they
// stay valid when the document is read from another directory.
func Rebase(data []byte, from, to string) ([]byte, error) {
	if from == to {
		return data, nil
	}

	var err error

	rebase := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}

		rel, relErr := filepath.Rel(to, filepath.Join(from, p))
		if relErr != nil {
			return filepath.Join(from, p)
		}

		return filepath.ToSlash(rel)
	}

	for path := range appendPaths {
		if path == "compilerOptions.namespace" {
			continue
		}

		for i, item := range gjson.GetBytes(data, path).Array() {
			data, err = sjson.SetBytes(data, fmt.Sprintf("%s.%d", path, i), rebase(item.String()))
			if err != nil {
				return nil, fmt.Errorf("rebasing %s: %w", path, err)
			}
		}
	}

	for i, ns := range gjson.GetBytes(data, "compilerOptions.namespace").Array() {
		manifest := ns.Get("manifest")
		if !manifest.Exists() {
			continue
		}

		data, err = sjson.SetBytes(data, fmt.Sprintf("compilerOptions.namespace.%d.manifest", i), rebase(manifest.String()))
		if err != nil {
			return nil, fmt.Errorf("rebasing namespace manifest: %w", err)
		}
	}

	return data, nil
}

// Parse reads the compiler options of a merged document. Relative paths
// are resolved against root.
func Parse(root string, data []byte) (*Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalid
	}

	abs := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}

		return filepath.Join(root, p)
	}

	paths := func(key string) []string {
		var out []string
		for _, v := range gjson.GetBytes(data, key).Array() {
			if s := v.String(); s != "" {
				out = append(out, abs(s))
			}
		}

		return out
	}

	c := &Config{
		Root:                 root,
		MainClass:            gjson.GetBytes(data, "mainClass").String(),
		SourcePaths:          paths("compilerOptions.source-path"),
		LibraryPaths:         paths("compilerOptions.library-path"),
		ExternalLibraryPaths: paths("compilerOptions.external-library-path"),
		Merged:               data,
	}

	for _, ns := range gjson.GetBytes(data, "compilerOptions.namespace").Array() {
		uri := ns.Get("uri").String()
		manifest := ns.Get("manifest").String()

		if uri == "" || manifest == "" {
			log.Warningf("ignoring incomplete namespace entry %s", ns.Raw)
			continue
		}

		c.Namespaces = append(c.Namespaces, Namespace{URI: uri, Manifest: abs(manifest)})
	}

	if len(c.SourcePaths) == 0 {
		c.SourcePaths = Default(root).SourcePaths
	}

	return c, nil
}

// Format renders a document for display.
func Format(data []byte) []byte {
	return pretty.Pretty(data)
}
