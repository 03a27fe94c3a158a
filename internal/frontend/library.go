package frontend

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// SWCScheme prefixes the URIs of units generated from compiled archives.
const SWCScheme = "swc://"

// LoadLibrary adds a library path entry: a directory of sources or a .swc
// archive. Everything loaded here is read-only.
func (p *Project) LoadLibrary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("library %s: %w", path, err)
	}

	if info.IsDir() {
		return p.loadLibraryDir(path)
	}

	if strings.EqualFold(filepath.Ext(path), ".swc") {
		return p.loadSWC(path)
	}

	return fmt.Errorf("library %s: unsupported library type", path)
}

func (p *Project) loadLibraryDir(root string) error {
	var swcs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("skipping %s: %s", path, err)
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ".swc") {
			swcs = append(swcs, path)
			return nil
		}

		if document.KindOf(path) == document.KindUnknown {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warningf("skipping %s: %s", path, err)
			return nil
		}

		p.Update(document.PathToURI(path), string(data), 0, semantic.OriginLibrary)

		return nil
	})
	if err != nil {
		return fmt.Errorf("walking library %s: %w", root, err)
	}

	for _, swc := range swcs {
		if err := p.loadSWC(swc); err != nil {
			log.Warningf("%s", err)
		}
	}

	return nil
}

// loadSWC reads catalog.xml of a compiled archive and declares one empty
// public class per definition it lists.
func (p *Project) loadSWC(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	var catalog []byte

	for _, f := range zr.File {
		if f.Name != "catalog.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("reading catalog of %s: %w", path, err)
		}

		catalog, err = io.ReadAll(rc)
		rc.Close()

		if err != nil {
			return fmt.Errorf("reading catalog of %s: %w", path, err)
		}
	}

	if catalog == nil {
		return fmt.Errorf("%s: no catalog.xml", path)
	}

	byPackage := CatalogDefinitions(catalog)

	pkgs := make([]string, 0, len(byPackage))
	for pkg := range byPackage {
		pkgs = append(pkgs, pkg)
	}

	sort.Strings(pkgs)

	base := SWCScheme + filepath.ToSlash(path) + "/"

	for _, pkg := range pkgs {
		name := pkg
		if name == "" {
			name = "toplevel"
		}

		p.Update(base+name+".as", stubSource(pkg, byPackage[pkg]), 0, semantic.OriginLibrary)
	}

	log.Infof("loaded %d packages from %s", len(pkgs), path)

	return nil
}

// CatalogDefinitions lists the definitions named by the def elements of a
// SWC catalog, grouped by package.
func CatalogDefinitions(catalog []byte) map[string][]string {
	doc := mxml.Parse(string(catalog))
	out := make(map[string][]string)

	for _, t := range doc.Tags {
		if t.Name != "def" {
			continue
		}

		id, ok := t.AttrValue("id")
		if !ok || id == "" {
			continue
		}

		pkg, name := "", id
		if i := strings.LastIndexByte(id, ':'); i >= 0 {
			pkg, name = id[:i], id[i+1:]
		} else if i := strings.LastIndexByte(id, '.'); i >= 0 {
			pkg, name = id[:i], id[i+1:]
		}

		// Internal helper definitions carry a "$" or a "_internal" package.
		if strings.ContainsAny(name, "$") || strings.Contains(pkg, "_internal") {
			continue
		}

		out[pkg] = append(out[pkg], name)
	}

	for pkg := range out {
		sort.Strings(out[pkg])
	}

	return out
}

func stubSource(pkg string, names []string) string {
	var sb strings.Builder

	sb.WriteString("package ")
	sb.WriteString(pkg)
	sb.WriteString(" {\n")

	for _, name := range names {
		sb.WriteString("\tpublic class ")
		sb.WriteString(name)
		sb.WriteString(" {}\n")
	}

	sb.WriteString("}\n")

	return sb.String()
}
