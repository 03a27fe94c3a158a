package analysis

import (
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// OrganizeImports returns the edits that sort each run of import
// directives of u, drop duplicates and drop imports nothing in the unit
// uses. Imports that do not resolve are kept.
func OrganizeImports(m semantic.Model, u *semantic.Unit) []protocol.TextEdit {
	edits := []protocol.TextEdit{}
	if u == nil || u.Tree == nil || len(u.Imports) == 0 || u.ReadOnly() {
		return edits
	}

	used := usedQualifiedNames(m, u)
	text := u.Source

	for _, run := range importRuns(u) {
		start := lineStart(text, run[0].Start)
		end := lineEnd(text, run[len(run)-1].End)
		indent := indentAt(text, run[0].Start)

		var (
			paths []string
			seen  = make(map[string]bool)
		)

		for _, imp := range run {
			if seen[imp.Path] || !importUsed(m, imp, used) {
				continue
			}

			seen[imp.Path] = true
			paths = append(paths, imp.Path)
		}

		sort.Strings(paths)

		lines := make([]string, 0, len(paths))
		for _, p := range paths {
			lines = append(lines, indent+"import "+p+";")
		}

		newText := strings.Join(lines, "\n")
		if len(lines) == 0 {
			// Remove the run with the line break that ends it.
			if end < len(text) && text[end] == '\r' {
				end++
			}

			if end < len(text) && text[end] == '\n' {
				end++
			}
		}

		if text[start:end] == newText {
			continue
		}

		edits = append(edits, protocol.TextEdit{Range: document.OffsetRange(text, start, end), NewText: newText})
	}

	return edits
}

// importRuns groups the imports of u into runs separated only by white
// space.
func importRuns(u *semantic.Unit) [][]semantic.Import {
	imports := append([]semantic.Import(nil), u.Imports...)
	sort.Slice(imports, func(i, j int) bool { return imports[i].Start < imports[j].Start })

	var (
		runs [][]semantic.Import
		cur  []semantic.Import
	)

	for _, imp := range imports {
		if len(cur) > 0 {
			gap := u.Source[min(cur[len(cur)-1].End, imp.Start):imp.Start]
			if strings.Trim(gap, " \t\r\n;") != "" {
				runs = append(runs, cur)
				cur = nil
			}
		}

		cur = append(cur, imp)
	}

	if len(cur) > 0 {
		runs = append(runs, cur)
	}

	return runs
}

// usedQualifiedNames collects the package level definitions that names of
// u resolve to, outside of package and import directives.
func usedQualifiedNames(m semantic.Model, u *semantic.Unit) map[string]bool {
	used := make(map[string]bool)
	tree := u.Tree

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if n.Kind != ast.KindIdentifier && n.Kind != ast.KindTypeRef {
			continue
		}

		if k := tree.Kind(n.Parent); k == ast.KindImport || k == ast.KindPackage {
			continue
		}

		if d := m.Resolve(u, ast.NodeID(i)); d != nil && d.Classification == semantic.ClassPackageMember {
			used[d.QualifiedName] = true
		}
	}

	return used
}

func importUsed(m semantic.Model, imp semantic.Import, used map[string]bool) bool {
	if imp.Wildcard() {
		if !isPackage(m, imp.Package()) {
			return true
		}

		for qname := range used {
			if pkg, _ := semantic.SplitQualified(qname); pkg == imp.Package() {
				return true
			}
		}

		return false
	}

	if m.FindQualified(imp.Path) == nil {
		return true
	}

	return used[imp.Path]
}
