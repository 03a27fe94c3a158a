package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// keywordSnippets expand statement keywords into templates.
var keywordSnippets = map[string]struct {
	snippet string
	detail  string
}{
	"if": {
		snippet: "if (${1:condition})\n{\n\t$0\n}",
		detail:  "if statement",
	},
	"for": {
		snippet: "for (var ${1:i}:int = 0; $1 < ${2:length}; $1++)\n{\n\t$0\n}",
		detail:  "for loop",
	},
	"while": {
		snippet: "while (${1:condition})\n{\n\t$0\n}",
		detail:  "while loop",
	},
	"switch": {
		snippet: "switch (${1:expression})\n{\n\tcase ${2:value}:\n\t\t$0\n\t\tbreak;\n}",
		detail:  "switch statement",
	},
	"try": {
		snippet: "try\n{\n\t$0\n}\ncatch (${1:error}:${2:Error})\n{\n}",
		detail:  "try-catch block",
	},
}

// Keywords legal in each structural context.
var (
	fileKeywords = []string{
		"package", "import", "class", "interface", "function", "var", "const",
		"public", "internal", "final", "dynamic", "use", "include",
	}
	packageKeywords = []string{
		"import", "class", "interface", "function", "var", "const", "namespace",
		"public", "internal", "final", "dynamic", "use", "include",
	}
	typeKeywords = []string{
		"function", "var", "const", "namespace", "import",
		"public", "private", "protected", "internal", "static", "override", "final", "native",
	}
	functionKeywords = []string{
		"var", "const", "function", "if", "else", "for", "each", "in", "while", "do",
		"switch", "case", "default", "break", "continue", "return", "throw", "try",
		"catch", "finally", "new", "delete", "typeof", "void", "is", "as", "instanceof",
		"true", "false", "null", "this", "with",
	}
)

var docTags = map[string]string{
	"param":          "@param name description",
	"return":         "@return description",
	"see":            "@see Type#member",
	"throws":         "@throws ErrorType description",
	"default":        "@default value",
	"example":        "@example",
	"eventType":      "@eventType qualified.Name",
	"inheritDoc":     "@inheritDoc",
	"copy":           "@copy Type#member",
	"private":        "@private",
	"internal":       "@internal",
	"langversion":    "@langversion 3.0",
	"playerversion":  "@playerversion Flash 10",
	"productversion": "@productversion Flex 4",
	"deprecated":     "@deprecated",
}

// completer accumulates candidates for one request.
type completer struct {
	goCtx context.Context
	m     semantic.Model
	cc    *Context
	u     *semantic.Unit

	cands []Candidate
	index map[string]int
}

// Complete classifies pos and returns the ranked completion items for it.
// A nil pos, such as an offset beyond the end of the text, yields no
// items.
func Complete(goCtx context.Context, m semantic.Model, pos *Position) ([]protocol.CompletionItem, error) {
	items := []protocol.CompletionItem{}

	if pos == nil {
		return items, nil
	}

	c := &completer{goCtx: goCtx, m: m, cc: Classify(m, pos), u: pos.Unit, index: make(map[string]int)}

	if err := c.run(); err != nil {
		return nil, err
	}

	SortCandidates(c.cands)

	return c.items(), nil
}

func (c *completer) run() error {
	switch c.cc.Kind {
	case KindScope:
		return c.scope()
	case KindTypeName, KindNewTarget:
		return c.types()
	case KindMemberAccess:
		return c.memberAccess()
	case KindOverride, KindOverrideName:
		c.overrides()
	case KindImportName:
		c.importNames()
	case KindPackageSkeleton:
		c.packageSkeleton()
	case KindDocTag:
		c.docTags()
	case KindDocReference:
		return c.docReference()
	case KindStyleSelector:
		c.styleSelectors()
	case KindStyleProperty:
		c.styleProperties()
	case KindStyleValue:
		c.styleValues()
	case KindTagName:
		c.tagNames()
	case KindAttributeName:
		c.attributeNames()
	case KindAttributeValue:
		c.attributeValues()
	case KindStateName:
		c.states()
	}

	return nil
}

// add records a candidate that matches the prefix. Of two candidates with
// the same key the higher priority wins.
func (c *completer) add(cand Candidate) {
	if !MatchPrefix(cand.Label, c.cc.Prefix) {
		return
	}

	key := fmt.Sprintf("%d\x00%s", cand.Kind, cand.Label)
	if cand.Def != nil && cand.Def.QualifiedName != "" {
		key = fmt.Sprintf("%d\x00%s\x00%s", cand.Kind, cand.Label, cand.Def.QualifiedName)
	}

	if i, ok := c.index[key]; ok {
		if c.cands[i].Priority < cand.Priority {
			c.cands[i] = cand
		}

		return
	}

	c.index[key] = len(c.cands)
	c.cands = append(c.cands, cand)
}

func (c *completer) addDef(d *semantic.Definition, boost int) {
	cand := NewCandidate(d)
	cand.Priority += boost

	if NeedsImport(c.u, d) {
		cand.Imports = []string{d.QualifiedName}
	}

	c.add(cand)
}

func (c *completer) addKeyword(kw string) {
	cand := Candidate{Label: kw, Kind: protocol.CompletionItemKindKeyword, Priority: PriorityKeyword}

	if s, ok := keywordSnippets[kw]; ok && c.cc.Structure == StructFunction {
		cand.InsertText = s.snippet
		cand.Snippet = true
		cand.Detail = s.detail
	}

	c.add(cand)
}

func (c *completer) addValue(label string, kind protocol.CompletionItemKind) {
	c.add(Candidate{Label: label, Kind: kind, Priority: PriorityGlobal})
}

// scope offers everything reachable by simple name, the public definitions
// of the whole project, and the keywords of the structural context.
func (c *completer) scope() error {
	chain := c.m.ScopeChain(c.u, c.cc.PrefixStart)

	for _, d := range WalkScopes(c.m, chain, WalkOptions{StaticOnly: c.cc.StaticOnly}) {
		c.addDef(d, 0)
	}

	if err := c.projectDefinitions(nil, nil); err != nil {
		return err
	}

	var keywords []string

	switch c.cc.Structure {
	case StructFile:
		keywords = fileKeywords
		if hasPackageBlock(c.u.Tree) {
			keywords = keywords[1:]
		}
	case StructPackage:
		keywords = packageKeywords
	case StructType:
		keywords = typeKeywords
	case StructFunction:
		keywords = functionKeywords
		if c.cc.Owner != nil && c.cc.Owner.Kind == semantic.DefClass && !c.cc.StaticOnly {
			c.addKeyword("super")
		}
	}

	for _, kw := range keywords {
		c.addKeyword(kw)
	}

	return nil
}

// hasPackageBlock reports whether the file already declares a package.
func hasPackageBlock(tree *ast.Tree) bool {
	root := tree.Node(tree.Root)
	if root == nil {
		return false
	}

	for _, id := range root.List {
		if n := tree.Node(id); n != nil && n.Kind == ast.KindPackage && !n.Flags.Has(ast.FlagSynthetic) {
			return true
		}
	}

	return false
}

// projectDefinitions offers the package-level definitions of every package
// that the current unit may see.
func (c *completer) projectDefinitions(accept func(*semantic.Definition) bool, expected *semantic.Definition) error {
	for _, pkg := range c.m.Packages() {
		if err := c.goCtx.Err(); err != nil {
			return fmt.Errorf("completion: %w", err)
		}

		for _, d := range c.m.PackageDefinitions(pkg) {
			if d.Visibility != semantic.Public && d.Package != c.u.Package {
				continue
			}

			if d.Name == "" || SkipDefinition(d) || accept != nil && !accept(d) {
				continue
			}

			c.addDef(d, Boost(c.m, d, expected))
		}
	}

	return nil
}

func typeAccepted(filter TypeFilter) func(*semantic.Definition) bool {
	return func(d *semantic.Definition) bool {
		switch filter {
		case ClassesOnly:
			return d.Kind == semantic.DefClass
		case InterfacesOnly:
			return d.Kind == semantic.DefInterface
		}

		return d.Kind.IsType()
	}
}

// types offers type names, ranking the expected type of a new expression
// and its subtypes first.
func (c *completer) types() error {
	accept := typeAccepted(c.cc.Types)

	if c.cc.Qualifier != "" {
		c.packageContents(c.cc.Qualifier, accept)
		return nil
	}

	expected := c.cc.PriorityType
	chain := c.m.ScopeChain(c.u, c.cc.PrefixStart)

	for _, d := range WalkScopes(c.m, chain, WalkOptions{Accept: accept}) {
		c.addDef(d, Boost(c.m, d, expected))
	}

	if err := c.projectDefinitions(accept, expected); err != nil {
		return err
	}

	if c.cc.Kind == KindTypeName && c.cc.Types == AnyType {
		c.addKeyword("*")
		c.addKeyword("void")
	}

	return nil
}

// packageContents offers the subpackages and definitions below a dotted
// package path.
func (c *completer) packageContents(pkg string, accept func(*semantic.Definition) bool) {
	for _, seg := range subpackageSegments(c.m, pkg) {
		c.add(Candidate{Label: seg, Kind: protocol.CompletionItemKindModule, Detail: "package " + semantic.QualifiedJoin(pkg, seg), Priority: PriorityGlobal})
	}

	for _, d := range c.m.PackageDefinitions(pkg) {
		if d.Visibility != semantic.Public && d.Package != c.u.Package {
			continue
		}

		if d.Name == "" || SkipDefinition(d) || accept != nil && !accept(d) {
			continue
		}

		c.add(NewCandidate(d))
	}
}

// subpackageSegments returns the next name segment of every package below
// pkg, or the first segments when pkg is empty.
func subpackageSegments(m semantic.Model, pkg string) []string {
	seen := make(map[string]bool)

	var out []string

	for _, p := range m.Packages() {
		rest := p

		if pkg != "" {
			if !strings.HasPrefix(p, pkg+".") {
				continue
			}

			rest = p[len(pkg)+1:]
		}

		if rest == "" {
			continue
		}

		if i := strings.IndexByte(rest, '.'); i >= 0 {
			rest = rest[:i]
		}

		if !seen[rest] {
			seen[rest] = true
			out = append(out, rest)
		}
	}

	sort.Strings(out)

	return out
}

func isPackage(m semantic.Model, name string) bool {
	for _, p := range m.Packages() {
		if p == name || strings.HasPrefix(p, name+".") {
			return true
		}
	}

	return false
}

// memberAccess offers the members of the left operand's type.
func (c *completer) memberAccess() error {
	tree := c.u.Tree
	cc := c.cc

	if !cc.Receiver.Valid() {
		if cc.Qualifier != "" && isPackage(c.m, cc.Qualifier) {
			c.packageContents(cc.Qualifier, nil)
		}

		return nil
	}

	t := c.m.TypeOf(c.u, cc.Receiver)
	if t == nil || t.Def == nil {
		if q := dottedName(tree, cc.Receiver); q != "" && isPackage(c.m, q) {
			c.packageContents(q, nil)
		}

		return nil
	}

	var overridden string
	if cc.Super && cc.Function != nil && cc.Function.Override {
		overridden = cc.Function.Name
	}

	seen := make(map[string]bool)

	for _, d := range c.m.AllMembers(t.Def) {
		if d.Name == "" || seen[d.Name] || SkipDefinition(d) || d.IsConstructor() {
			continue
		}

		if d.Static != t.Static || d.Static && d.Owner != t.Def {
			continue
		}

		if !c.accessible(d) {
			continue
		}

		seen[d.Name] = true

		boost := 0
		if d.Name == overridden {
			boost = BoostExact
		}

		c.addDef(d, boost)
	}

	return nil
}

// accessible applies member visibility from the cursor's class.
func (c *completer) accessible(d *semantic.Definition) bool {
	owner := c.cc.Owner

	switch d.Visibility {
	case semantic.Private:
		return owner != nil && d.Owner == owner
	case semantic.Protected:
		return owner != nil && (d.Owner == owner || IsSubtype(c.m, owner, d.Owner))
	case semantic.Internal:
		return d.Package == c.u.Package
	}

	return true
}

// dottedName renders an identifier chain a.b.c, or "" for anything else.
func dottedName(tree *ast.Tree, id ast.NodeID) string {
	n := tree.Node(id)
	if n == nil {
		return ""
	}

	switch n.Kind {
	case ast.KindIdentifier:
		return n.Text
	case ast.KindMemberAccess:
		left := dottedName(tree, n.Left)
		right := tree.Node(n.Right)

		if left == "" || right == nil || right.Text == "" {
			return ""
		}

		return left + "." + right.Text
	}

	return ""
}

// overrides offers the base class functions the current class may
// override and has not overridden yet.
func (c *completer) overrides() {
	owner := c.cc.Owner
	if owner == nil || owner.Kind != semantic.DefClass {
		return
	}

	base := c.m.BaseClass(owner)
	if base == nil {
		return
	}

	declared := make(map[string]bool)
	for _, d := range owner.Members {
		declared[d.Name+"\x00"+d.Kind.String()] = true
	}

	typedVisibility := c.typedVisibility()

	for _, d := range c.m.AllMembers(base) {
		key := d.Name + "\x00" + d.Kind.String()

		if !overridable(d) || declared[key] {
			continue
		}

		if c.cc.Kind == KindOverrideName && d.Kind != c.cc.Accessor {
			continue
		}

		declared[key] = true

		cand := NewCandidate(d)
		cand.Priority = PriorityMember
		cand.Snippet = true

		if c.cc.Kind == KindOverrideName {
			cand.InsertText = signatureTail(d)
		} else {
			cand.InsertText = overrideStub(d, typedVisibility)
		}

		for _, typ := range c.stubTypes(d) {
			if NeedsImport(c.u, typ) {
				cand.Imports = append(cand.Imports, typ.QualifiedName)
			}
		}

		c.add(cand)
	}
}

func overridable(d *semantic.Definition) bool {
	return d.Kind.IsFunction() && !d.Static && !d.Final && d.Visibility != semantic.Private &&
		!d.IsConstructor() && d.Owner != nil && d.Owner.Kind == semantic.DefClass && d.Name != ""
}

// typedVisibility reports whether an access modifier was already written
// before the cursor.
func (c *completer) typedVisibility() bool {
	tree := c.u.Tree

	for i := tree.TokenIndexBefore(c.cc.PrefixStart); i >= 0; i = tree.PrevToken(i) {
		t := tree.Tokens[i]
		if t.Kind != ast.TokenKeyword || !modifierKeywords[t.Text] {
			return false
		}

		switch t.Text {
		case "public", "protected", "internal", "private":
			return true
		}
	}

	return false
}

// signatureTail renders "name(params):Type" for completing after
// "override function".
func signatureTail(d *semantic.Definition) string {
	var sb strings.Builder

	sb.WriteString(d.Name)
	sb.WriteString("(")

	for i, p := range d.Params {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(p.Name)

		if p.TypeName != "" {
			sb.WriteString(":")
			sb.WriteString(p.TypeName)
		}
	}

	sb.WriteString(")")

	switch {
	case d.Kind == semantic.DefSetter:
		sb.WriteString(":void")
	case d.Kind == semantic.DefGetter && d.TypeName != "":
		sb.WriteString(":")
		sb.WriteString(d.TypeName)
	case d.TypeName != "":
		sb.WriteString(":")
		sb.WriteString(d.TypeName)
	}

	return sb.String()
}

// overrideStub renders a complete overriding function that calls the
// base implementation.
func overrideStub(d *semantic.Definition, typedVisibility bool) string {
	var sb strings.Builder

	if !typedVisibility {
		sb.WriteString(d.Visibility.String())
		sb.WriteString(" ")
	}

	sb.WriteString("function ")

	switch d.Kind {
	case semantic.DefGetter:
		sb.WriteString("get ")
	case semantic.DefSetter:
		sb.WriteString("set ")
	}

	sb.WriteString(signatureTail(d))
	sb.WriteString("\n{\n\t")

	args := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		args = append(args, p.Name)
	}

	switch {
	case d.Kind == semantic.DefGetter:
		sb.WriteString("return super." + d.Name + ";")
	case d.Kind == semantic.DefSetter && len(args) > 0:
		sb.WriteString("super." + d.Name + " = " + args[0] + ";")
	case d.TypeName == "void" || d.TypeName == "":
		sb.WriteString("super." + d.Name + "(" + strings.Join(args, ", ") + ");")
	default:
		sb.WriteString("return super." + d.Name + "(" + strings.Join(args, ", ") + ");")
	}

	sb.WriteString("$0\n}")

	return sb.String()
}

// stubTypes resolves the parameter and return types named by a stub.
func (c *completer) stubTypes(d *semantic.Definition) []*semantic.Definition {
	var out []*semantic.Definition

	for _, def := range append([]*semantic.Definition{d}, d.Params...) {
		if t := c.m.DeclaredType(def); t != nil && t.Def != nil {
			out = append(out, t.Def)
		}
	}

	return out
}

// importNames completes an import statement one package segment at a
// time.
func (c *completer) importNames() {
	q := c.cc.Qualifier

	for _, seg := range subpackageSegments(c.m, q) {
		c.add(Candidate{Label: seg, Kind: protocol.CompletionItemKindModule, Detail: "package " + semantic.QualifiedJoin(q, seg), Priority: PriorityGlobal})
	}

	if q == "" {
		return
	}

	query := q + "." + c.cc.Prefix

	for _, d := range c.m.PackageDefinitions(q) {
		if d.Visibility != semantic.Public || d.Name == "" || !MatchQuery(query, d.QualifiedName) {
			continue
		}

		c.add(NewCandidate(d))
	}

	c.add(Candidate{Label: "*", Kind: protocol.CompletionItemKindModule, Detail: "all of " + q, Priority: PriorityKeyword})
}

// packageSkeleton offers the package block of a new file, named after the
// directory and the file.
func (c *completer) packageSkeleton() {
	pkg := c.m.PackageOf(c.u.Path)
	name := strings.TrimSuffix(filepath.Base(c.u.Path), filepath.Ext(c.u.Path))

	header := "package"
	if pkg != "" {
		header += " " + pkg
	}

	body := "\n{\n\tpublic class " + name + "\n\t{\n\t\t$0\n\t}\n}"

	c.cc.Prefix = ""
	c.add(Candidate{
		Label:      header,
		Kind:       protocol.CompletionItemKindSnippet,
		Detail:     "package skeleton",
		Priority:   PriorityGlobal,
		InsertText: header + body,
		Snippet:    true,
	})
}

func (c *completer) docTags() {
	for name, detail := range docTags {
		c.add(Candidate{Label: name, Kind: protocol.CompletionItemKindKeyword, Detail: detail, Priority: PriorityKeyword})
	}
}

// docReference completes "@see Type" and "@see Type#member".
func (c *completer) docReference() error {
	prefix := c.cc.Prefix

	if i := strings.IndexByte(prefix, '#'); i >= 0 {
		typ := c.m.ResolveTypeName(c.u, prefix[:i], c.cc.PrefixStart)

		c.cc.PrefixStart += i + 1
		c.cc.Prefix = prefix[i+1:]

		if typ == nil {
			return nil
		}

		for _, d := range c.m.AllMembers(typ) {
			if d.Name != "" && !SkipDefinition(d) && !d.IsConstructor() {
				c.add(NewCandidate(d))
			}
		}

		return nil
	}

	c.cc.Types = AnyType

	return c.types()
}

// items renders the candidates. Each item replaces the typed prefix.
func (c *completer) items() []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, 0, len(c.cands))

	end := c.cc.Pos.Offset
	start := min(c.cc.PrefixStart, end)
	replace := document.OffsetRange(c.u.Source, start, end)

	var imports ImportRange
	if c.needsImportRange() {
		imports = ComputeImportRange(c.u, c.cc.Pos.Offset)
	}

	for _, cand := range c.cands {
		kind := cand.Kind
		sortText := SortText(cand.Priority, cand.Label)
		filterText := cand.Label

		insert := cand.InsertText
		if insert == "" {
			insert = cand.Label
		}

		item := protocol.CompletionItem{
			Label:      cand.Label,
			Kind:       &kind,
			SortText:   &sortText,
			FilterText: &filterText,
			TextEdit:   protocol.TextEdit{Range: replace, NewText: insert},
		}

		if cand.Detail != "" {
			detail := cand.Detail
			item.Detail = &detail
		}

		if cand.Doc != "" {
			item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: cand.Doc}
		}

		if cand.Snippet {
			format := protocol.InsertTextFormatSnippet
			item.InsertTextFormat = &format
		}

		for _, qname := range cand.Imports {
			item.AdditionalTextEdits = append(item.AdditionalTextEdits, ImportEdit(c.u, imports, qname))
		}

		items = append(items, item)
	}

	return items
}

func (c *completer) needsImportRange() bool {
	for _, cand := range c.cands {
		if len(cand.Imports) > 0 {
			return true
		}
	}

	return false
}
