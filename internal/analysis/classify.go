package analysis

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/css"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/mxml"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// PositionKind is the syntactic context of a completion request.
type PositionKind uint8

const (
	// KindNone offers nothing: comments, strings, unknown positions.
	KindNone PositionKind = iota
	KindStyleSelector
	KindStyleProperty
	KindStyleValue
	KindDocTag
	KindDocReference
	// KindDeclarationName is the name slot of a declaration being written.
	KindDeclarationName
	// KindOverrideName is the name slot after "override function".
	KindOverrideName
	KindTypeName
	KindNewTarget
	KindPackageSkeleton
	KindImportName
	KindMemberAccess
	// KindOverride follows the override modifier, before "function".
	KindOverride
	KindScope
	KindTagName
	KindAttributeName
	KindAttributeValue
	KindStateName
)

var positionKindNames = [...]string{
	KindNone:            "none",
	KindStyleSelector:   "style selector",
	KindStyleProperty:   "style property",
	KindStyleValue:      "style value",
	KindDocTag:          "doc tag",
	KindDocReference:    "doc reference",
	KindDeclarationName: "declaration name",
	KindOverrideName:    "override name",
	KindTypeName:        "type name",
	KindNewTarget:       "new target",
	KindPackageSkeleton: "package skeleton",
	KindImportName:      "import name",
	KindMemberAccess:    "member access",
	KindOverride:        "override",
	KindScope:           "scope",
	KindTagName:         "tag name",
	KindAttributeName:   "attribute name",
	KindAttributeValue:  "attribute value",
	KindStateName:       "state name",
}

func (k PositionKind) String() string {
	if int(k) < len(positionKindNames) {
		return positionKindNames[k]
	}

	return "unknown"
}

// TypeFilter narrows type-only contexts.
type TypeFilter uint8

const (
	AnyType TypeFilter = iota
	ClassesOnly
	InterfacesOnly
)

// Structure is the smallest structural context around the cursor. It
// decides which keywords are legal.
type Structure uint8

const (
	StructFile Structure = iota
	StructPackage
	StructType
	StructFunction
)

// Context is the classified cursor.
type Context struct {
	Kind PositionKind
	Pos  *Position

	// Prefix is the partial word before the cursor, starting at
	// PrefixStart. Candidates replace [PrefixStart, Offset).
	Prefix      string
	PrefixStart int

	// Qualifier is a dotted package path typed before the prefix, as in
	// "flash.display." of an import.
	Qualifier string

	Types TypeFilter
	// PriorityType is the type a new expression is expected to produce.
	PriorityType *semantic.Definition

	// Receiver is the left operand of a member access.
	Receiver ast.NodeID
	Super    bool

	// Accessor is DefGetter or DefSetter for "override function get|set".
	Accessor semantic.DefKind

	Structure  Structure
	StaticOnly bool
	// Owner is the class enclosing the cursor.
	Owner *semantic.Definition
	// Function is the function enclosing the cursor.
	Function *semantic.Definition

	ParentTag *mxml.Tag
	Style     css.Location
	DocTag    *ast.DocTag
}

// rule is one entry of the classification table. match fills the context
// and reports whether the rule applies.
type rule struct {
	name  string
	match func(*classifier) bool
}

// scriptRules are evaluated in order; the first match wins.
var scriptRules = []rule{
	{"region", (*classifier).region},
	{"declaration name", (*classifier).declarationName},
	{"declared type", (*classifier).declaredType},
	{"new target", (*classifier).newTarget},
	{"type operand", (*classifier).typeOperand},
	{"package skeleton", (*classifier).packageSkeleton},
	{"import name", (*classifier).importName},
	{"member access", (*classifier).memberAccess},
	{"override", (*classifier).override},
	{"scope", (*classifier).scope},
}

type classifier struct {
	m    semantic.Model
	pos  *Position
	tree *ast.Tree
	ctx  *Context

	// prev is the token before the prefix, lead the token before the
	// dotted qualifier chain ending at prev. Both are -1 when absent.
	prev int
	lead int
}

// Classify determines the completion context at pos. A nil pos yields a
// KindNone context.
func Classify(m semantic.Model, pos *Position) *Context {
	if pos == nil {
		return &Context{Kind: KindNone, Receiver: ast.NoNode}
	}

	c := &classifier{m: m, pos: pos, tree: pos.Unit.Tree, prev: -1, lead: -1}
	c.ctx = &Context{Pos: pos, Receiver: ast.NoNode, PrefixStart: pos.Offset}
	c.ctx.PrefixStart = wordStart(pos.Text, pos.Offset)
	c.ctx.Prefix = pos.Text[c.ctx.PrefixStart:pos.Offset]

	switch {
	case pos.Sheet != nil:
		c.style()
	case pos.Unit.Kind == document.KindMarkup && !pos.InScript():
		c.markup()
	case !pos.InScript():
		c.ctx.Kind = KindNone
	default:
		c.tokens()

		for _, r := range scriptRules {
			if r.match(c) {
				log.Debugf("classified %s:%d as %s (%s)", pos.Unit.URI, pos.Offset, c.ctx.Kind, r.name)
				break
			}
		}
	}

	return c.ctx
}

func wordStart(text string, offset int) int {
	i := offset
	for i > 0 && isWordByte(text[i-1]) {
		i--
	}

	return i
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// tokens locates the token before the prefix and walks back over a dotted
// chain "a.b." to the token that introduces it.
func (c *classifier) tokens() {
	toks := c.tree.Tokens

	c.prev = c.tree.TokenIndexBefore(c.ctx.PrefixStart)
	c.lead = c.prev

	qualifier := ""

	for i := c.prev; i >= 1 && toks[i].Is("."); {
		name := c.tree.PrevToken(i)
		if name < 0 || toks[name].Kind != ast.TokenIdentifier {
			break
		}

		if qualifier == "" {
			qualifier = toks[name].Text
		} else {
			qualifier = toks[name].Text + "." + qualifier
		}

		c.lead = c.tree.PrevToken(name)
		i = c.lead
	}

	c.ctx.Qualifier = qualifier
}

func (c *classifier) token(i int) ast.Token {
	if i < 0 || i >= len(c.tree.Tokens) {
		return ast.Token{Kind: ast.TokenEOF}
	}

	return c.tree.Tokens[i]
}

func (c *classifier) set(kind PositionKind) bool {
	c.ctx.Kind = kind
	return true
}

// region handles comments and literals, which never fall through to
// scope completion.
func (c *classifier) region() bool {
	pos := c.pos

	if cm := pos.Comment; cm != nil {
		if !cm.Doc {
			return c.set(KindNone)
		}

		if tag, inName := cm.TagAt(pos.Offset); tag != nil {
			c.ctx.DocTag = tag

			switch {
			case inName:
				c.ctx.PrefixStart = tag.NameStart
				c.ctx.Prefix = pos.Text[tag.NameStart:pos.Offset]

				return c.set(KindDocTag)
			case tag.Name == "see":
				c.ctx.PrefixStart = tag.ValueStart
				c.ctx.Prefix = pos.Text[tag.ValueStart:pos.Offset]

				return c.set(KindDocReference)
			}
		}

		if c.ctx.PrefixStart > 0 && pos.Text[c.ctx.PrefixStart-1] == '@' {
			return c.set(KindDocTag)
		}

		return c.set(KindNone)
	}

	n := c.tree.Node(pos.Node)
	if n != nil && n.Kind == ast.KindLiteral && n.Start < pos.Offset && pos.Offset < n.End {
		return c.set(KindNone)
	}

	// An unterminated string or regexp token also swallows the cursor.
	if i := c.tree.TokenAt(pos.Offset); i >= 0 {
		t := c.tree.Tokens[i]
		if (t.Kind == ast.TokenString || t.Kind == ast.TokenRegExp) && t.Start < pos.Offset && (pos.Offset < t.End || !closedLiteral(t.Text)) {
			return c.set(KindNone)
		}
	}

	return false
}

func closedLiteral(text string) bool {
	if len(text) < 2 {
		return false
	}

	return text[len(text)-1] == text[0]
}

// declarationName suppresses completion for the name of a declaration being
// written, except after "override function".
func (c *classifier) declarationName() bool {
	t := c.token(c.prev)

	switch {
	case t.Is("class"), t.Is("interface"), t.Is("var"), t.Is("const"):
		return c.set(KindDeclarationName)
	case t.Kind == ast.TokenIdentifier && t.Text == "namespace" && c.ctx.Qualifier == "":
		return c.set(KindDeclarationName)
	}

	fn := c.prev
	c.ctx.Accessor = semantic.DefFunction

	if t.Kind == ast.TokenIdentifier && (t.Text == "get" || t.Text == "set") {
		fn = c.tree.PrevToken(c.prev)
		if t.Text == "get" {
			c.ctx.Accessor = semantic.DefGetter
		} else {
			c.ctx.Accessor = semantic.DefSetter
		}
	}

	if !c.token(fn).Is("function") {
		return false
	}

	if c.hasOverrideModifier(c.tree.PrevToken(fn)) {
		c.scopeInfo()
		return c.set(KindOverrideName)
	}

	return c.set(KindDeclarationName)
}

var modifierKeywords = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"static": true, "override": true, "final": true, "native": true, "dynamic": true,
}

// hasOverrideModifier walks back over the modifier tokens ending at i.
func (c *classifier) hasOverrideModifier(i int) bool {
	for ; i >= 0; i = c.tree.PrevToken(i) {
		t := c.tree.Tokens[i]
		if t.Kind != ast.TokenKeyword || !modifierKeywords[t.Text] {
			return false
		}

		if t.Text == "override" {
			return true
		}
	}

	return false
}

// declaredType matches the type annotation of a variable, parameter or
// function, and Vector type arguments.
func (c *classifier) declaredType() bool {
	t := c.token(c.lead)

	switch {
	case t.Is(".<"):
		c.ctx.Types = AnyType
		c.scopeInfo()

		return c.set(KindTypeName)
	case !t.Is(":"):
		return false
	}

	ref := c.tree.FindByPos(ast.KindTypeRef, t.Start)
	if !ref.Valid() {
		return false
	}

	switch c.tree.Kind(c.tree.Parent(ref)) {
	case ast.KindVariable, ast.KindParameter, ast.KindFunction, ast.KindFunctionExpr:
		c.ctx.Types = AnyType
		c.scopeInfo()

		return c.set(KindTypeName)
	}

	return false
}

// newTarget matches the callee of a new expression and derives the expected
// type from the assignment it feeds.
func (c *classifier) newTarget() bool {
	t := c.token(c.lead)
	if !t.Is("new") {
		return false
	}

	c.ctx.Types = ClassesOnly
	c.scopeInfo()

	expr := c.tree.FindByPos(ast.KindNew, t.Start)
	if expr.Valid() {
		c.ctx.PriorityType = c.expectedType(expr)
	}

	return c.set(KindNewTarget)
}

// expectedType is the type the value of expr is assigned to: a typed
// variable, the left side of an assignment, or the return type of the
// enclosing function.
func (c *classifier) expectedType(expr ast.NodeID) *semantic.Definition {
	u := c.pos.Unit
	parentID := c.tree.Parent(expr)
	parent := c.tree.Node(parentID)

	if parent == nil {
		return nil
	}

	var t *semantic.Type

	switch parent.Kind {
	case ast.KindVariable:
		if parent.Right == expr {
			t = c.m.DeclaredType(u.DefinitionAt(parentID))
		}
	case ast.KindAssign:
		if parent.Right == expr {
			t = c.m.TypeOf(u, parent.Left)
		}
	case ast.KindReturn:
		fn := c.tree.Enclosing(parentID, ast.KindFunction, ast.KindFunctionExpr)
		t = c.m.DeclaredType(u.DefinitionAt(fn))
	}

	if t == nil {
		return nil
	}

	return t.Def
}

// typeOperand matches as/is operands and extends/implements clauses.
func (c *classifier) typeOperand() bool {
	t := c.token(c.lead)

	switch {
	case t.Is("as"), t.Is("is"):
		c.ctx.Types = AnyType
	case t.Is("implements"):
		c.ctx.Types = InterfacesOnly
	case t.Is("extends"):
		decl := c.token(c.tree.PrevToken(c.tree.PrevToken(c.lead)))
		if decl.Is("interface") {
			c.ctx.Types = InterfacesOnly
		} else {
			c.ctx.Types = ClassesOnly
		}
	case t.Is(","):
		ref := c.tree.FindByPos(ast.KindTypeRef, t.End)
		if !ref.Valid() {
			return false
		}

		switch c.tree.Kind(c.tree.Parent(ref)) {
		case ast.KindClass, ast.KindInterface:
			c.ctx.Types = InterfacesOnly
		default:
			return false
		}
	default:
		return false
	}

	c.scopeInfo()

	return c.set(KindTypeName)
}

// packageSkeleton matches the very beginning of a script file that has no
// package block yet.
func (c *classifier) packageSkeleton() bool {
	if c.pos.Unit.Kind != document.KindScript || c.prev >= 0 {
		return false
	}

	root := c.tree.Node(c.tree.Root)
	for _, id := range root.List {
		if c.tree.Kind(id) == ast.KindPackage {
			return false
		}
	}

	return c.set(KindPackageSkeleton)
}

func (c *classifier) importName() bool {
	if !c.token(c.lead).Is("import") {
		return false
	}

	return c.set(KindImportName)
}

// memberAccess matches the right side of a dot, including an empty right
// side the parser left open.
func (c *classifier) memberAccess() bool {
	t := c.token(c.prev)
	if !t.Is(".") {
		return false
	}

	c.scopeInfo()

	access := c.tree.FindByPos(ast.KindMemberAccess, t.Start)
	if n := c.tree.Node(access); n != nil {
		c.ctx.Receiver = n.Left
		c.ctx.Super = c.tree.Kind(n.Left) == ast.KindSuper
	}

	return c.set(KindMemberAccess)
}

// override matches modifiers containing override before the function
// keyword has been typed.
func (c *classifier) override() bool {
	if !c.hasOverrideModifier(c.prev) {
		return false
	}

	c.scopeInfo()
	if c.ctx.Owner == nil || c.ctx.Structure != StructType {
		return false
	}

	return c.set(KindOverride)
}

func (c *classifier) scope() bool {
	c.scopeInfo()
	return c.set(KindScope)
}

// scopeInfo derives the structural context, the enclosing class and
// function, and whether only statics are reachable.
func (c *classifier) scopeInfo() {
	u := c.pos.Unit
	tree := c.tree
	ctx := c.ctx

	ctx.Structure = StructFile

	for cur := c.pos.Node; cur.Valid(); cur = tree.Parent(cur) {
		n := tree.Node(cur)

		switch n.Kind {
		case ast.KindFunction, ast.KindFunctionExpr:
			if ctx.Function == nil && inBody(tree, n, c.pos.Offset) {
				ctx.Function = u.DefinitionAt(cur)
				if ctx.Structure == StructFile {
					ctx.Structure = StructFunction
				}
			}
		case ast.KindClass, ast.KindInterface:
			if ctx.Owner == nil {
				ctx.Owner = u.DefinitionAt(cur)
				if ctx.Structure == StructFile {
					ctx.Structure = StructType
				}
			}
		case ast.KindPackage:
			if ctx.Structure == StructFile && !n.Flags.Has(ast.FlagSynthetic) {
				ctx.Structure = StructPackage
			}
		}
	}

	if fn := ctx.Function; fn != nil {
		for cur := fn; cur != nil; cur = cur.Owner {
			if cur.Static {
				ctx.StaticOnly = true
				break
			}

			if cur.Kind.IsType() {
				break
			}
		}
	}
}

// inBody reports whether offset lies inside the braces of a function body.
// Functions synthesized from markup have no braces.
func inBody(tree *ast.Tree, fn *ast.Node, offset int) bool {
	if fn.Flags.Has(ast.FlagSynthetic) {
		return true
	}

	b := tree.Node(fn.Body)
	if b == nil || offset <= b.Start {
		return false
	}

	return offset < b.End || !strings.HasSuffix(tree.Source[b.Start:b.End], "}")
}

// style classifies offsets inside stylesheets.
func (c *classifier) style() {
	loc := c.pos.Sheet.At(c.pos.Offset)
	c.ctx.Style = loc
	c.ctx.Prefix = loc.Prefix
	c.ctx.PrefixStart = loc.WordStart

	switch loc.Kind {
	case css.LocSelector:
		c.ctx.Kind = KindStyleSelector
	case css.LocProperty:
		c.ctx.Kind = KindStyleProperty
	case css.LocValue:
		c.ctx.Kind = KindStyleValue
	default:
		c.ctx.Kind = KindNone
	}
}
