// Package ast defines the arena-allocated syntax tree produced by the
// ActionScript parser.
//
// All nodes of one parse live in a single Tree and refer to each other by
// NodeID. Parent links are plain indices used for upward traversal only, so a
// tree can be dropped and rebuilt on every edit without ownership cycles.
package ast

import "sort"

// NodeID is a handle to a node inside a Tree.
type NodeID int32

// NoNode marks an absent child or the parent of the root.
const NoNode NodeID = -1

// Valid reports whether id refers to a node.
func (id NodeID) Valid() bool { return id >= 0 }

// Kind is the syntactic category of a node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFile
	KindPackage
	KindImport
	KindClass
	KindInterface
	KindFunction
	KindVariable
	KindParameter
	KindTypeRef
	KindBlock
	KindIdentifier
	KindMemberAccess
	KindCall
	KindNew
	KindBinary
	KindUnary
	KindAssign
	KindIndex
	KindConditional
	KindLiteral
	KindArrayLiteral
	KindObjectLiteral
	KindProperty
	KindFunctionExpr
	KindThis
	KindSuper
	KindExprStmt
	KindReturn
	KindIf
	KindWhile
	KindDoWhile
	KindFor
	KindForIn
	KindSwitch
	KindCase
	KindTry
	KindCatch
	KindThrow
	KindBreak
	KindContinue
	KindUseNamespace
	KindEmpty
)

var kindNames = [...]string{
	KindInvalid:       "Invalid",
	KindFile:          "File",
	KindPackage:       "Package",
	KindImport:        "Import",
	KindClass:         "Class",
	KindInterface:     "Interface",
	KindFunction:      "Function",
	KindVariable:      "Variable",
	KindParameter:     "Parameter",
	KindTypeRef:       "TypeRef",
	KindBlock:         "Block",
	KindIdentifier:    "Identifier",
	KindMemberAccess:  "MemberAccess",
	KindCall:          "Call",
	KindNew:           "New",
	KindBinary:        "Binary",
	KindUnary:         "Unary",
	KindAssign:        "Assign",
	KindIndex:         "Index",
	KindConditional:   "Conditional",
	KindLiteral:       "Literal",
	KindArrayLiteral:  "ArrayLiteral",
	KindObjectLiteral: "ObjectLiteral",
	KindProperty:      "Property",
	KindFunctionExpr:  "FunctionExpr",
	KindThis:          "This",
	KindSuper:         "Super",
	KindExprStmt:      "ExprStmt",
	KindReturn:        "Return",
	KindIf:            "If",
	KindWhile:         "While",
	KindDoWhile:       "DoWhile",
	KindFor:           "For",
	KindForIn:         "ForIn",
	KindSwitch:        "Switch",
	KindCase:          "Case",
	KindTry:           "Try",
	KindCatch:         "Catch",
	KindThrow:         "Throw",
	KindBreak:         "Break",
	KindContinue:      "Continue",
	KindUseNamespace:  "UseNamespace",
	KindEmpty:         "Empty",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Unknown"
}

// IsDeclaration reports whether nodes of this kind introduce a name.
func (k Kind) IsDeclaration() bool {
	switch k {
	case KindPackage, KindClass, KindInterface, KindFunction, KindVariable, KindParameter:
		return true
	}

	return false
}

// Flags carries declaration modifiers and node variants.
type Flags uint32

const (
	FlagPublic Flags = 1 << iota
	FlagPrivate
	FlagProtected
	FlagInternal
	FlagStatic
	FlagOverride
	FlagFinal
	FlagDynamic
	FlagNative
	FlagConst
	FlagGetter
	FlagSetter
	FlagRest
	FlagString
	FlagEach
	FlagSynthetic
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Node is a single syntax node. Which fields are meaningful depends on Kind:
//
//	Package:      Name (dotted identifier), List (members)
//	Import:       Name (dotted identifier), Text (imported path)
//	Class:        Name, Left (extends TypeRef), Extra (implements), List (members)
//	Interface:    Name, Extra (extends), List (members)
//	Function:     Name, List (parameters), Type (return), Body
//	Variable:     Name, Type, Right (initializer)
//	Parameter:    Name, Type, Right (default value)
//	TypeRef:      Name (last segment), Text (dotted name), List (type arguments), Pos (colon)
//	MemberAccess: Left (object), Right (Identifier), Pos (dot)
//	Call, New:    Left (callee), List (arguments)
//	Binary:       Text (operator), Left, Right (TypeRef for as/is)
//	Assign:       Text (operator), Left, Right
//	Index:        Left (object), Right (index)
//	Conditional:  List (condition, then, else)
//	If:           List (condition, then, else)
//	While, For*:  List (header parts..., body)
//	Switch:       Left, List (cases)
//	Try:          Body, List (catches), Right (finally)
//	Catch:        Left (Parameter), Body
type Node struct {
	Kind   Kind
	Start  int
	End    int
	Pos    int
	Parent NodeID
	Text   string
	Flags  Flags
	Name   NodeID
	Type   NodeID
	Left   NodeID
	Right  NodeID
	Body   NodeID
	List   []NodeID
	Extra  []NodeID
	Meta   []Metadata
	Doc    *Comment
}

// Metadata is an annotation such as [Event(name="change", type="flash.events.Event")].
type Metadata struct {
	Name  string
	Args  []MetadataArg
	Start int
	End   int
}

// MetadataArg is one key/value pair of a metadata tag. Key is empty for
// positional arguments.
type MetadataArg struct {
	Key        string
	Value      string
	ValueStart int
	ValueEnd   int
}

// Arg returns the value of the named argument, or the first positional
// argument when key is empty.
func (m Metadata) Arg(key string) (string, bool) {
	for _, a := range m.Args {
		if a.Key == key {
			return a.Value, true
		}
	}

	return "", false
}

// Contains reports whether offset lies within [Start, End], the end being
// inclusive so that a cursor placed right after a name still touches it.
func (n *Node) Contains(offset int) bool {
	return n.Start <= offset && offset <= n.End
}

// SyntaxError is a recoverable parse problem.
type SyntaxError struct {
	Start   int
	End     int
	Message string
}

// Tree owns every node of one parse.
type Tree struct {
	Source   string
	Nodes    []Node
	Root     NodeID
	Tokens   []Token
	Comments []*Comment
	Errors   []SyntaxError
}

// NewTree creates an empty tree over source.
func NewTree(source string) *Tree {
	return &Tree{Source: source, Root: NoNode}
}

// Add appends n and returns its handle. Unset handle fields must be NoNode.
func (t *Tree) Add(n Node) NodeID {
	t.Nodes = append(t.Nodes, n)
	return NodeID(len(t.Nodes) - 1)
}

// Blank returns a node of kind k spanning [start, end) with every handle unset.
func Blank(k Kind, start, end int) Node {
	return Node{
		Kind:   k,
		Start:  start,
		End:    end,
		Pos:    -1,
		Parent: NoNode,
		Name:   NoNode,
		Type:   NoNode,
		Left:   NoNode,
		Right:  NoNode,
		Body:   NoNode,
	}
}

// Node returns the node for id, or nil for NoNode and out-of-range handles.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}

	return &t.Nodes[id]
}

// Kind returns the kind of id or KindInvalid.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.Node(id); n != nil {
		return n.Kind
	}

	return KindInvalid
}

// Parent returns the parent handle of id.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.Parent
	}

	return NoNode
}

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	n := t.Node(id)
	if n == nil || n.Start < 0 || n.End > len(t.Source) || n.Start > n.End {
		return ""
	}

	return t.Source[n.Start:n.End]
}

// Children returns the direct children of id in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.Node(id)
	if n == nil {
		return nil
	}

	var out []NodeID

	add := func(c NodeID) {
		if c.Valid() {
			out = append(out, c)
		}
	}

	add(n.Name)
	add(n.Left)
	add(n.Type)

	for _, c := range n.Extra {
		add(c)
	}

	for _, c := range n.List {
		add(c)
	}

	add(n.Right)
	add(n.Body)

	sort.SliceStable(out, func(i, j int) bool {
		return t.Nodes[out[i]].Start < t.Nodes[out[j]].Start
	})

	return out
}

// SetParents links every child to its parent. The parser calls it once the
// tree is complete.
func (t *Tree) SetParents() {
	for i := range t.Nodes {
		for _, c := range t.Children(NodeID(i)) {
			t.Nodes[c].Parent = NodeID(i)
		}
	}
}

// Walk visits id and its descendants in source order. Returning false from
// fn skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !id.Valid() {
		return
	}

	if !fn(id) {
		return
	}

	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}

// Innermost returns the deepest node whose range contains offset, starting
// from the root. It returns NoNode when nothing contains the offset.
func (t *Tree) Innermost(offset int) NodeID {
	return t.innermostFrom(t.Root, offset)
}

func (t *Tree) innermostFrom(id NodeID, offset int) NodeID {
	n := t.Node(id)
	if n == nil || !n.Contains(offset) {
		return NoNode
	}

	best := id

	for _, c := range t.Children(id) {
		if found := t.innermostFrom(c, offset); found.Valid() {
			best = found
			// Prefer a child that strictly contains the offset over one that
			// merely ends at it.
			if cn := t.Node(found); cn.Start <= offset && offset < cn.End {
				break
			}
		}
	}

	return best
}

// Enclosing returns the nearest ancestor of id (id included) with one of the
// given kinds.
func (t *Tree) Enclosing(id NodeID, kinds ...Kind) NodeID {
	for cur := id; cur.Valid(); cur = t.Parent(cur) {
		k := t.Kind(cur)
		for _, want := range kinds {
			if k == want {
				return cur
			}
		}
	}

	return NoNode
}

// IsAncestor reports whether anc is id or one of its ancestors.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for cur := id; cur.Valid(); cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}

	return false
}

// FindByPos returns the first node of kind k whose Pos equals pos.
func (t *Tree) FindByPos(k Kind, pos int) NodeID {
	for i := range t.Nodes {
		if t.Nodes[i].Kind == k && t.Nodes[i].Pos == pos {
			return NodeID(i)
		}
	}

	return NoNode
}

// Identifiers returns every identifier node, in arena order.
func (t *Tree) Identifiers() []NodeID {
	var out []NodeID

	for i := range t.Nodes {
		if t.Nodes[i].Kind == KindIdentifier {
			out = append(out, NodeID(i))
		}
	}

	return out
}
