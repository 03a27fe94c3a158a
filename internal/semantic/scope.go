package semantic

// ScopeKind classifies scopes.
type ScopeKind uint8

const (
	ScopePackage ScopeKind = iota
	ScopeFile
	ScopeType
	ScopeFunction
)

func (k ScopeKind) String() string {
	switch k {
	case ScopePackage:
		return "package"
	case ScopeFile:
		return "file"
	case ScopeType:
		return "type"
	default:
		return "function"
	}
}

// Scope is one link of a scope chain. Chains run from the innermost scope to
// the outermost through Parent.
type Scope struct {
	Kind   ScopeKind
	Parent *Scope
	// Owner is the type or function that opens the scope.
	Owner *Definition
	Unit  *Unit
	// Package names the package of package scopes.
	Package string
	// Whole marks package scopes that expose every definition of Package.
	// Other package scopes expose the explicit imports in Qualified.
	Whole     bool
	Qualified []string

	Start int
	End   int

	Defs     []*Definition
	Children []*Scope

	byName map[string][]*Definition
}

// NewScope creates a scope nested in parent.
func NewScope(kind ScopeKind, parent *Scope, start, end int) *Scope {
	s := &Scope{Kind: kind, Parent: parent, Start: start, End: end}
	if parent != nil {
		s.Unit = parent.Unit
		parent.Children = append(parent.Children, s)
	}

	return s
}

// Declare adds d to the scope.
func (s *Scope) Declare(d *Definition) {
	if s.byName == nil {
		s.byName = make(map[string][]*Definition)
	}

	s.Defs = append(s.Defs, d)
	s.byName[d.Name] = append(s.byName[d.Name], d)
}

// Lookup returns the definitions declared directly in s under name.
func (s *Scope) Lookup(name string) []*Definition {
	return s.byName[name]
}

// Contains reports whether offset lies within the scope's range.
func (s *Scope) Contains(offset int) bool {
	return s.Start <= offset && offset <= s.End
}

// Innermost returns the deepest descendant scope containing offset.
func (s *Scope) Innermost(offset int) *Scope {
	for _, c := range s.Children {
		if c.Contains(offset) {
			return c.Innermost(offset)
		}
	}

	return s
}

// Chain returns s and its ancestors, innermost first.
func (s *Scope) Chain() []*Scope {
	var out []*Scope
	for cur := s; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}

	return out
}

// EnclosingKind returns the nearest scope of the given kind, s included.
func (s *Scope) EnclosingKind(kind ScopeKind) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == kind {
			return cur
		}
	}

	return nil
}
