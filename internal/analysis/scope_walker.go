package analysis

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// WalkOptions controls WalkScopes.
type WalkOptions struct {
	// StaticOnly hides instance members of the innermost type, as inside a
	// static function.
	StaticOnly bool
	// Accept, when set, drops the definitions it rejects. Rejected names
	// still shadow outer scopes.
	Accept func(*semantic.Definition) bool
}

// WalkScopes collects the definitions reachable by unqualified name from
// the innermost scope of chain outwards. A name seen in an inner scope
// hides every outer definition of the same name.
func WalkScopes(m semantic.Model, chain []*semantic.Scope, opts WalkOptions) []*semantic.Definition {
	var out []*semantic.Definition

	seen := make(map[string]bool)
	innermostType := true

	for _, s := range chain {
		isType := s.Kind == semantic.ScopeType
		hidden := make(map[string]bool)

		for _, d := range m.VisibleDefinitions(s) {
			if d.Name == "" || seen[d.Name] || SkipDefinition(d) {
				continue
			}

			if isType && !memberVisible(d, s, innermostType, opts.StaticOnly) {
				continue
			}

			hidden[d.Name] = true

			if opts.Accept != nil && !opts.Accept(d) {
				continue
			}

			out = append(out, d)
			seen[d.Name] = true
		}

		for name := range hidden {
			seen[name] = true
		}

		if isType {
			innermostType = false
		}
	}

	return out
}

// memberVisible applies the type scope rules: instance members only in the
// innermost type and only outside static functions, private members only
// from their own class.
func memberVisible(d *semantic.Definition, s *semantic.Scope, innermost, staticOnly bool) bool {
	if d.IsConstructor() {
		return false
	}

	if d.Visibility == semantic.Private && d.Owner != s.Owner {
		return false
	}

	// Inherited statics stay reachable by simple name inside subclasses.
	if d.Static {
		return true
	}

	return innermost && !staticOnly
}

// SkipDefinition reports whether d is represented by another definition
// and must not be listed on its own: overrides (the base stands for them),
// setters paired with a getter, variables declared in interfaces, and
// functions synthesized from markup.
func SkipDefinition(d *semantic.Definition) bool {
	switch {
	case strings.HasPrefix(d.Name, "@"):
		return true
	case d.Override && d.Kind.IsFunction():
		return true
	case d.Kind == semantic.DefSetter && pairedGetter(d) != nil:
		return true
	case d.Owner != nil && d.Owner.Kind == semantic.DefInterface && (d.Kind == semantic.DefVariable || d.Kind == semantic.DefConstant):
		return true
	}

	return false
}

// pairedGetter returns the getter declared next to setter d.
func pairedGetter(d *semantic.Definition) *semantic.Definition {
	if d.Owner == nil {
		return nil
	}

	for _, m := range d.Owner.Member(d.Name) {
		if m.Kind == semantic.DefGetter && m.Static == d.Static {
			return m
		}
	}

	return nil
}
