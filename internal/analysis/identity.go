package analysis

import "github.com/CWBudde/go-as3-lsp/internal/semantic"

// maxOverrideDepth bounds override chain walks in broken hierarchies.
const maxOverrideDepth = 64

// CanonicalIdentity maps a definition to the one that stands for every
// occurrence of the same symbol: the getter of an accessor pair, the class
// of a constructor, and the root of an override chain. Searching from any
// link of a chain therefore yields the same identity.
func CanonicalIdentity(m semantic.Model, d *semantic.Definition) *semantic.Definition {
	if d == nil {
		return nil
	}

	if d.IsConstructor() {
		return d.Owner
	}

	d = accessorIdentity(d)

	for i := 0; i < maxOverrideDepth && d.Override; i++ {
		base := m.Overridden(d)
		if base == nil || base == d {
			break
		}

		d = accessorIdentity(base)
	}

	return d
}

// accessorIdentity maps a setter to the getter declared beside it.
func accessorIdentity(d *semantic.Definition) *semantic.Definition {
	if d.Kind == semantic.DefSetter {
		if g := pairedGetter(d); g != nil {
			return g
		}
	}

	return d
}

// SameIdentity reports whether a and b name the same symbol.
func SameIdentity(m semantic.Model, a, b *semantic.Definition) bool {
	if a == nil || b == nil {
		return false
	}

	return CanonicalIdentity(m, a) == CanonicalIdentity(m, b)
}
