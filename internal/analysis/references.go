package analysis

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// Occurrence is one place a symbol is named.
type Occurrence struct {
	Unit  *semantic.Unit
	Start int
	End   int
	// Declaration marks the name of the symbol's own declaration.
	Declaration bool
}

// Location converts the occurrence to a protocol location.
func (o Occurrence) Location() protocol.Location {
	return protocol.Location{URI: o.Unit.URI, Range: document.OffsetRange(o.Unit.Source, o.Start, o.End)}
}

// SearchUnits returns the units that can refer to target. Private and
// local symbols are only visible in their own unit.
func SearchUnits(m semantic.Model, target *semantic.Definition) []*semantic.Unit {
	if target.Visibility == semantic.Private || target.IsLocal() {
		if target.Unit == nil {
			return nil
		}

		return []*semantic.Unit{target.Unit}
	}

	var out []*semantic.Unit

	for _, u := range m.Units() {
		if u.ReadOnly() && u != target.Unit {
			continue
		}

		out = append(out, u)
	}

	return out
}

// FindReferences returns every occurrence of target across the units that
// can see it. Units are scanned in parallel; the scan stops at the first
// unit boundary after ctx is cancelled and then returns no results.
func FindReferences(ctx context.Context, m semantic.Model, target *semantic.Definition, includeDeclaration bool) ([]Occurrence, error) {
	if target == nil || target.Kind == semantic.DefPackage {
		return []Occurrence{}, nil
	}

	canonical := CanonicalIdentity(m, target)
	units := SearchUnits(m, canonical)
	results := make([][]Occurrence, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = scanUnitSafely(m, u, canonical)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("references to %s: %w", canonical.Name, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("references to %s: %w", canonical.Name, err)
	}

	out := []Occurrence{}

	for _, occs := range results {
		for _, o := range occs {
			if includeDeclaration || !o.Declaration {
				out = append(out, o)
			}
		}
	}

	return out, nil
}

// scanUnitSafely scans one unit. A unit that fails is logged and skipped.
func scanUnitSafely(m semantic.Model, u *semantic.Unit, target *semantic.Definition) (occs []Occurrence) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("scanning %s for %s: %v", u.URI, target.Name, r)
			occs = nil
		}
	}()

	s := &unitScan{m: m, u: u, target: target, seen: make(map[[2]int]int)}
	s.markup()
	s.styles()
	s.tree()
	s.metadata()

	sort.Slice(s.occs, func(i, j int) bool { return s.occs[i].Start < s.occs[j].Start })

	return s.occs
}

type unitScan struct {
	m      semantic.Model
	u      *semantic.Unit
	target *semantic.Definition
	occs   []Occurrence
	seen   map[[2]int]int
}

func (s *unitScan) matches(d *semantic.Definition) bool {
	return d != nil && CanonicalIdentity(s.m, d) == s.target
}

func (s *unitScan) add(start, end int, decl bool) {
	key := [2]int{start, end}
	if i, ok := s.seen[key]; ok {
		s.occs[i].Declaration = s.occs[i].Declaration || decl
		return
	}

	s.seen[key] = len(s.occs)
	s.occs = append(s.occs, Occurrence{Unit: s.u, Start: start, End: end, Declaration: decl})
}

// markup matches tag names and attribute names.
func (s *unitScan) markup() {
	doc := s.u.Markup
	if doc == nil {
		return
	}

	for _, t := range doc.Tags {
		if t.IsLanguageTag() {
			continue
		}

		if t.Name == s.target.Name && s.matches(tagTarget(s.m, s.u, t)) {
			start, end := tagNameRange(t)
			s.add(start, end, false)

			if cs, ce, ok := closeNameRange(t); ok {
				s.add(cs, ce, false)
			}
		}

		for _, a := range t.Attrs {
			if a.BaseName() != s.target.Name {
				continue
			}

			if s.matches(attrTarget(s.m, s.u, t, a)) {
				start, end := attrNameRange(a)
				s.add(start, end, false)
			}
		}
	}
}

// styles matches type selectors and style properties.
func (s *unitScan) styles() {
	for _, sheet := range s.u.Styles {
		for _, r := range sheet.Rules {
			for _, sel := range r.Selectors {
				for i := range sel.Types {
					ts := &sel.Types[i]
					if ts.Name == s.target.Name && s.matches(selectorClass(s.m, sheet, ts)) {
						s.add(ts.Start, ts.End, false)
					}
				}
			}

			if s.target.Kind != semantic.DefStyle {
				continue
			}

			cls := ruleClass(s.m, sheet, r)
			for _, d := range r.Declarations {
				if camelStyleName(d.Property) == s.target.Name && s.matches(styleNamed(s.m, cls, d.Property)) {
					s.add(d.PropStart, d.PropEnd, false)
				}
			}
		}
	}
}

// tree matches identifiers of the script tree whose resolution has the
// target identity.
func (s *unitScan) tree() {
	tree := s.u.Tree
	if tree == nil {
		return
	}

	name := s.target.Name

	for _, id := range tree.Identifiers() {
		n := tree.Node(id)
		if n.Flags.Has(ast.FlagSynthetic) || n.End <= n.Start || !n.Parent.Valid() {
			continue
		}

		parent := tree.Node(n.Parent)

		switch parent.Kind {
		case ast.KindPackage:
			continue
		case ast.KindImport:
			_, last := semantic.SplitQualified(parent.Text)
			if last == name && s.matches(s.m.FindQualified(parent.Text)) {
				s.add(n.End-len(last), n.End, false)
			}

			continue
		}

		if n.Text != name {
			continue
		}

		d := s.m.Resolve(s.u, id)
		if !s.matches(d) {
			continue
		}

		decl := parent.Kind.IsDeclaration() && parent.Name == id && !d.Override
		s.add(n.Start, n.End, decl)
	}
}

// metadata adds the declaration of events and styles, which is the name
// argument of their metadata tag.
func (s *unitScan) metadata() {
	t := s.target
	if t.Unit != s.u || t.Node.Valid() || t.NameEnd <= t.NameStart {
		return
	}

	if t.Kind == semantic.DefEvent || t.Kind == semantic.DefStyle {
		s.add(t.NameStart, t.NameEnd, true)
	}
}

// Locations converts occurrences to protocol locations.
func Locations(occs []Occurrence) []protocol.Location {
	out := make([]protocol.Location, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Location())
	}

	return out
}
