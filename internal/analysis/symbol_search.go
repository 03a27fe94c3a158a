package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// QueryTokens splits a camelCase query into its words: "getFooBar" yields
// "get", "Foo", "Bar". Underscores, dots and spaces separate words too.
func QueryTokens(query string) []string {
	var tokens []string

	start := -1
	runes := []rune(query)

	flush := func(end int) {
		if start >= 0 && end > start {
			tokens = append(tokens, string(runes[start:end]))
		}

		start = -1
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '.' || r == ' ' || r == '$':
			flush(i)
		case unicode.IsUpper(r) && start >= 0 && !unicode.IsUpper(runes[i-1]):
			flush(i)
			start = i
		case start < 0:
			start = i
		}
	}

	flush(len(runes))

	return tokens
}

// IsQualifiedQuery reports whether the query looks like a dotted qualified
// name, which switches matching to exact prefixes.
func IsQualifiedQuery(query string) bool {
	i := strings.IndexByte(query, '.')
	return i > 0 && i < len(query)-1 || strings.HasSuffix(query, ".") && len(query) > 1
}

// MatchQuery reports whether qname matches query. Qualified queries match
// as an exact prefix of the qualified name. Other queries match when every
// camelCase word appears in qname in order, ignoring case.
func MatchQuery(query, qname string) bool {
	if query == "" {
		return true
	}

	if IsQualifiedQuery(query) {
		return strings.HasPrefix(qname, query)
	}

	return matchTokens(QueryTokens(query), qname)
}

func matchTokens(tokens []string, s string) bool {
	rest := strings.ToLower(s)

	for _, tok := range tokens {
		// Lowering may change the byte length of tok.
		lower := strings.ToLower(tok)

		i := strings.Index(rest, lower)
		if i < 0 {
			return false
		}

		rest = rest[i+len(lower):]
	}

	return true
}

// MatchPrefix decides whether a completion label fits the typed prefix:
// a case-insensitive prefix, or a camelCase abbreviation whose first word
// starts the label ("aEL" for addEventListener).
func MatchPrefix(label, prefix string) bool {
	if prefix == "" {
		return true
	}

	if len(label) >= len(prefix) && strings.EqualFold(label[:len(prefix)], prefix) {
		return true
	}

	tokens := QueryTokens(prefix)
	if len(tokens) < 2 || !strings.HasPrefix(strings.ToLower(label), strings.ToLower(tokens[0])) {
		return false
	}

	return matchTokens(tokens, label)
}

// SymbolMatch is one workspace symbol search result.
type SymbolMatch struct {
	Def   *semantic.Definition
	Score int
}

// SearchSymbols matches query against the qualified names of all types,
// package members and type members of source units. Results are ordered by
// score, exact name matches first. A limit of zero means no limit.
func SearchSymbols(ctx context.Context, m semantic.Model, query string, limit int) ([]SymbolMatch, error) {
	var out []SymbolMatch

	for _, u := range m.Units() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("symbol search: %w", err)
		}

		if u.ReadOnly() {
			continue
		}

		for _, d := range u.Definitions {
			if !Searchable(d) || !MatchQuery(query, d.QualifiedName) {
				continue
			}

			out = append(out, SymbolMatch{Def: d, Score: SymbolScore(query, d.Name)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		return out[i].Def.QualifiedName < out[j].Def.QualifiedName
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// SymbolScore ranks a matching name: exact matches, then prefixes, then
// the rest.
func SymbolScore(query, name string) int {
	switch {
	case strings.EqualFold(query, name):
		return 3
	case len(name) >= len(query) && strings.EqualFold(name[:len(query)], query):
		return 2
	}

	return 1
}

// Searchable reports whether d is listed by workspace symbol search.
func Searchable(d *semantic.Definition) bool {
	if d.Name == "" || strings.HasPrefix(d.Name, "@") {
		return false
	}

	switch d.Classification {
	case semantic.ClassPackageMember, semantic.ClassMember, semantic.ClassInterfaceMember:
		return true
	}

	return d.Kind.IsType()
}
