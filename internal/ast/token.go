package ast

import "sort"

// TokenKind classifies lexical tokens.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdentifier
	TokenKeyword
	TokenNumber
	TokenString
	TokenRegExp
	TokenPunct
	TokenComment
	TokenDocComment
)

// Token is one lexical token with its absolute byte range.
type Token struct {
	Kind  TokenKind
	Start int
	End   int
	Text  string
}

// Is reports whether the token is the keyword or punctuator text.
func (t Token) Is(text string) bool {
	return (t.Kind == TokenKeyword || t.Kind == TokenPunct) && t.Text == text
}

// IsName reports whether the token can act as a name. Contextual keywords
// such as get, set, each and namespace are lexed as identifiers.
func (t Token) IsName() bool {
	return t.Kind == TokenIdentifier
}

// TokenIndexBefore returns the index of the last non-comment token ending at
// or before offset, or -1.
func (t *Tree) TokenIndexBefore(offset int) int {
	i := sort.Search(len(t.Tokens), func(i int) bool {
		return t.Tokens[i].End > offset
	}) - 1

	for i >= 0 && (t.Tokens[i].Kind == TokenComment || t.Tokens[i].Kind == TokenDocComment) {
		i--
	}

	return i
}

// TokenAt returns the index of the token containing offset (start inclusive,
// end inclusive), or -1.
func (t *Tree) TokenAt(offset int) int {
	i := sort.Search(len(t.Tokens), func(i int) bool {
		return t.Tokens[i].End >= offset
	})
	if i < len(t.Tokens) && t.Tokens[i].Start <= offset {
		return i
	}

	return -1
}

// PrevToken returns the index of the non-comment token before index i, or -1.
func (t *Tree) PrevToken(i int) int {
	for i--; i >= 0; i-- {
		if t.Tokens[i].Kind != TokenComment && t.Tokens[i].Kind != TokenDocComment {
			return i
		}
	}

	return -1
}

// SortTokens orders tokens and comments by start offset. Trees assembled from several
// embedded regions call it after the last region is parsed.
func (t *Tree) SortTokens() {
	sort.SliceStable(t.Tokens, func(i, j int) bool {
		return t.Tokens[i].Start < t.Tokens[j].Start
	})
	sort.SliceStable(t.Comments, func(i, j int) bool {
		return t.Comments[i].Start < t.Comments[j].Start
	})
}
