package ast

import (
	"strings"
	"unicode"
)

// Comment is a source comment. Doc comments (/** ... */) carry their parsed
// tags.
type Comment struct {
	Start int
	End   int
	Doc   bool
	Text  string
	Tags  []DocTag
}

// DocTag is one @tag inside a doc comment.
type DocTag struct {
	Name       string
	NameStart  int
	NameEnd    int
	Value      string
	ValueStart int
	ValueEnd   int
}

// Contains reports whether offset lies inside the comment body.
func (c *Comment) Contains(offset int) bool {
	return c.Start < offset && offset < c.End
}

// Summary returns the comment text without delimiters, leading stars and
// tags.
func (c *Comment) Summary() string {
	body := strings.TrimSuffix(strings.TrimPrefix(c.Text, "/**"), "*/")

	var lines []string

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))

		if strings.HasPrefix(line, "@") {
			break
		}

		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// TagAt returns the tag whose name or value contains offset.
func (c *Comment) TagAt(offset int) (*DocTag, bool) {
	for i := range c.Tags {
		tag := &c.Tags[i]
		if tag.NameStart <= offset && offset <= tag.NameEnd {
			return tag, true
		}

		if tag.ValueStart <= offset && offset <= tag.ValueEnd && tag.ValueEnd > 0 {
			return tag, false
		}
	}

	return nil, false
}

// ParseDocTags extracts @tags from a doc comment starting at base.
func ParseDocTags(text string, base int) []DocTag {
	var tags []DocTag

	for i := 0; i < len(text); i++ {
		if text[i] != '@' {
			continue
		}

		if i > 0 && !unicode.IsSpace(rune(text[i-1])) && text[i-1] != '*' {
			continue
		}

		nameEnd := i + 1
		for nameEnd < len(text) && isTagNameByte(text[nameEnd]) {
			nameEnd++
		}

		tag := DocTag{
			Name:      text[i+1 : nameEnd],
			NameStart: base + i + 1,
			NameEnd:   base + nameEnd,
		}

		j := nameEnd
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}

		valueEnd := j
		for valueEnd < len(text) && !unicode.IsSpace(rune(text[valueEnd])) && text[valueEnd] != '*' {
			valueEnd++
		}

		if valueEnd > j {
			tag.Value = text[j:valueEnd]
			tag.ValueStart = base + j
			tag.ValueEnd = base + valueEnd
		}

		tags = append(tags, tag)
		i = nameEnd - 1
	}

	return tags
}

func isTagNameByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// CommentAt returns the comment containing offset, or nil.
func (t *Tree) CommentAt(offset int) *Comment {
	for _, c := range t.Comments {
		if c.Contains(offset) {
			return c
		}

		if c.Start > offset {
			break
		}
	}

	return nil
}
