package analysis

import (
	"strings"

	"github.com/CWBudde/go-as3-lsp/internal/mxml"
)

// stateAttributes take a comma separated list of state names.
var stateAttributes = map[string]bool{
	"includeIn":   true,
	"excludeFrom": true,
}

// markup classifies offsets in the tag tree outside embedded code.
func (c *classifier) markup() {
	pos := c.pos
	ctx := c.ctx
	text := pos.Text

	ctx.Kind = KindNone

	// A tag name being typed: "<s:Bu" or "<" alone.
	nameStart := pos.Offset
	for nameStart > 0 && isTagNameByte(text[nameStart-1]) {
		nameStart--
	}

	if nameStart > 0 && text[nameStart-1] == '<' {
		ctx.Kind = KindTagName
		ctx.Prefix = text[nameStart:pos.Offset]
		ctx.PrefixStart = nameStart
		ctx.ParentTag = parentForNewTag(pos.Tag, nameStart-1)

		return
	}

	tag := pos.Tag
	if tag == nil || !tag.InStartTag(pos.Offset) {
		return
	}

	if pos.Offset <= tag.NameEnd {
		return
	}

	attr := pos.Attr

	switch {
	case attr != nil && attr.InValue(pos.Offset):
		ctx.PrefixStart = attr.ValueStart
		ctx.Prefix = text[attr.ValueStart:pos.Offset]
		ctx.Kind = KindAttributeValue

		if stateAttributes[attr.BaseName()] {
			if i := strings.LastIndexByte(ctx.Prefix, ','); i >= 0 {
				ctx.PrefixStart += i + 1
				ctx.Prefix = ctx.Prefix[i+1:]
			}

			trimmed := strings.TrimLeft(ctx.Prefix, " ")
			ctx.PrefixStart += len(ctx.Prefix) - len(trimmed)
			ctx.Prefix = trimmed
			ctx.Kind = KindStateName
		}
	case attr != nil && attr.InName(pos.Offset):
		if dot := strings.IndexByte(attr.Name, '.'); dot >= 0 && pos.Offset > attr.NameStart+dot {
			ctx.PrefixStart = attr.NameStart + dot + 1
			ctx.Prefix = text[ctx.PrefixStart:pos.Offset]
			ctx.Kind = KindStateName

			return
		}

		ctx.PrefixStart = attr.NameStart
		ctx.Prefix = text[attr.NameStart:pos.Offset]
		ctx.Kind = KindAttributeName
	case attr == nil && isSpace(text[pos.Offset-1]):
		ctx.PrefixStart = pos.Offset
		ctx.Prefix = ""
		ctx.Kind = KindAttributeName
	}

	if ctx.Kind != KindNone {
		ctx.ParentTag = tag
	}
}

// parentForNewTag returns the tag a new element starting at lt is placed
// in. The scanner may already have opened a tag at lt.
func parentForNewTag(tag *mxml.Tag, lt int) *mxml.Tag {
	for cur := tag; cur != nil; cur = cur.Parent {
		if cur.Start < lt {
			return cur
		}
	}

	return nil
}

func isTagNameByte(b byte) bool {
	return isWordByte(b) || b == ':' || b == '.' || b == '-'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
