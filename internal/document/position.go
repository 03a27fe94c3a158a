package document

import (
	"fmt"
	"sort"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Lines indexes the start offset of every line of a text so that positions
// can be converted without rescanning. It is a snapshot: build a new one
// after every edit.
type Lines struct {
	text   string
	starts []int
}

// NewLines indexes text.
func NewLines(text string) *Lines {
	starts := []int{0}

	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &Lines{text: text, starts: starts}
}

// Count returns the number of lines.
func (l *Lines) Count() int { return len(l.starts) }

// line returns the text of line n without its terminator.
func (l *Lines) line(n int) string {
	end := len(l.text)
	if n+1 < len(l.starts) {
		end = l.starts[n+1] - 1
	}

	s := l.text[l.starts[n]:end]
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}

	return s
}

// Offset converts a zero-based line and UTF-16 character to a byte offset.
// A character past the end of the line clamps to the line end; a line past
// the end of the text is an error.
func (l *Lines) Offset(line, character int) (int, error) {
	if line < 0 || line >= len(l.starts) {
		return 0, fmt.Errorf("line %d out of range (0-%d)", line, len(l.starts)-1)
	}

	if character < 0 {
		return 0, fmt.Errorf("negative character %d", character)
	}

	text := l.line(line)
	units := 0

	for i, r := range text {
		if units >= character {
			return l.starts[line] + i, nil
		}

		units += utf16Len(r)
	}

	return l.starts[line] + len(text), nil
}

// Position converts a byte offset to a zero-based line and UTF-16 character.
func (l *Lines) Position(offset int) (line, character int, err error) {
	if offset < 0 || offset > len(l.text) {
		return 0, 0, fmt.Errorf("offset %d out of range (0-%d)", offset, len(l.text))
	}

	line = sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > offset }) - 1

	for _, r := range l.text[l.starts[line]:offset] {
		character += utf16Len(r)
	}

	return line, character, nil
}

// Range converts a byte range to a protocol range. Offsets outside the text
// are clamped.
func (l *Lines) Range(start, end int) protocol.Range {
	start = clamp(start, 0, len(l.text))
	end = clamp(end, start, len(l.text))

	sl, sc, _ := l.Position(start)
	el, ec, _ := l.Position(end)

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(sl), Character: protocol.UInteger(sc)},
		End:   protocol.Position{Line: protocol.UInteger(el), Character: protocol.UInteger(ec)},
	}
}

// PositionToOffset converts a position in text to a byte offset.
func PositionToOffset(text string, line, character int) (int, error) {
	return NewLines(text).Offset(line, character)
}

// OffsetToPosition converts a byte offset in text to a position in UTF-16
// code units.
func OffsetToPosition(text string, offset int) (line, character int, err error) {
	return NewLines(text).Position(offset)
}

// OffsetRange converts a byte range of text to a protocol range.
func OffsetRange(text string, start, end int) protocol.Range {
	return NewLines(text).Range(start, end)
}

func utf16Len(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}

	return 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
