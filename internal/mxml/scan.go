package mxml

import "strings"

// scan builds the tag tree with a lenient hand-written scanner. It accepts
// the half-typed markup found in documents under edit: unterminated start
// tags, attributes without values and missing end tags.
func scan(src string) *Document {
	d := &Document{Source: src, Recovered: true}

	var stack []*Tag

	top := func() *Tag {
		if len(stack) == 0 {
			return nil
		}

		return stack[len(stack)-1]
	}

	n := len(src)

	for i := 0; i < n; {
		if src[i] != '<' {
			i++
			continue
		}

		switch {
		case strings.HasPrefix(src[i:], "<!--"):
			i = skipPast(src, i+4, "-->")
		case strings.HasPrefix(src[i:], "<![CDATA["):
			start := i + len("<![CDATA[")
			end := strings.Index(src[start:], "]]>")

			inner := Region{Start: start, End: n}
			next := n

			if end >= 0 {
				inner.End = start + end
				next = inner.End + len("]]>")
			}

			if t := top(); t != nil {
				t.CDATA = append(t.CDATA, inner)
			}

			i = next
		case strings.HasPrefix(src[i:], "<?"):
			i = skipPast(src, i+2, "?>")
		case strings.HasPrefix(src[i:], "<!"):
			i = skipPast(src, i+2, ">")
		case strings.HasPrefix(src[i:], "</"):
			nameStart := i + 2
			nameEnd := scanName(src, nameStart)
			name := src[nameStart:nameEnd]

			end := nameEnd
			for end < n && src[end] != '>' && src[end] != '<' {
				end++
			}

			if end < n && src[end] == '>' {
				end++
			}

			for k := len(stack) - 1; k >= 0; k-- {
				if stack[k].QName() != name {
					continue
				}

				for _, open := range stack[k+1:] {
					open.End = i
					open.Content.End = i
				}

				t := stack[k]
				t.Content.End = i
				t.End = end
				t.CloseName = Region{Start: nameStart, End: nameEnd}
				t.Closed = true
				stack = stack[:k]

				break
			}

			i = end
		default:
			t := scanStartTag(src, i, top())
			d.Tags = append(d.Tags, t)

			if t.Parent != nil {
				t.Parent.Children = append(t.Parent.Children, t)
			} else if d.Root == nil {
				d.Root = t
			}

			if t.SelfClosing {
				t.End = t.OpenEnd
				t.Closed = true
			} else {
				t.Content.Start = t.OpenEnd
				stack = append(stack, t)
			}

			i = t.OpenEnd
			if i <= t.Start {
				i = t.Start + 1
			}
		}
	}

	for _, t := range stack {
		t.End = n
		t.Content.End = n
	}

	d.link()

	return d
}

func scanStartTag(src string, start int, parent *Tag) *Tag {
	n := len(src)

	t := &Tag{Start: start, Parent: parent, NameStart: start + 1}
	t.NameEnd = scanName(src, t.NameStart)
	t.Prefix, t.Name = splitQName(src[t.NameStart:t.NameEnd])

	j := t.NameEnd

	for j < n {
		c := src[j]

		switch {
		case isSpace(c):
			j++
		case c == '>':
			t.OpenEnd = j + 1
			t.StartTagClosed = true

			return t
		case c == '/' && j+1 < n && src[j+1] == '>':
			t.OpenEnd = j + 2
			t.StartTagClosed = true
			t.SelfClosing = true

			return t
		case c == '<':
			t.OpenEnd = j
			return t
		case isNameStart(c):
			var a *Attr
			a, j = scanAttr(src, j)
			t.Attrs = append(t.Attrs, a)
		default:
			j++
		}
	}

	t.OpenEnd = n

	return t
}

func scanAttr(src string, start int) (*Attr, int) {
	n := len(src)

	a := &Attr{NameStart: start, ValueStart: -1, ValueEnd: -1}
	a.NameEnd = scanName(src, start)
	a.Name = src[start:a.NameEnd]

	j := a.NameEnd
	for j < n && isSpace(src[j]) {
		j++
	}

	if j >= n || src[j] != '=' {
		return a, a.NameEnd
	}

	j++
	for j < n && isSpace(src[j]) {
		j++
	}

	if j < n && (src[j] == '"' || src[j] == '\'') {
		quote := src[j]
		a.Quoted = true
		a.ValueStart = j + 1

		end := a.ValueStart
		for end < n && src[end] != quote && src[end] != '<' {
			end++
		}

		a.ValueEnd = end
		a.Value = src[a.ValueStart:end]

		if end < n && src[end] == quote {
			end++
		}

		return a, end
	}

	a.ValueStart = j

	end := j
	for end < n && !isSpace(src[end]) && src[end] != '>' && src[end] != '<' && !(src[end] == '/' && end+1 < n && src[end+1] == '>') {
		end++
	}

	a.ValueEnd = end
	a.Value = src[j:end]

	return a, end
}

func skipPast(src string, from int, marker string) int {
	if from > len(src) {
		return len(src)
	}

	if k := strings.Index(src[from:], marker); k >= 0 {
		return from + k + len(marker)
	}

	return len(src)
}

func scanName(src string, i int) int {
	for i < len(src) && isNameChar(src[i]) {
		i++
	}

	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || c >= '0' && c <= '9'
}
