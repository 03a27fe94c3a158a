package document

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestLinesOffsetAndPosition(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit, "𝄞" is four bytes and two units.
	text := "ab\r\né𝄞x\n\nlast"
	lines := NewLines(text)

	if lines.Count() != 4 {
		t.Fatalf("expected 4 lines, got %d", lines.Count())
	}

	tests := []struct {
		name      string
		line      int
		character int
		offset    int
	}{
		{"start of file", 0, 0, 0},
		{"before CR", 0, 2, 2},
		{"past end clamps before CR", 0, 10, 2},
		{"second line start", 1, 0, 4},
		{"after two-byte rune", 1, 1, 6},
		{"after surrogate pair", 1, 3, 10},
		{"empty line", 2, 0, 12},
		{"last line end", 3, 4, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := lines.Offset(tt.line, tt.character)
			if err != nil {
				t.Fatalf("Offset(%d, %d): %v", tt.line, tt.character, err)
			}

			if got != tt.offset {
				t.Errorf("Offset(%d, %d) = %d, want %d", tt.line, tt.character, got, tt.offset)
			}
		})
	}

	line, char, err := lines.Position(10)
	if err != nil {
		t.Fatal(err)
	}

	if line != 1 || char != 3 {
		t.Errorf("Position(10) = %d:%d, want 1:3", line, char)
	}

	if _, err := lines.Offset(4, 0); err == nil {
		t.Error("expected an error for a line past the end")
	}

	if _, _, err := lines.Position(len(text) + 1); err == nil {
		t.Error("expected an error for an offset past the end")
	}
}

func TestOffsetRange_Clamps(t *testing.T) {
	r := OffsetRange("abc\ndef", -5, 100)

	if r.Start.Line != 0 || r.Start.Character != 0 {
		t.Errorf("unexpected start %+v", r.Start)
	}

	if r.End.Line != 1 || r.End.Character != 3 {
		t.Errorf("unexpected end %+v", r.End)
	}
}

func TestApplyContentChanges(t *testing.T) {
	text := "var a:int;\nvar b:int;\n"

	changes := []any{
		protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 1, Character: 4},
				End:   protocol.Position{Line: 1, Character: 5},
			},
			Text: "count",
		},
		protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 6},
				End:   protocol.Position{Line: 0, Character: 9},
			},
			Text: "Number",
		},
	}

	got, err := ApplyContentChanges(text, changes)
	if err != nil {
		t.Fatal(err)
	}

	want := "var a:Number;\nvar count:int;\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got, err = ApplyContentChanges(text, []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}})
	if err != nil || got != "x" {
		t.Errorf("whole replacement: got %q, %v", got, err)
	}

	if _, err := ApplyContentChanges(text, []any{"bogus"}); err == nil {
		t.Error("expected an error for an unknown change type")
	}

	bad := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{
			Start: protocol.Position{Line: 9, Character: 0},
			End:   protocol.Position{Line: 9, Character: 0},
		},
	}

	if _, err := ApplyContentChange(text, bad); err == nil {
		t.Error("expected an error for a position past the end")
	}
}

func TestKindAndURIs(t *testing.T) {
	tests := []struct {
		path string
		kind Kind
	}{
		{"/src/Main.as", KindScript},
		{"/src/Main.MXML", KindMarkup},
		{"file:///src/styles.css", KindStyle},
		{"/src/readme.md", KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.path); got != tt.kind {
			t.Errorf("KindOf(%q) = %v, want %v", tt.path, got, tt.kind)
		}
	}

	uri := PathToURI("/src/com/My Class.as")
	if uri != "file:///src/com/My%20Class.as" {
		t.Errorf("PathToURI = %q", uri)
	}

	if path := URIToPath(uri); path != "/src/com/My Class.as" {
		t.Errorf("URIToPath = %q", path)
	}

	if path := URIToPath("as3builtin:///toplevel.as"); path != "as3builtin:///toplevel.as" {
		t.Errorf("non-file URI changed: %q", path)
	}
}
