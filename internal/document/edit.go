package document

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ApplyContentChange applies one didChange event to text. A change without
// a range replaces the whole text.
func ApplyContentChange(text string, change protocol.TextDocumentContentChangeEvent) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}

	lines := NewLines(text)

	start, err := lines.Offset(int(change.Range.Start.Line), int(change.Range.Start.Character))
	if err != nil {
		return "", fmt.Errorf("invalid start position: %w", err)
	}

	end, err := lines.Offset(int(change.Range.End.Line), int(change.Range.End.Character))
	if err != nil {
		return "", fmt.Errorf("invalid end position: %w", err)
	}

	if start > end {
		return "", fmt.Errorf("change start %d after end %d", start, end)
	}

	return text[:start] + change.Text + text[end:], nil
}

// ApplyContentChanges applies didChange events in order. Elements may be
// TextDocumentContentChangeEvent or TextDocumentContentChangeEventWhole, as
// decoded by glsp.
func ApplyContentChanges(text string, changes []any) (string, error) {
	for i, c := range changes {
		var err error

		switch change := c.(type) {
		case protocol.TextDocumentContentChangeEvent:
			text, err = ApplyContentChange(text, change)
		case protocol.TextDocumentContentChangeEventWhole:
			text = change.Text
		default:
			err = fmt.Errorf("unsupported change type %T", c)
		}

		if err != nil {
			return "", fmt.Errorf("change %d: %w", i, err)
		}
	}

	return text, nil
}
