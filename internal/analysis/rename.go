package analysis

import (
	"context"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/parser"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// RenameRejection is returned when a symbol cannot be renamed at all. It
// differs from a rename that finds nothing to change, which yields an
// empty edit.
type RenameRejection struct {
	Reason string
}

func (r *RenameRejection) Error() string {
	return "cannot rename: " + r.Reason
}

func reject(reason string) error {
	return &RenameRejection{Reason: reason}
}

// VersionLookup returns the version of an open document.
type VersionLookup func(uri string) (int32, bool)

// renameTarget resolves pos and applies the rules every rename shares.
func renameTarget(m semantic.Model, pos *Position) (*Target, error) {
	t := ResolveTarget(m, pos)

	switch {
	case t == nil || t.File != "":
		return nil, reject("no symbol at this position")
	case t.Def.Kind == semantic.DefPackage:
		return nil, reject("packages cannot be renamed")
	case t.Def.ReadOnly():
		return nil, reject(t.Def.Name + " is declared in a read-only library")
	case t.Def.Synthetic && !t.Def.Kind.IsType():
		return nil, reject(t.Def.Name + " is declared implicitly by the markup")
	}

	return t, nil
}

// PrepareRename returns the range of the name that a rename at pos would
// change.
func PrepareRename(m semantic.Model, pos *Position) (*protocol.RangeWithPlaceholder, error) {
	t, err := renameTarget(m, pos)
	if err != nil {
		return nil, err
	}

	return &protocol.RangeWithPlaceholder{
		Range:       document.OffsetRange(pos.Text, t.Start, t.End),
		Placeholder: pos.Text[t.Start:t.End],
	}, nil
}

// PlanRename builds the edit that renames the symbol at pos to newName in
// every unit naming it. When the symbol is the primary type of its file,
// the file is renamed as well.
func PlanRename(ctx context.Context, m semantic.Model, pos *Position, newName string, versions VersionLookup) (*protocol.WorkspaceEdit, error) {
	t, err := renameTarget(m, pos)
	if err != nil {
		return nil, err
	}

	if !parser.IsIdentifier(newName) {
		return nil, reject(newName + " is not a valid identifier")
	}

	occs, err := FindReferences(ctx, m, t.Def, true)
	if err != nil {
		return nil, err
	}

	edit := &protocol.WorkspaceEdit{DocumentChanges: []any{}}

	var (
		order  []*semantic.Unit
		byUnit = make(map[*semantic.Unit][]any)
	)

	for _, o := range occs {
		if o.Unit.ReadOnly() {
			continue
		}

		if _, ok := byUnit[o.Unit]; !ok {
			order = append(order, o.Unit)
		}

		byUnit[o.Unit] = append(byUnit[o.Unit], protocol.TextEdit{
			Range:   document.OffsetRange(o.Unit.Source, o.Start, o.End),
			NewText: newName,
		})
	}

	for _, u := range order {
		id := protocol.OptionalVersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u.URI},
		}

		if versions != nil {
			if v, ok := versions(u.URI); ok {
				id.Version = &v
			}
		}

		edit.DocumentChanges = append(edit.DocumentChanges, protocol.TextDocumentEdit{TextDocument: id, Edits: byUnit[u]})
	}

	if rename, ok := fileRename(m, t.Def, newName); ok && len(order) > 0 {
		edit.DocumentChanges = append(edit.DocumentChanges, rename)
	}

	log.Debugf("rename %s -> %s: %d occurrences in %d documents", t.Def.Name, newName, len(occs), len(order))

	return edit, nil
}

// fileRename renames the file hosting d when d is its primary type.
func fileRename(m semantic.Model, d *semantic.Definition, newName string) (protocol.RenameFile, bool) {
	canonical := CanonicalIdentity(m, d)
	u := canonical.Unit

	if u == nil || u.Primary == nil || u.Primary != canonical || u.ReadOnly() {
		return protocol.RenameFile{}, false
	}

	ext := filepath.Ext(u.Path)
	if strings.TrimSuffix(filepath.Base(u.Path), ext) == newName {
		return protocol.RenameFile{}, false
	}

	newPath := filepath.Join(filepath.Dir(u.Path), newName+ext)

	return protocol.RenameFile{
		Kind:   "rename",
		OldURI: u.URI,
		NewURI: document.PathToURI(newPath),
	}, true
}
