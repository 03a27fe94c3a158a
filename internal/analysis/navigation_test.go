package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-as3-lsp/internal/document"
)

func TestFindDefinition(t *testing.T) {
	f := newFixture(t)
	shape := f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		public function Shape() {}
		public function draw():void {}
	}
}
`)
	main := f.add("Main.as", `package {
	import shapes.Shape;

	public class Main {
		public function run():void {
			var s:Shape = new Shape();
			s.draw();
		}
	}
}
`)

	locs := FindDefinition(f.p, f.pos(main, "draw", 0, 1))
	require.Len(t, locs, 1)
	assert.Equal(t, shape.URI, locs[0].URI)
	assert.Equal(t, protocol.UInteger(3), locs[0].Range.Start.Line)

	// The type annotation leads to the class.
	locs = FindDefinition(f.p, f.pos(main, "Shape =", 0, 1))
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.UInteger(1), locs[0].Range.Start.Line)

	// The class of a new expression leads to its constructor.
	locs = FindDefinition(f.p, f.pos(main, "Shape()", 0, 1))
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.UInteger(2), locs[0].Range.Start.Line)
}

func TestFindDefinition_NotNavigable(t *testing.T) {
	f := newFixture(t)
	u := f.add("C.as", `package {
	import flash.display.Sprite;

	public class C extends Sprite {}
}
`)

	// Builtin declarations have no source to open.
	assert.Empty(t, FindDefinition(f.p, f.pos(u, "Sprite", 1, 1)))

	// Packages have no single declaration.
	assert.Empty(t, FindDefinition(f.p, f.pos(u, "flash", 0, 1)))

	assert.NotNil(t, FindDefinition(f.p, nil))
}

func TestFindDefinition_Local(t *testing.T) {
	f := newFixture(t)
	src := `package {
	public class C {
		function f(limit:int):void {
			var total:int = limit;
			trace(total);
		}
	}
}
`
	u := f.add("C.as", src)

	locs := FindDefinition(f.p, f.pos(u, "total)", 0, 0))
	require.Len(t, locs, 1)

	start, err := document.PositionToOffset(u.Source, int(locs[0].Range.Start.Line), int(locs[0].Range.Start.Character))
	require.NoError(t, err)
	assert.Equal(t, strings.Index(src, "total:int"), start)

	locs = FindDefinition(f.p, f.pos(u, "limit;", 0, 0))
	require.Len(t, locs, 1)

	start, err = document.PositionToOffset(u.Source, int(locs[0].Range.Start.Line), int(locs[0].Range.Start.Character))
	require.NoError(t, err)
	assert.Equal(t, strings.Index(src, "limit:int"), start)
}

func TestHover(t *testing.T) {
	f := newFixture(t)
	u := f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		/**
		 * Paints the shape.
		 */
		public function draw(scale:Number):void {}

		function run():void { draw(1); }
	}
}
`)

	h := Hover(f.p, f.pos(u, "draw(1)", 0, 1))
	require.NotNil(t, h)

	content, ok := h.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	assert.Contains(t, content.Value, "public function draw(scale:Number)")
	assert.Contains(t, content.Value, "`shapes.Shape`")
	assert.Contains(t, content.Value, "Paints the shape.")

	require.NotNil(t, h.Range)
	assert.Equal(t, protocol.UInteger(7), h.Range.Start.Line)

	assert.Nil(t, Hover(f.p, f.pos(u, "{", 0, 0)))
}

func TestHover_Builtin(t *testing.T) {
	f := newFixture(t)
	u := f.add("C.as", `package { import flash.display.Sprite; public class C extends Sprite {} }`)

	h := Hover(f.p, f.pos(u, "Sprite", 1, 1))
	require.NotNil(t, h)

	content := h.Contents.(protocol.MarkupContent)
	assert.Contains(t, content.Value, "class flash.display.Sprite")
	assert.Contains(t, content.Value, "*from*")
}

func TestDocumentSymbols(t *testing.T) {
	f := newFixture(t)
	u := f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		public static const SIDES:int = 0;
		private var _size:int;

		public function Shape() {}

		public function get size():int { return _size; }

		public function draw(scale:Number, label):void {
			var local:int = 0;
		}
	}
}

function helper():void {}
`)

	symbols := DocumentSymbols(u)
	require.Len(t, symbols, 2)

	cls := symbols[0]
	assert.Equal(t, "Shape", cls.Name)
	assert.Equal(t, protocol.SymbolKindClass, cls.Kind)
	require.NotNil(t, cls.Detail)
	assert.Equal(t, "shapes", *cls.Detail)

	var names []string
	kinds := make(map[string]protocol.SymbolKind)

	for _, child := range cls.Children {
		names = append(names, child.Name)
		kinds[child.Name] = child.Kind

		// Locals and parameters never appear.
		assert.Empty(t, child.Children)
	}

	assert.Equal(t, []string{"SIDES", "_size", "Shape", "size", "draw"}, names)
	assert.Equal(t, protocol.SymbolKindConstant, kinds["SIDES"])
	assert.Equal(t, protocol.SymbolKindField, kinds["_size"])
	assert.Equal(t, protocol.SymbolKindConstructor, kinds["Shape"])
	assert.Equal(t, protocol.SymbolKindProperty, kinds["size"])
	assert.Equal(t, protocol.SymbolKindMethod, kinds["draw"])

	draw := cls.Children[4]
	require.NotNil(t, draw.Detail)
	assert.Equal(t, "(scale:Number, label:*):void", *draw.Detail)

	helper := symbols[1]
	assert.Equal(t, "helper", helper.Name)
	assert.Equal(t, protocol.SymbolKindFunction, helper.Kind)

	assert.NotNil(t, DocumentSymbols(nil))
}

func TestDocumentSymbols_Markup(t *testing.T) {
	f := newFixture(t)
	u := f.add("views/Panel.mxml", `<?xml version="1.0" encoding="utf-8"?>
<s:Group xmlns:fx="http://ns.adobe.com/mxml/2009" xmlns:s="library://ns.adobe.com/flex/spark">
	<s:Button id="ok" click="close()"/>
	<fx:Script><![CDATA[
		private function close():void {}
	]]></fx:Script>
</s:Group>
`)

	symbols := DocumentSymbols(u)
	require.Len(t, symbols, 1)

	panel := symbols[0]
	assert.Equal(t, "Panel", panel.Name)
	assert.Equal(t, protocol.UInteger(0), panel.SelectionRange.Start.Line)

	var names []string
	for _, child := range panel.Children {
		names = append(names, child.Name)
	}

	assert.ElementsMatch(t, []string{"ok", "close"}, names)
}

func organize(t *testing.T, f *fixture, path, src string) string {
	t.Helper()

	u := f.add(path, src)
	edits := OrganizeImports(f.p, u)

	changes := make([]any, 0, len(edits))
	for i := len(edits) - 1; i >= 0; i-- {
		r := edits[i].Range
		changes = append(changes, protocol.TextDocumentContentChangeEvent{Range: &r, Text: edits[i].NewText})
	}

	out, err := document.ApplyContentChanges(u.Source, changes)
	require.NoError(t, err)

	return out
}

func TestOrganizeImports(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", shapeLib)

	got := organize(t, f, "Main.as", `package {
	import shapes.Shape;
	import flash.display.Sprite;
	import flash.events.Event;
	import shapes.Shape;

	public class Main extends Sprite {
		private var s:Shape;
	}
}
`)

	assert.Equal(t, `package {
	import flash.display.Sprite;
	import shapes.Shape;

	public class Main extends Sprite {
		private var s:Shape;
	}
}
`, got)
}

func TestOrganizeImports_KeepsWildcardsAndUnknowns(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", shapeLib)

	got := organize(t, f, "Main.as", `package {
	import shapes.*;
	import flash.events.*;
	import com.missing.Thing;

	public class Main {
		private var s:Shape;
	}
}
`)

	assert.Equal(t, `package {
	import com.missing.Thing;
	import shapes.*;

	public class Main {
		private var s:Shape;
	}
}
`, got)
}

func TestOrganizeImports_RemovesUnusedRun(t *testing.T) {
	f := newFixture(t)

	got := organize(t, f, "Main.as", `package {
	import flash.events.Event;

	public class Main {}
}
`)

	assert.Equal(t, `package {

	public class Main {}
}
`, got)
}

func TestOrganizeImports_NothingToDo(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", shapeLib)

	u := f.add("Main.as", `package {
	import shapes.Shape;

	public class Main {
		private var s:Shape;
	}
}
`)

	assert.Empty(t, OrganizeImports(f.p, u))
	assert.Empty(t, OrganizeImports(f.p, nil))
}
