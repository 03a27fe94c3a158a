package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func complete(t *testing.T, f *fixture, path, src string) []protocol.CompletionItem {
	t.Helper()

	items, err := Complete(context.Background(), f.p, f.at(path, src))
	require.NoError(t, err)

	return items
}

func TestComplete_NewTargetRanking(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", `package shapes { public class Shape {} }`)
	f.add("shapes/Circle.as", `package shapes { public class Circle extends Shape {} }`)
	f.add("shapes/Square.as", `package shapes { public class Square extends Shape {} }`)
	f.add("other/Other.as", `package other { public class Other {} }`)

	items := complete(t, f, "Main.as", `package {
	import shapes.Shape;

	public class Main {
		public function run():void {
			var v:Shape = new ^
		}
	}
}
`)

	shape := indexOf(items, "Shape")
	circle := indexOf(items, "Circle")
	square := indexOf(items, "Square")
	other := indexOf(items, "Other")
	sprite := indexOf(items, "Sprite")

	require.True(t, shape >= 0 && circle >= 0 && square >= 0 && other >= 0 && sprite >= 0, itemLabels(items))

	assert.Less(t, shape, circle)
	assert.Less(t, shape, square)
	assert.Less(t, circle, other)
	assert.Less(t, square, other)
	assert.Less(t, circle, sprite)

	// Only classes can be instantiated.
	assert.Equal(t, -1, indexOf(items, "IEventDispatcher"))

	// Circle lives in a package that is not imported yet.
	c := items[circle]
	require.Len(t, c.AdditionalTextEdits, 1)
	assert.Contains(t, c.AdditionalTextEdits[0].NewText, "import shapes.Circle;")
}

func TestComplete_BeyondEndOfEmptyDocument(t *testing.T) {
	f := newFixture(t)
	u := f.add("Empty.as", "")

	pos := ResolveOffset(f.p, u.URI, 3, 0)
	assert.Nil(t, pos)

	items, err := Complete(context.Background(), f.p, pos)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestComplete_SuppressesDeclarationName(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "class", src: "package { public class Sha^ {} }"},
		{name: "variable", src: "package { public class C { private var Sha^:int; } }"},
		{name: "function", src: "package { public class C { public function Sha^():void {} } }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add("shapes/Shape.as", `package shapes { public class Shape {} }`)

			assert.Empty(t, complete(t, f, "C.as", tt.src))
		})
	}
}

func TestComplete_OverrideName(t *testing.T) {
	f := newFixture(t)
	f.add("Base.as", `package {
	public class Base {
		public function draw(scale:Number):void {}
		protected function layout():Boolean { return true; }
		private function hidden():void {}
		public final function fixed():void {}
		public static function create():Base { return null; }
	}
}
`)

	items := complete(t, f, "Derived.as", `package {
	public class Derived extends Base {
		override public function ^
	}
}
`)

	labels := itemLabels(items)
	assert.Contains(t, labels, "draw")
	assert.Contains(t, labels, "layout")
	assert.NotContains(t, labels, "hidden")
	assert.NotContains(t, labels, "fixed")
	assert.NotContains(t, labels, "create")
	assert.NotContains(t, labels, "Derived")

	draw := items[indexOf(items, "draw")]
	assert.Equal(t, "draw(scale:Number):void", draw.TextEdit.(protocol.TextEdit).NewText)
}

func TestComplete_OverrideStub(t *testing.T) {
	f := newFixture(t)
	f.add("Base.as", `package { public class Base { protected function layout(w:int):Boolean { return true; } } }`)

	items := complete(t, f, "Derived.as", `package {
	public class Derived extends Base {
		override ^
	}
}
`)

	i := indexOf(items, "layout")
	require.GreaterOrEqual(t, i, 0, itemLabels(items))

	text := items[i].TextEdit.(protocol.TextEdit).NewText
	assert.True(t, strings.HasPrefix(text, "protected function layout(w:int):Boolean"), text)
	assert.Contains(t, text, "return super.layout(w);")
	require.NotNil(t, items[i].InsertTextFormat)
	assert.Equal(t, protocol.InsertTextFormatSnippet, *items[i].InsertTextFormat)
}

func TestComplete_Scope(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "C.as", `package {
	public class C {
		private var count:int;
		public static var instances:int;

		public function run(limit:int):void {
			var local:int = 0;
			c^
		}

		public static function create():C {
			return null;
		}
	}
}
`)

	labels := itemLabels(items)
	assert.Contains(t, labels, "count")
	assert.Contains(t, labels, "const")
	assert.Contains(t, labels, "create")

	// Locals rank above members, members above globals.
	assert.Less(t, indexOf(items, "count"), indexOf(items, "const"))
}

func TestComplete_StaticContextHidesInstanceMembers(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "C.as", `package {
	public class C {
		private var count:int;
		public static var instances:int;

		public static function create():C {
			^
			return null;
		}
	}
}
`)

	labels := itemLabels(items)
	assert.Contains(t, labels, "instances")
	assert.NotContains(t, labels, "count")
	assert.NotContains(t, labels, "super")
}

func TestComplete_LocalsFirst(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "C.as", `package {
	public class C {
		private var value2:int;

		public function run(value1:int):void {
			var value0:int = 0;
			val^
		}
	}
}
`)

	require.GreaterOrEqual(t, len(items), 3)
	assert.ElementsMatch(t, []string{"value0", "value1"}, itemLabels(items[:2]))
	assert.Equal(t, "value2", items[2].Label)
}

func TestComplete_MemberAccess(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		public static const UNIT:int = 1;
		public var size:int;
		private var secret:int;
		protected var hidden:int;
		public function draw():void {}
	}
}
`)

	items := complete(t, f, "Main.as", `package {
	import shapes.Shape;

	public class Main {
		public function run(s:Shape):void {
			s.^
		}
	}
}
`)

	labels := itemLabels(items)
	assert.Contains(t, labels, "size")
	assert.Contains(t, labels, "draw")
	assert.NotContains(t, labels, "UNIT")
	assert.NotContains(t, labels, "secret")
	assert.NotContains(t, labels, "hidden")

	static := complete(t, f, "Main2.as", `package {
	import shapes.Shape;

	public class Main2 {
		public function run():void {
			Shape.^
		}
	}
}
`)

	labels = itemLabels(static)
	assert.Contains(t, labels, "UNIT")
	assert.NotContains(t, labels, "size")
}

const completionBase = `package {
	public class Base {
		public function draw():void {}
		protected function layout():void {}
		private function secret():void {}
		public function get width():Number { return 0; }
		public function set width(value:Number):void {}
	}
}
`

func TestComplete_MemberRules(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  []string
		not   []string
		first string
		once  []string
	}{
		{
			name: "vector element",
			src: `package {
	import shapes.Shape;

	public class Main {
		public function run():void {
			var list:Vector.<Shape> = new Vector.<Shape>();
			list[0].^
		}
	}
}
`,
			want: []string{"draw", "size"},
			not:  []string{"push", "length"},
		},
		{
			name: "super members",
			src: `package {
	public class Main extends Base {
		private var extra:int;

		override public function draw():void {
			super.^
		}
	}
}
`,
			want:  []string{"draw", "layout", "width"},
			not:   []string{"secret", "extra"},
			first: "draw",
		},
		{
			name: "new target from assignment",
			src: `package {
	import shapes.Shape;

	public class Main {
		public function run():void {
			var s:Shape;
			s = new ^
		}
	}
}
`,
			first: "Shape",
		},
		{
			name: "accessor pair in member access",
			src: `package {
	public class Main {
		public function run(b:Base):void {
			b.^
		}
	}
}
`,
			want: []string{"draw"},
			not:  []string{"layout", "secret"},
			once: []string{"width"},
		},
		{
			name: "accessor pair in scope",
			src: `package {
	public class Main extends Base {
		public function run():void {
			^
		}
	}
}
`,
			want: []string{"layout"},
			not:  []string{"secret"},
			once: []string{"width"},
		},
		{
			name: "override listed once",
			src: `package {
	public class Main extends Base {
		override public function draw():void {}

		public function run():void {
			dr^
		}
	}
}
`,
			once: []string{"draw"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		public var size:int;
		public function draw():void {}
	}
}
`)
			f.add("Base.as", completionBase)

			items := complete(t, f, "Main.as", tt.src)
			labels := itemLabels(items)

			for _, w := range tt.want {
				assert.Contains(t, labels, w)
			}

			for _, n := range tt.not {
				assert.NotContains(t, labels, n)
			}

			if tt.first != "" {
				require.NotEmpty(t, items)
				assert.Equal(t, tt.first, items[0].Label, labels)
			}

			for _, o := range tt.once {
				count := 0
				for _, l := range labels {
					if l == o {
						count++
					}
				}

				assert.Equal(t, 1, count, "%s in %v", o, labels)
			}
		})
	}
}

func TestWalkScopes_OverrideStandsForBase(t *testing.T) {
	f := newFixture(t)
	f.add("Base.as", completionBase)

	pos := f.at("Main.as", `package {
	public class Main extends Base {
		override public function draw():void {}

		public function run():void {
			^
		}
	}
}
`)

	var draws []string

	for _, d := range WalkScopes(f.p, f.p.ScopeChain(pos.Unit, pos.Offset), WalkOptions{}) {
		if d.Name == "draw" {
			draws = append(draws, d.QualifiedName)
		}
	}

	assert.Equal(t, []string{"Base.draw"}, draws)
}

func TestComplete_FileKeywords(t *testing.T) {
	f := newFixture(t)

	labels := itemLabels(complete(t, f, "A.as", "package {
}
pa^"))
	assert.NotContains(t, labels, "package")

	labels = itemLabels(complete(t, f, "B.as", "function helper():void {}
pa^"))
	assert.Contains(t, labels, "package")
}

func TestComplete_TypeAnnotation(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "C.as", "package { public class C { private var n:^ } }")

	labels := itemLabels(items)
	assert.Contains(t, labels, "int")
	assert.Contains(t, labels, "*")
	assert.Contains(t, labels, "void")
	assert.Contains(t, labels, "Sprite")
	assert.NotContains(t, labels, "trace")
}

func TestComplete_Import(t *testing.T) {
	f := newFixture(t)

	items := complete(t, f, "C.as", "package { import flash.^ public class C {} }")
	labels := itemLabels(items)
	assert.Contains(t, labels, "display")
	assert.Contains(t, labels, "events")
	assert.Contains(t, labels, "*")

	items = complete(t, f, "D.as", "package { import flash.display.Spr^ public class D {} }")
	labels = itemLabels(items)
	assert.Contains(t, labels, "Sprite")
	assert.NotContains(t, labels, "MovieClip")
	assert.NotContains(t, labels, "*")
}

func TestComplete_PackageSkeleton(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "com/example/Widget.as", "^")

	require.Len(t, items, 1)
	text := items[0].TextEdit.(protocol.TextEdit).NewText
	assert.True(t, strings.HasPrefix(text, "package com.example\n{"), text)
	assert.Contains(t, text, "public class Widget")
}

func TestComplete_KeywordSnippets(t *testing.T) {
	f := newFixture(t)
	items := complete(t, f, "C.as", "package { public class C { function f():void { whi^ } } }")

	i := indexOf(items, "while")
	require.GreaterOrEqual(t, i, 0)
	assert.Contains(t, items[i].TextEdit.(protocol.TextEdit).NewText, "while (${1:condition})")
}

func TestComplete_DocComments(t *testing.T) {
	f := newFixture(t)

	items := complete(t, f, "C.as", "package { /**\n * @par^\n */ public class C {} }")
	assert.Equal(t, []string{"param"}, itemLabels(items))

	items = complete(t, f, "D.as", "package { /**\n * @see Spr^\n */ public class D {} }")
	assert.Contains(t, itemLabels(items), "Sprite")

	items = complete(t, f, "E.as", "package { /**\n * @see flash.display.Sprite#addCh^\n */ public class E {} }")
	assert.Contains(t, itemLabels(items), "addChild")

	assert.Empty(t, complete(t, f, "F.as", "package { public class F { // tra^\n } }"))
}

func TestComplete_Cancelled(t *testing.T) {
	f := newFixture(t)
	pos := f.at("C.as", "package { public class C { function f():void { x^ } } }")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := Complete(ctx, f.p, pos)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, items)
}

const completionMarkup = `<?xml version="1.0" encoding="utf-8"?>
<s:Application xmlns:fx="http://ns.adobe.com/mxml/2009" xmlns:s="library://ns.adobe.com/flex/spark">
	<s:states>
		<s:State name="normal"/>
		<s:State name="busy"/>
	</s:states>
	%s
</s:Application>
`

func completeMarkup(t *testing.T, body string) []protocol.CompletionItem {
	t.Helper()

	f := newFixture(t)

	return complete(t, f, "views/Main.mxml", strings.Replace(completionMarkup, "%s", body, 1))
}

func TestComplete_MarkupTags(t *testing.T) {
	labels := itemLabels(completeMarkup(t, "<s:^"))
	assert.Contains(t, labels, "s:Button")
	assert.Contains(t, labels, "s:Group")

	// The typed prefix selects the spark namespace.
	assert.NotContains(t, labels, "fx:Script")
}

func TestComplete_MarkupAttributes(t *testing.T) {
	items := completeMarkup(t, `<s:Button lab^ />`)

	i := indexOf(items, "label")
	require.GreaterOrEqual(t, i, 0, itemLabels(items))
	assert.Equal(t, `label="$0"`, items[i].TextEdit.(protocol.TextEdit).NewText)

	labels := itemLabels(completeMarkup(t, `<s:Button label="a" ^ />`))
	assert.NotContains(t, labels, "label")
	assert.Contains(t, labels, "click")
	assert.Contains(t, labels, "fontSize")
	assert.Contains(t, labels, "id")
}

func TestComplete_MarkupValues(t *testing.T) {
	labels := itemLabels(completeMarkup(t, `<s:Button fontWeight="^"/>`))
	assert.ElementsMatch(t, []string{"normal", "bold"}, labels)

	labels = itemLabels(completeMarkup(t, `<s:Button enabled="^"/>`))
	assert.ElementsMatch(t, []string{"true", "false"}, labels)

	labels = itemLabels(completeMarkup(t, `<s:Button includeIn="normal,^"/>`))
	assert.ElementsMatch(t, []string{"normal", "busy"}, labels)
}

func TestComplete_Stylesheet(t *testing.T) {
	f := newFixture(t)

	items := complete(t, f, "a.css", "@namespace s \"library://ns.adobe.com/flex/spark\";\ns|Bu^ {}\n")
	assert.Contains(t, itemLabels(items), "Button")

	items = complete(t, f, "b.css", "@namespace s \"library://ns.adobe.com/flex/spark\";\ns|Button { font^ }\n")
	labels := itemLabels(items)
	assert.Contains(t, labels, "fontSize")
	assert.Contains(t, labels, "font-size")
	assert.Less(t, indexOf(items, "fontSize"), indexOf(items, "font-size"))

	items = complete(t, f, "c.css", "@namespace s \"library://ns.adobe.com/flex/spark\";\ns|Button { textAlign: ^ }\n")
	assert.ElementsMatch(t, []string{"left", "center", "right", "justify"}, itemLabels(items))
}
