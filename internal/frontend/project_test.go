package frontend

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
	"github.com/CWBudde/go-as3-lsp/internal/document"
	"github.com/CWBudde/go-as3-lsp/internal/semantic"
)

// idents returns the non-synthetic identifiers spelled text, in source order.
func idents(u *semantic.Unit, text string) []ast.NodeID {
	var out []ast.NodeID

	for _, id := range u.Tree.Identifiers() {
		n := u.Tree.Node(id)
		if n.Text == text && n.Parent.Valid() && !n.Flags.Has(ast.FlagSynthetic) {
			out = append(out, id)
		}
	}

	sort.Slice(out, func(i, j int) bool { return u.Tree.Node(out[i]).Start < u.Tree.Node(out[j]).Start })

	return out
}

const shapeSource = `package shapes {
	import flash.display.Sprite;

	/** Base of all shapes. */
	public class Shape extends Sprite {
		private var _size:int;

		public function Shape(size:int) {
			_size = size;
		}

		public function get size():int { return _size; }
		public function set size(value:int):void { _size = value; }

		public function draw():void {}
	}
}
`

func TestUpdate_BindsClassMembers(t *testing.T) {
	p := NewProject()
	u := p.Update("file:///ws/src/shapes/Shape.as", shapeSource, 1, semantic.OriginSource)
	require.NotNil(t, u)

	assert.Equal(t, "shapes", u.Package)
	require.NotNil(t, u.Primary)
	assert.Equal(t, "shapes.Shape", u.Primary.QualifiedName)
	assert.Same(t, u.Primary, p.FindQualified("shapes.Shape"))
	assert.Equal(t, "Base of all shapes.", u.Primary.Doc.Summary())
	assert.Greater(t, u.ImportAnchor, 0)

	base := p.BaseClass(u.Primary)
	require.NotNil(t, base)
	assert.Equal(t, "flash.display.Sprite", base.QualifiedName)
	assert.True(t, base.ReadOnly())

	size := u.Primary.Member("size")
	require.Len(t, size, 2)
	assert.Equal(t, semantic.DefGetter, size[0].Kind)
	assert.Equal(t, semantic.DefSetter, size[1].Kind)
	assert.Equal(t, "int", size[1].TypeName)

	ctor := u.Primary.Constructor()
	require.NotNil(t, ctor)
	require.Len(t, ctor.Params, 1)
	assert.Equal(t, semantic.ClassParameter, ctor.Params[0].Classification)

	uses := idents(u, "_size")
	require.Len(t, uses, 4)

	decl := p.Resolve(u, uses[0])
	require.NotNil(t, decl)
	assert.Equal(t, semantic.Private, decl.Visibility)
	assert.Equal(t, semantic.ClassMember, decl.Classification)

	for _, id := range uses[1:] {
		assert.Same(t, decl, p.Resolve(u, id))
	}

	typ := p.DeclaredType(decl)
	require.NotNil(t, typ)
	assert.Equal(t, "int", typ.Def.QualifiedName)

	// Inherited members come from the builtin display classes.
	assert.NotNil(t, p.Member(u.Primary, "addChild"))
	assert.Equal(t, semantic.DefGetter, p.Member(u.Primary, "x").Kind)
}

func TestTypeOf_Expressions(t *testing.T) {
	p := NewProject()
	p.Update("file:///ws/src/shapes/Shape.as", shapeSource, 1, semantic.OriginSource)

	src := `package {
	import shapes.Shape;

	public class Main {
		public function run():void {
			var list:Vector.<Shape> = new Vector.<Shape>();
			list[0].draw();
			var n:Number = Math.max(1, 2);
			var s = "a" + n;
			var o = list as Object;
		}
	}
}
`
	u := p.Update("file:///ws/src/Main.as", src, 1, semantic.OriginSource)

	draw := idents(u, "draw")
	require.Len(t, draw, 1)

	d := p.Resolve(u, draw[0])
	require.NotNil(t, d)
	assert.Equal(t, "shapes.Shape.draw", d.QualifiedName)

	max := idents(u, "max")
	require.Len(t, max, 1)
	require.NotNil(t, p.Resolve(u, max[0]))
	assert.Equal(t, "Math.max", p.Resolve(u, max[0]).QualifiedName)

	math := p.TypeOf(u, idents(u, "Math")[0])
	require.NotNil(t, math)
	assert.True(t, math.Static)

	list := p.TypeOf(u, idents(u, "list")[1])
	require.NotNil(t, list)
	assert.Equal(t, "Vector", list.Def.QualifiedName)
	require.NotNil(t, list.Element)
	assert.Equal(t, "shapes.Shape", list.Element.Def.QualifiedName)

	for _, tc := range []struct {
		name string
		want string
	}{
		{name: "s", want: "String"},
		{name: "o", want: "Object"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := u.DefinitionAt(u.Tree.Parent(idents(u, tc.name)[0]))
			require.NotNil(t, v)

			init := u.Tree.Node(v.Node).Right
			typ := p.TypeOf(u, init)
			require.NotNil(t, typ)
			assert.Equal(t, tc.want, typ.Def.QualifiedName)
		})
	}
}

func TestOverridden(t *testing.T) {
	p := NewProject()
	a := p.Update("file:///ws/src/A.as", "package { public class A { public function f():void {} } }", 1, semantic.OriginSource)
	b := p.Update("file:///ws/src/B.as", "package { public class B extends A { override public function f():void { super.f(); } } }", 1, semantic.OriginSource)

	af := a.Primary.Member("f")[0]
	bf := b.Primary.Member("f")[0]

	assert.True(t, bf.Override)
	assert.Same(t, af, p.Overridden(bf))
	assert.Nil(t, p.Overridden(af))

	calls := idents(b, "f")
	require.Len(t, calls, 2)
	assert.Same(t, af, p.Resolve(b, calls[1]))
}

func TestScopeChain_Locals(t *testing.T) {
	p := NewProject()
	src := `package { public class C { private var field:int; public function f(a:int):void { var local:String; for each (var item:Object in []) {} } } }`
	u := p.Update("file:///ws/src/C.as", src, 1, semantic.OriginSource)

	offset := strings.Index(src, "for each")
	chain := p.ScopeChain(u, offset)
	require.NotEmpty(t, chain)
	assert.Equal(t, semantic.ScopeFunction, chain[0].Kind)
	assert.Equal(t, semantic.ScopeType, chain[1].Kind)
	assert.Equal(t, semantic.ScopeFile, chain[2].Kind)
	assert.Equal(t, semantic.ScopePackage, chain[len(chain)-1].Kind)

	var names []string
	for _, d := range p.VisibleDefinitions(chain[0]) {
		names = append(names, d.Name)
	}

	assert.ElementsMatch(t, []string{"a", "local", "item"}, names)

	var top []string
	for _, d := range p.VisibleDefinitions(chain[len(chain)-1]) {
		top = append(top, d.Name)
	}

	assert.Contains(t, top, "trace")
	assert.Contains(t, top, "C")
}

const mainMarkup = `<?xml version="1.0" encoding="utf-8"?>
<s:Application xmlns:fx="http://ns.adobe.com/mxml/2009" xmlns:s="library://ns.adobe.com/flex/spark">
	<fx:Script><![CDATA[
		private function go():void { bar.label = "x"; }
	]]></fx:Script>
	<s:Button id="bar" click="go()" label="{bar.label}"/>
</s:Application>
`

func TestUpdate_Markup(t *testing.T) {
	p := NewProject()
	p.SetSourceRoots([]string{filepath.FromSlash("/ws/src")})

	u := p.Update("file:///ws/src/views/Main.mxml", mainMarkup, 1, semantic.OriginSource)
	require.NotNil(t, u)
	require.NotNil(t, u.Markup)

	require.NotNil(t, u.Primary)
	assert.Equal(t, "views.Main", u.Primary.QualifiedName)
	assert.True(t, u.Primary.Synthetic)
	assert.Equal(t, "spark.components.Application", p.BaseClass(u.Primary).QualifiedName)
	assert.Equal(t, strings.Index(mainMarkup, "<![CDATA[")+len("<![CDATA["), u.ImportAnchor)

	bar := p.Member(u.Primary, "bar")
	require.NotNil(t, bar)
	assert.Equal(t, strings.Index(mainMarkup, `bar" click`), bar.NameStart)
	assert.Equal(t, "spark.components.Button", p.DeclaredType(bar).Def.QualifiedName)

	uses := idents(u, "bar")
	require.Len(t, uses, 3)

	for _, id := range uses {
		assert.Same(t, bar, p.Resolve(u, id))
	}

	gos := idents(u, "go")
	require.Len(t, gos, 2)
	assert.Equal(t, p.Resolve(u, gos[0]), p.Resolve(u, gos[1]))

	label := idents(u, "label")
	require.Len(t, label, 2)

	for _, id := range label {
		d := p.Resolve(u, id)
		require.NotNil(t, d)
		assert.Equal(t, "spark.components.supportClasses.ButtonBase", d.Owner.QualifiedName)
	}

	var handler *semantic.Definition

	for _, m := range u.Primary.Members {
		if m.Name == "@click" {
			handler = m
		}
	}

	require.NotNil(t, handler)
	assert.True(t, handler.Synthetic)
	require.Len(t, handler.Params, 1)
	assert.Equal(t, "flash.events.MouseEvent", handler.Params[0].TypeName)
}

func TestUpdate_Stylesheet(t *testing.T) {
	p := NewProject()
	u := p.Update("file:///ws/src/main.css", "s|Button { color: red; }", 1, semantic.OriginSource)

	require.NotNil(t, u)
	assert.Equal(t, document.KindStyle, u.Kind)
	require.Len(t, u.Styles, 1)
	assert.Len(t, u.Styles[0].Rules, 1)
}

func TestUpdate_UnknownKind(t *testing.T) {
	p := NewProject()
	assert.Nil(t, p.Update("file:///ws/readme.txt", "hello", 1, semantic.OriginSource))
}

func TestRemove_RestoresLibraryDefinition(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib", "com", "lib")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "Widget.as"), []byte("package com.lib { public class Widget {} }"), 0o644))

	p := NewProject()
	require.NoError(t, p.LoadLibrary(filepath.Join(dir, "lib")))

	libDef := p.FindQualified("com.lib.Widget")
	require.NotNil(t, libDef)
	assert.True(t, libDef.ReadOnly())

	src := p.Update("file:///ws/src/com/lib/Widget.as", "package com.lib { public class Widget {} }", 1, semantic.OriginSource)
	assert.Same(t, src.Primary, p.FindQualified("com.lib.Widget"))

	p.Remove(src.URI)
	assert.Same(t, libDef, p.FindQualified("com.lib.Widget"))
	assert.Nil(t, p.Unit(src.URI))
}

func TestLoadLibrary_SWC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widgets.swc")

	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("catalog.xml")
	require.NoError(t, err)

	_, err = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<swc xmlns="http://www.adobe.com/flash/swccatalog/9">
  <libraries>
    <library path="library.swf">
      <script name="com/lib/Widget" mod="1"><def id="com.lib:Widget"/></script>
      <script name="com/lib/Gadget" mod="1"><def id="com.lib:Gadget"/></script>
      <script name="Helper" mod="1"><def id="Helper"/></script>
    </library>
  </libraries>
</swc>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p := NewProject()
	require.NoError(t, p.LoadLibrary(path))

	for _, qname := range []string{"com.lib.Widget", "com.lib.Gadget", "Helper"} {
		d := p.FindQualified(qname)
		require.NotNil(t, d, qname)
		assert.Equal(t, semantic.OriginLibrary, d.Unit.Origin)
	}

	assert.Contains(t, p.Packages(), "com")
	assert.Contains(t, p.Packages(), "com.lib")
}

func TestLoadLibrary_Missing(t *testing.T) {
	p := NewProject()
	assert.Error(t, p.LoadLibrary(filepath.Join(t.TempDir(), "nope.swc")))
}

func TestPackageOf(t *testing.T) {
	p := NewProject()
	p.SetSourceRoots([]string{filepath.FromSlash("/ws/src"), filepath.FromSlash("/ws/src/generated")})

	tests := []struct {
		path string
		want string
	}{
		{"/ws/src/Main.as", ""},
		{"/ws/src/com/example/Main.as", "com.example"},
		{"/ws/src/generated/api/Client.as", "api"},
		{"/elsewhere/Main.as", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, p.PackageOf(filepath.FromSlash(tt.path)))
		})
	}
}

func TestCatalogDefinitions_SkipsInternals(t *testing.T) {
	got := CatalogDefinitions([]byte(`<swc><libraries><library><script><def id="a.b:C"/><def id="a.b:C$Helper"/><def id="mx_internal:X"/></script></library></libraries></swc>`))
	assert.Equal(t, map[string][]string{"a.b": {"C"}}, got)
}
