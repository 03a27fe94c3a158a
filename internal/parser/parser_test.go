package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CWBudde/go-as3-lsp/internal/ast"
)

func findKind(t *testing.T, tree *ast.Tree, kind ast.Kind) []ast.NodeID {
	t.Helper()

	var out []ast.NodeID

	tree.Walk(tree.Root, func(id ast.NodeID) bool {
		if tree.Kind(id) == kind {
			out = append(out, id)
		}

		return true
	})

	return out
}

func TestParse_PackageClassMembers(t *testing.T) {
	src := `package com.example.shapes {
	import flash.display.Sprite;
	import flash.events.*;

	/** A shape. */
	[Event(name="change", type="flash.events.Event")]
	public class Shape extends Sprite implements IShape, IDrawable {
		private var _size:int = 1;
		public static const DEFAULT:String = "x";

		public function Shape(size:int = 1) {
			_size = size;
		}

		public function get size():int { return _size; }
		public function set size(value:int):void { _size = value; }

		override protected function draw(...args):void {}
	}
}
`
	tree := Parse(src)
	require.Empty(t, tree.Errors)

	pkgs := findKind(t, tree, ast.KindPackage)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "com.example.shapes", tree.Node(pkgs[0]).Text)

	imports := findKind(t, tree, ast.KindImport)
	require.Len(t, imports, 2)
	assert.Equal(t, "flash.display.Sprite", tree.Node(imports[0]).Text)
	assert.Equal(t, "flash.events.*", tree.Node(imports[1]).Text)

	classes := findKind(t, tree, ast.KindClass)
	require.Len(t, classes, 1)

	cls := tree.Node(classes[0])
	assert.Equal(t, "Shape", tree.Node(cls.Name).Text)
	assert.Equal(t, "Sprite", tree.Node(cls.Left).Text)
	require.Len(t, cls.Extra, 2)
	assert.Equal(t, "IDrawable", tree.Node(cls.Extra[1]).Text)
	require.Len(t, cls.Meta, 1)
	assert.Equal(t, "Event", cls.Meta[0].Name)

	name, ok := cls.Meta[0].Arg("name")
	assert.True(t, ok)
	assert.Equal(t, "change", name)
	require.NotNil(t, cls.Doc)
	assert.Equal(t, "A shape.", cls.Doc.Summary())
	assert.True(t, cls.Flags.Has(ast.FlagPublic))

	fns := findKind(t, tree, ast.KindFunction)
	require.Len(t, fns, 4)
	assert.True(t, tree.Node(fns[1]).Flags.Has(ast.FlagGetter))
	assert.True(t, tree.Node(fns[2]).Flags.Has(ast.FlagSetter))
	assert.True(t, tree.Node(fns[3]).Flags.Has(ast.FlagOverride|ast.FlagProtected))

	rest := tree.Node(tree.Node(fns[3]).List[0])
	assert.True(t, rest.Flags.Has(ast.FlagRest))

	vars := findKind(t, tree, ast.KindVariable)
	require.Len(t, vars, 2)
	assert.True(t, tree.Node(vars[0]).Flags.Has(ast.FlagPrivate))
	assert.True(t, tree.Node(vars[1]).Flags.Has(ast.FlagStatic|ast.FlagConst))
}

func TestParse_ParentRangesNest(t *testing.T) {
	src := "package { public class A { function f():void { var v:Vector.<int> = new Vector.<int>(); v[0].toString(); } } }"
	tree := Parse(src)

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if !n.Parent.Valid() {
			continue
		}

		parent := tree.Node(n.Parent)
		assert.LessOrEqual(t, parent.Start, n.Start, "node %s inside %s", n.Kind, parent.Kind)
		assert.GreaterOrEqual(t, parent.End, n.End, "node %s inside %s", n.Kind, parent.Kind)
	}
}

func TestParse_IncompleteMemberAccess(t *testing.T) {
	src := "package { class A { function f():void { this.\n } } }"
	tree := Parse(src)

	dot := strings.Index(src, ".")
	id := tree.FindByPos(ast.KindMemberAccess, dot)
	require.True(t, id.Valid())

	n := tree.Node(id)
	assert.Equal(t, ast.KindThis, tree.Kind(n.Left))
	assert.Equal(t, "", tree.Node(n.Right).Text)
	assert.Equal(t, dot+1, tree.Node(n.Right).Start)
}

func TestParse_EmptyNewCallee(t *testing.T) {
	src := "package { class A { function f():void { var v:Shape = new \n } } }"
	tree := Parse(src)

	news := findKind(t, tree, ast.KindNew)
	require.Len(t, news, 1)

	callee := tree.Node(tree.Node(news[0]).Left)
	assert.Equal(t, ast.KindIdentifier, callee.Kind)
	assert.Equal(t, "", callee.Text)
}

func TestParse_TypePlaceholder(t *testing.T) {
	src := "package { class A { var x: } }"
	tree := Parse(src)

	colon := strings.Index(src, ":")
	id := tree.FindByPos(ast.KindTypeRef, colon)
	require.True(t, id.Valid())
	assert.Equal(t, "", tree.Node(id).Text)
}

func TestParse_VectorTypes(t *testing.T) {
	src := "var v:Vector.<Vector.<int>>;"
	tree := Parse(src)
	require.Empty(t, tree.Errors)

	vars := findKind(t, tree, ast.KindVariable)
	require.Len(t, vars, 1)

	typ := tree.Node(tree.Node(vars[0]).Type)
	assert.Equal(t, "Vector", typ.Text)
	require.Len(t, typ.List, 1)

	inner := tree.Node(typ.List[0])
	assert.Equal(t, "Vector", inner.Text)
	require.Len(t, inner.List, 1)
	assert.Equal(t, "int", tree.Node(inner.List[0]).Text)
}

func TestParse_AsOperatorTypeRef(t *testing.T) {
	tree := Parse("var s = o as Sprite; var b = o is ")

	bins := findKind(t, tree, ast.KindBinary)
	require.Len(t, bins, 2)
	assert.Equal(t, ast.KindTypeRef, tree.Kind(tree.Node(bins[0]).Right))
	assert.Equal(t, "Sprite", tree.Node(tree.Node(bins[0]).Right).Text)
	assert.Equal(t, "", tree.Node(tree.Node(bins[1]).Right).Text)
}

func TestParse_Statements(t *testing.T) {
	src := `function f(list:Array):void {
	for each (var item:Object in list) { trace(item); }
	for (var i:int = 0; i < 10; i++) {}
	switch (i) { case 1: break; default: return; }
	try { throw new Error("x"); } catch (e:Error) { trace(e); } finally { i = 0; }
	do { i--; } while (i > 0);
	var re:RegExp = /a\/b/g;
	var o:Object = { a: 1, "b": [1, 2] };
	var c:Function = function(x:int):int { return x * 2; };
}`
	tree := Parse(src)
	require.Empty(t, tree.Errors)

	forIns := findKind(t, tree, ast.KindForIn)
	require.Len(t, forIns, 1)
	assert.True(t, tree.Node(forIns[0]).Flags.Has(ast.FlagEach))
	assert.Len(t, findKind(t, tree, ast.KindFor), 1)
	assert.Len(t, findKind(t, tree, ast.KindCatch), 1)
	assert.Len(t, findKind(t, tree, ast.KindFunctionExpr), 1)
}

func TestParse_ErrorRecoveryMakesProgress(t *testing.T) {
	inputs := []string{
		"package {",
		"class {",
		"function (",
		"var x:Vector.<",
		") ] } ;;; @@@",
		"package a.b { public class C extends { } }",
		"import ",
		"override ",
		"[Event(name=",
	}

	for _, src := range inputs {
		tree := Parse(src)
		assert.NotNil(t, tree, src)
	}
}

func TestBuilder_Regions(t *testing.T) {
	src := `<s:Group><fx:Script>var a:int;</fx:Script><s:Button click="a = 2"/></s:Group>`
	b := NewBuilder(src)

	cls := b.Add(ast.Blank(ast.KindClass, 0, len(src)))
	root := b.Tree().Node(b.Tree().Root)
	root.List = append(root.List, cls)

	scriptStart := strings.Index(src, "var")
	scriptEnd := strings.Index(src, "</fx:Script>")
	members := b.Members(cls, scriptStart, scriptEnd)
	require.Len(t, members, 1)

	handlerStart := strings.Index(src, "a = 2")
	block := b.Statements(handlerStart, handlerStart+5)

	tree := b.Finish()
	assert.Equal(t, cls, tree.Parent(members[0]))

	stmt := tree.Node(tree.Node(block).List[0])
	assign := tree.Node(stmt.Left)
	assert.Equal(t, ast.KindAssign, assign.Kind)
	assert.Equal(t, "a", tree.Node(assign.Left).Text)
	assert.Equal(t, handlerStart, tree.Node(assign.Left).Start)
}

func TestTree_TokenIndexBefore(t *testing.T) {
	src := "var x = foo. // trailing\n"
	tree := Parse(src)

	i := tree.TokenIndexBefore(strings.Index(src, "//"))
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, ".", tree.Tokens[i].Text)
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("foo_1"))
	assert.True(t, IsIdentifier("$bar"))
	assert.False(t, IsIdentifier("1foo"))
	assert.False(t, IsIdentifier("class"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier(""))
}
