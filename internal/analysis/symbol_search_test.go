package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryTokens(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "getFooBar", want: []string{"get", "Foo", "Bar"}},
		{query: "FB", want: []string{"FB"}},
		{query: "URLLoader", want: []string{"URLLoader"}},
		{query: "my_var.name", want: []string{"my", "var", "name"}},
		{query: "", want: nil},
		{query: "aEL", want: []string{"a", "EL"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTokens(tt.query))
		})
	}
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		query string
		qname string
		want  bool
	}{
		{query: "", qname: "anything", want: true},
		{query: "foBa", qname: "com.example.FooBar", want: true},
		{query: "barFoo", qname: "com.example.FooBar", want: false},
		{query: "shape", qname: "shapes.Shape", want: true},
		{query: "com.ex", qname: "com.example.FooBar", want: true},
		{query: "com.ex", qname: "org.com.example.FooBar", want: false},
		{query: "com.", qname: "com.example.FooBar", want: true},
		{query: "example.Foo", qname: "com.example.FooBar", want: false},
		{query: "\u212A", qname: "flash.display.Stack", want: true},
		{query: "\u212Aa", qname: "flash.display.Stack", want: false},
		{query: "\u212AStack", qname: "Kstack.Stack", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.query+"~"+tt.qname, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchQuery(tt.query, tt.qname))
		})
	}
}

func TestIsQualifiedQuery(t *testing.T) {
	assert.True(t, IsQualifiedQuery("a.b"))
	assert.True(t, IsQualifiedQuery("com."))
	assert.False(t, IsQualifiedQuery("."))
	assert.False(t, IsQualifiedQuery(".b"))
	assert.False(t, IsQualifiedQuery("fooBar"))
}

func TestMatchPrefix(t *testing.T) {
	assert.True(t, MatchPrefix("addEventListener", ""))
	assert.True(t, MatchPrefix("addEventListener", "ADD"))
	assert.True(t, MatchPrefix("addEventListener", "aEL"))
	assert.False(t, MatchPrefix("removeEventListener", "aEL"))
	assert.False(t, MatchPrefix("addEventListener", "listener"))
}

func TestSymbolScore(t *testing.T) {
	assert.Equal(t, 3, SymbolScore("shape", "Shape"))
	assert.Equal(t, 2, SymbolScore("sha", "Shape"))
	assert.Equal(t, 1, SymbolScore("sh", "FastShape"))
}

func TestSearchSymbols(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", `package shapes {
	public class Shape {
		public function drawShape():void { var local:int = 0; }
	}
}
`)
	f.add("shapes/ShapeUtil.as", `package shapes {
	public class ShapeUtil {
		public static function shapeCount():int { return 0; }
	}
}
`)
	f.add("other/Other.as", `package other { public class Other {} }`)

	matches, err := SearchSymbols(context.Background(), f.p, "shape", 0)
	require.NoError(t, err)

	var names []string
	for _, m := range matches {
		names = append(names, m.Def.QualifiedName)
	}

	require.NotEmpty(t, names)
	assert.Equal(t, "shapes.Shape", names[0])
	assert.Contains(t, names, "shapes.ShapeUtil")
	assert.Contains(t, names, "shapes.Shape.drawShape")
	assert.Contains(t, names, "shapes.ShapeUtil.shapeCount")
	assert.NotContains(t, names, "other.Other")

	// Builtin library types never show up.
	for _, m := range matches {
		assert.False(t, m.Def.Unit.ReadOnly(), m.Def.QualifiedName)
		assert.NotEqual(t, "local", m.Def.Name)
	}

	limited, err := SearchSymbols(context.Background(), f.p, "shape", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	qualified, err := SearchSymbols(context.Background(), f.p, "shapes.ShapeU", 0)
	require.NoError(t, err)
	require.NotEmpty(t, qualified)

	for _, m := range qualified {
		assert.Contains(t, m.Def.QualifiedName, "shapes.ShapeUtil")
	}
}

func TestSearchSymbols_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.add("shapes/Shape.as", shapeLib)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches, err := SearchSymbols(ctx, f.p, "shape", 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, matches)
}
