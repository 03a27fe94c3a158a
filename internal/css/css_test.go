package css

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const styleSource = `@namespace s "library://ns.adobe.com/flex/spark";
@namespace local "*";

s|Button, local|Widget.primary {
	color: #ff0000;
	fontWeight: bold;
}

s|Label:disabled {
	alpha: 0.5;
}
`

func TestParse_Sheet(t *testing.T) {
	sheets := map[string]*Sheet{
		"tree-sitter": Parse(styleSource, 0, len(styleSource)),
		"scanner":     func() *Sheet { s := &Sheet{Source: styleSource, End: len(styleSource)}; scanSheet(s); return s }(),
	}

	for name, sheet := range sheets {
		t.Run(name, func(t *testing.T) {
			require.Len(t, sheet.Namespaces, 2)

			uri, ok := sheet.NamespaceURI("s")
			assert.True(t, ok)
			assert.Equal(t, "library://ns.adobe.com/flex/spark", uri)

			require.Len(t, sheet.Rules, 2)

			first := sheet.Rules[0]
			require.Len(t, first.Selectors, 2)
			require.Len(t, first.Selectors[0].Types, 1)
			assert.Equal(t, "s", first.Selectors[0].Types[0].Prefix)
			assert.Equal(t, "Button", first.Selectors[0].Types[0].Name)
			assert.Equal(t, []string{"primary"}, first.Selectors[1].Classes)

			require.Len(t, first.Declarations, 2)
			assert.Equal(t, "color", first.Declarations[0].Property)
			assert.Equal(t, "#ff0000", first.Declarations[0].Value)
			assert.Equal(t, "fontWeight", first.Declarations[1].Property)

			second := sheet.Rules[1]
			assert.Equal(t, []string{"disabled"}, second.Selectors[0].States)
		})
	}
}

func TestSheet_At(t *testing.T) {
	sheet := Parse(styleSource, 0, len(styleSource))

	tests := []struct {
		name     string
		offset   int
		kind     LocationKind
		prefix   string
		typeName string
	}{
		{"type selector", strings.Index(styleSource, "Button") + 3, LocSelector, "But", "Button"},
		{"property", strings.Index(styleSource, "fontWeight") + 4, LocProperty, "font", ""},
		{"value", strings.Index(styleSource, "bold") + 2, LocValue, "bo", ""},
		{"namespace", 5, LocNone, "", ""},
		{"between rules", strings.Index(styleSource, "s|Label") - 1, LocSelector, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := sheet.At(tt.offset)
			assert.Equal(t, tt.kind, loc.Kind)
			assert.Equal(t, tt.prefix, loc.Prefix)

			if tt.typeName != "" {
				require.NotNil(t, loc.Type)
				assert.Equal(t, tt.typeName, loc.Type.Name)
			}
		})
	}
}

func TestParse_IncompleteRule(t *testing.T) {
	host := `<fx:Style>s|Button { col</fx:Style>`
	start := strings.Index(host, ">") + 1
	end := strings.Index(host, "</fx:Style>")

	sheet := Parse(host, start, end)
	require.Len(t, sheet.Rules, 1)

	loc := sheet.At(end)
	assert.Equal(t, LocProperty, loc.Kind)
	assert.Equal(t, "col", loc.Prefix)

	loc = sheet.At(start + 3)
	assert.Equal(t, LocSelector, loc.Kind)
	require.NotNil(t, loc.Type)
	assert.Equal(t, "Button", loc.Type.Name)
	assert.Equal(t, start+2, loc.Type.Start)
}

func TestParse_EmptyRegion(t *testing.T) {
	sheet := Parse("abc", 2, 1)
	assert.Empty(t, sheet.Rules)
	assert.Equal(t, LocNone, sheet.At(10).Kind)
}
