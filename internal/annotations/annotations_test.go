package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAnnotation(t *testing.T) {
	assert.True(t, IsAnnotation("//congen::export"))
	assert.True(t, IsAnnotation("// congen::export Widget"))
	assert.True(t, IsAnnotation("  //congen::export"))
	assert.False(t, IsAnnotation("// just a comment"))
	assert.False(t, IsAnnotation("// mentions congen somewhere"))
	assert.False(t, IsAnnotation(""))
}

func TestParseExport(t *testing.T) {
	p := NewParser()

	parsed, err := p.Parse("//congen::export")
	require.NoError(t, err)
	assert.Equal(t, KindExport, parsed.Kind)
	assert.Empty(t, parsed.InterfaceName)
}

func TestParseExportWithTarget(t *testing.T) {
	p := NewParser()

	parsed, err := p.Parse("// congen::export WidgetStore")
	require.NoError(t, err)
	assert.Equal(t, KindExport, parsed.Kind)
	assert.Equal(t, "WidgetStore", parsed.InterfaceName)
}

func TestParseRejectsUnknownVerb(t *testing.T) {
	p := NewParser()

	_, err := p.Parse("//congen::wibble")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown annotation verb")
}

func TestParseRejectsMalformed(t *testing.T) {
	p := NewParser()

	for _, comment := range []string{
		"//congen::",
		"//congen:export",
		"//congen::export 123bad",
	} {
		_, err := p.Parse(comment)
		assert.Error(t, err, "expected %q to be rejected", comment)
	}
}
