package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaceFallsBackToEmbeddedFonts(t *testing.T) {
	fm, err := NewFontManager()
	require.NoError(t, err)

	for _, family := range []string{"Arial", "Times New Roman", "no-such-family"} {
		face, synthetic, err := fm.Face(family, 24, false, false)
		require.NoError(t, err, family)
		assert.NotNil(t, face)
		assert.False(t, synthetic, "embedded fonts carry real bold variants")
	}
}

func TestFaceStyleVariants(t *testing.T) {
	fm, err := NewFontManager()
	require.NoError(t, err)

	regular, _, err := fm.Face("Arial", 24, false, false)
	require.NoError(t, err)
	bold, _, err := fm.Face("Arial", 24, true, false)
	require.NoError(t, err)
	italic, _, err := fm.Face("Arial", 24, false, true)
	require.NoError(t, err)

	assert.NotSame(t, regular, bold)
	assert.NotSame(t, regular, italic)
}

func TestFaceIsCached(t *testing.T) {
	fm, err := NewFontManager()
	require.NoError(t, err)

	a, _, err := fm.Face("Verdana", 18, true, false)
	require.NoError(t, err)
	b, _, err := fm.Face("verdana", 18, true, false)
	require.NoError(t, err)
	assert.Same(t, a, b, "family lookup is case and separator insensitive")
}

func TestFaceRejectsNonPositiveSize(t *testing.T) {
	fm, err := NewFontManager()
	require.NoError(t, err)

	_, _, err = fm.Face("Arial", 0, false, false)
	assert.Error(t, err)
}
