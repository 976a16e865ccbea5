package superpower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontmatter_NoLeadingMarkerReturnsWholeBodyAsIs(t *testing.T) {
	data := []byte("# Just markdown\n\nno frontmatter here\n")
	front, body, err := splitFrontmatter(data)
	require.NoError(t, err)
	assert.Nil(t, front)
	assert.Equal(t, data, body)
}

func TestSplitFrontmatter_ExtractsBlockAndRemainder(t *testing.T) {
	data := []byte("---\nname: demo\ntrigger: /demo\n---\n# Body\n\nhello\n")
	front, body, err := splitFrontmatter(data)
	require.NoError(t, err)
	assert.Equal(t, "name: demo\ntrigger: /demo", string(front))
	assert.Equal(t, "# Body\n\nhello\n", string(body))
}

func TestSplitFrontmatter_UnterminatedBlockIsAnError(t *testing.T) {
	data := []byte("---\nname: demo\n")
	_, _, err := splitFrontmatter(data)
	assert.Error(t, err)
}

func TestParseFrontmatter_PopulatesFieldsAndBody(t *testing.T) {
	data := []byte("---\nname: demo\ndescription: a demo superpower\ntrigger: /demo\nmultimodal: true\n---\nbody text\n")
	fm, body, err := parseFrontmatter(data)
	require.NoError(t, err)
	assert.Equal(t, "demo", fm.Name)
	assert.Equal(t, "a demo superpower", fm.Description)
	assert.Equal(t, "/demo", fm.Trigger)
	assert.True(t, fm.Multimodal)
	assert.Equal(t, "body text\n", string(body))
}

func TestParseFrontmatter_NoFrontmatterYieldsZeroValue(t *testing.T) {
	data := []byte("just a plain markdown document\n")
	fm, body, err := parseFrontmatter(data)
	require.NoError(t, err)
	assert.Equal(t, frontmatter{}, fm)
	assert.Equal(t, data, body)
}
