package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain {text}", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain {text}", out)

	out, err = RenderTemplate("Answer in {{.language}} for {{.city}}.", map[string]any{
		"language": "Urdu",
		"city":     "Karachi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer in Urdu for Karachi.", out)

	// Escaping is not applied to prompts.
	out, err = RenderTemplate("{{.q}}", map[string]any{"q": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, "<b>&</b>", out)
}

func TestRenderTemplate_Errors(t *testing.T) {
	_, err := RenderTemplate("Answer in {{.language}}.", nil)
	assert.ErrorContains(t, err, "language")

	_, err = RenderTemplate("Answer in {{.language}}.", map[string]any{"city": "Karachi"})
	assert.Error(t, err)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)

	// Helper functions are not part of the instruction language.
	_, err = RenderTemplate(`{{upper .city}}`, map[string]any{"city": "Karachi"})
	assert.Error(t, err)
}
