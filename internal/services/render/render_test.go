package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	r := New()

	out, err := r.HTML("**Request Timeout**\n\n- Try again\n- Check your connection")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Request Timeout</strong>")
	assert.Contains(t, out, "<li>Try again</li>")

	out, err = r.HTML("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")

	out, err = r.HTML("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, out, "<br>")
}

func TestHTMLEscapesRawHTML(t *testing.T) {
	out := New().SafeHTML("<script>alert(1)</script>")
	assert.NotContains(t, out, "<script>")
}

func TestHTMLEmpty(t *testing.T) {
	out, err := New().HTML("  \n ")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
