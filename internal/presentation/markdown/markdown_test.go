package markdown

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func TestNew(t *testing.T) {
	for _, w := range []int{40, 80, 120} {
		r, err := New(w, "")
		require.NoError(t, err)
		require.Equal(t, w, r.Width())
	}
}

func TestNew_NoTTYStyle(t *testing.T) {
	r, err := New(80, "notty")
	require.NoError(t, err)

	out, err := r.Render("A **customer** buys things.")
	require.NoError(t, err)
	require.Contains(t, stripANSI(out), "customer")
}

func TestRender_Definition(t *testing.T) {
	r, err := New(80, "")
	require.NoError(t, err)

	out, err := r.Render("An individual or organization.\n\n- buys products\n- holds accounts")
	require.NoError(t, err)

	plain := stripANSI(out)
	require.Contains(t, plain, "organization")
	require.Contains(t, plain, "buys products")
	require.Contains(t, plain, "holds accounts")
}

func TestRender_TrimsBlankLines(t *testing.T) {
	r, err := New(80, "")
	require.NoError(t, err)

	out, err := r.Render("plain text")
	require.NoError(t, err)
	require.NotRegexp(t, `^\n`, out)
	require.NotRegexp(t, `\n$`, out)
}

func TestRender_Empty(t *testing.T) {
	r, err := New(80, "")
	require.NoError(t, err)

	out, err := r.Render("")
	require.NoError(t, err)
	require.LessOrEqual(t, len(stripANSI(out)), 10)
}
