package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/topology"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := New(&out, &logs).RootCommand()
	root.SetArgs(args)
	root.SetErr(&logs)
	err := root.Execute()
	return out.String(), err
}

func TestToposCommand(t *testing.T) {
	out, err := execute(t, "topos")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)

	assert.Equal(t, []string{"NAME", "SWITCHES", "HOSTS", "LINKS"}, strings.Fields(lines[0]))

	var att []string
	for _, l := range lines[1:] {
		if f := strings.Fields(l); len(f) > 0 && f[0] == "att" {
			att = f
		}
	}
	assert.Equal(t, []string{"att", "28", "28", "69"}, att, out)
}

func TestShowCommand(t *testing.T) {
	out, err := execute(t, "show", "att")
	require.NoError(t, err)
	assert.Contains(t, out, "MIL")
	assert.Contains(t, out, "OpenFlow13")
	assert.Contains(t, out, "s28")
}

func TestShowRequiresTopology(t *testing.T) {
	_, err := execute(t, "show")
	assert.ErrorContains(t, err, "topology name or --file is required")

	_, err = execute(t, "show", "att", "--file", "x.toml")
	assert.ErrorContains(t, err, "not both")

	_, err = execute(t, "show", "nope")
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{"json", "toml"} {
		path := filepath.Join(dir, "att."+format)
		_, err := execute(t, "export", "att", "--format", format, "-o", path)
		require.NoError(t, err, format)

		loaded, err := topology.LoadFile(path)
		require.NoError(t, err, format)
		assert.Len(t, loaded.Switches(), 28, format)
		assert.Len(t, loaded.Links(), 69, format)

		// show accepts exported files
		out, err := execute(t, "show", "--file", path)
		require.NoError(t, err, format)
		assert.Contains(t, out, "LJU")
	}
}

func TestExportDOT(t *testing.T) {
	out, err := execute(t, "export", "single", "--format", "dot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph G {"))
	assert.Contains(t, out, `"h1" -- "s1"`)

	out, err = execute(t, "export", "att", "--format", "dot", "--switches-only")
	require.NoError(t, err)
	assert.NotContains(t, out, `"h1"`)
	assert.Contains(t, out, `"s1" -- "s9" [label="10M"]`)
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := execute(t, "export", "att", "--format", "yaml")
	assert.ErrorContains(t, err, `unsupported format: "yaml"`)
}

func TestRenderRequiresOutput(t *testing.T) {
	_, err := execute(t, "render", "att")
	assert.ErrorContains(t, err, "--output is required")
}

func TestRenderSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "att.svg")
	_, err := execute(t, "render", "att", "--switches-only", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}
