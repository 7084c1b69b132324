package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/topology"
)

func sample() *topology.Topology {
	t := topology.NewTopology()
	t.AddSwitch("s1", topology.WithLabel("MIL"), topology.WithProtocols("OpenFlow13"))
	t.AddSwitch("s2", topology.WithLabel("ATH"))
	t.AddHost("h1")
	t.AddLink("s1", "h1")
	t.AddLink("s2", "s1", topology.WithBandwidth(10))
	return t
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(), Options{})

	assert.True(t, strings.HasPrefix(dot, "graph G {\n"))
	assert.Contains(t, dot, `"s1" [label="s1", shape=box, style="rounded,filled", fillcolor=lightblue, tooltip="OpenFlow13"];`)
	assert.Contains(t, dot, `"s2" [label="s2", shape=box, style="rounded,filled", fillcolor=white];`)
	assert.Contains(t, dot, `"h1" [label="h1", shape=ellipse, fontsize=9];`)
	assert.Contains(t, dot, `"s1" -- "h1";`)
	assert.Contains(t, dot, `"s2" -- "s1" [label="10M"];`)
}

func TestToDOTOptions(t *testing.T) {
	dot := ToDOT(sample(), Options{SwitchesOnly: true, Labels: true})

	assert.Contains(t, dot, `label="MIL"`)
	assert.Contains(t, dot, `label="ATH"`)
	assert.NotContains(t, dot, `"h1"`)
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(context.Background(), ToDOT(sample(), Options{}), FormatSVG, &buf))
	assert.Contains(t, buf.String(), "<svg")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	err := Render(context.Background(), ToDOT(sample(), Options{}), Format("gif"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported format")
}
