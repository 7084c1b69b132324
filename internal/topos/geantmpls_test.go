package topos

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/topology"
)

func TestGeantMplsCounts(t *testing.T) {
	topo := NewGeantMpls()
	require.NoError(t, topo.Validate())

	assert.Len(t, topo.Switches(), 28)
	assert.Len(t, topo.Hosts(), 28)
	assert.Len(t, topo.Links(), 28+41)
}

func TestGeantMplsHostsAreStarAttached(t *testing.T) {
	topo := NewGeantMpls()

	for _, h := range topo.Hosts() {
		require.Equal(t, 1, topo.Degree(h.Name), "host %s", h.Name)

		peer, ok := topo.Node(topo.Neighbors(h.Name)[0])
		require.True(t, ok)
		assert.Equal(t, topology.NodeSwitch, peer.Type, "host %s", h.Name)
		assert.False(t, topo.LinksOf(h.Name)[0].HasBandwidth(), "host %s", h.Name)
	}
}

func TestGeantMplsTrunks(t *testing.T) {
	sub := NewGeantMpls().SwitchSubgraph()

	links := sub.Links()
	require.Len(t, links, 41)
	for _, l := range links {
		assert.Equal(t, 10.0, l.Bandwidth, "link %s-%s", l.NodeA, l.NodeB)
	}
	require.NoError(t, sub.Validate())
}

func TestGeantMplsProtocols(t *testing.T) {
	topo := NewGeantMpls()

	tagged := map[string]string{}
	for _, s := range topo.Switches() {
		if s.Protocols != "" {
			tagged[s.Label] = s.Protocols
		}
	}

	assert.Equal(t, map[string]string{
		"LIS": "OpenFlow13",
		"MIL": "OpenFlow13",
		"LJU": "OpenFlow13",
	}, tagged)
}

func TestGeantMplsDeterministic(t *testing.T) {
	a, b := NewGeantMpls(), NewGeantMpls()
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Nodes(), b.Nodes())
	assert.Equal(t, a.Links(), b.Links())
}

func TestGeantMplsMilanNeighbors(t *testing.T) {
	topo := NewGeantMpls()
	mil, ok := topo.Resolve("MIL")
	require.True(t, ok)
	require.Equal(t, "s9", mil.Name)

	sub := topo.SwitchSubgraph()
	var labels []string
	for _, l := range sub.LinksOf(mil.Name) {
		peer, ok := sub.Node(l.Peer(mil.Name))
		require.True(t, ok)
		labels = append(labels, peer.Label)
		assert.Equal(t, 10.0, l.Bandwidth)
	}

	assert.ElementsMatch(t, []string{"ATH", "VIE", "MAR", "GEN", "MLT"}, labels)
	// the host link is not a switch neighbour but still incident
	assert.Equal(t, 6, topo.Degree(mil.Name))
}

func TestGeantMplsSwitchHostPairing(t *testing.T) {
	topo := NewGeantMpls()

	for i, city := range geantCities {
		s, ok := topo.Resolve(city)
		require.True(t, ok, city)
		assert.Equal(t, []string{hostName(i)}, filterHosts(topo, topo.Neighbors(s.Name)), city)
	}
}

func hostName(i int) string {
	return fmt.Sprintf("h%d", i+1)
}

func filterHosts(topo *topology.Topology, names []string) []string {
	var out []string
	for _, name := range names {
		if n, _ := topo.Node(name); n.Type == topology.NodeHost {
			out = append(out, name)
		}
	}
	return out
}
