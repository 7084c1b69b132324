package topos

import "topozoo/internal/topology"

// Single registers two addressed hosts behind one switch.
func Single(g topology.Graph) {
	g.AddHost("h1")
	g.AddHost("h2")
	g.AddSwitch("s1")
	g.AddLink("h1", "s1", topology.WithIPs("10.0.0.1/24", ""))
	g.AddLink("h2", "s1", topology.WithIPs("10.0.0.2/24", ""))
}

// NewSingle builds a fresh two-host topology.
func NewSingle() *topology.Topology {
	t := topology.NewTopology()
	Single(t)
	return t
}
