package topology

// Nodes returns a copy of all nodes in insertion order.
func (t *Topology) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Links returns a copy of all links in insertion order.
func (t *Topology) Links() []Link {
	out := make([]Link, len(t.links))
	copy(out, t.links)
	return out
}

// Node looks up a node by name.
func (t *Topology) Node(name string) (Node, bool) {
	i, ok := t.index[name]
	if !ok {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Resolve finds a node by name first and then by label.
func (t *Topology) Resolve(nameOrLabel string) (Node, bool) {
	if n, ok := t.Node(nameOrLabel); ok {
		return n, true
	}
	for _, n := range t.nodes {
		if n.Label != "" && n.Label == nameOrLabel {
			return n, true
		}
	}
	return Node{}, false
}

// Switches returns the switches in insertion order.
func (t *Topology) Switches() []Node { return t.nodesOfType(NodeSwitch) }

// Hosts returns the hosts in insertion order.
func (t *Topology) Hosts() []Node { return t.nodesOfType(NodeHost) }

func (t *Topology) nodesOfType(typ NodeType) []Node {
	var out []Node
	for _, n := range t.nodes {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// LinksOf returns every link incident to name.
func (t *Topology) LinksOf(name string) []Link {
	var out []Link
	for _, l := range t.links {
		if l.Connects(name) {
			out = append(out, l)
		}
	}
	return out
}

// Neighbors returns the names adjacent to name, in link order.
func (t *Topology) Neighbors(name string) []string {
	var out []string
	for _, l := range t.LinksOf(name) {
		out = append(out, l.Peer(name))
	}
	return out
}

// Degree counts the links incident to name.
func (t *Topology) Degree(name string) int {
	return len(t.LinksOf(name))
}

// SwitchSubgraph returns a new topology holding only the switches and the
// links between them.
func (t *Topology) SwitchSubgraph() *Topology {
	sub := NewTopology()
	for _, n := range t.Switches() {
		sub.addNode(n)
	}
	for _, l := range t.links {
		a, okA := t.Node(l.NodeA)
		b, okB := t.Node(l.NodeB)
		if okA && okB && a.Type == NodeSwitch && b.Type == NodeSwitch {
			sub.links = append(sub.links, l)
		}
	}
	return sub
}
