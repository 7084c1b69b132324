package topology

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
)

type NodeType string

const (
	NodeHost   NodeType = "host"
	NodeSwitch NodeType = "switch"
)

var (
	// ErrEmptyName is returned by Validate when a node has no name.
	ErrEmptyName = errors.New("node name must not be empty")

	// ErrUnknownNode is returned by Validate when a link references a node
	// that was never added.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfLoop is returned by Validate when both ends of a link are the same node.
	ErrSelfLoop = errors.New("link connects a node to itself")

	// ErrDuplicateLink is returned by Validate when the same unordered pair
	// is linked twice.
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrNegativeBandwidth is returned by Validate for a link with bandwidth below zero.
	ErrNegativeBandwidth = errors.New("bandwidth must not be negative")

	// ErrInvalidAddress is returned by Validate for a link address that is not
	// a CIDR prefix or that sits on a switch end.
	ErrInvalidAddress = errors.New("invalid link address")

	// ErrDuplicateNode is returned when a topology file declares a node name twice.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Node is a switch or a host. Protocols is only meaningful for switches.
type Node struct {
	Name      string
	Type      NodeType
	Label     string
	Protocols string
}

// DisplayName returns the label when one is set, otherwise the name.
func (n Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Name
}

// Link is an undirected edge. Bandwidth is in Mbit/s; zero means unlimited.
type Link struct {
	NodeA     string
	NodeB     string
	Bandwidth float64
	IPA       string
	IPB       string
}

// HasBandwidth reports whether the link is rate limited.
func (l Link) HasBandwidth() bool { return l.Bandwidth > 0 }

// Connects reports whether name is one of the link's endpoints.
func (l Link) Connects(name string) bool { return l.NodeA == name || l.NodeB == name }

// Peer returns the endpoint opposite to name.
func (l Link) Peer(name string) string {
	if l.NodeA == name {
		return l.NodeB
	}
	return l.NodeA
}

// Graph is the registration surface topology descriptors are written against.
type Graph interface {
	AddSwitch(name string, opts ...NodeOption)
	AddHost(name string, opts ...NodeOption)
	AddLink(a, b string, opts ...LinkOption)
}

// NodeOption customises a node at registration time.
type NodeOption func(*Node)

// WithProtocols tags a switch with the protocol versions it speaks, e.g. "OpenFlow13".
func WithProtocols(p string) NodeOption {
	return func(n *Node) { n.Protocols = p }
}

// WithLabel attaches a human readable label such as a city code.
func WithLabel(label string) NodeOption {
	return func(n *Node) { n.Label = label }
}

// LinkOption customises a link at registration time.
type LinkOption func(*Link)

// WithBandwidth limits the link to bw Mbit/s.
func WithBandwidth(bw float64) LinkOption {
	return func(l *Link) { l.Bandwidth = bw }
}

// WithIPs sets the CIDR addresses used on the A and B ends when they are hosts.
func WithIPs(ipA, ipB string) LinkOption {
	return func(l *Link) {
		l.IPA = ipA
		l.IPB = ipB
	}
}

// Topology keeps nodes in insertion order so that two constructions of the
// same descriptor compare equal.
type Topology struct {
	nodes []Node
	index map[string]int
	links []Link
}

var _ Graph = (*Topology)(nil)

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{
		nodes: []Node{},
		index: map[string]int{},
		links: []Link{},
	}
}

func (t *Topology) addNode(n Node) {
	if i, ok := t.index[n.Name]; ok {
		t.nodes[i] = n
		return
	}
	t.index[n.Name] = len(t.nodes)
	t.nodes = append(t.nodes, n)
}

// AddHost registers a host. Re-adding a name replaces the node in place.
func (t *Topology) AddHost(name string, opts ...NodeOption) {
	n := Node{Name: name, Type: NodeHost}
	for _, opt := range opts {
		opt(&n)
	}
	t.addNode(n)
}

// AddSwitch registers a switch. Re-adding a name replaces the node in place.
func (t *Topology) AddSwitch(name string, opts ...NodeOption) {
	n := Node{Name: name, Type: NodeSwitch}
	for _, opt := range opts {
		opt(&n)
	}
	t.addNode(n)
}

// AddLink records an edge between a and b. Endpoints are checked by Validate,
// not here, so descriptors can register links in any order.
func (t *Topology) AddLink(a, b string, opts ...LinkOption) {
	l := Link{NodeA: a, NodeB: b}
	for _, opt := range opts {
		opt(&l)
	}
	t.links = append(t.links, l)
}

// AddLinkWithIPs is AddLink with WithIPs(ipA, ipB).
func (t *Topology) AddLinkWithIPs(a, b, ipA, ipB string) {
	t.AddLink(a, b, WithIPs(ipA, ipB))
}

// Validate checks that the topology can be realised.
func (t *Topology) Validate() error {
	for i, n := range t.nodes {
		if n.Name == "" {
			return fmt.Errorf("node %d: %w", i, ErrEmptyName)
		}
	}

	seen := make(map[[2]string]bool, len(t.links))
	for _, l := range t.links {
		if _, ok := t.index[l.NodeA]; !ok {
			return fmt.Errorf("link %s-%s: %w: %s", l.NodeA, l.NodeB, ErrUnknownNode, l.NodeA)
		}
		if _, ok := t.index[l.NodeB]; !ok {
			return fmt.Errorf("link %s-%s: %w: %s", l.NodeA, l.NodeB, ErrUnknownNode, l.NodeB)
		}
		if l.NodeA == l.NodeB {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, ErrSelfLoop)
		}
		if l.Bandwidth < 0 {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, ErrNegativeBandwidth)
		}
		if err := t.checkAddress(l.NodeA, l.IPA); err != nil {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, err)
		}
		if err := t.checkAddress(l.NodeB, l.IPB); err != nil {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, err)
		}
		key := pairKey(l.NodeA, l.NodeB)
		if seen[key] {
			return fmt.Errorf("link %s-%s: %w", l.NodeA, l.NodeB, ErrDuplicateLink)
		}
		seen[key] = true
	}
	return nil
}

// checkAddress accepts an empty address, or a CIDR prefix on a host end.
func (t *Topology) checkAddress(node, ip string) error {
	if ip == "" {
		return nil
	}
	if n := t.nodes[t.index[node]]; n.Type != NodeHost {
		return fmt.Errorf("%w: %s on %s %s", ErrInvalidAddress, ip, n.Type, node)
	}
	if _, err := netip.ParsePrefix(ip); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAddress, ip, err)
	}
	return nil
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Equal reports whether both topologies hold the same nodes and links in the
// same order.
func (t *Topology) Equal(other *Topology) bool {
	if t == nil || other == nil {
		return t == other
	}
	return slices.Equal(t.nodes, other.nodes) && slices.Equal(t.links, other.links)
}
