package topology

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/charmbracelet/log"
)

// DefaultIPBase is the network hosts are numbered from when a link carries no
// explicit address: the n-th host gets the n-th address of the prefix.
var DefaultIPBase = netip.MustParsePrefix("10.0.0.0/8")

// Fabric realises topology elements on the machine.
type Fabric interface {
	CreateSwitch(ctx context.Context, n Node) error
	CreateHost(ctx context.Context, n Node) error
	Connect(ctx context.Context, l Link, a, b Node) error
	Teardown(ctx context.Context) error
}

// Builder realises a Topology on a Fabric.
type Builder struct {
	fabric Fabric
	logger *log.Logger
	ipBase netip.Prefix
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithIPBase overrides DefaultIPBase.
func WithIPBase(p netip.Prefix) BuilderOption {
	return func(b *Builder) { b.ipBase = p }
}

// NewBuilder returns a Builder numbering hosts from DefaultIPBase unless overridden.
func NewBuilder(fabric Fabric, logger *log.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	b := &Builder{
		fabric: fabric,
		logger: logger,
		ipBase: DefaultIPBase,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build creates every switch, then every host, then every link.
// It stops at the first failure; call Teardown to undo partial work.
func (b *Builder) Build(ctx context.Context, t *Topology) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validate topology: %w", err)
	}

	for _, n := range t.Switches() {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.logger.Debug("creating switch", "name", n.Name, "label", n.Label, "protocols", n.Protocols)
		if err := b.fabric.CreateSwitch(ctx, n); err != nil {
			return fmt.Errorf("build switch %s: %w", n.Name, err)
		}
	}

	for _, n := range t.Hosts() {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.logger.Debug("creating host", "name", n.Name)
		if err := b.fabric.CreateHost(ctx, n); err != nil {
			return fmt.Errorf("build host %s: %w", n.Name, err)
		}
	}

	links, err := AssignAddresses(t, b.ipBase)
	if err != nil {
		return fmt.Errorf("assign addresses: %w", err)
	}

	for _, l := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, _ := t.Node(l.NodeA)
		z, _ := t.Node(l.NodeB)
		b.logger.Debug("creating link", "a", l.NodeA, "b", l.NodeB, "bw", l.Bandwidth)
		if err := b.fabric.Connect(ctx, l, a, z); err != nil {
			return fmt.Errorf("build link %s-%s: %w", l.NodeA, l.NodeB, err)
		}
	}

	b.logger.Info("topology built",
		"switches", len(t.Switches()),
		"hosts", len(t.Hosts()),
		"links", len(links))
	return nil
}

// Teardown removes everything the fabric created.
func (b *Builder) Teardown(ctx context.Context) error {
	if err := b.fabric.Teardown(ctx); err != nil {
		return fmt.Errorf("teardown: %w", err)
	}
	b.logger.Info("topology removed")
	return nil
}

// AssignAddresses returns t's links with host addresses filled in. The first
// link of the n-th host without an explicit address gets base address + n.
func AssignAddresses(t *Topology, base netip.Prefix) ([]Link, error) {
	if !base.Addr().Is4() {
		return nil, fmt.Errorf("ip base %s: only IPv4 is supported", base)
	}

	addrs := make(map[string]string)
	for i, h := range t.Hosts() {
		addr, err := nthAddr(base, uint32(i+1))
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", h.Name, err)
		}
		addrs[h.Name] = netip.PrefixFrom(addr, base.Bits()).String()
	}

	links := t.Links()
	for i := range links {
		l := &links[i]
		if ip, ok := addrs[l.NodeA]; ok {
			if l.IPA == "" {
				l.IPA = ip
			}
			delete(addrs, l.NodeA)
		}
		if ip, ok := addrs[l.NodeB]; ok {
			if l.IPB == "" {
				l.IPB = ip
			}
			delete(addrs, l.NodeB)
		}
	}
	return links, nil
}

func nthAddr(base netip.Prefix, n uint32) (netip.Addr, error) {
	b := base.Masked().Addr().As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	v += n
	addr := netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
	if !base.Contains(addr) {
		return netip.Addr{}, fmt.Errorf("address %d is outside %s", n, base)
	}
	return addr, nil
}
