package manager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"topozoo/internal/container/domain"
	"topozoo/internal/container/repository"
	"topozoo/internal/topology"
)

// ErrNoContainer is returned by FindContainer when nothing matches.
var ErrNoContainer = errors.New("container not found")

// ContainerManager realises topology nodes as containers and keeps their
// metadata in the repositories. It implements topology.Fabric.
type ContainerManager struct {
	repos     *repository.Repositories
	hosts     NamespaceProvider
	switches  NamespaceProvider
	providers map[string]NamespaceProvider
	logger    *log.Logger
	shape     bool

	// containers created by this manager, in creation order
	live    map[string]*domain.Container
	order   []string
	ifCount map[string]int
}

var _ topology.Fabric = (*ContainerManager)(nil)

// Option configures a ContainerManager.
type Option func(*ContainerManager)

// WithHostProvider places hosts in namespaces from p instead of plain netns.
func WithHostProvider(backend string, p NamespaceProvider) Option {
	return func(cm *ContainerManager) {
		cm.hosts = p
		cm.providers[backend] = p
	}
}

// WithShaping enables token bucket shaping on links that carry a bandwidth.
func WithShaping(on bool) Option {
	return func(cm *ContainerManager) { cm.shape = on }
}

// NewContainerManager places switches, and by default hosts, in netns namespaces.
func NewContainerManager(repos *repository.Repositories, netns NamespaceProvider, logger *log.Logger, opts ...Option) *ContainerManager {
	if logger == nil {
		logger = log.Default()
	}
	cm := &ContainerManager{
		repos:     repos,
		hosts:     netns,
		switches:  netns,
		providers: map[string]NamespaceProvider{domain.BackendNetns: netns},
		logger:    logger,
		live:      map[string]*domain.Container{},
		ifCount:   map[string]int{},
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// CreateSwitch creates a namespace holding a single bridge, br0.
func (cm *ContainerManager) CreateSwitch(ctx context.Context, n topology.Node) error {
	container, err := cm.createContainer(ctx, n.Name, domain.KindSwitch, cm.switches)
	if err != nil {
		return err
	}

	bridge, err := container.AddBridge("br0", n.Protocols)
	if err != nil {
		return fmt.Errorf("add bridge: %w", err)
	}

	if err := cm.repos.ContainerRepo.Save(container); err != nil {
		return fmt.Errorf("save container: %w", err)
	}

	cm.logger.Info("switch created", "name", n.Name, "label", n.Label, "bridge", bridge.Name, "protocols", n.Protocols)
	return nil
}

// CreateHost creates a namespace for a host using the host provider.
func (cm *ContainerManager) CreateHost(ctx context.Context, n topology.Node) error {
	container, err := cm.createContainer(ctx, n.Name, domain.KindHost, cm.hosts)
	if err != nil {
		return err
	}
	cm.logger.Info("host created", "name", n.Name, "backend", container.Namespace.Backend)
	return nil
}

func (cm *ContainerManager) createContainer(ctx context.Context, name string, kind domain.Kind, p NamespaceProvider) (*domain.Container, error) {
	if _, exists := cm.live[name]; exists {
		return nil, fmt.Errorf("container %s already exists", name)
	}

	ns, err := p.Create(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create namespace: %w", err)
	}

	container := domain.NewContainer(name, kind, ns)
	cm.live[name] = container
	cm.order = append(cm.order, name)

	if err := cm.repos.ContainerRepo.Save(container); err != nil {
		return nil, fmt.Errorf("save container: %w", err)
	}
	return container, nil
}

// ifName follows the mininet convention: hosts start at eth0, switches at
// eth1 so that port numbers match interface numbers.
func (cm *ContainerManager) ifName(c *domain.Container) string {
	n := cm.ifCount[c.Name]
	if c.Kind == domain.KindSwitch && n == 0 {
		n = 1
	}
	cm.ifCount[c.Name] = n + 1
	return fmt.Sprintf("%s-eth%d", c.Name, n)
}

// Connect creates a veth pair for l and plugs each end into its node.
func (cm *ContainerManager) Connect(ctx context.Context, l topology.Link, a, b topology.Node) error {
	ca, ok := cm.live[a.Name]
	if !ok {
		return fmt.Errorf("missing container for %s", a.Name)
	}
	cb, ok := cm.live[b.Name]
	if !ok {
		return fmt.Errorf("missing container for %s", b.Name)
	}

	ifA, ifB := cm.ifName(ca), cm.ifName(cb)
	veth, err := domain.CreateVeth(ca.Namespace, cb.Namespace, ifA, ifB)
	if err != nil {
		return fmt.Errorf("create veth pair: %w", err)
	}

	if err := veth.MoveEndToNamespace(ifA, ca.Namespace); err != nil {
		(&domain.Veth{Name: ifA}).Delete()
		return fmt.Errorf("move %s: %w", ifA, err)
	}
	if err := veth.MoveEndToNamespace(ifB, cb.Namespace); err != nil {
		veth.Delete()
		return fmt.Errorf("move %s: %w", ifB, err)
	}

	if err := cm.plug(ca, veth, ifA, l.IPA); err != nil {
		return err
	}
	if err := cm.plug(cb, veth, ifB, l.IPB); err != nil {
		return err
	}

	if cm.shape && l.HasBandwidth() {
		if err := veth.Shape(ifA, l.Bandwidth, ca.Namespace); err != nil {
			return fmt.Errorf("shape %s: %w", ifA, err)
		}
		if err := veth.Shape(ifB, l.Bandwidth, cb.Namespace); err != nil {
			return fmt.Errorf("shape %s: %w", ifB, err)
		}
	}

	if err := cm.repos.VethRepo.Save(veth); err != nil {
		return fmt.Errorf("save veth: %w", err)
	}
	ca.Veths = append(ca.Veths, *veth)
	cb.Veths = append(cb.Veths, *veth)

	if err := cm.repos.ContainerRepo.Save(ca); err != nil {
		return fmt.Errorf("save container %s: %w", ca.Name, err)
	}
	if err := cm.repos.ContainerRepo.Save(cb); err != nil {
		return fmt.Errorf("save container %s: %w", cb.Name, err)
	}

	cm.logger.Info("link created", "a", ifA, "b", ifB, "bw", l.Bandwidth)
	return nil
}

// plug attaches a switch end to the bridge, or addresses a host end.
func (cm *ContainerManager) plug(c *domain.Container, veth *domain.Veth, ifName, ip string) error {
	if c.Kind == domain.KindSwitch {
		bridge, ok := c.Bridge()
		if !ok {
			return fmt.Errorf("switch %s has no bridge", c.Name)
		}
		if err := bridge.AttachInterface(ifName); err != nil {
			return fmt.Errorf("attach %s to bridge: %w", ifName, err)
		}
		return nil
	}

	if ip == "" {
		if err := veth.Up(ifName, c.Namespace); err != nil {
			return fmt.Errorf("up %s: %w", ifName, err)
		}
		return nil
	}
	if err := veth.AssignIP(ifName, ip, c.Namespace); err != nil {
		return fmt.Errorf("assign IP to %s: %w", c.Name, err)
	}
	cm.logger.Debug("address assigned", "node", c.Name, "ip", ip)
	return nil
}

// Teardown deletes every container this manager created, newest first.
func (cm *ContainerManager) Teardown(ctx context.Context) error {
	var errs []error
	for _, name := range slices.Backward(cm.order) {
		if err := cm.DeleteContainer(ctx, cm.live[name]); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
		}
		delete(cm.live, name)
	}
	cm.order = nil
	clear(cm.ifCount)
	return errors.Join(errs...)
}

// ListContainers lists all persisted containers sorted by name.
func (cm *ContainerManager) ListContainers() ([]*domain.Container, error) {
	containers, err := cm.repos.ContainerRepo.List()
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}
	slices.SortFunc(containers, func(a, b *domain.Container) int {
		return strings.Compare(a.Name, b.Name)
	})
	return containers, nil
}

// FindContainer matches target against container names first, then ID prefixes.
func (cm *ContainerManager) FindContainer(target string) (*domain.Container, error) {
	containers, err := cm.ListContainers()
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		if c.Name == target {
			return c, nil
		}
	}
	for _, c := range containers {
		if target != "" && strings.HasPrefix(c.ID, target) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoContainer, target)
}

// ExecCommand executes a command in container
func (cm *ContainerManager) ExecCommand(container *domain.Container, cmd []string) error {
	if container.Namespace == nil {
		return fmt.Errorf("container has no namespace")
	}

	cm.logger.Debug("exec", "container", container.Name, "cmd", strings.Join(cmd, " "))
	if err := container.Exec(cmd); err != nil {
		return fmt.Errorf("exec command: %w", err)
	}
	return nil
}

// DeleteContainer removes a container's network resources and metadata.
// Resource failures are logged; the namespace and metadata are always attempted.
func (cm *ContainerManager) DeleteContainer(ctx context.Context, container *domain.Container) error {
	cm.logger.Debug("deleting container", "name", container.Name, "id", container.ShortID())

	for _, veth := range container.Veths {
		if err := veth.Delete(); err != nil {
			cm.logger.Warn("failed to delete veth", "name", veth.Name, "err", err)
		}
	}

	for _, bridge := range container.Bridges {
		if err := bridge.Delete(); err != nil {
			cm.logger.Warn("failed to delete bridge", "name", bridge.Name, "err", err)
		}
	}

	var errs []error
	if ns := container.Namespace; ns != nil {
		p, ok := cm.providers[ns.Backend]
		if !ok {
			errs = append(errs, fmt.Errorf("no provider for backend %q", ns.Backend))
		} else if err := p.Delete(ctx, ns); err != nil {
			errs = append(errs, fmt.Errorf("delete namespace: %w", err))
		}
	}

	if container.ID != "" {
		if err := cm.repos.ContainerRepo.Delete(container.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete metadata: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Cleanup deletes every persisted container and returns how many were removed.
func (cm *ContainerManager) Cleanup(ctx context.Context) (int, error) {
	containers, err := cm.ListContainers()
	if err != nil {
		return 0, err
	}

	var errs []error
	removed := 0
	for _, c := range containers {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := cm.DeleteContainer(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", c.Name, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
