package manager

import (
	"context"

	"topozoo/internal/container/domain"
)

// NamespaceProvider creates and destroys the network namespace behind a node.
type NamespaceProvider interface {
	Create(ctx context.Context, name string) (*domain.Namespace, error)
	Delete(ctx context.Context, ns *domain.Namespace) error
}

// NetnsProvider bind mounts plain named namespaces under Dir.
type NetnsProvider struct {
	Dir string
}

// Create bind mounts a new namespace at Dir/name.
func (p NetnsProvider) Create(_ context.Context, name string) (*domain.Namespace, error) {
	return domain.CreateNamespace(p.Dir, name)
}

func (p NetnsProvider) Delete(_ context.Context, ns *domain.Namespace) error {
	return ns.Delete()
}
