package repository

import (
	"errors"
	"fmt"

	"topozoo/internal/config"
	"topozoo/internal/container/domain"
)

type (
	NamespaceRepository = Store[domain.Namespace, *domain.Namespace]
	BridgeRepository    = Store[domain.Bridge, *domain.Bridge]
	VethRepository      = Store[domain.Veth, *domain.Veth]
)

// Repositories holds all repository instances
type Repositories struct {
	NamespaceRepo *NamespaceRepository
	BridgeRepo    *BridgeRepository
	VethRepo      *VethRepository
	ContainerRepo *ContainerRepository
}

// InitializeRepositories creates the metadata directories under cfg.StateDir.
func InitializeRepositories(cfg config.Config) (*Repositories, error) {
	namespaceRepo, err := NewStore[domain.Namespace](cfg.NamespacesDir())
	if err != nil {
		return nil, fmt.Errorf("namespace repository: %w", err)
	}
	bridgeRepo, err := NewStore[domain.Bridge](cfg.BridgesDir())
	if err != nil {
		return nil, fmt.Errorf("bridge repository: %w", err)
	}
	vethRepo, err := NewStore[domain.Veth](cfg.VethsDir())
	if err != nil {
		return nil, fmt.Errorf("veth repository: %w", err)
	}
	containers, err := NewStore[domain.Container](cfg.ContainersDir())
	if err != nil {
		return nil, fmt.Errorf("container repository: %w", err)
	}

	return &Repositories{
		NamespaceRepo: namespaceRepo,
		BridgeRepo:    bridgeRepo,
		VethRepo:      vethRepo,
		ContainerRepo: &ContainerRepository{
			Store:         containers,
			namespaceRepo: namespaceRepo,
			bridgeRepo:    bridgeRepo,
			vethRepo:      vethRepo,
		},
	}, nil
}

// ContainerRepository saves and deletes a container together with the
// namespace, bridges and veths it owns.
type ContainerRepository struct {
	*Store[domain.Container, *domain.Container]
	namespaceRepo *NamespaceRepository
	bridgeRepo    *BridgeRepository
	vethRepo      *VethRepository
}

// Save writes the container after its namespace, bridges and veths.
func (cr *ContainerRepository) Save(container *domain.Container) error {
	if container.Namespace != nil {
		if err := cr.namespaceRepo.Save(container.Namespace); err != nil {
			return fmt.Errorf("save namespace: %w", err)
		}
	}

	for i := range container.Bridges {
		if err := cr.bridgeRepo.Save(&container.Bridges[i]); err != nil {
			return fmt.Errorf("save bridge %s: %w", container.Bridges[i].Name, err)
		}
	}

	for i := range container.Veths {
		if err := cr.vethRepo.Save(&container.Veths[i]); err != nil {
			return fmt.Errorf("save veth %s: %w", container.Veths[i].Name, err)
		}
	}

	return cr.Store.Save(container)
}

// Delete removes the container metadata and everything it owns. Owned
// records that are already gone are ignored.
func (cr *ContainerRepository) Delete(containerID string) error {
	container, err := cr.FindByID(containerID)
	if err != nil {
		return err
	}

	var errs []error
	if container.Namespace != nil {
		errs = append(errs, ignoreNotFound(cr.namespaceRepo.Delete(container.Namespace.ID)))
	}
	for _, bridge := range container.Bridges {
		errs = append(errs, ignoreNotFound(cr.bridgeRepo.Delete(bridge.ID)))
	}
	for _, veth := range container.Veths {
		errs = append(errs, ignoreNotFound(cr.vethRepo.Delete(veth.ID)))
	}
	errs = append(errs, cr.Store.Delete(containerID))

	return errors.Join(errs...)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
