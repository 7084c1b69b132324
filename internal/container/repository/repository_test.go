package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/config"
	"topozoo/internal/container/domain"
)

func newRepos(t *testing.T) (*Repositories, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.StateDir = t.TempDir()
	repos, err := InitializeRepositories(cfg)
	require.NoError(t, err)
	return repos, cfg
}

func TestStore(t *testing.T) {
	repos, cfg := newRepos(t)
	store := repos.NamespaceRepo

	ns := &domain.Namespace{Name: "h1", Path: "/var/run/netns/h1", Backend: domain.BackendNetns}
	require.NoError(t, store.Save(ns))
	require.Len(t, ns.ID, 32)

	got, err := store.FindByID(ns.ID)
	require.NoError(t, err)
	assert.Equal(t, ns, got)

	got, err = store.FindByName("h1")
	require.NoError(t, err)
	assert.Equal(t, ns.ID, got.ID)

	_, err = store.FindByName("h2")
	assert.ErrorIs(t, err, ErrNotFound)

	// saving again keeps the ID
	id := ns.ID
	ns.Path = "/proc/42/ns/net"
	require.NoError(t, store.Save(ns))
	assert.Equal(t, id, ns.ID)

	// stray files are ignored by List
	require.NoError(t, os.WriteFile(filepath.Join(cfg.NamespacesDir(), "junk.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.NamespacesDir(), "notes.txt"), []byte("x"), 0o644))
	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "/proc/42/ns/net", all[0].Path)

	require.NoError(t, store.Delete(id))
	_, err = store.FindByID(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(id), ErrNotFound)
}

func TestContainerRepositoryCascades(t *testing.T) {
	repos, _ := newRepos(t)

	ns := &domain.Namespace{Name: "s1", Path: "/var/run/netns/s1", Backend: domain.BackendNetns}
	c := domain.NewContainer("s1", domain.KindSwitch, ns)
	c.Bridges = append(c.Bridges, domain.Bridge{Name: "br0", Namespace: ns, Protocols: "OpenFlow13"})
	c.Veths = append(c.Veths, domain.Veth{Name: "s1-eth1", PeerName: "h1-eth0", NamespaceA: ns, Bandwidth: 10})

	require.NoError(t, repos.ContainerRepo.Save(c))
	require.NotEmpty(t, c.ID)
	require.NotEmpty(t, c.Namespace.ID)
	require.NotEmpty(t, c.Bridges[0].ID)
	require.NotEmpty(t, c.Veths[0].ID)

	br, err := repos.BridgeRepo.FindByName("br0")
	require.NoError(t, err)
	assert.Equal(t, "OpenFlow13", br.Protocols)

	got, err := repos.ContainerRepo.FindByName("s1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindSwitch, got.Kind)
	assert.Equal(t, 10.0, got.Veths[0].Bandwidth)

	// an owned record removed out of band does not block deletion
	require.NoError(t, repos.VethRepo.Delete(c.Veths[0].ID))
	require.NoError(t, repos.ContainerRepo.Delete(c.ID))

	for _, list := range []func() (int, error){
		func() (int, error) { l, err := repos.ContainerRepo.List(); return len(l), err },
		func() (int, error) { l, err := repos.NamespaceRepo.List(); return len(l), err },
		func() (int, error) { l, err := repos.BridgeRepo.List(); return len(l), err },
		func() (int, error) { l, err := repos.VethRepo.List(); return len(l), err },
	} {
		n, err := list()
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	assert.ErrorIs(t, repos.ContainerRepo.Delete(c.ID), ErrNotFound)
}
