package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topozoo/internal/container/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
state_dir = "/tmp/topozoo"

[hosts]
backend = "docker"
image = "busybox:1.36"

[links]
shape = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/topozoo", cfg.StateDir)
	assert.Equal(t, "/var/run/netns", cfg.NetnsDir)
	assert.Equal(t, BackendDocker, cfg.Hosts.Backend)
	assert.Equal(t, "busybox:1.36", cfg.Hosts.Image)
	assert.False(t, cfg.Links.Shape)
	assert.Equal(t, "10.0.0.0/8", cfg.Links.IPBase)
	assert.Equal(t, "/tmp/topozoo/veths", cfg.VethsDir())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "UnknownKey", body: "colour = \"red\"\n", want: "unknown key"},
		{name: "UnknownBackend", body: "[hosts]\nbackend = \"lxc\"\n", want: "unknown hosts.backend"},
		{name: "RelativeState", body: "state_dir = \"state\"\n", want: "state_dir must be absolute"},
		{name: "BadIPBase", body: "[links]\nip_base = \"10.0.0.0\"\n", want: "links.ip_base"},
		{name: "Syntax", body: "state_dir = \n", want: "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Resolve(""))

	t.Setenv(EnvPath, "/env/config.toml")
	assert.Equal(t, "/env/config.toml", Resolve(""))
	assert.Equal(t, "/flag/config.toml", Resolve("/flag/config.toml"))
}

// The configured backend is stored on namespaces and later selects the
// provider that deletes them, so the names must agree.
func TestBackendNamesMatchNamespaces(t *testing.T) {
	path := writeConfig(t, "[hosts]\nbackend = \"docker\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, domain.BackendDocker, cfg.Hosts.Backend)
	assert.Equal(t, domain.BackendNetns, Default().Hosts.Backend)
}
