// Package config loads the topozoo runtime configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"topozoo/internal/container/domain"
)

const (
	// DefaultPath is read when neither --config nor TOPOZOO_CONFIG is set.
	DefaultPath = "/etc/topozoo/config.toml"

	// EnvPath names the environment variable that overrides DefaultPath.
	EnvPath = "TOPOZOO_CONFIG"
)

// Host backends accepted in [hosts] backend.
const (
	BackendNetns  = domain.BackendNetns
	BackendDocker = domain.BackendDocker
)

// Config is the runtime configuration shared by the emulation commands.
type Config struct {
	// StateDir holds the JSON metadata of created resources.
	StateDir string `toml:"state_dir"`
	// NetnsDir is where named network namespaces are bind mounted.
	NetnsDir string      `toml:"netns_dir"`
	Hosts    HostsConfig `toml:"hosts"`
	Links    LinksConfig `toml:"links"`
}

type HostsConfig struct {
	Backend string `toml:"backend"`
	Image   string `toml:"image"`
}

type LinksConfig struct {
	// Shape installs a token bucket filter on links that carry a bandwidth.
	Shape  bool   `toml:"shape"`
	IPBase string `toml:"ip_base"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		StateDir: "/var/lib/topozoo",
		NetnsDir: "/var/run/netns",
		Hosts: HostsConfig{
			Backend: BackendNetns,
			Image:   "alpine:3.20",
		},
		Links: LinksConfig{
			Shape:  true,
			IPBase: "10.0.0.0/8",
		},
	}
}

// Resolve picks the config path: the explicit flag, then the environment,
// then DefaultPath.
func Resolve(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parse config %s: unknown key %q", path, undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the backend, the directories and the IP base.
func (c Config) Validate() error {
	switch c.Hosts.Backend {
	case BackendNetns:
	case BackendDocker:
		if c.Hosts.Image == "" {
			return errors.New("hosts.image is required for the docker backend")
		}
	default:
		return fmt.Errorf("unknown hosts.backend %q", c.Hosts.Backend)
	}
	if !filepath.IsAbs(c.StateDir) {
		return fmt.Errorf("state_dir must be absolute: %q", c.StateDir)
	}
	if !filepath.IsAbs(c.NetnsDir) {
		return fmt.Errorf("netns_dir must be absolute: %q", c.NetnsDir)
	}
	if _, err := c.IPBase(); err != nil {
		return err
	}
	return nil
}

// IPBase parses links.ip_base.
func (c Config) IPBase() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(c.Links.IPBase)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("links.ip_base: %w", err)
	}
	return p, nil
}

func (c Config) ContainersDir() string { return filepath.Join(c.StateDir, "containers") }
func (c Config) NamespacesDir() string { return filepath.Join(c.StateDir, "namespaces") }
func (c Config) BridgesDir() string    { return filepath.Join(c.StateDir, "bridges") }
func (c Config) VethsDir() string      { return filepath.Join(c.StateDir, "veths") }
