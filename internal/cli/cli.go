// Package cli implements the topozoo command-line interface.
//
// Catalogue commands (topos, show, export, render) work on topology
// descriptors only and need no privileges. Emulation commands (run, ls,
// exec, attach, rm, cleanup) create or inspect network namespaces and
// must run as root.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"topozoo/internal/config"
	"topozoo/internal/container/docker"
	"topozoo/internal/container/domain"
	"topozoo/internal/container/manager"
	"topozoo/internal/container/repository"
	"topozoo/internal/topology"
	"topozoo/internal/topos"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out        io.Writer
	verbose    bool
	configPath string
}

// New creates a CLI logging to logw and printing command output to out.
func New(out, logw io.Writer) *CLI {
	return &CLI{
		Logger: newLogger(logw, LogInfo),
		out:    out,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "topozoo",
		Short:         "topozoo catalogues network topologies and emulates them with namespaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(LogDebug)
			}
		},
	}

	root.SetOut(c.out)
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")

	root.AddCommand(c.toposCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.execCommand())
	root.AddCommand(c.attachCommand())
	root.AddCommand(c.removeCommand())
	root.AddCommand(c.cleanupCommand())

	return root
}

func (c *CLI) loadConfig() (config.Config, error) {
	path := config.Resolve(c.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	c.Logger.Debug("config loaded", "path", path, "state_dir", cfg.StateDir, "hosts", cfg.Hosts.Backend)
	return cfg, nil
}

// loadTopology returns the registered topology name, or the file when one is given.
func loadTopology(args []string, file string) (*topology.Topology, string, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, "", fmt.Errorf("give either a topology name or --file, not both")
	case file != "":
		t, err := topology.LoadFile(file)
		return t, file, err
	case len(args) == 1:
		t, err := topos.New(args[0])
		return t, args[0], err
	default:
		return nil, "", fmt.Errorf("a topology name or --file is required")
	}
}

// env bundles what the emulation commands need.
type env struct {
	cfg    config.Config
	cm     *manager.ContainerManager
	docker *docker.Runtime
}

func (e *env) Close() {
	if e.docker != nil {
		e.docker.Close()
	}
}

func (c *CLI) newEnv(context.Context) (*env, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	repos, err := repository.InitializeRepositories(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize repositories: %w", err)
	}

	e := &env{cfg: cfg}
	opts := []manager.Option{manager.WithShaping(cfg.Links.Shape)}
	if cfg.Hosts.Backend == config.BackendDocker {
		rt, err := docker.New(cfg.Hosts.Image, c.Logger)
		if err != nil {
			return nil, err
		}
		e.docker = rt
		opts = append(opts, manager.WithHostProvider(domain.BackendDocker, rt))
	}

	e.cm = manager.NewContainerManager(repos, manager.NetnsProvider{Dir: cfg.NetnsDir}, c.Logger, opts...)
	return e, nil
}
