package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List emulated nodes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			containers, err := e.cm.ListContainers()
			if err != nil {
				return err
			}

			table := newTable(cmd, "CONTAINER ID", "NAME", "KIND", "NAMESPACE", "BRIDGES", "VETHS", "CREATED")
			for _, ct := range containers {
				namespace := "-"
				if ct.Namespace != nil {
					namespace = ct.Namespace.Name
					if ct.Namespace.ContainerID != "" {
						namespace += " (" + ct.Namespace.Backend + ")"
					}
				}
				table.Append([]string{
					ct.ShortID(),
					ct.Name,
					string(ct.Kind),
					namespace,
					strconv.Itoa(len(ct.Bridges)),
					strconv.Itoa(len(ct.Veths)),
					ct.CreatedAt,
				})
			}
			table.Render()
			return nil
		},
	}
}

func (c *CLI) execCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <container> <command> [args...]",
		Short: "Run a command inside a node's namespace",
		Example: `  topozoo exec h1 ip addr show
  topozoo exec h1 ping -c 3 10.0.0.2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			container, err := e.cm.FindContainer(args[0])
			if err != nil {
				return err
			}
			return e.cm.ExecCommand(container, args[1:])
		},
	}
}

func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <container>...",
		Aliases: []string{"remove"},
		Short:   "Remove emulated nodes",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			for _, target := range args {
				container, err := e.cm.FindContainer(target)
				if err != nil {
					return err
				}
				if err := e.cm.DeleteContainer(cmd.Context(), container); err != nil {
					return fmt.Errorf("delete %s: %w", container.Name, err)
				}
				c.Logger.Info("deleted", "name", container.Name, "id", container.ShortID())
			}
			return nil
		},
	}
}

func (c *CLI) cleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove every emulated node and leftover host container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			prog := newProgress(c.Logger)
			removed, err := e.cm.Cleanup(cmd.Context())
			if err != nil {
				c.Logger.Warn("cleanup incomplete", "removed", removed, "err", err)
			}

			if e.docker != nil {
				orphans, derr := e.docker.RemoveOrphans(cmd.Context())
				if derr != nil {
					c.Logger.Warn("failed to remove docker containers", "err", derr)
				} else if orphans > 0 {
					c.Logger.Info("removed docker containers", "count", orphans)
				}
			}

			if err != nil {
				return err
			}
			prog.done("cleanup complete", "removed", removed)
			return nil
		},
	}
}
