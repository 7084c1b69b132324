package cli

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"topozoo/internal/topology"
)

func (c *CLI) runCommand() *cobra.Command {
	var (
		file string
		keep bool
	)

	cmd := &cobra.Command{
		Use:   "run [topology]",
		Short: "Emulate a topology with network namespaces",
		Long: `Run creates a namespace per switch and host, a bridge in every switch and
a veth pair per link. Without --keep it blocks until interrupted and then
removes everything it created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, source, err := loadTopology(args, file)
			if err != nil {
				return err
			}

			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			base, err := e.cfg.IPBase()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			prog := newProgress(c.Logger)
			builder := topology.NewBuilder(e.cm, c.Logger, topology.WithIPBase(base))

			if err := builder.Build(ctx, t); err != nil {
				if !keep {
					// the build context may already be cancelled
					if terr := builder.Teardown(context.WithoutCancel(ctx)); terr != nil {
						err = errors.Join(err, terr)
					}
				}
				return err
			}
			prog.done("topology running", "topology", source)

			if err := c.printAddresses(cmd, t, base); err != nil {
				return err
			}

			if keep {
				c.Logger.Info("keeping topology, remove it with cleanup")
				return nil
			}

			c.Logger.Info("press Ctrl-C to stop")
			<-ctx.Done()

			prog = newProgress(c.Logger)
			if err := builder.Teardown(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			prog.done("stopped", "topology", source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the topology from a .toml or .json file")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the emulation running and exit")
	return cmd
}

// printAddresses lists the first address of every host.
func (c *CLI) printAddresses(cmd *cobra.Command, t *topology.Topology, base netip.Prefix) error {
	links, err := topology.AssignAddresses(t, base)
	if err != nil {
		return err
	}

	table := newTable(cmd, "HOST", "PEER", "ADDRESS", "BW (MBIT/S)")
	seen := make(map[string]bool)
	for _, l := range links {
		for _, end := range []struct{ host, peer, ip string }{
			{l.NodeA, l.NodeB, l.IPA},
			{l.NodeB, l.NodeA, l.IPB},
		} {
			n, ok := t.Node(end.host)
			if !ok || n.Type != topology.NodeHost || seen[end.host] {
				continue
			}
			seen[end.host] = true
			table.Append([]string{end.host, end.peer, orDash(end.ip), fmtBandwidth(l)})
		}
	}
	table.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d hosts\n", len(seen))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
