package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"topozoo/internal/render"
	"topozoo/internal/topology"
	"topozoo/internal/topos"
)

func (c *CLI) toposCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topos",
		Short: "List registered topologies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := newTable(cmd, "NAME", "SWITCHES", "HOSTS", "LINKS")
			for _, name := range topos.Names() {
				t, err := topos.New(name)
				if err != nil {
					return err
				}
				table.Append([]string{
					name,
					strconv.Itoa(len(t.Switches())),
					strconv.Itoa(len(t.Hosts())),
					strconv.Itoa(len(t.Links())),
				})
			}
			table.Render()
			return nil
		},
	}
}

func (c *CLI) showCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "show [topology]",
		Short: "Print the nodes and links of a topology",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := loadTopology(args, file)
			if err != nil {
				return err
			}

			nodes := newTable(cmd, "NAME", "TYPE", "LABEL", "PROTOCOLS", "DEGREE")
			for _, n := range t.Nodes() {
				nodes.Append([]string{n.Name, string(n.Type), n.Label, n.Protocols, strconv.Itoa(t.Degree(n.Name))})
			}
			nodes.Render()
			fmt.Fprintln(cmd.OutOrStdout())

			links := newTable(cmd, "A", "B", "BW (MBIT/S)")
			for _, l := range t.Links() {
				links.Append([]string{l.NodeA, l.NodeB, fmtBandwidth(l)})
			}
			links.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the topology from a .toml or .json file")
	return cmd
}

func (c *CLI) exportCommand() *cobra.Command {
	var (
		file     string
		format   string
		output   string
		switches bool
	)

	cmd := &cobra.Command{
		Use:   "export [topology]",
		Short: "Write a topology as JSON, TOML or DOT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := loadTopology(args, file)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "json":
				return topology.WriteJSON(w, t)
			case "toml":
				return topology.WriteTOML(w, t)
			case "dot":
				_, err := fmt.Fprint(w, render.ToDOT(t, render.Options{SwitchesOnly: switches, Labels: true}))
				return err
			default:
				return fmt.Errorf("unsupported format: %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the topology from a .toml or .json file")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, toml or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&switches, "switches-only", false, "omit hosts from DOT output")
	return cmd
}

func (c *CLI) renderCommand() *cobra.Command {
	var (
		file     string
		format   string
		output   string
		switches bool
		names    bool
	)

	cmd := &cobra.Command{
		Use:   "render [topology]",
		Short: "Draw a topology as SVG or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, source, err := loadTopology(args, file)
			if err != nil {
				return err
			}
			if output == "" {
				return fmt.Errorf("--output is required")
			}

			prog := newProgress(c.Logger)
			dot := render.ToDOT(t, render.Options{SwitchesOnly: switches, Labels: !names})

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			defer f.Close()

			if err := render.Render(cmd.Context(), dot, render.Format(format), f); err != nil {
				return err
			}
			prog.done("rendered", "topology", source, "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the topology from a .toml or .json file")
	cmd.Flags().StringVar(&format, "format", string(render.FormatSVG), "image format: svg or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&switches, "switches-only", false, "omit hosts")
	cmd.Flags().BoolVar(&names, "names", false, "label switches with node names instead of city codes")
	return cmd
}

// newTable returns a borderless table in the style of docker ps.
func newTable(cmd *cobra.Command, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("   ")
	table.SetNoWhiteSpace(true)
	return table
}

func fmtBandwidth(l topology.Link) string {
	if !l.HasBandwidth() {
		return "-"
	}
	return strconv.FormatFloat(l.Bandwidth, 'f', -1, 64)
}
