package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

func reloadCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the devices from storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			stats, err := c.Reload(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to reload: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Reloaded\n", okMark)
			printStats(out, stats)
			return nil
		},
	}
}

func statsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show device counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func entitiesCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the entities devices can be linked to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			entities, err := c.Entities(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entities) == 0 {
				fmt.Fprintln(out, "No entities.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tNAME")
			for _, e := range entities {
				fmt.Fprintf(w, "%s\t%s\n", e.EntityID, e.Name)
			}
			return w.Flush()
		},
	}
}

func printStats(out io.Writer, s model.Stats) {
	fmt.Fprintf(out, "  Devices: %d (%d linked)\n", s.Devices, s.Linked)
	fmt.Fprintf(out, "  Retired: %d\n", s.Retired)
	fmt.Fprintf(out, "  Next id: %s\n", s.NextID)
}
