package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	log "github.com/echocat/slf4g"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func deviceCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device",
		Aliases: []string{"devices"},
		Short:   "Manage virtual Hue lights",
	}

	cmd.AddCommand(deviceCreateCmd(o))
	cmd.AddCommand(deviceListCmd(o))
	cmd.AddCommand(deviceShowCmd(o))
	cmd.AddCommand(deviceUpdateCmd(o))
	cmd.AddCommand(deviceDeleteCmd(o))

	return cmd
}

func deviceCreateCmd(o *options) *cobra.Command {
	var name, entity string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a virtual light, optionally linked to an entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			d, err := c.CreateDevice(cmd.Context(), name, entity)
			if err != nil {
				return fmt.Errorf("failed to create device: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created light %s: %s\n", okMark, idStyle.Sprint(d.HueID), d.Name)
			printLink(out, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name shown to Hue clients")
	cmd.Flags().StringVar(&entity, "entity", "", "Entity to link, e.g. light.kitchen")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func deviceListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all virtual lights",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			devices, err := c.Devices(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENTITY\tCAPABILITY\tLAST ACCESS")
			for _, d := range devices {
				entity := d.EntityID
				if entity == "" {
					entity = dimStyle.Sprint("(unlinked)")
				}
				access := "-"
				if d.LastAccessedAt != nil {
					access = d.LastAccessedAt.Local().Format("2006-01-02 15:04:05")
					if d.LastAccessedBy != "" {
						access += " by " + d.LastAccessedBy
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.HueID, d.Name, entity, d.Capability, access)

				log.With("id", d.HueID).
					With("name", d.Name).
					With("entity", d.EntityID).
					With("capability", d.Capability).
					Info("Listed device.")
			}
			return w.Flush()
		},
	}
}

func deviceShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one virtual light",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			d, err := c.Device(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", idStyle.Sprint(d.HueID), d.Name)
			fmt.Fprintf(out, "  Unique id:  %s\n", d.UniqueID)
			fmt.Fprintf(out, "  Capability: %s\n", d.Capability)
			printLink(out, d)
			if d.Scale != nil {
				fmt.Fprintf(out, "  Scale:      to hue %q, to native %q\n", d.Scale.ToHue, d.Scale.ToNative)
			}
			fmt.Fprintf(out, "  Created:    %s\n", d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "  Modified:   %s\n", d.ModifiedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func deviceUpdateCmd(o *options) *cobra.Command {
	var (
		name, entity, toHue, toNative string
		unlink, resetScale            bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename, relink or rescale a virtual light",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				changes["name"] = name
			}
			switch {
			case unlink && flags.Changed("entity"):
				return errors.New("--entity and --unlink cannot be combined")
			case unlink:
				changes["entity_id"] = nil
			case flags.Changed("entity"):
				changes["entity_id"] = entity
			}
			switch {
			case resetScale && (flags.Changed("to-hue") || flags.Changed("to-native")):
				return errors.New("--reset-scale cannot be combined with --to-hue or --to-native")
			case resetScale:
				changes["scale"] = nil
			case flags.Changed("to-hue") || flags.Changed("to-native"):
				changes["scale"] = map[string]string{"to_hue": toHue, "to_native": toNative}
			}
			if len(changes) == 0 {
				return errors.New("nothing to update")
			}

			c, err := o.client()
			if err != nil {
				return err
			}
			d, err := c.UpdateDevice(cmd.Context(), args[0], changes)
			if err != nil {
				return fmt.Errorf("failed to update device %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Updated light %s: %s\n", okMark, idStyle.Sprint(d.HueID), d.Name)
			printLink(out, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&entity, "entity", "", "Entity to link")
	cmd.Flags().BoolVar(&unlink, "unlink", false, "Remove the entity link")
	cmd.Flags().StringVar(&toHue, "to-hue", "", "Formula over x from native level to Hue brightness")
	cmd.Flags().StringVar(&toNative, "to-native", "", "Formula over x from Hue brightness to native level")
	cmd.Flags().BoolVar(&resetScale, "reset-scale", false, "Restore the default brightness scale")
	return cmd
}

func deviceDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a virtual light; its id is never reused",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			if err := c.DeleteDevice(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete device %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted light %s\n", okMark, idStyle.Sprint(args[0]))
			return nil
		},
	}
}

func printLink(out io.Writer, d *Device) {
	if d.EntityID == "" {
		fmt.Fprintf(out, "  Entity:     %s\n", color.New(color.FgYellow).Sprint("(unlinked)"))
		return
	}
	fmt.Fprintf(out, "  Entity:     %s\n", d.EntityID)
}
