// Package cli implements huectl, the command line client of the admin
// API of a running bridge.
package cli

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type options struct {
	addr    string
	timeout time.Duration
}

func (o *options) client() (*Client, error) {
	return NewClient(o.addr, o.timeout)
}

// RootCmd returns the huectl command tree.
func RootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "huectl",
		Short:         "Manage the devices of a running Hue bridge emulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addr := os.Getenv("HUE_ADMIN_ADDR")
	if addr == "" {
		addr = DefaultAddr
	}
	cmd.PersistentFlags().StringVar(&o.addr, "addr", addr, "Address of the bridge (env HUE_ADMIN_ADDR)")
	cmd.PersistentFlags().DurationVar(&o.timeout, "timeout", 10*time.Second, "Timeout of each request")

	cmd.AddCommand(deviceCmd(o))
	cmd.AddCommand(reloadCmd(o))
	cmd.AddCommand(statsCmd(o))
	cmd.AddCommand(entitiesCmd(o))

	return cmd
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	idStyle  = color.New(color.FgCyan)
	dimStyle = color.New(color.FgHiBlack)
)
