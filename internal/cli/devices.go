// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ik5/audvox/backend"
)

func devicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List playback devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := a.listDevices(a.logger)
			if err != nil {
				return err
			}
			return printDevices(cmd.OutOrStdout(), devices)
		},
	}
}

// printDevices writes one row per device. The default device is starred.
func printDevices(w io.Writer, devices []backend.DeviceDetails) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "no playback devices")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tINDEX\tNAME\tCHANNELS\tRATE")
	for i, d := range devices {
		mark := ""
		if d.Role == backend.RoleDefault {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", mark, i, d.Name, d.Channels, d.SampleRate)
	}
	return tw.Flush()
}
