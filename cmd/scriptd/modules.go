package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModulesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List modules of the selected engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := root.lister()()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if root.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(mods)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSIZE")
			for _, m := range mods {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", m.ID, m.Kind, m.Size)
			}
			return tw.Flush()
		},
	}
}
