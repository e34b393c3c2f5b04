package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/de-tools/counter-atlas/pkg/registry"
)

func NewTypesCmd() *cobra.Command {
	var release int
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List supported report types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tRELEASE\tNAME\tMETRICS")
			for _, rt := range registry.All() {
				if release != 0 && rt.Release != release {
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", rt.Code, rt.Release, rt.Description, strings.Join(rt.Metrics, "; "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&release, "release", 0, "Only list types of this COUNTER release (4 or 5)")
	return cmd
}
