package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/timmy/rawgdex/internal/catalog"
)

// NewFeedsCmd lists the feed descriptors.
func NewFeedsCmd() *cobra.Command {
	var gamesOnly bool

	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "List the available feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tITEMS\tPAGE SIZE\tFILTERS")
			for _, d := range catalog.Descriptors() {
				if gamesOnly && d.Items != catalog.ItemGames {
					continue
				}
				filters := strings.Join(d.Filters, ",")
				if filters == "" {
					filters = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.Items, d.PageSize, filters)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&gamesOnly, "games", false, "only feeds usable as tabs")
	return cmd
}
