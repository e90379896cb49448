package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) recountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Recompute employees_assigned for every client",
		Long: `Recompute the cached employees_assigned counter of every client from the
active assignments. Each client is recomputed independently; the command exits
with a non-zero status if any client failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := c.ops.RecomputeAllClientCounts(cmd.Context())
			if err != nil {
				return err
			}

			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(out, "CLIENT\tCOUNT\tERROR")
			for _, d := range summary.Details {
				if d.Err != nil {
					c.log.Warn("recount failed", zap.String("client_id", d.ClientID), zap.Error(d.Err))
					fmt.Fprintf(out, "%s\t-\t%v\n", d.ClientID, d.Err)
					continue
				}
				fmt.Fprintf(out, "%s\t%d\t\n", d.ClientID, d.Count)
			}
			if err := out.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "total=%d succeeded=%d failed=%d\n", summary.Total, summary.Succeeded, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", errRecountFailed, summary.Failed, summary.Total)
			}
			return nil
		},
	}
}

func (c *cli) recountClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount-client <client-id>",
		Short: "Recompute employees_assigned for one client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := c.ops.RecomputeClientCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s employees_assigned=%d\n", args[0], count)
			return nil
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show assignment statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.ops.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(out, "active assignments\t%d\n", stats.ActiveAssignments)
			fmt.Fprintf(out, "inactive assignments\t%d\n", stats.InactiveAssignments)
			fmt.Fprintf(out, "total assignments\t%d\n", stats.TotalAssignments)
			fmt.Fprintf(out, "employees on assignment\t%d\n", stats.DistinctEmployeesActive)
			fmt.Fprintf(out, "clients with assignments\t%d\n", stats.DistinctClientsActive)
			return out.Flush()
		},
	}
}
