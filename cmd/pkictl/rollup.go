package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
)

func newRollupCmd(opts *options) *cobra.Command {
	var (
		granularity string
		reference   string
	)

	cmd := &cobra.Command{
		Use:   "rollup <file>",
		Short: "Bucket tickets by day, week, month or year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := domain.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			loc, err := opts.location()
			if err != nil {
				return err
			}
			ref := opts.now().In(loc)
			if reference != "" {
				ref, err = time.ParseInLocation(time.DateOnly, reference, loc)
				if err != nil {
					return fmt.Errorf("reference must be YYYY-MM-DD: %w", err)
				}
			}

			tickets, err := opts.loadTickets(args[0])
			if err != nil {
				return err
			}

			buckets, err := opts.scorecard.Rollup(tickets, g, ref)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), buckets)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tTOTAL\tRESOLVED\tON TIME\tREOPENED\tGLOBAL PKI\t")
			for _, b := range buckets {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\t\n",
					b.Label, b.Total, b.Resolved, b.OnTime, b.Reopened, percent(b.PKI.GlobalPKI))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&granularity, "granularity", string(domain.GranularityMonth), "day, week, month or year")
	cmd.Flags().StringVar(&reference, "reference", "", "reference date (YYYY-MM-DD), today when empty")
	return cmd
}
