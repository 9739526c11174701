package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
)

func newServiceCmd(opts *options) *cobra.Command {
	var total, onTime int

	cmd := &cobra.Command{
		Use:   "service <service-type>",
		Short: "Score a service from its ticket counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceType, err := domain.ParseServiceType(args[0])
			if err != nil {
				return err
			}
			if total < 0 || onTime < 0 {
				return fmt.Errorf("--total and --on-time must not be negative")
			}

			result := opts.scorecard.ServicePKI(total, onTime, serviceType)
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			line := fmt.Sprintf("%s: %.1f (%d/%d on time)", result.ServiceType, result.PKI, result.TicketsOnTime, result.TotalTickets)
			if result.BelowThreshold {
				line += ", below threshold"
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
			return err
		},
	}

	cmd.Flags().IntVar(&total, "total", 0, "number of tickets")
	cmd.Flags().IntVar(&onTime, "on-time", 0, "number of tickets resolved within the deadline")
	return cmd
}
