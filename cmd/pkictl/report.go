package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
)

func newReportCmd(opts *options) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Print the dashboard overview of a ticket spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tickets, err := opts.loadTickets(args[0])
			if err != nil {
				return err
			}

			if service != "" {
				serviceType, err := domain.ParseServiceType(service)
				if err != nil {
					return err
				}
				tickets = filterByService(tickets, serviceType)
			}

			overview := opts.scorecard.Overview(tickets, opts.now().UTC())
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), overview)
			}
			return printOverview(cmd, overview)
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "only score tickets of this service type")
	return cmd
}

func filterByService(tickets []*domain.Ticket, serviceType domain.ServiceType) []*domain.Ticket {
	var out []*domain.Ticket
	for _, t := range tickets {
		if t.ServiceType == serviceType {
			out = append(out, t)
		}
	}
	return out
}

func printOverview(cmd *cobra.Command, o domain.PKIOverview) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Tickets\t%d\n", o.TicketCount)
	for _, c := range o.StatusCounts {
		fmt.Fprintf(w, "  %s\t%d\n", c.Status, c.Count)
	}
	fmt.Fprintf(w, "MTTR (hours)\t%.1f\n", o.MTTRHours)
	fmt.Fprintf(w, "Resolution\t%s\n", percent(o.PKI.ResolutionRate))
	fmt.Fprintf(w, "On time\t%s\n", percent(o.PKI.DelaiRespectRate))
	fmt.Fprintf(w, "Reopened\t%s\n", percent(o.PKI.ReopenRate))
	fmt.Fprintf(w, "Global PKI\t%s\n", percent(o.PKI.GlobalPKI))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "SERVICE\tTICKETS\tON TIME\tPKI\t")
	for _, s := range o.Services {
		flag := ""
		if s.BelowThreshold {
			flag = "below threshold"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%s\n", s.ServiceType, s.TotalTickets, s.TicketsOnTime, s.PKI, flag)
	}

	if len(o.Technicians) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TECHNICIAN\tTICKETS\tGLOBAL PKI\t")
		for _, t := range o.Technicians {
			fmt.Fprintf(w, "%s\t%d\t%s\t\n", t.TechnicianID, t.TicketCount, percent(t.Stats.GlobalPKI))
		}
	}

	return w.Flush()
}
