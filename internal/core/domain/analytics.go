package domain

import "time"

// StatusCount is the number of tickets in one status.
type StatusCount struct {
	Status TicketStatus
	Count  int
}

// PKIOverview is the dashboard summary of a ticket collection.
type PKIOverview struct {
	PKI          PKIStats
	Services     []ServicePKI
	Technicians  []TechnicianPKI
	StatusCounts []StatusCount
	TicketCount  int
	MTTRHours    float64
	GeneratedAt  time.Time
}

// Overview computes every dashboard figure in one pass over the tickets.
func (s Scorecard) Overview(tickets []*Ticket, now time.Time) PKIOverview {
	counts := map[TicketStatus]int{}
	var resolvedHours float64
	var resolved int
	total := 0

	for _, t := range tickets {
		if t == nil {
			continue
		}
		total++
		counts[t.Status]++
		if d, ok := t.ResolutionTime(); ok && t.IsClosed() {
			resolvedHours += d.Hours()
			resolved++
		}
	}

	overview := PKIOverview{
		PKI:         s.Calculate(tickets),
		Services:    s.ServiceBreakdown(tickets),
		Technicians: s.ByTechnician(tickets),
		TicketCount: total,
		GeneratedAt: now,
	}
	for _, status := range []TicketStatus{StatusInProgress, StatusClosed} {
		overview.StatusCounts = append(overview.StatusCounts, StatusCount{Status: status, Count: counts[status]})
	}
	if resolved > 0 {
		overview.MTTRHours = resolvedHours / float64(resolved)
	}
	return overview
}

// PKIByTechnician scores tickets per technician with the default scorecard.
func PKIByTechnician(tickets []*Ticket) []TechnicianPKI {
	return DefaultScorecard().ByTechnician(tickets)
}

// ServiceBreakdown scores every service type with the default scorecard.
func ServiceBreakdown(tickets []*Ticket) []ServicePKI {
	return DefaultScorecard().ServiceBreakdown(tickets)
}
