package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// ServicePKIThreshold is the compliance percentage under which a service
// scores zero.
const ServicePKIThreshold = 75.0

// PKIWeights is the weighting of the composite GlobalPKI score.
type PKIWeights struct {
	Resolution         float64
	DeadlineCompliance float64
	Stability          float64
}

// DefaultPKIWeights returns the 0.4/0.4/0.2 business weighting.
func DefaultPKIWeights() PKIWeights {
	return PKIWeights{
		Resolution:         0.4,
		DeadlineCompliance: 0.4,
		Stability:          0.2,
	}
}

// Validate rejects weightings that could push GlobalPKI outside [0, 1].
func (w PKIWeights) Validate() error {
	if w.Resolution < 0 || w.DeadlineCompliance < 0 || w.Stability < 0 {
		return fmt.Errorf("pki weights must not be negative")
	}
	sum := w.Resolution + w.DeadlineCompliance + w.Stability
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("pki weights must sum to 1, got %g", sum)
	}
	return nil
}

// PKIStats is the derived performance summary of a ticket collection.
type PKIStats struct {
	ResolutionRate   float64
	DelaiRespectRate float64
	ReopenRate       float64
	GlobalPKI        float64
}

// PerfectPKI is the score of an empty collection.
func PerfectPKI() PKIStats {
	return PKIStats{
		ResolutionRate:   1,
		DelaiRespectRate: 1,
		ReopenRate:       0,
		GlobalPKI:        1,
	}
}

// ServicePKI is the per-service compliance score.
type ServicePKI struct {
	ServiceType    ServiceType
	PKI            float64
	TotalTickets   int
	TicketsOnTime  int
	BelowThreshold bool
}

// TechnicianPKI is one row of the technician leaderboard.
type TechnicianPKI struct {
	TechnicianID string
	TicketCount  int
	Stats        PKIStats
}

// Scorecard bundles the tunable constants of the PKI calculations.
// The zero value is not usable; start from DefaultScorecard.
type Scorecard struct {
	Weights          PKIWeights
	ServiceThreshold float64
	RollupYears      int
}

// DefaultScorecard returns the standard weights, the 75% service threshold
// and a five year yearly rollup.
func DefaultScorecard() Scorecard {
	return Scorecard{
		Weights:          DefaultPKIWeights(),
		ServiceThreshold: ServicePKIThreshold,
		RollupYears:      DefaultRollupYears,
	}
}

// CalculatePKI computes the statistics of tickets with the default weights.
func CalculatePKI(tickets []*Ticket) PKIStats {
	return DefaultPKIWeights().Calculate(tickets)
}

// CalculateServicePKI computes a service score with the default threshold.
func CalculateServicePKI(total, onTime int, serviceType ServiceType) ServicePKI {
	return DefaultScorecard().ServicePKI(total, onTime, serviceType)
}

// Calculate computes PKI statistics. Nil entries are skipped and missing
// flags count as false. The input is never modified.
func (w PKIWeights) Calculate(tickets []*Ticket) PKIStats {
	present := lo.Compact(tickets)
	if len(present) == 0 {
		return PerfectPKI()
	}

	closed := lo.Filter(present, func(t *Ticket, _ int) bool {
		return t.Status == StatusClosed
	})
	onTime := lo.CountBy(closed, func(t *Ticket) bool {
		return t.MetDeadline
	})
	reopened := lo.CountBy(present, func(t *Ticket) bool {
		return t.Reopened
	})

	return w.fromCounts(len(present), len(closed), onTime, reopened)
}

func (w PKIWeights) fromCounts(total, closed, onTime, reopened int) PKIStats {
	if total == 0 {
		return PerfectPKI()
	}

	stats := PKIStats{
		ResolutionRate:   ratioOr(closed, total, 1),
		DelaiRespectRate: ratioOr(onTime, closed, 1),
		ReopenRate:       ratioOr(reopened, total, 0),
	}
	global := w.Resolution*stats.ResolutionRate +
		w.DeadlineCompliance*stats.DelaiRespectRate +
		w.Stability*(1-stats.ReopenRate)
	stats.GlobalPKI = clampUnit(global)
	return stats
}

// Calculate computes PKI statistics with the scorecard's weights.
func (s Scorecard) Calculate(tickets []*Ticket) PKIStats {
	return s.Weights.Calculate(tickets)
}

// ServicePKI computes onTime/total as a percentage. Scores below the
// threshold are reported as 0.
func (s Scorecard) ServicePKI(total, onTime int, serviceType ServiceType) ServicePKI {
	result := ServicePKI{
		ServiceType:   serviceType,
		TotalTickets:  total,
		TicketsOnTime: onTime,
	}
	if total == 0 {
		return result
	}

	raw := float64(onTime) / float64(total) * 100
	if raw < s.ServiceThreshold {
		result.BelowThreshold = true
		return result
	}
	result.PKI = raw
	return result
}

// ServiceBreakdown scores every service type from its closed tickets.
func (s Scorecard) ServiceBreakdown(tickets []*Ticket) []ServicePKI {
	closedByService := lo.GroupBy(
		lo.Filter(lo.Compact(tickets), func(t *Ticket, _ int) bool {
			return t.Status == StatusClosed
		}),
		func(t *Ticket) ServiceType { return t.ServiceType },
	)

	results := make([]ServicePKI, 0, len(ServiceTypes))
	for _, service := range ServiceTypes {
		closed := closedByService[service]
		onTime := lo.CountBy(closed, func(t *Ticket) bool { return t.MetDeadline })
		results = append(results, s.ServicePKI(len(closed), onTime, service))
	}
	return results
}

// ByTechnician groups tickets by technician and scores each group, best
// GlobalPKI first. Unassigned tickets are grouped under an empty ID.
func (s Scorecard) ByTechnician(tickets []*Ticket) []TechnicianPKI {
	groups := lo.GroupBy(lo.Compact(tickets), func(t *Ticket) string {
		return t.TechnicianID
	})

	rows := make([]TechnicianPKI, 0, len(groups))
	for id, group := range groups {
		rows = append(rows, TechnicianPKI{
			TechnicianID: id,
			TicketCount:  len(group),
			Stats:        s.Weights.Calculate(group),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Stats.GlobalPKI != rows[j].Stats.GlobalPKI {
			return rows[i].Stats.GlobalPKI > rows[j].Stats.GlobalPKI
		}
		return rows[i].TechnicianID < rows[j].TechnicianID
	})
	return rows
}

func ratioOr(numerator, denominator int, whenEmpty float64) float64 {
	if denominator == 0 {
		return whenEmpty
	}
	return float64(numerator) / float64(denominator)
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
