package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
)

// DefaultRollupYears is the number of buckets in a yearly rollup.
const DefaultRollupYears = 5

// Granularity is the calendar period of a rollup bucket.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// IsValid checks if the granularity is one of the known values
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// ParseGranularity accepts any casing and surrounding whitespace.
func ParseGranularity(raw string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(raw)))
	if !g.IsValid() {
		return "", apperrors.ErrInvalidGranularity
	}
	return g, nil
}

// RollupBucket holds the counts of the tickets created in one period.
type RollupBucket struct {
	Label     string
	Start     time.Time
	End       time.Time // exclusive
	Total     int
	Resolved  int
	OnTime    int
	Reopened  int
	ByCause   map[CauseType]int
	ByService map[ServiceType]int
	PKI       PKIStats
}

// Period is a half-open calendar interval [Start, End).
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// Rollup buckets tickets with the default scorecard.
func Rollup(tickets []*Ticket, granularity Granularity, reference time.Time) ([]RollupBucket, error) {
	return DefaultScorecard().Rollup(tickets, granularity, reference)
}

// RollupWindow returns the overall interval covered by a rollup, so callers
// can fetch only the tickets that can land in a bucket.
func (s Scorecard) RollupWindow(granularity Granularity, reference time.Time) (time.Time, time.Time, error) {
	periods, err := s.Periods(granularity, reference)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return periods[0].Start, periods[len(periods)-1].End, nil
}

// Periods lists the calendar periods of a rollup in ascending order.
// Boundaries are midnight in the reference time's location.
//
//   - day:   every day of the reference month
//   - week:  every ISO week (Monday start) overlapping the reference month
//   - month: the twelve months of the reference year
//   - year:  the last RollupYears years ending with the reference year
func (s Scorecard) Periods(granularity Granularity, reference time.Time) ([]Period, error) {
	loc := reference.Location()
	year, month, _ := reference.Date()

	var periods []Period
	switch granularity {
	case GranularityDay:
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
		for day := 1; day <= last; day++ {
			start := time.Date(year, month, day, 0, 0, 0, 0, loc)
			periods = append(periods, Period{
				Label: start.Format("2006-01-02"),
				Start: start,
				End:   time.Date(year, month, day+1, 0, 0, 0, 0, loc),
			})
		}

	case GranularityWeek:
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		monthEnd := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
		start := startOfISOWeek(monthStart)
		for start.Before(monthEnd) {
			y, m, d := start.Date()
			end := time.Date(y, m, d+7, 0, 0, 0, 0, loc)
			isoYear, isoWeek := start.ISOWeek()
			periods = append(periods, Period{
				Label: fmt.Sprintf("%d-W%02d", isoYear, isoWeek),
				Start: start,
				End:   end,
			})
			start = end
		}

	case GranularityMonth:
		for m := time.January; m <= time.December; m++ {
			start := time.Date(year, m, 1, 0, 0, 0, 0, loc)
			periods = append(periods, Period{
				Label: start.Format("2006-01"),
				Start: start,
				End:   time.Date(year, m+1, 1, 0, 0, 0, 0, loc),
			})
		}

	case GranularityYear:
		years := s.RollupYears
		if years <= 0 {
			years = DefaultRollupYears
		}
		for y := year - years + 1; y <= year; y++ {
			periods = append(periods, Period{
				Label: strconv.Itoa(y),
				Start: time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
				End:   time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc),
			})
		}

	default:
		return nil, apperrors.ErrInvalidGranularity
	}

	return periods, nil
}

// Rollup partitions tickets by creation time into the periods of the given
// granularity. Every period is present even when empty. Tickets created
// outside the overall window are ignored.
func (s Scorecard) Rollup(tickets []*Ticket, granularity Granularity, reference time.Time) ([]RollupBucket, error) {
	periods, err := s.Periods(granularity, reference)
	if err != nil {
		return nil, err
	}

	members := make([][]*Ticket, len(periods))
	for _, t := range tickets {
		if t == nil {
			continue
		}
		idx := sort.Search(len(periods), func(i int) bool {
			return periods[i].End.After(t.CreatedAt)
		})
		if idx == len(periods) || t.CreatedAt.Before(periods[idx].Start) {
			continue
		}
		members[idx] = append(members[idx], t)
	}

	buckets := make([]RollupBucket, len(periods))
	for i, p := range periods {
		buckets[i] = s.bucket(p, members[i])
	}
	return buckets, nil
}

func (s Scorecard) bucket(p Period, tickets []*Ticket) RollupBucket {
	b := RollupBucket{
		Label:     p.Label,
		Start:     p.Start,
		End:       p.End,
		Total:     len(tickets),
		ByCause:   make(map[CauseType]int, len(CauseTypes)),
		ByService: make(map[ServiceType]int, len(ServiceTypes)),
	}
	for _, c := range CauseTypes {
		b.ByCause[c] = 0
	}
	for _, svc := range ServiceTypes {
		b.ByService[svc] = 0
	}

	for _, t := range tickets {
		if t.Status == StatusClosed {
			b.Resolved++
			if t.MetDeadline {
				b.OnTime++
			}
		}
		if t.Reopened {
			b.Reopened++
		}
		if t.CauseType.IsValid() {
			b.ByCause[t.CauseType]++
		}
		if t.ServiceType.IsValid() {
			b.ByService[t.ServiceType]++
		}
	}

	b.PKI = s.Weights.fromCounts(b.Total, b.Resolved, b.OnTime, b.Reopened)
	return b
}

func startOfISOWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
