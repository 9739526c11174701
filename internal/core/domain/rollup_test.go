package domain_test

import (
	"testing"
	"time"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketAt(id string, created time.Time, service domain.ServiceType, cause domain.CauseType, closed, onTime, reopened bool) *domain.Ticket {
	t := &domain.Ticket{
		ID:          id,
		ServiceType: service,
		CauseType:   cause,
		Status:      domain.StatusInProgress,
		CreatedAt:   created,
		Reopened:    reopened,
	}
	if closed {
		at := created.Add(time.Hour)
		t.Status = domain.StatusClosed
		t.ClosedAt = &at
		t.MetDeadline = onTime
	}
	return t
}

func TestParseGranularity(t *testing.T) {
	g, err := domain.ParseGranularity(" Week ")
	require.NoError(t, err)
	assert.Equal(t, domain.GranularityWeek, g)

	_, err = domain.ParseGranularity("quarter")
	assert.ErrorIs(t, err, apperrors.ErrInvalidGranularity)
}

func TestRollup_Periods(t *testing.T) {
	tests := []struct {
		name        string
		granularity domain.Granularity
		reference   time.Time
		wantCount   int
		firstLabel  string
		lastLabel   string
	}{
		{"days of a leap february", domain.GranularityDay, time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC), 29, "2024-02-01", "2024-02-29"},
		{"days of april", domain.GranularityDay, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), 30, "2024-04-01", "2024-04-30"},
		{"weeks overlapping january 2021", domain.GranularityWeek, time.Date(2021, 1, 15, 0, 0, 0, 0, time.UTC), 5, "2020-W53", "2021-W04"},
		{"weeks overlapping april 2024", domain.GranularityWeek, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), 5, "2024-W14", "2024-W18"},
		{"months of a year", domain.GranularityMonth, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 12, "2024-01", "2024-12"},
		{"last five years", domain.GranularityYear, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 5, "2020", "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets, err := domain.Rollup(nil, tt.granularity, tt.reference)
			require.NoError(t, err)
			require.Len(t, buckets, tt.wantCount)
			assert.Equal(t, tt.firstLabel, buckets[0].Label)
			assert.Equal(t, tt.lastLabel, buckets[len(buckets)-1].Label)

			for i, b := range buckets {
				assert.Zero(t, b.Total)
				assert.Equal(t, domain.PerfectPKI(), b.PKI)
				assert.True(t, b.Start.Before(b.End))
				if i > 0 {
					assert.Equal(t, buckets[i-1].End, b.Start, "buckets must be contiguous")
				}
			}
		})
	}
}

func TestRollup_WeeksStartOnMonday(t *testing.T) {
	buckets, err := domain.Rollup(nil, domain.GranularityWeek, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	for _, b := range buckets {
		assert.Equal(t, time.Monday, b.Start.Weekday())
	}
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), buckets[0].Start)
}

func TestRollup_Counts(t *testing.T) {
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tickets := []*domain.Ticket{
		ticketAt("1", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), domain.ServiceFibre, domain.CauseTechnique, true, true, false),
		ticketAt("2", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), domain.ServiceADSL, domain.CauseClient, true, false, true),
		ticketAt("3", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), domain.ServiceFixe, domain.CauseCasse, false, false, false),
		ticketAt("4", time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), domain.ServiceFibre, domain.CauseTechnique, true, true, false),
		ticketAt("5", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), domain.ServiceFibre, domain.CauseTechnique, true, true, false),
		nil,
	}

	buckets, err := domain.Rollup(tickets, domain.GranularityMonth, ref)
	require.NoError(t, err)
	require.Len(t, buckets, 12)

	jan := buckets[0]
	assert.Equal(t, "2024-01", jan.Label)
	assert.Equal(t, 2, jan.Total)
	assert.Equal(t, 2, jan.Resolved)
	assert.Equal(t, 1, jan.OnTime)
	assert.Equal(t, 1, jan.Reopened)
	assert.Equal(t, 1, jan.ByCause[domain.CauseTechnique])
	assert.Equal(t, 1, jan.ByCause[domain.CauseClient])
	assert.Equal(t, 0, jan.ByCause[domain.CauseCasse])
	assert.Equal(t, 1, jan.ByService[domain.ServiceFibre])
	assert.Equal(t, 1, jan.ByService[domain.ServiceADSL])
	assert.Len(t, jan.ByService, len(domain.ServiceTypes))
	assert.InDelta(t, 0.4+0.2+0.1, jan.PKI.GlobalPKI, delta)

	feb := buckets[1]
	assert.Equal(t, 1, feb.Total)
	assert.Equal(t, 0, feb.Resolved)
	assert.Equal(t, 1, feb.ByCause[domain.CauseCasse])

	total := 0
	for _, b := range buckets {
		total += b.Total
	}
	assert.Equal(t, 3, total, "tickets outside the reference year are ignored")
}

func TestRollup_UsesReferenceLocation(t *testing.T) {
	paris := time.FixedZone("CET", 3600)

	// 23:30 UTC on Jan 31 is already Feb 1 in Paris.
	created := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	tickets := []*domain.Ticket{
		ticketAt("1", created, domain.ServiceFibre, domain.CauseClient, false, false, false),
	}

	utc, err := domain.Rollup(tickets, domain.GranularityMonth, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, utc[0].Total)

	local, err := domain.Rollup(tickets, domain.GranularityMonth, time.Date(2024, 6, 1, 0, 0, 0, 0, paris))
	require.NoError(t, err)
	assert.Equal(t, 0, local[0].Total)
	assert.Equal(t, 1, local[1].Total)
}

func TestRollup_InvalidGranularity(t *testing.T) {
	buckets, err := domain.Rollup(nil, domain.Granularity("quarter"), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidGranularity)
	assert.Nil(t, buckets)
}

func TestScorecard_RollupWindow(t *testing.T) {
	sc := domain.DefaultScorecard()
	sc.RollupYears = 3

	from, to, err := sc.RollupWindow(domain.GranularityYear, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), to)

	_, _, err = sc.RollupWindow("hour", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidGranularity)
}
