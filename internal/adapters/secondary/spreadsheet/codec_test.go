package spreadsheet

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

const header = "id,service_type,cause_type,status,created_at,closed_at,met_deadline,reopened,reopen_count,description,cause_detail,closure_reason,technician_id,line_reference\n"

func sampleTickets() []*domain.Ticket {
	created := time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)
	closed := created.Add(20 * time.Hour)
	return []*domain.Ticket{
		{
			ID: "T-1", ServiceType: domain.ServiceFibre, CauseType: domain.CauseTechnique,
			Status: domain.StatusClosed, CreatedAt: created, ClosedAt: &closed, MetDeadline: true,
			Description: "ONT offline, \"red LOS\"", TechnicianID: "tech-1", LineReference: "0522-1",
		},
		{
			ID: "T-2", ServiceType: domain.ServiceADSL, CauseType: domain.CauseCasse,
			Status: domain.StatusInProgress, CreatedAt: created.Add(time.Hour),
			Reopened: true, ReopenCount: 2, CauseDetail: "cable cut",
		},
	}
}

func TestCodec_DecodeCSV(t *testing.T) {
	codec := NewCodec(nil)
	input := header +
		"T-1,fibre,technique,CLOSED,2024-06-03 08:30,2024-06-03T20:00:00Z,oui,non,0,ONT down,,fixed,tech-1,0522-1\n" +
		"T-2,ADSL,Client,en cours,2024-06-04 09:15,,no,yes,1,Slow sync,,,,\n" +
		",,,,,,,,,,,,,\n"

	tickets, err := codec.Decode(strings.NewReader(input), ports.FormatCSV)
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	first := tickets[0]
	assert.Equal(t, domain.ServiceFibre, first.ServiceType)
	assert.Equal(t, domain.CauseTechnique, first.CauseType)
	assert.Equal(t, domain.StatusClosed, first.Status)
	assert.True(t, first.MetDeadline)
	assert.Equal(t, time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC), first.CreatedAt)
	require.NotNil(t, first.ClosedAt)
	assert.Equal(t, time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC), *first.ClosedAt)

	second := tickets[1]
	assert.Equal(t, domain.StatusInProgress, second.Status)
	assert.Nil(t, second.ClosedAt)
	assert.True(t, second.Reopened)
	assert.Equal(t, 1, second.ReopenCount)
}

func TestCodec_DecodeUsesLocation(t *testing.T) {
	casablanca := time.FixedZone("WEST", 3600)
	codec := NewCodec(casablanca)

	tickets, err := codec.Decode(strings.NewReader(header+"T-1,FIXE,Client,IN_PROGRESS,2024-06-03 08:30,,,,,,,,,\n"), ports.FormatCSV)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, time.Date(2024, 6, 3, 7, 30, 0, 0, time.UTC), tickets[0].CreatedAt)
}

func TestCodec_DecodeCollectsRowErrors(t *testing.T) {
	codec := NewCodec(nil)
	input := header +
		"T-1,SATELLITE,Technique,CLOSED,2024-06-03 08:30,2024-06-03 09:00,true,false,0,,,,,\n" +
		"T-2,FIBRE,Technique,CLOSED,yesterday,,maybe,false,0,,,,,\n" +
		"T-3,FIBRE,Technique,CLOSED,2024-06-03 08:30,2024-06-02 08:30,false,false,0,,,,,\n" +
		"T-4,FIBRE,Technique,IN_PROGRESS,2024-06-03 08:30,,false,false,0,,,,,\n" +
		"T-4,FIBRE,Technique,IN_PROGRESS,2024-06-03 08:30,,false,false,0,,,,,\n"

	_, err := codec.Decode(strings.NewReader(input), ports.FormatCSV)
	require.Error(t, err)

	var ve *apperrors.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "row 2.service_type")
	assert.Contains(t, ve.Errors, "row 3.created_at")
	assert.Contains(t, ve.Errors, "row 3.met_deadline")
	assert.Contains(t, ve.Errors, "row 4.closedAt")
	assert.Contains(t, ve.Errors, "row 6.id")
	assert.NotContains(t, ve.Errors, "row 5.id")
}

func TestCodec_DecodeMissingColumns(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Decode(strings.NewReader("id,status\nT-1,CLOSED\n"), ports.FormatCSV)

	var ve *apperrors.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors["header"], 3)
}

func TestCodec_DecodeEmptyAndUnsupported(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Decode(strings.NewReader(""), ports.FormatCSV)
	assert.ErrorIs(t, err, apperrors.ErrEmptyImport)

	_, err = codec.Decode(strings.NewReader(header), ports.FileFormat("ods"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFileFormat)

	_, err = codec.Decode(strings.NewReader("not a zip"), ports.FormatXLSX)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "BAD_REQUEST", appErr.Code)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(nil)

	for _, format := range []ports.FileFormat{ports.FormatCSV, ports.FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, format, sampleTickets()))

			decoded, err := codec.Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, sampleTickets(), decoded)
		})
	}
}

func TestCodec_EncodeXLSXLayout(t *testing.T) {
	codec := NewCodec(nil)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, ports.FormatXLSX, sampleTickets()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "2024-06-03T08:30:00Z", rows[1][4])
}

func typedWorkbook(t *testing.T, row []interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := lo.Map(Columns[:9], func(c string, _ int) interface{} { return c })
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &row))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestCodec_DecodeXLSXDateCells(t *testing.T) {
	created := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	closed := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	row := []interface{}{"T-9", "FIBRE", "Technique", "CLOSED", created, closed, true, false, 0}

	t.Run("utc", func(t *testing.T) {
		tickets, err := NewCodec(nil).Decode(typedWorkbook(t, row), ports.FormatXLSX)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, created, tickets[0].CreatedAt)
		require.NotNil(t, tickets[0].ClosedAt)
		assert.Equal(t, closed, *tickets[0].ClosedAt)
		assert.True(t, tickets[0].MetDeadline)
		assert.False(t, tickets[0].Reopened)
	})

	t.Run("wall clock read in the codec location", func(t *testing.T) {
		codec := NewCodec(time.FixedZone("WEST", 3600))
		tickets, err := codec.Decode(typedWorkbook(t, row), ports.FormatXLSX)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, created.Add(-time.Hour), tickets[0].CreatedAt)
	})

	t.Run("text timestamps still accepted", func(t *testing.T) {
		text := []interface{}{"T-10", "ADSL", "Client", "IN_PROGRESS", "2024-06-01 08:30", "", "", "", ""}
		tickets, err := NewCodec(nil).Decode(typedWorkbook(t, text), ports.FormatXLSX)
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, created, tickets[0].CreatedAt)
	})
}

func TestCodec_CSVRejectsSerialDates(t *testing.T) {
	_, err := NewCodec(nil).Decode(strings.NewReader(header+"T-1,FIXE,Client,IN_PROGRESS,45444.35,,,,,,,,,\n"), ports.FormatCSV)

	var ve *apperrors.ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors, "row 2.created_at")
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
		ok   bool
	}{
		{"", false, true},
		{"OUI", true, true},
		{"non", false, true},
		{"1", true, true},
		{"Yes", true, true},
		{"peut-être", false, false},
	}
	for _, tt := range tests {
		got, ok := parseBool(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}
