// Package spreadsheet reads and writes ticket exports as XLSX or CSV.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

// SheetName is the worksheet written by Encode. Decode reads the first sheet
// whatever its name.
const SheetName = "Tickets"

// Columns is the header row shared by both formats.
var Columns = []string{
	"id", "service_type", "cause_type", "status", "created_at", "closed_at",
	"met_deadline", "reopened", "reopen_count", "description", "cause_detail",
	"closure_reason", "technician_id", "line_reference",
}

var requiredColumns = []string{"id", "service_type", "cause_type", "status", "created_at"}

// timeLayouts are tried in order when reading timestamps.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// Codec implements ports.TicketCodec.
type Codec struct {
	location *time.Location
}

var _ ports.TicketCodec = (*Codec)(nil)

// NewCodec creates a codec. Timestamps without a zone are read in loc,
// UTC when loc is nil.
func NewCodec(loc *time.Location) ports.TicketCodec {
	if loc == nil {
		loc = time.UTC
	}
	return &Codec{location: loc}
}

// Decode parses every row. Row problems are collected into a single
// ValidationErrors keyed "row N" (1-based, header is row 1).
func (c *Codec) Decode(r io.Reader, format ports.FileFormat) ([]*domain.Ticket, error) {
	var (
		rows  [][]string
		dates sheetDates
		err   error
	)
	switch format {
	case ports.FormatXLSX:
		rows, dates, err = readXLSX(r)
	case ports.FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, apperrors.ErrUnsupportedFileFormat
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyImport
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	errs := apperrors.NewValidationErrors()
	seen := make(map[string]int)
	tickets := make([]*domain.Ticket, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlank(row) {
			continue
		}
		key := fmt.Sprintf("row %d", rowNum)

		ticket, rowErrs := c.parseRow(row, index, dates)
		if rowErrs.HasErrors() {
			errs.Merge(key, rowErrs)
			continue
		}
		if first, dup := seen[ticket.ID]; dup {
			errs.Add(key+".id", fmt.Sprintf("Duplicate ticket ID, first seen on row %d", first))
			continue
		}
		seen[ticket.ID] = rowNum
		tickets = append(tickets, ticket)
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Encode writes tickets with the header row first.
func (c *Codec) Encode(w io.Writer, format ports.FileFormat, tickets []*domain.Ticket) error {
	records := make([][]string, 0, len(tickets)+1)
	records = append(records, Columns)
	for _, t := range tickets {
		records = append(records, c.formatRow(t))
	}

	switch format {
	case ports.FormatXLSX:
		return writeXLSX(w, records)
	case ports.FormatCSV:
		return writeCSV(w, records)
	}
	return apperrors.ErrUnsupportedFileFormat
}

// sheetDates tells parseTime whether numeric cells are Excel date serials.
type sheetDates struct {
	serial   bool
	date1904 bool
}

// readXLSX returns raw cell values so date cells come back as serials rather
// than in their display format.
func readXLSX(r io.Reader) ([][]string, sheetDates, error) {
	dates := sheetDates{serial: true}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, dates, apperrors.NewBadRequestError(err, "File is not a readable XLSX workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, dates, apperrors.ErrEmptyImport
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		dates.date1904 = *props.Date1904
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, dates, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, dates, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewBadRequestError(err, "File is not valid CSV")
	}
	return rows, nil
}

func writeXLSX(w io.Writer, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := lo.Map(record, func(v string, _ int) interface{} { return v })
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, records [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := index[key]; !ok && key != "" {
			index[key] = i
		}
	}

	missing := lo.Filter(requiredColumns, func(col string, _ int) bool {
		_, ok := index[col]
		return !ok
	})
	if len(missing) > 0 {
		errs := apperrors.NewValidationErrors()
		for _, col := range missing {
			errs.Add("header", fmt.Sprintf("Missing column %q", col))
		}
		return nil, errs
	}
	return index, nil
}

func isBlank(row []string) bool {
	return lo.EveryBy(row, func(v string) bool { return strings.TrimSpace(v) == "" })
}

func (c *Codec) parseRow(row []string, index map[string]int, dates sheetDates) (*domain.Ticket, *apperrors.ValidationErrors) {
	errs := apperrors.NewValidationErrors()
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	t := &domain.Ticket{
		ID:            get("id"),
		Description:   get("description"),
		CauseDetail:   get("cause_detail"),
		ClosureReason: get("closure_reason"),
		TechnicianID:  get("technician_id"),
		LineReference: get("line_reference"),
	}

	var err error
	if t.ServiceType, err = domain.ParseServiceType(get("service_type")); err != nil {
		errs.Add("service_type", "Must be one of: FIBRE, ADSL, DEGROUPAGE, FIXE")
	}
	if t.CauseType, err = domain.ParseCauseType(get("cause_type")); err != nil {
		errs.Add("cause_type", "Must be one of: Technique, Client, Casse")
	}
	if t.Status, err = parseStatus(get("status")); err != nil {
		errs.Add("status", "Must be one of: IN_PROGRESS, CLOSED")
	}

	if created, ok := c.parseTime(get("created_at"), dates); ok && created != nil {
		t.CreatedAt = *created
	} else {
		errs.Add("created_at", "Expected a timestamp such as 2024-06-01 08:30")
	}
	if closed, ok := c.parseTime(get("closed_at"), dates); ok {
		t.ClosedAt = closed
	} else {
		errs.Add("closed_at", "Expected a timestamp such as 2024-06-01 08:30")
	}

	var ok bool
	if t.MetDeadline, ok = parseBool(get("met_deadline")); !ok {
		errs.Add("met_deadline", boolMessage)
	}
	if t.Reopened, ok = parseBool(get("reopened")); !ok {
		errs.Add("reopened", boolMessage)
	}
	if raw := get("reopen_count"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			errs.Add("reopen_count", "Must be a whole number")
		}
		t.ReopenCount = n
	}
	if t.ReopenCount > 0 {
		t.Reopened = true
	}

	if errs.HasErrors() {
		return nil, errs
	}
	if err := t.Validate(); err != nil {
		var ve *apperrors.ValidationErrors
		if errors.As(err, &ve) {
			return nil, ve
		}
		errs.Add("ticket", err.Error())
		return nil, errs
	}
	return t, errs
}

// parseStatus also accepts the labels used on the dashboard.
func parseStatus(raw string) (domain.TicketStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "en cours", "in progress", "open":
		return domain.StatusInProgress, nil
	case "clôturé", "cloture", "clôture", "closed":
		return domain.StatusClosed, nil
	}
	return domain.ParseTicketStatus(raw)
}

// parseTime returns (nil, true) for an empty cell. XLSX date cells hold the
// wall clock as a day serial, read in the codec's location.
func (c *Codec) parseTime(raw string, dates sheetDates) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, c.location); err == nil {
			utc := t.UTC()
			return &utc, true
		}
	}
	if !dates.serial {
		return nil, false
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < 1 {
		return nil, false
	}
	wall, err := excelize.ExcelDateToTime(serial, dates.date1904)
	if err != nil {
		return nil, false
	}
	wall = wall.Round(time.Second)
	utc := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, c.location).UTC()
	return &utc, true
}

const boolMessage = "Expected true/false, 1/0, oui/non or yes/no"

// parseBool treats an empty cell as false.
func parseBool(raw string) (value bool, ok bool) {
	switch strings.ToLower(raw) {
	case "", "false", "0", "non", "no", "n":
		return false, true
	case "true", "1", "oui", "yes", "y", "o":
		return true, true
	}
	return false, false
}

func (c *Codec) formatRow(t *domain.Ticket) []string {
	closedAt := ""
	if t.ClosedAt != nil {
		closedAt = t.ClosedAt.In(c.location).Format(time.RFC3339)
	}
	return []string{
		t.ID,
		string(t.ServiceType),
		string(t.CauseType),
		string(t.Status),
		t.CreatedAt.In(c.location).Format(time.RFC3339),
		closedAt,
		strconv.FormatBool(t.MetDeadline),
		strconv.FormatBool(t.Reopened),
		strconv.Itoa(t.ReopenCount),
		t.Description,
		t.CauseDetail,
		t.ClosureReason,
		t.TechnicianID,
		t.LineReference,
	}
}
