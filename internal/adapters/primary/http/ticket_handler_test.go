package http

import (
	"bytes"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-pki/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
	"github.com/lorrc/service-desk-pki/internal/core/ports"
)

func TestTicketHandler_Create(t *testing.T) {
	h := newHarness(t)

	created := sampleTicket("TCK-1")
	h.tickets.On("CreateTicket", mock.Anything, ports.CreateTicketParams{
		ActorID:       h.userID,
		ServiceType:   domain.ServiceFibre,
		CauseType:     domain.CauseTechnique,
		Description:   "Loss of sync on line",
		TechnicianID:  "tech-1",
		LineReference: "71000111",
	}).Return(created, nil).Once()

	recorder := h.do(t, stdhttp.MethodPost, "/api/v1/tickets", map[string]string{
		"serviceType":   "fibre",
		"causeType":     "technique",
		"description":   "Loss of sync on line",
		"technicianId":  " tech-1 ",
		"lineReference": "71000111",
	})

	require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	body := decodeBody[TicketDTO](t, recorder)
	assert.Equal(t, "TCK-1", body.ID)
	assert.Equal(t, "FIBRE", body.ServiceType)
	assert.Equal(t, "IN_PROGRESS", body.Status)
	assert.Nil(t, body.ClosedAt)
}

func TestTicketHandler_CreateValidation(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(t, stdhttp.MethodPost, "/api/v1/tickets", map[string]string{
		"serviceType": "satellite",
		"causeType":   "",
	})

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	body := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, body.Fields, "serviceType")
	assert.Contains(t, body.Fields, "causeType")
	assert.Contains(t, body.Fields, "description")
	h.tickets.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
}

func TestTicketHandler_List(t *testing.T) {
	h := newHarness(t)

	tickets := []*domain.Ticket{sampleTicket("A"), sampleTicket("B"), sampleTicket("C")}
	h.tickets.On("ListTickets", mock.Anything, mock.MatchedBy(func(p ports.ListTicketsParams) bool {
		return p.ViewerID == h.userID &&
			p.Limit == 3 && p.Offset == 4 &&
			p.Status != nil && *p.Status == domain.StatusClosed &&
			p.ServiceType != nil && *p.ServiceType == domain.ServiceADSL &&
			p.CauseType != nil && *p.CauseType == domain.CauseCasse &&
			p.CreatedFrom != nil && p.CreatedFrom.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) &&
			p.CreatedTo != nil && p.CreatedTo.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	})).Return(tickets, nil).Once()

	recorder := h.do(t, stdhttp.MethodGet,
		"/api/v1/tickets?limit=2&offset=4&status=closed&service=adsl&cause=casse&from=2024-01-01&to=2024-01-31", nil)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	body := decodeBody[PaginatedResponse[TicketDTO]](t, recorder)
	assert.Len(t, body.Data, 2)
	assert.True(t, body.Pagination.HasMore)
	assert.Equal(t, 2, body.Pagination.Limit)
}

func TestTicketHandler_ListRejectsBadFilters(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets?status=pending&service=satellite", nil)

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	body := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, body.Fields, "status")
	assert.Contains(t, body.Fields, "service")
}

func TestTicketHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "found", wantStatus: stdhttp.StatusOK},
		{name: "missing", err: apperrors.ErrTicketNotFound, wantStatus: stdhttp.StatusNotFound, wantCode: "TICKET_NOT_FOUND"},
		{name: "forbidden", err: apperrors.ErrForbidden, wantStatus: stdhttp.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.err != nil {
				h.tickets.On("GetTicket", mock.Anything, "TCK-9", h.userID).Return(nil, tt.err).Once()
			} else {
				h.tickets.On("GetTicket", mock.Anything, "TCK-9", h.userID).Return(sampleTicket("TCK-9"), nil).Once()
			}

			recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets/TCK-9", nil)

			require.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, recorder).Code)
			}
		})
	}
}

func TestTicketHandler_CloseAndReopen(t *testing.T) {
	h := newHarness(t)

	closedAt := time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)
	closed := sampleTicket("TCK-2")
	closed.Status = domain.StatusClosed
	closed.ClosedAt = &closedAt
	closed.MetDeadline = true

	h.tickets.On("CloseTicket", mock.Anything, ports.CloseTicketParams{
		TicketID: "TCK-2",
		ActorID:  h.userID,
		Reason:   "fibre spliced",
	}).Return(closed, nil).Once()

	recorder := h.do(t, stdhttp.MethodPost, "/api/v1/tickets/TCK-2/close", map[string]string{"reason": "fibre spliced"})
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	body := decodeBody[TicketDTO](t, recorder)
	assert.Equal(t, "CLOSED", body.Status)
	assert.True(t, body.MetDeadline)
	require.NotNil(t, body.ClosedAt)

	h.tickets.On("ReopenTicket", mock.Anything, ports.ReopenTicketParams{TicketID: "TCK-2", ActorID: h.userID}).
		Return(nil, apperrors.ErrTicketNotClosed).Once()

	recorder = h.do(t, stdhttp.MethodPost, "/api/v1/tickets/TCK-2/reopen", nil)
	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
	assert.Equal(t, "TICKET_NOT_CLOSED", decodeBody[ErrorResponse](t, recorder).Code)
}

func TestTicketHandler_CloseWithoutBody(t *testing.T) {
	h := newHarness(t)

	h.tickets.On("CloseTicket", mock.Anything, ports.CloseTicketParams{TicketID: "TCK-3", ActorID: h.userID}).
		Return(nil, apperrors.ErrTicketAlreadyClosed).Once()

	recorder := h.do(t, stdhttp.MethodPost, "/api/v1/tickets/TCK-3/close", nil)
	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
}

func TestTicketHandler_AssignTechnician(t *testing.T) {
	h := newHarness(t)

	assigned := sampleTicket("TCK-4")
	assigned.TechnicianID = "tech-7"
	h.tickets.On("AssignTechnician", mock.Anything, ports.AssignTechnicianParams{
		TicketID:     "TCK-4",
		TechnicianID: "tech-7",
		ActorID:      h.userID,
	}).Return(assigned, nil).Once()

	recorder := h.do(t, stdhttp.MethodPatch, "/api/v1/tickets/TCK-4/technician", map[string]string{"technicianId": "tech-7"})

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	body := decodeBody[TicketDTO](t, recorder)
	require.NotNil(t, body.TechnicianID)
	assert.Equal(t, "tech-7", *body.TechnicianID)
}

func TestTicketHandler_Events(t *testing.T) {
	h := newHarness(t)

	events := []*domain.TicketEvent{
		{ID: 11, TicketID: "TCK-5", Type: domain.EventTicketCreated, ActorID: h.userID, Payload: []byte(`{"id":"TCK-5"}`), CreatedAt: time.Now()},
		{ID: 12, TicketID: "TCK-5", Type: domain.EventTicketClosed, ActorID: h.userID, CreatedAt: time.Now()},
	}
	h.events.On("ListTicketEvents", mock.Anything, ports.ListTicketEventsParams{
		TicketID: "TCK-5",
		ViewerID: h.userID,
		AfterID:  10,
		Limit:    defaultEventsLimit,
	}).Return(events, nil).Once()

	recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets/TCK-5/events?after=10", nil)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	body := decodeBody[TicketEventsResponse](t, recorder)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "TICKET_CREATED", body.Data[0].Type)
	assert.JSONEq(t, `{"id":"TCK-5"}`, string(body.Data[0].Payload))
	require.NotNil(t, body.NextCursor)
	assert.Equal(t, int64(12), *body.NextCursor)
}

func TestTicketHandler_EventsRejectsLargeLimit(t *testing.T) {
	h := newHarness(t)

	recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets/TCK-5/events?limit=5000", nil)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}

func newImportRequest(t *testing.T, h *harness, filename, content string) *stdhttp.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	token, err := h.tokens.GenerateToken(h.userID, domain.RoleSupervisor)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/tickets/import", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestTicketHandler_Import(t *testing.T) {
	h := newHarness(t)

	const content = "id,service_type,cause_type,status,created_at\nT1,FIBRE,Technique,IN_PROGRESS,2024-06-01T08:00:00Z\n"
	h.tickets.On("ImportTickets", mock.Anything, mock.MatchedBy(func(p ports.ImportTicketsParams) bool {
		if p.ActorID != h.userID || p.Format != ports.FormatCSV {
			return false
		}
		data, err := io.ReadAll(p.Source)
		return err == nil && string(data) == content
	})).Return(1, nil).Once()

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, newImportRequest(t, h, "june.CSV", content))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	assert.Equal(t, 1, decodeBody[ImportResponse](t, recorder).Imported)
}

func TestTicketHandler_ImportRowErrors(t *testing.T) {
	h := newHarness(t)

	rowErrs := apperrors.NewValidationErrors()
	rowErrs.Add("row 2.service_type", "Unknown service type")
	h.tickets.On("ImportTickets", mock.Anything, mock.Anything).Return(0, rowErrs).Once()

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, newImportRequest(t, h, "tickets.xlsx", "ignored"))

	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	body := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, body.Fields, "row 2.service_type")
}

func TestTicketHandler_ImportRejectsUnknownFormat(t *testing.T) {
	h := newHarness(t)

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, newImportRequest(t, h, "tickets.pdf", "ignored"))

	require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	h.tickets.AssertNotCalled(t, "ImportTickets", mock.Anything, mock.Anything)
}

func TestTicketHandler_Export(t *testing.T) {
	h := newHarness(t)

	h.tickets.On("ExportTickets", mock.Anything, mock.MatchedBy(func(p ports.ExportTicketsParams) bool {
		return p.Format == ports.FormatCSV && p.CreatedFrom != nil && p.CreatedTo == nil
	}), mock.Anything).Run(func(args mock.Arguments) {
		w := args.Get(2).(io.Writer)
		_, _ = w.Write([]byte("id\nT1\n"))
	}).Return(1, nil).Once()

	recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets/export?format=csv&from=2024-06-01", nil)

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv; charset=utf-8", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), ".csv")
	assert.Equal(t, "1", recorder.Header().Get("X-Ticket-Count"))
	assert.Equal(t, "id\nT1\n", recorder.Body.String())
}

func TestTicketHandler_ExportFailureIsJSON(t *testing.T) {
	h := newHarness(t)

	h.tickets.On("ExportTickets", mock.Anything, mock.Anything, mock.Anything).Return(0, apperrors.ErrForbidden).Once()

	recorder := h.do(t, stdhttp.MethodGet, "/api/v1/tickets/export", nil)

	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Content-Disposition"))
}

func TestTicketHandler_RequiresToken(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/api/v1/tickets", nil)
	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)

	assert.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}
