package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicaplena/agenda-api/internal/availability"
	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

type stubAvailability struct {
	days []availability.DayAvailability
	err  error
}

func (s *stubAvailability) Compute(ctx context.Context, from, to time.Time) ([]availability.DayAvailability, error) {
	return s.days, s.err
}

type stubBookings struct {
	result    *booking.BookingResult
	bookErr   error
	found     *booking.Reservation
	lookupErr error
	cancelErr error

	lastReq  booking.BookingRequest
	lastCode string
}

func (s *stubBookings) Book(ctx context.Context, req booking.BookingRequest) (*booking.BookingResult, error) {
	s.lastReq = req
	return s.result, s.bookErr
}

func (s *stubBookings) Lookup(ctx context.Context, code string) (*booking.Reservation, error) {
	s.lastCode = code
	return s.found, s.lookupErr
}

func (s *stubBookings) Cancel(ctx context.Context, code string) error {
	s.lastCode = code
	return s.cancelErr
}

type stubBlocks struct {
	created    *blocking.BlockedSlot
	createErr  error
	blocks     []blocking.BlockedSlot
	lastInput  blocking.CreateInput
	lastFilter blocking.ListFilter
	deletedID  int64
	deleteErr  error
}

func (s *stubBlocks) Create(ctx context.Context, input blocking.CreateInput) (*blocking.BlockedSlot, error) {
	s.lastInput = input
	return s.created, s.createErr
}

func (s *stubBlocks) Get(ctx context.Context, id int64) (*blocking.BlockedSlot, error) {
	return s.created, s.createErr
}

func (s *stubBlocks) List(ctx context.Context, filter blocking.ListFilter) ([]blocking.BlockedSlot, error) {
	s.lastFilter = filter
	return s.blocks, nil
}

func (s *stubBlocks) Update(ctx context.Context, id int64, patch blocking.UpdatePatch) (*blocking.BlockedSlot, error) {
	return s.created, s.createErr
}

func (s *stubBlocks) Delete(ctx context.Context, id int64) error {
	s.deletedID = id
	return s.deleteErr
}

type stubSettings struct {
	section     map[string]string
	lastSection string
	lastValues  map[string]string
	updateErr   error
}

func (s *stubSettings) Section(ctx context.Context, section string) (map[string]string, error) {
	s.lastSection = section
	return s.section, nil
}

func (s *stubSettings) UpdateSection(ctx context.Context, section string, values map[string]string) error {
	s.lastSection = section
	s.lastValues = values
	return s.updateErr
}

func newTestRouter(avail AvailabilityService, bookings BookingService, blocks BlockService, settings SettingsService) http.Handler {
	return NewRouter(RouterConfig{
		Availability: avail,
		Bookings:     bookings,
		Blocks:       blocks,
		Settings:     settings,
		Logger:       zerolog.Nop(),
	})
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if admin {
		req.Header.Set("X-Admin-User", "dra.ana")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityEndpoint(t *testing.T) {
	avail := &stubAvailability{days: []availability.DayAvailability{
		{Date: "2025-06-02", Slots: []string{"09:00", "10:00"}},
		{Date: "2025-06-03", Slots: []string{}},
	}}
	router := newTestRouter(avail, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/availability?startDate=2025-06-02&endDate=2025-06-03", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var byDate map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &byDate))
	assert.Equal(t, []string{"09:00", "10:00"}, byDate["2025-06-02"])
	assert.NotNil(t, byDate["2025-06-03"])
	assert.Empty(t, byDate["2025-06-03"])
}

func TestAvailabilityRejectsBadDates(t *testing.T) {
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/availability?startDate=junk", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/availability?startDate=2025-06-02&endDate=junk", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityValidationErrorCarriesField(t *testing.T) {
	avail := &stubAvailability{err: validation.Errorf("endDate", "must not precede startDate")}
	router := newTestRouter(avail, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/availability?startDate=2025-06-05&endDate=2025-06-02", nil, false)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
	assert.Equal(t, "endDate", resp.Field)
}

func TestCreateBooking(t *testing.T) {
	eventID := "evt-1"
	bookings := &stubBookings{result: &booking.BookingResult{
		Reservation: &booking.Reservation{
			ConfirmationCode: "A1B2C3D4",
			ExternalEventID:  &eventID,
		},
	}}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodPost, "/bookings", CreateBookingRequest{
		Name:     "Maria Silva",
		Email:    "maria@example.com",
		Phone:    "+55 11 99999-0000",
		Date:     "2025-06-02",
		TimeSlot: "14:00",
		Modality: "online",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateBookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A1B2C3D4", resp.ConfirmationCode)
	require.NotNil(t, resp.ExternalEventID)
	assert.Equal(t, "evt-1", *resp.ExternalEventID)
	assert.False(t, resp.MirrorDegraded)

	assert.Equal(t, "online", bookings.lastReq.Modality)
	assert.Equal(t, "14:00", bookings.lastReq.TimeSlot)
}

func TestCreateBookingConflict(t *testing.T) {
	bookings := &stubBookings{bookErr: booking.ErrSlotTaken}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodPost, "/bookings", CreateBookingRequest{
		Name: "Maria", Email: "m@x.com", Phone: "1", Date: "2025-06-02", TimeSlot: "14:00", Modality: "online",
	}, false)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_unavailable", resp.Error)
}

func TestCreateBookingBadJSON(t *testing.T) {
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupBooking(t *testing.T) {
	bookings := &stubBookings{found: &booking.Reservation{
		ConfirmationCode: "A1B2C3D4",
		ContactName:      "Maria Silva",
		Date:             time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		TimeSlot:         "14:00",
		Modality:         booking.ModalityOnline,
		Status:           booking.StatusScheduled,
		Origin:           booking.OriginLedger,
	}}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/bookings/A1B2C3D4", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-06-02", resp.Date)
	assert.Equal(t, "ledger", resp.Origin)
	assert.Equal(t, "A1B2C3D4", bookings.lastCode)
}

func TestLookupUnknownCode(t *testing.T) {
	bookings := &stubBookings{lookupErr: booking.ErrReservationNotFound}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/bookings/FFFFFFFF", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelBooking(t *testing.T) {
	bookings := &stubBookings{}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodDelete, "/bookings/A1B2C3D4", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A1B2C3D4", bookings.lastCode)
}

func TestCancelTwiceConflicts(t *testing.T) {
	bookings := &stubBookings{cancelErr: booking.ErrAlreadyCancelled}
	router := newTestRouter(&stubAvailability{}, bookings, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodDelete, "/bookings/A1B2C3D4", nil, false)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already_cancelled", resp.Error)
}

func TestAdminEndpointsRequirePrincipal(t *testing.T) {
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/admin/blocked-slots", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBlockedSlot(t *testing.T) {
	day := 3
	blocks := &stubBlocks{created: &blocking.BlockedSlot{
		ID:        1,
		BlockType: blocking.BlockRecurring,
		DayOfWeek: &day,
		TimeSlot:  "12:00",
		IsActive:  true,
		CreatedBy: "dra.ana",
	}}
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, blocks, &stubSettings{})

	rec := doRequest(t, router, http.MethodPost, "/admin/blocked-slots", BlockedSlotRequest{
		BlockType: "RECURRING",
		DayOfWeek: &day,
		TimeSlot:  "12:00",
		Reason:    "almoço",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The principal comes from the auth header, never from the body.
	assert.Equal(t, "dra.ana", blocks.lastInput.CreatedBy)

	var resp BlockedSlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.True(t, resp.IsActive)
}

func TestListBlockedSlotsParsesFilter(t *testing.T) {
	blocks := &stubBlocks{}
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, blocks, &stubSettings{})

	rec := doRequest(t, router, http.MethodGet, "/admin/blocked-slots?blockType=ONE_TIME&isActive=true", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, blocks.lastFilter.BlockType)
	assert.Equal(t, blocking.BlockOneTime, *blocks.lastFilter.BlockType)
	require.NotNil(t, blocks.lastFilter.IsActive)
	assert.True(t, *blocks.lastFilter.IsActive)
}

func TestDeleteBlockedSlot(t *testing.T) {
	blocks := &stubBlocks{}
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, blocks, &stubSettings{})

	rec := doRequest(t, router, http.MethodDelete, "/admin/blocked-slots/42", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(42), blocks.deletedID)

	rec = doRequest(t, router, http.MethodDelete, "/admin/blocked-slots/nope", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUnknownBlockedSlot(t *testing.T) {
	blocks := &stubBlocks{deleteErr: blocking.ErrBlockNotFound}
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, blocks, &stubSettings{})

	rec := doRequest(t, router, http.MethodDelete, "/admin/blocked-slots/42", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	settings := &stubSettings{section: map[string]string{"start_time": "08:00"}}
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, &stubBlocks{}, settings)

	rec := doRequest(t, router, http.MethodGet, "/admin/settings/agendamento", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "agendamento", settings.lastSection)

	rec = doRequest(t, router, http.MethodPut, "/admin/settings/agendamento",
		map[string]string{"start_time": "09:00"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "09:00", settings.lastValues["start_time"])
}

func TestUpdateSettingsRejectsEmptyBody(t *testing.T) {
	router := newTestRouter(&stubAvailability{}, &stubBookings{}, &stubBlocks{}, &stubSettings{})

	rec := doRequest(t, router, http.MethodPut, "/admin/settings/agendamento", map[string]string{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
