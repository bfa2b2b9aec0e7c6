package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicaplena/agenda-api/internal/availability"
	"github.com/clinicaplena/agenda-api/internal/booking"
)

// AvailabilityService computes the free slots for a date range.
type AvailabilityService interface {
	Compute(ctx context.Context, from, to time.Time) ([]availability.DayAvailability, error)
}

// BookingService drives the booking lifecycle.
type BookingService interface {
	Book(ctx context.Context, req booking.BookingRequest) (*booking.BookingResult, error)
	Lookup(ctx context.Context, code string) (*booking.Reservation, error)
	Cancel(ctx context.Context, code string) error
}

func availabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := time.Parse("2006-01-02", r.URL.Query().Get("startDate"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "startDate must be YYYY-MM-DD")
			return
		}

		to := from
		if raw := r.URL.Query().Get("endDate"); raw != "" {
			to, err = time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_date", "endDate must be YYYY-MM-DD")
				return
			}
		}

		days, err := svc.Compute(r.Context(), from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		// The calendar UI keys by date; the slice keeps the range ordered
		// but the wire shape is date -> slots.
		byDate := make(map[string][]string, len(days))
		for _, day := range days {
			byDate[day.Date] = day.Slots
		}

		writeJSON(w, http.StatusOK, byDate)
	}
}

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := svc.Book(r.Context(), booking.BookingRequest{
			Name:                req.Name,
			Email:               req.Email,
			Phone:               req.Phone,
			Date:                req.Date,
			TimeSlot:            req.TimeSlot,
			Modality:            req.Modality,
			Message:             req.Message,
			IsFirstConsultation: req.IsFirstConsultation,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateBookingResponse{
			ConfirmationCode: result.Reservation.ConfirmationCode,
			ExternalEventID:  result.Reservation.ExternalEventID,
			MirrorDegraded:   result.MirrorDegraded,
		})
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Lookup(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Cancel(r.Context(), chi.URLParam(r, "code")); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}
