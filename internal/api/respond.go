package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/calendar"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps service errors onto the HTTP taxonomy. Raw storage
// errors never leak; anything unmapped is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Details: verr.Message,
			Field:   verr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable",
			"the requested slot is no longer available, refresh availability and pick another")
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	case errors.Is(err, booking.ErrNotCancellable):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, booking.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, "reservation_not_found", err.Error())
	case errors.Is(err, blocking.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "blocked_slot_not_found", err.Error())
	case errors.Is(err, blocking.ErrDuplicateBlock):
		writeError(w, http.StatusConflict, "duplicate_block", err.Error())
	case errors.Is(err, calendar.ErrCalendarUnavailable):
		writeError(w, http.StatusServiceUnavailable, "calendar_unavailable",
			"the external calendar is unavailable, try again shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
