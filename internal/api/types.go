package api

import (
	"time"

	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
)

type CreateBookingRequest struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Date                string `json:"date"`
	TimeSlot            string `json:"timeSlot"`
	Modality            string `json:"modality"`
	Message             string `json:"message,omitempty"`
	IsFirstConsultation bool   `json:"isFirstConsultation"`
}

type CreateBookingResponse struct {
	ConfirmationCode string  `json:"confirmationCode"`
	ExternalEventID  *string `json:"externalEventId"`
	MirrorDegraded   bool    `json:"mirrorDegraded,omitempty"`
}

type ReservationResponse struct {
	ConfirmationCode    string  `json:"confirmationCode"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
	Date                string  `json:"date"`
	TimeSlot            string  `json:"timeSlot"`
	Modality            string  `json:"modality"`
	IsFirstConsultation bool    `json:"isFirstConsultation"`
	Message             string  `json:"message,omitempty"`
	Status              string  `json:"status"`
	ExternalEventID     *string `json:"externalEventId"`
	Origin              string  `json:"origin"`
}

func toReservationResponse(r *booking.Reservation) ReservationResponse {
	return ReservationResponse{
		ConfirmationCode:    r.ConfirmationCode,
		Name:                r.ContactName,
		Email:               r.ContactEmail,
		Phone:               r.ContactPhone,
		Date:                r.Date.Format("2006-01-02"),
		TimeSlot:            r.TimeSlot,
		Modality:            string(r.Modality),
		IsFirstConsultation: r.IsFirstConsultation,
		Message:             r.Message,
		Status:              string(r.Status),
		ExternalEventID:     r.ExternalEventID,
		Origin:              string(r.Origin),
	}
}

type BlockedSlotRequest struct {
	BlockType    string  `json:"blockType"`
	DayOfWeek    *int    `json:"dayOfWeek,omitempty"`
	SpecificDate *string `json:"specificDate,omitempty"`
	TimeSlot     string  `json:"timeSlot"`
	Reason       string  `json:"reason,omitempty"`
}

type BlockedSlotPatch struct {
	IsActive *bool   `json:"isActive,omitempty"`
	Reason   *string `json:"reason,omitempty"`
}

type BlockedSlotResponse struct {
	ID           int64   `json:"id"`
	BlockType    string  `json:"blockType"`
	DayOfWeek    *int    `json:"dayOfWeek,omitempty"`
	SpecificDate *string `json:"specificDate,omitempty"`
	TimeSlot     string  `json:"timeSlot"`
	Reason       string  `json:"reason,omitempty"`
	IsActive     bool    `json:"isActive"`
	CreatedBy    string  `json:"createdBy,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

func toBlockedSlotResponse(b *blocking.BlockedSlot) BlockedSlotResponse {
	resp := BlockedSlotResponse{
		ID:        b.ID,
		BlockType: string(b.BlockType),
		DayOfWeek: b.DayOfWeek,
		TimeSlot:  b.TimeSlot,
		Reason:    b.Reason,
		IsActive:  b.IsActive,
		CreatedBy: b.CreatedBy,
	}
	if b.SpecificDate != nil {
		date := b.SpecificDate.Format("2006-01-02")
		resp.SpecificDate = &date
	}
	if !b.CreatedAt.IsZero() {
		resp.CreatedAt = b.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}
