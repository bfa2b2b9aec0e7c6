package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicaplena/agenda-api/internal/blocking"
)

// BlockService is the admin surface for slot blocking rules.
type BlockService interface {
	Create(ctx context.Context, input blocking.CreateInput) (*blocking.BlockedSlot, error)
	Get(ctx context.Context, id int64) (*blocking.BlockedSlot, error)
	List(ctx context.Context, filter blocking.ListFilter) ([]blocking.BlockedSlot, error)
	Update(ctx context.Context, id int64, patch blocking.UpdatePatch) (*blocking.BlockedSlot, error)
	Delete(ctx context.Context, id int64) error
}

// SettingsService is the admin surface for raw settings sections.
type SettingsService interface {
	Section(ctx context.Context, section string) (map[string]string, error)
	UpdateSection(ctx context.Context, section string, values map[string]string) error
}

func createBlockedSlotHandler(svc BlockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlockedSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		input := blocking.CreateInput{
			BlockType: blocking.BlockType(req.BlockType),
			DayOfWeek: req.DayOfWeek,
			TimeSlot:  req.TimeSlot,
			Reason:    req.Reason,
			CreatedBy: GetPrincipal(r.Context()),
		}
		if req.SpecificDate != nil {
			date, err := time.Parse("2006-01-02", *req.SpecificDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_specific_date", "specificDate must be YYYY-MM-DD")
				return
			}
			input.SpecificDate = &date
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockedSlotResponse(created))
	}
}

func listBlockedSlotsHandler(svc BlockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter blocking.ListFilter

		if raw := r.URL.Query().Get("blockType"); raw != "" {
			bt := blocking.BlockType(raw)
			if bt != blocking.BlockRecurring && bt != blocking.BlockOneTime {
				writeError(w, http.StatusBadRequest, "invalid_block_type", "blockType must be RECURRING or ONE_TIME")
				return
			}
			filter.BlockType = &bt
		}
		if raw := r.URL.Query().Get("isActive"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_is_active", "isActive must be true or false")
				return
			}
			filter.IsActive = &active
		}

		blocks, err := svc.List(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]BlockedSlotResponse, 0, len(blocks))
		for i := range blocks {
			resp = append(resp, toBlockedSlotResponse(&blocks[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getBlockedSlotHandler(svc BlockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := blockID(w, r)
		if !ok {
			return
		}

		block, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBlockedSlotResponse(block))
	}
}

func updateBlockedSlotHandler(svc BlockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := blockID(w, r)
		if !ok {
			return
		}

		var req BlockedSlotPatch
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		updated, err := svc.Update(r.Context(), id, blocking.UpdatePatch{
			IsActive: req.IsActive,
			Reason:   req.Reason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBlockedSlotResponse(updated))
	}
}

func deleteBlockedSlotHandler(svc BlockService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := blockID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func blockID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

func getSettingsHandler(svc SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, err := svc.Section(r.Context(), chi.URLParam(r, "section"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, values)
	}
}

func updateSettingsHandler(svc SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(values) == 0 {
			writeError(w, http.StatusBadRequest, "empty_settings", "at least one key is required")
			return
		}

		section := chi.URLParam(r, "section")
		if err := svc.UpdateSection(r.Context(), section, values); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}
