package handler

import (
	"encoding/json"
	"net/http"

	"trimbook/internal/availability/service"
	apperrors "trimbook/pkg/errors"
	httputil "trimbook/pkg/http"
	"trimbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type SlotListResponse struct {
	ProviderID string   `json:"provider_id"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

type DailySlotsRequest struct {
	AvailableSlots []string `json:"available_slots"`
}

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) ListSlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	providerID := ps.ByName("id")
	date := r.URL.Query().Get("date")

	if date == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The 'date' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.service.ListBookableSlots(r.Context(), providerID, date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, SlotListResponse{
		ProviderID: providerID,
		Date:       date,
		Slots:      slots,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) SetDailySlots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	providerID := ps.ByName("id")
	date := ps.ByName("date")

	var req DailySlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SetDailySlots", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.SetDailySlots(r.Context(), providerID, date, req.AvailableSlots); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetDailySlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/providers/id/:id/slots", h.ListSlots)
	router.PUT("/api/v1/providers/id/:id/days/:date", h.SetDailySlots)
}
