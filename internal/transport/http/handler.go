package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"walletdash/internal/metrics"
	"walletdash/internal/model"
	"walletdash/internal/service"
	"walletdash/pkg/apperror"

	"github.com/rs/zerolog"
)

type Handler struct {
	svc service.DashboardService
	hub *Hub
	log zerolog.Logger
}

func NewHandler(svc service.DashboardService, hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, hub: hub, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /state", h.State)
	mux.HandleFunc("POST /wallet/select", h.SelectWallet)
	mux.HandleFunc("POST /wallet/refresh", h.RefreshWallet)
	mux.HandleFunc("POST /history/refresh", h.RefreshHistory)
	mux.HandleFunc("POST /transfer", h.Transfer)
	mux.HandleFunc("POST /purchase", h.Purchase)
	mux.Handle("GET /metrics", metrics.Handler())
	if h.hub != nil {
		mux.HandleFunc("GET /ws", h.hub.ServeWS(h.svc))
	}
}

// Health reports 503 while the bus connection is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.svc.State().Connected {
		h.respondError(w, http.StatusServiceUnavailable, "bus_disconnected")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.svc.State())
}

func (h *Handler) SelectWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod string `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := h.svc.SelectWallet(r.Context(), req.PaymentMethod); err != nil {
		h.respondAppError(w, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (h *Handler) RefreshWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefetchWallet(r.Context()); err != nil {
		h.respondAppError(w, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (h *Handler) RefreshHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefetchHistory(r.Context()); err != nil {
		h.respondAppError(w, err)
		return
	}
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req service.TransferInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	h.respondResult(w, h.svc.TransferBalance(r.Context(), req))
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req service.PurchaseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	h.respondResult(w, h.svc.PurchaseProduct(r.Context(), req))
}

func (h *Handler) respondResult(w http.ResponseWriter, res model.ActionResult) {
	h.respondJSON(w, apperror.StatusForCode(res.Code), res)
}

func (h *Handler) respondAppError(w http.ResponseWriter, err error) {
	status := apperror.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		h.respondJSON(w, status, appErr)
		return
	}
	h.respondError(w, status, err.Error())
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
