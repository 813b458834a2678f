package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-gateway/internal/application/registry"
	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/transport/http/middleware"
)

// DeviceHandler handles device-token lifecycle endpoints.
type DeviceHandler struct {
	svc registry.Service
}

func NewDeviceHandler(svc registry.Service) *DeviceHandler { return &DeviceHandler{svc: svc} }

func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var body struct {
		Token      string            `json:"token"`
		Platform   domain.Platform   `json:"platform"`
		DeviceInfo map[string]string `json:"device_info"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Register(r.Context(), claims.UserID, body.Token, body.Platform, body.DeviceInfo); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "device registered"})
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	devices, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	existed, err := h.svc.Unregister(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpError(w, err)
		return
	}
	if !existed {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "token unknown, nothing to do"})
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "device unregistered"})
}
