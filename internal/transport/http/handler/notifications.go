package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-gateway/internal/application/dispatch"
	"github.com/go-push-gateway/internal/application/history"
	"github.com/go-push-gateway/internal/application/scheduler"
	"github.com/go-push-gateway/internal/domain"
	"github.com/go-push-gateway/internal/transport/http/middleware"
)

// NotificationHandler exposes the send, schedule and log endpoints.
type NotificationHandler struct {
	dispatcher dispatch.Service
	scheduler  scheduler.Service
	history    history.Service
}

func NewNotificationHandler(dispatcher dispatch.Service, sched scheduler.Service, hist history.Service) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, scheduler: sched, history: hist}
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID      string            `json:"user_id"`
		Title       string            `json:"title"`
		Body        string            `json:"body"`
		Data        map[string]string `json:"data"`
		ImageURL    string            `json:"image_url"`
		ClickAction string            `json:"click_action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" || body.Title == "" {
		writeError(w, http.StatusBadRequest, "user_id and title are required")
		return
	}
	ok := h.dispatcher.Send(r.Context(), body.UserID, domain.PushMessage{
		Title:       body.Title,
		Body:        body.Body,
		Data:        body.Data,
		ImageURL:    body.ImageURL,
		ClickAction: body.ClickAction,
	})
	writeJSON(w, http.StatusOK, SendEnvelope{Success: ok})
}

func (h *NotificationHandler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserIDs []string          `json:"user_ids"`
		Title   string            `json:"title"`
		Body    string            `json:"body"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.UserIDs) == 0 || body.Title == "" {
		writeError(w, http.StatusBadRequest, "user_ids and title are required")
		return
	}
	res := h.dispatcher.SendBulk(r.Context(), body.UserIDs, body.Title, body.Body, body.Data)
	writeJSON(w, http.StatusOK, res)
}

func (h *NotificationHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    string            `json:"user_id"`
		Template  string            `json:"template"`
		Variables map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" || body.Template == "" {
		writeError(w, http.StatusBadRequest, "user_id and template are required")
		return
	}
	ok := h.dispatcher.SendTemplate(r.Context(), body.UserID, body.Template, body.Variables)
	writeJSON(w, http.StatusOK, SendEnvelope{Success: ok})
}

func (h *NotificationHandler) SendEmailTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To        string            `json:"to"`
		Template  string            `json:"template"`
		Variables map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.To == "" || body.Template == "" {
		writeError(w, http.StatusBadRequest, "to and template are required")
		return
	}
	ok := h.dispatcher.SendEmailTemplate(r.Context(), body.To, body.Template, body.Variables)
	writeJSON(w, http.StatusOK, SendEnvelope{Success: ok})
}

func (h *NotificationHandler) SendSMSTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone     string            `json:"phone"`
		Template  string            `json:"template"`
		Variables map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Phone == "" || body.Template == "" {
		writeError(w, http.StatusBadRequest, "phone and template are required")
		return
	}
	ok := h.dispatcher.SendSMSTemplate(r.Context(), body.Phone, body.Template, body.Variables)
	writeJSON(w, http.StatusOK, SendEnvelope{Success: ok})
}

func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID      string            `json:"user_id"`
		Title       string            `json:"title"`
		Body        string            `json:"body"`
		ScheduledAt time.Time         `json:"scheduled_at"`
		Data        map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}
	notificationID, err := h.scheduler.Schedule(r.Context(), body.UserID, body.Title, body.Body, body.ScheduledAt, body.Data)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ScheduleEnvelope{NotificationID: notificationID})
}

func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	result, err := h.history.History(r.Context(), claims.UserID, page, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	existed, err := h.history.MarkRead(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "marked as read"})
}

func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
