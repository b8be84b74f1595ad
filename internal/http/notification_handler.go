package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/eventhub/internal/application"
)

type notificationService interface {
	ListForUser(ctx context.Context, principal application.Principal, limit int) (application.Inbox, error)
	MarkRead(ctx context.Context, principal application.Principal, id string) error
	MarkAllRead(ctx context.Context, principal application.Principal) (int, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
	DeleteAll(ctx context.Context, principal application.Principal) (int, error)
	Create(ctx context.Context, principal application.Principal, input application.NotificationInput) (application.Notification, error)
}

type NotificationHandler struct {
	service   notificationService
	responder responder
}

func NewNotificationHandler(service notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, responder: newResponder(defaultLogger(logger))}
}

var notificationFailures = failureMessages{
	notFound:  msgNotificationAbsent,
	forbidden: msgNotAuthorized,
}

func (h *NotificationHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "Límite inválido")
			return
		}
		limit = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	inbox, err := h.service.ListForUser(r.Context(), principal, limit)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al obtener notificaciones"})
		return
	}

	dtos := make([]notificationDTO, 0, len(inbox.Notifications))
	for _, n := range inbox.Notifications {
		dtos = append(dtos, toNotificationDTO(n))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{
		Success:       true,
		Notifications: dtos,
		UnreadCount:   inbox.UnreadCount,
	})
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, msgBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	notification, err := h.service.Create(r.Context(), principal, application.NotificationInput{
		UserID:     req.UserID,
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		EventID:    req.EventID,
		EventTitle: req.EventTitle,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			forbidden: msgNotAuthorized,
			internal:  "Error al crear notificación",
		})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createNotificationResponse{
		Success:        true,
		NotificationID: notification.ID,
		Notification:   toNotificationDTO(notification),
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), principal, r.PathValue("id")); err != nil {
		messages := notificationFailures
		messages.internal = "Error al actualizar notificación"
		h.responder.handleServiceError(r.Context(), w, err, messages)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "Notificación marcada como leída"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.MarkAllRead(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al actualizar notificaciones"})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{
		Success: true,
		Message: fmt.Sprintf("%d notificaciones marcadas como leídas", count),
		Count:   count,
	})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		messages := notificationFailures
		messages.internal = "Error al eliminar notificación"
		h.responder.handleServiceError(r.Context(), w, err, messages)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "Notificación eliminada"})
}

func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.DeleteAll(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al eliminar notificaciones"})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, countResponse{
		Success: true,
		Message: fmt.Sprintf("%d notificaciones eliminadas", count),
		Count:   count,
	})
}

type createNotificationRequest struct {
	UserID     string  `json:"userId"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	EventID    *string `json:"eventId"`
	EventTitle *string `json:"eventTitle"`
}

type notificationDTO struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	EventID    *string `json:"eventId"`
	EventTitle *string `json:"eventTitle"`
	Read       bool    `json:"read"`
	CreatedAt  string  `json:"createdAt"`
}

func toNotificationDTO(n application.Notification) notificationDTO {
	return notificationDTO{
		ID:         n.ID,
		UserID:     n.UserID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EventID:    n.EventID,
		EventTitle: n.EventTitle,
		Read:       n.Read,
		CreatedAt:  formatTimestamp(n.CreatedAt),
	}
}

type listNotificationsResponse struct {
	Success       bool              `json:"success"`
	Notifications []notificationDTO `json:"notifications"`
	UnreadCount   int               `json:"unreadCount"`
}

type createNotificationResponse struct {
	Success        bool            `json:"success"`
	NotificationID string          `json:"notificationId"`
	Notification   notificationDTO `json:"notification"`
}

type countResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}
