package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/eventhub/internal/application"
	"github.com/example/eventhub/internal/calendar"
	"github.com/example/eventhub/internal/metrics"
)

// isoLayout matches the millisecond precision timestamps clients expect.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type eventService interface {
	CreateEvent(ctx context.Context, principal application.Principal, input application.EventInput) (application.Event, error)
	GetEvent(ctx context.Context, id string) (application.Event, error)
	ListEvents(ctx context.Context, filter application.ListFilter) ([]application.Event, error)
	ListMyOrganizedEvents(ctx context.Context, principal application.Principal) ([]application.Event, error)
	ListMyParticipatingEvents(ctx context.Context, principal application.Principal) ([]application.Event, error)
	UpdateEvent(ctx context.Context, principal application.Principal, id string, patch application.EventPatch) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, id string) error
	ConfirmAttendance(ctx context.Context, principal application.Principal, id string) (int, error)
	CancelAttendance(ctx context.Context, principal application.Principal, id string) (int, error)
}

type calendarWriter interface {
	Write(w io.Writer, event application.Event) error
}

type EventHandler struct {
	service   eventService
	exporter  calendarWriter
	responder responder
	logger    *slog.Logger
}

// NewEventHandler constructs the event handler. exporter may be nil, in which
// case the iCalendar export answers 404.
func NewEventHandler(service eventService, exporter calendarWriter, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, exporter: exporter, responder: newResponder(base), logger: base}
}

func (h *EventHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, msgBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.CreateEvent(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al crear evento"})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createEventResponse{
		Success: true,
		Message: "Evento creado exitosamente",
		EventID: event.ID,
		Event:   toEventDTO(event),
	})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	query := r.URL.Query()
	filter := application.ListAll
	switch {
	case query.Get("upcoming") == "true":
		filter = application.ListUpcoming
	case query.Get("past") == "true":
		filter = application.ListPast
	}

	events, err := h.service.ListEvents(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al obtener eventos"})
		return
	}
	h.renderList(r.Context(), w, events)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	event, err := h.service.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound: msgEventNotFound,
			internal: "Error al obtener evento",
		})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Success: true, Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, msgBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.UpdateEvent(r.Context(), principal, r.PathValue("id"), req.toPatch())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound:  msgEventNotFound,
			forbidden: "No tienes permiso para editar este evento",
			internal:  "Error al actualizar evento",
		})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, updateEventResponse{
		Success: true,
		Message: "Evento actualizado exitosamente",
		Event:   toEventDTO(event),
	})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound:  msgEventNotFound,
			forbidden: "No tienes permiso para eliminar este evento",
			internal:  "Error al eliminar evento",
		})
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Success: true, Message: "Evento eliminado exitosamente"})
}

func (h *EventHandler) Attend(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.ConfirmAttendance(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound: msgEventNotFound,
			internal: "Error al confirmar asistencia",
		})
		return
	}
	metrics.AttendanceChanges.WithLabelValues("confirm").Inc()

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{
		Success:           true,
		Message:           "Asistencia confirmada exitosamente",
		ParticipantsCount: count,
	})
}

func (h *EventHandler) CancelAttendance(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	count, err := h.service.CancelAttendance(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound: msgEventNotFound,
			internal: "Error al cancelar asistencia",
		})
		return
	}
	metrics.AttendanceChanges.WithLabelValues("cancel").Inc()

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{
		Success:           true,
		Message:           "Asistencia cancelada",
		ParticipantsCount: count,
	})
}

func (h *EventHandler) MyOrganized(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, err := h.service.ListMyOrganizedEvents(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al obtener mis eventos"})
		return
	}
	h.renderList(r.Context(), w, events)
}

func (h *EventHandler) MyParticipating(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, err := h.service.ListMyParticipatingEvents(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{internal: "Error al obtener participaciones"})
		return
	}
	h.renderList(r.Context(), w, events)
}

// Calendar serves the event as a text/calendar attachment.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if h.exporter == nil {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, msgRouteNotFound)
		return
	}

	id := r.PathValue("id")
	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err, failureMessages{
			notFound: msgEventNotFound,
			internal: "Error al obtener evento",
		})
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, event); err != nil {
		handlerLogger(r.Context(), h.logger, "EventHandler", "Calendar", "event_id", id).
			ErrorContext(r.Context(), "failed to export calendar", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, "Error al exportar evento")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+calendar.Filename(event)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *EventHandler) renderList(ctx context.Context, w http.ResponseWriter, events []application.Event) {
	dtos := make([]eventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, listEventsResponse{
		Success: true,
		Count:   len(dtos),
		Events:  dtos,
	})
}

type createEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Category    string `json:"category"`
}

func (r createEventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Date:        strings.TrimSpace(r.Date),
		Time:        strings.TrimSpace(r.Time),
		Location:    r.Location,
		Category:    strings.TrimSpace(r.Category),
	}
}

// updateEventRequest leaves absent fields nil so they are not changed.
type updateEventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Location    *string `json:"location"`
	Category    *string `json:"category"`
	Status      *string `json:"status"`
}

func (r updateEventRequest) toPatch() application.EventPatch {
	return application.EventPatch{
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Time:        r.Time,
		Location:    r.Location,
		Category:    r.Category,
		Status:      r.Status,
	}
}

type participantDTO struct {
	UserID      string `json:"userId"`
	UserEmail   string `json:"userEmail"`
	ConfirmedAt string `json:"confirmedAt"`
}

type eventDTO struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Date           string           `json:"date"`
	Time           string           `json:"time"`
	Location       string           `json:"location"`
	Category       string           `json:"category"`
	OrganizerID    string           `json:"organizerId"`
	OrganizerEmail string           `json:"organizerEmail"`
	Participants   []participantDTO `json:"participants"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

func toEventDTO(event application.Event) eventDTO {
	participants := make([]participantDTO, 0, len(event.Participants))
	for _, p := range event.Participants {
		participants = append(participants, participantDTO{
			UserID:      p.UserID,
			UserEmail:   p.UserEmail,
			ConfirmedAt: formatTimestamp(p.ConfirmedAt),
		})
	}
	return eventDTO{
		ID:             event.ID,
		Title:          event.Title,
		Description:    event.Description,
		Date:           event.Date,
		Time:           event.Time,
		Location:       event.Location,
		Category:       event.Category,
		OrganizerID:    event.OrganizerID,
		OrganizerEmail: event.OrganizerEmail,
		Participants:   participants,
		Status:         event.Status,
		CreatedAt:      formatTimestamp(event.CreatedAt),
		UpdatedAt:      formatTimestamp(event.UpdatedAt),
	}
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(isoLayout)
}

type createEventResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	EventID string   `json:"eventId"`
	Event   eventDTO `json:"event"`
}

type eventResponse struct {
	Success bool     `json:"success"`
	Event   eventDTO `json:"event"`
}

type updateEventResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Event   eventDTO `json:"event"`
}

type listEventsResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Events  []eventDTO `json:"events"`
}

type attendanceResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	ParticipantsCount int    `json:"participantsCount"`
}
