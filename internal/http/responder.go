package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/eventhub/internal/application"
)

const (
	msgBadRequestBody     = "Formato de solicitud inválido"
	msgMissingFields      = "Faltan campos requeridos"
	msgInvalidFields      = "Datos inválidos"
	msgAlreadyRegistered  = "Ya estás registrado en este evento"
	msgMissingToken       = "Token no proporcionado"
	msgInvalidToken       = "Token inválido"
	msgTokenRequired      = "Token requerido"
	msgInvalidOrExpired   = "Token inválido o expirado"
	msgRouteNotFound      = "Ruta no encontrada"
	msgStoreUnavailable   = "Almacenamiento no disponible"
	msgInternal           = "Error interno del servidor"
	msgEventNotFound      = "Evento no encontrado"
	msgNotificationAbsent = "Notificación no encontrada"
	msgNotAuthorized      = "No autorizado"
)

// failureMessages selects the user facing text for service failures of one
// operation. Empty fields fall back to generic messages.
type failureMessages struct {
	notFound  string
	forbidden string
	internal  string
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = localizedStatusMessage(status)
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error, messages failureMessages) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, messages.internal)
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		message := msgInvalidFields
		if vErr.MissingRequired {
			message = msgMissingFields
		}
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: message, Errors: vErr.FieldErrors})
	case errors.Is(err, application.ErrAlreadyRegistered):
		r.writeError(ctx, w, http.StatusBadRequest, msgAlreadyRegistered)
	case errors.Is(err, application.ErrUnauthenticated):
		r.writeError(ctx, w, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, application.ErrForbidden):
		r.writeError(ctx, w, http.StatusForbidden, messages.forbidden)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, messages.notFound)
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeError(ctx, w, http.StatusInternalServerError, messages.internal)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Solicitud inválida"
	case http.StatusUnauthorized:
		return msgInvalidToken
	case http.StatusForbidden:
		return msgNotAuthorized
	case http.StatusNotFound:
		return "Recurso no encontrado"
	case http.StatusServiceUnavailable:
		return msgStoreUnavailable
	default:
		return msgInternal
	}
}

type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
