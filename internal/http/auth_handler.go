package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/eventhub/internal/application"
)

type authService interface {
	Verify(ctx context.Context, token string) (application.Identity, error)
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Verify checks the token in the request body and returns the verified profile.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, msgBadRequestBody)
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, msgTokenRequired)
		return
	}

	identity, err := h.service.Verify(r.Context(), token)
	if err != nil {
		logger := h.log(r.Context(), "Verify")
		if errors.Is(err, application.ErrUnauthenticated) {
			logger.WarnContext(r.Context(), "token rejected", "error", err, "error_kind", application.ErrorKind(err))
		} else {
			logger.ErrorContext(r.Context(), "token verification failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, msgInvalidOrExpired)
		return
	}

	h.log(r.Context(), "Verify", "user_id", identity.UserID).InfoContext(r.Context(), "user authenticated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, verifyResponse{
		Success: true,
		Message: "Usuario autenticado correctamente",
		User: verifiedUserDTO{
			UID:         identity.UserID,
			Email:       identity.Email,
			DisplayName: identity.Name,
			PhotoURL:    identity.Picture,
			Provider:    identity.Provider,
		},
	})
}

// Profile returns the authenticated principal.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, msgMissingToken)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{
		Success: true,
		User: profileDTO{
			UID:   principal.UserID,
			Email: principal.Email,
			Name:  principal.Name,
		},
	})
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifiedUserDTO struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Provider    string `json:"provider"`
}

type verifyResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    verifiedUserDTO `json:"user"`
}

type profileDTO struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type profileResponse struct {
	Success bool       `json:"success"`
	User    profileDTO `json:"user"`
}
