package authhandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"miluim/internal/domain/auth"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{Service: svc}
}

type tokenRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var req tokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, requestID) {
		return
	}

	token, err := h.Service.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		api.Fail(w, http.StatusNotFound, "auth_disabled", "authentication is not configured", requestID)
	case errors.Is(err, auth.ErrInvalidCredentials):
		zap.L().Warn("login failed", zap.String("requestId", requestID))
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
	case err != nil:
		zap.L().Error("token issue failed", zap.Error(err), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "token_failed", "token could not be issued", requestID)
	default:
		api.Success(w, token, requestID)
	}
}
