// Package api exposes the temporary-password flow over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/temppassword"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

// Handler implements the temporary-password HTTP endpoints.
type Handler struct {
	service *temppassword.Service
}

// NewHandler creates a new temporary-password API handler.
func NewHandler(service *temppassword.Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the three flow steps on a fresh router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/send-code", h.SendCode)
	r.Post("/verify-code", h.VerifyCode)
	r.Post("/set-new-password", h.SetNewPassword)
	return r
}

type SendCodeRequest struct {
	TemporarySessionToken string `json:"temporarySessionToken"`
}

type SendCodeResponse struct {
	Message          string `json:"message"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

type VerifyCodeRequest struct {
	TemporarySessionToken string `json:"temporarySessionToken"`
	Code                  string `json:"code"`
}

type VerifyCodeResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type SetNewPasswordRequest struct {
	ResetToken         string `json:"resetToken"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SendCode handles POST /send-code.
func (h *Handler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemporarySessionToken == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "temporarySessionToken is required"})
		return
	}

	result, err := h.service.SendCode(r.Context(), req.TemporarySessionToken)
	if err != nil {
		renderFlowError(w, r, err)
		return
	}

	render.JSON(w, r, SendCodeResponse{
		Message:          "Verification code sent to your email",
		ExpiresInSeconds: result.ExpiresInSeconds,
	})
}

// VerifyCode handles POST /verify-code.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemporarySessionToken == "" || req.Code == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "temporarySessionToken and code are required"})
		return
	}

	resetToken, err := h.service.VerifyCode(r.Context(), req.TemporarySessionToken, req.Code)
	if err != nil {
		renderFlowError(w, r, err)
		return
	}

	render.JSON(w, r, VerifyCodeResponse{
		Message:    "Code verified successfully",
		ResetToken: resetToken,
	})
}

// SetNewPassword handles POST /set-new-password.
func (h *Handler) SetNewPassword(w http.ResponseWriter, r *http.Request) {
	var req SetNewPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	err := h.service.SetNewPassword(r.Context(), req.ResetToken, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		renderFlowError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{
		Message: "Password updated. Please sign in with your new password.",
	})
}

func renderFlowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tokens.ErrInvalidToken), errors.Is(err, tokens.ErrWrongPurpose):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Invalid or expired temporary session"})
	case errors.Is(err, temppassword.ErrNotRequired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Temporary password not required"})
	case errors.Is(err, temppassword.ErrUserNotFound):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "User not found"})
	case errors.Is(err, temppassword.ErrPasswordMismatch):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Passwords do not match"})
	case errors.Is(err, passcode.ErrNoCodeIssued):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "No code to verify"})
	case errors.Is(err, passcode.ErrCodeExpired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Code expired"})
	case errors.Is(err, passcode.ErrLockedOut):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Too many failed attempts. Request new code."})
	case errors.Is(err, passcode.ErrInvalidCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid code"})
	default:
		slog.Error("Temporary-password step failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal server error"})
	}
}
