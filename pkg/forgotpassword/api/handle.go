// Package api exposes the forgot-password flow over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/esoft-edu/campus-idm/pkg/forgotpassword"
	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

// Handler implements the forgot-password HTTP endpoints.
type Handler struct {
	service *forgotpassword.Service
}

// NewHandler creates a new forgot-password API handler.
func NewHandler(service *forgotpassword.Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the three flow steps on a fresh router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/request", h.RequestCode)
	r.Post("/verify", h.VerifyCode)
	r.Post("/reset", h.SetNewPassword)
	return r
}

type RequestCodeRequest struct {
	Email string `json:"email"`
}

type RequestCodeResponse struct {
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken"`
	ExpiresInSeconds  int    `json:"expiresInSeconds"`
}

type VerifyCodeRequest struct {
	VerificationToken string `json:"verificationToken"`
	VerificationCode  string `json:"verificationCode"`
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

// RequestCode handles POST /request.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "email is required"})
		return
	}

	result, err := h.service.RequestCode(r.Context(), req.Email)
	if err != nil {
		renderFlowError(w, r, err)
		return
	}

	render.JSON(w, r, RequestCodeResponse{
		Message:           "Verification code sent to your email",
		VerificationToken: result.VerificationToken,
		ExpiresInSeconds:  result.ExpiresInSeconds,
	})
}

// VerifyCode handles POST /verify.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VerificationToken == "" || req.VerificationCode == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "verificationToken and verificationCode are required"})
		return
	}

	resetToken, err := h.service.VerifyCode(r.Context(), req.VerificationToken, req.VerificationCode)
	if err != nil {
		renderFlowError(w, r, err)
		return
	}

	render.JSON(w, r, VerifyCodeResponse{
		Message:    "Code verified successfully",
		ResetToken: resetToken,
	})
}

// SetNewPassword handles POST /reset.
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
		Message: "Password reset successfully. Please log in with your new password.",
	})
}

// renderFlowError maps flow errors onto status codes: token problems
// are 401, user-correctable ones are 400, everything else is internal.
func renderFlowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tokens.ErrInvalidToken), errors.Is(err, tokens.ErrWrongPurpose):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Invalid or expired token"})
	case errors.Is(err, forgotpassword.ErrEmailNotFound):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email not found"})
	case errors.Is(err, forgotpassword.ErrUserNotFound):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "User not found"})
	case errors.Is(err, forgotpassword.ErrPasswordMismatch):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Passwords do not match"})
	case errors.Is(err, passcode.ErrNoCodeIssued):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "No verification code found"})
	case errors.Is(err, passcode.ErrCodeExpired):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Verification code has expired"})
	case errors.Is(err, passcode.ErrLockedOut):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Too many failed attempts. Request new code."})
	case errors.Is(err, passcode.ErrInvalidCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid verification code"})
	default:
		slog.Error("Forgot-password step failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal server error"})
	}
}
