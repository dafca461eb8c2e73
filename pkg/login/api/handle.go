// Package api exposes the login service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/esoft-edu/campus-idm/pkg/login"
)

// Handler implements the login HTTP endpoints.
type Handler struct {
	service *login.Service
}

// NewHandler creates a new login API handler.
func NewHandler(service *login.Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the login endpoints on a fresh router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.LoginStaff)
	r.Post("/student", h.LoginStudent)
	return r
}

// StaffLoginRequest is the staff/admin login payload.
type StaffLoginRequest struct {
	StaffID    string `json:"staffId"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// StudentLoginRequest is the student login payload.
type StudentLoginRequest struct {
	ENumber    string `json:"eNumber"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is the success body for both login endpoints.
type LoginResponse struct {
	TokenType string                `json:"tokenType,omitempty"`
	Token     string                `json:"token,omitempty"`
	ExpiresIn int64                 `json:"expiresIn,omitempty"`
	Staff     *login.StaffSummary   `json:"staff,omitempty"`
	Student   *login.StudentSummary `json:"student,omitempty"`

	ForcePasswordChange   bool   `json:"forcePasswordChange,omitempty"`
	TemporarySessionToken string `json:"temporarySessionToken,omitempty"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginStaff handles POST /login.
func (h *Handler) LoginStaff(w http.ResponseWriter, r *http.Request) {
	var req StaffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.StaffID == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "staffId and password are required"})
		return
	}

	result, err := h.service.LoginStaff(r.Context(), req.StaffID, req.Password, req.RememberMe)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

// LoginStudent handles POST /login/student.
func (h *Handler) LoginStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ENumber == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "eNumber and password are required"})
		return
	}

	result, err := h.service.LoginStudent(r.Context(), req.ENumber, req.Password, req.RememberMe)
	if err != nil {
		h.renderLoginError(w, r, err)
		return
	}
	render.JSON(w, r, toResponse(result))
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, login.ErrInvalidCredentials):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, login.ErrNotApproved):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{Error: "Staff request not approved yet"})
	default:
		slog.Error("Login failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal server error"})
	}
}

func toResponse(result login.Result) LoginResponse {
	if result.ForcePasswordChange {
		return LoginResponse{
			ForcePasswordChange:   true,
			TemporarySessionToken: result.TemporarySessionToken,
		}
	}
	return LoginResponse{
		TokenType: result.TokenType,
		Token:     result.Token,
		ExpiresIn: result.ExpiresIn,
		Staff:     result.Staff,
		Student:   result.Student,
	}
}
