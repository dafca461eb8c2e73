// Package api exposes onboarding over HTTP: staff requests, admin
// approval and student registration.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/signup"
)

// Handler implements the onboarding HTTP endpoints.
type Handler struct {
	service *signup.Service
}

// NewHandler creates a new signup API handler.
func NewHandler(service *signup.Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the onboarding endpoints on a fresh router.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/staff-request", h.SubmitStaffRequest)
	r.Post("/staff-request/{id}/approve", h.ApproveStaffRequest)
	r.Delete("/staff/{id}", h.DeleteStaff)
	r.Post("/students/register", h.RegisterStudent)
	return r
}

type StaffRequestRequest struct {
	StaffID  string `json:"staffId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type StaffResponse struct {
	ID       string `json:"id"`
	StaffID  string `json:"staffId"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
}

type StudentRegisterRequest struct {
	ENumber  string `json:"eNumber"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type StudentResponse struct {
	ID       string `json:"id"`
	ENumber  string `json:"eNumber"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitStaffRequest handles POST /staff-request.
func (h *Handler) SubmitStaffRequest(w http.ResponseWriter, r *http.Request) {
	var req StaffRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.StaffID == "" || req.FullName == "" || req.Email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "staffId, fullName and email are required"})
		return
	}

	params := signup.StaffRequestParams{}
	copier.Copy(&params, &req)
	params.Role = identity.Role(req.Role)

	account, err := h.service.SubmitStaffRequest(r.Context(), params)
	if err != nil {
		renderSignupError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toStaffResponse(account))
}

// ApproveStaffRequest handles POST /staff-request/{id}/approve.
func (h *Handler) ApproveStaffRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid id"})
		return
	}

	account, err := h.service.ApproveStaffRequest(r.Context(), id)
	if err != nil {
		renderSignupError(w, r, err)
		return
	}

	render.JSON(w, r, toStaffResponse(account))
}

// DeleteStaff handles DELETE /staff/{id}.
func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid id"})
		return
	}

	if err := h.service.DeleteStaff(r.Context(), id); err != nil {
		renderSignupError(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Staff account deleted"})
}

// RegisterStudent handles POST /students/register.
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ENumber == "" || req.FullName == "" || req.Email == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "eNumber, fullName, email and password are required"})
		return
	}

	params := signup.StudentParams{}
	copier.Copy(&params, &req)

	account, err := h.service.RegisterStudent(r.Context(), params)
	if err != nil {
		renderSignupError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, StudentResponse{
		ID:       account.ID.String(),
		ENumber:  account.ENumber,
		FullName: account.FullName,
		Email:    account.Email,
	})
}

func renderSignupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrDuplicate):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "Account already exists"})
	case errors.Is(err, identity.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "Account not found"})
	case errors.Is(err, signup.ErrAlreadyApproved):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Error: "Staff request already approved"})
	case errors.Is(err, signup.ErrInvalidRole):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid role"})
	default:
		slog.Error("Signup operation failed", "err", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Internal server error"})
	}
}

func toStaffResponse(account identity.StaffAccount) StaffResponse {
	return StaffResponse{
		ID:       account.ID.String(),
		StaffID:  account.StaffID,
		FullName: account.FullName,
		Email:    account.Email,
		Role:     string(account.Role),
		Approved: account.Approved,
	}
}
