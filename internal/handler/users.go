package handler

import (
	"net/http"

	"github.com/dangerclosesec/masteradmin/internal/service"
)

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Users())
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.User(pathID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input service.CreateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	created, err := h.engine.CreateUser(r.Context(), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateUserInput
	if !decodeJSON(w, r, &input) {
		return
	}
	updated, err := h.engine.UpdateUser(r.Context(), pathID(r), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

type RoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) ChangeUserRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.engine.ChangeUserRole(r.Context(), pathID(r), req.Role)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) ToggleUserAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminFlagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.engine.ToggleUserAdmin(r.Context(), pathID(r), req.IsAdmin)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteUser(r.Context(), pathID(r)); err != nil {
		handleError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "User deleted")
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *AdminHandler) BulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.engine.BulkDeleteUsers(r.Context(), req.IDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BulkResponse{BaseResponse: BaseResponse{Ok: true}, Count: n})
}
