package handler

import (
	"net/http"

	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/service"
)

func (h *AdminHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Companies())
}

func (h *AdminHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.engine.Company(pathID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, company)
}

// FindCompany looks a company up by its exact name (?name=).
func (h *AdminHandler) FindCompany(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	company, err := h.engine.FindCompanyByName(r.Context(), name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, company)
}

// LaunchCompany creates a company and its admin user against an access
// code. The generated admin password is only ever returned here.
func (h *AdminHandler) LaunchCompany(w http.ResponseWriter, r *http.Request) {
	var input service.LaunchCompanyInput
	if !decodeJSON(w, r, &input) {
		return
	}
	result, err := h.engine.LaunchCompany(r.Context(), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *AdminHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var changes model.Record
	if !decodeJSON(w, r, &changes) {
		return
	}
	updated, err := h.engine.UpdateCompany(r.Context(), pathID(r), changes)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) SetCompanyPassword(w http.ResponseWriter, r *http.Request) {
	var input service.SetCompanyPasswordInput
	if !decodeJSON(w, r, &input) {
		return
	}
	updated, err := h.engine.SetCompanyPassword(r.Context(), pathID(r), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

type APIKeyRequest struct {
	APIKey string `json:"apiKey"`
}

func (h *AdminHandler) SetCompanyAPIKey(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.engine.SetCompanyAPIKey(r.Context(), pathID(r), req.APIKey)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) SetCompanyWebhooks(w http.ResponseWriter, r *http.Request) {
	var hooks service.CompanyWebhooks
	if !decodeJSON(w, r, &hooks) {
		return
	}
	updated, err := h.engine.SetCompanyWebhooks(r.Context(), pathID(r), hooks)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) ToggleCompanySuspension(w http.ResponseWriter, r *http.Request) {
	updated, err := h.engine.ToggleCompanySuspension(r.Context(), pathID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

type AdminFlagRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

type BulkResponse struct {
	BaseResponse
	Count int `json:"count"`
}

func (h *AdminHandler) BulkSetCompanyAdmins(w http.ResponseWriter, r *http.Request) {
	var req AdminFlagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.engine.BulkSetCompanyAdmins(r.Context(), pathID(r), req.IsAdmin)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, BulkResponse{BaseResponse: BaseResponse{Ok: true}, Count: n})
}
