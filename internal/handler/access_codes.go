package handler

import (
	"net/http"

	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/service"
)

func (h *AdminHandler) ListAccessCodes(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.AccessCodes())
}

func (h *AdminHandler) ListActiveAccessCodes(w http.ResponseWriter, r *http.Request) {
	codes := h.engine.ActiveAccessCodes()
	if codes == nil {
		codes = []model.Record{}
	}
	respondWithJSON(w, http.StatusOK, codes)
}

// FindAccessCode looks a code up by its token (?code=).
func (h *AdminHandler) FindAccessCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "code is required")
		return
	}
	found, err := h.engine.FindAccessCode(r.Context(), code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}

func (h *AdminHandler) CreateAccessCode(w http.ResponseWriter, r *http.Request) {
	var input service.CreateAccessCodeInput
	if !decodeJSON(w, r, &input) {
		return
	}
	created, err := h.engine.CreateAccessCode(r.Context(), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) UpdateAccessCode(w http.ResponseWriter, r *http.Request) {
	var input service.UpdateAccessCodeInput
	if !decodeJSON(w, r, &input) {
		return
	}
	updated, err := h.engine.UpdateAccessCode(r.Context(), pathID(r), input)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteAccessCode(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteAccessCode(r.Context(), pathID(r)); err != nil {
		handleError(w, r, err)
		return
	}
	respondWithMessage(w, http.StatusOK, "Access code deleted")
}
