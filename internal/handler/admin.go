// internal/handler/admin.go
package handler

import (
	"net/http"
	"strings"

	"github.com/dangerclosesec/masteradmin/internal/service"
	"github.com/go-chi/chi/v5"
)

// AdminHandler exposes the reconciliation engine to the admin console.
type AdminHandler struct {
	engine *service.Engine
}

func NewAdminHandler(engine *service.Engine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

// Routes registers the JSON endpoints. The event stream is registered
// separately because it must not run under a request timeout.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/snapshot", h.Snapshot)
	r.Get("/analytics", h.Analytics)
	r.Post("/sync", h.Sync)

	r.Route("/access-codes", func(r chi.Router) {
		r.Get("/", h.ListAccessCodes)
		r.Post("/", h.CreateAccessCode)
		r.Get("/active", h.ListActiveAccessCodes)
		r.Get("/lookup", h.FindAccessCode)
		r.Put("/{id}", h.UpdateAccessCode)
		r.Delete("/{id}", h.DeleteAccessCode)
	})

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.ListCompanies)
		r.Post("/", h.LaunchCompany)
		r.Get("/lookup", h.FindCompany)
		r.Get("/{id}", h.GetCompany)
		r.Put("/{id}", h.UpdateCompany)
		r.Put("/{id}/password", h.SetCompanyPassword)
		r.Put("/{id}/api-key", h.SetCompanyAPIKey)
		r.Put("/{id}/webhooks", h.SetCompanyWebhooks)
		r.Post("/{id}/suspension", h.ToggleCompanySuspension)
		r.Put("/{id}/admins", h.BulkSetCompanyAdmins)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Post("/bulk-delete", h.BulkDeleteUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Put("/{id}/role", h.ChangeUserRole)
		r.Put("/{id}/admin", h.ToggleUserAdmin)
		r.Delete("/{id}", h.DeleteUser)
	})
}

func (h *AdminHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Snapshot(r.Context()))
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.Analytics(r.Context()))
}

type SyncResponse struct {
	BaseResponse
	Backend string            `json:"backend"`
	States  map[string]string `json:"states"`
}

// Sync runs a full reconciliation pass against the remote store.
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reconcile(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SyncResponse{
		BaseResponse: BaseResponse{Ok: true},
		Backend:      h.engine.Backend(),
		States:       h.engine.States(),
	})
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
