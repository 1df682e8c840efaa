// internal/handler/auth.go
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/auth"
	"github.com/dangerclosesec/masteradmin/internal/domain"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type AuthHandler struct {
	admin *auth.Admin
}

func NewAuthHandler(admin *auth.Admin) *AuthHandler {
	return &AuthHandler{admin: admin}
}

type LoginStatus string

const (
	LoginStatusSuccess LoginStatus = "success"
	LoginStatusFailed  LoginStatus = "login_failed"
)

type LoginResponse struct {
	BaseResponse
	Status    LoginStatus `json:"status"`
	Email     string      `json:"email,omitempty"`
	Token     string      `json:"token,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input auth.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	output, err := h.admin.Login(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "master admin login error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			respondWithJSON(w, http.StatusUnauthorized, LoginResponse{
				Status: LoginStatusFailed,
				Error:  "Invalid email or password",
			})
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		Status:       LoginStatusSuccess,
		Email:        output.Email,
		Token:        output.Token,
		ExpiresAt:    &output.ExpiresAt,
	})
}

// LogoutHandler clears the token cookie. Bearer tokens stay valid until
// they expire.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", Expires: time.Now().Add(-time.Hour)})
	respondWithMessage(w, http.StatusOK, "Logged out")
}
