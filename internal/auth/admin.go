// internal/auth/admin.go
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/domain"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginOutput struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Admin authenticates the single master admin configured for the process.
type Admin struct {
	email        string
	passwordHash string
	hasher       *PasswordHasher
	tokens       *TokenManager
}

func NewAdmin(email, passwordHash string, hasher *PasswordHasher, tokens *TokenManager) *Admin {
	return &Admin{
		email:        strings.TrimSpace(email),
		passwordHash: passwordHash,
		hasher:       hasher,
		tokens:       tokens,
	}
}

// Configured reports whether login is possible at all.
func (a *Admin) Configured() bool {
	return a.email != "" && a.passwordHash != ""
}

func (a *Admin) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if !a.Configured() {
		return nil, domain.ErrInvalidCredentials
	}

	email := strings.TrimSpace(input.Email)
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(a.email))) == 1

	// Verify even on a wrong email so both failures take the same time.
	verified, err := a.hasher.Verify(input.Password, a.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !emailOK || !verified {
		slog.WarnContext(ctx, "master admin login failed", "email", email)
		return nil, domain.ErrInvalidCredentials
	}

	token, err := a.tokens.Generate(a.email)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &LoginOutput{
		Email:     a.email,
		Token:     token,
		ExpiresAt: time.Now().Add(a.tokens.ExpiresIn()).UTC(),
	}, nil
}
