// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Remote store errors
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrEmptyResponse     = errors.New("remote store returned no record")

	// Access code errors. The *NotFound variants wrap ErrNotFound.
	ErrAccessCodeNotFound  = fmt.Errorf("access code %w", ErrNotFound)
	ErrDuplicateAccessCode = errors.New("access code already exists")
	ErrNoActiveAccessCode  = errors.New("no active access code")

	// Company errors
	ErrCompanyNotFound     = fmt.Errorf("company %w", ErrNotFound)
	ErrPasswordsDoNotMatch = errors.New("passwords do not match")
	ErrPasswordTooWeak     = errors.New("password too weak")

	// User errors
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)
