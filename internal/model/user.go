// internal/model/user.go
package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the typed read view of a user record. Role and IsAdmin are
// independent flags and are not kept in sync with each other.
type User struct {
	ID         ID      `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FullName   string  `json:"fullName"`
	Company    string  `json:"company"`
	CompanyID  string  `json:"companyId"`
	Role       string  `json:"role"`
	IsAdmin    bool    `json:"isAdmin"`
	Status     string  `json:"status"`
	AccessCode string  `json:"accessCode"`
	Password   string  `json:"password,omitempty"`
	Created    string  `json:"created"`
	LastLogin  *string `json:"lastLogin"`
}
