// internal/model/company.go
package model

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusInactive  = "inactive"
)

// Company is the typed read view of a company record.
type Company struct {
	ID                   ID     `json:"id"`
	Name                 string `json:"name"`
	AdminName            string `json:"adminName"`
	AdminEmail           string `json:"adminEmail"`
	AdminUsername        string `json:"adminUsername"`
	AdminPassword        string `json:"adminPassword"`
	AccessCode           string `json:"accessCode"`
	Status               string `json:"status"`
	APIKey               string `json:"apiKey"`
	WebhookAdvisorURL    string `json:"webhookAdvisorUrl"`
	WebhookGeneratorURL  string `json:"webhookGeneratorUrl"`
	WebhookSummarizerURL string `json:"webhookSummarizerUrl"`
	WebhookEmailURL      string `json:"webhookEmailUrl"`
	SignupDate           string `json:"signupDate"`
	LastActive           string `json:"lastActive"`
	Users                int    `json:"users"`
	Policies             int    `json:"policies"`
}

// Suspended reports whether the company has been suspended.
func (c Company) Suspended() bool {
	return c.Status == StatusSuspended
}
