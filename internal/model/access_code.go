// internal/model/access_code.go
package model

// AccessCode is the typed read view of an access code record.
type AccessCode struct {
	ID           ID       `json:"id"`
	Code         string   `json:"code"`
	Description  string   `json:"description"`
	CreatedDate  string   `json:"createdDate"`
	ExpiryDate   *string  `json:"expiryDate"`
	MaxCompanies int      `json:"maxCompanies"`
	UsedBy       []string `json:"usedBy"`
	Status       string   `json:"status"`
}

// Active reports whether the code is enabled. A missing status counts as active.
func (c AccessCode) Active() bool {
	return c.Status == "" || c.Status == StatusActive
}

// Available reports whether another company may be launched with this code.
func (c AccessCode) Available() bool {
	return c.Active() && len(c.UsedBy) < c.MaxCompanies
}

// Remaining is the number of launches left before the code is exhausted.
func (c AccessCode) Remaining() int {
	if n := c.MaxCompanies - len(c.UsedBy); n > 0 {
		return n
	}
	return 0
}
