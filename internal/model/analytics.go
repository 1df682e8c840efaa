package model

// Analytics is the aggregate persisted next to the collections after every
// change.
type Analytics struct {
	TotalCompanies   int    `json:"totalCompanies"`
	ActiveCompanies  int    `json:"activeCompanies"`
	TotalUsers       int    `json:"totalUsers"`
	TotalPolicies    int    `json:"totalPolicies"`
	TotalAccessCodes int    `json:"totalAccessCodes"`
	ActiveCodes      int    `json:"activeCodes"`
	UpdatedAt        string `json:"updatedAt"`
}
