package localstore

import "github.com/dangerclosesec/masteradmin/internal/model"

// Storage keys. Each holds one JSON document.
const (
	KeyCompanies           = "masterCompanies"
	KeyUsers               = "masterUsers"
	KeyAccessCodes         = "masterAccessCodes"
	KeyAnalytics           = "masterAnalytics"
	KeyPolicyGenerator     = "policyGeneratorConfig"
	KeyPolicies            = "masterPolicies"
	KeyEmailCampaigns      = "emailCampaigns"
	KeyOrganizations       = "organizations"
	KeyCategories          = "categories"
	KeyRoles               = "roles"
	KeyDisciplinaryActions = "disciplinaryActions"
)

var collectionKeys = map[model.Kind]string{
	model.KindCompany:    KeyCompanies,
	model.KindUser:       KeyUsers,
	model.KindAccessCode: KeyAccessCodes,
}

// CollectionKey returns the storage key of a kind's collection.
func CollectionKey(kind model.Kind) string {
	return collectionKeys[kind]
}

// KindForKey maps a storage key back to its kind.
func KindForKey(key string) (model.Kind, bool) {
	for kind, k := range collectionKeys {
		if k == key {
			return kind, true
		}
	}
	return "", false
}
