// internal/email/mailer/company_welcome.go
package mailer

import (
	"fmt"

	"github.com/dangerclosesec/masteradmin/internal/email"
)

const companyWelcomeTemplate = "company_welcome"

// Sender is satisfied by *email.Service.
type Sender interface {
	SendEmail(data email.EmailData) error
}

// CompanyWelcomeTemplateData contains data for the company welcome template
type CompanyWelcomeTemplateData struct {
	CompanyName   string
	AdminUsername string
	AdminPassword string
	AccessCode    string
	DashboardLink string
}

// SendCompanyWelcome sends the launch credentials to a new company's contact.
func SendCompanyWelcome(s Sender, to string, data CompanyWelcomeTemplateData) error {
	if to == "" {
		return fmt.Errorf("company %s has no contact email", data.CompanyName)
	}

	return s.SendEmail(email.EmailData{
		To:           to,
		Subject:      fmt.Sprintf("Your %s workspace is ready", data.CompanyName),
		TemplateName: companyWelcomeTemplate,
		TemplateData: data,
	})
}
