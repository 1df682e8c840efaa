package notify

import (
	"context"

	"github.com/dangerclosesec/masteradmin/internal/email/mailer"
)

// EmailNotifier mails launch credentials to a new company's admin. Other
// event types are ignored.
type EmailNotifier struct {
	sender       mailer.Sender
	dashboardURL string
}

func NewEmailNotifier(sender mailer.Sender, dashboardURL string) *EmailNotifier {
	return &EmailNotifier{sender: sender, dashboardURL: dashboardURL}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) Notify(_ context.Context, e Event) error {
	if e.Type != EventCompanyLaunched {
		return nil
	}

	password, _ := e.Extra["adminPassword"].(string)
	if password == "" {
		password = e.Record.String("adminPassword")
	}

	return mailer.SendCompanyWelcome(n.sender, e.Record.String("adminEmail"), mailer.CompanyWelcomeTemplateData{
		CompanyName:   e.Record.String("name"),
		AdminUsername: e.Record.String("adminUsername"),
		AdminPassword: password,
		AccessCode:    e.Record.String("accessCode"),
		DashboardLink: n.dashboardURL,
	})
}
