package mailer

import (
	"testing"

	"github.com/dangerclosesec/masteradmin/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []email.EmailData
}

func (r *recordingSender) SendEmail(data email.EmailData) error {
	r.sent = append(r.sent, data)
	return nil
}

func TestSendCompanyWelcome(t *testing.T) {
	sender := &recordingSender{}

	err := SendCompanyWelcome(sender, "ops@acme.test", CompanyWelcomeTemplateData{
		CompanyName:   "Acme",
		AdminUsername: "acme_admin",
		AdminPassword: "Xy12ab34",
		AccessCode:    "LAUNCH2025",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "company_welcome", sender.sent[0].TemplateName)
	assert.Equal(t, "Your Acme workspace is ready", sender.sent[0].Subject)
}

func TestSendCompanyWelcomeNoRecipient(t *testing.T) {
	sender := &recordingSender{}

	err := SendCompanyWelcome(sender, "", CompanyWelcomeTemplateData{CompanyName: "Acme"})
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}
