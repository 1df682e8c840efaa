package normalize

import (
	"strings"

	"github.com/dangerclosesec/masteradmin/internal/model"
)

type valueClass int

const (
	// classRaw keeps the value as-is. Used for ids, which may be numeric.
	classRaw valueClass = iota
	classString
	classNullable
	classInt
	classBool
	classStrings
)

// Field describes one logical attribute and every spelling it is known by.
type Field struct {
	Display   string
	Canonical string
	Aliases   []string
	class     valueClass
	def       func() any
	transform func(any) any
}

func (f Field) spellings() []string {
	out := []string{f.Display}
	if f.Canonical != f.Display {
		out = append(out, f.Canonical)
	}
	return append(out, f.Aliases...)
}

func field(display, canonical string, class valueClass, aliases ...string) Field {
	return Field{Display: display, Canonical: canonical, Aliases: aliases, class: class}
}

func (f Field) withDefault(fn func() any) Field {
	f.def = fn
	return f
}

func (f Field) withTransform(fn func(any) any) Field {
	f.transform = fn
	return f
}

func constant(v any) func() any {
	return func() any { return v }
}

func today() any {
	return now().Format("2006-01-02")
}

func emptyStrings() any {
	return []string{}
}

var companyFields = []Field{
	field("id", "id", classRaw),
	field("name", "name", classString),
	field("adminName", "admin_name", classString),
	field("adminEmail", "admin_email", classString),
	field("adminUsername", "admin_username", classString),
	field("adminPassword", "admin_password", classString),
	field("accessCode", "access_code", classString),
	field("status", "status", classString).withDefault(constant(model.StatusActive)),
	field("apiKey", "api_key", classString),
	field("webhookAdvisorUrl", "webhook_advisor_url", classString),
	field("webhookGeneratorUrl", "webhook_generator_url", classString),
	field("webhookSummarizerUrl", "webhook_summarizer_url", classString),
	field("webhookEmailUrl", "webhook_email_url", classString),
	field("signupDate", "signup_date", classString, "created_at").withDefault(today),
	field("lastActive", "last_active", classString),
	field("users", "users", classInt),
	field("policies", "policies", classInt),
}

var userFields = []Field{
	field("id", "id", classRaw),
	field("username", "username", classString),
	field("email", "email", classString),
	field("fullName", "full_name", classString),
	field("company", "company", classString),
	field("companyId", "company_id", classString),
	field("role", "role", classString).withDefault(constant(model.RoleUser)).withTransform(lowerString),
	field("isAdmin", "is_admin", classBool),
	field("status", "status", classString).withDefault(constant(model.StatusActive)),
	field("accessCode", "access_code", classString),
	field("password", "password", classString),
	field("created", "created_at", classString, "createdDate").withDefault(today),
	field("lastLogin", "last_login_at", classNullable, "last_login", "lastLoginDate"),
}

var accessCodeFields = []Field{
	field("id", "id", classRaw),
	field("code", "code", classString),
	field("description", "description", classString),
	field("createdDate", "created_date", classString, "created_at").withDefault(today),
	field("expiryDate", "expiry_date", classNullable),
	field("maxCompanies", "max_companies", classInt).withDefault(constant(10)),
	field("usedBy", "used_by", classStrings).withDefault(emptyStrings),
	field("status", "status", classString).withDefault(constant(model.StatusActive)),
}

var fieldsByKind = map[model.Kind][]Field{
	model.KindCompany:    companyFields,
	model.KindUser:       userFields,
	model.KindAccessCode: accessCodeFields,
}

// Fields returns the known fields of a kind.
func Fields(kind model.Kind) []Field {
	return fieldsByKind[kind]
}

// Present reports, by display name, which known fields r carries under any
// spelling. Values are not inspected, so an explicit "" or false counts.
func Present(r model.Record, kind model.Kind) map[string]bool {
	fields := fieldsByKind[kind]
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		for _, name := range f.spellings() {
			if _, ok := r[name]; ok {
				out[f.Display] = true
				break
			}
		}
	}
	return out
}

// SequenceFields returns the sequence-valued fields of a kind.
func SequenceFields(kind model.Kind) []Field {
	var out []Field
	for _, f := range fieldsByKind[kind] {
		if f.class == classStrings {
			out = append(out, f)
		}
	}
	return out
}

func lowerString(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeRole maps any spelling of a role onto user or admin.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), model.RoleAdmin) {
		return model.RoleAdmin
	}
	return model.RoleUser
}
