// internal/remote/table.go
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/model"
	"github.com/dangerclosesec/masteradmin/internal/normalize"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type companyRow struct {
	ID                   model.ID  `gorm:"column:id;primaryKey;size:128" json:"id"`
	Name                 string    `gorm:"column:name;index" json:"name"`
	AdminName            string    `gorm:"column:admin_name" json:"admin_name"`
	AdminEmail           string    `gorm:"column:admin_email" json:"admin_email"`
	AdminUsername        string    `gorm:"column:admin_username" json:"admin_username"`
	AdminPassword        string    `gorm:"column:admin_password" json:"admin_password"`
	AccessCode           string    `gorm:"column:access_code" json:"access_code"`
	Status               string    `gorm:"column:status" json:"status"`
	APIKey               string    `gorm:"column:api_key" json:"api_key"`
	WebhookAdvisorURL    string    `gorm:"column:webhook_advisor_url" json:"webhook_advisor_url"`
	WebhookGeneratorURL  string    `gorm:"column:webhook_generator_url" json:"webhook_generator_url"`
	WebhookSummarizerURL string    `gorm:"column:webhook_summarizer_url" json:"webhook_summarizer_url"`
	WebhookEmailURL      string    `gorm:"column:webhook_email_url" json:"webhook_email_url"`
	SignupDate           string    `gorm:"column:signup_date" json:"signup_date"`
	LastActive           string    `gorm:"column:last_active" json:"last_active"`
	Users                int       `gorm:"column:users" json:"users"`
	Policies             int       `gorm:"column:policies" json:"policies"`
	InsertedAt           time.Time `gorm:"column:inserted_at;autoCreateTime" json:"-"`
}

func (companyRow) TableName() string { return "companies" }

type userRow struct {
	ID         model.ID  `gorm:"column:id;primaryKey;size:128" json:"id"`
	Username   string    `gorm:"column:username;index" json:"username"`
	Email      string    `gorm:"column:email;index" json:"email"`
	FullName   string    `gorm:"column:full_name" json:"full_name"`
	Company    string    `gorm:"column:company" json:"company"`
	CompanyID  string    `gorm:"column:company_id;index" json:"company_id"`
	Role       string    `gorm:"column:role" json:"role"`
	IsAdmin    bool      `gorm:"column:is_admin" json:"is_admin"`
	Status     string    `gorm:"column:status" json:"status"`
	AccessCode string    `gorm:"column:access_code" json:"access_code"`
	Password   string    `gorm:"column:password" json:"password"`
	Created    string    `gorm:"column:created_at" json:"created_at"`
	LastLogin  *string   `gorm:"column:last_login_at" json:"last_login_at"`
	InsertedAt time.Time `gorm:"column:inserted_at;autoCreateTime" json:"-"`
}

func (userRow) TableName() string { return "profiles" }

type accessCodeRow struct {
	ID           model.ID       `gorm:"column:id;primaryKey;size:128" json:"id"`
	Code         string         `gorm:"column:code;index" json:"code"`
	Description  string         `gorm:"column:description" json:"description"`
	CreatedDate  string         `gorm:"column:created_date" json:"created_date"`
	ExpiryDate   *string        `gorm:"column:expiry_date" json:"expiry_date"`
	MaxCompanies int            `gorm:"column:max_companies" json:"max_companies"`
	UsedBy       datatypes.JSON `gorm:"column:used_by" json:"used_by"`
	Status       string         `gorm:"column:status" json:"status"`
	InsertedAt   time.Time      `gorm:"column:inserted_at;autoCreateTime" json:"-"`
}

func (accessCodeRow) TableName() string { return "access_codes" }

// TableClient reads and writes the remote tables directly through gorm.
type TableClient struct {
	db *gorm.DB
}

func NewTableClient(db *gorm.DB) *TableClient {
	return &TableClient{db: db}
}

func (c *TableClient) Name() string {
	return "database"
}

// Migrate creates or updates the three tables.
func (c *TableClient) Migrate(ctx context.Context) error {
	if err := c.db.WithContext(ctx).AutoMigrate(&companyRow{}, &userRow{}, &accessCodeRow{}); err != nil {
		return fmt.Errorf("migrating remote tables: %w", err)
	}
	return nil
}

// table is the generic implementation shared by the three row types.
type table[R any] struct {
	db   *gorm.DB
	kind model.Kind
}

func (t table[R]) list(ctx context.Context) ([]model.Record, error) {
	var rows []R
	if err := t.db.WithContext(ctx).Order("inserted_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.kind, err)
	}
	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		r, err := t.toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t table[R]) create(ctx context.Context, r model.Record) (model.Record, error) {
	rec := normalize.Normalize(r, t.kind)
	if rec.ID() == "" {
		rec["id"] = NewID(t.kind)
	}
	row, err := model.Decode[R](normalize.ToCanonical(rec, t.kind))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", t.kind, err)
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("creating %s: %w", t.kind, err)
	}
	return t.toRecord(row)
}

func (t table[R]) update(ctx context.Context, id string, patch model.Record) (model.Record, error) {
	columns, err := t.columns(patch)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		res := t.db.WithContext(ctx).Model(new(R)).Where("id = ?", id).Updates(columns)
		if res.Error != nil {
			return nil, fmt.Errorf("updating %s %s: %w", t.kind, id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, notFound(t.kind)
		}
	}
	return t.first(ctx, "id = ?", id)
}

func (t table[R]) delete(ctx context.Context, id string) error {
	res := t.db.WithContext(ctx).Where("id = ?", id).Delete(new(R))
	if res.Error != nil {
		return fmt.Errorf("deleting %s %s: %w", t.kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(t.kind)
	}
	return nil
}

func (t table[R]) first(ctx context.Context, query string, args ...any) (model.Record, error) {
	var row R
	err := t.db.WithContext(ctx).Where(query, args...).Order("inserted_at, id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(t.kind)
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", t.kind, err)
	}
	return t.toRecord(row)
}

func (t table[R]) toRecord(row R) (model.Record, error) {
	r, err := model.Encode(row)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", t.kind, err)
	}
	return normalize.Normalize(r, t.kind), nil
}

// columns maps a patch onto column values. Unknown fields are dropped since
// the tables have no place to keep them.
func (t table[R]) columns(patch model.Record) (map[string]any, error) {
	expanded := normalize.Patch(patch, t.kind)
	out := make(map[string]any)
	for _, f := range normalize.Fields(t.kind) {
		if f.Canonical == "id" {
			continue
		}
		v, ok := expanded[f.Canonical]
		if !ok {
			continue
		}
		if list, isList := v.([]string); isList {
			data, err := json.Marshal(list)
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", f.Canonical, err)
			}
			v = datatypes.JSON(data)
		}
		out[f.Canonical] = v
	}
	return out, nil
}

func (c *TableClient) users() table[userRow] {
	return table[userRow]{db: c.db, kind: model.KindUser}
}

func (c *TableClient) companies() table[companyRow] {
	return table[companyRow]{db: c.db, kind: model.KindCompany}
}

func (c *TableClient) accessCodes() table[accessCodeRow] {
	return table[accessCodeRow]{db: c.db, kind: model.KindAccessCode}
}

func (c *TableClient) GetUsers(ctx context.Context) ([]model.Record, error) {
	return c.users().list(ctx)
}

func (c *TableClient) CreateUser(ctx context.Context, user model.Record) (model.Record, error) {
	return c.users().create(ctx, user)
}

func (c *TableClient) UpdateUser(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.users().update(ctx, id, updates)
}

func (c *TableClient) DeleteUser(ctx context.Context, id string) error {
	return c.users().delete(ctx, id)
}

func (c *TableClient) GetCompanies(ctx context.Context) ([]model.Record, error) {
	return c.companies().list(ctx)
}

func (c *TableClient) CreateCompany(ctx context.Context, company model.Record) (model.Record, error) {
	return c.companies().create(ctx, company)
}

func (c *TableClient) FindCompanyByName(ctx context.Context, name string) (model.Record, error) {
	return c.companies().first(ctx, "name = ?", name)
}

func (c *TableClient) UpdateCompany(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.companies().update(ctx, id, updates)
}

func (c *TableClient) DeleteCompany(ctx context.Context, id string) error {
	return c.companies().delete(ctx, id)
}

func (c *TableClient) GetAccessCodes(ctx context.Context) ([]model.Record, error) {
	return c.accessCodes().list(ctx)
}

func (c *TableClient) CreateAccessCode(ctx context.Context, code model.Record) (model.Record, error) {
	return c.accessCodes().create(ctx, code)
}

func (c *TableClient) UpdateAccessCode(ctx context.Context, id string, updates model.Record) (model.Record, error) {
	return c.accessCodes().update(ctx, id, updates)
}

func (c *TableClient) DeleteAccessCode(ctx context.Context, id string) error {
	return c.accessCodes().delete(ctx, id)
}

// FindAccessCodeByCode applies the same two-phase match as MatchAccessCode,
// pushed down to SQL.
func (c *TableClient) FindAccessCodeByCode(ctx context.Context, code string) (model.Record, error) {
	term := strings.TrimSpace(code)
	upper := strings.ToUpper(term)
	active := "(status = ? OR status = '' OR status IS NULL)"

	t := c.accessCodes()
	r, err := t.first(ctx, "(code = ? OR code = ?) AND "+active, term, upper, model.StatusActive)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, notFound(model.KindAccessCode)) {
		return nil, err
	}
	return t.first(ctx, "UPPER(code) = ? AND "+active, upper, model.StatusActive)
}
