package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Backend is a persistent string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Watcher is implemented by backends that push change notifications. Watch
// returns once the subscription is live and calls fn with each changed key
// until ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, fn func(key string)) error
}

type entry struct {
	Key       string `gorm:"column:storage_key;primaryKey;size:191"`
	Value     string `gorm:"column:value;type:text"`
	UpdatedAt time.Time
}

func (entry) TableName() string {
	return "local_storage"
}

// GormBackend keeps values in a single table of any gorm dialect.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend migrates the storage table and returns the backend.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if db == nil {
		return nil, errors.New("localstore: nil database")
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrating local storage: %w", err)
	}
	return &GormBackend{db: db}, nil
}

// OpenSQLite opens an embedded SQLite database at path. A single connection
// is kept open so that writers queue instead of failing with a locked table,
// and so that ":memory:" databases survive between calls.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens path and returns a Store backed by it.
func NewSQLiteStore(path string, logger *slog.Logger) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	backend, err := NewGormBackend(db)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, logger), nil
}

func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := b.db.WithContext(ctx).Where("storage_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (b *GormBackend) Set(ctx context.Context, key, value string) error {
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
