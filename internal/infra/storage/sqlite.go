package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"currency_switcher/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage is the sqlite-backed persistence layer. It doubles as the durable
// client store (domain.Store) and the merchant settings repository.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the database at path, or at the per-user default
// location when path is empty.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(os.Stdout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

// newGormLogger reports slow queries and real failures only; lookups of
// missing rows are routine (cache misses, unsaved shops).
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&domain.KeyValue{}, &domain.SettingsRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CurrencySwitcher", "data", "switcher.db"), nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Key/Value Operations (domain.Store)
// ======================================================================================

// Get returns the stored value for key
func (s *Storage) Get(key string) (string, bool, error) {
	var kv domain.KeyValue
	res := s.db.Where("key = ?", key).Limit(1).Find(&kv)
	if res.Error != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return "", false, nil // Not found is not an error
	}
	return kv.Value, true, nil
}

// Set creates or replaces the value for key
func (s *Storage) Set(key, value string) error {
	kv := domain.KeyValue{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.db.Save(&kv).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *Storage) Delete(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&domain.KeyValue{}).Error; err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// ======================================================================================
// Merchant Settings Operations (domain.SettingsRepository)
// ======================================================================================

// GetSettings returns the saved settings for shop, or nil when none were saved
func (s *Storage) GetSettings(shop string) (*domain.MerchantSettings, error) {
	var rec domain.SettingsRecord
	res := s.db.Where("shop = ?", shop).Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	settings := rec.Settings()
	return &settings, nil
}

// SaveSettings upserts the settings row for settings.Shop
func (s *Storage) SaveSettings(settings domain.MerchantSettings) error {
	if settings.Shop == "" {
		return fmt.Errorf("save settings: empty shop")
	}
	rec := domain.NewSettingsRecord(settings)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "shop"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// ListShops returns every shop with saved settings, sorted
func (s *Storage) ListShops() ([]string, error) {
	var shops []string
	if err := s.db.Model(&domain.SettingsRecord{}).Pluck("shop", &shops).Error; err != nil {
		return nil, err
	}
	sort.Strings(shops)
	return shops, nil
}

// DeleteSettings removes the row for shop (customer/shop redact webhooks)
func (s *Storage) DeleteSettings(shop string) error {
	return s.db.Where("shop = ?", shop).Delete(&domain.SettingsRecord{}).Error
}
