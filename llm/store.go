package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ProviderStore persists custom provider registrations.
type ProviderStore interface {
	Save(ctx context.Context, cfg ProviderConfig) error
	LoadAll(ctx context.Context) ([]ProviderConfig, error)
}

// customProvider 自定义 provider 持久化模型
type customProvider struct {
	ID           string `gorm:"primaryKey;size:128"`
	Name         string `gorm:"size:255"`
	Kind         string `gorm:"size:16"`
	Format       string `gorm:"size:16"`
	Endpoint     string `gorm:"size:1024"`
	Model        string `gorm:"size:255"`
	APIKey       string `gorm:"size:500"`
	RequiresKey  bool
	ResponsePath string `gorm:"size:255"`
	TimeoutMs    int64
	Privacy      string `gorm:"size:32"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (customProvider) TableName() string {
	return "ag_custom_providers"
}

func toRecord(cfg ProviderConfig) customProvider {
	return customProvider{
		ID:           cfg.ID,
		Name:         cfg.Name,
		Kind:         string(cfg.Kind),
		Format:       string(cfg.Format),
		Endpoint:     cfg.Endpoint,
		Model:        cfg.Model,
		APIKey:       cfg.APIKey,
		RequiresKey:  cfg.RequiresKey,
		ResponsePath: cfg.ResponsePath,
		TimeoutMs:    cfg.Timeout.Milliseconds(),
		Privacy:      cfg.Privacy,
	}
}

func (rec customProvider) config() ProviderConfig {
	return ProviderConfig{
		ID:           rec.ID,
		Name:         rec.Name,
		Kind:         ProviderKind(rec.Kind),
		Format:       WireFormat(rec.Format),
		Endpoint:     rec.Endpoint,
		Model:        rec.Model,
		APIKey:       rec.APIKey,
		RequiresKey:  rec.RequiresKey,
		ResponsePath: rec.ResponsePath,
		Timeout:      time.Duration(rec.TimeoutMs) * time.Millisecond,
		Privacy:      rec.Privacy,
	}
}

// GormProviderStore stores custom providers in any GORM database.
type GormProviderStore struct {
	db *gorm.DB
}

// NewGormProviderStore migrates the schema and returns a store backed by db.
func NewGormProviderStore(db *gorm.DB) (*GormProviderStore, error) {
	if err := db.AutoMigrate(&customProvider{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &GormProviderStore{db: db}, nil
}

// storeFileMode 数据库文件含明文 API key，仅属主可读写
const storeFileMode os.FileMode = 0o600

// OpenSQLiteStore opens (or creates) a SQLite database at path. API keys are
// stored as plaintext, so the file is created (or tightened) to mode 0600.
func OpenSQLiteStore(path string) (*GormProviderStore, error) {
	if err := restrictStoreFile(path); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open provider store %s: %w", path, err)
	}
	return NewGormProviderStore(db)
}

func restrictStoreFile(path string) error {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, storeFileMode)
	if err != nil {
		return fmt.Errorf("open provider store %s: %w", path, err)
	}
	_ = f.Close()
	if err := os.Chmod(path, storeFileMode); err != nil {
		return fmt.Errorf("restrict provider store %s: %w", path, err)
	}
	return nil
}

// Save upserts cfg by id.
func (s *GormProviderStore) Save(ctx context.Context, cfg ProviderConfig) error {
	rec := toRecord(cfg)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// LoadAll returns every stored provider ordered by id.
func (s *GormProviderStore) LoadAll(ctx context.Context) ([]ProviderConfig, error) {
	var recs []customProvider
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]ProviderConfig, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.config())
	}
	return out, nil
}

// Ping checks that the database is reachable.
func (s *GormProviderStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *GormProviderStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
