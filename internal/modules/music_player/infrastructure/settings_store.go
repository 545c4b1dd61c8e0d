package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/glebarez/sqlite"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// guildSettingsModel is the guild_settings row.
type guildSettingsModel struct {
	GuildID               uint64 `gorm:"primaryKey;autoIncrement:false"`
	VolumePercent         int    `gorm:"not null"`
	NotificationChannelID uint64
	UpdatedAt             time.Time
}

func (guildSettingsModel) TableName() string {
	return "guild_settings"
}

// SQLiteSettingsRepository persists guild settings in SQLite.
type SQLiteSettingsRepository struct {
	db *gorm.DB
}

// NewSQLiteSettingsRepository opens (and migrates) the database at dsn.
// Use "file::memory:" for a throwaway database.
func NewSQLiteSettingsRepository(dsn string) (*SQLiteSettingsRepository, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	if dir := filepath.Dir(dsn); dir != "" && dir != "." && !isMemoryDSN(dsn) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}

	if err := db.AutoMigrate(&guildSettingsModel{}); err != nil {
		return nil, fmt.Errorf("migrate settings database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	slog.Debug("settings database ready", "dsn", dsn)
	return &SQLiteSettingsRepository{db: db}, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:")
}

// Get returns the settings for the given guild, or the defaults.
func (r *SQLiteSettingsRepository) Get(ctx context.Context, guildID snowflake.ID) (domain.GuildSettings, error) {
	var model guildSettingsModel
	err := r.db.WithContext(ctx).Where("guild_id = ?", uint64(guildID)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultGuildSettings(guildID), nil
	}
	if err != nil {
		return domain.GuildSettings{}, fmt.Errorf("load guild settings: %w", err)
	}

	return domain.GuildSettings{
		GuildID:               guildID,
		VolumePercent:         model.VolumePercent,
		NotificationChannelID: snowflake.ID(model.NotificationChannelID),
	}, nil
}

// Save upserts the settings.
func (r *SQLiteSettingsRepository) Save(ctx context.Context, settings domain.GuildSettings) error {
	model := guildSettingsModel{
		GuildID:               uint64(settings.GuildID),
		VolumePercent:         settings.VolumePercent,
		NotificationChannelID: uint64(settings.NotificationChannelID),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"volume_percent", "notification_channel_id", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save guild settings: %w", err)
	}
	return nil
}

// Delete removes the settings for the given guild.
func (r *SQLiteSettingsRepository) Delete(ctx context.Context, guildID snowflake.ID) error {
	err := r.db.WithContext(ctx).Delete(&guildSettingsModel{}, "guild_id = ?", uint64(guildID)).Error
	if err != nil {
		return fmt.Errorf("delete guild settings: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *SQLiteSettingsRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.GuildSettingsRepository = (*SQLiteSettingsRepository)(nil)
