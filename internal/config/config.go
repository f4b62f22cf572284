// Package config provides configuration loading and validation for the
// dutybot binaries. Values come from a YAML file with DUTYBOT_* environment
// variable overrides, validated with struct tags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration shared by both bots.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Wishlist  WishlistConfig  `mapstructure:"wishlist"`

	// DefaultTimezone is assigned to chats on first contact by either bot.
	DefaultTimezone string `mapstructure:"default_timezone" validate:"required"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds bot credentials and the managing admin.
type TelegramConfig struct {
	Token       string `mapstructure:"token"         validate:"required"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"required,gt=0"`
}

// TaskConfig describes one scheduled task entry.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their cron schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// WishlistConfig holds wishlist-bot specific settings.
type WishlistConfig struct {
	// PingIntervalDays is the local-calendar gap between summary pings.
	PingIntervalDays int `mapstructure:"ping_interval_days" validate:"min=1,max=90"`
}

// Load reads configuration from the given YAML file path, applies defaults
// and DUTYBOT_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DUTYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Missing config file is allowed; defaults plus env must then suffice.
	if _, statErr := os.Stat(path); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("database.path", "./dutybot.db")

	v.SetDefault("default_timezone", "Europe/Sofia")
	v.SetDefault("wishlist.ping_interval_days", 14)

	// Shift bot tasks.
	v.SetDefault("scheduler.tasks.reminders.enabled", true)
	v.SetDefault("scheduler.tasks.reminders.schedule", "*/5 * * * *")
	v.SetDefault("scheduler.tasks.daily_rollup.enabled", true)
	v.SetDefault("scheduler.tasks.daily_rollup.schedule", "10 0 * * *")

	// Wishlist bot task.
	v.SetDefault("scheduler.tasks.ping_sweep.enabled", true)
	v.SetDefault("scheduler.tasks.ping_sweep.schedule", "0 */6 * * *")
}
