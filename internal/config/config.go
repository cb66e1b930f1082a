package config

import "time"

// Config represents the application configuration
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Bot      BotConfig      `mapstructure:"bot"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Status   StatusConfig   `mapstructure:"status"`
	LogLevel string         `mapstructure:"log_level"`
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token      string  `mapstructure:"token"`
	GroupID    int64   `mapstructure:"group_id"`
	LockChatID int64   `mapstructure:"lock_chat_id"`
	AdminIDs   []int64 `mapstructure:"admin_ids"`
}

// LedgerConfig holds the ledger server configuration
type LedgerConfig struct {
	URL             string `mapstructure:"url"`
	UserMappingPath string `mapstructure:"user_mapping_path"`
}

// BotConfig holds the bot behaviour settings
type BotConfig struct {
	Name               string        `mapstructure:"name"`
	FastTick           time.Duration `mapstructure:"fast_tick"`
	SlowTick           time.Duration `mapstructure:"slow_tick"`
	InteractionTimeout time.Duration `mapstructure:"interaction_timeout"`
	Debug              bool          `mapstructure:"debug"`
}

// StorageConfig selects where poll bookmarks are persisted.
// Redis wins when both are set; with neither, bookmarks live in memory.
type StorageConfig struct {
	BookmarksPath string `mapstructure:"bookmarks_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// StatusConfig holds the status endpoint configuration
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}
