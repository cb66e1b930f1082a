package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"chunkabank-bot/internal/constants"
	apperrors "chunkabank-bot/internal/errors"
)

// Load loads the configuration from a .env file, if any, and environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BOT_NAME", "Chunka Bank")
	v.SetDefault("FAST_TICK", constants.DefaultFastTick)
	v.SetDefault("SLOW_TICK", constants.DefaultSlowTick)
	v.SetDefault("INTERACTION_TIMEOUT", constants.DefaultInteractionTimeout)
	v.SetDefault("DEBUG", false)
	v.SetDefault("REDIS_DB", 0)

	// Define environment variables
	for _, key := range []string{
		"TG_TOKEN", "TG_GROUP_ID", "TG_LOCK_CHAT_ID", "TG_ADMIN_IDS",
		"LEDGER_URL", "USER_MAPPING_PATH",
		"BOOKMARKS_PATH", "REDIS_ADDR", "REDIS_PASSWORD",
		"STATUS_ADDR",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Telegram: TelegramConfig{
			Token:      strings.TrimSpace(v.GetString("TG_TOKEN")),
			GroupID:    v.GetInt64("TG_GROUP_ID"),
			LockChatID: v.GetInt64("TG_LOCK_CHAT_ID"),
		},
		Ledger: LedgerConfig{
			URL:             strings.TrimSpace(v.GetString("LEDGER_URL")),
			UserMappingPath: strings.TrimSpace(v.GetString("USER_MAPPING_PATH")),
		},
		Bot: BotConfig{
			Name:               v.GetString("BOT_NAME"),
			FastTick:           v.GetDuration("FAST_TICK"),
			SlowTick:           v.GetDuration("SLOW_TICK"),
			InteractionTimeout: v.GetDuration("INTERACTION_TIMEOUT"),
			Debug:              v.GetBool("DEBUG"),
		},
		Storage: StorageConfig{
			BookmarksPath: strings.TrimSpace(v.GetString("BOOKMARKS_PATH")),
			RedisAddr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Status: StatusConfig{
			Addr: strings.TrimSpace(v.GetString("STATUS_ADDR")),
		},
	}

	adminIDs, err := parseIDs(v.GetString("TG_ADMIN_IDS"))
	if err != nil {
		return nil, err
	}
	cfg.Telegram.AdminIDs = adminIDs

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseIDs parses a comma separated list of chat ids
func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err != nil {
			return nil, &apperrors.ConfigError{Section: "telegram", Message: fmt.Sprintf("invalid admin id %q", part)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_TOKEN is required"}
	}
	if cfg.Telegram.GroupID == 0 {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_GROUP_ID is required"}
	}

	if cfg.Ledger.URL == "" {
		return &apperrors.ConfigError{Section: "ledger", Message: "LEDGER_URL is required"}
	}
	if !strings.HasPrefix(cfg.Ledger.URL, "http://") && !strings.HasPrefix(cfg.Ledger.URL, "https://") {
		return &apperrors.ConfigError{Section: "ledger", Message: "LEDGER_URL must be an http(s) URL"}
	}
	if cfg.Ledger.UserMappingPath == "" {
		return &apperrors.ConfigError{Section: "ledger", Message: "USER_MAPPING_PATH is required"}
	}

	if cfg.Bot.FastTick <= 0 || cfg.Bot.SlowTick <= 0 {
		return &apperrors.ConfigError{Section: "bot", Message: "FAST_TICK and SLOW_TICK must be positive durations"}
	}
	if cfg.Bot.SlowTick < cfg.Bot.FastTick {
		return &apperrors.ConfigError{Section: "bot", Message: "SLOW_TICK must not be shorter than FAST_TICK"}
	}
	if cfg.Bot.InteractionTimeout <= 0 {
		return &apperrors.ConfigError{Section: "bot", Message: "INTERACTION_TIMEOUT must be a positive duration"}
	}

	return nil
}
