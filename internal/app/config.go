// Package app assembles walkbot: configuration, storage backends, services and Telegram wiring.
package app

import (
	"fmt"
	"slices"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/walkbot/core/config"
	coredatabase "github.com/m3rciful/walkbot/core/database"
	"github.com/m3rciful/walkbot/internal/messages"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// RedisConfig configures the session store connection.
type RedisConfig struct {
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string        `yaml:"prefix" envconfig:"REDIS_PREFIX"`
	TTL      time.Duration `yaml:"ttl" envconfig:"REDIS_SESSION_TTL"`
}

// StorageConfig selects a backend per store.
type StorageConfig struct {
	Announcements string `yaml:"announcements" envconfig:"STORAGE_ANNOUNCEMENTS"`
	Sessions      string `yaml:"sessions" envconfig:"STORAGE_SESSIONS"`
}

// WalksConfig names the moderation destinations and rendering options.
type WalksConfig struct {
	ModeratorChatID int64   `yaml:"moderator_chat_id" envconfig:"ADMIN_CHAT_ID"`
	ModeratorIDs    []int64 `yaml:"moderator_ids" envconfig:"MODERATOR_IDS"`
	ChannelID       int64   `yaml:"channel_id" envconfig:"CHANNEL_ID"`
	ChannelUsername string  `yaml:"channel_username" envconfig:"CHANNEL_USERNAME"`
	Hashtag         string  `yaml:"hashtag" envconfig:"WALKS_HASHTAG"`
	Locale          string  `yaml:"locale" envconfig:"WALKS_LOCALE"`
}

// HTTPConfig enables the ops endpoint when Listen is set.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Token  string `yaml:"token" envconfig:"HTTP_TOKEN"`
}

// Config is the full walkbot configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Redis    RedisConfig         `yaml:"redis"`
	Storage  StorageConfig       `yaml:"storage"`
	Walks    WalksConfig         `yaml:"walks"`
	HTTP     HTTPConfig          `yaml:"http"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads path (optional when the environment carries everything) and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg, true); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	w := &cfg.Walks
	if w.ModeratorChatID == 0 {
		return fmt.Errorf("walks.moderator_chat_id is required")
	}
	if w.ChannelID == 0 {
		return fmt.Errorf("walks.channel_id is required")
	}
	for _, id := range w.ModeratorIDs {
		if id <= 0 {
			return fmt.Errorf("invalid walks.moderator_ids entry %d", id)
		}
	}
	w.ChannelUsername = strings.TrimPrefix(strings.TrimSpace(w.ChannelUsername), "@")
	w.Hashtag = strings.TrimPrefix(strings.TrimSpace(w.Hashtag), "#")
	w.Locale = strings.ToLower(strings.TrimSpace(w.Locale))
	if w.Locale == "" {
		w.Locale = messages.DefaultLocale
	}
	if !slices.Contains(messages.Locales(), w.Locale) {
		return fmt.Errorf("invalid walks.locale %q; allowed: %s", w.Locale, strings.Join(messages.Locales(), ", "))
	}

	s := &cfg.Storage
	s.Announcements = backend(s.Announcements)
	s.Sessions = backend(s.Sessions)
	switch s.Announcements {
	case BackendMemory:
	case BackendPostgres:
		if !cfg.Database.Enabled() {
			return fmt.Errorf("database.host is required when storage.announcements is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("invalid storage.announcements %q; allowed: memory, postgres", s.Announcements)
	}
	switch s.Sessions {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when storage.sessions is %q", BackendRedis)
		}
		if cfg.Redis.TTL < 0 {
			return fmt.Errorf("redis.ttl must be >= 0")
		}
	default:
		return fmt.Errorf("invalid storage.sessions %q; allowed: memory, redis", s.Sessions)
	}
	return nil
}

func backend(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return BackendMemory
	}
	return v
}
