package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Bus     BusConfig     `mapstructure:"bus"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	CheckOrigin     bool          `mapstructure:"check_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ChatConfig configures the chat transcript store.
type ChatConfig struct {
	// Backend is either "redis" or "memory".
	Backend  string `mapstructure:"backend"`
	RedisURL string `mapstructure:"redis_url"`
	PoolSize int    `mapstructure:"pool_size"`
}

// BusConfig configures the optional outbound event bus.
type BusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RedisURL string `mapstructure:"redis_url"`
	Channel  string `mapstructure:"channel"`
}

// Load reads configuration from the given file path. Environment variables
// prefixed with ARENA_ override file values (e.g. ARENA_SERVER_ADDRESS).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("server.read_buffer_size", 1024)
	v.SetDefault("server.write_buffer_size", 1024)
	v.SetDefault("server.check_origin", false)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("chat.backend", "memory")
	v.SetDefault("chat.redis_url", "redis://localhost:6379")
	v.SetDefault("chat.pool_size", 10)
	v.SetDefault("bus.enabled", false)
	v.SetDefault("bus.redis_url", "redis://localhost:6379")
	v.SetDefault("bus.channel", "cardarena.events")

	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env apply.
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	switch c.Chat.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid chat backend %q", c.Chat.Backend)
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}

	return nil
}
