package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppName string `mapstructure:"app_name"`
	Env     string `mapstructure:"app_env"`
	Host    string `mapstructure:"http_host"`
	Port    int    `mapstructure:"http_port"`

	DatabaseDSN string `mapstructure:"database_dsn"`

	JWTSecret          string `mapstructure:"jwt_secret"`
	AccessTokenMinutes int    `mapstructure:"access_token_expire_minutes"`
	RefreshTokenDays   int    `mapstructure:"refresh_token_expire_days"`
	EncryptKey         string `mapstructure:"encryption_key"`

	CORSOrigins []string

	EditWindowSeconds int `mapstructure:"message_edit_window_seconds"`
	MinGroupMembers   int `mapstructure:"min_group_members"`
	MaxMessageChars   int `mapstructure:"max_message_chars"`

	Debug bool `mapstructure:"debug"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_name", "Chat Engine")
	v.SetDefault("app_env", "development")
	v.SetDefault("http_host", "0.0.0.0")
	v.SetDefault("http_port", 8000)
	v.SetDefault("database_dsn", "file:chatengine.db?_pragma=busy_timeout(5000)")
	v.SetDefault("access_token_expire_minutes", 60*24)
	v.SetDefault("refresh_token_expire_days", 30)
	v.SetDefault("message_edit_window_seconds", 60)
	v.SetDefault("min_group_members", 3)
	v.SetDefault("max_message_chars", 5000)
	v.SetDefault("debug", true)
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:5173")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Unmarshal only sees keys with registered defaults; the secrets have
	// none on purpose, so read them directly.
	cfg.JWTSecret = v.GetString("jwt_secret")
	cfg.EncryptKey = v.GetString("encryption_key")

	for _, origin := range strings.Split(v.GetString("cors_origins"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) EditWindow() time.Duration {
	return time.Duration(c.EditWindowSeconds) * time.Second
}
