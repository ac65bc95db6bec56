/*
Package config loads service settings from defaults, an optional env file
and the process environment.

PRECEDENCE (lowest to highest):
  1. defaults below
  2. config.env (or the file passed to Load), read with godotenv
  3. process environment, e.g. PORT=8080 or JWT_SECRET=...
  4. command line flags applied by cmd/server

Keys are snake_case; the matching environment variable is the upper-case
key (jwt_secret -> JWT_SECRET).
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = "config.env"

// Config is the resolved service configuration.
type Config struct {
	Port   int
	DBPath string
	Debug  bool

	JWTSecret string
	TokenTTL  time.Duration

	AdminUsername string
	AdminPassword string
	AdminEmail    string

	CORSOrigins []string

	RedisAddr        string // empty disables the insights cache
	InsightsCacheTTL time.Duration

	PhotosDir string
	StaticDir string
	PublicURL string

	StatusSyncInterval time.Duration // 0 disables the scheduler
	DemoEnabled        bool
}

func defaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", 3000)
	v.SetDefault("db_path", "./school.db")
	v.SetDefault("debug", false)
	v.SetDefault("jwt_secret", "your-secret-key")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("admin_email", "admin@sms.com")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("redis_addr", "")
	v.SetDefault("insights_cache_ttl", 5*time.Minute)
	v.SetDefault("photos_dir", "./public/student_photos")
	v.SetDefault("static_dir", "./public")
	v.SetDefault("public_url", "")
	v.SetDefault("status_sync_interval", time.Hour)
	v.SetDefault("demo_enabled", false)
}

// Load resolves the configuration. envFile may be empty to use
// DefaultEnvFile; a missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: stat %s: %w", envFile, err)
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:               v.GetInt("port"),
		DBPath:             v.GetString("db_path"),
		Debug:              v.GetBool("debug"),
		JWTSecret:          v.GetString("jwt_secret"),
		TokenTTL:           v.GetDuration("token_ttl"),
		AdminUsername:      v.GetString("admin_username"),
		AdminPassword:      v.GetString("admin_password"),
		AdminEmail:         v.GetString("admin_email"),
		CORSOrigins:        splitList(v.GetString("cors_origins")),
		RedisAddr:          v.GetString("redis_addr"),
		InsightsCacheTTL:   v.GetDuration("insights_cache_ttl"),
		PhotosDir:          v.GetString("photos_dir"),
		StaticDir:          v.GetString("static_dir"),
		PublicURL:          v.GetString("public_url"),
		StatusSyncInterval: v.GetDuration("status_sync_interval"),
		DemoEnabled:        v.GetBool("demo_enabled"),
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: token_ttl must be positive")
	}
	if c.StatusSyncInterval < 0 {
		return fmt.Errorf("config: status_sync_interval must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
