package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/shopfloor/internal/domain"
)

// MinSecretLength is the shortest accepted token signing secret.
const MinSecretLength = 16

type Config struct {
	Database       DatabaseConfig   `toml:"database"`
	Users          UsersConfig      `toml:"users"`
	Server         ServerConfig     `toml:"server"`
	Auth           AuthConfig       `toml:"auth"`
	SeedAdmin      SeedAdminConfig  `toml:"seed_admin"`
	Logging        LoggingConfig    `toml:"logging"`
	Backup         BackupConfig     `toml:"backup"`
	StageTemplates []TemplateConfig `toml:"stage_templates"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type UsersConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Bind            string `toml:"bind"`
	APIEndpoint     string `toml:"api_endpoint"`
	MCPEndpoint     string `toml:"mcp_endpoint"`
	MetricsEndpoint string `toml:"metrics_endpoint"`
	SecureCookies   bool   `toml:"secure_cookies"`
	RequestTimeout  string `toml:"request_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type AuthConfig struct {
	// Secret signs session tokens. Prefer JWT_SECRET over writing it to disk.
	Secret          string   `toml:"secret"`
	TokenTTL        string   `toml:"token_ttl"`
	BcryptCost      int      `toml:"bcrypt_cost"`
	ProtectedEmails []string `toml:"protected_emails"`
}

type SeedAdminConfig struct {
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type LoggingConfig struct {
	Level   string `toml:"level"`
	DevFile bool   `toml:"dev_file"`
}

type BackupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	Interval string `toml:"interval"`
	Keep     int    `toml:"keep"`
	Format   string `toml:"format"`
}

// TemplateConfig overrides the built-in stage templates when any are listed.
type TemplateConfig struct {
	ID                 string   `toml:"id"`
	Name               string   `toml:"name"`
	Kind               string   `toml:"kind"`
	PlannedDurationMin int      `toml:"planned_duration_min"`
	Checklist          []string `toml:"checklist"`
}

// DefaultPaths carries the platform locations Default fills in.
type DefaultPaths struct {
	DBPath    string
	UsersPath string
	BackupDir string
}

func Default(paths DefaultPaths) Config {
	return Config{
		Database: DatabaseConfig{Path: paths.DBPath},
		Users:    UsersConfig{Path: paths.UsersPath},
		Server: ServerConfig{
			Bind:            "127.0.0.1:8080",
			APIEndpoint:     "/api/v1",
			MCPEndpoint:     "/mcp",
			MetricsEndpoint: "/metrics",
			RequestTimeout:  "30s",
			ShutdownTimeout: "5s",
		},
		Auth: AuthConfig{
			TokenTTL:   "7d",
			BcryptCost: 10,
		},
		SeedAdmin: SeedAdminConfig{
			Name:  "Administrator",
			Email: "admin@shopfloor.local",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Backup: BackupConfig{
			Enabled:  false,
			Dir:      paths.BackupDir,
			Interval: "6h",
			Keep:     14,
			Format:   "json",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto c. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}
	str(&c.Database.Path, "SHOPFLOOR_DB_PATH")
	str(&c.Users.Path, "SHOPFLOOR_USERS_PATH")
	str(&c.Server.Bind, "SHOPFLOOR_HTTP_BIND")
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("PORT must be numeric: %q", v)
		}
		host := "0.0.0.0"
		if h, _, found := strings.Cut(c.Server.Bind, ":"); found && h != "" {
			host = h
		}
		c.Server.Bind = host + ":" + strings.TrimSpace(v)
	}
	str(&c.Auth.Secret, "SHOPFLOOR_JWT_SECRET", "JWT_SECRET")
	str(&c.Auth.TokenTTL, "SHOPFLOOR_JWT_EXPIRES", "JWT_EXPIRES")
	str(&c.SeedAdmin.Name, "SEED_ADMIN_NAME")
	str(&c.SeedAdmin.Email, "SEED_ADMIN_EMAIL")
	str(&c.SeedAdmin.Password, "SEED_ADMIN_PASSWORD")
	str(&c.Logging.Level, "SHOPFLOOR_LOG_LEVEL")
	str(&c.Backup.Dir, "SHOPFLOOR_BACKUP_DIR")
	str(&c.Backup.Interval, "SHOPFLOOR_BACKUP_INTERVAL")

	if v, ok := lookup("SHOPFLOOR_BACKUP_ENABLED"); ok && strings.TrimSpace(v) != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SHOPFLOOR_BACKUP_ENABLED must be a boolean: %q", v)
		}
		c.Backup.Enabled = enabled
	}
	if v, ok := lookup("SHOPFLOOR_ENV"); ok && strings.EqualFold(strings.TrimSpace(v), "production") {
		c.Server.SecureCookies = true
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Users.Path) == "" {
		return errors.New("users path is required")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	for name, raw := range map[string]string{
		"server.request_timeout":  c.Server.RequestTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"auth.token_ttl":          c.Auth.TokenTTL,
	} {
		if d, err := ParseDuration(raw); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if _, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Backup.Enabled {
		if strings.TrimSpace(c.Backup.Dir) == "" {
			return errors.New("backup.dir is required when backups are enabled")
		}
		if d, err := ParseDuration(c.Backup.Interval); err != nil || d < time.Minute {
			return fmt.Errorf("backup.interval must be at least 1m, got %q", c.Backup.Interval)
		}
		if c.Backup.Keep < 1 {
			return fmt.Errorf("backup.keep must be >= 1, got %d", c.Backup.Keep)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Backup.Format)) {
	case "", "json", "yaml", "yml":
	default:
		return fmt.Errorf("invalid backup.format: %q", c.Backup.Format)
	}

	seenTemplateID := map[string]struct{}{}
	for idx, tpl := range c.StageTemplates {
		id := strings.TrimSpace(strings.ToLower(tpl.ID))
		if id == "" {
			return fmt.Errorf("stage_templates[%d].id is required", idx)
		}
		if strings.TrimSpace(tpl.Name) == "" {
			return fmt.Errorf("stage_templates[%d].name is required", idx)
		}
		if kind := domain.StageKind(strings.TrimSpace(strings.ToLower(tpl.Kind))); kind != "" && !kind.Valid() {
			return fmt.Errorf("stage_templates[%d].kind is invalid: %q", idx, tpl.Kind)
		}
		if tpl.PlannedDurationMin < 0 {
			return fmt.Errorf("stage_templates[%d].planned_duration_min must be >= 0", idx)
		}
		if _, ok := seenTemplateID[id]; ok {
			return fmt.Errorf("stage_templates[%d].id is duplicated: %s", idx, id)
		}
		seenTemplateID[id] = struct{}{}
	}
	return nil
}

// ValidateSecret checks the token secret required by serve mode.
func (c Config) ValidateSecret() error {
	if len(strings.TrimSpace(c.Auth.Secret)) < MinSecretLength {
		return fmt.Errorf("auth secret must be at least %d characters; set JWT_SECRET", MinSecretLength)
	}
	return nil
}

// RequestTimeout returns the parsed server request timeout.
func (c Config) RequestTimeout() time.Duration {
	return mustDuration(c.Server.RequestTimeout)
}

// ShutdownTimeout returns the parsed graceful shutdown timeout.
func (c Config) ShutdownTimeout() time.Duration {
	return mustDuration(c.Server.ShutdownTimeout)
}

// TokenTTL returns the parsed session token lifetime.
func (c Config) TokenTTL() time.Duration {
	return mustDuration(c.Auth.TokenTTL)
}

// BackupInterval returns the parsed backup interval.
func (c Config) BackupInterval() time.Duration {
	return mustDuration(c.Backup.Interval)
}

// LogLevel returns the parsed log level, defaulting to info.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(c.Logging.Level)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// ParseDuration accepts Go durations plus a whole-day suffix such as "7d".
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// mustDuration parses a value already checked by Validate, returning zero on error.
func mustDuration(raw string) time.Duration {
	d, err := ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
