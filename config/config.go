// Package config resolves the server configuration from built-in defaults,
// an optional YAML file, environment variables and command line flags, in
// that order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ichigozero/todocal/calendar"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const DefaultJWTSecret = "your-secret-key"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	HTTPAddr    string   `yaml:"http_addr"`
	Env         string   `yaml:"env"`
	LogLevel    string   `yaml:"log_level"`
	Store       string   `yaml:"store"`
	DataDir     string   `yaml:"data_dir"`
	SQLitePath  string   `yaml:"sqlite_path"`
	DatabaseURL string   `yaml:"database_url"`
	CORSOrigin  string   `yaml:"cors_origin"`
	ConsulAddr  string   `yaml:"consul_addr"`
	Auth        Auth     `yaml:"auth"`
	Calendar    Calendar `yaml:"calendar"`
}

type Auth struct {
	Enabled        bool          `yaml:"enabled"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
	CookieHashKey  string        `yaml:"cookie_hash_key"`
	CookieBlockKey string        `yaml:"cookie_block_key"`
	SecureCookie   bool          `yaml:"secure_cookie"`
}

type Calendar struct {
	Timezone  string `yaml:"timezone"`
	WeekStart string `yaml:"week_start"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Env:      EnvDevelopment,
		LogLevel: "info",
		DataDir:  "data",
		Auth: Auth{
			Enabled:        true,
			JWTSecret:      DefaultJWTSecret,
			TokenTTL:       24 * time.Hour,
			BcryptCost:     10,
			CookieHashKey:  "very-secret",
			CookieBlockKey: "a-lots-of-secret",
		},
		Calendar: Calendar{
			Timezone:  "UTC",
			WeekStart: "sunday",
		},
	}
}

// Parse resolves the configuration for the flags in args. Flags are
// registered on fs; a -config flag names the YAML file.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "")
	if p, ok := scanConfigFlag(args); ok {
		path = p
	}
	if path != "" {
		if err := cfg.load(path); err != nil {
			return Config{}, err
		}
	}

	addr := cfg.HTTPAddr
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		addr = ":" + port
	}

	fs.String("config", path, "YAML configuration file")
	fs.StringVar(&cfg.HTTPAddr, "http.addr", getEnv("HTTP_ADDR", addr), "HTTP listen address")
	fs.StringVar(&cfg.Env, "env", getEnv("APP_ENV", cfg.Env), "Environment name")
	fs.StringVar(&cfg.LogLevel, "log.level", getEnv("LOG_LEVEL", cfg.LogLevel), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Store, "store", getEnv("STORE", cfg.Store), "Storage backend: memory, file, sqlite, postgres")
	fs.StringVar(&cfg.DataDir, "data.dir", getEnv("DATA_DIR", cfg.DataDir), "Directory of the JSON data files")
	fs.StringVar(&cfg.SQLitePath, "sqlite.path", getEnv("SQLITE_PATH", cfg.SQLitePath), "SQLite database file")
	fs.StringVar(&cfg.DatabaseURL, "database.url", getEnv("DATABASE_URL", cfg.DatabaseURL), "PostgreSQL database URL")
	fs.StringVar(&cfg.CORSOrigin, "cors.origin", getEnv("CORS_ORIGIN", cfg.CORSOrigin), "Allowed CORS origin")
	fs.StringVar(&cfg.ConsulAddr, "consul.addr", getEnv("CONSUL_ADDR", cfg.ConsulAddr), "Consul agent address")
	fs.BoolVar(&cfg.Auth.Enabled, "auth.enabled", getEnvAsBool("AUTH_ENABLED", cfg.Auth.Enabled), "Require a session token on task routes")
	fs.StringVar(&cfg.Auth.JWTSecret, "jwt.secret", getEnv("JWT_SECRET", cfg.Auth.JWTSecret), "Session token signing secret")
	fs.DurationVar(&cfg.Auth.TokenTTL, "token.ttl", getEnvAsDuration("TOKEN_TTL", cfg.Auth.TokenTTL), "Session token lifetime")
	fs.IntVar(&cfg.Auth.BcryptCost, "bcrypt.cost", getEnvAsInt("BCRYPT_COST", cfg.Auth.BcryptCost), "bcrypt cost factor")
	fs.StringVar(&cfg.Auth.CookieHashKey, "cookie.hashkey", getEnv("COOKIE_HASH_KEY", cfg.Auth.CookieHashKey), "Session cookie signing key")
	fs.StringVar(&cfg.Auth.CookieBlockKey, "cookie.blockkey", getEnv("COOKIE_BLOCK_KEY", cfg.Auth.CookieBlockKey), "Session cookie encryption key (16, 24 or 32 bytes)")
	fs.BoolVar(&cfg.Auth.SecureCookie, "cookie.secure", getEnvAsBool("COOKIE_SECURE", cfg.Auth.SecureCookie), "Send the session cookie over HTTPS only")
	fs.StringVar(&cfg.Calendar.Timezone, "calendar.tz", getEnv("CALENDAR_TZ", cfg.Calendar.Timezone), "Time zone deciding which day a task is due on")
	fs.StringVar(&cfg.Calendar.WeekStart, "calendar.weekstart", getEnv("CALENDAR_WEEK_START", cfg.Calendar.WeekStart), "First weekday of the calendar grid")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and fills in the store when it is left
// to be inferred from the database URL.
func (c *Config) Validate() error {
	if c.Store == "" {
		c.Store = StoreMemory
		if c.DatabaseURL != "" {
			c.Store = StorePostgres
		}
	}

	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: store %q needs a database URL", ErrInvalid, c.Store)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}

	if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		return fmt.Errorf("%w: http addr: %v", ErrInvalid, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: calendar timezone: %v", ErrInvalid, err)
	}
	if _, err := calendar.ParseWeekday(c.Calendar.WeekStart); err != nil {
		return fmt.Errorf("%w: calendar week start: %v", ErrInvalid, err)
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("%w: empty JWT secret", ErrInvalid)
		}
		if c.Env == EnvProduction && c.Auth.JWTSecret == DefaultJWTSecret {
			return fmt.Errorf("%w: default JWT secret in production", ErrInvalid)
		}
	}
	switch len(c.Auth.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("%w: cookie block key must be 16, 24 or 32 bytes", ErrInvalid)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Calendar.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Calendar.Timezone)
}

// NewCalendar builds the calendar described by c. c must be valid.
func (c Config) NewCalendar() *calendar.Calendar {
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	ws, _ := calendar.ParseWeekday(c.Calendar.WeekStart)
	return calendar.New(calendar.WithLocation(loc), calendar.WithWeekStart(ws))
}

// Port returns the port part of the HTTP address.
func (c Config) Port() string {
	_, port, err := net.SplitHostPort(c.HTTPAddr)
	if err != nil {
		return ""
	}
	return port
}

func (c Config) TasksFile() string { return filepath.Join(c.DataDir, "tasks.json") }

func (c Config) UsersFile() string { return filepath.Join(c.DataDir, "users.json") }

// SQLiteFile returns the SQLite database path, defaulting to the data dir.
func (c Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "todocal.db")
}

func scanConfigFlag(args []string) (string, bool) {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1], true
		}
		if strings.HasPrefix(name, "config=") {
			return strings.TrimPrefix(name, "config="), true
		}
	}
	return "", false
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	if v, err := time.ParseDuration(value); err == nil {
		return v
	}
	return fallback
}
