package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var validEnvs = map[string]bool{
	"local": true,
	"dev":   true,
	"prod":  true,
}

type Config struct {
	ServerHost string
	ServerPort string
	AppEnv     string
	LogLevel   string
	DB         DBConfig
	Auth       AuthConfig
}

type AuthConfig struct {
	// TokenSecret signs HS256 bearer tokens. Empty disables authentication.
	TokenSecret string
	TokenIssuer string
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.ServerHost, c.ServerPort)
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.ServerPort)
	if err != nil {
		return fmt.Errorf("invalid SERVER_PORT %q: %w", c.ServerPort, err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %q: must be between 1 and 65535", c.ServerPort)
	}
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, dev, prod", c.AppEnv)
	}
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required when DB_DRIVER is %s", DriverSQLite)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be one of %s, %s", c.DB.Driver, DriverSQLite, DriverPostgres)
	}
	if c.AppEnv == "prod" && c.Auth.TokenSecret == "" {
		return fmt.Errorf("API_TOKEN_SECRET is required in %s environment", c.AppEnv)
	}
	return nil
}

type DBConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the data source name for the configured driver. For SQLite it
// is the database file path.
func (d DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

// LoadDotEnv seeds the environment from a dotenv file. Variables already set
// take precedence, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	return Config{
		ServerHost: envOrDefault("SERVER_HOST", "127.0.0.1"),
		ServerPort: envOrDefault("SERVER_PORT", "8080"),
		AppEnv:     envOrDefault("APP_ENV", "local"),
		LogLevel:   envOrDefault("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver:   envOrDefault("DB_DRIVER", DriverSQLite),
			Path:     envOrDefault("DB_PATH", DefaultDBPath()),
			Host:     envOrDefault("DB_HOST", "localhost"),
			Port:     envOrDefault("DB_PORT", "5432"),
			User:     envOrDefault("DB_USER", "todo"),
			Password: envOrDefault("DB_PASSWORD", "todo"),
			Name:     envOrDefault("DB_NAME", "todo"),
			SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			TokenSecret: os.Getenv("API_TOKEN_SECRET"),
			TokenIssuer: os.Getenv("API_TOKEN_ISSUER"),
		},
	}
}

// DefaultDBPath is todo-local/todo.db under the user's config directory, or
// the working directory when that is unknown.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "todo.db"
	}
	return filepath.Join(dir, "todo-local", "todo.db")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
