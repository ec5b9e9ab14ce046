package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the application reads.
const EnvPrefix = "HM"

// Malformed-row policies understood by the importer.
const (
	MalformedDrop   = "drop"
	MalformedReject = "reject"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Server   ServerConfig
	Logging  LoggingConfig
	Cache    CacheConfig
	Sheets   SheetsConfig
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path           string
	ConnectTimeout time.Duration
	BusyRetries    int
	BusyBackoff    time.Duration
}

// CacheConfig configures the read-side transaction cache.
type CacheConfig struct {
	TTL     time.Duration
	Enabled bool
}

// ImportConfig holds import defaults.
type ImportConfig struct {
	Format        string
	MalformedRows string
	Encoding      string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ImportRateLimit float64 // Import requests per second, 0 disables limiting
	ShutdownTimeout time.Duration
}

// SheetsConfig holds the Google Sheets report settings. Either a service
// account key or OAuth2 client credentials are needed to push a report.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "$HOME/.local/share/hm/transactions.db")
	v.SetDefault("database.connect_timeout", 30*time.Second)
	v.SetDefault("database.busy_retries", 5)
	v.SetDefault("database.busy_backoff", 50*time.Millisecond)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("import.format", "standard")
	v.SetDefault("import.malformed_rows", MalformedDrop)
	v.SetDefault("import.encoding", "utf-8")

	v.SetDefault("server.addr", "127.0.0.1:8050")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8050", "http://127.0.0.1:8050"})
	v.SetDefault("server.import_rate_limit", 2.0)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("sheets.token_file", "$HOME/.config/hm/sheets-token.json")
	v.SetDefault("sheets.spreadsheet_name", "House Money")
	v.SetDefault("sheets.time_zone", "UTC")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv wires environment variables into v. Keys map to HM_<SECTION>_<KEY>;
// HM_DB_PATH is accepted as an alias for the database path.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH", EnvPrefix+"_DB_PATH")
}

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are not an error; variables already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load builds a validated Config from v.
// It follows this precedence:
// 1. Flags bound into viper
// 2. Environment variables (HM_*)
// 3. Config file
// 4. Defaults
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path:           ExpandPath(v.GetString("database.path")),
			ConnectTimeout: v.GetDuration("database.connect_timeout"),
			BusyRetries:    v.GetInt("database.busy_retries"),
			BusyBackoff:    v.GetDuration("database.busy_backoff"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			TTL:     v.GetDuration("cache.ttl"),
		},
		Import: ImportConfig{
			Format:        strings.ToLower(v.GetString("import.format")),
			MalformedRows: strings.ToLower(v.GetString("import.malformed_rows")),
			Encoding:      strings.ToLower(v.GetString("import.encoding")),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
			ImportRateLimit: v.GetFloat64("server.import_rate_limit"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Sheets: SheetsConfig{
			ClientID:           v.GetString("sheets.client_id"),
			ClientSecret:       v.GetString("sheets.client_secret"),
			RefreshToken:       v.GetString("sheets.refresh_token"),
			TokenFile:          ExpandPath(v.GetString("sheets.token_file")),
			ServiceAccountPath: ExpandPath(v.GetString("sheets.service_account_path")),
			SpreadsheetID:      v.GetString("sheets.spreadsheet_id"),
			SpreadsheetName:    v.GetString("sheets.spreadsheet_name"),
			TimeZone:           v.GetString("sheets.time_zone"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Database.BusyRetries < 0 {
		return fmt.Errorf("%w: database.busy_retries must not be negative", common.ErrInvalidConfig)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", common.ErrInvalidConfig)
	}
	switch c.Import.MalformedRows {
	case MalformedDrop, MalformedReject:
	default:
		return fmt.Errorf("%w: import.malformed_rows must be %q or %q, got %q",
			common.ErrInvalidConfig, MalformedDrop, MalformedReject, c.Import.MalformedRows)
	}
	if c.Server.ImportRateLimit < 0 {
		return fmt.Errorf("%w: server.import_rate_limit must not be negative", common.ErrInvalidConfig)
	}
	return nil
}
